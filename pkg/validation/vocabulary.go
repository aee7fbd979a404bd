package validation

// Custom validator tags for the location vocabulary.
const (
	TagTimeOfDay     = "timeofday"
	TagSeason        = "season"
	TagDifficulty    = "difficulty"
	TagAccessibility = "accessibility"
	TagStyle         = "photostyle"
)

var (
	TimesOfDay          = []string{"sunrise", "golden hour", "midday", "blue hour", "night"}
	Seasons             = []string{"spring", "summer", "fall", "winter"}
	Difficulties        = []string{"easy", "moderate", "challenging"}
	AccessibilityLevels = []string{"very accessible", "moderate", "difficult to access"}
	PhotographyStyles   = []string{"landscape", "portrait", "macro", "wildlife", "architecture", "street", "aerial", "nature"}
)

var vocabularies = map[string][]string{
	TagTimeOfDay:     TimesOfDay,
	TagSeason:        Seasons,
	TagDifficulty:    Difficulties,
	TagAccessibility: AccessibilityLevels,
	TagStyle:         PhotographyStyles,
}

// Contains reports whether v is one of set.
func Contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
