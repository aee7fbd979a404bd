package shot

import (
	"math"
	"sort"

	"github.com/ovaphlow/pitchfork/service-ohsnap/internal/shot/entity"
)

// TopLocationsLimit caps Stats.TopLocations.
const TopLocationsLimit = 5

// Aggregate computes a photographer's stats from their shots. Ties are
// broken by first appearance in shots, so callers pass them in logging order.
func Aggregate(shots []*entity.Shot) entity.Stats {
	st := entity.Stats{TopLocations: []entity.LocationCount{}}
	if len(shots) == 0 {
		return st
	}

	var sum float64
	cameras := newTally[string]()
	lenses := newTally[string]()
	locations := newTally[int64]()
	for _, s := range shots {
		sum += s.Rating
		if s.CameraModel != "" {
			cameras.add(s.CameraModel)
		}
		if s.Lens != "" {
			lenses.add(s.Lens)
		}
		locations.add(s.LocationID)
	}

	st.TotalShots = len(shots)
	st.AverageRating = math.Round(sum/float64(len(shots))*10) / 10
	st.FavoriteCamera = cameras.mode()
	st.FavoriteLens = lenses.mode()
	for _, e := range locations.top(TopLocationsLimit) {
		st.TopLocations = append(st.TopLocations, entity.LocationCount{LocationID: e.key, Count: e.count})
	}
	return st
}

type tallyEntry[K comparable] struct {
	key   K
	count int
}

// tally counts keys and remembers the order they were first seen.
type tally[K comparable] struct {
	index   map[K]int
	entries []tallyEntry[K]
}

func newTally[K comparable]() *tally[K] {
	return &tally[K]{index: map[K]int{}}
}

func (t *tally[K]) add(k K) {
	i, ok := t.index[k]
	if !ok {
		i = len(t.entries)
		t.index[k] = i
		t.entries = append(t.entries, tallyEntry[K]{key: k})
	}
	t.entries[i].count++
}

// mode returns the most frequent key, or nil when nothing was counted.
func (t *tally[K]) mode() *K {
	if len(t.entries) == 0 {
		return nil
	}
	best := t.entries[0]
	for _, e := range t.entries[1:] {
		if e.count > best.count {
			best = e
		}
	}
	return &best.key
}

func (t *tally[K]) top(n int) []tallyEntry[K] {
	out := make([]tallyEntry[K], len(t.entries))
	copy(out, t.entries)
	sort.SliceStable(out, func(i, j int) bool { return out[i].count > out[j].count })
	if len(out) > n {
		out = out[:n]
	}
	return out
}
