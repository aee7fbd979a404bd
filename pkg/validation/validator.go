// Package validation wraps a shared go-playground/validator instance with the
// location vocabulary tags and turns failures into apperror validation errors.
//
// Struct tags use the JSON field names in messages, so a failing
//
//	Latitude float64 `json:"latitude" validate:"min=-90,max=90"`
//
// is reported as "latitude must be at least -90".
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/ovaphlow/pitchfork/service-ohsnap/pkg/apperror"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// Validator returns the process-wide validator with custom tags registered.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				return fld.Name
			}
			return name
		})
		for tag, set := range vocabularies {
			mustRegister(v, tag, set)
		}
		validate = v
	})
	return validate
}

func mustRegister(v *validator.Validate, tag string, set []string) {
	err := v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
		return Contains(set, fl.Field().String())
	})
	if err != nil {
		panic(fmt.Sprintf("register %s: %v", tag, err))
	}
}

// Struct validates s and returns an *apperror.Error of kind validation
// describing the first failing field.
func Struct(s any) error {
	err := Validator().Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return apperror.Validation("Invalid request")
	}
	return apperror.Validation(message(verrs[0]))
}

func message(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max", "lte":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "lt":
		return fmt.Sprintf("%s must be less than %s", field, fe.Param())
	case "email":
		return field + " must be a valid email address"
	case "url", "http_url":
		return field + " must be a valid URL"
	case TagTimeOfDay, TagSeason, TagDifficulty, TagAccessibility, TagStyle:
		return fmt.Sprintf("%s must be one of: %s", field, strings.Join(vocabularies[fe.Tag()], ", "))
	default:
		return field + " is invalid"
	}
}
