package app

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"vitalstats/internal/domain"

	"github.com/go-playground/validator/v10"
)

var bloodPressurePattern = regexp.MustCompile(`^\d{2,3}/\d{2,3}$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	if err := v.RegisterValidation("bloodpressure", func(fl validator.FieldLevel) bool {
		return bloodPressurePattern.MatchString(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	return v
}

type statsPayload struct {
	Vitals      domain.Vitals      `json:"vitals"`
	ExerciseLog domain.ExerciseLog `json:"exerciseLog"`
}

func validateStats(vitals domain.Vitals, log domain.ExerciseLog) error {
	return validateStruct(statsPayload{Vitals: vitals, ExerciseLog: log})
}

// validateStruct runs the struct tags of v and reports every failure as a
// single ErrInvalidInput.
func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	return fmt.Errorf("%w: %s", domain.ErrInvalidInput, strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	field := fe.Namespace()
	if _, rest, ok := strings.Cut(field, "."); ok {
		field = rest
	}
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "email":
		return field + " must be a valid email address"
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	case "eqfield":
		return field + " must match password"
	case "bloodpressure":
		return field + ` must be in the format "120/80"`
	default:
		return fmt.Sprintf("%s failed %s", field, fe.Tag())
	}
}
