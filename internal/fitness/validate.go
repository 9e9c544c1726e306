package fitness

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

type enumValue interface {
	IsValid() bool
}

func newValidator() *validator.Validate {
	v := validator.New()
	if err := v.RegisterValidation("fitnessenum", func(fl validator.FieldLevel) bool {
		ev, ok := fl.Field().Interface().(enumValue)
		if !ok {
			return false
		}
		return ev.IsValid()
	}); err != nil {
		panic(fmt.Sprintf("register fitnessenum validation: %s", err))
	}
	return v
}

// Validate checks ids, non-negative measurements and enum tags of a record.
func Validate(record any) error {
	return validate.Struct(record)
}
