package cadence

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their JSON names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// Amounts are compared as numbers, so "required" rejects zero and
	// "gte=0" rejects negatives.
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})

	return v
}

// ValidateStruct checks s against its `validate` tags. The first violation
// is returned as a ValidationError naming the offending JSON field.
func ValidateStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return ValidationError{Field: verrs[0].Field(), Message: validationMessage(verrs[0])}
	}
	return err
}

func validationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid address"
	case "gt", "min":
		return "must be greater than " + e.Param()
	case "gte":
		return "must not be below " + e.Param()
	case "oneof":
		return "must be one of " + e.Param()
	default:
		return "failed " + e.Tag() + " check"
	}
}
