package serrors

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// ValidationErrors maps a struct field name to a human readable reason.
type ValidationErrors map[string]string

func (v ValidationErrors) Error() string {
	return fmt.Sprintf("validation failed for %d field(s)", len(v))
}

func ProcessValidatorErrors(errs validator.ValidationErrors, localeKey func(field string) string) ValidationErrors {
	out := make(ValidationErrors, len(errs))
	for _, fe := range errs {
		field := fe.Field()
		label := field
		if localeKey != nil {
			if key := localeKey(field); key != "" {
				label = key
			}
		}
		switch fe.Tag() {
		case "required":
			out[field] = fmt.Sprintf("%s is required", label)
		case "oneof":
			out[field] = fmt.Sprintf("%s must be one of [%s]", label, fe.Param())
		case "len":
			out[field] = fmt.Sprintf("%s must be %s characters long", label, fe.Param())
		case "hexadecimal":
			out[field] = fmt.Sprintf("%s must be hexadecimal", label)
		case "gtfield":
			out[field] = fmt.Sprintf("%s must be after %s", label, fe.Param())
		default:
			out[field] = fmt.Sprintf("%s failed on %s", label, fe.Tag())
		}
	}
	return out
}
