package serrors

import (
	"errors"
	"fmt"
)

// BaseError is a coded error that survives wrapping. Two BaseErrors are
// considered equal by errors.Is when their codes match.
type BaseError struct {
	Code         string            `json:"code"`
	Message      string            `json:"message"`
	LocaleKey    string            `json:"locale_key,omitempty"`
	TemplateData map[string]string `json:"template_data,omitempty"`
}

func NewError(code, message, localeKey string) *BaseError {
	return &BaseError{
		Code:      code,
		Message:   message,
		LocaleKey: localeKey,
	}
}

func (e *BaseError) Error() string {
	return e.Message
}

func (e *BaseError) Is(target error) bool {
	var t *BaseError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// WithTemplateData returns a copy carrying data for message templating.
func (e *BaseError) WithTemplateData(data map[string]string) *BaseError {
	cp := *e
	cp.TemplateData = data
	return &cp
}

// WithMessage returns a copy with a caller-specific message but the same code.
func (e *BaseError) WithMessage(format string, args ...any) *BaseError {
	cp := *e
	cp.Message = fmt.Sprintf(format, args...)
	return &cp
}

func NewFieldRequiredError(field, localeKey string) *BaseError {
	return NewError(
		"FIELD_REQUIRED",
		fmt.Sprintf("%s is required", field),
		localeKey,
	).WithTemplateData(map[string]string{"field": field})
}
