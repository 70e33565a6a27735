package serrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"
)

func TestBaseError_IsMatchesByCode(t *testing.T) {
	base := NewError("DUPLICATE", "duplicate", "")
	wrapped := fmt.Errorf("create: %w", base.WithMessage("request for %s exists", "A.Smith"))

	require.ErrorIs(t, wrapped, base)
	require.NotErrorIs(t, wrapped, NewError("OTHER", "duplicate", ""))
	require.Equal(t, "create: request for A.Smith exists", wrapped.Error())
}

func TestBaseError_WithTemplateDataCopies(t *testing.T) {
	base := NewError("X", "x", "Errors.X")
	withData := base.WithTemplateData(map[string]string{"a": "b"})

	require.Nil(t, base.TemplateData)
	require.Equal(t, "b", withData.TemplateData["a"])
	require.True(t, errors.Is(withData, base))
}

func TestProcessValidatorErrors(t *testing.T) {
	type dto struct {
		Recipient string `validate:"required"`
		State     string `validate:"oneof=Approved Rejected"`
	}
	err := validator.New().Struct(&dto{State: "Maybe"})
	var verrs validator.ValidationErrors
	require.ErrorAs(t, err, &verrs)

	out := ProcessValidatorErrors(verrs, func(field string) string {
		if field == "Recipient" {
			return "recipient"
		}
		return ""
	})
	require.Equal(t, "recipient is required", out["Recipient"])
	require.Equal(t, "State must be one of [Approved Rejected]", out["State"])
}
