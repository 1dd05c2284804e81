package dtos

import (
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name  string   `validate:"required"`
	Dates []string `validate:"min=1,max=3"`
	Day   string   `validate:"omitempty,datetime=2006-01-02"`
}

func TestFormatValidationErrors(t *testing.T) {
	err := validator.New().Struct(sample{Dates: []string{"a", "b", "c", "d"}, Day: "01/06/2025"})
	var verrs validator.ValidationErrors
	require.True(t, errors.As(err, &verrs))

	details := FormatValidationErrors(verrs)
	require.Len(t, details, 3)

	byField := map[string]ValidationErrorDetail{}
	for _, d := range details {
		byField[d.Field] = d
	}
	require.Equal(t, "validation_required", byField["Name"].Code)
	require.Equal(t, "validation_max", byField["Dates"].Code)
	require.Equal(t, "validation_datetime", byField["Day"].Code)
	require.Contains(t, byField["Day"].Message, "2006-01-02")
}
