package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidationErrorMessage(t *testing.T) {
	err := NewValidationError("apneaHypopneaIndex", 200, 0, 150, "events/h",
		"value 200 outside valid range [0, 150]")

	assert.Equal(t, "apneaHypopneaIndex", err.Field)
	assert.Equal(t, 200.0, err.Value)
	assert.Equal(t, 0.0, err.Min)
	assert.Equal(t, 150.0, err.Max)
	assert.Equal(t, "events/h", err.Unit)
	assert.Contains(t, err.Error(), "apneaHypopneaIndex")
	assert.Contains(t, err.Error(), "outside valid range")
}

func TestValidationErrorUnwrapsThroughWrapping(t *testing.T) {
	inner := NewValidationError("epworthScore", 6.5, 0, 24, "points", "value must be an integer")
	wrapped := fmt.Errorf("assessment rejected: %w", inner)

	var verr *ValidationError
	require.True(t, errors.As(wrapped, &verr))
	assert.Equal(t, "epworthScore", verr.Field)
}

func TestReconstitutionErrorMessage(t *testing.T) {
	err := NewReconstitutionError("scoredAt", `"yesterday" is not a valid RFC 3339 timestamp`)

	assert.Equal(t, "scoredAt", err.Field)
	assert.Contains(t, err.Error(), "scoredAt")
	assert.Contains(t, err.Error(), "RFC 3339")
}

func TestErrorTypesStayDistinct(t *testing.T) {
	var target *ReconstitutionError
	validation := error(NewValidationError("age", 10, 18, 100, "years", "too young"))
	assert.False(t, errors.As(validation, &target))
}
