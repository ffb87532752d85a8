package domain

import "fmt"

// Error codes attached to API error responses.
const (
	ErrCodeValidation     = "VALIDATION_ERROR"
	ErrCodeReconstitution = "RECONSTITUTION_ERROR"
	ErrCodeUnknownProfile = "UNKNOWN_PROFILE"
	ErrCodeNotFound       = "NOT_FOUND"
	ErrCodeInternalServer = "INTERNAL_SERVER_ERROR"
)

// ValidationError reports a single rejected indicator field. It carries the
// offending field name, the value received and the valid range so callers can
// recover the exact violated constraint.
type ValidationError struct {
	Field   string  `json:"field"`
	Value   float64 `json:"value"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Unit    string  `json:"unit,omitempty"`
	Message string  `json:"message"`
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// NewValidationError creates a ValidationError for an out-of-range or
// malformed field value.
func NewValidationError(field string, value, min, max float64, unit, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Min:     min,
		Max:     max,
		Unit:    unit,
		Message: message,
	}
}

// ReconstitutionError reports a failure to rebuild a scoring result from a
// previously serialized record. Kept distinct from ValidationError so callers
// can tell "bad new input" apart from "corrupt stored record".
type ReconstitutionError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *ReconstitutionError) Error() string {
	return fmt.Sprintf("reconstitution error for field '%s': %s", e.Field, e.Message)
}

// NewReconstitutionError creates a ReconstitutionError for a missing or
// unparseable serialized field.
func NewReconstitutionError(field, message string) *ReconstitutionError {
	return &ReconstitutionError{Field: field, Message: message}
}
