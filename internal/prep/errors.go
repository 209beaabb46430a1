package prep

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation is matched by every ValidationError.
	ErrValidation = errors.New("validation failed")
	// ErrEmptyInput reports an empty text reaching the prompt builder.
	// Normalize never produces one, so seeing it means the caller bypassed normalization.
	ErrEmptyInput = errors.New("empty input reached the prompt builder")
	// ErrMalformedResponse is matched by every MalformedResponseError.
	ErrMalformedResponse = errors.New("malformed model response")
)

// ValidationError describes an input that is too short or absent.
type ValidationError struct {
	Field  string
	Length int
	Min    int
}

func (e *ValidationError) Error() string {
	field := e.Field
	if field == "" {
		field = "input"
	}
	if e.Length == 0 {
		return fmt.Sprintf("%s is empty", field)
	}
	return fmt.Sprintf("%s is too short: %d characters, need at least %d", field, e.Length, e.Min)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// MalformedResponseError is returned when no structured object could be
// recovered from the model output. Raw keeps the untouched output for diagnostics.
type MalformedResponseError struct {
	Raw    string
	Reason string
}

func (e *MalformedResponseError) Error() string {
	if e.Reason == "" {
		return ErrMalformedResponse.Error()
	}
	return fmt.Sprintf("%s: %s", ErrMalformedResponse, e.Reason)
}

func (e *MalformedResponseError) Is(target error) bool {
	return target == ErrMalformedResponse
}
