package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Error taxonomy shared by the caches, the façade and the transport layer.
var (
	// ErrInvalidInput is returned for malformed birth data or natal charts.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUpstreamUnavailable is returned when the ephemeris gateway is unreachable
	// or erroring and no fallback data exists.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrUpstreamTimeout is returned when waiting on the gateway exceeded its bound.
	ErrUpstreamTimeout = errors.New("upstream timeout")
)

// IsUpstream reports whether err is an upstream failure (unavailable or timeout).
func IsUpstream(err error) bool {
	return errors.Is(err, ErrUpstreamUnavailable) || errors.Is(err, ErrUpstreamTimeout)
}

// FieldError represents a single field's validation error.
type FieldError struct {
	Field string `json:"field"`
	Msg   string `json:"message"`
}

func (e FieldError) Error() string { return fmt.Sprintf("%s: %s", e.Field, e.Msg) }

// ValidationError aggregates field errors. It unwraps to ErrInvalidInput.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Error()
	}
	return fmt.Sprintf("%s: %s", ErrInvalidInput, strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

// newValidationError returns nil when errs is empty.
func newValidationError(errs []FieldError) error {
	if len(errs) == 0 {
		return nil
	}
	return &ValidationError{Fields: errs}
}
