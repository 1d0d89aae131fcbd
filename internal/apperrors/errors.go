package apperrors

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors shared by the domain packages. Callers match them with errors.Is.
var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidStatus = errors.New("invalid status")
	ErrMissingFields = errors.New("missing required fields")
	ErrUpstream      = errors.New("upstream failure")
)

// ValidationError carries every rule a submission violated.
type ValidationError struct {
	Problems []string
}

// NewValidationError builds a ValidationError from one or more problems.
func NewValidationError(problems ...string) *ValidationError {
	return &ValidationError{Problems: problems}
}

func (e *ValidationError) Error() string {
	if len(e.Problems) == 0 {
		return "validation failed"
	}
	return strings.Join(e.Problems, "; ")
}

// Primary returns the first violated rule, which is what callers display as the headline.
func (e *ValidationError) Primary() string {
	if len(e.Problems) == 0 {
		return "validation failed"
	}
	return e.Problems[0]
}

// AsValidation unwraps err into a *ValidationError if it is one.
func AsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// DetailError is a sentinel plus the explanation clients are shown.
type DetailError struct {
	Kind   error
	Detail string
}

// WithDetail wraps kind with a formatted explanation.
func WithDetail(kind error, format string, args ...interface{}) error {
	return &DetailError{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

func (e *DetailError) Error() string { return e.Kind.Error() + ": " + e.Detail }

func (e *DetailError) Unwrap() error { return e.Kind }

// Public returns the client-facing text for err: the sentinel message and its
// detail, if any, without the prefixes added while the error was wrapped.
func Public(err error) string {
	var de *DetailError
	if errors.As(err, &de) {
		return de.Error()
	}
	for _, kind := range []error{ErrMissingFields, ErrInvalidStatus, ErrNotFound, ErrUpstream} {
		if errors.Is(err, kind) {
			return kind.Error()
		}
	}
	return "internal error"
}
