package model

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
)

// Error classes. Concrete errors are marked with one of these so callers
// can branch with errors.Is without knowing the concrete type.
var (
	ErrValidation   = errors.New("validation failed")
	ErrPrecondition = errors.New("precondition failed")
	ErrExternal     = errors.New("external call failed")
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
)

// ValidationError is one field level finding
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

// NewValidationError creates a new validation error
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// ValidationReport collects field errors in the order they were found
type ValidationReport struct {
	Errors []*ValidationError `json:"errors"`
}

// Add appends a finding
func (r *ValidationReport) Add(field, message string) {
	r.Errors = append(r.Errors, NewValidationError(field, message))
}

// HasErrors reports whether anything was found
func (r *ValidationReport) HasErrors() bool {
	return r != nil && len(r.Errors) > 0
}

// Fields maps field path to message. The first message wins per field.
func (r *ValidationReport) Fields() map[string]string {
	out := make(map[string]string, len(r.Errors))
	for _, e := range r.Errors {
		if _, ok := out[e.Field]; !ok {
			out[e.Field] = e.Message
		}
	}
	return out
}

func (r *ValidationReport) Error() string {
	msgs := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		msgs = append(msgs, e.Field+": "+e.Message)
	}
	return "invalid invoice: " + strings.Join(msgs, "; ")
}

// Err returns nil for an empty report, otherwise the report marked as a
// validation error.
func (r *ValidationReport) Err() error {
	if !r.HasErrors() {
		return nil
	}
	return errors.WithHint(errors.Mark(r, ErrValidation), "Please fix the highlighted fields and try again.")
}

// PreconditionError is raised before any work starts
type PreconditionError struct {
	Field   string
	Message string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("precondition failed on %s: %s", e.Field, e.Message)
}

// NewPreconditionError creates a precondition error with a user facing hint
func NewPreconditionError(field, message, hint string) error {
	err := errors.Mark(&PreconditionError{Field: field, Message: message}, ErrPrecondition)
	if hint != "" {
		err = errors.WithHint(err, hint)
	}
	return err
}

// ExternalError represents a failed call to a collaborator (rasterizer,
// data store, auth service)
type ExternalError struct {
	Operation string
	Message   string
	Cause     error
}

func (e *ExternalError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s failed: %s (%v)", e.Operation, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s failed: %s", e.Operation, e.Message)
}

func (e *ExternalError) Unwrap() error {
	return e.Cause
}

// NewExternalError wraps cause and hides its details behind a generic hint
func NewExternalError(operation, message string, cause error) error {
	err := errors.Mark(&ExternalError{Operation: operation, Message: message, Cause: cause}, ErrExternal)
	return errors.WithHint(err, "Something went wrong. Please try again.")
}

// NotFound returns a not-found error for the named resource
func NotFound(resource, id string) error {
	return errors.Mark(errors.Newf("%s %q not found", resource, id), ErrNotFound)
}

// Unauthorized returns an unauthorized error with a hint
func Unauthorized(message string) error {
	return errors.WithHint(errors.Mark(errors.New(message), ErrUnauthorized), "Please sign in to continue.")
}

// IsValidation checks if an error is a validation error
func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }

// IsPrecondition checks if an error is a precondition error
func IsPrecondition(err error) bool { return errors.Is(err, ErrPrecondition) }

// IsExternal checks if an error came from a collaborator
func IsExternal(err error) bool { return errors.Is(err, ErrExternal) }

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsUnauthorized checks if an error is an unauthorized error
func IsUnauthorized(err error) bool { return errors.Is(err, ErrUnauthorized) }

// ReportOf extracts the validation report carried by err, if any
func ReportOf(err error) (*ValidationReport, bool) {
	var report *ValidationReport
	if errors.As(err, &report) {
		return report, true
	}
	return nil, false
}

// UserMessage returns the hints attached to err, or fallback when none
func UserMessage(err error, fallback string) string {
	if hints := errors.FlattenHints(err); hints != "" {
		return hints
	}
	return fallback
}
