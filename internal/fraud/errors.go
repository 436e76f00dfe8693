package fraud

import (
	"errors"
	"fmt"
)

// ErrNotFound is the sentinel for entity lookups that matched nothing.
// Wrap it with the entity kind and id so callers can both errors.Is it
// and log a useful message.
var ErrNotFound = errors.New("not found")

// NotFoundf wraps ErrNotFound with entity context.
func NotFoundf(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
}

// ValidationError reports a well-formed but unacceptable request.
// It maps to a 400 at the HTTP edge.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Validationf builds a ValidationError for a single field.
func Validationf(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
