package reminder

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a reminder id is unknown.
var ErrNotFound = errors.New("reminder not found")

// ErrConflict is returned when the per-reminder lock cannot be acquired in
// time. The caller should retry.
var ErrConflict = errors.New("concurrent modification in progress")

// ValidationError reports a rejected field on a create or update call. The
// operation is not applied at all when one is returned.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
