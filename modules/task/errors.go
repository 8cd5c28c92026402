package task

import (
	"errors"
	"fmt"
)

// Sentinel errors for repository operations.
var (
	// ErrTaskNotFound is returned when the referenced task is absent from
	// the collection the operation targets.
	ErrTaskNotFound = errors.New("task not found")

	// ErrDuplicateLink is returned when a document path is already linked
	// to the task.
	ErrDuplicateLink = errors.New("document already linked to task")

	// ErrLinkNotFound is returned when no link with the given path exists
	// for the task.
	ErrLinkNotFound = errors.New("document link not found")
)

// ValidationError reports a missing or blank required field. It is a
// client-correctable error, distinct from NotFound and Conflict.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Message)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
