package homework

import (
	"errors"
	"fmt"
)

var (
	ErrStudentNotFound    = errors.New("student not found")
	ErrSubmissionNotFound = errors.New("submission not found")
	ErrAssignmentNotFound = errors.New("assignment not found")
	ErrNotOwner           = errors.New("submission belongs to another student")
	ErrEditWindowClosed   = errors.New("edit window closed")

	// ErrRevisionConflict is returned by Store.Save when the stored document
	// moved on since it was loaded.
	ErrRevisionConflict = errors.New("revision conflict")
	// ErrInvalidDataFile marks a stored document that cannot be parsed or
	// carries no known schema version.
	ErrInvalidDataFile = errors.New("invalid data file")
)

// ValidationError carries a message that is safe to show to the caller.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s", e.Message)
}

func invalid(message string) error {
	return &ValidationError{Message: message}
}

// IsValidation reports whether err is a ValidationError and returns its message.
func IsValidation(err error) (string, bool) {
	var v *ValidationError
	if errors.As(err, &v) {
		return v.Message, true
	}
	return "", false
}
