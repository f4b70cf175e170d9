package app

import (
	"errors"

	"homework_portal/internal/domain/homework"
)

var (
	// ErrUnregistered means the request carries no token bound to a student.
	ErrUnregistered = errors.New("student token is not registered")
	// ErrUpstreamMalformed means the messaging API answered without the photo
	// references the submission needs.
	ErrUpstreamMalformed = errors.New("messaging API returned an unexpected result")
	// ErrFileNotAllowed means the file is not one of the submission's photos.
	ErrFileNotAllowed = errors.New("file does not belong to the submission")
)

func invalid(message string) error {
	return &homework.ValidationError{Message: message}
}
