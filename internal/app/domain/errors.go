package domain

import "errors"

var (
	// ErrInvalidStatus is returned when a status is outside the recognized set.
	ErrInvalidStatus = errors.New("invalid status")
	// ErrInvalidInput is returned when user-supplied data fails validation.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound is returned when a referenced record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrRunInProgress is returned when a run is started while another is active.
	ErrRunInProgress = errors.New("a run is already in progress")
)
