package runlog

import "errors"

var (
	// ErrRunNotFound is returned when a run ID does not exist.
	ErrRunNotFound = errors.New("run: not found")

	// ErrRunExists is returned when saving a run whose ID is already logged.
	ErrRunExists = errors.New("run: already exists")
)
