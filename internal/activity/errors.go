package activity

import "errors"

// Domain errors for the activity package.
var (
	// ErrInvalidActivity is returned when an activity model fails validation.
	ErrInvalidActivity = errors.New("activity: invalid")

	// ErrUnknownDevice is returned when a state references a device key the
	// activity does not declare, or a type with no profiles.
	ErrUnknownDevice = errors.New("activity: unknown device")

	// ErrStepLimit is returned when an execution visits more states than the
	// engine allows.
	ErrStepLimit = errors.New("activity: step limit exceeded")
)
