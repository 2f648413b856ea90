package presence

import "errors"

// Domain errors for the presence package.
var (
	// ErrInvalidRange is returned when a "HH:MM-HH:MM" time range cannot be parsed.
	ErrInvalidRange = errors.New("presence: invalid time range")

	// ErrInvalidWeekday is returned for an unknown weekday name.
	ErrInvalidWeekday = errors.New("presence: invalid weekday")
)
