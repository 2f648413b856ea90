package appliance

import "errors"

// Domain errors for the appliance package.
var (
	// ErrProfileFormat is returned when a profile file is malformed, its sample
	// offsets are not strictly increasing, or it contains negative power.
	ErrProfileFormat = errors.New("appliance: invalid profile")

	// ErrProfileSelection is returned when no profile is registered for the
	// requested appliance type or device handle.
	ErrProfileSelection = errors.New("appliance: profile selection failed")

	// ErrUnknownType is returned when an appliance type has no profiles at all.
	ErrUnknownType = errors.New("appliance: unknown type")
)
