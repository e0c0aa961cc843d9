package actuator

import "errors"

// Domain errors for the actuator package.
var (
	// ErrNoStatus is returned when a channel has never reported a status.
	ErrNoStatus = errors.New("actuator: no status observed")

	// ErrInvalidChannel is returned for an empty channel name.
	ErrInvalidChannel = errors.New("actuator: invalid channel")

	// ErrInvalidStatus is returned when a status event cannot be decoded or
	// is missing a required field.
	ErrInvalidStatus = errors.New("actuator: invalid status")
)
