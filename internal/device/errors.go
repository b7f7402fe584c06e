package device

import "errors"

// Domain errors for the device package.
//
// These errors can be checked using errors.Is():
//
//	if errors.Is(err, device.ErrInvalidLifecycle) {
//	    // reject configuration
//	}
var (
	// ErrInvalidLifecycle is returned when a lifecycle name is not recognised.
	ErrInvalidLifecycle = errors.New("device: invalid lifecycle")
)
