package verification

import (
	"errors"
	"fmt"
)

var (
	ErrSessionNotFound = errors.New("verification session not found")
	ErrWrongStep       = errors.New("action is not valid for the current verification step")
	// ErrMaxRetriesExceeded is terminal for the flow: the face retry budget
	// is spent and the employee must contact an administrator.
	ErrMaxRetriesExceeded = errors.New("face verification retry budget exhausted, contact an administrator")
	// ErrCheckInNotAllowed / ErrCheckOutNotAllowed guard flow entry.
	ErrCheckInNotAllowed  = errors.New("a check-in flow cannot begin: today's record already exists")
	ErrCheckOutNotAllowed = errors.New("a check-out flow cannot begin: no open check-in for today")
)

// DeviceErrorCode classifies a failed position probe. Remediation differs per
// code, so callers present distinct guidance for each.
type DeviceErrorCode string

const (
	DevicePermissionDenied    DeviceErrorCode = "permission_denied"
	DevicePositionUnavailable DeviceErrorCode = "position_unavailable"
	DeviceTimeout             DeviceErrorCode = "timeout"
	DeviceUnsupported         DeviceErrorCode = "unsupported"
)

// DeviceError is a typed probe failure: the location could not be determined
// at all, as opposed to determined-but-out-of-range.
type DeviceError struct {
	Code DeviceErrorCode
}

func (e *DeviceError) Error() string {
	return "location probe failed: " + string(e.Code)
}

// Guidance is the remediation hint for the failure class.
func (e *DeviceError) Guidance() string {
	switch e.Code {
	case DevicePermissionDenied:
		return "grant location permission to the app and try again"
	case DevicePositionUnavailable:
		return "move to an area with better signal and try again"
	case DeviceTimeout:
		return "position fix took too long, try again"
	case DeviceUnsupported:
		return "this device does not support location services"
	default:
		return "could not determine your location"
	}
}

// OutOfRadiusError is a business rejection, not a probe error: the location
// was determined, it is just too far from the office. Location retries are
// unbounded since the employee can physically move.
type OutOfRadiusError struct {
	DistanceMeters float64
	RequiredMeters float64
}

func (e *OutOfRadiusError) Error() string {
	return fmt.Sprintf("you are %.0f m from the office, must be within %.0f m", e.DistanceMeters, e.RequiredMeters)
}
