package attendance

import "errors"

// Attendance domain errors
var (
	// Ledger conflicts. These indicate a race with another client or stale
	// client state, and are never retried automatically.
	ErrDuplicateCheckIn = errors.New("a check-in already exists for today")
	ErrNoOpenCheckIn    = errors.New("no open check-in exists for today")

	// General errors
	ErrAttendanceNotFound = errors.New("attendance record not found")
	ErrUnauthorized       = errors.New("unauthorized to access this attendance record")
)
