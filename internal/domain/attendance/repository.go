package attendance

import (
	"context"
	"time"
)

// AttendanceRepository is the persistence boundary for attendance records.
// It is the authoritative defense against double check-in: RecordCheckIn
// relies on a uniqueness constraint on (employee_id, date) and RecordCheckOut
// on a conditional update, so the loser of a race between two clients is
// rejected here regardless of what either client believed.
type AttendanceRepository interface {
	// RecordCheckIn inserts a new record. Returns ErrDuplicateCheckIn if a
	// record already exists for (employee, date).
	RecordCheckIn(ctx context.Context, rec Attendance) (Attendance, error)

	// RecordCheckOut sets check_out_at on today's record, conditioned on the
	// check-out still being unset. Returns ErrNoOpenCheckIn when no row
	// matches; it never creates a record.
	RecordCheckOut(ctx context.Context, employeeID string, dateLocal string, at time.Time) (Attendance, error)

	// GetByEmployeeAndDate returns the record for one employee on one
	// calendar day, or nil when none exists.
	GetByEmployeeAndDate(ctx context.Context, employeeID string, dateLocal string) (*Attendance, error)

	// GetHistory returns up to limit records, most recent date first.
	GetHistory(ctx context.Context, employeeID string, limit int) ([]Attendance, error)

	// GetByID retrieves a record by ID.
	GetByID(ctx context.Context, id string) (Attendance, error)

	// UpdateStatus overwrites the status of an existing record. Used for
	// administrative corrections such as marking a half day.
	UpdateStatus(ctx context.Context, id string, status Status) error
}
