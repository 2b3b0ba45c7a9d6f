package attendance

import (
	"time"
)

// Status of an attendance record, decided at check-in time. HalfDay is only
// ever set administratively, never derived.
type Status string

const (
	StatusAbsent  Status = "absent"
	StatusPresent Status = "present"
	StatusLate    Status = "late"
	StatusHalfDay Status = "half_day"
)

// Attendance is one employee's record for one calendar day. Records are
// created by a verified check-in, mutated once by a verified check-out, and
// never deleted.
type Attendance struct {
	ID               string
	EmployeeID       string
	Date             time.Time
	CheckInAt        *time.Time
	CheckOutAt       *time.Time
	CheckInLatitude  *float64
	CheckInLongitude *float64
	Status           Status
	CreatedAt        time.Time
	UpdatedAt        time.Time

	// DTO
	EmployeeName *string
}

// Open reports whether the record has a check-in without a check-out.
func (a Attendance) Open() bool {
	return a.CheckInAt != nil && a.CheckOutAt == nil
}
