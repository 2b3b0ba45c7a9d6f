package attendance

import (
	"time"

	"github.com/presensia/attendance-backend-go/internal/pkg/duration"
	"github.com/presensia/attendance-backend-go/internal/pkg/validator"
)

// AttendanceResponse is the wire shape of one record.
type AttendanceResponse struct {
	ID               string   `json:"id"`
	EmployeeID       string   `json:"employee_id"`
	EmployeeName     *string  `json:"employee_name,omitempty"`
	Date             string   `json:"date"`
	CheckInAt        *string  `json:"check_in_at,omitempty"`
	CheckOutAt       *string  `json:"check_out_at,omitempty"`
	CheckInLatitude  *float64 `json:"check_in_latitude,omitempty"`
	CheckInLongitude *float64 `json:"check_in_longitude,omitempty"`
	Status           Status   `json:"status"`
	// WorkedFor is the closed session length, present only after check-out.
	WorkedFor *string `json:"worked_for,omitempty"`
}

// TodayResponse wraps today's record; Record is null when the employee has
// not checked in yet.
type TodayResponse struct {
	Date   string              `json:"date"`
	Record *AttendanceResponse `json:"record"`
}

// HistoryResponse is a descending-by-date page of records.
type HistoryResponse struct {
	Limit   int                  `json:"limit"`
	Records []AttendanceResponse `json:"records"`
}

// CorrectionRequest is an administrative status override, e.g. marking a
// half day. It never touches timestamps or coordinates.
type CorrectionRequest struct {
	ID     string `json:"-"`
	Status Status `json:"status"`
}

func (r *CorrectionRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.ID) {
		errs = append(errs, validator.ValidationError{
			Field:   "id",
			Message: "id is required",
		})
	}

	switch r.Status {
	case StatusAbsent, StatusPresent, StatusLate, StatusHalfDay:
	default:
		errs = append(errs, validator.ValidationError{
			Field:   "status",
			Message: "status must be one of absent, present, late, half_day",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

func timePtrToString(t *time.Time) *string {
	if t == nil {
		return nil
	}
	formatted := t.Format(time.RFC3339)
	return &formatted
}

// ToResponse converts an Attendance entity to its wire shape.
func ToResponse(att Attendance) AttendanceResponse {
	resp := AttendanceResponse{
		ID:               att.ID,
		EmployeeID:       att.EmployeeID,
		EmployeeName:     att.EmployeeName,
		Date:             att.Date.Format("2006-01-02"),
		CheckInAt:        timePtrToString(att.CheckInAt),
		CheckOutAt:       timePtrToString(att.CheckOutAt),
		CheckInLatitude:  att.CheckInLatitude,
		CheckInLongitude: att.CheckInLongitude,
		Status:           att.Status,
	}

	if att.CheckInAt != nil && att.CheckOutAt != nil {
		worked := duration.Elapsed(*att.CheckInAt, *att.CheckOutAt).Clock()
		resp.WorkedFor = &worked
	}

	return resp
}
