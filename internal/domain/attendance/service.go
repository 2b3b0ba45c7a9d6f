package attendance

import (
	"context"
	"time"

	"github.com/presensia/attendance-backend-go/internal/pkg/geo"
)

// AttendanceService defines business logic over the attendance ledger.
// RecordCheckIn and RecordCheckOut are only ever invoked by the verification
// orchestrator once both factors have passed; they are not exposed to clients
// directly.
type AttendanceService interface {
	// Today returns the authenticated employee's record for the current
	// calendar day, nil record when none exists.
	Today(ctx context.Context) (TodayResponse, error)

	// History returns up to limit records for the authenticated employee,
	// most recent date first.
	History(ctx context.Context, limit int) (HistoryResponse, error)

	// RecordCheckIn persists a verified check-in at the given instant and
	// location, deriving the status from time-of-day policy.
	RecordCheckIn(ctx context.Context, employeeID string, at time.Time, location geo.Point) (Attendance, error)

	// RecordCheckOut closes today's open check-in.
	RecordCheckOut(ctx context.Context, employeeID string, at time.Time) (Attendance, error)

	// TodayFor is Today for an explicit employee, used by the orchestrator
	// to check flow preconditions.
	TodayFor(ctx context.Context, employeeID string) (*Attendance, error)

	// Correct applies an administrative status override.
	Correct(ctx context.Context, req CorrectionRequest) (AttendanceResponse, error)
}
