package verification

import (
	"context"

	"github.com/presensia/attendance-backend-go/internal/domain/attendance"
)

// Orchestrator drives the check-in and check-out verification flows. Every
// method checks that the session belongs to the calling employee. Step
// ordering is enforced here, never by caller discipline: Face must succeed
// before Location is reachable, Location before Confirmation.
type Orchestrator interface {
	// Start opens a flow for the employee, checking the ledger precondition
	// for the flow type. If a session for the same (employee, flow) is
	// already active it is returned as-is.
	Start(ctx context.Context, employeeID string, flow Flow) (Session, error)

	// Get returns the current session state.
	Get(employeeID string, sessionID string) (Session, error)

	// Advance acknowledges the disclaimer, resetting all transient
	// verification state and the face retry counter to zero.
	Advance(employeeID string, sessionID string) (Session, error)

	// SubmitFace runs one face verification attempt against the external
	// service, consuming one unit of the retry budget. Once the budget is
	// exhausted it returns ErrMaxRetriesExceeded without a network call.
	SubmitFace(ctx context.Context, employeeID string, sessionID string, sub FaceSubmission) (Session, error)

	// SubmitLocation evaluates one fresh position report against the office
	// geofence. Out-of-radius and probe failures leave the session in the
	// Location step for unbounded user-initiated retries.
	SubmitLocation(ctx context.Context, employeeID string, sessionID string, report PositionReport) (Session, error)

	// Confirm persists the record for the flow type. On success, the session
	// is discarded and the fresh ledger record returned. A ledger conflict is
	// surfaced as-is and never retried.
	Confirm(ctx context.Context, employeeID string, sessionID string) (attendance.Attendance, error)

	// Cancel tears the session down; a face verification call still in
	// flight will have its result discarded.
	Cancel(employeeID string, sessionID string) error
}
