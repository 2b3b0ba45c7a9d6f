package verification

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/presensia/attendance-backend-go/internal/domain/attendance"
	"github.com/presensia/attendance-backend-go/internal/domain/verification"
	"github.com/presensia/attendance-backend-go/internal/pkg/facematch"
	"github.com/presensia/attendance-backend-go/internal/pkg/geo"
)

const employeeID = "emp-1"

// fakeMatcher scripts the face service. Every Verify call is counted so tests
// can prove the retry budget gates network calls, not just responses.
type fakeMatcher struct {
	mu     sync.Mutex
	calls  int
	result facematch.Result
	err    error
	// gate, when set, blocks Verify until it is closed. Used to hold a call
	// in flight while the session is torn down underneath it.
	gate chan struct{}
}

func (m *fakeMatcher) Verify(ctx context.Context, capturedImage string, capturedAt time.Time) (facematch.Result, error) {
	m.mu.Lock()
	m.calls++
	gate := m.gate
	result, err := m.result, m.err
	m.mu.Unlock()

	if gate != nil {
		<-gate
	}
	return result, err
}

func (m *fakeMatcher) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *fakeMatcher) set(result facematch.Result, err error) {
	m.mu.Lock()
	m.result, m.err = result, err
	m.mu.Unlock()
}

// fakeLedger implements attendance.AttendanceService over a single in-memory
// record, enough to exercise flow preconditions and Confirm.
type fakeLedger struct {
	mu       sync.Mutex
	today    *attendance.Attendance
	checkIn  attendance.Attendance
	writeErr error

	checkInAt    *time.Time
	checkInPoint *geo.Point
	checkOuts    int
}

func (l *fakeLedger) TodayFor(ctx context.Context, employeeID string) (*attendance.Attendance, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.today, nil
}

func (l *fakeLedger) RecordCheckIn(ctx context.Context, employeeID string, at time.Time, location geo.Point) (attendance.Attendance, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.writeErr != nil {
		return attendance.Attendance{}, l.writeErr
	}
	l.checkInAt = &at
	l.checkInPoint = &location
	rec := l.checkIn
	l.today = &rec
	return rec, nil
}

func (l *fakeLedger) RecordCheckOut(ctx context.Context, employeeID string, at time.Time) (attendance.Attendance, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.writeErr != nil {
		return attendance.Attendance{}, l.writeErr
	}
	l.checkOuts++
	rec := l.checkIn
	rec.CheckOutAt = &at
	l.today = &rec
	return rec, nil
}

func (l *fakeLedger) Today(ctx context.Context) (attendance.TodayResponse, error) {
	return attendance.TodayResponse{}, nil
}

func (l *fakeLedger) History(ctx context.Context, limit int) (attendance.HistoryResponse, error) {
	return attendance.HistoryResponse{}, nil
}

func (l *fakeLedger) Correct(ctx context.Context, req attendance.CorrectionRequest) (attendance.AttendanceResponse, error) {
	return attendance.AttendanceResponse{}, nil
}

func newTestOrchestrator(matcher *fakeMatcher, ledger *fakeLedger) *OrchestratorImpl {
	return NewOrchestrator(matcher, ledger, testProbe(), 3)
}

// advanceToFace starts a flow and acknowledges the disclaimer.
func advanceToFace(t *testing.T, o *OrchestratorImpl, flow verification.Flow) verification.Session {
	t.Helper()

	s, err := o.Start(context.Background(), employeeID, flow)
	require.NoError(t, err)
	require.Equal(t, verification.StepDisclaimer, s.Step)

	s, err = o.Advance(employeeID, s.ID)
	require.NoError(t, err)
	require.Equal(t, verification.StepFace, s.Step)
	return s
}

func freshReport(p geo.Point) verification.PositionReport {
	return verification.PositionReport{
		Latitude:       p.Latitude,
		Longitude:      p.Longitude,
		AccuracyMeters: 10,
		CapturedAt:     time.Now(),
	}
}

func faceShot() verification.FaceSubmission {
	return verification.FaceSubmission{CapturedImage: "aGVsbG8=", CapturedAt: time.Now()}
}

func TestCheckInFlowHappyPath(t *testing.T) {
	matcher := &fakeMatcher{result: facematch.Result{Verified: true}}
	openAt := time.Now()
	ledger := &fakeLedger{checkIn: attendance.Attendance{
		ID:         "att-1",
		EmployeeID: employeeID,
		CheckInAt:  &openAt,
		Status:     attendance.StatusPresent,
	}}
	o := newTestOrchestrator(matcher, ledger)

	s := advanceToFace(t, o, verification.FlowCheckIn)

	s, err := o.SubmitFace(context.Background(), employeeID, s.ID, faceShot())
	require.NoError(t, err)
	assert.Equal(t, verification.StatusSuccess, s.Face.Status)
	assert.Equal(t, verification.StepLocation, s.Step)

	near := pointNorthOf(office, 40)
	s, err = o.SubmitLocation(context.Background(), employeeID, s.ID, freshReport(near))
	require.NoError(t, err)
	assert.Equal(t, verification.StepConfirmation, s.Step)
	require.NotNil(t, s.Sample)
	assert.True(t, s.Sample.WithinRadius)

	record, err := o.Confirm(context.Background(), employeeID, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "att-1", record.ID)

	// The verified location, not anything client-asserted, is what reaches
	// the ledger.
	require.NotNil(t, ledger.checkInPoint)
	assert.InDelta(t, near.Latitude, ledger.checkInPoint.Latitude, 1e-9)
	assert.InDelta(t, near.Longitude, ledger.checkInPoint.Longitude, 1e-9)

	// Completion discards the session.
	_, err = o.Get(employeeID, s.ID)
	assert.ErrorIs(t, err, verification.ErrSessionNotFound)
}

func TestCheckOutFlow(t *testing.T) {
	matcher := &fakeMatcher{result: facematch.Result{Verified: true}}
	openAt := time.Now().Add(-8 * time.Hour)
	ledger := &fakeLedger{
		today:   &attendance.Attendance{ID: "att-1", EmployeeID: employeeID, CheckInAt: &openAt},
		checkIn: attendance.Attendance{ID: "att-1", EmployeeID: employeeID, CheckInAt: &openAt},
	}
	o := newTestOrchestrator(matcher, ledger)

	s := advanceToFace(t, o, verification.FlowCheckOut)

	s, err := o.SubmitFace(context.Background(), employeeID, s.ID, faceShot())
	require.NoError(t, err)

	s, err = o.SubmitLocation(context.Background(), employeeID, s.ID, freshReport(office))
	require.NoError(t, err)

	record, err := o.Confirm(context.Background(), employeeID, s.ID)
	require.NoError(t, err)
	assert.NotNil(t, record.CheckOutAt)
	assert.Equal(t, 1, ledger.checkOuts)
}

func TestStartPreconditions(t *testing.T) {
	t.Run("check-in blocked when today's record exists", func(t *testing.T) {
		openAt := time.Now()
		ledger := &fakeLedger{today: &attendance.Attendance{CheckInAt: &openAt}}
		o := newTestOrchestrator(&fakeMatcher{}, ledger)

		_, err := o.Start(context.Background(), employeeID, verification.FlowCheckIn)
		assert.ErrorIs(t, err, verification.ErrCheckInNotAllowed)
	})

	t.Run("check-out blocked without open check-in", func(t *testing.T) {
		o := newTestOrchestrator(&fakeMatcher{}, &fakeLedger{})

		_, err := o.Start(context.Background(), employeeID, verification.FlowCheckOut)
		assert.ErrorIs(t, err, verification.ErrCheckOutNotAllowed)
	})

	t.Run("check-out blocked when already closed", func(t *testing.T) {
		in, out := time.Now().Add(-9*time.Hour), time.Now()
		ledger := &fakeLedger{today: &attendance.Attendance{CheckInAt: &in, CheckOutAt: &out}}
		o := newTestOrchestrator(&fakeMatcher{}, ledger)

		_, err := o.Start(context.Background(), employeeID, verification.FlowCheckOut)
		assert.ErrorIs(t, err, verification.ErrCheckOutNotAllowed)
	})
}

func TestStartIsIdempotentPerFlow(t *testing.T) {
	o := newTestOrchestrator(&fakeMatcher{}, &fakeLedger{})

	first, err := o.Start(context.Background(), employeeID, verification.FlowCheckIn)
	require.NoError(t, err)

	second, err := o.Start(context.Background(), employeeID, verification.FlowCheckIn)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestFaceRetryBudget(t *testing.T) {
	matcher := &fakeMatcher{result: facematch.Result{Verified: false, Message: "face does not match"}}
	o := newTestOrchestrator(matcher, &fakeLedger{})

	s := advanceToFace(t, o, verification.FlowCheckIn)

	for i := 1; i <= 2; i++ {
		s, _ = o.SubmitFace(context.Background(), employeeID, s.ID, faceShot())
		assert.Equal(t, verification.StatusFailed, s.Face.Status)
		assert.Equal(t, i, s.Face.Attempts)
		assert.False(t, s.Face.Escalated)
	}

	// The third failure is terminal.
	s, err := o.SubmitFace(context.Background(), employeeID, s.ID, faceShot())
	assert.ErrorIs(t, err, verification.ErrMaxRetriesExceeded)
	assert.True(t, s.Face.Escalated)
	assert.Equal(t, 3, s.Face.Attempts)
	require.Equal(t, 3, matcher.callCount())

	// A fourth submission is rejected before any network call.
	_, err = o.SubmitFace(context.Background(), employeeID, s.ID, faceShot())
	assert.ErrorIs(t, err, verification.ErrMaxRetriesExceeded)
	assert.Equal(t, 3, matcher.callCount())
}

func TestFaceServiceOutageConsumesBudget(t *testing.T) {
	matcher := &fakeMatcher{err: facematch.ErrServiceUnavailable}
	o := newTestOrchestrator(matcher, &fakeLedger{})

	s := advanceToFace(t, o, verification.FlowCheckIn)

	s, err := o.SubmitFace(context.Background(), employeeID, s.ID, faceShot())
	require.ErrorIs(t, err, facematch.ErrServiceUnavailable)
	assert.Equal(t, 1, s.Face.Attempts)
	assert.Equal(t, verification.StatusFailed, s.Face.Status)
}

func TestFaceReauthenticateDoesNotConsumeBudget(t *testing.T) {
	matcher := &fakeMatcher{err: facematch.ErrReauthenticate}
	o := newTestOrchestrator(matcher, &fakeLedger{})

	s := advanceToFace(t, o, verification.FlowCheckIn)

	s, err := o.SubmitFace(context.Background(), employeeID, s.ID, faceShot())
	require.ErrorIs(t, err, facematch.ErrReauthenticate)
	assert.Equal(t, 0, s.Face.Attempts)

	// The full budget is still available afterwards.
	matcher.set(facematch.Result{Verified: true}, nil)
	s, err = o.SubmitFace(context.Background(), employeeID, s.ID, faceShot())
	require.NoError(t, err)
	assert.Equal(t, verification.StepLocation, s.Step)
}

func TestLocationOutOfRadiusRetriesUnbounded(t *testing.T) {
	matcher := &fakeMatcher{result: facematch.Result{Verified: true}}
	ledger := &fakeLedger{checkIn: attendance.Attendance{ID: "att-1"}}
	o := newTestOrchestrator(matcher, ledger)

	s := advanceToFace(t, o, verification.FlowCheckIn)
	s, err := o.SubmitFace(context.Background(), employeeID, s.ID, faceShot())
	require.NoError(t, err)

	far := pointNorthOf(office, 200)
	for i := 0; i < 5; i++ {
		s, err = o.SubmitLocation(context.Background(), employeeID, s.ID, freshReport(far))

		var oor *verification.OutOfRadiusError
		require.ErrorAs(t, err, &oor)
		assert.InDelta(t, 200, oor.DistanceMeters, 1)
		assert.Equal(t, 70.0, oor.RequiredMeters)
		assert.Equal(t, verification.StepLocation, s.Step)
	}

	// Nothing reached the ledger while out of range.
	assert.Nil(t, ledger.checkInPoint)

	// Moving inside the fence succeeds on the next try.
	s, err = o.SubmitLocation(context.Background(), employeeID, s.ID, freshReport(office))
	require.NoError(t, err)
	assert.Equal(t, verification.StepConfirmation, s.Step)
}

func TestLocationDeviceFailureKeepsStep(t *testing.T) {
	matcher := &fakeMatcher{result: facematch.Result{Verified: true}}
	o := newTestOrchestrator(matcher, &fakeLedger{})

	s := advanceToFace(t, o, verification.FlowCheckIn)
	s, err := o.SubmitFace(context.Background(), employeeID, s.ID, faceShot())
	require.NoError(t, err)

	s, err = o.SubmitLocation(context.Background(), employeeID, s.ID, verification.PositionReport{
		FailureCode: verification.DevicePermissionDenied,
	})

	var devErr *verification.DeviceError
	require.ErrorAs(t, err, &devErr)
	assert.Equal(t, verification.StepLocation, s.Step)
	assert.Equal(t, verification.StatusFailed, s.Location.Status)
	assert.NotEmpty(t, s.Location.FailureReason)
}

func TestStepOrderingEnforced(t *testing.T) {
	o := newTestOrchestrator(&fakeMatcher{}, &fakeLedger{})

	s, err := o.Start(context.Background(), employeeID, verification.FlowCheckIn)
	require.NoError(t, err)

	// Face and Location are unreachable from Disclaimer.
	_, err = o.SubmitFace(context.Background(), employeeID, s.ID, faceShot())
	assert.ErrorIs(t, err, verification.ErrWrongStep)

	_, err = o.SubmitLocation(context.Background(), employeeID, s.ID, freshReport(office))
	assert.ErrorIs(t, err, verification.ErrWrongStep)

	_, err = o.Confirm(context.Background(), employeeID, s.ID)
	assert.ErrorIs(t, err, verification.ErrWrongStep)
}

func TestSessionOwnership(t *testing.T) {
	o := newTestOrchestrator(&fakeMatcher{}, &fakeLedger{})

	s, err := o.Start(context.Background(), employeeID, verification.FlowCheckIn)
	require.NoError(t, err)

	_, err = o.Get("someone-else", s.ID)
	assert.ErrorIs(t, err, verification.ErrSessionNotFound)

	err = o.Cancel("someone-else", s.ID)
	assert.ErrorIs(t, err, verification.ErrSessionNotFound)
}

func TestConfirmSurfacesLedgerConflict(t *testing.T) {
	matcher := &fakeMatcher{result: facematch.Result{Verified: true}}
	ledger := &fakeLedger{writeErr: attendance.ErrDuplicateCheckIn}
	o := newTestOrchestrator(matcher, ledger)

	s := advanceToFace(t, o, verification.FlowCheckIn)
	s, err := o.SubmitFace(context.Background(), employeeID, s.ID, faceShot())
	require.NoError(t, err)
	s, err = o.SubmitLocation(context.Background(), employeeID, s.ID, freshReport(office))
	require.NoError(t, err)

	_, err = o.Confirm(context.Background(), employeeID, s.ID)
	assert.ErrorIs(t, err, attendance.ErrDuplicateCheckIn)

	// The session is kept so the client can read state before cancelling;
	// the conflict itself is never retried by the orchestrator.
	got, err := o.Get(employeeID, s.ID)
	require.NoError(t, err)
	assert.Equal(t, verification.StepConfirmation, got.Step)
}

func TestCancelDiscardsInFlightFaceResult(t *testing.T) {
	gate := make(chan struct{})
	matcher := &fakeMatcher{result: facematch.Result{Verified: true}, gate: gate}
	o := newTestOrchestrator(matcher, &fakeLedger{})

	s := advanceToFace(t, o, verification.FlowCheckIn)

	done := make(chan error, 1)
	go func() {
		_, err := o.SubmitFace(context.Background(), employeeID, s.ID, faceShot())
		done <- err
	}()

	// Wait for the call to be in flight, then tear the session down.
	require.Eventually(t, func() bool { return matcher.callCount() == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, o.Cancel(employeeID, s.ID))
	close(gate)

	err := <-done
	assert.ErrorIs(t, err, verification.ErrSessionNotFound)

	_, err = o.Get(employeeID, s.ID)
	assert.ErrorIs(t, err, verification.ErrSessionNotFound)
}

func TestAdvanceResetsTransientState(t *testing.T) {
	o := newTestOrchestrator(&fakeMatcher{result: facematch.Result{Verified: false}}, &fakeLedger{})

	s := advanceToFace(t, o, verification.FlowCheckIn)
	s, _ = o.SubmitFace(context.Background(), employeeID, s.ID, faceShot())
	require.Equal(t, 1, s.Face.Attempts)

	// Advance is only valid from the disclaimer step.
	_, err := o.Advance(employeeID, s.ID)
	assert.ErrorIs(t, err, verification.ErrWrongStep)

	// A fresh flow after cancel starts from zero.
	require.NoError(t, o.Cancel(employeeID, s.ID))
	s2 := advanceToFace(t, o, verification.FlowCheckIn)
	assert.NotEqual(t, s.ID, s2.ID)
	assert.Equal(t, 0, s2.Face.Attempts)
	assert.False(t, s2.Face.Escalated)
}

func TestSweepRemovesIdleSessions(t *testing.T) {
	o := newTestOrchestrator(&fakeMatcher{}, &fakeLedger{})

	s, err := o.Start(context.Background(), employeeID, verification.FlowCheckIn)
	require.NoError(t, err)

	assert.Equal(t, 0, o.Sweep(time.Hour))

	o.mu.Lock()
	o.sessions[s.ID].UpdatedAt = time.Now().Add(-2 * time.Hour)
	o.mu.Unlock()

	assert.Equal(t, 1, o.Sweep(time.Hour))
	_, err = o.Get(employeeID, s.ID)
	assert.ErrorIs(t, err, verification.ErrSessionNotFound)
}
