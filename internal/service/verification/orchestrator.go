package verification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/presensia/attendance-backend-go/internal/domain/attendance"
	"github.com/presensia/attendance-backend-go/internal/domain/verification"
	"github.com/presensia/attendance-backend-go/internal/pkg/facematch"
	"github.com/presensia/attendance-backend-go/internal/pkg/geo"
	"github.com/presensia/attendance-backend-go/internal/pkg/metrics"
)

// FaceMatcher is the slice of the face service client the orchestrator needs.
type FaceMatcher interface {
	Verify(ctx context.Context, capturedImage string, capturedAt time.Time) (facematch.Result, error)
}

// session wraps the public state with an epoch counter. The epoch is bumped
// on every reset or teardown; a face verification result that comes back
// carrying an older epoch is discarded, so a cancelled or reset flow can never
// be mutated by a response that was still in flight.
type session struct {
	verification.Session
	epoch uint64
}

// OrchestratorImpl holds all in-flight verification sessions in memory.
// Sessions are transient on purpose: a process restart loses them and the
// employee simply starts the flow again, while the ledger stays authoritative.
type OrchestratorImpl struct {
	mu       sync.Mutex
	sessions map[string]*session
	// active indexes the one live session per (employee, flow) so Start is
	// idempotent while a flow is underway.
	active map[string]string

	matcher        FaceMatcher
	attendanceSvc  attendance.AttendanceService
	probe          *LocationProbe
	maxFaceRetries int
}

func NewOrchestrator(matcher FaceMatcher, attendanceSvc attendance.AttendanceService, probe *LocationProbe, maxFaceRetries int) *OrchestratorImpl {
	return &OrchestratorImpl{
		sessions:       make(map[string]*session),
		active:         make(map[string]string),
		matcher:        matcher,
		attendanceSvc:  attendanceSvc,
		probe:          probe,
		maxFaceRetries: maxFaceRetries,
	}
}

func activeKey(employeeID string, flow verification.Flow) string {
	return employeeID + "/" + string(flow)
}

func (o *OrchestratorImpl) Start(ctx context.Context, employeeID string, flow verification.Flow) (verification.Session, error) {
	o.mu.Lock()
	if id, ok := o.active[activeKey(employeeID, flow)]; ok {
		if s, ok := o.sessions[id]; ok {
			snap := s.Session
			o.mu.Unlock()
			return snap, nil
		}
	}
	o.mu.Unlock()

	// The ledger precondition is checked outside the lock. It is re-enforced
	// by the database constraint at Confirm, so a race here cannot produce a
	// bad record, only a flow that fails at the end.
	record, err := o.attendanceSvc.TodayFor(ctx, employeeID)
	if err != nil {
		return verification.Session{}, err
	}

	switch flow {
	case verification.FlowCheckIn:
		if record != nil {
			return verification.Session{}, verification.ErrCheckInNotAllowed
		}
	case verification.FlowCheckOut:
		if record == nil || !record.Open() {
			return verification.Session{}, verification.ErrCheckOutNotAllowed
		}
	}

	face, location := verification.NewAttempts()
	now := time.Now()
	s := &session{
		Session: verification.Session{
			ID:         uuid.NewString(),
			EmployeeID: employeeID,
			Flow:       flow,
			Step:       verification.StepDisclaimer,
			Face:       face,
			Location:   location,
			CreatedAt:  now,
			UpdatedAt:  now,
		},
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	// Another request may have won the race while we were at the database.
	if id, ok := o.active[activeKey(employeeID, flow)]; ok {
		if existing, ok := o.sessions[id]; ok {
			return existing.Session, nil
		}
	}
	o.sessions[s.ID] = s
	o.active[activeKey(employeeID, flow)] = s.ID

	slog.Info("verification flow started",
		slog.String("session_id", s.ID),
		slog.String("employee_id", employeeID),
		slog.String("flow", string(flow)),
	)

	return s.Session, nil
}

func (o *OrchestratorImpl) Get(employeeID, sessionID string) (verification.Session, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	s, err := o.owned(employeeID, sessionID)
	if err != nil {
		return verification.Session{}, err
	}
	return s.Session, nil
}

func (o *OrchestratorImpl) Advance(employeeID, sessionID string) (verification.Session, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	s, err := o.owned(employeeID, sessionID)
	if err != nil {
		return verification.Session{}, err
	}
	if s.Step != verification.StepDisclaimer {
		return verification.Session{}, verification.ErrWrongStep
	}

	// Acknowledging the disclaimer zeroes every transient counter, including
	// the face retry budget. Escalation is an attribute of the attempt state,
	// so the reset clears it with everything else.
	s.Face, s.Location = verification.NewAttempts()
	s.Sample = nil
	s.Step = verification.StepFace
	s.UpdatedAt = time.Now()
	s.epoch++

	return s.Session, nil
}

func (o *OrchestratorImpl) SubmitFace(ctx context.Context, employeeID, sessionID string, sub verification.FaceSubmission) (verification.Session, error) {
	o.mu.Lock()
	s, err := o.owned(employeeID, sessionID)
	if err != nil {
		o.mu.Unlock()
		return verification.Session{}, err
	}
	if s.Step != verification.StepFace {
		snap := s.Session
		o.mu.Unlock()
		return snap, verification.ErrWrongStep
	}
	if s.Face.Escalated || s.Face.Attempts >= o.maxFaceRetries {
		s.Face.Escalated = true
		snap := s.Session
		o.mu.Unlock()
		return snap, verification.ErrMaxRetriesExceeded
	}

	s.Face.Attempts++
	s.Face.Status = verification.StatusVerifying
	s.Face.FailureReason = ""
	s.UpdatedAt = time.Now()
	epoch := s.epoch
	o.mu.Unlock()

	// The external call runs without the lock so one slow verification never
	// blocks other employees' flows.
	result, verifyErr := o.matcher.Verify(ctx, sub.CapturedImage, sub.CapturedAt)

	o.mu.Lock()
	defer o.mu.Unlock()

	s, err = o.owned(employeeID, sessionID)
	if err != nil {
		// Session was cancelled while the call was in flight; the result is
		// discarded.
		return verification.Session{}, err
	}
	if s.epoch != epoch {
		// Reset happened mid-call. The attempt belonged to the abandoned
		// state, so the fresh state is returned untouched.
		return s.Session, nil
	}

	s.UpdatedAt = time.Now()

	switch {
	case errors.Is(verifyErr, facematch.ErrReauthenticate):
		// An expired credential is an operator problem, never the employee's.
		// It does not consume the retry budget.
		s.Face.Attempts--
		s.Face.Status = verification.StatusFailed
		s.Face.FailureReason = "face service session expired, sign in again"
		metrics.ObserveVerification("face", "reauthenticate")
		return s.Session, verifyErr

	case verifyErr != nil:
		s.Face.Status = verification.StatusFailed
		s.Face.FailureReason = "face verification service is unavailable, try again"
		metrics.ObserveVerification("face", "unavailable")
		o.escalateIfSpent(s)
		return s.Session, verifyErr

	case !result.Verified:
		s.Face.Status = verification.StatusFailed
		s.Face.FailureReason = result.Message
		if s.Face.FailureReason == "" {
			s.Face.FailureReason = "face does not match, try again"
		}
		metrics.ObserveVerification("face", "mismatch")
		o.escalateIfSpent(s)
		if s.Face.Escalated {
			return s.Session, verification.ErrMaxRetriesExceeded
		}
		return s.Session, nil
	}

	s.Face.Status = verification.StatusSuccess
	s.Face.FailureReason = ""
	s.Step = verification.StepLocation
	metrics.ObserveVerification("face", "success")

	return s.Session, nil
}

// escalateIfSpent marks the terminal escalation sub-state once the budget is
// exhausted, so the very next submission is rejected without a network call.
func (o *OrchestratorImpl) escalateIfSpent(s *session) {
	if s.Face.Attempts >= o.maxFaceRetries {
		s.Face.Escalated = true
		s.Face.FailureReason = fmt.Sprintf("verification failed %d times, contact an administrator", s.Face.Attempts)
		slog.Warn("face retry budget exhausted",
			slog.String("session_id", s.ID),
			slog.String("employee_id", s.EmployeeID),
			slog.Int("attempts", s.Face.Attempts),
		)
	}
}

func (o *OrchestratorImpl) SubmitLocation(ctx context.Context, employeeID, sessionID string, report verification.PositionReport) (verification.Session, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	s, err := o.owned(employeeID, sessionID)
	if err != nil {
		return verification.Session{}, err
	}
	if s.Step != verification.StepLocation {
		return s.Session, verification.ErrWrongStep
	}

	s.UpdatedAt = time.Now()

	sample, probeErr := o.probe.Probe(report, time.Now())
	if probeErr != nil {
		var devErr *verification.DeviceError
		if errors.As(probeErr, &devErr) {
			s.Location.Status = verification.StatusFailed
			s.Location.FailureReason = devErr.Guidance()
			metrics.ObserveVerification("location", "device_error")
		}
		return s.Session, probeErr
	}

	s.Location.Attempts++
	s.Sample = &sample

	if !sample.WithinRadius {
		err := &verification.OutOfRadiusError{
			DistanceMeters: sample.DistanceFromOfficeMeters,
			RequiredMeters: o.probe.RequiredRadiusMeters(),
		}
		s.Location.Status = verification.StatusFailed
		s.Location.FailureReason = err.Error()
		metrics.ObserveVerification("location", "out_of_radius")
		return s.Session, err
	}

	s.Location.Status = verification.StatusSuccess
	s.Location.FailureReason = ""
	s.Step = verification.StepConfirmation
	metrics.ObserveVerification("location", "success")

	return s.Session, nil
}

func (o *OrchestratorImpl) Confirm(ctx context.Context, employeeID, sessionID string) (attendance.Attendance, error) {
	o.mu.Lock()
	s, err := o.owned(employeeID, sessionID)
	if err != nil {
		o.mu.Unlock()
		return attendance.Attendance{}, err
	}
	if s.Step != verification.StepConfirmation || s.Sample == nil {
		o.mu.Unlock()
		return attendance.Attendance{}, verification.ErrWrongStep
	}
	flow := s.Flow
	point := geo.Point{Latitude: s.Sample.Latitude, Longitude: s.Sample.Longitude}
	o.mu.Unlock()

	var record attendance.Attendance
	switch flow {
	case verification.FlowCheckIn:
		record, err = o.attendanceSvc.RecordCheckIn(ctx, employeeID, time.Now(), point)
	case verification.FlowCheckOut:
		record, err = o.attendanceSvc.RecordCheckOut(ctx, employeeID, time.Now())
	}
	if err != nil {
		// Ledger conflicts and transient failures are surfaced as-is and never
		// retried here. The session stays at Confirmation; on a conflict the
		// client must cancel and re-read the authoritative record.
		return attendance.Attendance{}, err
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	o.remove(sessionID)

	slog.Info("verification flow completed",
		slog.String("session_id", sessionID),
		slog.String("employee_id", employeeID),
		slog.String("flow", string(flow)),
	)

	return record, nil
}

func (o *OrchestratorImpl) Cancel(employeeID, sessionID string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	s, err := o.owned(employeeID, sessionID)
	if err != nil {
		return err
	}
	s.epoch++
	o.remove(sessionID)

	slog.Info("verification flow cancelled",
		slog.String("session_id", sessionID),
		slog.String("employee_id", employeeID),
	)

	return nil
}

// Sweep drops sessions idle longer than ttl. Run periodically by the
// scheduler so abandoned flows do not accumulate.
func (o *OrchestratorImpl) Sweep(ttl time.Duration) int {
	o.mu.Lock()
	defer o.mu.Unlock()

	cutoff := time.Now().Add(-ttl)
	removed := 0
	for id, s := range o.sessions {
		if s.UpdatedAt.Before(cutoff) {
			s.epoch++
			o.remove(id)
			removed++
		}
	}
	if removed > 0 {
		slog.Info("expired verification sessions swept", slog.Int("count", removed))
	}
	return removed
}

// owned returns the session if it exists and belongs to the employee. The
// caller must hold the lock. Ownership mismatch reads the same as not-found so
// session IDs cannot be probed across employees.
func (o *OrchestratorImpl) owned(employeeID, sessionID string) (*session, error) {
	s, ok := o.sessions[sessionID]
	if !ok || s.EmployeeID != employeeID {
		return nil, verification.ErrSessionNotFound
	}
	return s, nil
}

// remove deletes the session and its active-flow index entry. The caller must
// hold the lock.
func (o *OrchestratorImpl) remove(sessionID string) {
	s, ok := o.sessions[sessionID]
	if !ok {
		return
	}
	delete(o.sessions, sessionID)
	key := activeKey(s.EmployeeID, s.Flow)
	if o.active[key] == sessionID {
		delete(o.active, key)
	}
}
