package attendance

import (
	"context"
	"fmt"
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/presensia/attendance-backend-go/internal/domain/attendance"
	"github.com/presensia/attendance-backend-go/internal/pkg/geo"
	"github.com/presensia/attendance-backend-go/internal/pkg/metrics"
	"github.com/presensia/attendance-backend-go/internal/pkg/sse"
)

type AttendanceServiceImpl struct {
	attendance.AttendanceRepository
	hub *sse.Hub
	// loc is the deployment's reference timezone: it decides which calendar
	// day a record belongs to and how the late cutoff is read.
	loc            *time.Location
	lateCutoffHour int
}

func employeeIDFromContext(ctx context.Context) (string, error) {
	_, claims, err := jwtauth.FromContext(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to extract claims from context: %w", err)
	}

	employeeID, ok := claims["employee_id"].(string)
	if !ok || employeeID == "" {
		return "", fmt.Errorf("employee_id claim is missing or invalid")
	}

	return employeeID, nil
}

// Today implements attendance.AttendanceService.
func (a *AttendanceServiceImpl) Today(ctx context.Context) (attendance.TodayResponse, error) {
	employeeID, err := employeeIDFromContext(ctx)
	if err != nil {
		return attendance.TodayResponse{}, err
	}

	dateLocal := time.Now().In(a.loc).Format("2006-01-02")

	rec, err := a.AttendanceRepository.GetByEmployeeAndDate(ctx, employeeID, dateLocal)
	if err != nil {
		return attendance.TodayResponse{}, fmt.Errorf("failed to get today's attendance: %w", err)
	}

	resp := attendance.TodayResponse{Date: dateLocal}
	if rec != nil {
		r := attendance.ToResponse(*rec)
		resp.Record = &r
	}

	return resp, nil
}

// History implements attendance.AttendanceService.
func (a *AttendanceServiceImpl) History(ctx context.Context, limit int) (attendance.HistoryResponse, error) {
	employeeID, err := employeeIDFromContext(ctx)
	if err != nil {
		return attendance.HistoryResponse{}, err
	}

	if limit <= 0 {
		limit = 30
	}
	if limit > 100 {
		limit = 100
	}

	records, err := a.AttendanceRepository.GetHistory(ctx, employeeID, limit)
	if err != nil {
		return attendance.HistoryResponse{}, fmt.Errorf("failed to get attendance history: %w", err)
	}

	responses := make([]attendance.AttendanceResponse, 0, len(records))
	for _, rec := range records {
		responses = append(responses, attendance.ToResponse(rec))
	}

	return attendance.HistoryResponse{Limit: limit, Records: responses}, nil
}

// TodayFor implements attendance.AttendanceService.
func (a *AttendanceServiceImpl) TodayFor(ctx context.Context, employeeID string) (*attendance.Attendance, error) {
	dateLocal := time.Now().In(a.loc).Format("2006-01-02")
	return a.AttendanceRepository.GetByEmployeeAndDate(ctx, employeeID, dateLocal)
}

// RecordCheckIn implements attendance.AttendanceService. Status is derived
// from the local time of day: at or past the cutoff hour means late. The
// repository's uniqueness constraint decides races, not this check.
func (a *AttendanceServiceImpl) RecordCheckIn(ctx context.Context, employeeID string, at time.Time, location geo.Point) (attendance.Attendance, error) {
	atLocal := at.In(a.loc)

	status := attendance.StatusPresent
	if atLocal.Hour() >= a.lateCutoffHour {
		status = attendance.StatusLate
	}

	atUTC := at.UTC()
	rec := attendance.Attendance{
		EmployeeID:       employeeID,
		Date:             time.Date(atLocal.Year(), atLocal.Month(), atLocal.Day(), 0, 0, 0, 0, time.UTC),
		CheckInAt:        &atUTC,
		CheckInLatitude:  &location.Latitude,
		CheckInLongitude: &location.Longitude,
		Status:           status,
	}

	created, err := a.AttendanceRepository.RecordCheckIn(ctx, rec)
	if err != nil {
		return attendance.Attendance{}, err
	}

	metrics.ObserveCheckIn(string(created.Status))
	a.hub.Publish(employeeID, sse.Event{Event: sse.EventCheckedIn, Data: attendance.ToResponse(created)})

	return created, nil
}

// RecordCheckOut implements attendance.AttendanceService.
func (a *AttendanceServiceImpl) RecordCheckOut(ctx context.Context, employeeID string, at time.Time) (attendance.Attendance, error) {
	atLocal := at.In(a.loc)
	dateLocal := atLocal.Format("2006-01-02")

	updated, err := a.AttendanceRepository.RecordCheckOut(ctx, employeeID, dateLocal, at.UTC())
	if err != nil {
		return attendance.Attendance{}, err
	}

	metrics.ObserveCheckOut()
	a.hub.Publish(employeeID, sse.Event{Event: sse.EventCheckedOut, Data: attendance.ToResponse(updated)})

	return updated, nil
}

// Correct implements attendance.AttendanceService. Admin-only status
// override; this is the only path by which half_day is ever set.
func (a *AttendanceServiceImpl) Correct(ctx context.Context, req attendance.CorrectionRequest) (attendance.AttendanceResponse, error) {
	if err := req.Validate(); err != nil {
		return attendance.AttendanceResponse{}, err
	}

	if err := a.AttendanceRepository.UpdateStatus(ctx, req.ID, req.Status); err != nil {
		return attendance.AttendanceResponse{}, err
	}

	updated, err := a.AttendanceRepository.GetByID(ctx, req.ID)
	if err != nil {
		return attendance.AttendanceResponse{}, fmt.Errorf("failed to get updated attendance: %w", err)
	}

	return attendance.ToResponse(updated), nil
}

func NewAttendanceService(
	attendanceRepo attendance.AttendanceRepository,
	hub *sse.Hub,
	loc *time.Location,
	lateCutoffHour int,
) attendance.AttendanceService {
	return &AttendanceServiceImpl{
		AttendanceRepository: attendanceRepo,
		hub:                  hub,
		loc:                  loc,
		lateCutoffHour:       lateCutoffHour,
	}
}
