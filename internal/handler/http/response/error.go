package response

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/presensia/attendance-backend-go/internal/domain/attendance"
	"github.com/presensia/attendance-backend-go/internal/domain/auth"
	"github.com/presensia/attendance-backend-go/internal/domain/employee"
	"github.com/presensia/attendance-backend-go/internal/domain/verification"
	"github.com/presensia/attendance-backend-go/internal/pkg/facematch"
	"github.com/presensia/attendance-backend-go/internal/pkg/validator"
)

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	// Check if it's a validation error
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	// The location factor carries structured detail: a typed probe failure
	// with remediation guidance, or a distance verdict the UI renders.
	var devErr *verification.DeviceError
	if errors.As(err, &devErr) {
		UnprocessableEntity(w, "LOCATION_UNAVAILABLE", devErr.Guidance(), map[string]string{
			"failure_code": string(devErr.Code),
		})
		return
	}

	var oorErr *verification.OutOfRadiusError
	if errors.As(err, &oorErr) {
		UnprocessableEntity(w, "OUT_OF_RADIUS", oorErr.Error(), map[string]string{
			"distance_meters":        fmt.Sprintf("%.0f", oorErr.DistanceMeters),
			"required_radius_meters": fmt.Sprintf("%.0f", oorErr.RequiredMeters),
		})
		return
	}

	switch {
	// Auth domain errors
	case errors.Is(err, auth.ErrInvalidCredentials):
		Unauthorized(w, "Invalid employee code or password")
	case errors.Is(err, auth.ErrTokenExpired):
		Unauthorized(w, "Token expired")
	case errors.Is(err, auth.ErrInvalidToken):
		Unauthorized(w, "Invalid token")

	// Employee domain errors
	case errors.Is(err, employee.ErrEmployeeNotFound):
		NotFound(w, "Employee not found")

	// Attendance ledger errors
	case errors.Is(err, attendance.ErrDuplicateCheckIn):
		Conflict(w, "Already checked in today")
	case errors.Is(err, attendance.ErrNoOpenCheckIn):
		Conflict(w, "No open check-in to close")
	case errors.Is(err, attendance.ErrAttendanceNotFound):
		NotFound(w, "Attendance record not found")
	case errors.Is(err, attendance.ErrUnauthorized):
		Forbidden(w, "Not allowed for this record")

	// Verification flow errors
	case errors.Is(err, verification.ErrSessionNotFound):
		NotFound(w, "Verification session not found")
	case errors.Is(err, verification.ErrWrongStep):
		Conflict(w, "Action is not valid for the current step")
	case errors.Is(err, verification.ErrMaxRetriesExceeded):
		Conflict(w, "Face verification retry budget exhausted, contact an administrator")
	case errors.Is(err, verification.ErrCheckInNotAllowed):
		Conflict(w, "Already checked in today")
	case errors.Is(err, verification.ErrCheckOutNotAllowed):
		Conflict(w, "No open check-in for today")

	// Face service errors
	case errors.Is(err, facematch.ErrReauthenticate):
		ServiceUnavailable(w, "Face verification session expired, sign in again")
	case errors.Is(err, facematch.ErrServiceUnavailable):
		ServiceUnavailable(w, "Face verification service is unavailable, try again")

	// Default
	default:
		InternalServerError(w, "An unexpected error occurred")
	}
}
