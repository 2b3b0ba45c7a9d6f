package verification

import (
	"time"

	"github.com/presensia/attendance-backend-go/internal/pkg/validator"
)

type StartRequest struct {
	Flow Flow `json:"flow"`
}

func (r *StartRequest) Validate() error {
	var errs validator.ValidationErrors

	if r.Flow != FlowCheckIn && r.Flow != FlowCheckOut {
		errs = append(errs, validator.ValidationError{
			Field:   "flow",
			Message: "flow must be check_in or check_out",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

// FaceSubmission carries one camera capture for the face factor.
type FaceSubmission struct {
	CapturedImage string    `json:"captured_image"`
	CapturedAt    time.Time `json:"captured_at"`
}

func (r *FaceSubmission) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.CapturedImage) {
		errs = append(errs, validator.ValidationError{
			Field:   "captured_image",
			Message: "captured_image is required",
		})
	} else if !validator.IsBase64(r.CapturedImage) {
		errs = append(errs, validator.ValidationError{
			Field:   "captured_image",
			Message: "captured_image must be base64 encoded",
		})
	}

	if r.CapturedAt.IsZero() {
		errs = append(errs, validator.ValidationError{
			Field:   "captured_at",
			Message: "captured_at is required",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

// PositionReport is one device position reading, or the typed failure the
// device reported instead. Each submission is a fresh probe; cached fixes are
// rejected by the freshness window.
type PositionReport struct {
	Latitude       float64   `json:"latitude"`
	Longitude      float64   `json:"longitude"`
	AccuracyMeters float64   `json:"accuracy_meters"`
	CapturedAt     time.Time `json:"captured_at"`
	// FailureCode is set instead of coordinates when the device could not
	// produce a fix.
	FailureCode DeviceErrorCode `json:"failure_code,omitempty"`
}

func (r *PositionReport) Validate() error {
	var errs validator.ValidationErrors

	if r.FailureCode != "" {
		switch r.FailureCode {
		case DevicePermissionDenied, DevicePositionUnavailable, DeviceTimeout, DeviceUnsupported:
		default:
			errs = append(errs, validator.ValidationError{
				Field:   "failure_code",
				Message: "unknown failure_code",
			})
		}
		if len(errs) > 0 {
			return errs
		}
		return nil
	}

	if r.Latitude < -90 || r.Latitude > 90 {
		errs = append(errs, validator.ValidationError{
			Field:   "latitude",
			Message: "latitude must be between -90 and 90",
		})
	}

	if r.Longitude < -180 || r.Longitude > 180 {
		errs = append(errs, validator.ValidationError{
			Field:   "longitude",
			Message: "longitude must be between -180 and 180",
		})
	}

	if r.CapturedAt.IsZero() {
		errs = append(errs, validator.ValidationError{
			Field:   "captured_at",
			Message: "captured_at is required",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}
