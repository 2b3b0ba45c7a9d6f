package verification

import (
	"time"
)

// Flow distinguishes the two instances of the verification state machine.
// They share a shape but never share state: a check-out flow cannot begin
// unless the ledger shows an open check-in, and a check-in flow cannot begin
// once today's record exists.
type Flow string

const (
	FlowCheckIn  Flow = "check_in"
	FlowCheckOut Flow = "check_out"
)

// Step is the current position in the Disclaimer → Face → Location →
// Confirmation sequence. Transitions are one-directional except for explicit
// retry self-loops on Face and Location; the only path out of Confirmation
// besides persisting is a full reset.
type Step string

const (
	StepDisclaimer   Step = "disclaimer"
	StepFace         Step = "face"
	StepLocation     Step = "location"
	StepConfirmation Step = "confirmation"
)

// Factor identifies one of the two independent verification factors.
type Factor string

const (
	FactorFace     Factor = "face"
	FactorLocation Factor = "location"
)

// FactorStatus is the transient progress of one factor within one flow.
type FactorStatus string

const (
	StatusPending   FactorStatus = "pending"
	StatusVerifying FactorStatus = "verifying"
	StatusSuccess   FactorStatus = "success"
	StatusFailed    FactorStatus = "failed"
)

// Attempt is the transient verification state for one factor. It lives
// inside the session so that resetting the flow can never leave a stale
// counter behind.
type Attempt struct {
	Factor        Factor       `json:"factor"`
	Status        FactorStatus `json:"status"`
	Attempts      int          `json:"attempts,omitempty"`
	FailureReason string       `json:"failure_reason,omitempty"`
	// Escalated marks the terminal sub-state after the face retry budget is
	// exhausted: no further automatic transitions, contact an administrator.
	Escalated bool `json:"escalated,omitempty"`
}

// LocationSample is a validated device position with its geofence verdict.
type LocationSample struct {
	Latitude                 float64 `json:"latitude"`
	Longitude                float64 `json:"longitude"`
	AccuracyMeters           float64 `json:"accuracy_meters"`
	DistanceFromOfficeMeters float64 `json:"distance_from_office_meters"`
	WithinRadius             bool    `json:"within_radius"`
}

// Session is one in-flight verification flow for one employee. All of its
// state is transient: it is discarded on completion, cancellation, or expiry,
// and nothing in it is ever persisted.
type Session struct {
	ID         string    `json:"id"`
	EmployeeID string    `json:"employee_id"`
	Flow       Flow      `json:"flow"`
	Step       Step      `json:"step"`
	Face       Attempt   `json:"face"`
	Location   Attempt   `json:"location"`
	// Sample is the location reading that passed the geofence, carried to
	// Confirmation so the persisted record gets the verified coordinates.
	Sample    *LocationSample `json:"sample,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// NewAttempts returns the zeroed transient state both factors start from.
func NewAttempts() (face Attempt, location Attempt) {
	face = Attempt{Factor: FactorFace, Status: StatusPending}
	location = Attempt{Factor: FactorLocation, Status: StatusPending}
	return face, location
}
