package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth/v5"

	"github.com/presensia/attendance-backend-go/internal/domain/attendance"
	"github.com/presensia/attendance-backend-go/internal/domain/verification"
	"github.com/presensia/attendance-backend-go/internal/handler/http/response"
)

type VerificationHandler interface {
	Start(w http.ResponseWriter, r *http.Request)
	Get(w http.ResponseWriter, r *http.Request)
	Advance(w http.ResponseWriter, r *http.Request)
	SubmitFace(w http.ResponseWriter, r *http.Request)
	SubmitLocation(w http.ResponseWriter, r *http.Request)
	Confirm(w http.ResponseWriter, r *http.Request)
	Cancel(w http.ResponseWriter, r *http.Request)
}

type verificationHandlerImpl struct {
	orchestrator verification.Orchestrator
}

func NewVerificationHandler(orchestrator verification.Orchestrator) VerificationHandler {
	return &verificationHandlerImpl{orchestrator: orchestrator}
}

func employeeIDFromRequest(r *http.Request) (string, bool) {
	_, claims, err := jwtauth.FromContext(r.Context())
	if err != nil {
		return "", false
	}
	employeeID, ok := claims["employee_id"].(string)
	return employeeID, ok && employeeID != ""
}

// Start implements VerificationHandler.
func (h *verificationHandlerImpl) Start(w http.ResponseWriter, r *http.Request) {
	employeeID, ok := employeeIDFromRequest(r)
	if !ok {
		response.Unauthorized(w, "Invalid token")
		return
	}

	var req verification.StartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("Start decode error", "error", err)
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	session, err := h.orchestrator.Start(r.Context(), employeeID, req.Flow)
	if err != nil {
		slog.Error("Start service error", "error", err)
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Verification flow started", session)
}

// Get implements VerificationHandler.
func (h *verificationHandlerImpl) Get(w http.ResponseWriter, r *http.Request) {
	employeeID, ok := employeeIDFromRequest(r)
	if !ok {
		response.Unauthorized(w, "Invalid token")
		return
	}

	session, err := h.orchestrator.Get(employeeID, chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, session)
}

// Advance implements VerificationHandler.
func (h *verificationHandlerImpl) Advance(w http.ResponseWriter, r *http.Request) {
	employeeID, ok := employeeIDFromRequest(r)
	if !ok {
		response.Unauthorized(w, "Invalid token")
		return
	}

	session, err := h.orchestrator.Advance(employeeID, chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, session)
}

// SubmitFace implements VerificationHandler. The session state is returned
// alongside factor failures so the client always renders from server truth.
func (h *verificationHandlerImpl) SubmitFace(w http.ResponseWriter, r *http.Request) {
	employeeID, ok := employeeIDFromRequest(r)
	if !ok {
		response.Unauthorized(w, "Invalid token")
		return
	}

	var sub verification.FaceSubmission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		slog.Error("SubmitFace decode error", "error", err)
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	if err := sub.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	session, err := h.orchestrator.SubmitFace(r.Context(), employeeID, chi.URLParam(r, "id"), sub)
	if err != nil {
		slog.Warn("face verification attempt failed", "error", err, "session_id", chi.URLParam(r, "id"))
		response.HandleError(w, err)
		return
	}

	response.Success(w, session)
}

// SubmitLocation implements VerificationHandler.
func (h *verificationHandlerImpl) SubmitLocation(w http.ResponseWriter, r *http.Request) {
	employeeID, ok := employeeIDFromRequest(r)
	if !ok {
		response.Unauthorized(w, "Invalid token")
		return
	}

	var report verification.PositionReport
	if err := json.NewDecoder(r.Body).Decode(&report); err != nil {
		slog.Error("SubmitLocation decode error", "error", err)
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	if err := report.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	session, err := h.orchestrator.SubmitLocation(r.Context(), employeeID, chi.URLParam(r, "id"), report)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, session)
}

// Confirm implements VerificationHandler.
func (h *verificationHandlerImpl) Confirm(w http.ResponseWriter, r *http.Request) {
	employeeID, ok := employeeIDFromRequest(r)
	if !ok {
		response.Unauthorized(w, "Invalid token")
		return
	}

	record, err := h.orchestrator.Confirm(r.Context(), employeeID, chi.URLParam(r, "id"))
	if err != nil {
		slog.Error("Confirm service error", "error", err)
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Attendance recorded", attendance.ToResponse(record))
}

// Cancel implements VerificationHandler.
func (h *verificationHandlerImpl) Cancel(w http.ResponseWriter, r *http.Request) {
	employeeID, ok := employeeIDFromRequest(r)
	if !ok {
		response.Unauthorized(w, "Invalid token")
		return
	}

	if err := h.orchestrator.Cancel(employeeID, chi.URLParam(r, "id")); err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Verification flow cancelled", nil)
}
