package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/presensia/attendance-backend-go/internal/domain/attendance"
	"github.com/presensia/attendance-backend-go/internal/pkg/duration"
	"github.com/presensia/attendance-backend-go/internal/pkg/jwt"
	"github.com/presensia/attendance-backend-go/internal/pkg/metrics"
	"github.com/presensia/attendance-backend-go/internal/pkg/sse"
)

type LiveHandler interface {
	Stream(w http.ResponseWriter, r *http.Request)
}

type liveHandlerImpl struct {
	jwtService        jwt.Service
	hub               *sse.Hub
	attendanceService attendance.AttendanceService
}

func NewLiveHandler(jwtService jwt.Service, hub *sse.Hub, attendanceService attendance.AttendanceService) LiveHandler {
	return &liveHandlerImpl{
		jwtService:        jwtService,
		hub:               hub,
		attendanceService: attendanceService,
	}
}

type elapsedPayload struct {
	duration.Breakdown
	Clock string `json:"clock"`
}

// Stream handles the SSE connection for the live attendance session. While a
// check-in is open it emits an elapsed event every second; check-in and
// check-out events from other requests are forwarded as they happen.
func (h *liveHandlerImpl) Stream(w http.ResponseWriter, r *http.Request) {
	// Get token from query parameter (SSE doesn't support custom headers)
	tokenStr := r.URL.Query().Get("token")
	if tokenStr == "" {
		http.Error(w, "Missing token", http.StatusUnauthorized)
		return
	}

	employeeID, err := h.jwtService.ValidateSSEToken(tokenStr)
	if err != nil {
		http.Error(w, "Invalid token", http.StatusUnauthorized)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	// Set SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	events, cleanup := h.hub.Subscribe(employeeID)
	defer cleanup()

	metrics.LiveStreamOpened()
	defer metrics.LiveStreamClosed()

	// Seed the live state from the ledger so a reconnect resumes the running
	// counter instead of starting blind.
	var checkInAt *time.Time
	if record, err := h.attendanceService.TodayFor(r.Context(), employeeID); err == nil && record != nil && record.Open() {
		checkInAt = record.CheckInAt
	}

	fmt.Fprintf(w, "event: connected\ndata: {\"status\":\"connected\",\"employee_id\":\"%s\"}\n\n", employeeID)
	flusher.Flush()

	// One shared ticker drives the per-second elapsed counter. The deferred
	// Stop covers every exit path: client disconnect, hub close, or return.
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			switch event.Event {
			case sse.EventCheckedIn:
				if resp, ok := event.Data.(attendance.AttendanceResponse); ok && resp.CheckInAt != nil {
					if at, err := time.Parse(time.RFC3339, *resp.CheckInAt); err == nil {
						checkInAt = &at
					}
				}
			case sse.EventCheckedOut:
				// The session is over; the counter must stop immediately.
				checkInAt = nil
			}

			data, err := json.Marshal(event.Data)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Event, data)
			flusher.Flush()

		case <-ticker.C:
			if checkInAt == nil {
				continue
			}
			breakdown := duration.Since(*checkInAt)
			payload := elapsedPayload{Breakdown: breakdown, Clock: breakdown.Clock()}
			data, err := json.Marshal(payload)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", sse.EventElapsed, data)
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}
