package http

import (
	"net/http"

	"quiz-runner/internal/app"
)

// AttemptHandler lets a client that lost its socket read where an attempt stands.
type AttemptHandler struct {
	service *app.AttemptService
}

func NewAttemptHandler(service *app.AttemptService) *AttemptHandler {
	return &AttemptHandler{service: service}
}

// Get handles GET /attempt?attemptId=..
func (h *AttemptHandler) Get(w http.ResponseWriter, r *http.Request) {
	attemptID := r.URL.Query().Get("attemptId")
	if attemptID == "" {
		http.Error(w, "missing attemptId", http.StatusBadRequest)
		return
	}
	snap, err := h.service.Snapshot(r.Context(), attemptID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, snap)
}
