package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"quiz-runner/internal/app"
	"quiz-runner/internal/domain"
)

// HistoryHandler serves a player's finished attempts and aggregate stats.
type HistoryHandler struct {
	service *app.AttemptService
}

func NewHistoryHandler(service *app.AttemptService) *HistoryHandler {
	return &HistoryHandler{service: service}
}

// List handles GET /history?userId=..&limit=..
func (h *HistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		http.Error(w, "missing userId", http.StatusBadRequest)
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	entries, err := h.service.History(r.Context(), userID, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, entries)
}

// Stats handles GET /history/stats?userId=..
func (h *HistoryHandler) Stats(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		http.Error(w, "missing userId", http.StatusBadRequest)
		return
	}
	stats, err := h.service.Stats(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, stats)
}

// Routes mounts the websocket, attempt, history and health endpoints.
func Routes(service *app.AttemptService) *http.ServeMux {
	ws := NewWSHandler(service)
	attempts := NewAttemptHandler(service)
	history := NewHistoryHandler(service)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", ws.ServeWS)
	mux.HandleFunc("/attempt", attempts.Get)
	mux.HandleFunc("/history", history.List)
	mux.HandleFunc("/history/stats", history.Stats)
	return mux
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response: %v", err)
	}
}

func writeServiceError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrSessionExpired):
		status = http.StatusUnauthorized
	case errors.Is(err, domain.ErrAttemptNotFound), errors.Is(err, domain.ErrQuizNotFound):
		status = http.StatusNotFound
	}
	http.Error(w, err.Error(), status)
}
