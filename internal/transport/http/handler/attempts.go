package handler

import (
	"net/http"
	"time"

	"github.com/checkin-api/internal/application/attempt"
	"github.com/go-chi/chi/v5"
)

// AttemptHandler serves the validation attempt audit trail of an event.
type AttemptHandler struct {
	svc attempt.Service
}

func NewAttemptHandler(svc attempt.Service) *AttemptHandler { return &AttemptHandler{svc: svc} }

// List returns the attempts of an event in a time range. "from" and "to" are
// optional RFC 3339 query params; the default window is the last 24 hours.
func (h *AttemptHandler) List(w http.ResponseWriter, r *http.Request) {
	to := time.Now().UTC()
	from := to.Add(-24 * time.Hour)
	if v := r.URL.Query().Get("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid from timestamp")
			return
		}
		from = t
	}
	if v := r.URL.Query().Get("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid to timestamp")
			return
		}
		to = t
	}

	attempts, err := h.svc.ListByEvent(r.Context(), chi.URLParam(r, "id"), from, to)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, attempts)
}
