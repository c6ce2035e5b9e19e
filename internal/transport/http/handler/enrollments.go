package handler

import (
	"net/http"

	"github.com/checkin-api/internal/application/enrollment"
	"github.com/go-chi/chi/v5"
)

// EnrollmentHandler links and unlinks a registration's face enrollment.
type EnrollmentHandler struct {
	svc enrollment.Service
}

func NewEnrollmentHandler(svc enrollment.Service) *EnrollmentHandler {
	return &EnrollmentHandler{svc: svc}
}

func (h *EnrollmentHandler) Enroll(w http.ResponseWriter, r *http.Request) {
	photo, contentType, err := readPhoto(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	reg, err := h.svc.Enroll(r.Context(), chi.URLParam(r, "id"), photo, contentType)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reg)
}

func (h *EnrollmentHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Revoke(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "enrollment revoked"})
}
