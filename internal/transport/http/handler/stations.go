package handler

import (
	"encoding/json"
	"net/http"

	"github.com/checkin-api/internal/application/station"
	"github.com/checkin-api/internal/domain"
	"github.com/go-chi/chi/v5"
)

// StationHandler handles station provisioning and login.
type StationHandler struct {
	svc station.Service
}

func NewStationHandler(svc station.Service) *StationHandler { return &StationHandler{svc: svc} }

func (h *StationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateStationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	st, err := h.svc.Create(r.Context(), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, st)
}

func (h *StationHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.StationLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	bearer, st, err := h.svc.Login(r.Context(), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AuthEnvelope{Bearer: bearer, Station: st})
}

func (h *StationHandler) Disable(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Disable(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "station disabled"})
}
