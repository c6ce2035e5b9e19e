package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/checkin-api/internal/application/checkin"
	"github.com/go-chi/chi/v5"
)

// maxPhotoUpload caps the multipart memory; the matcher enforces its own
// provider limit on the image itself.
const maxPhotoUpload = 8 << 20

// CheckinHandler handles the two check-in channels of an event.
type CheckinHandler struct {
	svc checkin.Service
}

func NewCheckinHandler(svc checkin.Service) *CheckinHandler { return &CheckinHandler{svc: svc} }

// ByFace expects a multipart form with a "photo" file field. Both validated
// and rejected outcomes are 200s; the station reads the result body.
func (h *CheckinHandler) ByFace(w http.ResponseWriter, r *http.Request) {
	photo, _, err := readPhoto(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := h.svc.CheckInByFace(r.Context(), chi.URLParam(r, "id"), photo)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *CheckinHandler) ByCode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	res, err := h.svc.CheckInByCode(r.Context(), chi.URLParam(r, "id"), req.Code)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// readPhoto pulls the "photo" file out of a multipart form.
func readPhoto(r *http.Request) (data []byte, contentType string, err error) {
	if err := r.ParseMultipartForm(maxPhotoUpload); err != nil {
		return nil, "", err
	}
	file, header, err := r.FormFile("photo")
	if err != nil {
		return nil, "", err
	}
	defer file.Close()
	data, err = io.ReadAll(file)
	if err != nil {
		return nil, "", err
	}
	contentType = header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/jpeg"
	}
	return data, contentType, nil
}
