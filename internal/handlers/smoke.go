package handlers

import (
	"encoding/json"
	"net/http"

	"coach-backend/internal/models"
)

// SmokeHandler backs /api/test, used to check a deployment routes requests
// to this server at all.
type SmokeHandler struct{}

func NewSmokeHandler() *SmokeHandler {
	return &SmokeHandler{}
}

func (h *SmokeHandler) Get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, models.StatusResponse{Status: "ok", Message: "Test route works!"})
}

func (h *SmokeHandler) Echo(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxChatBodyBytes)

	var body interface{}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	writeJSON(w, http.StatusOK, models.EchoResponse{
		Status:   "ok",
		Message:  "Test POST route works!",
		Received: body,
	})
}
