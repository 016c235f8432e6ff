package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/akinalp/emocircle/models"
	"github.com/akinalp/emocircle/pkg"
	"github.com/akinalp/emocircle/services"
)

// EmotionHandler serves emotion reports and summaries.
type EmotionHandler struct {
	emotions services.EmotionService
}

// NewEmotionHandler builds the handler.
func NewEmotionHandler(emotions services.EmotionService) *EmotionHandler {
	return &EmotionHandler{emotions: emotions}
}

// Report handles PUT /api/sessions/{id}/participants/{pid}/emotion.
func (h *EmotionHandler) Report(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	participantID, ok := pathID(w, r, "pid")
	if !ok {
		return
	}

	var req models.ReportEmotionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	participant, err := h.emotions.Report(r.Context(), sessionID, participantID, &req)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, participant)
}

// Summary handles GET /api/sessions/{id}/emotions.
func (h *EmotionHandler) Summary(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	summary, err := h.emotions.Summarize(r.Context(), sessionID)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, summary)
}

// Categories handles GET /api/emotions/categories.
func (h *EmotionHandler) Categories(w http.ResponseWriter, r *http.Request) {
	pkg.JSON(w, http.StatusOK, h.emotions.Categories())
}
