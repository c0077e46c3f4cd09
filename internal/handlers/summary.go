package handlers

import (
	"net/http"

	"healthyaar-backend/internal/middleware"
	"healthyaar-backend/internal/models"
	"healthyaar-backend/internal/services"
)

type SummaryHandler struct {
	summaries *services.SummaryService
	notes     *services.Notifier
}

func NewSummaryHandler(summaries *services.SummaryService, notes *services.Notifier) *SummaryHandler {
	return &SummaryHandler{summaries: summaries, notes: notes}
}

// Generate summarizes body.formData when present, otherwise the stored
// profile.
func (h *SummaryHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req models.SummaryRequest
	if err := decodeJSON(r, &req, false); err != nil {
		badBody(w, r)
		return
	}

	resp, err := h.summaries.Generate(r.Context(), middleware.GetUserID(r.Context()), req.FormData)
	if err != nil {
		handleServiceError(w, r, h.notes, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
