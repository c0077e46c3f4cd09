package handlers

import (
	"net/http"

	"healthyaar-backend/internal/middleware"
	"healthyaar-backend/internal/models"
	"healthyaar-backend/internal/services"
)

type ProfileHandler struct {
	profiles *services.ProfileService
	gate     *services.FeatureGate
	notes    *services.Notifier
}

func NewProfileHandler(profiles *services.ProfileService, gate *services.FeatureGate, notes *services.Notifier) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, gate: gate, notes: notes}
}

// Get returns the stored profile with defaults filled in. A missing
// document is reported as found=false, not as an error.
func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	profile, found, err := h.profiles.LoadOrDefault(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		handleServiceError(w, r, h.notes, err)
		return
	}

	writeJSON(w, http.StatusOK, models.ProfileResponse{Found: found, Profile: profile})
}

// Save merges the submitted fields into the stored document. Fields the
// body does not carry keep their stored values.
func (h *ProfileHandler) Save(w http.ResponseWriter, r *http.Request) {
	var patch models.Profile
	if err := decodeJSON(r, &patch, true); err != nil {
		badBody(w, r)
		return
	}
	if err := services.ValidateStruct(patch); err != nil {
		handleServiceError(w, r, h.notes, err)
		return
	}

	userID := middleware.GetUserID(r.Context())
	release, err := h.gate.Acquire(r.Context(), userID, models.FeatureProfile)
	if err != nil {
		handleServiceError(w, r, h.notes, err)
		return
	}
	defer release()

	saved, err := h.profiles.Save(r.Context(), userID, patch)
	if err != nil {
		handleServiceError(w, r, h.notes, err)
		return
	}

	writeJSON(w, http.StatusOK, models.ProfileResponse{
		Found:        true,
		Profile:      saved.WithDefaults(),
		Notification: h.notes.Notify(r.Context(), userID, models.SeveritySuccess, models.MsgProfileSaved),
	})
}
