package handlers

import (
	"net/http"

	"github.com/google/uuid"

	"healthyaar-backend/internal/middleware"
	"healthyaar-backend/internal/models"
	"healthyaar-backend/internal/services"
)

type SessionHandler struct {
	sessions *services.SessionService
	notes    *services.Notifier
}

func NewSessionHandler(sessions *services.SessionService, notes *services.Notifier) *SessionHandler {
	return &SessionHandler{sessions: sessions, notes: notes}
}

// Establish resolves the caller's identity. A valid bearer token keeps the
// current identity and gets a fresh token pair; otherwise a refresh token, a custom token or a new
// anonymous identity is used, in that order.
func (h *SessionHandler) Establish(w http.ResponseWriter, r *http.Request) {
	var req models.SessionRequest
	if err := decodeJSON(r, &req, false); err != nil {
		badBody(w, r)
		return
	}

	sess, err := h.sessions.Establish(r.Context(), middleware.BearerToken(r), req)
	if err != nil {
		handleServiceError(w, r, h.notes, err)
		return
	}

	writeJSON(w, http.StatusOK, models.SessionResponse{
		Ready:      true,
		Identity:   sess.Identity.ID.String(),
		Provider:   sess.Identity.Provider,
		AuthTokens: sess.Tokens,
	})
}

func (h *SessionHandler) Current(w http.ResponseWriter, r *http.Request) {
	identity, err := h.sessions.Current(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		handleServiceError(w, r, h.notes, err)
		return
	}

	writeJSON(w, http.StatusOK, models.SessionResponse{
		Ready:    true,
		Identity: identity.ID.String(),
		Provider: identity.Provider,
	})
}

func (h *SessionHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req models.RefreshRequest
	if err := decodeJSON(r, &req, false); err != nil {
		badBody(w, r)
		return
	}
	if err := services.ValidateStruct(req); err != nil {
		handleServiceError(w, r, nil, err)
		return
	}

	tokens, err := h.sessions.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		handleServiceError(w, r, nil, err)
		return
	}

	writeJSON(w, http.StatusOK, tokens)
}

// Logout ends the session and returns the workspace as it looks signed
// out: no identity and a default profile form.
func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var req models.LogoutRequest
	if err := decodeJSON(r, &req, false); err != nil {
		badBody(w, r)
		return
	}

	if err := h.sessions.Logout(r.Context(), middleware.GetClaims(r.Context()), req.RefreshToken); err != nil {
		handleServiceError(w, r, h.notes, err)
		return
	}

	writeJSON(w, http.StatusOK, models.LogoutResponse{
		Ready:   false,
		Profile: models.DefaultProfile(),
		// The identity's own notification state was just cleared.
		Notification: h.notes.Notify(r.Context(), uuid.Nil, models.SeverityInfo, models.MsgLoggedOut),
	})
}
