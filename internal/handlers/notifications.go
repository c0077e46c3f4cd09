package handlers

import (
	"net/http"

	"healthyaar-backend/internal/middleware"
	"healthyaar-backend/internal/models"
	"healthyaar-backend/internal/services"
)

type NotificationHandler struct {
	notes *services.Notifier
}

func NewNotificationHandler(notes *services.Notifier) *NotificationHandler {
	return &NotificationHandler{notes: notes}
}

func (h *NotificationHandler) Active(w http.ResponseWriter, r *http.Request) {
	active, err := h.notes.Active(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		handleServiceError(w, r, nil, err)
		return
	}
	writeJSON(w, http.StatusOK, models.NotificationsResponse{Notifications: active})
}
