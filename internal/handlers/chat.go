package handlers

import (
	"net/http"

	"healthyaar-backend/internal/middleware"
	"healthyaar-backend/internal/models"
	"healthyaar-backend/internal/services"
)

type ChatHandler struct {
	chat  *services.ChatService
	notes *services.Notifier
}

func NewChatHandler(chat *services.ChatService, notes *services.Notifier) *ChatHandler {
	return &ChatHandler{chat: chat, notes: notes}
}

func (h *ChatHandler) Transcript(w http.ResponseWriter, r *http.Request) {
	msgs, err := h.chat.Transcript(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		handleServiceError(w, r, h.notes, err)
		return
	}
	writeJSON(w, http.StatusOK, models.TranscriptResponse{Messages: msgs})
}

func (h *ChatHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req models.ChatRequest
	if err := decodeJSON(r, &req, false); err != nil {
		badBody(w, r)
		return
	}
	if err := services.ValidateStruct(req); err != nil {
		handleServiceError(w, r, h.notes, err)
		return
	}

	resp, err := h.chat.Send(r.Context(), middleware.GetUserID(r.Context()), req.Message)
	if err != nil {
		handleServiceError(w, r, h.notes, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *ChatHandler) Reset(w http.ResponseWriter, r *http.Request) {
	msgs, err := h.chat.Reset(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		handleServiceError(w, r, h.notes, err)
		return
	}
	writeJSON(w, http.StatusOK, models.TranscriptResponse{Messages: msgs})
}
