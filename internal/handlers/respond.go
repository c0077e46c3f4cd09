package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"

	"healthyaar-backend/internal/middleware"
	"healthyaar-backend/internal/models"
	"healthyaar-backend/internal/services"
)

// notifier creates the transient notification attached to a response.
type notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, severity, message string) *models.Notification
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func errorResp(code, message string, r *http.Request) models.ErrorResponse {
	return models.ErrorResponse{
		Error: models.APIError{
			Code:      code,
			Message:   message,
			RequestID: r.Header.Get(middleware.RequestIDHeader),
		},
	}
}

func errorRespWithFields(code, message string, fields map[string]string, r *http.Request) models.ErrorResponse {
	resp := errorResp(code, message, r)
	resp.Error.Fields = fields
	return resp
}

// decodeJSON reads an optional JSON body into dst. An empty body is not
// an error.
func decodeJSON(r *http.Request, dst interface{}, strict bool) error {
	dec := json.NewDecoder(r.Body)
	if strict {
		dec.DisallowUnknownFields()
	}
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func badBody(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
}

// handleServiceError maps service errors onto the JSON envelope. Errors
// that carry a user-facing notice also get a notification.
func handleServiceError(w http.ResponseWriter, r *http.Request, notes notifier, err error) {
	status, resp := http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "An unexpected error occurred", r)
	severity := models.SeverityError

	var verr *services.ValidationError
	var unauthorized *services.UnauthorizedError
	switch {
	case errors.As(err, &verr):
		status, resp = http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed", verr.Fields, r)
	case errors.As(err, &unauthorized):
		status, resp = http.StatusUnauthorized, errorResp("UNAUTHORIZED", unauthorized.Message, r)
	case errors.Is(err, services.ErrRequestInFlight):
		status, resp = http.StatusConflict, errorResp("REQUEST_IN_FLIGHT", "A request for this feature is already in progress", r)
		severity = models.SeverityInfo
	case errors.Is(err, services.ErrIdentityUnavailable):
		status, resp = http.StatusUnauthorized, errorResp("IDENTITY_UNAVAILABLE", "Could not establish a session", r)
	case errors.Is(err, services.ErrStoreUnavailable):
		status, resp = http.StatusServiceUnavailable, errorResp("STORE_UNAVAILABLE", "Profile store is unavailable", r)
	case errors.Is(err, services.ErrInvalidUpload):
		status, resp = http.StatusBadRequest, errorResp("INVALID_UPLOAD", "Upload is not a valid image", r)
	case errors.Is(err, services.ErrNoPendingImage):
		status, resp = http.StatusBadRequest, errorResp("NO_PENDING_IMAGE", "No report image has been uploaded", r)
	}

	message := services.Notice(err)
	if message == "" && errors.Is(err, services.ErrRequestInFlight) {
		message = models.MsgRequestInFlight
	}
	if message != "" && notes != nil {
		resp.Notification = notes.Notify(r.Context(), middleware.GetUserID(r.Context()), severity, message)
	}

	writeJSON(w, status, resp)
}
