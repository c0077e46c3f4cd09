package handlers

import (
	"io"
	"net/http"

	"healthyaar-backend/internal/middleware"
	"healthyaar-backend/internal/models"
	"healthyaar-backend/internal/services"
)

type ReportHandler struct {
	reports  *services.ReportService
	notes    *services.Notifier
	maxBytes int64
}

func NewReportHandler(reports *services.ReportService, notes *services.Notifier, maxBytes int64) *ReportHandler {
	return &ReportHandler{reports: reports, notes: notes, maxBytes: maxBytes}
}

// UploadImage stores the multipart "file" as the pending report image.
func (h *ReportHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	// Room for the multipart framing around the file itself.
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+1<<20)

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "A file is required", r))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.maxBytes+1))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Failed to read file", r))
		return
	}

	img, err := h.reports.Upload(r.Context(), middleware.GetUserID(r.Context()), header.Filename, header.Header.Get("Content-Type"), data)
	if err != nil {
		handleServiceError(w, r, h.notes, err)
		return
	}

	writeJSON(w, http.StatusOK, models.PendingImageResponse{
		Filename:   img.Filename,
		MimeType:   img.MimeType,
		Size:       len(img.Data),
		PreviewURL: img.PreviewURL(),
	})
}

func (h *ReportHandler) DiscardImage(w http.ResponseWriter, r *http.Request) {
	if err := h.reports.ResetIdentity(r.Context(), middleware.GetUserID(r.Context())); err != nil {
		handleServiceError(w, r, h.notes, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Report image discarded"})
}

// Analyze runs the analysis on the pending image, or on an inline
// {image, mimeType} body when one is sent.
func (h *ReportHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes*2)

	var req models.AnalyzeReportRequest
	if err := decodeJSON(r, &req, false); err != nil {
		badBody(w, r)
		return
	}

	var inline *models.AnalyzeReportRequest
	if req.Image != "" || req.MimeType != "" {
		if err := services.ValidateStruct(req); err != nil {
			handleServiceError(w, r, h.notes, err)
			return
		}
		inline = &req
	}

	resp, err := h.reports.Analyze(r.Context(), middleware.GetUserID(r.Context()), inline)
	if err != nil {
		handleServiceError(w, r, h.notes, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
