package models

import (
	"encoding/base64"
	"time"
)

// PendingImage is the report image held between upload and analysis.
type PendingImage struct {
	Data       []byte    `json:"data"`
	MimeType   string    `json:"mime_type"`
	Filename   string    `json:"filename"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// PreviewURL is a data URI the client can render directly.
func (p *PendingImage) PreviewURL() string {
	return "data:" + p.MimeType + ";base64," + base64.StdEncoding.EncodeToString(p.Data)
}

type PendingImageResponse struct {
	Filename   string `json:"filename"`
	MimeType   string `json:"mimeType"`
	Size       int    `json:"size"`
	PreviewURL string `json:"previewUrl"`
}

// AnalyzeReportRequest is the inline variant: the client sends the image
// already base64-encoded instead of uploading it first.
type AnalyzeReportRequest struct {
	Image    string `json:"image" validate:"required,base64"`
	MimeType string `json:"mimeType" validate:"required"`
}

type AnalysisResponse struct {
	AnalysisHTML string `json:"analysisHtml"`
	Fallback     bool   `json:"fallback"`
}

type SummaryRequest struct {
	FormData *Profile `json:"formData,omitempty"`
}

// SummaryInput is the presence check run before a summary is generated.
type SummaryInput struct {
	Height string `json:"height" validate:"required"`
	Weight string `json:"weight" validate:"required"`
}

type SummaryResponse struct {
	SummaryHTML string `json:"summaryHtml"`
	Fallback    bool   `json:"fallback"`
}
