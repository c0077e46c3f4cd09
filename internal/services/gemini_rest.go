package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// maxResponseBytes caps how much of an upstream body is read.
const maxResponseBytes = 4 << 20

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents          []geminiContent `json:"contents"`
	SystemInstruction *geminiContent  `json:"systemInstruction,omitempty"`
}

// RESTGenerator calls the generateContent endpoint over plain HTTP. The
// API key travels in a header and never appears in URLs or logs.
type RESTGenerator struct {
	baseURL    string
	model      string
	apiKey     string
	httpClient *http.Client
}

func NewRESTGenerator(baseURL, model, apiKey string, timeout time.Duration) *RESTGenerator {
	return &RESTGenerator{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func buildGeminiRequest(req GenerateRequest) geminiRequest {
	out := geminiRequest{Contents: make([]geminiContent, 0, len(req.Turns))}
	if req.SystemInstruction != "" {
		out.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: req.SystemInstruction}}}
	}
	for _, t := range req.Turns {
		c := geminiContent{Role: t.Role, Parts: []geminiPart{{Text: t.Text}}}
		if t.Image != nil {
			c.Parts = append(c.Parts, geminiPart{InlineData: &geminiInlineData{
				MimeType: t.Image.MimeType,
				Data:     base64.StdEncoding.EncodeToString(t.Image.Data),
			}})
		}
		out.Contents = append(out.Contents, c)
	}
	return out
}

func (g *RESTGenerator) Generate(ctx context.Context, req GenerateRequest) (Result, error) {
	body, err := json.Marshal(buildGeminiRequest(req))
	if err != nil {
		return Malformed(), fmt.Errorf("failed to encode request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", g.baseURL, g.model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Malformed(), fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return Malformed(), fmt.Errorf("%w: %v", ErrNetworkFailure, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return Malformed(), fmt.Errorf("%w: reading body: %v", ErrNetworkFailure, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Malformed(), fmt.Errorf("%w: status %d", ErrUpstreamNon2xx, resp.StatusCode)
	}

	return parseGenerateResponse(respBody), nil
}
