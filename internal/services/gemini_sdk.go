package services

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// SDKGenerator is the Generator backed by the Go SDK.
type SDKGenerator struct {
	client    *genai.Client
	modelName string
}

func NewSDKGenerator(ctx context.Context, apiKey, modelName string) (*SDKGenerator, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &SDKGenerator{client: client, modelName: modelName}, nil
}

func (s *SDKGenerator) Close() {
	s.client.Close()
}

func toGenaiContent(t Turn) *genai.Content {
	parts := []genai.Part{genai.Text(t.Text)}
	if t.Image != nil {
		parts = append(parts, genai.Blob{MIMEType: t.Image.MimeType, Data: t.Image.Data})
	}
	return &genai.Content{Role: t.Role, Parts: parts}
}

func (s *SDKGenerator) Generate(ctx context.Context, req GenerateRequest) (Result, error) {
	if len(req.Turns) == 0 {
		return Malformed(), fmt.Errorf("%w: no turns to send", ErrUnparseableResponse)
	}

	// A model per call keeps per-request settings off the shared client.
	model := s.client.GenerativeModel(s.modelName)
	model.SetTemperature(0.3)
	model.SetTopP(0.95)
	if req.SystemInstruction != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(req.SystemInstruction)}}
	}

	session := model.StartChat()
	for _, t := range req.Turns[:len(req.Turns)-1] {
		session.History = append(session.History, toGenaiContent(t))
	}
	last := toGenaiContent(req.Turns[len(req.Turns)-1])

	resp, err := session.SendMessage(ctx, last.Parts...)
	if err != nil {
		return Malformed(), classifySDKError(err)
	}
	return extractResult(resp), nil
}

func classifySDKError(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", ErrNetworkFailure, err)
	}
	return fmt.Errorf("%w: %v", ErrUpstreamNon2xx, err)
}

// extractResult mirrors parseGenerateResponse for SDK responses.
func extractResult(resp *genai.GenerateContentResponse) Result {
	if resp == nil || len(resp.Candidates) == 0 {
		return Malformed()
	}
	cand := resp.Candidates[0]
	if cand.Content == nil || len(cand.Content.Parts) == 0 {
		return Malformed()
	}
	text, ok := cand.Content.Parts[0].(genai.Text)
	if !ok || text == "" {
		return Malformed()
	}
	return Ok(string(text))
}
