package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"healthyaar-backend/internal/models"
)

// Upstream turn roles.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

const (
	ChatFallback    = "I'm having trouble connecting right now. Please try again later."
	SummaryFallback = "<p>Could not generate summary at this time.</p>"
	ReportFallback  = "<p>Could not analyze the report.</p>"
)

type InlineImage struct {
	MimeType string
	Data     []byte
}

type Turn struct {
	Role  string
	Text  string
	Image *InlineImage
}

type GenerateRequest struct {
	SystemInstruction string
	Turns             []Turn
}

type ResultKind int

const (
	ResultMalformed ResultKind = iota
	ResultOK
)

// Result is what a transport decoded from a 2xx response: either text or
// nothing usable.
type Result struct {
	Kind ResultKind
	Text string
}

func Ok(text string) Result { return Result{Kind: ResultOK, Text: text} }

func Malformed() Result { return Result{Kind: ResultMalformed} }

// Generator is one upstream transport. Network failures and non-2xx
// responses are errors; a 2xx body without text is a Malformed result.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (Result, error)
}

// Outcome is what a feature shows the user.
type Outcome struct {
	Text     string
	Fallback bool
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// parseGenerateResponse reads candidates[0].content.parts[0].text.
func parseGenerateResponse(body []byte) Result {
	var resp generateResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return Malformed()
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return Malformed()
	}
	text := resp.Candidates[0].Content.Parts[0].Text
	if text == "" {
		return Malformed()
	}
	return Ok(text)
}

// Gateway runs generate calls for all features with a shared concurrency
// bucket and requests-per-minute limit, substituting fallback text on any
// failure. Callers hold the feature lock.
type Gateway struct {
	gen      Generator
	events   *Events
	log      *zap.Logger
	limiter  *rate.Limiter
	rateChan chan struct{}
	timeout  time.Duration
}

func NewGateway(gen Generator, events *Events, log *zap.Logger, requestsPerMin, concurrentReqs int, timeout time.Duration) *Gateway {
	if concurrentReqs <= 0 {
		concurrentReqs = 1
	}
	limit := rate.Inf
	if requestsPerMin > 0 {
		limit = rate.Limit(float64(requestsPerMin) / 60.0)
	}

	rateChan := make(chan struct{}, concurrentReqs)
	for i := 0; i < concurrentReqs; i++ {
		rateChan <- struct{}{}
	}

	return &Gateway{
		gen:      gen,
		events:   events,
		log:      log,
		limiter:  rate.NewLimiter(limit, concurrentReqs),
		rateChan: rateChan,
		timeout:  timeout,
	}
}

func (g *Gateway) acquireRate(ctx context.Context) error {
	select {
	case <-g.rateChan:
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := g.limiter.Wait(ctx); err != nil {
		g.releaseRate()
		return err
	}
	return nil
}

func (g *Gateway) releaseRate() {
	g.rateChan <- struct{}{}
}

// Generate never returns an error: every failure becomes the fallback.
// The call is detached from ctx cancellation so a disconnecting client
// does not abort an in-flight request.
func (g *Gateway) Generate(ctx context.Context, userID uuid.UUID, feature string, req GenerateRequest, fallback string) Outcome {
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.timeout)
	defer cancel()

	text, err := g.call(callCtx, req)
	if err != nil {
		g.log.Warn("generate failed",
			zap.String("feature", feature),
			zap.String("user_id", userID.String()),
			zap.Error(err),
		)
		g.events.FeatureState(callCtx, userID, feature, models.StateFailed)
		return Outcome{Text: fallback, Fallback: true}
	}

	g.events.FeatureState(callCtx, userID, feature, models.StateSuccess)
	return Outcome{Text: text}
}

func (g *Gateway) call(ctx context.Context, req GenerateRequest) (string, error) {
	if err := g.acquireRate(ctx); err != nil {
		return "", fmt.Errorf("%w: waiting for rate slot: %v", ErrNetworkFailure, err)
	}
	defer g.releaseRate()

	result, err := g.gen.Generate(ctx, req)
	if err != nil {
		return "", err
	}
	if result.Kind != ResultOK {
		return "", ErrUnparseableResponse
	}
	return result.Text, nil
}
