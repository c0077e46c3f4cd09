package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"healthyaar-backend/internal/middleware"
	"healthyaar-backend/internal/models"
	"healthyaar-backend/internal/services"
)

type stubGenerator struct {
	mu     sync.Mutex
	calls  int
	result services.Result
	err    error
}

func (g *stubGenerator) Generate(ctx context.Context, req services.GenerateRequest) (services.Result, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	return g.result, g.err
}

type stubProfileStore struct {
	mu   sync.Mutex
	docs map[uuid.UUID]models.Profile
	err  error
}

func (s *stubProfileStore) Get(ctx context.Context, appID string, userID uuid.UUID) (*models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	doc, ok := s.docs[userID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &doc, nil
}

func (s *stubProfileStore) Merge(ctx context.Context, appID string, userID uuid.UUID, patch models.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.docs[userID] = s.docs[userID].Merge(patch)
	return nil
}

type stubIdentityStore struct {
	mu   sync.Mutex
	byID map[uuid.UUID]*models.Identity
}

func (s *stubIdentityStore) CreateAnonymous(ctx context.Context) (*models.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := &models.Identity{ID: uuid.New(), Provider: models.ProviderAnonymous}
	s.byID[id.ID] = id
	return id, nil
}

func (s *stubIdentityStore) FindOrCreateCustom(ctx context.Context, subject string) (*models.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := &models.Identity{ID: uuid.New(), Provider: models.ProviderCustom, Subject: &subject}
	s.byID[id.ID] = id
	return id, nil
}

func (s *stubIdentityStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	identity, ok := s.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return identity, nil
}

func (s *stubIdentityStore) Touch(ctx context.Context, id uuid.UUID) error { return nil }

type harness struct {
	gen    *stubGenerator
	store  *stubProfileStore
	router http.Handler
}

func newHarness() *harness {
	log := zap.NewNop()
	kv := services.NewMemoryKV()
	events := services.NewEvents(kv, log)
	gen := &stubGenerator{result: services.Ok("X")}
	store := &stubProfileStore{docs: make(map[uuid.UUID]models.Profile)}

	tokens := services.NewTokenStore(kv)
	jwtAuth := middleware.NewJWTAuth("test-secret")
	jwtAuth.SetRevocations(tokens)

	gate := services.NewFeatureGate(kv, events, time.Minute)
	gateway := services.NewGateway(gen, events, log, 0, 2, 5*time.Second)
	prompts := services.NewPromptBuilder(30)
	transcripts := services.NewTranscriptStore(kv, time.Hour)
	profiles := services.NewProfileService(store, kv, "test-app", log)
	notes := services.NewNotifier(kv, events, log)
	reports := services.NewReportService(kv, prompts, gateway, gate, 1<<20)
	sessions := services.NewSessionService(&stubIdentityStore{byID: make(map[uuid.UUID]*models.Identity)},
		tokens, jwtAuth, "custom-secret", events, log,
		transcripts, profiles, reports, notes)

	sessionH := NewSessionHandler(sessions, notes)
	profileH := NewProfileHandler(profiles, gate, notes)
	chatH := NewChatHandler(services.NewChatService(transcripts, profiles, prompts, gateway, gate, log), notes)
	summaryH := NewSummaryHandler(services.NewSummaryService(profiles, prompts, gateway, gate), notes)
	reportH := NewReportHandler(reports, notes, 1<<20)
	notesH := NewNotificationHandler(notes)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Post("/api/session", sessionH.Establish)
	r.Post("/api/session/refresh", sessionH.Refresh)
	r.Group(func(r chi.Router) {
		r.Use(jwtAuth.Middleware)
		r.Get("/api/session", sessionH.Current)
		r.Post("/api/session/logout", sessionH.Logout)
		r.Get("/api/profile", profileH.Get)
		r.Put("/api/profile", profileH.Save)
		r.Get("/api/chat", chatH.Transcript)
		r.Post("/api/chat", chatH.Send)
		r.Delete("/api/chat", chatH.Reset)
		r.Post("/api/generateHealthSummary", summaryH.Generate)
		r.Post("/api/reports/image", reportH.UploadImage)
		r.Delete("/api/reports/image", reportH.DiscardImage)
		r.Post("/api/analyzeReportImage", reportH.Analyze)
		r.Get("/api/notifications", notesH.Active)
	})

	return &harness{gen: gen, store: store, router: r}
}

func (h *harness) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.router.ServeHTTP(rr, req)
	return rr
}

// session establishes a fresh anonymous identity and returns its tokens.
func (h *harness) session(t *testing.T) models.SessionResponse {
	t.Helper()
	rr := h.do(t, http.MethodPost, "/api/session", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("establish session: status %d: %s", rr.Code, rr.Body.String())
	}
	var resp models.SessionResponse
	decode(t, rr, &resp)
	if resp.AuthTokens == nil {
		t.Fatal("expected tokens on a new session")
	}
	return resp
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(dst); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rr.Body.String())
	}
}
