package services

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"healthyaar-backend/internal/models"
)

type stubGenerator struct {
	mu      sync.Mutex
	calls   []GenerateRequest
	result  Result
	err     error
	started chan struct{}
	block   chan struct{}
}

func (g *stubGenerator) Generate(ctx context.Context, req GenerateRequest) (Result, error) {
	g.mu.Lock()
	g.calls = append(g.calls, req)
	g.mu.Unlock()

	if g.started != nil {
		g.started <- struct{}{}
	}
	if g.block != nil {
		<-g.block
	}
	return g.result, g.err
}

func (g *stubGenerator) Calls() []GenerateRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]GenerateRequest(nil), g.calls...)
}

type memoryProfileStore struct {
	mu     sync.Mutex
	docs   map[uuid.UUID]models.Profile
	gets   int
	merges int
	err    error
}

func newMemoryProfileStore() *memoryProfileStore {
	return &memoryProfileStore{docs: make(map[uuid.UUID]models.Profile)}
}

func (s *memoryProfileStore) Get(ctx context.Context, appID string, userID uuid.UUID) (*models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gets++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.err != nil {
		return nil, s.err
	}
	doc, ok := s.docs[userID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &doc, nil
}

func (s *memoryProfileStore) Merge(ctx context.Context, appID string, userID uuid.UUID, patch models.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.merges++
	if s.err != nil {
		return s.err
	}
	s.docs[userID] = s.docs[userID].Merge(patch)
	return nil
}

type testEnv struct {
	kv          *MemoryKV
	events      *Events
	gate        *FeatureGate
	gen         *stubGenerator
	gateway     *Gateway
	store       *memoryProfileStore
	profiles    *ProfileService
	prompts     *PromptBuilder
	transcripts *TranscriptStore
}

func newTestEnv() *testEnv {
	log := zap.NewNop()
	kv := NewMemoryKV()
	events := NewEvents(kv, log)
	gen := &stubGenerator{result: Ok("ok")}
	store := newMemoryProfileStore()

	return &testEnv{
		kv:          kv,
		events:      events,
		gate:        NewFeatureGate(kv, events, time.Minute),
		gen:         gen,
		gateway:     NewGateway(gen, events, log, 0, 4, 5*time.Second),
		store:       store,
		profiles:    NewProfileService(store, kv, "test-app", log),
		prompts:     NewPromptBuilder(30),
		transcripts: NewTranscriptStore(kv, time.Hour),
	}
}

// featureStates returns the feature_state events published for one feature.
func featureStates(kv *MemoryKV, feature string) []string {
	var states []string
	for _, p := range kv.PublishedMessages() {
		var msg struct {
			Type    string                   `json:"type"`
			Payload models.FeatureStateEvent `json:"payload"`
		}
		if json.Unmarshal(p.Payload, &msg) != nil || msg.Type != models.EventFeatureState {
			continue
		}
		if msg.Payload.Feature == feature {
			states = append(states, msg.Payload.State)
		}
	}
	return states
}
