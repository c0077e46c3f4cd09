package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"healthyaar-backend/internal/models"
)

// TranscriptStore keeps the chat transcript for a session. Index 0 is
// always the seed greeting.
type TranscriptStore struct {
	kv  KV
	ttl time.Duration
}

func NewTranscriptStore(kv KV, ttl time.Duration) *TranscriptStore {
	return &TranscriptStore{kv: kv, ttl: ttl}
}

func transcriptKey(userID uuid.UUID) string {
	return "chat:" + userID.String()
}

func seedTranscript() []models.ChatMessage {
	return []models.ChatMessage{{Role: models.RoleAssistant, Text: models.SeedGreeting}}
}

func (s *TranscriptStore) Load(ctx context.Context, userID uuid.UUID) ([]models.ChatMessage, error) {
	data, err := s.kv.Get(ctx, transcriptKey(userID))
	if errors.Is(err, ErrKeyNotFound) {
		return seedTranscript(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load transcript: %w", err)
	}

	var msgs []models.ChatMessage
	if err := json.Unmarshal(data, &msgs); err != nil || len(msgs) == 0 {
		return seedTranscript(), nil
	}
	return msgs, nil
}

// Append adds messages in order and returns the full transcript. Callers
// hold the chat feature lock, so read-modify-write is safe.
func (s *TranscriptStore) Append(ctx context.Context, userID uuid.UUID, msgs ...models.ChatMessage) ([]models.ChatMessage, error) {
	current, err := s.Load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.store(ctx, userID, append(current, msgs...))
}

// AppendReply adds reply only if the transcript still has length at and
// ends with the turn being answered. A reset in between makes it return
// the current transcript and false.
func (s *TranscriptStore) AppendReply(ctx context.Context, userID uuid.UUID, answered models.ChatMessage, at int, reply models.ChatMessage) ([]models.ChatMessage, bool, error) {
	current, err := s.Load(ctx, userID)
	if err != nil {
		return nil, false, err
	}
	if len(current) != at || current[at-1] != answered {
		return current, false, nil
	}

	stored, err := s.store(ctx, userID, append(current, reply))
	if err != nil {
		return nil, false, err
	}
	return stored, true, nil
}

func (s *TranscriptStore) store(ctx context.Context, userID uuid.UUID, msgs []models.ChatMessage) ([]models.ChatMessage, error) {
	data, err := json.Marshal(msgs)
	if err != nil {
		return nil, err
	}
	if err := s.kv.Set(ctx, transcriptKey(userID), data, s.ttl); err != nil {
		return nil, fmt.Errorf("failed to store transcript: %w", err)
	}
	return msgs, nil
}

func (s *TranscriptStore) ResetIdentity(ctx context.Context, userID uuid.UUID) error {
	return s.kv.Del(ctx, transcriptKey(userID))
}
