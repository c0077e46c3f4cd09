package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"healthyaar-backend/internal/models"
)

type ChatService struct {
	transcripts *TranscriptStore
	profiles    *ProfileService
	prompts     *PromptBuilder
	gateway     *Gateway
	gate        *FeatureGate
	log         *zap.Logger
}

func NewChatService(transcripts *TranscriptStore, profiles *ProfileService, prompts *PromptBuilder, gateway *Gateway, gate *FeatureGate, log *zap.Logger) *ChatService {
	return &ChatService{
		transcripts: transcripts,
		profiles:    profiles,
		prompts:     prompts,
		gateway:     gateway,
		gate:        gate,
		log:         log,
	}
}

func (s *ChatService) Transcript(ctx context.Context, userID uuid.UUID) ([]models.ChatMessage, error) {
	return s.transcripts.Load(ctx, userID)
}

// Send appends the user message, asks upstream with the profile as
// context and appends exactly one assistant message (the reply or the
// fallback). A second Send while one is in flight gets ErrRequestInFlight.
func (s *ChatService) Send(ctx context.Context, userID uuid.UUID, message string) (*models.ChatResponse, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, &ValidationError{Fields: map[string]string{"message": "is required"}}
	}

	release, err := s.gate.Acquire(ctx, userID, models.FeatureChat)
	if err != nil {
		return nil, err
	}
	defer release()

	// From here on the exchange completes even if the client goes away.
	ctx = context.WithoutCancel(ctx)

	turn := models.ChatMessage{Role: models.RoleUser, Text: message}
	transcript, err := s.transcripts.Append(ctx, userID, turn)
	if err != nil {
		return nil, err
	}

	profile, _, err := s.profiles.LoadOrDefault(ctx, userID)
	if err != nil {
		s.log.Warn("chat continuing without profile context", zap.Error(err))
		profile = models.DefaultProfile()
	}

	out := s.gateway.Generate(ctx, userID, models.FeatureChat, s.prompts.Chat(profile, transcript), ChatFallback)

	reply := models.ChatMessage{Role: models.RoleAssistant, Text: out.Text}
	transcript, stored, err := s.transcripts.AppendReply(ctx, userID, turn, len(transcript), reply)
	if err != nil {
		return nil, err
	}
	if !stored {
		s.log.Info("chat reply dropped, transcript was reset", zap.String("user_id", userID.String()))
	}

	return &models.ChatResponse{Reply: out.Text, Fallback: out.Fallback, Messages: transcript}, nil
}

// Reset returns the transcript to just the greeting. A reset while a
// message is in flight gets ErrRequestInFlight.
func (s *ChatService) Reset(ctx context.Context, userID uuid.UUID) ([]models.ChatMessage, error) {
	release, err := s.gate.Acquire(ctx, userID, models.FeatureChat)
	if err != nil {
		return nil, err
	}
	defer release()

	if err := s.transcripts.ResetIdentity(ctx, userID); err != nil {
		return nil, err
	}
	return s.transcripts.Load(ctx, userID)
}
