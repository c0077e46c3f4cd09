package services

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"healthyaar-backend/internal/models"
)

type SummaryService struct {
	profiles *ProfileService
	prompts  *PromptBuilder
	gateway  *Gateway
	gate     *FeatureGate
}

func NewSummaryService(profiles *ProfileService, prompts *PromptBuilder, gateway *Gateway, gate *FeatureGate) *SummaryService {
	return &SummaryService{profiles: profiles, prompts: prompts, gateway: gateway, gate: gate}
}

// Generate summarizes formData when given, otherwise the stored profile.
// Height and weight must be present.
func (s *SummaryService) Generate(ctx context.Context, userID uuid.UUID, formData *models.Profile) (*models.SummaryResponse, error) {
	var profile models.Profile
	if formData != nil {
		profile = formData.WithDefaults()
	} else {
		p, _, err := s.profiles.LoadOrDefault(ctx, userID)
		if err != nil {
			return nil, err
		}
		profile = p
	}

	if err := ValidateStruct(models.SummaryInput{
		Height: profile.Height.String(),
		Weight: profile.Weight.String(),
	}); err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			verr.Notice = models.MsgSummaryNeedsMetrics
		}
		return nil, err
	}

	release, err := s.gate.Acquire(ctx, userID, models.FeatureSummary)
	if err != nil {
		return nil, err
	}
	defer release()

	out := s.gateway.Generate(ctx, userID, models.FeatureSummary, s.prompts.Summary(profile), SummaryFallback)
	return &models.SummaryResponse{SummaryHTML: out.Text, Fallback: out.Fallback}, nil
}
