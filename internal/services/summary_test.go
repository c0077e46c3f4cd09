package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"healthyaar-backend/internal/models"
)

func TestSummary_RequiresHeightAndWeight(t *testing.T) {
	env := newTestEnv()
	svc := NewSummaryService(env.profiles, env.prompts, env.gateway, env.gate)

	_, err := svc.Generate(context.Background(), uuid.New(), &models.Profile{Height: models.T("180")})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "weight")
	assert.NotContains(t, verr.Fields, "height")
	assert.Equal(t, models.MsgSummaryNeedsMetrics, Notice(err))
	assert.Empty(t, env.gen.Calls())
}

func TestSummary_FromFormData(t *testing.T) {
	env := newTestEnv()
	env.gen.result = Ok("<h3>Your Personalized Health Summary:</h3>")
	svc := NewSummaryService(env.profiles, env.prompts, env.gateway, env.gate)

	resp, err := svc.Generate(context.Background(), uuid.New(), &models.Profile{Height: models.T("180"), Weight: models.T("70")})
	require.NoError(t, err)

	assert.False(t, resp.Fallback)
	assert.Equal(t, "<h3>Your Personalized Health Summary:</h3>", resp.SummaryHTML)
	require.Len(t, env.gen.Calls(), 1)
}

func TestSummary_FromStoredProfile(t *testing.T) {
	env := newTestEnv()
	svc := NewSummaryService(env.profiles, env.prompts, env.gateway, env.gate)
	userID := uuid.New()
	env.store.docs[userID] = models.Profile{Height: models.T("165"), Weight: models.T("60")}

	_, err := svc.Generate(context.Background(), userID, nil)
	require.NoError(t, err)

	calls := env.gen.Calls()
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].Turns[0].Text, `"height":"165"`)
}

func TestSummary_Fallback(t *testing.T) {
	env := newTestEnv()
	env.gen.err = ErrUpstreamNon2xx
	svc := NewSummaryService(env.profiles, env.prompts, env.gateway, env.gate)

	resp, err := svc.Generate(context.Background(), uuid.New(), &models.Profile{Height: models.T("1"), Weight: models.T("2")})
	require.NoError(t, err)
	assert.True(t, resp.Fallback)
	assert.Equal(t, SummaryFallback, resp.SummaryHTML)
}
