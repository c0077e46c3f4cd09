package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"healthyaar-backend/internal/models"
)

func TestFeatureGate_OneInFlightPerFeature(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	userID := uuid.New()

	release, err := env.gate.Acquire(ctx, userID, models.FeatureSummary)
	require.NoError(t, err)

	_, err = env.gate.Acquire(ctx, userID, models.FeatureSummary)
	assert.ErrorIs(t, err, ErrRequestInFlight)

	other, err := env.gate.Acquire(ctx, userID, models.FeatureReport)
	require.NoError(t, err, "features are gated independently")
	other()

	otherUser, err := env.gate.Acquire(ctx, uuid.New(), models.FeatureSummary)
	require.NoError(t, err, "identities are gated independently")
	otherUser()

	release()
	again, err := env.gate.Acquire(ctx, userID, models.FeatureSummary)
	require.NoError(t, err)
	again()
}

func TestFeatureGate_PublishesStates(t *testing.T) {
	env := newTestEnv()
	release, err := env.gate.Acquire(context.Background(), uuid.New(), models.FeatureProfile)
	require.NoError(t, err)
	release()

	assert.Equal(t, []string{models.StateSending, models.StateIdle}, featureStates(env.kv, models.FeatureProfile))
}

func TestFeatureGate_HeldLockSurvivesUntilRelease(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	userID := uuid.New()

	release, err := env.gate.Acquire(ctx, userID, models.FeatureChat)
	require.NoError(t, err)

	_, err = env.gate.Acquire(ctx, userID, models.FeatureChat)
	assert.ErrorIs(t, err, ErrRequestInFlight)

	release()
	again, err := env.gate.Acquire(ctx, userID, models.FeatureChat)
	require.NoError(t, err)
	again()
}
