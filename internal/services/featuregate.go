package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"healthyaar-backend/internal/models"
)

// FeatureGate allows at most one in-flight request per identity and
// feature. The lock is a SETNX key so it holds across instances. Only the
// holder releases it; the TTL only matters if a process dies while
// holding it. Logout leaves held locks alone.
type FeatureGate struct {
	kv     KV
	events *Events
	ttl    time.Duration
}

func NewFeatureGate(kv KV, events *Events, ttl time.Duration) *FeatureGate {
	return &FeatureGate{kv: kv, events: events, ttl: ttl}
}

func lockKey(userID uuid.UUID, feature string) string {
	return fmt.Sprintf("job_lock:%s:%s", feature, userID.String())
}

// Acquire moves the feature to SENDING. The returned release moves it
// back to IDLE and must be called exactly once.
func (g *FeatureGate) Acquire(ctx context.Context, userID uuid.UUID, feature string) (func(), error) {
	key := lockKey(userID, feature)
	ok, err := g.kv.SetNX(ctx, key, []byte("1"), g.ttl)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire %s lock: %w", feature, err)
	}
	if !ok {
		return nil, ErrRequestInFlight
	}

	g.events.FeatureState(ctx, userID, feature, models.StateSending)

	release := func() {
		bg := context.WithoutCancel(ctx)
		g.kv.Del(bg, key)
		g.events.FeatureState(bg, userID, feature, models.StateIdle)
	}
	return release, nil
}
