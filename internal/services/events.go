package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"healthyaar-backend/internal/models"
)

// UpdatesChannel is the pub/sub channel the websocket hub relays for one identity.
func UpdatesChannel(userID uuid.UUID) string {
	return fmt.Sprintf("user_updates:%s", userID.String())
}

// Events publishes realtime updates. Delivery is best-effort.
type Events struct {
	kv  KV
	log *zap.Logger
}

func NewEvents(kv KV, log *zap.Logger) *Events {
	return &Events{kv: kv, log: log}
}

func (e *Events) Publish(ctx context.Context, userID uuid.UUID, msg models.WSMessage) {
	if e == nil {
		return
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	if err := e.kv.Publish(ctx, UpdatesChannel(userID), data); err != nil {
		e.log.Warn("publish update failed", zap.String("type", msg.Type), zap.Error(err))
	}
}

func (e *Events) FeatureState(ctx context.Context, userID uuid.UUID, feature, state string) {
	e.Publish(ctx, userID, models.WSMessage{
		Type:    models.EventFeatureState,
		Payload: models.FeatureStateEvent{Feature: feature, State: state},
	})
}
