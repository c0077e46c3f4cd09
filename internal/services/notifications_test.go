package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"healthyaar-backend/internal/models"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func TestNotifier_ExpiresAfterTTL(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	kv := NewMemoryKV()
	kv.now = clock.Now
	n := NewNotifier(kv, NewEvents(kv, zap.NewNop()), zap.NewNop())
	n.now = clock.Now
	ctx := context.Background()
	userID := uuid.New()

	n.Notify(ctx, userID, models.SeveritySuccess, models.MsgProfileSaved)
	clock.Advance(time.Second)
	n.Notify(ctx, userID, models.SeverityError, models.MsgProfileSaveFailed)

	active, err := n.Active(ctx, userID)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, models.MsgProfileSaved, active[0].Message)
	assert.Equal(t, models.MsgProfileSaveFailed, active[1].Message)

	clock.Advance(2 * time.Second)
	active, err = n.Active(ctx, userID)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, models.SeverityError, active[0].Severity)

	clock.Advance(time.Second)
	active, err = n.Active(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestNotifier_PublishesToUpdatesChannel(t *testing.T) {
	kv := NewMemoryKV()
	n := NewNotifier(kv, NewEvents(kv, zap.NewNop()), zap.NewNop())
	userID := uuid.New()

	note := n.Notify(context.Background(), userID, models.SeverityInfo, models.MsgLoggedOut)

	published := kv.PublishedMessages()
	require.Len(t, published, 1)
	assert.Equal(t, UpdatesChannel(userID), published[0].Channel)

	var msg struct {
		Type    string              `json:"type"`
		Payload models.Notification `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(published[0].Payload, &msg))
	assert.Equal(t, models.EventNotification, msg.Type)
	assert.Equal(t, note.ID, msg.Payload.ID)
}

func TestNotifier_WithoutIdentityIsInlineOnly(t *testing.T) {
	kv := NewMemoryKV()
	n := NewNotifier(kv, NewEvents(kv, zap.NewNop()), zap.NewNop())

	note := n.Notify(context.Background(), uuid.Nil, models.SeverityError, models.MsgServicesUnavailable)

	assert.Equal(t, models.MsgServicesUnavailable, note.Message)
	assert.Empty(t, kv.PublishedMessages())
}
