package services

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"healthyaar-backend/internal/models"
)

// Notifier stores transient notifications under per-notification keys
// that expire after models.NotificationTTL, and pushes each one to the
// identity's websocket channel.
type Notifier struct {
	kv     KV
	events *Events
	log    *zap.Logger
	now    func() time.Time
}

func NewNotifier(kv KV, events *Events, log *zap.Logger) *Notifier {
	return &Notifier{kv: kv, events: events, log: log, now: time.Now}
}

func notificationPrefix(userID uuid.UUID) string {
	return "notif:" + userID.String() + ":"
}

// Notify never fails the caller: a notification that cannot be stored is
// still returned so it can be sent inline.
func (n *Notifier) Notify(ctx context.Context, userID uuid.UUID, severity, message string) *models.Notification {
	note := &models.Notification{
		ID:        uuid.NewString(),
		Message:   message,
		Severity:  severity,
		ExpiresAt: n.now().Add(models.NotificationTTL),
	}
	if userID == uuid.Nil {
		return note
	}

	data, err := json.Marshal(note)
	if err == nil {
		err = n.kv.Set(ctx, notificationPrefix(userID)+note.ID, data, models.NotificationTTL)
	}
	if err != nil {
		n.log.Warn("failed to store notification", zap.String("user_id", userID.String()), zap.Error(err))
	}

	n.events.Publish(ctx, userID, models.WSMessage{Type: models.EventNotification, Payload: note})
	return note
}

// Active returns unexpired notifications, oldest first.
func (n *Notifier) Active(ctx context.Context, userID uuid.UUID) ([]models.Notification, error) {
	keys, err := n.kv.KeysWithPrefix(ctx, notificationPrefix(userID))
	if err != nil {
		return nil, err
	}

	now := n.now()
	out := make([]models.Notification, 0, len(keys))
	for _, key := range keys {
		data, err := n.kv.Get(ctx, key)
		if err != nil {
			continue
		}
		var note models.Notification
		if err := json.Unmarshal(data, &note); err != nil {
			continue
		}
		if !note.ExpiresAt.After(now) {
			continue
		}
		out = append(out, note)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ExpiresAt.Before(out[j].ExpiresAt) })
	return out, nil
}

func (n *Notifier) ResetIdentity(ctx context.Context, userID uuid.UUID) error {
	keys, err := n.kv.KeysWithPrefix(ctx, notificationPrefix(userID))
	if err != nil {
		return err
	}
	return n.kv.Del(ctx, keys...)
}
