package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"healthyaar-backend/internal/models"
)

const profileCacheTTL = 10 * time.Minute

type ProfileStore interface {
	Get(ctx context.Context, appID string, userID uuid.UUID) (*models.Profile, error)
	Merge(ctx context.Context, appID string, userID uuid.UUID, patch models.Profile) error
}

// ProfileService is the profile store adapter: a read-through cache in
// front of the document table, keyed by app and identity.
type ProfileService struct {
	store ProfileStore
	cache KV
	appID string
	log   *zap.Logger
	group singleflight.Group
}

func NewProfileService(store ProfileStore, cache KV, appID string, log *zap.Logger) *ProfileService {
	return &ProfileService{store: store, cache: cache, appID: appID, log: log}
}

func (s *ProfileService) cacheKey(userID uuid.UUID) string {
	return fmt.Sprintf("profile:%s:%s", s.appID, userID.String())
}

// Load returns ErrDocumentNotFound when nothing was ever saved. The
// returned profile only carries stored fields; callers apply defaults.
func (s *ProfileService) Load(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	if userID == uuid.Nil {
		return nil, withNotice(ErrIdentityUnavailable, models.MsgProfileLoadFailed)
	}

	key := s.cacheKey(userID)
	if data, err := s.cache.Get(ctx, key); err == nil {
		var p models.Profile
		if json.Unmarshal(data, &p) == nil {
			return &p, nil
		}
	}

	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		// Shared by every collapsed caller, so one caller leaving must not
		// fail the rest.
		loadCtx := context.WithoutCancel(ctx)
		p, err := s.store.Get(loadCtx, s.appID, userID)
		if err != nil {
			return nil, err
		}
		if data, err := json.Marshal(p); err == nil {
			if err := s.cache.Set(loadCtx, key, data, profileCacheTTL); err != nil {
				s.log.Warn("profile cache write failed", zap.Error(err))
			}
		}
		return p, nil
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDocumentNotFound
		}
		s.log.Error("profile load failed", zap.String("user_id", userID.String()), zap.Error(err))
		return nil, withNotice(fmt.Errorf("%w: %v", ErrStoreUnavailable, err), models.MsgProfileLoadFailed)
	}

	p := *v.(*models.Profile)
	return &p, nil
}

// Save merges patch into the stored document and returns the result.
func (s *ProfileService) Save(ctx context.Context, userID uuid.UUID, patch models.Profile) (*models.Profile, error) {
	if userID == uuid.Nil {
		return nil, withNotice(ErrIdentityUnavailable, models.MsgProfileSaveFailed)
	}

	if err := s.store.Merge(ctx, s.appID, userID, patch); err != nil {
		s.log.Error("profile save failed", zap.String("user_id", userID.String()), zap.Error(err))
		return nil, withNotice(fmt.Errorf("%w: %v", ErrStoreUnavailable, err), models.MsgProfileSaveFailed)
	}
	s.invalidate(ctx, userID)

	saved, err := s.Load(ctx, userID)
	if err != nil {
		// The write went through; report what was submitted.
		p := patch
		return &p, nil
	}
	return saved, nil
}

// LoadOrDefault is Load with defaults applied; a missing document is not
// an error.
func (s *ProfileService) LoadOrDefault(ctx context.Context, userID uuid.UUID) (models.Profile, bool, error) {
	p, err := s.Load(ctx, userID)
	if errors.Is(err, ErrDocumentNotFound) {
		return models.DefaultProfile(), false, nil
	}
	if err != nil {
		return models.Profile{}, false, err
	}
	return p.WithDefaults(), true, nil
}

func (s *ProfileService) invalidate(ctx context.Context, userID uuid.UUID) {
	if err := s.cache.Del(ctx, s.cacheKey(userID)); err != nil {
		s.log.Warn("profile cache invalidation failed", zap.Error(err))
	}
}

func (s *ProfileService) ResetIdentity(ctx context.Context, userID uuid.UUID) error {
	return s.cache.Del(ctx, s.cacheKey(userID))
}
