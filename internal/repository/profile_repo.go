package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"healthyaar-backend/internal/models"
)

type ProfileRepo struct {
	pool *pgxpool.Pool
}

func NewProfileRepo(pool *pgxpool.Pool) *ProfileRepo {
	return &ProfileRepo{pool: pool}
}

// Get returns pgx.ErrNoRows when the identity has never saved a profile.
func (r *ProfileRepo) Get(ctx context.Context, appID string, userID uuid.UUID) (*models.Profile, error) {
	var raw []byte
	err := r.pool.QueryRow(ctx, `
		SELECT data FROM profile_documents
		WHERE app_id = $1 AND user_id = $2 AND doc_name = $3`,
		appID, userID, models.ProfileDocName,
	).Scan(&raw)
	if err != nil {
		return nil, err
	}

	profile := &models.Profile{}
	if err := json.Unmarshal(raw, profile); err != nil {
		return nil, fmt.Errorf("failed to decode profile document: %w", err)
	}
	return profile, nil
}

// Merge creates the document on first save and otherwise overlays the
// submitted fields onto the stored ones.
func (r *ProfileRepo) Merge(ctx context.Context, appID string, userID uuid.UUID, patch models.Profile) error {
	data, err := json.Marshal(patch)
	if err != nil {
		return fmt.Errorf("failed to encode profile: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO profile_documents (app_id, user_id, doc_name, data, updated_at)
		VALUES ($1, $2, $3, $4::jsonb, NOW())
		ON CONFLICT (app_id, user_id, doc_name) DO UPDATE
		SET data = COALESCE(profile_documents.data, '{}'::jsonb) || EXCLUDED.data,
			updated_at = NOW()`,
		appID, userID, models.ProfileDocName, string(data),
	)
	return err
}
