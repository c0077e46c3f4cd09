package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"healthyaar-backend/internal/models"
)

type IdentityRepo struct {
	pool *pgxpool.Pool
}

func NewIdentityRepo(pool *pgxpool.Pool) *IdentityRepo {
	return &IdentityRepo{pool: pool}
}

func (r *IdentityRepo) CreateAnonymous(ctx context.Context) (*models.Identity, error) {
	identity := &models.Identity{
		ID:       uuid.New(),
		Provider: models.ProviderAnonymous,
	}

	err := r.pool.QueryRow(ctx, `
		INSERT INTO identities (id, provider)
		VALUES ($1, $2)
		RETURNING created_at, last_seen_at`,
		identity.ID, identity.Provider,
	).Scan(&identity.CreatedAt, &identity.LastSeenAt)
	if err != nil {
		return nil, err
	}
	return identity, nil
}

// FindOrCreateCustom returns the identity bound to an external subject,
// creating it on first sign-in.
func (r *IdentityRepo) FindOrCreateCustom(ctx context.Context, subject string) (*models.Identity, error) {
	identity := &models.Identity{}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO identities (id, provider, subject)
		VALUES ($1, 'custom', $2)
		ON CONFLICT (subject) WHERE provider = 'custom' DO UPDATE
		SET last_seen_at = NOW()
		RETURNING id, provider, subject, created_at, last_seen_at`,
		uuid.New(), subject,
	).Scan(&identity.ID, &identity.Provider, &identity.Subject, &identity.CreatedAt, &identity.LastSeenAt)
	if err != nil {
		return nil, err
	}
	return identity, nil
}

func (r *IdentityRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Identity, error) {
	identity := &models.Identity{}
	err := r.pool.QueryRow(ctx, `
		SELECT id, provider, subject, created_at, last_seen_at
		FROM identities WHERE id = $1`, id,
	).Scan(&identity.ID, &identity.Provider, &identity.Subject, &identity.CreatedAt, &identity.LastSeenAt)
	if err != nil {
		return nil, err
	}
	return identity, nil
}

func (r *IdentityRepo) Touch(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, "UPDATE identities SET last_seen_at = NOW() WHERE id = $1", id)
	return err
}
