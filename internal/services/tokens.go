package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"healthyaar-backend/internal/middleware"
)

const RefreshTokenTTL = 7 * 24 * time.Hour

// TokenStore holds refresh tokens, the access-token deny list and burned
// one-time custom tokens.
type TokenStore struct {
	kv KV
}

func NewTokenStore(kv KV) *TokenStore {
	return &TokenStore{kv: kv}
}

func refreshIndexPrefix(userID uuid.UUID) string {
	return "refresh_tokens:" + userID.String() + ":"
}

// SaveRefresh stores the token and indexes it under its owner so logout
// can find every live token of the identity.
func (s *TokenStore) SaveRefresh(ctx context.Context, token string, userID uuid.UUID) error {
	if err := s.kv.Set(ctx, "refresh:"+token, []byte(userID.String()), RefreshTokenTTL); err != nil {
		return err
	}
	return s.kv.Set(ctx, refreshIndexPrefix(userID)+token, []byte("1"), RefreshTokenTTL)
}

// ConsumeRefresh deletes the token and returns its owner. A token can be
// consumed once.
func (s *TokenStore) ConsumeRefresh(ctx context.Context, token string) (uuid.UUID, error) {
	data, err := s.kv.GetDel(ctx, "refresh:"+token)
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return uuid.Nil, &UnauthorizedError{Message: "Invalid or expired refresh token. Please sign in again."}
		}
		return uuid.Nil, err
	}
	userID, err := uuid.Parse(string(data))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid user ID in refresh token: %w", err)
	}
	s.kv.Del(ctx, refreshIndexPrefix(userID)+token)
	return userID, nil
}

// RevokeAllRefresh deletes every refresh token issued to the identity.
func (s *TokenStore) RevokeAllRefresh(ctx context.Context, userID uuid.UUID) error {
	prefix := refreshIndexPrefix(userID)
	indexKeys, err := s.kv.KeysWithPrefix(ctx, prefix)
	if err != nil {
		return fmt.Errorf("failed to list refresh tokens: %w", err)
	}
	if len(indexKeys) == 0 {
		return nil
	}

	keys := make([]string, 0, 2*len(indexKeys))
	for _, k := range indexKeys {
		keys = append(keys, "refresh:"+strings.TrimPrefix(k, prefix), k)
	}
	if err := s.kv.Del(ctx, keys...); err != nil {
		return fmt.Errorf("failed to delete refresh tokens: %w", err)
	}
	return nil
}

func accessIndexPrefix(userID uuid.UUID) string {
	return "access_tokens:" + userID.String() + ":"
}

// TrackAccess records an issued access token ID until it expires.
func (s *TokenStore) TrackAccess(ctx context.Context, userID uuid.UUID, tokenID string, until time.Time) error {
	ttl := time.Until(until)
	if ttl <= 0 {
		return nil
	}
	return s.kv.Set(ctx, accessIndexPrefix(userID)+tokenID, []byte("1"), ttl)
}

// RevokeAllAccess deny-lists every tracked access token of the identity.
func (s *TokenStore) RevokeAllAccess(ctx context.Context, userID uuid.UUID) error {
	prefix := accessIndexPrefix(userID)
	indexKeys, err := s.kv.KeysWithPrefix(ctx, prefix)
	if err != nil {
		return fmt.Errorf("failed to list access tokens: %w", err)
	}

	until := time.Now().Add(middleware.AccessTokenTTL)
	for _, k := range indexKeys {
		if err := s.Revoke(ctx, strings.TrimPrefix(k, prefix), until); err != nil {
			return fmt.Errorf("failed to revoke access token: %w", err)
		}
	}
	return s.kv.Del(ctx, indexKeys...)
}

func (s *TokenStore) Revoke(ctx context.Context, tokenID string, until time.Time) error {
	ttl := time.Until(until)
	if ttl <= 0 {
		return nil
	}
	return s.kv.Set(ctx, "revoked:"+tokenID, []byte("1"), ttl)
}

func (s *TokenStore) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	_, err := s.kv.Get(ctx, "revoked:"+tokenID)
	if errors.Is(err, ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// BurnOnce marks a one-time token ID as used. It returns false if the ID
// was already burned.
func (s *TokenStore) BurnOnce(ctx context.Context, tokenID string, until time.Time) (bool, error) {
	ttl := time.Until(until)
	if ttl <= 0 {
		ttl = time.Minute
	}
	return s.kv.SetNX(ctx, "custom_token:"+tokenID, []byte("1"), ttl)
}

func generateToken(bytes int) (string, error) {
	b := make([]byte, bytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
