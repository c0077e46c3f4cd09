package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"healthyaar-backend/internal/middleware"
	"healthyaar-backend/internal/models"
)

type IdentityStore interface {
	CreateAnonymous(ctx context.Context) (*models.Identity, error)
	FindOrCreateCustom(ctx context.Context, subject string) (*models.Identity, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Identity, error)
	Touch(ctx context.Context, id uuid.UUID) error
}

// WorkspaceResetter drops per-identity state on logout.
type WorkspaceResetter interface {
	ResetIdentity(ctx context.Context, userID uuid.UUID) error
}

type Session struct {
	Identity *models.Identity
	Tokens   *models.AuthTokens
}

type SessionService struct {
	identities   IdentityStore
	tokens       *TokenStore
	jwt          *middleware.JWTAuth
	customSecret []byte
	resetters    []WorkspaceResetter
	events       *Events
	log          *zap.Logger
}

func NewSessionService(identities IdentityStore, tokens *TokenStore, jwtAuth *middleware.JWTAuth, customSecret string, events *Events, log *zap.Logger, resetters ...WorkspaceResetter) *SessionService {
	return &SessionService{
		identities:   identities,
		tokens:       tokens,
		jwt:          jwtAuth,
		customSecret: []byte(customSecret),
		resetters:    resetters,
		events:       events,
		log:          log,
	}
}

func identityUnavailable(err error) error {
	return withNotice(fmt.Errorf("%w: %v", ErrIdentityUnavailable, err), models.MsgServicesUnavailable)
}

// Establish resolves exactly one identity: an existing credential first,
// then a one-time custom token, then a new anonymous identity.
func (s *SessionService) Establish(ctx context.Context, bearer string, req models.SessionRequest) (*Session, error) {
	if bearer != "" {
		sess, err := s.fromAccessToken(ctx, bearer)
		if err != nil {
			return nil, err
		}
		if sess != nil {
			return sess, nil
		}
	}

	if req.RefreshToken != "" {
		sess, err := s.fromRefreshToken(ctx, req.RefreshToken)
		if err != nil {
			return nil, err
		}
		if sess != nil {
			return sess, nil
		}
	}

	if req.CustomToken != "" {
		return s.fromCustomToken(ctx, req.CustomToken)
	}

	identity, err := s.identities.CreateAnonymous(ctx)
	if err != nil {
		s.log.Error("anonymous sign-in failed", zap.Error(err))
		return nil, identityUnavailable(err)
	}
	return s.issue(ctx, identity)
}

// fromAccessToken keeps the token's identity and issues a fresh token
// pair for it. It returns nil, nil when the token is not usable so the
// caller can fall through to the next source.
func (s *SessionService) fromAccessToken(ctx context.Context, bearer string) (*Session, error) {
	claims, err := s.jwt.ParseAccessToken(ctx, bearer)
	if err != nil {
		if errors.Is(err, middleware.ErrTokenExpired) || errors.Is(err, middleware.ErrTokenInvalid) || errors.Is(err, middleware.ErrTokenRevoked) {
			return nil, nil
		}
		return nil, identityUnavailable(err)
	}

	identity, err := s.identities.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, identityUnavailable(err)
	}
	s.identities.Touch(ctx, identity.ID)
	return s.issue(ctx, identity)
}

func (s *SessionService) fromRefreshToken(ctx context.Context, refreshToken string) (*Session, error) {
	userID, err := s.tokens.ConsumeRefresh(ctx, refreshToken)
	if err != nil {
		var unauthorized *UnauthorizedError
		if errors.As(err, &unauthorized) {
			return nil, nil
		}
		return nil, identityUnavailable(err)
	}

	identity, err := s.identities.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, identityUnavailable(err)
	}
	s.identities.Touch(ctx, identity.ID)
	return s.issue(ctx, identity)
}

func (s *SessionService) fromCustomToken(ctx context.Context, raw string) (*Session, error) {
	token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		return s.customSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return nil, identityUnavailable(fmt.Errorf("custom token rejected: %v", err))
	}

	claims, _ := token.Claims.(jwt.MapClaims)
	subject, _ := claims.GetSubject()
	tokenID, _ := claims["jti"].(string)
	exp, _ := claims.GetExpirationTime()
	if subject == "" || tokenID == "" || exp == nil {
		return nil, identityUnavailable(errors.New("custom token missing sub, jti or exp"))
	}

	fresh, err := s.tokens.BurnOnce(ctx, tokenID, exp.Time)
	if err != nil {
		return nil, identityUnavailable(err)
	}
	if !fresh {
		return nil, identityUnavailable(errors.New("custom token already used"))
	}

	identity, err := s.identities.FindOrCreateCustom(ctx, subject)
	if err != nil {
		s.log.Error("custom-token sign-in failed", zap.Error(err))
		return nil, identityUnavailable(err)
	}
	return s.issue(ctx, identity)
}

func (s *SessionService) issue(ctx context.Context, identity *models.Identity) (*Session, error) {
	accessToken, claims, err := s.jwt.GenerateAccessToken(identity.ID, identity.Provider)
	if err != nil {
		return nil, identityUnavailable(fmt.Errorf("failed to generate access token: %w", err))
	}
	if err := s.tokens.TrackAccess(ctx, identity.ID, claims.TokenID, claims.ExpiresAt); err != nil {
		return nil, identityUnavailable(fmt.Errorf("failed to track access token: %w", err))
	}

	refreshToken, err := generateToken(64)
	if err != nil {
		return nil, identityUnavailable(err)
	}
	if err := s.tokens.SaveRefresh(ctx, refreshToken, identity.ID); err != nil {
		return nil, identityUnavailable(fmt.Errorf("failed to store refresh token: %w", err))
	}

	return &Session{
		Identity: identity,
		Tokens: &models.AuthTokens{
			AccessToken:  accessToken,
			RefreshToken: refreshToken,
			ExpiresIn:    int(middleware.AccessTokenTTL.Seconds()),
		},
	}, nil
}

func (s *SessionService) Current(ctx context.Context, userID uuid.UUID) (*models.Identity, error) {
	identity, err := s.identities.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &UnauthorizedError{Message: "Identity no longer exists"}
		}
		return nil, identityUnavailable(err)
	}
	return identity, nil
}

// Refresh rotates a refresh token.
func (s *SessionService) Refresh(ctx context.Context, refreshToken string) (*models.AuthTokens, error) {
	userID, err := s.tokens.ConsumeRefresh(ctx, refreshToken)
	if err != nil {
		return nil, err
	}

	identity, err := s.identities.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &UnauthorizedError{Message: "Identity no longer exists"}
		}
		return nil, identityUnavailable(err)
	}

	sess, err := s.issue(ctx, identity)
	if err != nil {
		return nil, err
	}
	return sess.Tokens, nil
}

// Logout revokes the caller's credentials and drops every piece of
// workspace state held for the identity.
func (s *SessionService) Logout(ctx context.Context, claims *middleware.AccessClaims, refreshToken string) error {
	if claims == nil {
		return withNotice(ErrIdentityUnavailable, models.MsgServicesUnavailable)
	}

	if err := s.tokens.Revoke(ctx, claims.TokenID, claims.ExpiresAt); err != nil {
		return identityUnavailable(fmt.Errorf("failed to revoke access token: %w", err))
	}

	if refreshToken != "" {
		owner, err := s.tokens.ConsumeRefresh(ctx, refreshToken)
		if err == nil && owner != claims.UserID {
			s.log.Warn("logout presented a refresh token of another identity", zap.String("user_id", claims.UserID.String()))
		}
	}
	if err := s.tokens.RevokeAllRefresh(ctx, claims.UserID); err != nil {
		return identityUnavailable(err)
	}
	if err := s.tokens.RevokeAllAccess(ctx, claims.UserID); err != nil {
		return identityUnavailable(err)
	}

	for _, r := range s.resetters {
		if err := r.ResetIdentity(ctx, claims.UserID); err != nil {
			s.log.Warn("workspace reset failed", zap.String("user_id", claims.UserID.String()), zap.Error(err))
		}
	}

	s.events.Publish(ctx, claims.UserID, models.WSMessage{
		Type:    models.EventSessionChanged,
		Payload: models.SessionChangedEvent{Ready: false},
	})
	return nil
}
