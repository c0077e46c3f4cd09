package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type contextKey string

const (
	UserIDKey contextKey = "user_id"
	ClaimsKey contextKey = "access_claims"
)

const AccessTokenTTL = 15 * time.Minute

var (
	ErrTokenExpired = errors.New("token has expired")
	ErrTokenInvalid = errors.New("invalid token")
	ErrTokenRevoked = errors.New("token has been revoked")
)

// Revocations reports whether an access token ID was revoked at logout.
type Revocations interface {
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

type AccessClaims struct {
	UserID    uuid.UUID
	Provider  string
	TokenID   string
	ExpiresAt time.Time
}

type JWTAuth struct {
	Secret      []byte
	revocations Revocations
}

func NewJWTAuth(secret string) *JWTAuth {
	return &JWTAuth{Secret: []byte(secret)}
}

// SetRevocations wires the deny-list consulted on every parse.
func (j *JWTAuth) SetRevocations(r Revocations) {
	j.revocations = r
}

// GenerateAccessToken creates a JWT with 15 minute expiry
func (j *JWTAuth) GenerateAccessToken(userID uuid.UUID, provider string) (string, *AccessClaims, error) {
	now := time.Now()
	ac := &AccessClaims{
		UserID:    userID,
		Provider:  provider,
		TokenID:   uuid.NewString(),
		ExpiresAt: now.Add(AccessTokenTTL),
	}

	claims := jwt.MapClaims{
		"user_id":  userID.String(),
		"provider": provider,
		"jti":      ac.TokenID,
		"exp":      ac.ExpiresAt.Unix(),
		"iat":      now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(j.Secret)
	if err != nil {
		return "", nil, err
	}
	return signed, ac, nil
}

// ParseAccessToken verifies signature, expiry and revocation.
func (j *JWTAuth) ParseAccessToken(ctx context.Context, tokenStr string) (*AccessClaims, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return j.Secret, nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}

	userIDStr, _ := claims["user_id"].(string)
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return nil, ErrTokenInvalid
	}

	ac := &AccessClaims{UserID: userID}
	ac.Provider, _ = claims["provider"].(string)
	ac.TokenID, _ = claims["jti"].(string)
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		ac.ExpiresAt = exp.Time
	}

	if j.revocations != nil && ac.TokenID != "" {
		revoked, err := j.revocations.IsRevoked(ctx, ac.TokenID)
		if err != nil {
			return nil, err
		}
		if revoked {
			return nil, ErrTokenRevoked
		}
	}

	return ac, nil
}

// BearerToken returns the token from an "Authorization: Bearer" header.
func BearerToken(r *http.Request) string {
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return parts[1]
}

// Middleware validates JWT and attaches the identity to context
func (j *JWTAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			writeError(w, http.StatusUnauthorized, "IDENTITY_UNAVAILABLE", "Missing authorization header", r)
			return
		}

		tokenStr := BearerToken(r)
		if tokenStr == "" {
			writeError(w, http.StatusUnauthorized, "IDENTITY_UNAVAILABLE", "Invalid authorization format", r)
			return
		}

		claims, err := j.ParseAccessToken(r.Context(), tokenStr)
		switch {
		case err == nil:
		case errors.Is(err, ErrTokenExpired):
			writeError(w, http.StatusUnauthorized, "TOKEN_EXPIRED", "Token has expired", r)
			return
		case errors.Is(err, ErrTokenRevoked):
			writeError(w, http.StatusUnauthorized, "IDENTITY_UNAVAILABLE", "Session has ended", r)
			return
		case errors.Is(err, ErrTokenInvalid):
			writeError(w, http.StatusUnauthorized, "IDENTITY_UNAVAILABLE", "Invalid token", r)
			return
		default:
			writeError(w, http.StatusServiceUnavailable, "STORE_UNAVAILABLE", "Could not verify session", r)
			return
		}

		ctx := context.WithValue(r.Context(), UserIDKey, claims.UserID)
		ctx = context.WithValue(ctx, ClaimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetUserID extracts the identity from request context
func GetUserID(ctx context.Context) uuid.UUID {
	id, _ := ctx.Value(UserIDKey).(uuid.UUID)
	return id
}

func GetClaims(ctx context.Context) *AccessClaims {
	c, _ := ctx.Value(ClaimsKey).(*AccessClaims)
	return c
}

func writeError(w http.ResponseWriter, status int, code, message string, r *http.Request) {
	requestID := r.Header.Get("X-Request-ID")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error": map[string]interface{}{
			"code":       code,
			"message":    message,
			"request_id": requestID,
		},
	})
}
