package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	ProviderAnonymous = "anonymous"
	ProviderCustom    = "custom"
)

type Identity struct {
	ID         uuid.UUID `json:"id"`
	Provider   string    `json:"provider"`
	Subject    *string   `json:"subject,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	LastSeenAt time.Time `json:"last_seen_at"`
}

// SessionRequest is optional; an empty body yields an anonymous identity
// unless a bearer token is presented.
type SessionRequest struct {
	CustomToken  string `json:"custom_token,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

type AuthTokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

type SessionResponse struct {
	Ready    bool   `json:"ready"`
	Identity string `json:"identity"`
	Provider string `json:"provider,omitempty"`
	*AuthTokens
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type LogoutRequest struct {
	RefreshToken string `json:"refresh_token,omitempty"`
}

type LogoutResponse struct {
	Ready        bool          `json:"ready"`
	Profile      Profile       `json:"profile"`
	Notification *Notification `json:"notification,omitempty"`
}
