package identity

import (
	"time"

	"github.com/google/uuid"
)

// LoginInput contains the credentials for a login attempt
type LoginInput struct {
	Username string
	Password string
}

// UserInfo is the external representation of a user
type UserInfo struct {
	ID             uuid.UUID `json:"id"`
	OrganizationID uuid.UUID `json:"organization_id"`
	Username       string    `json:"username"`
	DisplayName    string    `json:"display_name"`
	Email          string    `json:"email"`
	Role           string    `json:"role"`
	HasIBAN        bool      `json:"has_iban"`
}

// LoginResult contains the tokens and user info returned on successful login
type LoginResult struct {
	AccessToken           string    `json:"access_token"`
	RefreshToken          string    `json:"refresh_token"`
	AccessTokenExpiresAt  time.Time `json:"access_token_expires_at"`
	RefreshTokenExpiresAt time.Time `json:"refresh_token_expires_at"`
	TokenType             string    `json:"token_type"`
	User                  UserInfo  `json:"user"`
}

// RefreshTokenInput contains the refresh token to exchange
type RefreshTokenInput struct {
	RefreshToken string
}

// RefreshTokenResult contains the new token pair
type RefreshTokenResult struct {
	AccessToken           string    `json:"access_token"`
	RefreshToken          string    `json:"refresh_token"`
	AccessTokenExpiresAt  time.Time `json:"access_token_expires_at"`
	RefreshTokenExpiresAt time.Time `json:"refresh_token_expires_at"`
	TokenType             string    `json:"token_type"`
}

// LogoutInput identifies the session being terminated
type LogoutInput struct {
	UserID      uuid.UUID
	AccessJTI   string
	AccessTTL   time.Duration
	AllSessions bool
}

// GetCurrentUserInput identifies the user to load
type GetCurrentUserInput struct {
	UserID uuid.UUID
}
