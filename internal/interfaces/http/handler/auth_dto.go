package handler

import (
	"time"

	"github.com/google/uuid"
)

// LoginRequest is the login request body
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RefreshTokenRequest is the token refresh request body. The token may
// also arrive via the refresh cookie, in which case the body is optional.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// LogoutRequest is the logout request body
type LogoutRequest struct {
	AllSessions bool `json:"all_sessions"`
}

// TokenResponse carries an issued token pair
type TokenResponse struct {
	AccessToken           string    `json:"access_token"`
	RefreshToken          string    `json:"refresh_token"`
	AccessTokenExpiresAt  time.Time `json:"access_token_expires_at"`
	RefreshTokenExpiresAt time.Time `json:"refresh_token_expires_at"`
	TokenType             string    `json:"token_type"`
}

// AuthUserResponse is the user payload returned by auth endpoints
type AuthUserResponse struct {
	ID             uuid.UUID `json:"id"`
	OrganizationID uuid.UUID `json:"organization_id"`
	Username       string    `json:"username"`
	DisplayName    string    `json:"display_name"`
	Email          string    `json:"email"`
	Role           string    `json:"role"`
	HasIBAN        bool      `json:"has_iban"`
}

// LoginResponse is the login response body
type LoginResponse struct {
	Token TokenResponse    `json:"token"`
	User  AuthUserResponse `json:"user"`
}

// RefreshTokenResponse is the token refresh response body
type RefreshTokenResponse struct {
	Token TokenResponse `json:"token"`
}

// LogoutResponse is the logout response body
type LogoutResponse struct {
	Message string `json:"message"`
}
