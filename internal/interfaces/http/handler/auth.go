package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	appidentity "github.com/fiscaldesk/backend/internal/application/identity"
	"github.com/fiscaldesk/backend/internal/infrastructure/config"
	"github.com/fiscaldesk/backend/internal/interfaces/http/middleware"
)

// refreshCookieName is the cookie carrying the refresh token for browser clients
const refreshCookieName = "refresh_token"

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	BaseHandler
	authService *appidentity.AuthService
	cookieCfg   config.CookieConfig
	jwtCfg      config.JWTConfig
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *appidentity.AuthService, cookieCfg config.CookieConfig, jwtCfg config.JWTConfig) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		cookieCfg:   cookieCfg,
		jwtCfg:      jwtCfg,
	}
}

// RegisterRoutes registers the auth endpoints
func (h *AuthHandler) RegisterRoutes(rg *gin.RouterGroup) {
	auth := rg.Group("/auth")
	auth.POST("/login", h.Login)
	auth.POST("/refresh", h.RefreshToken)
	auth.POST("/logout", h.Logout)
	auth.GET("/me", h.GetCurrentUser)
}

// Login authenticates a user and issues a token pair
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body")
		return
	}

	result, err := h.authService.Login(c.Request.Context(), appidentity.LoginInput{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.setRefreshCookie(c, result.RefreshToken)

	h.Success(c, LoginResponse{
		Token: TokenResponse{
			AccessToken:           result.AccessToken,
			RefreshToken:          result.RefreshToken,
			AccessTokenExpiresAt:  result.AccessTokenExpiresAt,
			RefreshTokenExpiresAt: result.RefreshTokenExpiresAt,
			TokenType:             result.TokenType,
		},
		User: newAuthUserResponse(result.User),
	})
}

// RefreshToken rotates a refresh token into a fresh token pair. The token
// is taken from the request body, falling back to the refresh cookie.
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		h.BadRequest(c, "Invalid request body")
		return
	}
	if req.RefreshToken == "" {
		if cookie, err := c.Cookie(refreshCookieName); err == nil {
			req.RefreshToken = cookie
		}
	}
	if req.RefreshToken == "" {
		h.BadRequest(c, "Refresh token is required")
		return
	}

	result, err := h.authService.RefreshToken(c.Request.Context(), appidentity.RefreshTokenInput{
		RefreshToken: req.RefreshToken,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.setRefreshCookie(c, result.RefreshToken)

	h.Success(c, RefreshTokenResponse{
		Token: TokenResponse{
			AccessToken:           result.AccessToken,
			RefreshToken:          result.RefreshToken,
			AccessTokenExpiresAt:  result.AccessTokenExpiresAt,
			RefreshTokenExpiresAt: result.RefreshTokenExpiresAt,
			TokenType:             result.TokenType,
		},
	})
}

// Logout revokes the current session, or every session of the caller when
// all_sessions is set
func (h *AuthHandler) Logout(c *gin.Context) {
	claims := middleware.GetJWTClaims(c)
	if claims == nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req LogoutRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		h.BadRequest(c, "Invalid request body")
		return
	}

	userID, err := claims.GetUserUUID()
	if err != nil {
		h.BadRequest(c, "Invalid user ID in token")
		return
	}

	err = h.authService.Logout(c.Request.Context(), appidentity.LogoutInput{
		UserID:      userID,
		AccessJTI:   claims.ID,
		AccessTTL:   claims.GetRemainingTTL(),
		AllSessions: req.AllSessions,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.clearRefreshCookie(c)

	h.Success(c, LogoutResponse{Message: "Logged out successfully"})
}

// GetCurrentUser returns the authenticated user's profile
func (h *AuthHandler) GetCurrentUser(c *gin.Context) {
	claims := middleware.GetJWTClaims(c)
	if claims == nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	userID, err := claims.GetUserUUID()
	if err != nil {
		h.BadRequest(c, "Invalid user ID in token")
		return
	}

	info, err := h.authService.GetCurrentUser(c.Request.Context(), appidentity.GetCurrentUserInput{
		UserID: userID,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, newAuthUserResponse(*info))
}

func newAuthUserResponse(u appidentity.UserInfo) AuthUserResponse {
	return AuthUserResponse{
		ID:             u.ID,
		OrganizationID: u.OrganizationID,
		Username:       u.Username,
		DisplayName:    u.DisplayName,
		Email:          u.Email,
		Role:           u.Role,
		HasIBAN:        u.HasIBAN,
	}
}

func (h *AuthHandler) setRefreshCookie(c *gin.Context, token string) {
	c.SetSameSite(sameSiteFromString(h.cookieCfg.SameSite))
	c.SetCookie(
		refreshCookieName,
		token,
		int(h.jwtCfg.RefreshTokenExpiration.Seconds()),
		cookiePath(h.cookieCfg),
		h.cookieCfg.Domain,
		h.cookieCfg.Secure,
		true,
	)
}

func (h *AuthHandler) clearRefreshCookie(c *gin.Context) {
	c.SetSameSite(sameSiteFromString(h.cookieCfg.SameSite))
	c.SetCookie(refreshCookieName, "", -1, cookiePath(h.cookieCfg), h.cookieCfg.Domain, h.cookieCfg.Secure, true)
}

func cookiePath(cfg config.CookieConfig) string {
	if cfg.Path == "" {
		return "/"
	}
	return cfg.Path
}

func sameSiteFromString(s string) http.SameSite {
	switch s {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}
