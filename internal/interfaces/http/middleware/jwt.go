package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fiscaldesk/backend/internal/domain/identity"
	"github.com/fiscaldesk/backend/internal/infrastructure/auth"
	"github.com/fiscaldesk/backend/internal/infrastructure/logger"
)

// Context keys for authenticated request data
const (
	JWTClaimsKey         = "jwt_claims"
	JWTUserIDKey         = "jwt_user_id"
	JWTOrganizationIDKey = "jwt_organization_id"
	JWTUsernameKey       = "jwt_username"
	PrincipalKey         = "principal"
)

// JWTMiddlewareConfig holds configuration for the JWT middleware
type JWTMiddlewareConfig struct {
	JWTService       *auth.JWTService
	TokenBlacklist   auth.TokenBlacklist
	SkipPaths        []string
	SkipPathPrefixes []string
	Logger           *zap.Logger
}

// JWTAuth returns a middleware that validates Bearer access tokens and
// resolves the authenticated principal into the request context
func JWTAuth(cfg JWTMiddlewareConfig) gin.HandlerFunc {
	skipPaths := make(map[string]struct{}, len(cfg.SkipPaths))
	for _, p := range cfg.SkipPaths {
		skipPaths[p] = struct{}{}
	}

	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if _, ok := skipPaths[path]; ok {
			c.Next()
			return
		}
		for _, prefix := range cfg.SkipPathPrefixes {
			if strings.HasPrefix(path, prefix) {
				c.Next()
				return
			}
		}

		tokenString, err := extractBearerToken(c)
		if err != nil {
			handleAuthError(c, cfg, err)
			return
		}

		claims, err := cfg.JWTService.ValidateAccessToken(tokenString)
		if err != nil {
			handleAuthError(c, cfg, err)
			return
		}

		if cfg.TokenBlacklist != nil {
			// Blacklist checks fail open: a broken Redis must not take
			// the whole API down with it.
			if claims.ID != "" {
				revoked, err := cfg.TokenBlacklist.IsBlacklisted(c.Request.Context(), claims.ID)
				if err != nil && cfg.Logger != nil {
					cfg.Logger.Error("Token blacklist check failed",
						zap.Error(err),
						zap.String("jti", claims.ID),
					)
				}
				if err == nil && revoked {
					handleAuthError(c, cfg, auth.ErrTokenBlacklisted)
					return
				}
			}

			invalidated, err := cfg.TokenBlacklist.IsUserTokenInvalidated(
				c.Request.Context(), claims.UserID, claims.GetIssuedAtTime())
			if err != nil && cfg.Logger != nil {
				cfg.Logger.Error("User token invalidation check failed",
					zap.Error(err),
					zap.String("user_id", claims.UserID),
				)
			}
			if err == nil && invalidated {
				handleAuthError(c, cfg, auth.ErrTokenBlacklisted)
				return
			}
		}

		principal, err := buildPrincipal(claims)
		if err != nil {
			handleAuthError(c, cfg, auth.ErrInvalidClaims)
			return
		}

		c.Set(JWTClaimsKey, claims)
		c.Set(JWTUserIDKey, claims.UserID)
		c.Set(JWTOrganizationIDKey, claims.OrganizationID)
		c.Set(JWTUsernameKey, claims.Username)
		c.Set(PrincipalKey, principal)

		// Also enrich the request context so log lines carry the caller
		ctx := c.Request.Context()
		log := logger.FromContext(ctx)
		ctx, _ = logger.WithUserID(ctx, log, claims.UserID)
		ctx, _ = logger.WithOrganizationID(ctx, log, claims.OrganizationID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// extractBearerToken pulls the access token out of the Authorization header
func extractBearerToken(c *gin.Context) (string, error) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", auth.ErrInvalidToken
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", auth.ErrInvalidToken
	}
	return parts[1], nil
}

// buildPrincipal converts validated claims into the domain principal
func buildPrincipal(claims *auth.Claims) (identity.Principal, error) {
	userID, err := claims.GetUserUUID()
	if err != nil {
		return identity.Principal{}, err
	}
	organizationID, err := claims.GetOrganizationUUID()
	if err != nil {
		return identity.Principal{}, err
	}
	return identity.Principal{
		UserID:         userID,
		OrganizationID: organizationID,
		Role:           identity.UserRole(claims.Role),
	}, nil
}

// handleAuthError aborts the request with a 401 carrying a stable error code
func handleAuthError(c *gin.Context, cfg JWTMiddlewareConfig, err error) {
	if cfg.Logger != nil {
		cfg.Logger.Warn("Authentication failed",
			zap.Error(err),
			zap.String("path", c.Request.URL.Path),
		)
	}

	code := "UNAUTHORIZED"
	message := "Authentication required"
	switch err {
	case auth.ErrExpiredToken:
		code = "TOKEN_EXPIRED"
		message = "Token has expired"
	case auth.ErrInvalidToken:
		code = "TOKEN_INVALID"
		message = "Invalid token"
	case auth.ErrInvalidTokenType:
		code = "TOKEN_INVALID"
		message = "Invalid token type"
	case auth.ErrTokenNotYetValid:
		code = "TOKEN_INVALID"
		message = "Token is not yet valid"
	case auth.ErrTokenBlacklisted:
		code = "TOKEN_INVALID"
		message = "Token has been revoked"
	}

	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

// GetJWTClaims retrieves JWT claims from gin.Context
func GetJWTClaims(c *gin.Context) *auth.Claims {
	if v, exists := c.Get(JWTClaimsKey); exists {
		if claims, ok := v.(*auth.Claims); ok {
			return claims
		}
	}
	return nil
}

// GetPrincipal retrieves the authenticated principal from gin.Context.
// The zero principal is returned for unauthenticated requests.
func GetPrincipal(c *gin.Context) identity.Principal {
	if v, exists := c.Get(PrincipalKey); exists {
		if p, ok := v.(identity.Principal); ok {
			return p
		}
	}
	return identity.Principal{}
}
