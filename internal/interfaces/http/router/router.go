package router

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/fiscaldesk/backend/internal/infrastructure/auth"
	"github.com/fiscaldesk/backend/internal/infrastructure/config"
	"github.com/fiscaldesk/backend/internal/infrastructure/logger"
	"github.com/fiscaldesk/backend/internal/interfaces/http/middleware"
)

// RouteRegistrar defines the interface for registering routes
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// Config holds everything the router needs to assemble the HTTP surface
type Config struct {
	AppConfig      *config.Config
	Logger         *zap.Logger
	JWTService     *auth.JWTService
	TokenBlacklist auth.TokenBlacklist
	HealthHandler  gin.HandlerFunc
}

// Router manages HTTP route registration
type Router struct {
	engine     *gin.Engine
	apiVersion string
	registrars []RouteRegistrar
}

// RouterOption is a functional option for Router configuration
type RouterOption func(*Router)

// WithAPIVersion sets the API version prefix (e.g., "v1", "v2")
func WithAPIVersion(version string) RouterOption {
	return func(r *Router) {
		r.apiVersion = version
	}
}

// New assembles a gin engine with the full middleware chain and returns a
// Router ready for route registration
func New(cfg Config, opts ...RouterOption) *Router {
	if cfg.AppConfig != nil && cfg.AppConfig.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	if cfg.AppConfig != nil && len(cfg.AppConfig.HTTP.TrustedProxies) > 0 {
		_ = engine.SetTrustedProxies(cfg.AppConfig.HTTP.TrustedProxies)
	}

	engine.Use(middleware.RequestID())
	if cfg.AppConfig != nil {
		engine.Use(middleware.CORSWithConfig(middleware.CORSFromHTTPConfig(cfg.AppConfig.HTTP)))
	}
	if cfg.Logger != nil {
		engine.Use(logger.GinMiddleware(cfg.Logger))
		engine.Use(logger.Recovery(cfg.Logger))
	}
	if cfg.AppConfig != nil && cfg.AppConfig.Telemetry.Enabled {
		engine.Use(otelgin.Middleware(cfg.AppConfig.Telemetry.ServiceName))
	}

	if cfg.HealthHandler != nil {
		engine.GET("/health", cfg.HealthHandler)
	}

	if cfg.JWTService != nil {
		engine.Use(middleware.JWTAuth(middleware.JWTMiddlewareConfig{
			JWTService:     cfg.JWTService,
			TokenBlacklist: cfg.TokenBlacklist,
			SkipPaths: []string{
				"/health",
				"/api/v1/auth/login",
				"/api/v1/auth/refresh",
			},
			Logger: cfg.Logger,
		}))
	}

	r := &Router{
		engine:     engine,
		apiVersion: "v1",
		registrars: make([]RouteRegistrar, 0),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a RouteRegistrar to be registered later
func (r *Router) Register(registrar RouteRegistrar) *Router {
	r.registrars = append(r.registrars, registrar)
	return r
}

// Setup registers all routes under the versioned API group
func (r *Router) Setup() {
	api := r.engine.Group("/api/" + r.apiVersion)
	for _, registrar := range r.registrars {
		registrar.RegisterRoutes(api)
	}
}

// Engine returns the underlying gin engine
func (r *Router) Engine() *gin.Engine {
	return r.engine
}
