package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	identityapp "github.com/fiscaldesk/backend/internal/application/identity"
	receiptapp "github.com/fiscaldesk/backend/internal/application/receipt"
	"github.com/fiscaldesk/backend/internal/domain/billing"
	"github.com/fiscaldesk/backend/internal/infrastructure/auth"
	"github.com/fiscaldesk/backend/internal/infrastructure/config"
	"github.com/fiscaldesk/backend/internal/infrastructure/logger"
	"github.com/fiscaldesk/backend/internal/infrastructure/persistence"
	"github.com/fiscaldesk/backend/internal/infrastructure/printing"
	"github.com/fiscaldesk/backend/internal/infrastructure/storage"
	"github.com/fiscaldesk/backend/internal/infrastructure/telemetry"
	"github.com/fiscaldesk/backend/internal/interfaces/http/handler"
	"github.com/fiscaldesk/backend/internal/interfaces/http/router"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting receipt service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	ctx := context.Background()

	// Telemetry providers are no-ops when disabled
	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled && cfg.Telemetry.MetricsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize metrics", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := meterProvider.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down meter provider", zap.Error(err))
		}
	}()

	db, err := persistence.NewDatabase(cfg, log)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected")

	// Repositories
	receiptRepo := persistence.NewGormReceiptRepository(db.DB)
	invoiceRepo := persistence.NewGormInvoiceRepository(db.DB)
	customerRepo := persistence.NewGormCustomerRepository(db.DB)
	userRepo := persistence.NewGormUserRepository(db.DB)
	orgRepo := persistence.NewGormOrganizationRepository(db.DB)

	// Auth
	jwtService := auth.NewJWTService(cfg.JWT)
	var blacklist auth.TokenBlacklist
	if cfg.Redis.Host != "" {
		redisBlacklist, err := auth.NewRedisTokenBlacklist(auth.RedisTokenBlacklistConfig{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer func() {
			if err := redisBlacklist.Close(); err != nil {
				log.Error("Error closing Redis connection", zap.Error(err))
			}
		}()
		blacklist = redisBlacklist
		log.Info("Redis token blacklist enabled")
	} else {
		blacklist = auth.NewInMemoryTokenBlacklist()
		log.Warn("Redis not configured, using in-memory token blacklist")
	}

	// Document pipeline
	renderer := printing.NewChromeReceiptRenderer(cfg.Printing, log)
	defer renderer.Close()

	archive, err := storage.NewS3ArchiveStore(cfg.Storage, log)
	if err != nil {
		log.Fatal("Failed to initialize document storage", zap.Error(err))
	}
	if err := archive.EnsureBucket(ctx); err != nil {
		log.Fatal("Failed to ensure storage bucket", zap.Error(err))
	}

	// Application services
	authService := identityapp.NewAuthService(userRepo, jwtService, blacklist, log)
	receiptService := receiptapp.NewLifecycleService(
		receiptRepo,
		invoiceRepo,
		customerRepo,
		userRepo,
		orgRepo,
		billing.NewReceiptNumberGenerator(receiptRepo),
		renderer,
		archive,
	)

	// HTTP surface
	systemHandler := handler.NewSystemHandler(db, cfg.App.Name)
	r := router.New(router.Config{
		AppConfig:      cfg,
		Logger:         log,
		JWTService:     jwtService,
		TokenBlacklist: blacklist,
		HealthHandler:  systemHandler.Health,
	})
	r.Register(handler.NewAuthHandler(authService, cfg.Cookie, cfg.JWT))
	r.Register(handler.NewReceiptHandler(receiptService))
	r.Setup()

	runServer(cfg, r.Engine(), log)
}

// runServer starts the HTTP server and blocks until shutdown completes
func runServer(cfg *config.Config, engine *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
