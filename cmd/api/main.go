package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"voicevault-gateway/config"
	httpHandler "voicevault-gateway/internal/adapter/http/handler"
	"voicevault-gateway/internal/adapter/http/middleware"
	pgStorage "voicevault-gateway/internal/adapter/storage/postgres"
	redisStorage "voicevault-gateway/internal/adapter/storage/redis"
	"voicevault-gateway/internal/app"
	"voicevault-gateway/internal/core/ports"
	"voicevault-gateway/internal/service"
	"voicevault-gateway/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load(os.Getenv("VVG_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Str("executor", cfg.Pipeline.ExecutorMode).
		Str("portfolio", cfg.Pipeline.PortfolioSource).
		Msg("Starting VoiceVault Gateway")

	ctx := context.Background()

	// Key material: explicit keys win, the rest is derived from the master key
	aesKey, err := service.ResolveKey(cfg.Security.AESKey, cfg.Security.MasterKey, service.KeyPurposeResponseCache)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to resolve response cache key")
	}
	jwtSecret, err := service.ResolveKey(cfg.JWT.Secret, cfg.Security.MasterKey, service.KeyPurposeAccessToken)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to resolve access token key")
	}

	// Initialize PostgreSQL pool
	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()
	if err := pgStorage.EnsureSchema(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply audit schema")
	}
	log.Info().Msg("PostgreSQL connected")

	// Initialize Redis client
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("Redis connected")

	// Initialize core services
	encSvc, err := service.NewAESEncryptionService(aesKey)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize encryption service")
	}
	tokenSvc := service.NewJWTTokenService(jwtSecret, cfg.JWT.Expiry, cfg.JWT.Issuer)
	auditSvc := service.NewAuditService(pgStorage.NewAuditRepository(pool), log)

	// Wallet custodian and command pipeline
	custodian := app.NewCustodian(cfg.Circle, log)
	if custodian == nil {
		log.Warn().Msg("circle.api_key not set, wallet endpoints are disabled")
	}
	pipeline, err := app.NewPipeline(cfg, custodian, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build command pipeline")
	}

	var walletSvc ports.WalletService
	if custodian != nil {
		walletSvc = service.NewWalletService(custodian, tokenSvc, service.WalletServiceConfig{
			DefaultBlockchain: cfg.Circle.DefaultBlockchain,
			PollAttempts:      cfg.Circle.StatusPollAttempts,
			PollInterval:      cfg.Circle.StatusPollInterval,
		}, log)
	}

	// Load OpenAPI spec for Swagger UI
	if specBytes, err := os.ReadFile("docs/api/openapi.yaml"); err == nil {
		httpHandler.SetSwaggerSpec(specBytes)
		log.Info().Msg("OpenAPI spec loaded for Swagger UI at /swagger")
	} else {
		log.Warn().Err(err).Msg("OpenAPI spec not found, Swagger UI will be unavailable")
	}

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		Pipeline:       pipeline,
		Parser:         pipeline.Parser,
		WalletSvc:      walletSvc,
		TokenSvc:       tokenSvc,
		IdemCache:      redisStorage.NewIdempotencyCache(rdb, encSvc),
		IdemTTL:        cfg.Redis.IdempotencyTTL,
		RateLimitStore: redisStorage.NewRateLimitStore(rdb),
		RateLimit:      middleware.RateLimitRule{Limit: int64(cfg.RateLimit.Limit), Window: cfg.RateLimit.Window},
		AuditSvc:       auditSvc,
		HealthCheckers: []ports.HealthChecker{pgStorage.NewHealthCheck(pool), redisStorage.NewHealthCheck(rdb)},
		MaxBodyBytes:   cfg.Server.MaxBodyBytes,
		Mode:           cfg.Server.Mode,
		Logger:         log,
	})

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
