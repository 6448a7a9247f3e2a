package handler

import (
	"time"

	"voicevault-gateway/internal/adapter/http/middleware"
	"voicevault-gateway/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	Pipeline       ports.PipelineService
	Parser         ports.CommandParser
	WalletSvc      ports.WalletService
	TokenSvc       ports.TokenService
	IdemCache      ports.IdempotencyCache    // nil = idempotent replay disabled
	IdemTTL        time.Duration
	RateLimitStore middleware.RateLimitStore // nil = rate limiting disabled
	RateLimit      middleware.RateLimitRule
	AuditSvc       ports.AuditService        // nil = audit logging disabled
	HealthCheckers []ports.HealthChecker
	MaxBodyBytes   int64
	Mode           string
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	if deps.Mode != "" {
		gin.SetMode(deps.Mode)
	}
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(deps.Logger))
	if deps.MaxBodyBytes > 0 {
		r.Use(middleware.MaxBodySize(deps.MaxBodyBytes))
	}

	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	swagger := r.Group("/swagger")
	{
		swagger.GET("", SwaggerUI)
		swagger.GET("/spec", SwaggerSpec)
	}

	rl := func(group string) gin.HandlerFunc {
		if deps.RateLimitStore == nil || deps.RateLimit.Limit <= 0 {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, deps.RateLimit, deps.Logger)
	}

	v1 := r.Group("/api/v1", middleware.UserIdentity(deps.TokenSvc))
	if deps.AuditSvc != nil {
		v1.Use(middleware.AuditLog(deps.AuditSvc))
	}

	commandHandler := NewCommandHandler(deps.Pipeline, deps.Parser, deps.IdemCache, deps.IdemTTL, deps.Logger)
	agents := v1.Group("/agents", rl("commands"))
	{
		agents.POST("/execute", commandHandler.Execute)
		agents.POST("/check", commandHandler.Check)
	}
	v1.POST("/commands/parse", rl("commands"), commandHandler.Parse)

	if deps.WalletSvc != nil {
		walletHandler := NewWalletHandler(deps.WalletSvc)
		wallet := v1.Group("/wallet", rl("wallet"))
		{
			wallet.POST("/create", walletHandler.Create)
			wallet.GET("/status", walletHandler.Status)
			wallet.GET("/balance", walletHandler.Balance)
			wallet.GET("/transactions", walletHandler.Transactions)
			wallet.GET("/transactions/:id", walletHandler.Transaction)
			wallet.GET("/transactions/:id/status", walletHandler.TransferStatus)
		}
	}

	return r
}
