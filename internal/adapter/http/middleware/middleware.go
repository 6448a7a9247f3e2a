package middleware

import (
	"net/http"
	"strings"
	"time"

	"voicevault-gateway/internal/core/ports"
	"voicevault-gateway/pkg/apperror"
	"voicevault-gateway/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	HeaderRequestID      = "X-Request-ID"
	HeaderIdempotencyKey = "Idempotency-Key"

	// Context keys
	CtxRequestID    = "request_id"
	CtxUserID       = "user_id"
	CtxAuditDetails = "audit_details"
)

// RequestID propagates the caller's X-Request-ID or assigns a new one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" || len(id) > 64 {
			id = uuid.New().String()
		}
		c.Set(CtxRequestID, id)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}

// UserIdentity resolves the caller's user id. A bearer token wins and must
// be valid; without one the user_id query parameter is used as is.
func UserIdentity(tokenSvc ports.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader != "" {
			tokenStr, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok || tokenSvc == nil {
				response.Error(c, apperror.ErrInvalidToken())
				c.Abort()
				return
			}
			claims, err := tokenSvc.Validate(tokenStr)
			if err != nil {
				response.Error(c, apperror.ErrInvalidToken())
				c.Abort()
				return
			}
			c.Set(CtxUserID, claims.UserID)
			c.Next()
			return
		}

		if userID := strings.TrimSpace(c.Query("user_id")); userID != "" {
			c.Set(CtxUserID, userID)
		}
		c.Next()
	}
}

// UserID returns the resolved user id, or "" if the caller is anonymous.
func UserID(c *gin.Context) string {
	return c.GetString(CtxUserID)
}

// RequestLogger creates a middleware that logs every HTTP request.
func RequestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		status := c.Writer.Status()

		event := log.Info()
		if status >= http.StatusInternalServerError {
			event = log.Error()
		} else if status >= http.StatusBadRequest {
			event = log.Warn()
		}

		event.
			Str("request_id", c.GetString(CtxRequestID)).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", latency).
			Str("client_ip", c.ClientIP()).
			Str("user_id", UserID(c)).
			Msg("http request")
	}
}

// Recovery creates a panic recovery middleware.
func Recovery(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Str("path", c.Request.URL.Path).Msg("panic recovered")
				response.Error(c, apperror.InternalError(nil))
				c.Abort()
			}
		}()
		c.Next()
	}
}
