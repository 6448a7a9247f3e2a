package handler

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"voicevault-gateway/internal/adapter/http/dto"
	"voicevault-gateway/internal/adapter/http/middleware"
	"voicevault-gateway/internal/core/domain"
	"voicevault-gateway/internal/core/ports"
	"voicevault-gateway/pkg/apperror"
	"voicevault-gateway/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// ReplayHeader marks a response served from the idempotency cache.
const ReplayHeader = "Idempotent-Replayed"

const storeTimeout = 5 * time.Second

// CommandHandler handles the natural-language command endpoints.
type CommandHandler struct {
	pipeline ports.PipelineService
	parser   ports.CommandParser
	cache    ports.IdempotencyCache // nil = idempotent replay disabled
	ttl      time.Duration
	log      zerolog.Logger
}

// NewCommandHandler creates a new CommandHandler.
func NewCommandHandler(pipeline ports.PipelineService, parser ports.CommandParser, cache ports.IdempotencyCache, ttl time.Duration, log zerolog.Logger) *CommandHandler {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &CommandHandler{
		pipeline: pipeline,
		parser:   parser,
		cache:    cache,
		ttl:      ttl,
		log:      log,
	}
}

// Execute handles POST /api/v1/agents/execute.
func (h *CommandHandler) Execute(c *gin.Context) {
	var req dto.ExecuteCommandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	userID, ok := resolveUserID(c, req.UserID)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	key := c.GetHeader(middleware.HeaderIdempotencyKey)
	reserved := false
	if key != "" && h.cache != nil {
		if !dto.IsSafeID(key) {
			response.Error(c, apperror.Validation("invalid Idempotency-Key header"))
			return
		}
		key = idempotencyKey(userID, key)

		if h.replay(c, key, userID) {
			return
		}

		var err error
		reserved, err = h.cache.Reserve(ctx, key, h.ttl)
		if err != nil {
			response.Error(c, apperror.ErrCacheFailure(err))
			return
		}
		if !reserved {
			// A concurrent run may have stored its response since the first lookup.
			if h.replay(c, key, userID) {
				return
			}
			response.Error(c, apperror.ErrRequestInProgress())
			return
		}
	}

	outcome := h.pipeline.Run(ctx, req.Text, userID)
	status, body := dto.NewRunResponse(outcome)

	middleware.SetAuditDetails(c, runAuditDetails(body))
	response.JSON(c, status, body)

	if reserved {
		h.storeResponse(c, key, status, body, outcome.Status())
	}
}

// replay writes the stored response for key, if any. It reports whether a
// response was written, including the error response for a cache failure.
func (h *CommandHandler) replay(c *gin.Context, key, userID string) bool {
	stored, err := h.cache.Get(c.Request.Context(), key)
	if err != nil {
		response.Error(c, apperror.ErrCacheFailure(err))
		return true
	}
	if stored == nil {
		return false
	}
	h.log.Info().Str("user_id", userID).Int("status", stored.StatusCode).Msg("replaying stored command response")
	c.Header(ReplayHeader, "true")
	response.JSON(c, stored.StatusCode, stored.Body)
	return true
}

// storeResponse keeps the run for replay. Failed runs are released so the
// caller can retry them under the same key. It outlives a cancelled request
// so the reservation is never left behind.
func (h *CommandHandler) storeResponse(c *gin.Context, key string, status int, body dto.RunResponse, runStatus domain.RunStatus) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request.Context()), storeTimeout)
	defer cancel()

	if runStatus == domain.RunFailed {
		if err := h.cache.Release(ctx, key); err != nil {
			h.log.Warn().Err(err).Msg("failed to release idempotency key")
		}
		return
	}

	payload, err := json.Marshal(body)
	if err == nil {
		err = h.cache.Set(ctx, key, &domain.IdempotentResponse{
			StatusCode: status,
			Body:       payload,
			CreatedAt:  time.Now().UTC(),
		}, h.ttl)
	}
	if err != nil {
		h.log.Error().Err(err).Msg("failed to store command response")
		if relErr := h.cache.Release(ctx, key); relErr != nil {
			h.log.Warn().Err(relErr).Msg("failed to release idempotency key")
		}
	}
}

// Parse handles POST /api/v1/commands/parse.
func (h *CommandHandler) Parse(c *gin.Context) {
	var req dto.ParseCommandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	intent, err := h.parser.Parse(c.Request.Context(), req.Text)
	if err != nil {
		response.Error(c, apperror.ErrInvalidCommand(err.Error()))
		return
	}
	response.OK(c, intent)
}

// Check handles POST /api/v1/agents/check.
func (h *CommandHandler) Check(c *gin.Context) {
	var req dto.ParseCommandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	userID, ok := resolveUserID(c, "")
	if !ok {
		return
	}

	report, err := h.pipeline.Check(c.Request.Context(), req.Text, userID)
	if err != nil {
		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			response.Error(c, appErr)
			return
		}
		response.Error(c, apperror.ErrCheckFailed(err))
		return
	}

	response.OK(c, dto.CheckResponse{
		Intent:    report.Intent,
		Portfolio: report.Portfolio,
		Risk:      report.Risk,
		Security:  report.Security,
		Approved:  report.Approved(),
	})
}

// resolveUserID prefers the identity middleware's user id and falls back to
// the body. It writes the error response itself when the id is unusable.
func resolveUserID(c *gin.Context, fromBody string) (string, bool) {
	userID := middleware.UserID(c)
	if userID == "" && fromBody != "" {
		userID = fromBody
		c.Set(middleware.CtxUserID, userID)
	}
	if userID != "" && !dto.IsSafeID(userID) {
		response.Error(c, apperror.Validation("invalid user_id"))
		return "", false
	}
	return userID, true
}

func idempotencyKey(userID, key string) string {
	if userID == "" {
		userID = "anonymous"
	}
	return userID + ":" + key
}

func runAuditDetails(body dto.RunResponse) middleware.AuditDetails {
	fields := map[string]any{"outcome": body.Status}
	if body.Stage != "" {
		fields["stage"] = body.Stage
	}
	if len(body.Reasons) > 0 {
		fields["reasons"] = body.Reasons
	}
	if body.EchoIntent != nil && body.EchoIntent.Action != "" {
		fields["action"] = body.EchoIntent.Action
	}

	resourceID := body.TransactionID
	if resourceID == "" {
		resourceID = body.ChallengeID
	}
	return middleware.AuditDetails{ResourceID: resourceID, Fields: fields}
}
