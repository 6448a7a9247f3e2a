package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"voicevault-gateway/internal/core/domain"
	"voicevault-gateway/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AuditDetails is what a handler records for the audit trail of a request.
type AuditDetails struct {
	ResourceID string
	Fields     map[string]any
}

// SetAuditDetails attaches audit details to the request. Requests with
// details are audited whatever their status: a rejected command is still
// a decision worth keeping.
func SetAuditDetails(c *gin.Context, details AuditDetails) {
	c.Set(CtxAuditDetails, details)
}

// AuditLog creates an audit middleware for the command and onboarding
// routes. Without handler details only 2xx responses are audited.
func AuditLog(auditSvc ports.AuditService) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		action, resourceType := mapRouteToAction(c.FullPath(), c.Request.Method)
		if action == "" {
			return
		}

		status := c.Writer.Status()
		var details AuditDetails
		if v, ok := c.Get(CtxAuditDetails); ok {
			details, _ = v.(AuditDetails)
		} else if status < http.StatusOK || status >= http.StatusMultipleChoices {
			return
		}

		fields := map[string]any{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     status,
			"request_id": c.GetString(CtxRequestID),
		}
		for k, v := range details.Fields {
			fields[k] = v
		}
		payload, _ := json.Marshal(fields)

		auditSvc.Log(c.Request.Context(), &domain.AuditLog{
			ID:           uuid.New(),
			UserID:       UserID(c),
			Action:       action,
			ResourceType: resourceType,
			ResourceID:   details.ResourceID,
			IPAddress:    c.ClientIP(),
			Details:      string(payload),
			CreatedAt:    time.Now().UTC(),
		})
	}
}

func mapRouteToAction(route, method string) (domain.AuditAction, string) {
	if method != http.MethodPost {
		return "", ""
	}
	switch route {
	case "/api/v1/agents/execute":
		return domain.AuditActionCommandExecute, "pipeline_run"
	case "/api/v1/wallet/create":
		return domain.AuditActionWalletCreate, "wallet"
	}
	return "", ""
}
