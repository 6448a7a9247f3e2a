package postgres

import (
	"context"
	"fmt"

	"voicevault-gateway/internal/core/domain"
	"voicevault-gateway/pkg/apperror"

	"github.com/jackc/pgx/v5"
)

const defaultAuditListLimit = 50

// AuditRepo implements ports.AuditRepository.
type AuditRepo struct {
	pool Pool
}

// NewAuditRepository creates a PostgreSQL-backed AuditRepository.
func NewAuditRepository(pool Pool) *AuditRepo {
	return &AuditRepo{pool: pool}
}

// Create inserts one audit log row.
func (r *AuditRepo) Create(ctx context.Context, log *domain.AuditLog) error {
	var details any
	if log.Details != "" {
		details = log.Details
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO audit_logs (id, user_id, action, resource_type, resource_id, details, ip_address, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		log.ID, nullable(log.UserID), string(log.Action), log.ResourceType,
		nullable(log.ResourceID), details, log.IPAddress, log.CreatedAt,
	)
	if err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("inserting audit log: %w", err))
	}
	return nil
}

// ListByUser returns the user's most recent audit entries, newest first.
func (r *AuditRepo) ListByUser(ctx context.Context, userID string, limit int) ([]domain.AuditLog, error) {
	if limit <= 0 {
		limit = defaultAuditListLimit
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, COALESCE(user_id, ''), action, resource_type, COALESCE(resource_id, ''),
		        COALESCE(details::text, ''), COALESCE(ip_address, ''), created_at
		 FROM audit_logs WHERE user_id = $1
		 ORDER BY created_at DESC LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("querying audit logs: %w", err))
	}

	logs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.AuditLog, error) {
		var l domain.AuditLog
		var action string
		err := row.Scan(&l.ID, &l.UserID, &action, &l.ResourceType, &l.ResourceID, &l.Details, &l.IPAddress, &l.CreatedAt)
		l.Action = domain.AuditAction(action)
		return l, err
	})
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("scanning audit logs: %w", err))
	}
	return logs, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
