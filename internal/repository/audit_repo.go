package repository

import (
	"context"
	"encoding/json"
	"time"

	"twopc_backend/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

// AuditRepository stores the append-only ledger audit trail
type AuditRepository struct {
	db *pgxpool.Pool
}

func NewAuditRepository(db *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{db: db}
}

const auditColumns = `id, wallet, action, category, details, ip, user_agent, created_at`

// Create appends log and fills its id. A zero CreatedAt takes the database
// clock.
func (r *AuditRepository) Create(ctx context.Context, log *domain.AuditLog) error {
	details, err := json.Marshal(log.Details)
	if err != nil || log.Details == nil {
		details = []byte("{}")
	}
	var at *time.Time
	if !log.CreatedAt.IsZero() {
		at = &log.CreatedAt
	}

	err = r.db.QueryRow(ctx, `
		INSERT INTO audit_logs (wallet, action, category, details, ip, user_agent, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, COALESCE($7, NOW()))
		RETURNING id, created_at
	`, log.Wallet, log.Action, log.Category, details, log.IP, log.UserAgent, at).Scan(&log.ID, &log.CreatedAt)
	return errors.Wrapf(err, "insert audit log %s", log.Action)
}

// GetByWallet returns the wallet's entries, newest first
func (r *AuditRepository) GetByWallet(ctx context.Context, wallet string, limit int) ([]*domain.AuditLog, error) {
	return r.list(ctx, `WHERE wallet = $2`, limit, wallet)
}

// GetRecent returns the newest entries across all wallets
func (r *AuditRepository) GetRecent(ctx context.Context, limit int) ([]*domain.AuditLog, error) {
	return r.list(ctx, ``, limit)
}

func (r *AuditRepository) list(ctx context.Context, where string, limit int, args ...any) ([]*domain.AuditLog, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+auditColumns+`
		FROM audit_logs `+where+`
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`, append([]any{limit}, args...)...)
	if err != nil {
		return nil, errors.Wrap(err, "query audit logs")
	}
	logs, err := pgx.CollectRows(rows, scanAuditLog)
	return logs, errors.Wrap(err, "scan audit logs")
}

func scanAuditLog(row pgx.CollectableRow) (*domain.AuditLog, error) {
	var log domain.AuditLog
	var details []byte
	if err := row.Scan(&log.ID, &log.Wallet, &log.Action, &log.Category, &details,
		&log.IP, &log.UserAgent, &log.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(details, &log.Details); err != nil || log.Details == nil {
		log.Details = map[string]interface{}{}
	}
	return &log, nil
}
