package repository

import (
	"context"

	"twopc_backend/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

type CommissionRepository struct {
	db *pgxpool.Pool
}

func NewCommissionRepository(db *pgxpool.Pool) *CommissionRepository {
	return &CommissionRepository{db: db}
}

const commissionColumns = `id, target_wallet, source_wallet, level, percent::text,
	base_amount::text, amount::text, source_kind, tx_hash, created_at`

func (r *CommissionRepository) CommissionsByTx(ctx context.Context, txHash string) ([]domain.CommissionEntry, error) {
	return commissionsByTx(ctx, r.db, txHash)
}

func commissionsByTx(ctx context.Context, q querier, txHash string) ([]domain.CommissionEntry, error) {
	rows, err := q.Query(ctx, `
		SELECT `+commissionColumns+`
		FROM commissions
		WHERE tx_hash = $1
		ORDER BY level
	`, txHash)
	if err != nil {
		return nil, errors.Wrap(err, "commissions by tx")
	}
	defer rows.Close()

	return scanCommissions(rows)
}

func (r *CommissionRepository) GetDistribution(ctx context.Context, txHash string) (*domain.Distribution, error) {
	d, err := distributionByTx(ctx, r.db, txHash)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return d, err
}

func distributionByTx(ctx context.Context, q querier, txHash string) (*domain.Distribution, error) {
	var d domain.Distribution
	var kind string
	err := q.QueryRow(ctx, `
		SELECT tx_hash, kind, source_wallet, entries, created_at
		FROM distributions
		WHERE tx_hash = $1
	`, txHash).Scan(&d.TxHash, &kind, &d.SourceWallet, &d.Entries, &d.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, err
		}
		return nil, errors.Wrap(err, "distribution by tx")
	}
	d.Kind = domain.SourceKind(kind)
	return &d, nil
}

// RecordDistribution writes the marker and the whole entry set in one
// transaction. The marker's primary key decides which of two concurrent
// distributions of the same tx wins; the loser reads the winner's rows.
func (r *CommissionRepository) RecordDistribution(ctx context.Context, d *domain.Distribution, entries []domain.CommissionEntry) ([]domain.CommissionEntry, bool, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, false, errors.Wrap(err, "begin")
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		INSERT INTO distributions (tx_hash, kind, source_wallet, entries, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (tx_hash) DO NOTHING
	`, d.TxHash, string(d.Kind), d.SourceWallet, d.Entries, d.CreatedAt)
	if err != nil {
		return nil, false, errors.Wrap(err, "insert distribution")
	}
	if tag.RowsAffected() == 0 {
		// ON CONFLICT waited for the winner to commit, so its rows are visible
		stored, err := distributionByTx(ctx, tx, d.TxHash)
		if err != nil {
			return nil, false, errors.Wrap(err, "stored distribution")
		}
		*d = *stored
		existing, err := commissionsByTx(ctx, tx, d.TxHash)
		return existing, false, err
	}

	for _, e := range entries {
		_, err := tx.Exec(ctx, `
			INSERT INTO commissions
				(target_wallet, source_wallet, level, percent, base_amount, amount, source_kind, tx_hash, created_at)
			VALUES ($1, $2, $3, $4::numeric, $5::numeric, $6::numeric, $7, $8, $9)
		`, e.TargetWallet, e.SourceWallet, e.Level, e.Percent.String(), e.BaseAmount.String(),
			e.Amount.String(), string(e.SourceKind), d.TxHash, e.CreatedAt)
		if err != nil {
			return nil, false, errors.Wrapf(err, "insert commission level %d", e.Level)
		}
	}

	stored, err := commissionsByTx(ctx, tx, d.TxHash)
	if err != nil {
		return nil, false, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, false, errors.Wrap(err, "commit")
	}
	return stored, true, nil
}

func (r *CommissionRepository) CommissionsByTarget(ctx context.Context, wallet string, limit int) ([]domain.CommissionEntry, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+commissionColumns+`
		FROM commissions
		WHERE target_wallet = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, wallet, limit)
	if err != nil {
		return nil, errors.Wrap(err, "commissions by target")
	}
	defer rows.Close()

	return scanCommissions(rows)
}

func (r *CommissionRepository) CommissionTotals(ctx context.Context, wallet string) ([]domain.LevelTotal, error) {
	rows, err := r.db.Query(ctx, `
		SELECT level, COUNT(*), COALESCE(SUM(amount), 0)::text
		FROM commissions
		WHERE target_wallet = $1
		GROUP BY level
		ORDER BY level
	`, wallet)
	if err != nil {
		return nil, errors.Wrap(err, "commission totals")
	}
	defer rows.Close()

	var out []domain.LevelTotal
	for rows.Next() {
		var t domain.LevelTotal
		var amount string
		if err := rows.Scan(&t.Level, &t.Count, &amount); err != nil {
			return nil, errors.Wrap(err, "scan total")
		}
		if t.Amount, err = parseNumeric(amount); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, errors.Wrap(rows.Err(), "total rows")
}

func scanCommissions(rows pgx.Rows) ([]domain.CommissionEntry, error) {
	var out []domain.CommissionEntry
	for rows.Next() {
		var e domain.CommissionEntry
		var percent, base, amount, kind string
		if err := rows.Scan(&e.ID, &e.TargetWallet, &e.SourceWallet, &e.Level, &percent,
			&base, &amount, &kind, &e.TxHash, &e.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scan commission")
		}
		var err error
		if e.Percent, err = parseNumeric(percent); err != nil {
			return nil, err
		}
		if e.BaseAmount, err = parseNumeric(base); err != nil {
			return nil, err
		}
		if e.Amount, err = parseNumeric(amount); err != nil {
			return nil, err
		}
		e.SourceKind = domain.SourceKind(kind)
		out = append(out, e)
	}
	return out, errors.Wrap(rows.Err(), "commission rows")
}
