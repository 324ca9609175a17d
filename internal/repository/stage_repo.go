package repository

import (
	"context"

	"twopc_backend/internal/domain"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

type StageRepository struct {
	db *pgxpool.Pool
}

func NewStageRepository(db *pgxpool.Pool) *StageRepository {
	return &StageRepository{db: db}
}

func (r *StageRepository) CreateStage(ctx context.Context, s *domain.IcoStage) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO ico_stages (phase_index, title, price, total_tokens, min_buy, max_buy,
			hard_cap, start_at, end_at, tx_hash, created_at)
		VALUES ($1, $2, $3::numeric, $4::numeric, $5::numeric, $6::numeric, $7::numeric, $8, $9, $10, $11)
		RETURNING id
	`, s.PhaseIndex, s.Title, s.Price.String(), s.TotalTokens.String(), s.MinBuy.String(),
		s.MaxBuy.String(), s.HardCap.String(), s.StartAt, s.EndAt, nullable(s.TxHash), s.CreatedAt).Scan(&s.ID)
	if err != nil {
		if pgCode(err) == pgCheckViolation {
			return errors.WithMessage(domain.ErrInvalidStage, "start must be before end")
		}
		return errors.Wrap(err, "insert stage")
	}
	return nil
}

func (r *StageRepository) ListStages(ctx context.Context) ([]domain.IcoStage, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, phase_index, title, price::text, total_tokens::text, min_buy::text,
		       max_buy::text, hard_cap::text, start_at, end_at, tx_hash, created_at
		FROM ico_stages
		ORDER BY start_at, id
	`)
	if err != nil {
		return nil, errors.Wrap(err, "list stages")
	}
	defer rows.Close()

	var out []domain.IcoStage
	for rows.Next() {
		var s domain.IcoStage
		var price, total, minBuy, maxBuy, hardCap string
		var txHash *string
		if err := rows.Scan(&s.ID, &s.PhaseIndex, &s.Title, &price, &total, &minBuy,
			&maxBuy, &hardCap, &s.StartAt, &s.EndAt, &txHash, &s.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scan stage")
		}
		if s.Price, err = parseNumeric(price); err != nil {
			return nil, err
		}
		if s.TotalTokens, err = parseNumeric(total); err != nil {
			return nil, err
		}
		if s.MinBuy, err = parseNumeric(minBuy); err != nil {
			return nil, err
		}
		if s.MaxBuy, err = parseNumeric(maxBuy); err != nil {
			return nil, err
		}
		if s.HardCap, err = parseNumeric(hardCap); err != nil {
			return nil, err
		}
		s.TxHash = deref(txHash)
		out = append(out, s)
	}
	return out, errors.Wrap(rows.Err(), "stage rows")
}
