package repository

import (
	"context"
	"time"

	"twopc_backend/internal/domain"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

// StatsRepository computes the admin overview straight from the ledger
type StatsRepository struct {
	db *pgxpool.Pool
}

func NewStatsRepository(db *pgxpool.Pool) *StatsRepository {
	return &StatsRepository{db: db}
}

func (r *StatsRepository) LedgerStats(ctx context.Context, since time.Time) (*domain.LedgerStats, error) {
	stats := &domain.LedgerStats{}
	var tokensSold, commissionsPaid, totalStaked, rewardsClaimed, tokensSent string

	err := r.db.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM wallets),
			(SELECT COUNT(*) FROM wallets WHERE created_at >= $1),
			(SELECT COUNT(*) FROM wallets WHERE referrer IS NULL),
			(SELECT COUNT(*) FROM purchases),
			(SELECT COALESCE(SUM(tokens), 0)::text FROM purchases),
			(SELECT COUNT(*) FROM commissions),
			(SELECT COALESCE(SUM(amount), 0)::text FROM commissions),
			(SELECT COUNT(*) FROM stakes WHERE status = 'active'),
			(SELECT COALESCE(SUM(principal), 0)::text FROM stakes WHERE status = 'active'),
			(SELECT COALESCE(SUM(reward), 0)::text FROM stakes WHERE status = 'claimed'),
			(SELECT COUNT(*) FROM token_transfers),
			(SELECT COALESCE(SUM(amount), 0)::text FROM token_transfers)
	`, since).Scan(
		&stats.TotalWallets, &stats.WalletsToday, &stats.RootWallets,
		&stats.TotalPurchases, &tokensSold,
		&stats.CommissionCount, &commissionsPaid,
		&stats.ActiveStakes, &totalStaked, &rewardsClaimed,
		&stats.TokenSends, &tokensSent,
	)
	if err != nil {
		return nil, errors.Wrap(err, "ledger stats")
	}

	if stats.TokensSold, err = parseNumeric(tokensSold); err != nil {
		return nil, err
	}
	if stats.CommissionsPaid, err = parseNumeric(commissionsPaid); err != nil {
		return nil, err
	}
	if stats.TotalStaked, err = parseNumeric(totalStaked); err != nil {
		return nil, err
	}
	if stats.RewardsClaimed, err = parseNumeric(rewardsClaimed); err != nil {
		return nil, err
	}
	if stats.TokensSent, err = parseNumeric(tokensSent); err != nil {
		return nil, err
	}
	return stats, nil
}
