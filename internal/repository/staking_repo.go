package repository

import (
	"context"
	"time"

	"twopc_backend/internal/domain"
	"twopc_backend/internal/service"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

// planLockKey serializes plan id allocation
const planLockKey int64 = 0x32504302

type StakingRepository struct {
	db *pgxpool.Pool
}

func NewStakingRepository(db *pgxpool.Pool) *StakingRepository {
	return &StakingRepository{db: db}
}

const planColumns = `id, title, apr, lock_days, min_stake::text, max_stake::text,
	is_fixed, active, COALESCE(tx_hash, ''), created_at`

// CreatePlan stores p. A negative p.ID takes the next free id, matching the
// contract's sequential plan ids. A known tx hash returns the stored plan.
func (r *StakingRepository) CreatePlan(ctx context.Context, p *domain.StakingPlan) (bool, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return false, errors.Wrap(err, "begin")
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, planLockKey); err != nil {
		return false, errors.Wrap(err, "plan lock")
	}

	if p.TxHash != "" {
		row := tx.QueryRow(ctx, `SELECT `+planColumns+` FROM staking_plans WHERE tx_hash = $1`, p.TxHash)
		stored, err := scanPlan(row)
		if err == nil {
			*p = *stored
			return false, nil
		}
		if err != pgx.ErrNoRows {
			return false, errors.Wrap(err, "plan by tx")
		}
	}

	if p.ID < 0 {
		if err := tx.QueryRow(ctx, `SELECT COALESCE(MAX(id), -1) + 1 FROM staking_plans`).Scan(&p.ID); err != nil {
			return false, errors.Wrap(err, "next plan id")
		}
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO staking_plans (id, title, apr, lock_days, min_stake, max_stake, is_fixed, active, tx_hash, created_at)
		VALUES ($1, $2, $3, $4, $5::numeric, $6::numeric, $7, $8, $9, $10)
	`, p.ID, p.Title, p.APR, p.LockDays, p.MinStake.String(), p.MaxStake.String(),
		p.IsFixed, p.Active, nullable(p.TxHash), p.CreatedAt)
	if err != nil {
		if pgCode(err) == pgUniqueViolation {
			return false, errors.WithMessagef(domain.ErrInvalidPlan, "plan %d already exists", p.ID)
		}
		return false, errors.Wrap(err, "insert plan")
	}

	return true, errors.Wrap(tx.Commit(ctx), "commit")
}

func (r *StakingRepository) GetPlan(ctx context.Context, id int64) (*domain.StakingPlan, error) {
	row := r.db.QueryRow(ctx, `SELECT `+planColumns+` FROM staking_plans WHERE id = $1`, id)
	p, err := scanPlan(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, errors.Wrap(err, "get plan")
	}
	return p, nil
}

func (r *StakingRepository) ListPlans(ctx context.Context, onlyActive bool) ([]domain.StakingPlan, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+planColumns+`
		FROM staking_plans
		WHERE active OR NOT $1
		ORDER BY id
	`, onlyActive)
	if err != nil {
		return nil, errors.Wrap(err, "list plans")
	}
	defer rows.Close()

	var out []domain.StakingPlan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan plan")
		}
		out = append(out, *p)
	}
	return out, errors.Wrap(rows.Err(), "plan rows")
}

func (r *StakingRepository) SetPlanActive(ctx context.Context, id int64, active bool) error {
	tag, err := r.db.Exec(ctx, `UPDATE staking_plans SET active = $2 WHERE id = $1`, id, active)
	if err != nil {
		return errors.Wrap(err, "set plan active")
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPlanNotFound
	}
	return nil
}

const stakeColumns = `id, wallet, plan_id, stake_index, principal::text, apr, lock_days,
	start_at, unlock_at, status, tx_hash, reward::text, payout::text,
	COALESCE(finalize_tx_hash, ''), finalized_at`

// CreateStake inserts s with the wallet's next stake index. Indexes are
// allocated under a per-wallet lock so they stay dense and match the
// contract's per-user stake array.
func (r *StakingRepository) CreateStake(ctx context.Context, s *domain.Stake) (bool, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return false, errors.Wrap(err, "begin")
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext('stake:' || $1))`, s.Wallet); err != nil {
		return false, errors.Wrap(err, "stake lock")
	}

	row := tx.QueryRow(ctx, `SELECT `+stakeColumns+` FROM stakes WHERE tx_hash = $1`, s.TxHash)
	stored, err := scanStake(row)
	if err == nil {
		*s = *stored
		return false, nil
	}
	if err != pgx.ErrNoRows {
		return false, errors.Wrap(err, "stake by tx")
	}

	if err := tx.QueryRow(ctx, `
		SELECT COALESCE(MAX(stake_index), -1) + 1 FROM stakes WHERE wallet = $1
	`, s.Wallet).Scan(&s.StakeIndex); err != nil {
		return false, errors.Wrap(err, "next stake index")
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO stakes (wallet, plan_id, stake_index, principal, apr, lock_days,
			start_at, unlock_at, status, tx_hash, reward, payout)
		VALUES ($1, $2, $3, $4::numeric, $5, $6, $7, $8, $9, $10, $11::numeric, $12::numeric)
		RETURNING id
	`, s.Wallet, s.PlanID, s.StakeIndex, s.Principal.String(), s.APR, s.LockDays,
		s.StartAt, s.UnlockAt, string(s.Status), s.TxHash, s.Reward.String(), s.Payout.String()).Scan(&s.ID)
	if err != nil {
		if pgCode(err) == pgForeignKeyViolation {
			return false, domain.ErrPlanNotFound
		}
		return false, errors.Wrap(err, "insert stake")
	}

	return true, errors.Wrap(tx.Commit(ctx), "commit")
}

func (r *StakingRepository) StakeByTx(ctx context.Context, txHash string) (*domain.Stake, error) {
	row := r.db.QueryRow(ctx, `SELECT `+stakeColumns+` FROM stakes WHERE tx_hash = $1`, txHash)
	s, err := scanStake(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, errors.Wrap(err, "stake by tx")
	}
	return s, nil
}

func (r *StakingRepository) GetStake(ctx context.Context, wallet string, index int64) (*domain.Stake, error) {
	row := r.db.QueryRow(ctx, `SELECT `+stakeColumns+` FROM stakes WHERE wallet = $1 AND stake_index = $2`, wallet, index)
	s, err := scanStake(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, errors.Wrap(err, "get stake")
	}
	return s, nil
}

// FinalizeStake moves an active stake to its terminal status. The status
// guard in the WHERE clause makes the transition happen at most once and
// the unique finalize_tx_hash keeps one tx from finalizing two stakes.
func (r *StakingRepository) FinalizeStake(ctx context.Context, f service.StakeFinalization) (*domain.Stake, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE stakes
		SET status = $3, reward = $4::numeric, payout = $5::numeric,
		    finalize_tx_hash = $6, finalized_at = $7
		WHERE wallet = $1 AND stake_index = $2 AND status = 'active'
		RETURNING `+stakeColumns,
		f.Wallet, f.StakeIndex, string(f.Status), f.Reward.String(), f.Payout.String(), f.TxHash, f.At)
	s, err := scanStake(row)
	if err == nil {
		return s, nil
	}
	if pgCode(err) == pgUniqueViolation {
		return nil, errors.WithMessagef(domain.ErrDuplicateTx, "finalize tx %s", f.TxHash)
	}
	if err != pgx.ErrNoRows {
		return nil, errors.Wrap(err, "finalize stake")
	}

	cur, err := r.GetStake(ctx, f.Wallet, f.StakeIndex)
	if err != nil {
		return nil, err
	}
	if cur == nil {
		return nil, domain.ErrStakeNotFound
	}
	return nil, domain.ErrAlreadyFinalized
}

func (r *StakingRepository) StakesByWallet(ctx context.Context, wallet string) ([]domain.Stake, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+stakeColumns+`
		FROM stakes
		WHERE wallet = $1
		ORDER BY stake_index
	`, wallet)
	if err != nil {
		return nil, errors.Wrap(err, "stakes by wallet")
	}
	defer rows.Close()

	var out []domain.Stake
	for rows.Next() {
		s, err := scanStake(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan stake")
		}
		out = append(out, *s)
	}
	return out, errors.Wrap(rows.Err(), "stake rows")
}

func scanPlan(row pgx.Row) (*domain.StakingPlan, error) {
	var p domain.StakingPlan
	var minStake, maxStake string
	if err := row.Scan(&p.ID, &p.Title, &p.APR, &p.LockDays, &minStake, &maxStake,
		&p.IsFixed, &p.Active, &p.TxHash, &p.CreatedAt); err != nil {
		return nil, err
	}
	var err error
	if p.MinStake, err = parseNumeric(minStake); err != nil {
		return nil, err
	}
	if p.MaxStake, err = parseNumeric(maxStake); err != nil {
		return nil, err
	}
	return &p, nil
}

func scanStake(row pgx.Row) (*domain.Stake, error) {
	var s domain.Stake
	var principal, reward, payout, status string
	var finalizedAt *time.Time
	if err := row.Scan(&s.ID, &s.Wallet, &s.PlanID, &s.StakeIndex, &principal, &s.APR, &s.LockDays,
		&s.StartAt, &s.UnlockAt, &status, &s.TxHash, &reward, &payout,
		&s.FinalizeTxHash, &finalizedAt); err != nil {
		return nil, err
	}
	var err error
	if s.Principal, err = parseNumeric(principal); err != nil {
		return nil, err
	}
	if s.Reward, err = parseNumeric(reward); err != nil {
		return nil, err
	}
	if s.Payout, err = parseNumeric(payout); err != nil {
		return nil, err
	}
	s.Status = domain.StakeStatus(status)
	s.FinalizedAt = finalizedAt
	return &s, nil
}
