package repository

import (
	"context"

	"twopc_backend/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

// referralLockKey serializes referrer assignment so the cycle check and the
// write see the same graph.
const referralLockKey int64 = 0x32504301

type WalletRepository struct {
	db *pgxpool.Pool
}

func NewWalletRepository(db *pgxpool.Pool) *WalletRepository {
	return &WalletRepository{db: db}
}

const walletColumns = `address, name, role, COALESCE(referrer, ''), created_at`

// CreateWallet inserts w unless the address exists; w is refreshed from the
// stored row.
func (r *WalletRepository) CreateWallet(ctx context.Context, w *domain.Wallet) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		INSERT INTO wallets (address, name, role)
		VALUES ($1, $2, $3)
		ON CONFLICT (address) DO NOTHING
	`, w.Address, w.Name, string(w.Role))
	if err != nil {
		return false, errors.Wrap(err, "insert wallet")
	}

	stored, err := r.GetWallet(ctx, w.Address)
	if err != nil {
		return false, err
	}
	if stored == nil {
		return false, errors.Errorf("wallet %s vanished after insert", w.Address)
	}
	*w = *stored
	return tag.RowsAffected() == 1, nil
}

// GetWallet returns (nil, nil) when the wallet is unknown
func (r *WalletRepository) GetWallet(ctx context.Context, address string) (*domain.Wallet, error) {
	row := r.db.QueryRow(ctx, `SELECT `+walletColumns+` FROM wallets WHERE address = $1`, address)
	w, err := scanWallet(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, errors.Wrap(err, "get wallet")
	}
	return w, nil
}

func (r *WalletRepository) CountWallets(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM wallets`).Scan(&n); err != nil {
		return 0, errors.Wrap(err, "count wallets")
	}
	return n, nil
}

func (r *WalletRepository) ListWallets(ctx context.Context, limit, offset int) ([]domain.Wallet, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+walletColumns+`
		FROM wallets
		ORDER BY created_at DESC, address
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, errors.Wrap(err, "list wallets")
	}
	defer rows.Close()

	return scanWallets(rows)
}

// AttachReferrer sets the referrer of wallet once. The registration lock is
// held for the whole transaction, so two concurrent attachments cannot both
// pass the cycle check.
func (r *WalletRepository) AttachReferrer(ctx context.Context, wallet, referrer string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "begin")
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, referralLockKey); err != nil {
		return errors.Wrap(err, "referral lock")
	}

	var current *string
	err = tx.QueryRow(ctx, `SELECT referrer FROM wallets WHERE address = $1 FOR UPDATE`, wallet).Scan(&current)
	if err == pgx.ErrNoRows {
		return errors.WithMessage(domain.ErrWalletNotFound, wallet)
	}
	if err != nil {
		return errors.Wrap(err, "load wallet")
	}
	if current != nil {
		return domain.ErrAlreadyRegistered
	}

	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM wallets WHERE address = $1)`, referrer).Scan(&exists); err != nil {
		return errors.Wrap(err, "load referrer")
	}
	if !exists {
		return errors.WithMessage(domain.ErrInvalidReferrer, "unknown referrer "+referrer)
	}

	// walking up from the referrer must not reach the wallet
	var cycle bool
	err = tx.QueryRow(ctx, `
		WITH RECURSIVE chain(address, referrer, path) AS (
			SELECT address, referrer, ARRAY[address]
			FROM wallets WHERE address = $1
			UNION ALL
			SELECT w.address, w.referrer, c.path || w.address
			FROM wallets w
			JOIN chain c ON w.address = c.referrer
			WHERE NOT w.address = ANY(c.path)
		)
		SELECT EXISTS (SELECT 1 FROM chain WHERE address = $2)
	`, referrer, wallet).Scan(&cycle)
	if err != nil {
		return errors.Wrap(err, "cycle check")
	}
	if cycle {
		return errors.WithMessage(domain.ErrInvalidReferrer, "referral cycle")
	}

	tag, err := tx.Exec(ctx, `
		UPDATE wallets SET referrer = $2
		WHERE address = $1 AND referrer IS NULL
	`, wallet, referrer)
	if err != nil {
		return errors.Wrap(err, "set referrer")
	}
	if tag.RowsAffected() != 1 {
		return domain.ErrAlreadyRegistered
	}

	return errors.Wrap(tx.Commit(ctx), "commit")
}

// Ancestors walks the referrer chain upward, nearest first. The path guard
// stops the walk if the stored graph ever contains a cycle.
func (r *WalletRepository) Ancestors(ctx context.Context, wallet string, maxLevels int) ([]string, error) {
	rows, err := r.db.Query(ctx, `
		WITH RECURSIVE up(address, depth, path) AS (
			SELECT referrer, 1, ARRAY[address, referrer]
			FROM wallets
			WHERE address = $1 AND referrer IS NOT NULL
			UNION ALL
			SELECT w.referrer, u.depth + 1, u.path || w.referrer
			FROM wallets w
			JOIN up u ON w.address = u.address
			WHERE w.referrer IS NOT NULL
			  AND u.depth < $2
			  AND NOT w.referrer = ANY(u.path)
		)
		SELECT address FROM up ORDER BY depth
	`, wallet, maxLevels)
	if err != nil {
		return nil, errors.Wrap(err, "ancestors")
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var a string
		if err := rows.Scan(&a); err != nil {
			return nil, errors.Wrap(err, "scan ancestor")
		}
		out = append(out, a)
	}
	return out, errors.Wrap(rows.Err(), "ancestors rows")
}

func (r *WalletRepository) ListChildren(ctx context.Context, wallet string) ([]domain.Wallet, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+walletColumns+`
		FROM wallets
		WHERE referrer = $1
		ORDER BY created_at, address
	`, wallet)
	if err != nil {
		return nil, errors.Wrap(err, "list children")
	}
	defer rows.Close()

	return scanWallets(rows)
}

func scanWallet(row pgx.Row) (*domain.Wallet, error) {
	var w domain.Wallet
	var role string
	if err := row.Scan(&w.Address, &w.Name, &role, &w.Referrer, &w.CreatedAt); err != nil {
		return nil, err
	}
	w.Role = domain.Role(role)
	return &w, nil
}

func scanWallets(rows pgx.Rows) ([]domain.Wallet, error) {
	var out []domain.Wallet
	for rows.Next() {
		w, err := scanWallet(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan wallet")
		}
		out = append(out, *w)
	}
	return out, errors.Wrap(rows.Err(), "wallet rows")
}
