package repository

import (
	"context"
	"encoding/json"

	"twopc_backend/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

// TransactionRepository stores admin token sends
type TransactionRepository struct {
	db *pgxpool.Pool
}

func NewTransactionRepository(db *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{db: db}
}

const transferColumns = `id, title, to_address, amount::text, tx_hash, meta, created_at`

// InsertTokenTransfer records t once per tx hash
func (r *TransactionRepository) InsertTokenTransfer(ctx context.Context, t *domain.TokenTransfer) (bool, error) {
	metaJSON, err := json.Marshal(t.Meta)
	if err != nil || t.Meta == nil {
		metaJSON = []byte("{}")
	}

	tag, err := r.db.Exec(ctx, `
		INSERT INTO token_transfers (title, to_address, amount, tx_hash, meta, created_at)
		VALUES ($1, $2, $3::numeric, $4, $5, $6)
		ON CONFLICT (tx_hash) DO NOTHING
	`, t.Title, t.ToAddress, t.Amount.String(), t.TxHash, metaJSON, t.CreatedAt)
	if err != nil {
		return false, errors.Wrap(err, "insert token transfer")
	}

	row := r.db.QueryRow(ctx, `SELECT `+transferColumns+` FROM token_transfers WHERE tx_hash = $1`, t.TxHash)
	stored, err := scanTransfer(row)
	if err != nil {
		return false, errors.Wrap(err, "reload token transfer")
	}
	*t = *stored
	return tag.RowsAffected() == 1, nil
}

func (r *TransactionRepository) ListTokenTransfers(ctx context.Context, limit int) ([]domain.TokenTransfer, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+transferColumns+`
		FROM token_transfers
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "list token transfers")
	}
	defer rows.Close()

	var out []domain.TokenTransfer
	for rows.Next() {
		t, err := scanTransfer(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan token transfer")
		}
		out = append(out, *t)
	}
	return out, errors.Wrap(rows.Err(), "token transfer rows")
}

func scanTransfer(row pgx.Row) (*domain.TokenTransfer, error) {
	var t domain.TokenTransfer
	var amount string
	var metaJSON []byte
	if err := row.Scan(&t.ID, &t.Title, &t.ToAddress, &amount, &t.TxHash, &metaJSON, &t.CreatedAt); err != nil {
		return nil, err
	}
	var err error
	if t.Amount, err = parseNumeric(amount); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(metaJSON, &t.Meta); err != nil {
		t.Meta = make(map[string]any)
	}
	return &t, nil
}
