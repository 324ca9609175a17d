package repository

import (
	"context"

	"twopc_backend/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

type PurchaseRepository struct {
	db *pgxpool.Pool
}

func NewPurchaseRepository(db *pgxpool.Pool) *PurchaseRepository {
	return &PurchaseRepository{db: db}
}

const purchaseColumns = `id, buyer, phase_id, tokens::text, amount::text, currency, tx_hash, created_at`

// InsertPurchase records p once per tx hash; p is refreshed from the stored
// row so a replay returns the original event.
func (r *PurchaseRepository) InsertPurchase(ctx context.Context, p *domain.PurchaseEvent) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		INSERT INTO purchases (buyer, phase_id, tokens, amount, currency, tx_hash, created_at)
		VALUES ($1, $2, $3::numeric, $4::numeric, $5, $6, $7)
		ON CONFLICT (tx_hash) DO NOTHING
	`, p.Buyer, p.PhaseID, p.Tokens.String(), p.Amount.String(), string(p.Currency), p.TxHash, p.CreatedAt)
	if err != nil {
		return false, errors.Wrap(err, "insert purchase")
	}

	row := r.db.QueryRow(ctx, `SELECT `+purchaseColumns+` FROM purchases WHERE tx_hash = $1`, p.TxHash)
	stored, err := scanPurchase(row)
	if err != nil {
		return false, errors.Wrap(err, "reload purchase")
	}
	*p = *stored
	return tag.RowsAffected() == 1, nil
}

func (r *PurchaseRepository) ListPurchases(ctx context.Context, limit int) ([]domain.PurchaseEvent, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+purchaseColumns+`
		FROM purchases
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "list purchases")
	}
	defer rows.Close()

	return scanPurchases(rows)
}

func (r *PurchaseRepository) PurchasesByBuyer(ctx context.Context, buyer string, limit int) ([]domain.PurchaseEvent, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+purchaseColumns+`
		FROM purchases
		WHERE buyer = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, buyer, limit)
	if err != nil {
		return nil, errors.Wrap(err, "purchases by buyer")
	}
	defer rows.Close()

	return scanPurchases(rows)
}

func scanPurchase(row pgx.Row) (*domain.PurchaseEvent, error) {
	var p domain.PurchaseEvent
	var tokens, amount, currency string
	if err := row.Scan(&p.ID, &p.Buyer, &p.PhaseID, &tokens, &amount, &currency, &p.TxHash, &p.CreatedAt); err != nil {
		return nil, err
	}
	var err error
	if p.Tokens, err = parseNumeric(tokens); err != nil {
		return nil, err
	}
	if p.Amount, err = parseNumeric(amount); err != nil {
		return nil, err
	}
	p.Currency = domain.Currency(currency)
	return &p, nil
}

func scanPurchases(rows pgx.Rows) ([]domain.PurchaseEvent, error) {
	var out []domain.PurchaseEvent
	for rows.Next() {
		p, err := scanPurchase(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan purchase")
		}
		out = append(out, *p)
	}
	return out, errors.Wrap(rows.Err(), "purchase rows")
}
