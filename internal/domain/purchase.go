package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Currency a purchase was paid in
type Currency string

const (
	CurrencyNative Currency = "BNB"
	CurrencyStable Currency = "USDT"
)

// ParseCurrency accepts the currency names the presale understands.
// Empty means the native coin.
func ParseCurrency(s string) (Currency, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "BNB", "NATIVE":
		return CurrencyNative, true
	case "USDT", "STABLE":
		return CurrencyStable, true
	default:
		return "", false
	}
}

// PurchaseEvent is a confirmed presale purchase
type PurchaseEvent struct {
	ID        int64           `db:"id" json:"id"`
	Buyer     string          `db:"buyer" json:"buyer"`
	PhaseID   int64           `db:"phase_id" json:"phaseId"`
	Tokens    decimal.Decimal `db:"tokens" json:"tokens"`
	Amount    decimal.Decimal `db:"amount" json:"amount"`
	Currency  Currency        `db:"currency" json:"currency"`
	TxHash    string          `db:"tx_hash" json:"txHash"`
	CreatedAt time.Time       `db:"created_at" json:"createdAt"`
}

// PurchaseResult is what recording a purchase produces
type PurchaseResult struct {
	Event       *PurchaseEvent    `json:"event"`
	Commissions []CommissionEntry `json:"commissions"`
	Replayed    bool              `json:"replayed"`
}

// IcoStage mirrors a presale phase
type IcoStage struct {
	ID          int64           `db:"id" json:"id"`
	PhaseIndex  int64           `db:"phase_index" json:"phaseIndex"`
	Title       string          `db:"title" json:"title"`
	Price       decimal.Decimal `db:"price" json:"price"`
	TotalTokens decimal.Decimal `db:"total_tokens" json:"totalTokens"`
	MinBuy      decimal.Decimal `db:"min_buy" json:"minBuy"`
	MaxBuy      decimal.Decimal `db:"max_buy" json:"maxBuy"`
	HardCap     decimal.Decimal `db:"hard_cap" json:"hardCap"`
	StartAt     time.Time       `db:"start_at" json:"start"`
	EndAt       time.Time       `db:"end_at" json:"end"`
	TxHash      string          `db:"tx_hash" json:"txHash,omitempty"`
	CreatedAt   time.Time       `db:"created_at" json:"createdAt"`
}

// ActiveAt reports whether the stage window contains t
func (s *IcoStage) ActiveAt(t time.Time) bool {
	return !t.Before(s.StartAt) && t.Before(s.EndAt)
}
