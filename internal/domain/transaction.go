package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TokenTransfer is an admin token send recorded after it was mined
type TokenTransfer struct {
	ID        int64           `db:"id" json:"id"`
	Title     string          `db:"title" json:"title"`
	ToAddress string          `db:"to_address" json:"address"`
	Amount    decimal.Decimal `db:"amount" json:"amount"`
	TxHash    string          `db:"tx_hash" json:"txHash"`
	Meta      map[string]any  `db:"meta" json:"meta,omitempty"`
	CreatedAt time.Time       `db:"created_at" json:"createdAt"`
}

// LedgerStats is the admin dashboard overview
type LedgerStats struct {
	TotalWallets    int64           `json:"total_wallets"`
	WalletsToday    int64           `json:"wallets_today"`
	RootWallets     int64           `json:"root_wallets"`
	TotalPurchases  int64           `json:"total_purchases"`
	TokensSold      decimal.Decimal `json:"tokens_sold"`
	CommissionCount int64           `json:"commission_count"`
	CommissionsPaid decimal.Decimal `json:"commissions_paid"`
	ActiveStakes    int64           `json:"active_stakes"`
	TotalStaked     decimal.Decimal `json:"total_staked"`
	RewardsClaimed  decimal.Decimal `json:"rewards_claimed"`
	TokenSends      int64           `json:"token_sends"`
	TokensSent      decimal.Decimal `json:"tokens_sent"`
}
