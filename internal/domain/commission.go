package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// SourceKind is the kind of event a commission was generated by
type SourceKind string

const (
	SourcePurchase SourceKind = "purchase"
	SourceStake    SourceKind = "stake"
)

// LedgerEvent is the input of commission distribution: a purchase or a stake
// creation reduced to what the engine needs.
type LedgerEvent struct {
	Kind         SourceKind
	SourceWallet string
	BaseAmount   decimal.Decimal
	TxHash       string
}

// Distribution marks an event whose commissions were settled. It is
// written with the entries, also when the event paid nothing, and pins
// the tx hash to one event kind and source wallet.
type Distribution struct {
	TxHash       string     `db:"tx_hash" json:"txHash"`
	Kind         SourceKind `db:"kind" json:"kind"`
	SourceWallet string     `db:"source_wallet" json:"sourceWallet"`
	Entries      int        `db:"entries" json:"entries"`
	CreatedAt    time.Time  `db:"created_at" json:"createdAt"`
}

// Matches reports whether ev is the event d was recorded for
func (d *Distribution) Matches(ev LedgerEvent) bool {
	return d.Kind == ev.Kind && d.SourceWallet == ev.SourceWallet
}

// CommissionEntry is one level's reward for one originating event.
// (TxHash, Level) is unique.
type CommissionEntry struct {
	ID           int64           `db:"id" json:"id"`
	TargetWallet string          `db:"target_wallet" json:"wallet"`
	SourceWallet string          `db:"source_wallet" json:"fromWallet"`
	SourceName   string          `db:"-" json:"fromName,omitempty"`
	Level        int             `db:"level" json:"level"`
	Percent      decimal.Decimal `db:"percent" json:"percent"`
	BaseAmount   decimal.Decimal `db:"base_amount" json:"baseAmount"`
	Amount       decimal.Decimal `db:"amount" json:"amount"`
	SourceKind   SourceKind      `db:"source_kind" json:"sourceKind"`
	TxHash       string          `db:"tx_hash" json:"txHash"`
	CreatedAt    time.Time       `db:"created_at" json:"timestamp"`
}

// LevelTotal aggregates earnings for one level
type LevelTotal struct {
	Level  int             `json:"level"`
	Count  int             `json:"count"`
	Amount decimal.Decimal `json:"amount"`
}

// Earnings is the referral income view of a wallet
type Earnings struct {
	Wallet  string            `json:"wallet"`
	Total   decimal.Decimal   `json:"totalEarned"`
	Levels  []LevelTotal      `json:"levels"`
	Records []CommissionEntry `json:"records"`
}

// ReferralSummary is the dashboard header of a wallet's network
type ReferralSummary struct {
	Wallet              string          `json:"wallet"`
	DirectReferrals     int             `json:"directReferrals"`
	NetworkSize         int             `json:"networkSize"`
	NetworkDepth        int             `json:"networkDepth"`
	TotalReferralIncome decimal.Decimal `json:"totalReferralIncome"`
}

// ReferralNode is one node of the referral tree view
type ReferralNode struct {
	Name     string          `json:"name"`
	Wallet   string          `json:"wallet"`
	Children []*ReferralNode `json:"children"`
}
