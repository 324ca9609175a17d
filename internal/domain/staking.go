package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// StakingPlan mirrors a plan created on the staking contract
type StakingPlan struct {
	ID        int64           `db:"id" json:"planId"`
	Title     string          `db:"title" json:"title"`
	APR       int64           `db:"apr" json:"apr"` // basis points
	LockDays  int64           `db:"lock_days" json:"lockDays"`
	MinStake  decimal.Decimal `db:"min_stake" json:"minStake"`
	MaxStake  decimal.Decimal `db:"max_stake" json:"maxStake"`
	IsFixed   bool            `db:"is_fixed" json:"isFixed"`
	Active    bool            `db:"active" json:"active"`
	TxHash    string          `db:"tx_hash" json:"txHash,omitempty"`
	CreatedAt time.Time       `db:"created_at" json:"createdAt"`
}

// StakeStatus is the lifecycle state of a stake
type StakeStatus string

const (
	StakeStatusActive             StakeStatus = "active"
	StakeStatusClaimed            StakeStatus = "claimed"
	StakeStatusWithdrawnPenalized StakeStatus = "withdrawn_penalized"
)

// Terminal reports whether no further transition is allowed
func (s StakeStatus) Terminal() bool {
	return s == StakeStatusClaimed || s == StakeStatusWithdrawnPenalized
}

// Stake is a wallet's position in a plan. APR and lock days are copied from
// the plan at creation.
type Stake struct {
	ID             int64           `db:"id" json:"id"`
	Wallet         string          `db:"wallet" json:"wallet"`
	PlanID         int64           `db:"plan_id" json:"planId"`
	StakeIndex     int64           `db:"stake_index" json:"stakeIndex"`
	Principal      decimal.Decimal `db:"principal" json:"amount"`
	APR            int64           `db:"apr" json:"apr"`
	LockDays       int64           `db:"lock_days" json:"lockDays"`
	StartAt        time.Time       `db:"start_at" json:"startAt"`
	UnlockAt       time.Time       `db:"unlock_at" json:"unlockAt"`
	Status         StakeStatus     `db:"status" json:"status"`
	TxHash         string          `db:"tx_hash" json:"txHash"`
	Reward         decimal.Decimal `db:"reward" json:"reward"`
	Payout         decimal.Decimal `db:"payout" json:"payout"`
	FinalizeTxHash string          `db:"finalize_tx_hash" json:"finalizeTxHash,omitempty"`
	FinalizedAt    *time.Time      `db:"finalized_at" json:"finalizedAt,omitempty"`
}

// Matured reports whether the lock period is over at now
func (s *Stake) Matured(now time.Time) bool {
	return !now.Before(s.UnlockAt)
}

// StakeView is a stake with the display accrual computed at read time
type StakeView struct {
	Stake
	Accrued decimal.Decimal `json:"accrued"`
	Matured bool            `json:"matured"`
	Claimed bool            `json:"claimed"`
}

// RewardsSummary is returned by the staking rewards endpoint
type RewardsSummary struct {
	Wallet       string          `json:"wallet"`
	TotalStaked  decimal.Decimal `json:"totalStaked"`
	TotalRewards decimal.Decimal `json:"totalRewards"`
	ActiveStakes int             `json:"activeStakes"`
}
