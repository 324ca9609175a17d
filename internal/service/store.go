package service

import (
	"context"
	"time"

	"twopc_backend/internal/domain"

	"github.com/shopspring/decimal"
)

// Storage contracts the services depend on. The Postgres repositories in
// internal/repository and the in-memory store in internal/repository/memstore
// both satisfy them. Lookups return (nil, nil) when the row does not exist.

// MaxPageSize bounds every list query
const MaxPageSize = 500

// pageSize is def for a non-positive limit and at most MaxPageSize otherwise
func pageSize(limit, def int) int {
	if limit <= 0 {
		return def
	}
	return min(limit, MaxPageSize)
}

// WalletStore holds wallets and the referral graph.
type WalletStore interface {
	// CreateWallet inserts w if its address is unknown. It reports whether a
	// row was created and fills w with the stored row either way.
	CreateWallet(ctx context.Context, w *domain.Wallet) (bool, error)
	GetWallet(ctx context.Context, address string) (*domain.Wallet, error)
	CountWallets(ctx context.Context) (int, error)
	ListWallets(ctx context.Context, limit, offset int) ([]domain.Wallet, error)
	// AttachReferrer sets wallet's referrer atomically. It fails with
	// domain.ErrWalletNotFound, domain.ErrAlreadyRegistered or
	// domain.ErrInvalidReferrer (unknown referrer or cycle).
	AttachReferrer(ctx context.Context, wallet, referrer string) error
	// Ancestors returns up to maxLevels ancestors of wallet, nearest first.
	Ancestors(ctx context.Context, wallet string, maxLevels int) ([]string, error)
	ListChildren(ctx context.Context, wallet string) ([]domain.Wallet, error)
}

// CommissionStore is the commission ledger. Entries are unique on
// (tx_hash, level) and every settled tx hash has one distribution marker.
type CommissionStore interface {
	GetDistribution(ctx context.Context, txHash string) (*domain.Distribution, error)
	// RecordDistribution writes d and its entries atomically unless a
	// marker for d.TxHash exists. On a conflict d is filled with the stored
	// marker. It returns the stored entries and whether this call wrote them.
	RecordDistribution(ctx context.Context, d *domain.Distribution, entries []domain.CommissionEntry) ([]domain.CommissionEntry, bool, error)
	CommissionsByTx(ctx context.Context, txHash string) ([]domain.CommissionEntry, error)
	CommissionsByTarget(ctx context.Context, wallet string, limit int) ([]domain.CommissionEntry, error)
	CommissionTotals(ctx context.Context, wallet string) ([]domain.LevelTotal, error)
}

// PurchaseStore is the append-only purchase ledger.
type PurchaseStore interface {
	// InsertPurchase inserts p unless its tx hash is known. p is filled
	// with the stored row; the bool reports whether it was inserted.
	InsertPurchase(ctx context.Context, p *domain.PurchaseEvent) (bool, error)
	ListPurchases(ctx context.Context, limit int) ([]domain.PurchaseEvent, error)
	PurchasesByBuyer(ctx context.Context, buyer string, limit int) ([]domain.PurchaseEvent, error)
}

// PlanStore holds staking plans.
type PlanStore interface {
	// CreatePlan stores p, assigning the next id when p.ID < 0. Idempotent
	// on p.TxHash when set.
	CreatePlan(ctx context.Context, p *domain.StakingPlan) (bool, error)
	GetPlan(ctx context.Context, id int64) (*domain.StakingPlan, error)
	ListPlans(ctx context.Context, onlyActive bool) ([]domain.StakingPlan, error)
	SetPlanActive(ctx context.Context, id int64, active bool) error
}

// StakeStore holds stakes.
type StakeStore interface {
	// CreateStake assigns the wallet's next stake index and inserts s unless
	// s.TxHash is known. s is filled with the stored row.
	CreateStake(ctx context.Context, s *domain.Stake) (bool, error)
	StakeByTx(ctx context.Context, txHash string) (*domain.Stake, error)
	GetStake(ctx context.Context, wallet string, index int64) (*domain.Stake, error)
	// FinalizeStake moves an active stake to a terminal status. It fails
	// with domain.ErrAlreadyFinalized when the stake is no longer active and
	// with domain.ErrDuplicateTx when the tx hash finalized another stake.
	FinalizeStake(ctx context.Context, f StakeFinalization) (*domain.Stake, error)
	StakesByWallet(ctx context.Context, wallet string) ([]domain.Stake, error)
}

// StakeFinalization describes a terminal transition of one stake.
type StakeFinalization struct {
	Wallet     string
	StakeIndex int64
	Status     domain.StakeStatus
	Reward     decimal.Decimal
	Payout     decimal.Decimal
	TxHash     string
	At         time.Time
}

// StageStore holds ICO stages.
type StageStore interface {
	CreateStage(ctx context.Context, s *domain.IcoStage) error
	ListStages(ctx context.Context) ([]domain.IcoStage, error)
}

// TransferStore logs admin token sends.
type TransferStore interface {
	InsertTokenTransfer(ctx context.Context, t *domain.TokenTransfer) (bool, error)
	ListTokenTransfers(ctx context.Context, limit int) ([]domain.TokenTransfer, error)
}

// AuditStore persists audit logs.
type AuditStore interface {
	Create(ctx context.Context, log *domain.AuditLog) error
	GetByWallet(ctx context.Context, wallet string, limit int) ([]*domain.AuditLog, error)
	GetRecent(ctx context.Context, limit int) ([]*domain.AuditLog, error)
}

// TxVerifier confirms a reported transaction was mined successfully.
type TxVerifier interface {
	VerifyTx(ctx context.Context, txHash string) error
}

// BalanceSource reads a wallet's token balance from the token ledger.
type BalanceSource interface {
	BalanceOf(ctx context.Context, wallet string) (decimal.Decimal, error)
}

// Publisher pushes freshly written commission entries to listeners.
type Publisher interface {
	PublishCommissions(ctx context.Context, entries []domain.CommissionEntry)
}

// StatsStore aggregates the admin overview. since bounds the "today"
// counters.
type StatsStore interface {
	LedgerStats(ctx context.Context, since time.Time) (*domain.LedgerStats, error)
}
