package service

import (
	"context"
	"fmt"
	"time"

	"twopc_backend/internal/domain"
	"twopc_backend/internal/logger"

	"github.com/shopspring/decimal"
)

// PurchaseService records confirmed presale purchases and pays their
// referral commissions.
type PurchaseService struct {
	purchases   PurchaseStore
	stages      StageStore
	commissions *CommissionService
	verifier    TxVerifier
	audit       *AuditService
	percents    []decimal.Decimal
	basePaid    bool
	now         func() time.Time
}

// PurchaseConfig holds the commission policy for purchases
type PurchaseConfig struct {
	LevelPercents []decimal.Decimal
	// BasePaid computes commissions on the paid amount instead of the
	// token amount.
	BasePaid bool
}

func NewPurchaseService(purchases PurchaseStore, stages StageStore, commissions *CommissionService, verifier TxVerifier, audit *AuditService, cfg PurchaseConfig) *PurchaseService {
	return &PurchaseService{
		purchases:   purchases,
		stages:      stages,
		commissions: commissions,
		verifier:    verifier,
		audit:       audit,
		percents:    cfg.LevelPercents,
		basePaid:    cfg.BasePaid,
		now:         time.Now,
	}
}

// PurchaseInput is the /ico/purchase-complete payload
type PurchaseInput struct {
	Buyer    string
	PhaseID  int64
	Tokens   string
	Amount   string
	Currency string
	TxHash   string
}

// RecordPurchase stores a confirmed purchase and distributes its
// commissions. Reporting the same tx hash again returns the stored result
// with Replayed set.
func (s *PurchaseService) RecordPurchase(ctx context.Context, in PurchaseInput) (*domain.PurchaseResult, error) {
	ev, err := s.validate(ctx, in)
	if err != nil {
		return nil, err
	}

	if s.verifier != nil {
		if err := s.verifier.VerifyTx(ctx, ev.TxHash); err != nil {
			return nil, err
		}
	}

	if err := s.commissions.CheckTx(ctx, domain.SourcePurchase, ev.Buyer, ev.TxHash); err != nil {
		return nil, err
	}

	buyer := ev.Buyer
	inserted, err := s.purchases.InsertPurchase(ctx, ev)
	if err != nil {
		return nil, err
	}
	if !inserted && ev.Buyer != buyer {
		return nil, fmt.Errorf("%w: purchase tx belongs to %s", domain.ErrDuplicateTx, ev.Buyer)
	}
	if inserted {
		PurchasesRecorded.WithLabelValues(string(ev.Currency)).Inc()
	}

	// On a replay this returns what the marker settled. It distributes only
	// when an earlier attempt stopped between the two writes.
	base := ev.Tokens
	if s.basePaid {
		base = ev.Amount
	}
	entries, replayed, err := s.commissions.Distribute(ctx, domain.LedgerEvent{
		Kind:         domain.SourcePurchase,
		SourceWallet: ev.Buyer,
		BaseAmount:   base,
		TxHash:       ev.TxHash,
	}, s.percents)
	if err != nil {
		return nil, err
	}

	if inserted {
		s.audit.LogPurchase(ctx, ev, len(entries))
		logger.WithContext(ctx).Info("purchase recorded",
			"buyer", ev.Buyer,
			"phase", ev.PhaseID,
			"tokens", ev.Tokens.String(),
			"tx_hash", ev.TxHash,
		)
	}

	return &domain.PurchaseResult{
		Event:       ev,
		Commissions: entries,
		Replayed:    !inserted || replayed,
	}, nil
}

func (s *PurchaseService) validate(ctx context.Context, in PurchaseInput) (*domain.PurchaseEvent, error) {
	buyer, err := domain.NormalizeAddress(in.Buyer)
	if err != nil {
		return nil, err
	}
	txHash, err := domain.NormalizeTxHash(in.TxHash)
	if err != nil {
		return nil, err
	}
	tokens, err := domain.ParsePositiveAmount(in.Tokens)
	if err != nil {
		return nil, err
	}
	amount, err := domain.ParseAmount(in.Amount)
	if err != nil {
		return nil, err
	}
	currency, ok := domain.ParseCurrency(in.Currency)
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidCurrency, in.Currency)
	}
	if in.PhaseID < 0 {
		return nil, fmt.Errorf("%w: phase %d", domain.ErrInvalidStage, in.PhaseID)
	}

	if s.stages != nil {
		stages, err := s.stages.ListStages(ctx)
		if err != nil {
			return nil, err
		}
		// Phases created on chain before the registry existed are accepted.
		if len(stages) > 0 && !hasPhase(stages, in.PhaseID) {
			return nil, fmt.Errorf("%w: phase %d", domain.ErrStageNotFound, in.PhaseID)
		}
	}

	return &domain.PurchaseEvent{
		Buyer:     buyer,
		PhaseID:   in.PhaseID,
		Tokens:    tokens,
		Amount:    amount,
		Currency:  currency,
		TxHash:    txHash,
		CreatedAt: s.now().UTC(),
	}, nil
}

func hasPhase(stages []domain.IcoStage, phase int64) bool {
	for _, st := range stages {
		if st.PhaseIndex == phase {
			return true
		}
	}
	return false
}

// Purchases returns the latest purchases across all buyers
func (s *PurchaseService) Purchases(ctx context.Context, limit int) ([]domain.PurchaseEvent, error) {
	limit = pageSize(limit, 200)
	return s.purchases.ListPurchases(ctx, limit)
}

// PurchasesByWallet returns a buyer's purchases, newest first
func (s *PurchaseService) PurchasesByWallet(ctx context.Context, wallet string, limit int) ([]domain.PurchaseEvent, error) {
	addr, err := domain.NormalizeAddress(wallet)
	if err != nil {
		return nil, err
	}
	limit = pageSize(limit, 200)
	return s.purchases.PurchasesByBuyer(ctx, addr, limit)
}

// SetClock replaces the service clock
func (s *PurchaseService) SetClock(now func() time.Time) {
	s.now = now
}
