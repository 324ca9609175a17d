package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"twopc_backend/internal/domain"
	"twopc_backend/internal/logger"

	"github.com/shopspring/decimal"
)

// CommissionService distributes referral commissions up the referral chain
// and serves the earnings read models.
type CommissionService struct {
	wallets     WalletStore
	commissions CommissionStore
	publisher   Publisher
	places      int32
	now         func() time.Time
}

func NewCommissionService(wallets WalletStore, commissions CommissionStore, publisher Publisher, places int32) *CommissionService {
	if places <= 0 {
		places = domain.DefaultDecimals
	}
	return &CommissionService{
		wallets:     wallets,
		commissions: commissions,
		publisher:   publisher,
		places:      places,
		now:         time.Now,
	}
}

// SetClock replaces the clock used for entry timestamps
func (s *CommissionService) SetClock(now func() time.Time) {
	s.now = now
}

// Distribute writes one commission entry per ancestor level for ev.
// levelPercents[i] is the percent paid to the ancestor at level i+1.
// The entries are written together with a distribution marker, so a second
// call for the same tx hash returns what was settled the first time,
// possibly nothing, with replayed=true. A tx hash already settled for a
// different event fails with domain.ErrDuplicateTx.
func (s *CommissionService) Distribute(ctx context.Context, ev domain.LedgerEvent, levelPercents []decimal.Decimal) ([]domain.CommissionEntry, bool, error) {
	if ev.TxHash == "" {
		return nil, false, domain.ErrInvalidTxHash
	}
	if ev.BaseAmount.IsNegative() {
		return nil, false, fmt.Errorf("%w: negative base", domain.ErrInvalidAmount)
	}

	prior, err := s.commissions.GetDistribution(ctx, ev.TxHash)
	if err != nil {
		return nil, false, err
	}
	if prior != nil {
		return s.replay(ctx, prior, ev)
	}

	entries, err := s.plan(ctx, ev, levelPercents)
	if err != nil {
		return nil, false, err
	}

	marker := &domain.Distribution{
		TxHash:       ev.TxHash,
		Kind:         ev.Kind,
		SourceWallet: ev.SourceWallet,
		Entries:      len(entries),
		CreatedAt:    s.now().UTC(),
	}
	stored, written, err := s.commissions.RecordDistribution(ctx, marker, entries)
	if err != nil {
		return nil, false, err
	}
	if !written {
		// a concurrent call settled the tx first; marker holds its row
		if !marker.Matches(ev) {
			return nil, false, duplicateTx(marker)
		}
		DistributionReplays.WithLabelValues(string(ev.Kind)).Inc()
		return nonNil(stored), true, nil
	}

	for _, e := range stored {
		CommissionEntries.WithLabelValues(string(e.SourceKind), strconv.Itoa(e.Level)).Inc()
	}
	logger.WithContext(ctx).Info("commissions distributed",
		"tx_hash", ev.TxHash,
		"source", ev.SourceWallet,
		"kind", ev.Kind,
		"entries", len(stored),
	)
	if s.publisher != nil && len(stored) > 0 {
		s.publisher.PublishCommissions(ctx, stored)
	}
	return nonNil(stored), false, nil
}

func (s *CommissionService) replay(ctx context.Context, prior *domain.Distribution, ev domain.LedgerEvent) ([]domain.CommissionEntry, bool, error) {
	if !prior.Matches(ev) {
		return nil, false, duplicateTx(prior)
	}
	stored, err := s.commissions.CommissionsByTx(ctx, ev.TxHash)
	if err != nil {
		return nil, false, err
	}
	DistributionReplays.WithLabelValues(string(ev.Kind)).Inc()
	return nonNil(stored), true, nil
}

// CheckTx fails with domain.ErrDuplicateTx when txHash was already settled
// for an event other than (kind, wallet).
func (s *CommissionService) CheckTx(ctx context.Context, kind domain.SourceKind, wallet, txHash string) error {
	prior, err := s.commissions.GetDistribution(ctx, txHash)
	if err != nil {
		return err
	}
	if prior != nil && !prior.Matches(domain.LedgerEvent{Kind: kind, SourceWallet: wallet}) {
		return duplicateTx(prior)
	}
	return nil
}

func duplicateTx(d *domain.Distribution) error {
	return fmt.Errorf("%w: already used by %s of %s", domain.ErrDuplicateTx, d.Kind, d.SourceWallet)
}

func nonNil(entries []domain.CommissionEntry) []domain.CommissionEntry {
	if entries == nil {
		return []domain.CommissionEntry{}
	}
	return entries
}

// plan computes the entries for ev without writing them.
func (s *CommissionService) plan(ctx context.Context, ev domain.LedgerEvent, levelPercents []decimal.Decimal) ([]domain.CommissionEntry, error) {
	if len(levelPercents) == 0 || !ev.BaseAmount.IsPositive() {
		return nil, nil
	}

	chain, err := ancestors(ctx, s.wallets, ev.SourceWallet, len(levelPercents))
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	entries := make([]domain.CommissionEntry, 0, len(chain))
	for i, target := range chain {
		amount := domain.PercentOf(ev.BaseAmount, levelPercents[i], s.places)
		if !amount.IsPositive() {
			continue
		}
		entries = append(entries, domain.CommissionEntry{
			TargetWallet: target,
			SourceWallet: ev.SourceWallet,
			Level:        i + 1,
			Percent:      levelPercents[i],
			BaseAmount:   ev.BaseAmount,
			Amount:       amount,
			SourceKind:   ev.Kind,
			TxHash:       ev.TxHash,
			CreatedAt:    now,
		})
	}
	return entries, nil
}

// Earnings returns the wallet's commission records with totals per level.
func (s *CommissionService) Earnings(ctx context.Context, wallet string, limit int) (*domain.Earnings, error) {
	addr, err := domain.NormalizeAddress(wallet)
	if err != nil {
		return nil, err
	}
	limit = pageSize(limit, 100)

	records, err := s.commissions.CommissionsByTarget(ctx, addr, limit)
	if err != nil {
		return nil, err
	}
	if err := s.attachNames(ctx, records); err != nil {
		return nil, err
	}
	levels, err := s.commissions.CommissionTotals(ctx, addr)
	if err != nil {
		return nil, err
	}

	total := decimal.Zero
	for _, l := range levels {
		total = total.Add(l.Amount)
	}
	if records == nil {
		records = []domain.CommissionEntry{}
	}
	if levels == nil {
		levels = []domain.LevelTotal{}
	}
	return &domain.Earnings{Wallet: addr, Total: total, Levels: levels, Records: records}, nil
}

// TotalEarned sums every commission paid to wallet
func (s *CommissionService) TotalEarned(ctx context.Context, wallet string) (decimal.Decimal, error) {
	levels, err := s.commissions.CommissionTotals(ctx, wallet)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, l := range levels {
		total = total.Add(l.Amount)
	}
	return total, nil
}

func (s *CommissionService) attachNames(ctx context.Context, records []domain.CommissionEntry) error {
	names := make(map[string]string)
	for i := range records {
		src := records[i].SourceWallet
		name, ok := names[src]
		if !ok {
			w, err := s.wallets.GetWallet(ctx, src)
			if err != nil {
				return err
			}
			if w != nil {
				name = w.DisplayName()
			} else {
				name = src
			}
			names[src] = name
		}
		records[i].SourceName = name
	}
	return nil
}

// SummaryService joins the referral graph and the commission ledger into
// the dashboard summary.
type SummaryService struct {
	referrals   *ReferralService
	commissions *CommissionService
}

func NewSummaryService(referrals *ReferralService, commissions *CommissionService) *SummaryService {
	return &SummaryService{referrals: referrals, commissions: commissions}
}

func (s *SummaryService) Summary(ctx context.Context, wallet string) (*domain.ReferralSummary, error) {
	addr, err := domain.NormalizeAddress(wallet)
	if err != nil {
		return nil, err
	}
	direct, size, depth, err := s.referrals.NetworkStats(ctx, addr)
	if err != nil {
		return nil, err
	}
	income, err := s.commissions.TotalEarned(ctx, addr)
	if err != nil {
		return nil, err
	}
	return &domain.ReferralSummary{
		Wallet:              addr,
		DirectReferrals:     direct,
		NetworkSize:         size,
		NetworkDepth:        depth,
		TotalReferralIncome: income,
	}, nil
}
