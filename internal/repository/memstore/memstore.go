// Package memstore is an in-memory implementation of the ledger stores.
// It backs the service tests and STORAGE=memory development runs. A single
// mutex serializes every operation, which gives the same atomicity the
// Postgres repositories get from transactions and advisory locks.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"twopc_backend/internal/domain"
	"twopc_backend/internal/service"

	"github.com/shopspring/decimal"
)

type stakeKey struct {
	wallet string
	index  int64
}

type commissionKey struct {
	txHash string
	level  int
}

type Store struct {
	mu sync.Mutex

	wallets    map[string]*domain.Wallet
	walletSeq  []string // insertion order
	children   map[string][]string
	purchases  []*domain.PurchaseEvent
	purchaseTx map[string]*domain.PurchaseEvent

	commissions   []*domain.CommissionEntry
	commissionKey map[commissionKey]*domain.CommissionEntry
	distributions map[string]*domain.Distribution

	plans      map[int64]*domain.StakingPlan
	planTx     map[string]int64
	stakes     map[stakeKey]*domain.Stake
	stakeTx    map[string]stakeKey
	finalizeTx map[string]stakeKey

	stages    []*domain.IcoStage
	transfers []*domain.TokenTransfer
	audit     []*domain.AuditLog

	nextID int64
	now    func() time.Time
}

func New() *Store {
	return &Store{
		wallets:       make(map[string]*domain.Wallet),
		children:      make(map[string][]string),
		purchaseTx:    make(map[string]*domain.PurchaseEvent),
		commissionKey: make(map[commissionKey]*domain.CommissionEntry),
		distributions: make(map[string]*domain.Distribution),
		plans:         make(map[int64]*domain.StakingPlan),
		planTx:        make(map[string]int64),
		stakes:        make(map[stakeKey]*domain.Stake),
		stakeTx:       make(map[string]stakeKey),
		finalizeTx:    make(map[string]stakeKey),
		now:           time.Now,
	}
}

var (
	_ service.WalletStore     = (*Store)(nil)
	_ service.CommissionStore = (*Store)(nil)
	_ service.PurchaseStore   = (*Store)(nil)
	_ service.PlanStore       = (*Store)(nil)
	_ service.StakeStore      = (*Store)(nil)
	_ service.StageStore      = (*Store)(nil)
	_ service.TransferStore   = (*Store)(nil)
	_ service.AuditStore      = (*Store)(nil)
	_ service.StatsStore      = (*Store)(nil)
)

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

// Wallets

func (s *Store) CreateWallet(_ context.Context, w *domain.Wallet) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cur, ok := s.wallets[w.Address]; ok {
		*w = *cur
		return false, nil
	}
	stored := *w
	stored.Referrer = ""
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = s.now().UTC()
	}
	s.wallets[w.Address] = &stored
	s.walletSeq = append(s.walletSeq, w.Address)
	*w = stored
	return true, nil
}

func (s *Store) GetWallet(_ context.Context, address string) (*domain.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.wallets[address]
	if !ok {
		return nil, nil
	}
	cp := *w
	return &cp, nil
}

func (s *Store) CountWallets(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.wallets), nil
}

// ListWallets returns wallets newest first
func (s *Store) ListWallets(_ context.Context, limit, offset int) ([]domain.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.Wallet
	for i := len(s.walletSeq) - 1 - offset; i >= 0 && len(out) < limit; i-- {
		out = append(out, *s.wallets[s.walletSeq[i]])
	}
	return out, nil
}

func (s *Store) AttachReferrer(_ context.Context, wallet, referrer string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.wallets[wallet]
	if !ok {
		return domain.ErrWalletNotFound
	}
	if w.Referrer != "" {
		return domain.ErrAlreadyRegistered
	}
	if _, ok := s.wallets[referrer]; !ok {
		return domain.ErrInvalidReferrer
	}
	// walking up from the referrer must not reach the wallet
	seen := map[string]bool{}
	for cur := referrer; cur != ""; cur = s.wallets[cur].Referrer {
		if cur == wallet || seen[cur] {
			return domain.ErrInvalidReferrer
		}
		seen[cur] = true
	}

	w.Referrer = referrer
	s.children[referrer] = append(s.children[referrer], wallet)
	return nil
}

func (s *Store) Ancestors(_ context.Context, wallet string, maxLevels int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.wallets[wallet]
	if !ok {
		return nil, nil
	}
	var out []string
	seen := map[string]bool{wallet: true}
	for cur := w.Referrer; cur != "" && len(out) < maxLevels; {
		if seen[cur] {
			break
		}
		seen[cur] = true
		out = append(out, cur)
		next, ok := s.wallets[cur]
		if !ok {
			break
		}
		cur = next.Referrer
	}
	return out, nil
}

func (s *Store) ListChildren(_ context.Context, wallet string) ([]domain.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kids := s.children[wallet]
	out := make([]domain.Wallet, 0, len(kids))
	for _, k := range kids {
		out = append(out, *s.wallets[k])
	}
	return out, nil
}

// Commissions

func (s *Store) CommissionsByTx(_ context.Context, txHash string) ([]domain.CommissionEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commissionsByTx(txHash), nil
}

func (s *Store) commissionsByTx(txHash string) []domain.CommissionEntry {
	var out []domain.CommissionEntry
	for _, e := range s.commissions {
		if e.TxHash == txHash {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Level < out[j].Level })
	return out
}

func (s *Store) GetDistribution(_ context.Context, txHash string) (*domain.Distribution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.distributions[txHash]
	if !ok {
		return nil, nil
	}
	cp := *d
	return &cp, nil
}

func (s *Store) RecordDistribution(_ context.Context, d *domain.Distribution, entries []domain.CommissionEntry) ([]domain.CommissionEntry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if prior, ok := s.distributions[d.TxHash]; ok {
		*d = *prior
		return s.commissionsByTx(d.TxHash), false, nil
	}
	for _, e := range entries {
		k := commissionKey{txHash: d.TxHash, level: e.Level}
		if _, dup := s.commissionKey[k]; dup {
			return nil, false, domain.ErrDuplicateTx
		}
	}

	marker := *d
	s.distributions[d.TxHash] = &marker
	for _, e := range entries {
		stored := e
		stored.ID = s.id()
		stored.TxHash = d.TxHash
		stored.SourceName = ""
		s.commissions = append(s.commissions, &stored)
		s.commissionKey[commissionKey{txHash: d.TxHash, level: e.Level}] = &stored
	}
	return s.commissionsByTx(d.TxHash), true, nil
}

func (s *Store) CommissionsByTarget(_ context.Context, wallet string, limit int) ([]domain.CommissionEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.CommissionEntry
	for i := len(s.commissions) - 1; i >= 0 && len(out) < limit; i-- {
		if s.commissions[i].TargetWallet == wallet {
			out = append(out, *s.commissions[i])
		}
	}
	return out, nil
}

func (s *Store) CommissionTotals(_ context.Context, wallet string) ([]domain.LevelTotal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	byLevel := map[int]*domain.LevelTotal{}
	for _, e := range s.commissions {
		if e.TargetWallet != wallet {
			continue
		}
		t, ok := byLevel[e.Level]
		if !ok {
			t = &domain.LevelTotal{Level: e.Level, Amount: decimal.Zero}
			byLevel[e.Level] = t
		}
		t.Count++
		t.Amount = t.Amount.Add(e.Amount)
	}
	out := make([]domain.LevelTotal, 0, len(byLevel))
	for _, t := range byLevel {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Level < out[j].Level })
	return out, nil
}

// Purchases

func (s *Store) InsertPurchase(_ context.Context, p *domain.PurchaseEvent) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cur, ok := s.purchaseTx[p.TxHash]; ok {
		*p = *cur
		return false, nil
	}
	stored := *p
	stored.ID = s.id()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = s.now().UTC()
	}
	s.purchases = append(s.purchases, &stored)
	s.purchaseTx[p.TxHash] = &stored
	*p = stored
	return true, nil
}

func (s *Store) ListPurchases(_ context.Context, limit int) ([]domain.PurchaseEvent, error) {
	return s.purchasesWhere(limit, func(*domain.PurchaseEvent) bool { return true }), nil
}

func (s *Store) PurchasesByBuyer(_ context.Context, buyer string, limit int) ([]domain.PurchaseEvent, error) {
	return s.purchasesWhere(limit, func(p *domain.PurchaseEvent) bool { return p.Buyer == buyer }), nil
}

func (s *Store) purchasesWhere(limit int, keep func(*domain.PurchaseEvent) bool) []domain.PurchaseEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.PurchaseEvent
	for i := len(s.purchases) - 1; i >= 0 && len(out) < limit; i-- {
		if keep(s.purchases[i]) {
			out = append(out, *s.purchases[i])
		}
	}
	return out
}

// Plans

func (s *Store) CreatePlan(_ context.Context, p *domain.StakingPlan) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.TxHash != "" {
		if id, ok := s.planTx[p.TxHash]; ok {
			*p = *s.plans[id]
			return false, nil
		}
	}
	if p.ID < 0 {
		p.ID = 0
		for id := range s.plans {
			if id >= p.ID {
				p.ID = id + 1
			}
		}
	}
	if _, ok := s.plans[p.ID]; ok {
		return false, domain.ErrInvalidPlan
	}
	stored := *p
	s.plans[p.ID] = &stored
	if p.TxHash != "" {
		s.planTx[p.TxHash] = p.ID
	}
	return true, nil
}

func (s *Store) GetPlan(_ context.Context, id int64) (*domain.StakingPlan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.plans[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (s *Store) ListPlans(_ context.Context, onlyActive bool) ([]domain.StakingPlan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.StakingPlan
	for _, p := range s.plans {
		if onlyActive && !p.Active {
			continue
		}
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) SetPlanActive(_ context.Context, id int64, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.plans[id]
	if !ok {
		return domain.ErrPlanNotFound
	}
	p.Active = active
	return nil
}

// Stakes

func (s *Store) CreateStake(_ context.Context, st *domain.Stake) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if k, ok := s.stakeTx[st.TxHash]; ok {
		*st = *s.stakes[k]
		return false, nil
	}
	if _, ok := s.plans[st.PlanID]; !ok {
		return false, domain.ErrPlanNotFound
	}

	var next int64
	for k := range s.stakes {
		if k.wallet == st.Wallet && k.index >= next {
			next = k.index + 1
		}
	}
	stored := *st
	stored.ID = s.id()
	stored.StakeIndex = next
	k := stakeKey{wallet: st.Wallet, index: next}
	s.stakes[k] = &stored
	s.stakeTx[st.TxHash] = k
	*st = stored
	return true, nil
}

func (s *Store) StakeByTx(_ context.Context, txHash string) (*domain.Stake, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k, ok := s.stakeTx[txHash]
	if !ok {
		return nil, nil
	}
	cp := *s.stakes[k]
	return &cp, nil
}

func (s *Store) GetStake(_ context.Context, wallet string, index int64) (*domain.Stake, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.stakes[stakeKey{wallet: wallet, index: index}]
	if !ok {
		return nil, nil
	}
	cp := *st
	return &cp, nil
}

func (s *Store) FinalizeStake(_ context.Context, f service.StakeFinalization) (*domain.Stake, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := stakeKey{wallet: f.Wallet, index: f.StakeIndex}
	st, ok := s.stakes[k]
	if !ok {
		return nil, domain.ErrStakeNotFound
	}
	if st.Status != domain.StakeStatusActive {
		return nil, domain.ErrAlreadyFinalized
	}
	if other, used := s.finalizeTx[f.TxHash]; used && other != k {
		return nil, domain.ErrDuplicateTx
	}
	s.finalizeTx[f.TxHash] = k
	at := f.At
	st.Status = f.Status
	st.Reward = f.Reward
	st.Payout = f.Payout
	st.FinalizeTxHash = f.TxHash
	st.FinalizedAt = &at
	cp := *st
	return &cp, nil
}

func (s *Store) StakesByWallet(_ context.Context, wallet string) ([]domain.Stake, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.Stake
	for k, st := range s.stakes {
		if k.wallet == wallet {
			out = append(out, *st)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StakeIndex < out[j].StakeIndex })
	return out, nil
}

// Stages

func (s *Store) CreateStage(_ context.Context, st *domain.IcoStage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !st.StartAt.Before(st.EndAt) {
		return domain.ErrInvalidStage
	}
	st.ID = s.id()
	stored := *st
	s.stages = append(s.stages, &stored)
	return nil
}

func (s *Store) ListStages(_ context.Context) ([]domain.IcoStage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.IcoStage, 0, len(s.stages))
	for _, st := range s.stages {
		out = append(out, *st)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartAt.Before(out[j].StartAt) })
	return out, nil
}

// Token transfers

func (s *Store) InsertTokenTransfer(_ context.Context, t *domain.TokenTransfer) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, cur := range s.transfers {
		if cur.TxHash == t.TxHash {
			*t = *cur
			return false, nil
		}
	}
	t.ID = s.id()
	stored := *t
	s.transfers = append(s.transfers, &stored)
	return true, nil
}

func (s *Store) ListTokenTransfers(_ context.Context, limit int) ([]domain.TokenTransfer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.TokenTransfer
	for i := len(s.transfers) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, *s.transfers[i])
	}
	return out, nil
}

// Audit

func (s *Store) Create(_ context.Context, log *domain.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	log.ID = s.id()
	if log.CreatedAt.IsZero() {
		log.CreatedAt = s.now().UTC()
	}
	stored := *log
	s.audit = append(s.audit, &stored)
	return nil
}

func (s *Store) GetByWallet(_ context.Context, wallet string, limit int) ([]*domain.AuditLog, error) {
	return s.auditWhere(limit, func(l *domain.AuditLog) bool { return l.Wallet == wallet }), nil
}

func (s *Store) GetRecent(_ context.Context, limit int) ([]*domain.AuditLog, error) {
	return s.auditWhere(limit, func(*domain.AuditLog) bool { return true }), nil
}

func (s *Store) auditWhere(limit int, keep func(*domain.AuditLog) bool) []*domain.AuditLog {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*domain.AuditLog
	for i := len(s.audit) - 1; i >= 0 && len(out) < limit; i-- {
		if keep(s.audit[i]) {
			cp := *s.audit[i]
			out = append(out, &cp)
		}
	}
	return out
}

// Stats

func (s *Store) LedgerStats(_ context.Context, since time.Time) (*domain.LedgerStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := &domain.LedgerStats{
		TokensSold:      decimal.Zero,
		CommissionsPaid: decimal.Zero,
		TotalStaked:     decimal.Zero,
		RewardsClaimed:  decimal.Zero,
		TokensSent:      decimal.Zero,
	}
	for _, w := range s.wallets {
		st.TotalWallets++
		if !w.CreatedAt.Before(since) {
			st.WalletsToday++
		}
		if w.Referrer == "" {
			st.RootWallets++
		}
	}
	for _, p := range s.purchases {
		st.TotalPurchases++
		st.TokensSold = st.TokensSold.Add(p.Tokens)
	}
	for _, c := range s.commissions {
		st.CommissionCount++
		st.CommissionsPaid = st.CommissionsPaid.Add(c.Amount)
	}
	for _, sk := range s.stakes {
		switch sk.Status {
		case domain.StakeStatusActive:
			st.ActiveStakes++
			st.TotalStaked = st.TotalStaked.Add(sk.Principal)
		case domain.StakeStatusClaimed:
			st.RewardsClaimed = st.RewardsClaimed.Add(sk.Reward)
		}
	}
	for _, t := range s.transfers {
		st.TokenSends++
		st.TokensSent = st.TokensSent.Add(t.Amount)
	}
	return st, nil
}
