package service_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"twopc_backend/internal/domain"
	"twopc_backend/internal/repository/memstore"
	"twopc_backend/internal/service"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func addr(n int) string { return fmt.Sprintf("0x%040x", n) }
func txh(n int) string  { return fmt.Sprintf("0x%064x", n) }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func percents(ps ...string) []decimal.Decimal {
	out := make([]decimal.Decimal, len(ps))
	for i, p := range ps {
		out[i] = dec(p)
	}
	return out
}

var epoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

// clock is a settable time source shared by the services under test
type clock struct{ t time.Time }

func (c *clock) now() time.Time            { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

type recordingPublisher struct {
	mu        sync.Mutex
	published [][]domain.CommissionEntry
}

func (p *recordingPublisher) PublishCommissions(_ context.Context, entries []domain.CommissionEntry) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, entries)
}

type fakeVerifier struct {
	unconfirmed map[string]bool
}

func (v *fakeVerifier) VerifyTx(_ context.Context, txHash string) error {
	if v.unconfirmed[txHash] {
		return fmt.Errorf("%w: %s", domain.ErrTxNotConfirmed, txHash)
	}
	return nil
}

type fixedBalance decimal.Decimal

func (b fixedBalance) BalanceOf(context.Context, string) (decimal.Decimal, error) {
	return decimal.Decimal(b), nil
}

// tokenBalance is a balance the test moves between calls
type tokenBalance struct{ v decimal.Decimal }

func (b *tokenBalance) BalanceOf(context.Context, string) (decimal.Decimal, error) {
	return b.v, nil
}

type env struct {
	store       *memstore.Store
	clock       *clock
	publisher   *recordingPublisher
	audit       *service.AuditService
	referrals   *service.ReferralService
	commissions *service.CommissionService
	purchases   *service.PurchaseService
	ico         *service.IcoService
	staking     *service.StakingService
	admin       *service.AdminService
}

type envOption func(*envConfig)

type envConfig struct {
	referral service.ReferralConfig
	purchase service.PurchaseConfig
	staking  service.StakingConfig
	verifier service.TxVerifier
	balances service.BalanceSource
}

func withVerifier(v service.TxVerifier) envOption {
	return func(c *envConfig) { c.verifier = v }
}

func withBalances(b service.BalanceSource) envOption {
	return func(c *envConfig) { c.balances = b }
}

func withAdmins(wallets ...string) envOption {
	return func(c *envConfig) { c.referral.AdminWallets = append(c.referral.AdminWallets, wallets...) }
}

func withBasePaid() envOption {
	return func(c *envConfig) { c.purchase.BasePaid = true }
}

func newEnv(t *testing.T, opts ...envOption) *env {
	t.Helper()
	cfg := envConfig{
		referral: service.ReferralConfig{RequireReferrer: true, AdminWallets: []string{addr(0xad)}},
		purchase: service.PurchaseConfig{LevelPercents: percents("5", "3", "1")},
		staking:  service.StakingConfig{LevelPercents: percents("2", "1"), Places: 18},
	}
	for _, o := range opts {
		o(&cfg)
	}

	store := memstore.New()
	e := &env{
		store:     store,
		clock:     &clock{t: epoch},
		publisher: &recordingPublisher{},
	}
	e.audit = service.NewAuditService(store)
	e.referrals = service.NewReferralService(store, e.audit, service.NewJWTManager("secret", time.Hour), cfg.referral)
	e.commissions = service.NewCommissionService(store, store, e.publisher, 18)
	e.purchases = service.NewPurchaseService(store, store, e.commissions, cfg.verifier, e.audit, cfg.purchase)
	e.ico = service.NewIcoService(store, e.audit)
	e.staking = service.NewStakingService(store, store, e.commissions, cfg.verifier, cfg.balances, e.audit, cfg.staking)
	e.admin = service.NewAdminService(store, store, e.audit)

	e.referrals.SetClock(e.clock.now)
	e.commissions.SetClock(e.clock.now)
	e.purchases.SetClock(e.clock.now)
	e.ico.SetClock(e.clock.now)
	e.staking.SetClock(e.clock.now)
	return e
}

func (e *env) register(t *testing.T, wallet, referrer string) {
	t.Helper()
	_, err := e.referrals.Register(context.Background(), service.RegisterInput{Wallet: wallet, Referrer: referrer})
	require.NoError(t, err)
}

// chain registers addr(1) <- addr(2) <- ... <- addr(n)
func (e *env) chain(t *testing.T, n int) {
	t.Helper()
	e.register(t, addr(1), "")
	for i := 2; i <= n; i++ {
		e.register(t, addr(i), addr(i-1))
	}
}

func serviceRegister(wallet, name, referrer string) service.RegisterInput {
	return service.RegisterInput{Wallet: wallet, Name: name, Referrer: referrer}
}

func newSummary(e *env) *service.SummaryService {
	return service.NewSummaryService(e.referrals, e.commissions)
}
