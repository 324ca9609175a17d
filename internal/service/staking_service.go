package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"twopc_backend/internal/domain"
	"twopc_backend/internal/logger"

	"github.com/shopspring/decimal"
)

// StakingService runs the plan registry and the stake lifecycle:
// creation, accrual, claim at maturity and emergency withdrawal.
type StakingService struct {
	plans       PlanStore
	stakes      StakeStore
	commissions *CommissionService
	verifier    TxVerifier
	balances    BalanceSource
	audit       *AuditService
	percents    []decimal.Decimal
	places      int32
	now         func() time.Time
}

// StakingConfig holds the staking commission and rounding policy
type StakingConfig struct {
	LevelPercents []decimal.Decimal
	Places        int32
}

func NewStakingService(plans PlanStore, stakes StakeStore, commissions *CommissionService, verifier TxVerifier, balances BalanceSource, audit *AuditService, cfg StakingConfig) *StakingService {
	places := cfg.Places
	if places <= 0 {
		places = domain.DefaultDecimals
	}
	return &StakingService{
		plans:       plans,
		stakes:      stakes,
		commissions: commissions,
		verifier:    verifier,
		balances:    balances,
		audit:       audit,
		percents:    cfg.LevelPercents,
		places:      places,
		now:         time.Now,
	}
}

// Plan term bounds, in basis points and days
const (
	MaxPlanAPR      = 1_000_000
	MaxPlanLockDays = 36_500
)

// PlanInput is the /staking/plan/create payload. ID < 0 lets the store
// assign the next plan id.
type PlanInput struct {
	ID       int64
	Title    string
	APR      int64
	LockDays int64
	MinStake string
	MaxStake string
	IsFixed  bool
	TxHash   string
}

func (s *StakingService) CreatePlan(ctx context.Context, admin string, in PlanInput) (*domain.StakingPlan, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title required", domain.ErrInvalidPlan)
	}
	if in.APR <= 0 || in.APR > MaxPlanAPR {
		return nil, fmt.Errorf("%w: apr must be in 1..%d", domain.ErrInvalidPlan, MaxPlanAPR)
	}
	if in.LockDays <= 0 || in.LockDays > MaxPlanLockDays {
		return nil, fmt.Errorf("%w: lock days must be in 1..%d", domain.ErrInvalidPlan, MaxPlanLockDays)
	}
	minStake, err := domain.ParsePositiveAmount(in.MinStake)
	if err != nil {
		return nil, fmt.Errorf("%w: min stake", domain.ErrInvalidPlan)
	}
	maxStake, err := domain.ParsePositiveAmount(in.MaxStake)
	if err != nil {
		return nil, fmt.Errorf("%w: max stake", domain.ErrInvalidPlan)
	}
	if maxStake.LessThan(minStake) {
		return nil, fmt.Errorf("%w: max stake below min stake", domain.ErrInvalidPlan)
	}
	var txHash string
	if in.TxHash != "" {
		if txHash, err = domain.NormalizeTxHash(in.TxHash); err != nil {
			return nil, err
		}
	}

	plan := &domain.StakingPlan{
		ID:        in.ID,
		Title:     title,
		APR:       in.APR,
		LockDays:  in.LockDays,
		MinStake:  minStake,
		MaxStake:  maxStake,
		IsFixed:   in.IsFixed,
		Active:    true,
		TxHash:    txHash,
		CreatedAt: s.now().UTC(),
	}
	created, err := s.plans.CreatePlan(ctx, plan)
	if err != nil {
		return nil, err
	}
	if created {
		s.audit.LogAdminAction(ctx, admin, domain.AuditActionPlanCreate, map[string]interface{}{
			"plan_id":   plan.ID,
			"apr":       plan.APR,
			"lock_days": plan.LockDays,
		})
	}
	return plan, nil
}

func (s *StakingService) ListPlans(ctx context.Context, onlyActive bool) ([]domain.StakingPlan, error) {
	return s.plans.ListPlans(ctx, onlyActive)
}

func (s *StakingService) SetPlanActive(ctx context.Context, admin string, id int64, active bool) (*domain.StakingPlan, error) {
	if err := s.plans.SetPlanActive(ctx, id, active); err != nil {
		return nil, err
	}
	plan, err := s.plans.GetPlan(ctx, id)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, domain.ErrPlanNotFound
	}
	s.audit.LogAdminAction(ctx, admin, domain.AuditActionPlanToggle, map[string]interface{}{
		"plan_id": id,
		"active":  active,
	})
	return plan, nil
}

// StakeInput is the /staking/stake payload
type StakeInput struct {
	Wallet string
	PlanID int64
	Amount string
	TxHash string
}

// StakeResult is a created stake and whether the call was a replay
type StakeResult struct {
	Stake       *domain.Stake            `json:"stake"`
	Commissions []domain.CommissionEntry `json:"commissions"`
	Replayed    bool                     `json:"replayed"`
}

// Stake records a confirmed stake. The lock terms are copied from the plan.
func (s *StakingService) Stake(ctx context.Context, in StakeInput) (*StakeResult, error) {
	wallet, err := domain.NormalizeAddress(in.Wallet)
	if err != nil {
		return nil, err
	}
	txHash, err := domain.NormalizeTxHash(in.TxHash)
	if err != nil {
		return nil, err
	}
	amount, err := domain.ParsePositiveAmount(in.Amount)
	if err != nil {
		return nil, err
	}
	amount = amount.Truncate(s.places)

	// A retry of a recorded stake must not depend on the plan or the
	// wallet balance, both of which change once the stake went through.
	prior, err := s.stakes.StakeByTx(ctx, txHash)
	if err != nil {
		return nil, err
	}
	if prior != nil {
		return s.replayStake(ctx, prior, wallet)
	}
	if err := s.commissions.CheckTx(ctx, domain.SourceStake, wallet, txHash); err != nil {
		return nil, err
	}

	plan, err := s.plans.GetPlan(ctx, in.PlanID)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, fmt.Errorf("%w: %d", domain.ErrPlanNotFound, in.PlanID)
	}
	if !plan.Active {
		return nil, domain.ErrPlanInactive
	}
	if amount.LessThan(plan.MinStake) {
		return nil, fmt.Errorf("%w: %s < %s", domain.ErrBelowMinimum, amount, plan.MinStake)
	}
	if plan.MaxStake.IsPositive() && amount.GreaterThan(plan.MaxStake) {
		return nil, fmt.Errorf("%w: %s > %s", domain.ErrAboveMaximum, amount, plan.MaxStake)
	}

	if s.verifier != nil {
		if err := s.verifier.VerifyTx(ctx, txHash); err != nil {
			return nil, err
		}
	}
	if s.balances != nil {
		bal, err := s.balances.BalanceOf(ctx, wallet)
		if err != nil {
			return nil, err
		}
		if bal.LessThan(amount) {
			return nil, fmt.Errorf("%w: balance %s", domain.ErrInsufficientBalance, bal)
		}
	}

	start := s.now().UTC()
	st := &domain.Stake{
		Wallet:    wallet,
		PlanID:    plan.ID,
		Principal: amount,
		APR:       plan.APR,
		LockDays:  plan.LockDays,
		StartAt:   start,
		UnlockAt:  start.Add(time.Duration(plan.LockDays) * domain.SecondsPerDay * time.Second),
		Status:    domain.StakeStatusActive,
		TxHash:    txHash,
		Reward:    decimal.Zero,
		Payout:    decimal.Zero,
	}
	created, err := s.stakes.CreateStake(ctx, st)
	if err != nil {
		return nil, err
	}
	if !created {
		return s.replayStake(ctx, st, wallet)
	}
	StakeTransitions.WithLabelValues(string(domain.StakeStatusActive)).Inc()
	s.audit.LogStakeChange(ctx, domain.AuditActionStake, st)
	logger.WithContext(ctx).Info("stake created",
		"wallet", wallet,
		"plan", plan.ID,
		"index", st.StakeIndex,
		"amount", amount.String(),
	)

	entries, _, err := s.distribute(ctx, st)
	if err != nil {
		return nil, err
	}
	return &StakeResult{Stake: st, Commissions: entries}, nil
}

// replayStake answers a retried stake with the stored row. The distribution
// is settled again from its marker, or for the first time when an earlier
// attempt stopped between the two writes.
func (s *StakingService) replayStake(ctx context.Context, st *domain.Stake, wallet string) (*StakeResult, error) {
	if st.Wallet != wallet {
		return nil, fmt.Errorf("%w: stake tx belongs to %s", domain.ErrDuplicateTx, st.Wallet)
	}
	entries, _, err := s.distribute(ctx, st)
	if err != nil {
		return nil, err
	}
	return &StakeResult{Stake: st, Commissions: entries, Replayed: true}, nil
}

func (s *StakingService) distribute(ctx context.Context, st *domain.Stake) ([]domain.CommissionEntry, bool, error) {
	return s.commissions.Distribute(ctx, domain.LedgerEvent{
		Kind:         domain.SourceStake,
		SourceWallet: st.Wallet,
		BaseAmount:   st.Principal,
		TxHash:       st.TxHash,
	}, s.percents)
}

// FinalizeInput identifies a stake and the tx that finalized it on chain
type FinalizeInput struct {
	Wallet     string
	StakeIndex int64
	TxHash     string
}

// Claim pays principal plus the full-term reward of a matured stake.
func (s *StakingService) Claim(ctx context.Context, in FinalizeInput) (*domain.Stake, error) {
	return s.finalize(ctx, in, domain.StakeStatusClaimed)
}

// EmergencyWithdraw returns the principal of an active stake and forfeits
// the reward, matured or not.
func (s *StakingService) EmergencyWithdraw(ctx context.Context, in FinalizeInput) (*domain.Stake, error) {
	return s.finalize(ctx, in, domain.StakeStatusWithdrawnPenalized)
}

func (s *StakingService) finalize(ctx context.Context, in FinalizeInput, status domain.StakeStatus) (*domain.Stake, error) {
	wallet, err := domain.NormalizeAddress(in.Wallet)
	if err != nil {
		return nil, err
	}
	txHash, err := domain.NormalizeTxHash(in.TxHash)
	if err != nil {
		return nil, err
	}
	if in.StakeIndex < 0 {
		return nil, fmt.Errorf("%w: index %d", domain.ErrStakeNotFound, in.StakeIndex)
	}

	st, err := s.stakes.GetStake(ctx, wallet, in.StakeIndex)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, fmt.Errorf("%w: %s #%d", domain.ErrStakeNotFound, wallet, in.StakeIndex)
	}
	if st.Status.Terminal() {
		return replayOrConflict(st, status, txHash)
	}

	now := s.now().UTC()
	reward := decimal.Zero
	if status == domain.StakeStatusClaimed {
		if !st.Matured(now) {
			return nil, fmt.Errorf("%w: unlocks at %s", domain.ErrNotMatured, st.UnlockAt.Format(time.RFC3339))
		}
		reward = s.FullReward(st)
	}

	if s.verifier != nil {
		if err := s.verifier.VerifyTx(ctx, txHash); err != nil {
			return nil, err
		}
	}

	out, err := s.stakes.FinalizeStake(ctx, StakeFinalization{
		Wallet:     wallet,
		StakeIndex: in.StakeIndex,
		Status:     status,
		Reward:     reward,
		Payout:     st.Principal.Add(reward),
		TxHash:     txHash,
		At:         now,
	})
	if errors.Is(err, domain.ErrAlreadyFinalized) {
		// lost a race; the winner may have been this same request
		cur, gerr := s.stakes.GetStake(ctx, wallet, in.StakeIndex)
		if gerr != nil {
			return nil, gerr
		}
		if cur == nil {
			return nil, err
		}
		return replayOrConflict(cur, status, txHash)
	}
	if err != nil {
		return nil, err
	}

	StakeTransitions.WithLabelValues(string(status)).Inc()
	action := domain.AuditActionClaim
	if status == domain.StakeStatusWithdrawnPenalized {
		action = domain.AuditActionEmergencyWithdraw
	}
	s.audit.LogStakeChange(ctx, action, out)
	logger.WithContext(ctx).Info("stake finalized",
		"wallet", wallet,
		"index", in.StakeIndex,
		"status", status,
		"payout", out.Payout.String(),
	)
	return out, nil
}

func replayOrConflict(st *domain.Stake, status domain.StakeStatus, txHash string) (*domain.Stake, error) {
	if st.Status == status && st.FinalizeTxHash == txHash {
		return st, nil
	}
	return nil, fmt.Errorf("%w: status %s", domain.ErrAlreadyFinalized, st.Status)
}

// FullReward is the reward paid on claim:
// principal * apr * lockDays / (10000 * 365), truncated.
func (s *StakingService) FullReward(st *domain.Stake) decimal.Decimal {
	return domain.SimpleInterest(st.Principal, st.APR, st.LockDays, s.places)
}

// Accrued returns the reward earned so far for display. It grows linearly
// over the lock period, is capped at the full-term reward and is zero once
// the stake was withdrawn with penalty.
func (s *StakingService) Accrued(st *domain.Stake, now time.Time) decimal.Decimal {
	switch st.Status {
	case domain.StakeStatusClaimed:
		return st.Reward
	case domain.StakeStatusWithdrawnPenalized:
		return decimal.Zero
	}
	full := s.FullReward(st)
	if st.Matured(now) {
		return full
	}
	elapsed := int64(now.Sub(st.StartAt) / time.Second)
	if elapsed <= 0 {
		return decimal.Zero
	}
	acc := domain.ProRataInterest(st.Principal, st.APR, elapsed, s.places)
	if acc.GreaterThan(full) {
		return full
	}
	return acc
}

// UserStakes returns the wallet's stakes with accrual computed now
func (s *StakingService) UserStakes(ctx context.Context, wallet string) ([]domain.StakeView, error) {
	addr, err := domain.NormalizeAddress(wallet)
	if err != nil {
		return nil, err
	}
	stakes, err := s.stakes.StakesByWallet(ctx, addr)
	if err != nil {
		return nil, err
	}

	now := s.now()
	out := make([]domain.StakeView, 0, len(stakes))
	for i := range stakes {
		st := stakes[i]
		out = append(out, domain.StakeView{
			Stake:   st,
			Accrued: s.Accrued(&st, now),
			Matured: st.Matured(now),
			Claimed: st.Status == domain.StakeStatusClaimed,
		})
	}
	return out, nil
}

// Rewards sums the wallet's active principal and its rewards so far
// (accrued on active stakes plus rewards already claimed).
func (s *StakingService) Rewards(ctx context.Context, wallet string) (*domain.RewardsSummary, error) {
	views, err := s.UserStakes(ctx, wallet)
	if err != nil {
		return nil, err
	}
	addr, _ := domain.NormalizeAddress(wallet)
	sum := &domain.RewardsSummary{
		Wallet:       addr,
		TotalStaked:  decimal.Zero,
		TotalRewards: decimal.Zero,
	}
	for _, v := range views {
		if v.Status == domain.StakeStatusActive {
			sum.TotalStaked = sum.TotalStaked.Add(v.Principal)
			sum.ActiveStakes++
		}
		sum.TotalRewards = sum.TotalRewards.Add(v.Accrued)
	}
	return sum, nil
}

// SetClock replaces the service clock
func (s *StakingService) SetClock(now func() time.Time) {
	s.now = now
}
