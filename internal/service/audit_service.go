package service

import (
	"context"

	"twopc_backend/internal/domain"
	"twopc_backend/internal/logger"
)

// AuditService handles audit logging
type AuditService struct {
	repo AuditStore
}

// NewAuditService creates a new audit service. A nil store disables auditing.
func NewAuditService(repo AuditStore) *AuditService {
	return &AuditService{repo: repo}
}

// Log creates a new audit log entry
func (s *AuditService) Log(ctx context.Context, wallet, action, category string, details map[string]interface{}) {
	if s == nil || s.repo == nil {
		return
	}
	log := &domain.AuditLog{
		Wallet:   wallet,
		Action:   action,
		Category: category,
		Details:  details,
	}

	if err := s.repo.Create(ctx, log); err != nil {
		logger.WithContext(ctx).Error("failed to create audit log", "error", err, "action", action, "wallet", wallet)
	}
}

// LogWithRequest creates an audit log with request info (IP, User-Agent)
func (s *AuditService) LogWithRequest(ctx context.Context, wallet, action, category, ip, userAgent string, details map[string]interface{}) {
	if s == nil || s.repo == nil {
		return
	}
	log := &domain.AuditLog{
		Wallet:    wallet,
		Action:    action,
		Category:  category,
		Details:   details,
		IP:        ip,
		UserAgent: userAgent,
	}

	if err := s.repo.Create(ctx, log); err != nil {
		logger.WithContext(ctx).Error("failed to create audit log", "error", err, "action", action, "wallet", wallet)
	}
}

// LogPurchase logs a recorded purchase
func (s *AuditService) LogPurchase(ctx context.Context, p *domain.PurchaseEvent, commissions int) {
	s.Log(ctx, p.Buyer, domain.AuditActionPurchase, domain.AuditCategoryPurchase, map[string]interface{}{
		"tx_hash":     p.TxHash,
		"phase_id":    p.PhaseID,
		"tokens":      p.Tokens.String(),
		"amount":      p.Amount.String(),
		"currency":    string(p.Currency),
		"commissions": commissions,
	})
}

// LogStakeChange logs a stake creation or finalization
func (s *AuditService) LogStakeChange(ctx context.Context, action string, st *domain.Stake) {
	details := map[string]interface{}{
		"stake_index": st.StakeIndex,
		"plan_id":     st.PlanID,
		"principal":   st.Principal.String(),
		"status":      string(st.Status),
		"tx_hash":     st.TxHash,
	}
	if st.FinalizeTxHash != "" {
		details["finalize_tx_hash"] = st.FinalizeTxHash
		details["reward"] = st.Reward.String()
		details["payout"] = st.Payout.String()
	}

	s.Log(ctx, st.Wallet, action, domain.AuditCategoryStaking, details)
}

// LogAdminAction logs an admin action
func (s *AuditService) LogAdminAction(ctx context.Context, admin, action string, details map[string]interface{}) {
	if details == nil {
		details = make(map[string]interface{})
	}
	details["admin"] = admin

	s.Log(ctx, admin, action, domain.AuditCategoryAdmin, details)
}

// LogLogin logs a wallet login
func (s *AuditService) LogLogin(ctx context.Context, wallet, ip, userAgent string) {
	s.LogWithRequest(ctx, wallet, domain.AuditActionLogin, domain.AuditCategoryAuth, ip, userAgent, nil)
}

// GetWalletAuditLogs returns audit logs for a wallet
func (s *AuditService) GetWalletAuditLogs(ctx context.Context, wallet string, limit int) ([]*domain.AuditLog, error) {
	if s == nil || s.repo == nil {
		return nil, nil
	}
	return s.repo.GetByWallet(ctx, wallet, limit)
}

// GetRecentLogs returns recent audit logs
func (s *AuditService) GetRecentLogs(ctx context.Context, limit int) ([]*domain.AuditLog, error) {
	if s == nil || s.repo == nil {
		return nil, nil
	}
	return s.repo.GetRecent(ctx, limit)
}
