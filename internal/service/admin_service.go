package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"twopc_backend/internal/domain"
	"twopc_backend/internal/logger"
)

// AdminService provides admin statistics and the token send log
type AdminService struct {
	transfers TransferStore
	stats     StatsStore
	audit     *AuditService
	now       func() time.Time
}

// NewAdminService creates a new admin service
func NewAdminService(transfers TransferStore, stats StatsStore, audit *AuditService) *AdminService {
	return &AdminService{transfers: transfers, stats: stats, audit: audit, now: time.Now}
}

// GetStats returns platform statistics
func (s *AdminService) GetStats(ctx context.Context) (*domain.LedgerStats, error) {
	today := s.now().UTC().Truncate(24 * time.Hour)
	return s.stats.LedgerStats(ctx, today)
}

// TokenSendInput is the /staking/TokenSend payload
type TokenSendInput struct {
	Title   string
	Address string
	Amount  string
	TxHash  string
}

// TokenSendResult is a recorded token send
type TokenSendResult struct {
	Transfer *domain.TokenTransfer `json:"transfer"`
	Replayed bool                  `json:"replayed"`
}

// RecordTokenSend logs a token transfer the admin already sent on chain.
// Idempotent on the tx hash.
func (s *AdminService) RecordTokenSend(ctx context.Context, admin string, in TokenSendInput) (*TokenSendResult, error) {
	to, err := domain.NormalizeAddress(in.Address)
	if err != nil {
		return nil, err
	}
	amount, err := domain.ParsePositiveAmount(in.Amount)
	if err != nil {
		return nil, err
	}
	txHash, err := domain.NormalizeTxHash(in.TxHash)
	if err != nil {
		return nil, err
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = "Token transfer"
	}

	t := &domain.TokenTransfer{
		Title:     title,
		ToAddress: to,
		Amount:    amount,
		TxHash:    txHash,
		Meta:      map[string]any{"admin": admin},
		CreatedAt: s.now().UTC(),
	}
	inserted, err := s.transfers.InsertTokenTransfer(ctx, t)
	if err != nil {
		return nil, fmt.Errorf("record token send: %w", err)
	}
	if inserted {
		s.audit.LogAdminAction(ctx, admin, domain.AuditActionTokenSend, map[string]interface{}{
			"to":      to,
			"amount":  amount.String(),
			"tx_hash": txHash,
		})
		logger.WithContext(ctx).Info("token send recorded", "to", to, "amount", amount.String(), "tx_hash", txHash)
	}
	return &TokenSendResult{Transfer: t, Replayed: !inserted}, nil
}

// ListTokenSends returns recorded token sends, newest first
func (s *AdminService) ListTokenSends(ctx context.Context, limit int) ([]domain.TokenTransfer, error) {
	limit = pageSize(limit, 200)
	return s.transfers.ListTokenTransfers(ctx, limit)
}

// RecentAudit returns the latest audit entries, optionally for one wallet
func (s *AdminService) RecentAudit(ctx context.Context, wallet string, limit int) ([]*domain.AuditLog, error) {
	limit = pageSize(limit, 100)
	if wallet != "" {
		addr, err := domain.NormalizeAddress(wallet)
		if err != nil {
			return nil, err
		}
		return s.audit.GetWalletAuditLogs(ctx, addr, limit)
	}
	return s.audit.GetRecentLogs(ctx, limit)
}

// SetClock replaces the service clock
func (s *AdminService) SetClock(now func() time.Time) {
	s.now = now
}
