package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"twopc_backend/internal/domain"

	"github.com/shopspring/decimal"
)

// IcoService keeps the registry of presale stages
type IcoService struct {
	stages StageStore
	audit  *AuditService
	now    func() time.Time
}

func NewIcoService(stages StageStore, audit *AuditService) *IcoService {
	return &IcoService{stages: stages, audit: audit, now: time.Now}
}

// StageInput is the /ico/create payload. Amounts are decimal strings.
type StageInput struct {
	Title       string
	PhaseIndex  int64
	Price       string
	TotalTokens string
	MinBuy      string
	MaxBuy      string
	HardCap     string
	StartAt     time.Time
	EndAt       time.Time
	TxHash      string
}

func (s *IcoService) CreateStage(ctx context.Context, admin string, in StageInput) (*domain.IcoStage, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title required", domain.ErrInvalidStage)
	}
	if in.PhaseIndex < 0 {
		return nil, fmt.Errorf("%w: negative phase index", domain.ErrInvalidStage)
	}
	price, err := domain.ParsePositiveAmount(in.Price)
	if err != nil {
		return nil, fmt.Errorf("%w: price", domain.ErrInvalidStage)
	}
	hardCap, err := domain.ParsePositiveAmount(in.HardCap)
	if err != nil {
		return nil, fmt.Errorf("%w: hard cap", domain.ErrInvalidStage)
	}
	total, err := optionalAmount(in.TotalTokens)
	if err != nil {
		return nil, fmt.Errorf("%w: total tokens", domain.ErrInvalidStage)
	}
	minBuy, err := optionalAmount(in.MinBuy)
	if err != nil {
		return nil, fmt.Errorf("%w: min buy", domain.ErrInvalidStage)
	}
	maxBuy, err := optionalAmount(in.MaxBuy)
	if err != nil {
		return nil, fmt.Errorf("%w: max buy", domain.ErrInvalidStage)
	}
	if minBuy.IsPositive() && maxBuy.IsPositive() && minBuy.GreaterThan(maxBuy) {
		return nil, fmt.Errorf("%w: min buy above max buy", domain.ErrInvalidStage)
	}
	if in.StartAt.IsZero() || in.EndAt.IsZero() || !in.StartAt.Before(in.EndAt) {
		return nil, fmt.Errorf("%w: start must be before end", domain.ErrInvalidStage)
	}

	var txHash string
	if in.TxHash != "" {
		txHash, err = domain.NormalizeTxHash(in.TxHash)
		if err != nil {
			return nil, err
		}
	}

	stage := &domain.IcoStage{
		PhaseIndex:  in.PhaseIndex,
		Title:       title,
		Price:       price,
		TotalTokens: total,
		MinBuy:      minBuy,
		MaxBuy:      maxBuy,
		HardCap:     hardCap,
		StartAt:     in.StartAt.UTC(),
		EndAt:       in.EndAt.UTC(),
		TxHash:      txHash,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.stages.CreateStage(ctx, stage); err != nil {
		return nil, err
	}

	s.audit.LogAdminAction(ctx, admin, domain.AuditActionStageCreate, map[string]interface{}{
		"stage_id":    stage.ID,
		"phase_index": stage.PhaseIndex,
		"title":       stage.Title,
	})
	return stage, nil
}

func (s *IcoService) ListStages(ctx context.Context) ([]domain.IcoStage, error) {
	return s.stages.ListStages(ctx)
}

// ActiveStages returns the stages whose window contains now
func (s *IcoService) ActiveStages(ctx context.Context) ([]domain.IcoStage, error) {
	all, err := s.stages.ListStages(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now()
	active := make([]domain.IcoStage, 0, len(all))
	for i := range all {
		if all[i].ActiveAt(now) {
			active = append(active, all[i])
		}
	}
	return active, nil
}

// optionalAmount parses s, treating an empty string as zero
func optionalAmount(s string) (decimal.Decimal, error) {
	if strings.TrimSpace(s) == "" {
		return decimal.Zero, nil
	}
	return domain.ParseAmount(strings.TrimSpace(s))
}

// SetClock replaces the service clock
func (s *IcoService) SetClock(now func() time.Time) {
	s.now = now
}
