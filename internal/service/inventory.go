package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"bloodlink/internal/model"
	"bloodlink/internal/repository"
)

const summaryCacheKey = "inventory:summary"

// InventoryService manages blood banks and derives inventory summaries.
type InventoryService struct {
	store repository.Store
	cache Cache
	log   *zap.Logger
}

// NewInventoryService constructs an InventoryService. cache may be nil.
func NewInventoryService(store repository.Store, cache Cache, log *zap.Logger) *InventoryService {
	return &InventoryService{store: store, cache: cache, log: log}
}

// CreateBank validates and stores a new blood bank owned by the acting admin.
func (s *InventoryService) CreateBank(ctx context.Context, actor model.Actor, req model.CreateBankRequest) (*model.BloodBank, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.City = strings.TrimSpace(req.City)
	if req.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}
	if req.City == "" {
		return nil, fmt.Errorf("%w: city is required", ErrValidation)
	}

	bank := &model.BloodBank{
		ID:            uuid.New().String(),
		Name:          req.Name,
		City:          req.City,
		Address:       req.Address,
		ContactNumber: req.ContactNumber,
		AdminUserID:   actor.UserID,
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.store.CreateBank(ctx, *bank); err != nil {
		return nil, fmt.Errorf("create blood bank: %w", err)
	}
	s.log.Info("blood bank created",
		zap.String("bank_id", bank.ID),
		zap.String("city", bank.City),
		zap.String("admin", actor.UserID),
	)
	return bank, nil
}

// ListBanks returns all blood banks.
func (s *InventoryService) ListBanks(ctx context.Context) ([]model.BloodBank, error) {
	return s.store.ListBanks(ctx)
}

// DeleteBank removes a bank owned by the acting admin.
func (s *InventoryService) DeleteBank(ctx context.Context, actor model.Actor, bankID string) error {
	if bankID == "" {
		return fmt.Errorf("%w: bank id is required", ErrValidation)
	}
	if err := s.store.DeleteBank(ctx, bankID, actor.UserID); err != nil {
		return err
	}
	s.log.Info("blood bank deleted", zap.String("bank_id", bankID), zap.String("admin", actor.UserID))
	return nil
}

// Summary rolls up stock across all banks into one entry per blood group with
// nonzero total, in canonical group order, each classified purely by its
// total. It is recomputed from committed stock on every call; a short-TTL
// cache may serve polling clients.
func (s *InventoryService) Summary(ctx context.Context) ([]model.InventorySummary, error) {
	if s.cache != nil {
		var cached []model.InventorySummary
		hit, err := s.cache.Get(ctx, summaryCacheKey, &cached)
		if err != nil {
			s.log.Warn("summary cache read failed", zap.Error(err))
		} else if hit {
			return cached, nil
		}
	}

	totals, err := s.store.StockTotals(ctx)
	if err != nil {
		return nil, fmt.Errorf("summarize inventory: %w", err)
	}

	summaries := make([]model.InventorySummary, 0, len(totals))
	for _, group := range model.BloodGroups {
		total := totals[group]
		if total == 0 {
			continue
		}
		summaries = append(summaries, model.InventorySummary{
			BloodGroup:     group,
			TotalUnits:     total,
			Classification: model.ClassifyUnits(total),
		})
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, summaryCacheKey, summaries); err != nil {
			s.log.Warn("summary cache write failed", zap.Error(err))
		}
	}
	return summaries, nil
}

// BankStock returns one bank's nonzero stock by blood group.
func (s *InventoryService) BankStock(ctx context.Context, bankID string) ([]model.BankStockEntry, error) {
	if bankID == "" {
		return nil, fmt.Errorf("%w: bank id is required", ErrValidation)
	}
	return s.store.BankStock(ctx, bankID)
}
