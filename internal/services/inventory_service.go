package services

import (
	"context"
	"errors"
	"strings"

	"stockroom/internal/domain"
	"stockroom/internal/log"
	"stockroom/internal/repos"
)

type ItemInput struct {
	Name         string `json:"name" validate:"required,min=1,max=100"`
	Description  string `json:"description" validate:"max=500"`
	Quantity     *int   `json:"quantity" validate:"required,min=0"`
	MinThreshold *int   `json:"min_threshold" validate:"required,min=0"`
	Unit         string `json:"unit" validate:"required,min=1,max=20"`
	Category     string `json:"category" validate:"max=50"`
}

func (in *ItemInput) trim() {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	in.Unit = strings.TrimSpace(in.Unit)
	in.Category = strings.TrimSpace(in.Category)
}

// Evaluator raises a low-stock alert for an item when one is due.
type Evaluator interface {
	Evaluate(ctx context.Context, it domain.InventoryItem) (bool, error)
}

type InventoryService struct {
	Inv    *repos.InventoryRepo
	Alerts Evaluator
}

func NewInventoryService(inv *repos.InventoryRepo, alerts Evaluator) *InventoryService {
	return &InventoryService{Inv: inv, Alerts: alerts}
}

func (s *InventoryService) List() ([]domain.InventoryItem, error) { return s.Inv.List() }

func (s *InventoryService) Get(id int64) (*domain.InventoryItem, error) {
	it, err := s.Inv.Get(id)
	if errors.Is(err, repos.ErrNotFound) {
		return nil, notFound("Inventory item not found")
	}
	return it, err
}

func (s *InventoryService) Create(ctx context.Context, userID int64, in ItemInput) (*domain.InventoryItem, error) {
	in.trim()
	if err := check(in); err != nil {
		return nil, err
	}
	it := &domain.InventoryItem{
		Name: in.Name, Description: in.Description, Quantity: *in.Quantity, MinThreshold: *in.MinThreshold,
		Unit: in.Unit, Category: in.Category, CreatedBy: userID,
	}
	if err := s.Inv.Create(it); err != nil {
		return nil, err
	}
	s.evaluate(ctx, *it)
	return s.Get(it.ID)
}

// Update replaces the editable fields. Any authenticated user may edit shared inventory.
func (s *InventoryService) Update(ctx context.Context, id int64, in ItemInput) (*domain.InventoryItem, error) {
	in.trim()
	if err := check(in); err != nil {
		return nil, err
	}
	cur, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	cur.Name, cur.Description, cur.Unit, cur.Category = in.Name, in.Description, in.Unit, in.Category
	cur.Quantity, cur.MinThreshold = *in.Quantity, *in.MinThreshold
	if err := s.Inv.Update(cur); err != nil {
		if errors.Is(err, repos.ErrNotFound) {
			return nil, notFound("Inventory item not found")
		}
		return nil, err
	}
	s.evaluate(ctx, *cur)
	return s.Get(id)
}

// evaluate runs the low-stock check after a write. Failures never undo the write.
func (s *InventoryService) evaluate(ctx context.Context, it domain.InventoryItem) {
	if s.Alerts == nil {
		return
	}
	if _, err := s.Alerts.Evaluate(ctx, it); err != nil {
		log.Warn(nil, "inventory.alert_failed", err, map[string]any{"inventory_id": it.ID})
	}
}

// Delete removes an item and returns its name for the audit log.
func (s *InventoryService) Delete(id int64) (string, error) {
	it, err := s.Get(id)
	if err != nil {
		return "", err
	}
	if err := s.Inv.Delete(id); err != nil {
		if errors.Is(err, repos.ErrNotFound) {
			return "", notFound("Inventory item not found")
		}
		return "", err
	}
	return it.Name, nil
}

func (s *InventoryService) LowStock() ([]domain.InventoryItem, error) { return s.Inv.LowStock() }

func (s *InventoryService) Search(q string) ([]domain.InventoryItem, error) { return s.Inv.Search(q) }

func (s *InventoryService) Summary(userID int64) (domain.DashboardSummary, error) {
	return s.Inv.Summary(userID)
}
