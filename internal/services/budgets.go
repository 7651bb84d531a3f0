package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"finledger/internal/core"
	"finledger/internal/storage"
)

// BudgetService manages per-category monthly budgets. Budgets observe
// the ledger; they never adjust balances.
type BudgetService struct {
	store storage.Store
	now   func() time.Time
}

func NewBudgetService(store storage.Store) *BudgetService {
	return &BudgetService{store: store, now: time.Now}
}

type CreateBudgetParams struct {
	CategoryID string
	Amount     core.Money
	StartDate  time.Time
}

// BudgetStatus reports spending against a budget for the calendar month
// containing the reference time.
type BudgetStatus struct {
	Budget    core.Budget
	Spent     core.Money
	Remaining core.Money
}

func (s *BudgetService) CreateBudget(ctx context.Context, spaceID string, p CreateBudgetParams) (*core.Budget, error) {
	if err := p.Amount.Validate(); err != nil {
		return nil, err
	}
	if p.StartDate.IsZero() {
		return nil, fmt.Errorf("%w: start date is required", core.ErrValidation)
	}

	budget := &core.Budget{
		ID:         uuid.NewString(),
		SpaceID:    spaceID,
		CategoryID: p.CategoryID,
		Amount:     p.Amount,
		StartDate:  p.StartDate,
		CreatedAt:  s.now().UTC(),
	}
	err := s.store.RunInTx(ctx, func(tx storage.Tx) error {
		if _, err := tx.GetCategory(ctx, spaceID, p.CategoryID); err != nil {
			if errors.Is(err, core.ErrNotFound) {
				return fmt.Errorf("%w: category %s not found in space", core.ErrValidation, p.CategoryID)
			}
			return err
		}
		return tx.InsertBudget(ctx, budget)
	})
	if err != nil {
		return nil, fmt.Errorf("create budget: %w", err)
	}
	return budget, nil
}

func (s *BudgetService) ListBudgets(ctx context.Context, spaceID string) ([]core.Budget, error) {
	var budgets []core.Budget
	err := s.store.RunInTx(ctx, func(tx storage.Tx) error {
		var err error
		budgets, err = tx.ListBudgets(ctx, spaceID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	return budgets, nil
}

// Status sums the expenses recorded for the budget's category during
// the calendar month containing now.
func (s *BudgetService) Status(ctx context.Context, spaceID, budgetID string, now time.Time) (*BudgetStatus, error) {
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)

	var status *BudgetStatus
	err := s.store.RunInTx(ctx, func(tx storage.Tx) error {
		budget, err := tx.GetBudget(ctx, spaceID, budgetID)
		if err != nil {
			return err
		}
		spent, err := tx.SumEntriesByCategory(ctx, spaceID, budget.CategoryID, core.KindExpense, from, to)
		if err != nil {
			return err
		}
		status = &BudgetStatus{
			Budget:    *budget,
			Spent:     spent,
			Remaining: budget.Amount.Add(-spent.Cents),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return status, nil
}
