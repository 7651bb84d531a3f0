package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"finledger/internal/core"
)

func TestBudgetStatusSumsCurrentMonthExpenses(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	budgets := NewBudgetService(f.store)

	budget, err := budgets.CreateBudget(ctx, testSpace, CreateBudgetParams{
		CategoryID: f.category.ID,
		Amount:     core.Money{Cents: 30000}, // 300.00 per month
		StartDate:  time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("create budget: %v", err)
	}

	mkExpense := func(cents int64, date time.Time) {
		t.Helper()
		p := f.expenseParams(cents)
		p.Date = date
		if _, err := f.ledger.CreateExpense(ctx, testSpace, testUser, p); err != nil {
			t.Fatalf("create expense: %v", err)
		}
	}

	// Two in March, one in February, one income in March (ignored),
	// one March expense in another category (ignored).
	mkExpense(5000, time.Date(2024, time.March, 3, 0, 0, 0, 0, time.UTC))
	mkExpense(7500, time.Date(2024, time.March, 28, 0, 0, 0, 0, time.UTC))
	mkExpense(9999, time.Date(2024, time.February, 15, 0, 0, 0, 0, time.UTC))
	if _, err := f.ledger.CreateIncome(ctx, testSpace, testUser, CreateEntryParams{
		AccountID: f.account.ID,
		Amount:    core.Money{Cents: 100000},
		Date:      time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC),
	}); err != nil {
		t.Fatal(err)
	}
	other, err := f.categories.CreateCategory(ctx, testSpace, "Transport")
	if err != nil {
		t.Fatal(err)
	}
	p := f.expenseParams(4000)
	p.CategoryID = other.ID
	p.Date = time.Date(2024, time.March, 12, 0, 0, 0, 0, time.UTC)
	if _, err := f.ledger.CreateExpense(ctx, testSpace, testUser, p); err != nil {
		t.Fatal(err)
	}

	asOf := time.Date(2024, time.March, 31, 12, 0, 0, 0, time.UTC)
	status, err := budgets.Status(ctx, testSpace, budget.ID, asOf)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.Spent.Cents != 12500 {
		t.Fatalf("spent = %d, want 12500", status.Spent.Cents)
	}
	if status.Remaining.Cents != 17500 {
		t.Fatalf("remaining = %d, want 17500", status.Remaining.Cents)
	}
}

func TestBudgetStatusOverspent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	budgets := NewBudgetService(f.store)

	budget, err := budgets.CreateBudget(ctx, testSpace, CreateBudgetParams{
		CategoryID: f.category.ID,
		Amount:     core.Money{Cents: 1000},
		StartDate:  time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatal(err)
	}
	p := f.expenseParams(2500)
	if _, err := f.ledger.CreateExpense(ctx, testSpace, testUser, p); err != nil {
		t.Fatal(err)
	}

	status, err := budgets.Status(ctx, testSpace, budget.ID, p.Date)
	if err != nil {
		t.Fatal(err)
	}
	// Remaining goes negative rather than clamping; callers render it.
	if status.Remaining.Cents != -1500 {
		t.Fatalf("remaining = %d, want -1500", status.Remaining.Cents)
	}
}

func TestCreateBudgetValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	budgets := NewBudgetService(f.store)

	start := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

	if _, err := budgets.CreateBudget(ctx, testSpace, CreateBudgetParams{
		CategoryID: f.category.ID,
		Amount:     core.Money{Cents: 0},
		StartDate:  start,
	}); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("zero amount: expected ErrValidation, got %v", err)
	}
	if _, err := budgets.CreateBudget(ctx, testSpace, CreateBudgetParams{
		CategoryID: f.category.ID,
		Amount:     core.Money{Cents: 100},
	}); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("zero start date: expected ErrValidation, got %v", err)
	}
	if _, err := budgets.CreateBudget(ctx, testSpace, CreateBudgetParams{
		CategoryID: "missing",
		Amount:     core.Money{Cents: 100},
		StartDate:  start,
	}); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("unknown category: expected ErrValidation, got %v", err)
	}
}
