package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"finledger/internal/core"
	"finledger/internal/storage"
	"finledger/internal/storage/memory"
)

const (
	testSpace = "space-1"
	testUser  = "user-1"
)

type fixture struct {
	store      *memory.Store
	ledger     *LedgerService
	accounts   *AccountService
	categories *CategoryService
	account    *core.Account
	category   *core.Category
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.New()

	f := &fixture{
		store:      store,
		ledger:     NewLedgerService(store, nil, 3),
		accounts:   NewAccountService(store),
		categories: NewCategoryService(store),
	}

	account, err := f.accounts.CreateAccount(ctx, testSpace, CreateAccountParams{
		Name:            "Checking",
		Type:            core.Checking,
		StartingBalance: core.Money{Cents: 100000}, // 1000.00
	})
	if err != nil {
		t.Fatalf("create account: %v", err)
	}
	f.account = account

	category, err := f.categories.CreateCategory(ctx, testSpace, "Groceries")
	if err != nil {
		t.Fatalf("create category: %v", err)
	}
	f.category = category

	return f
}

func (f *fixture) balance(t *testing.T, accountID string) int64 {
	t.Helper()
	account, err := f.accounts.GetAccount(context.Background(), testSpace, accountID)
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	return account.CurrentBalance.Cents
}

func (f *fixture) expenseParams(cents int64) CreateEntryParams {
	return CreateEntryParams{
		AccountID:  f.account.ID,
		CategoryID: f.category.ID,
		Amount:     core.Money{Cents: cents},
		Date:       time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC),
	}
}

// Account starts at 1000.00. Expense 150.00 -> 850.00, update to
// 200.00 -> 800.00, delete -> 1000.00.
func TestExpenseLifecycleScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	entry, err := f.ledger.CreateExpense(ctx, testSpace, testUser, f.expenseParams(15000))
	if err != nil {
		t.Fatalf("create expense: %v", err)
	}
	if got := f.balance(t, f.account.ID); got != 85000 {
		t.Fatalf("after create: balance = %d, want 85000", got)
	}

	if _, err := f.ledger.UpdateExpense(ctx, testSpace, entry.ID, UpdateEntryParams{
		Amount: core.Money{Cents: 20000},
	}); err != nil {
		t.Fatalf("update expense: %v", err)
	}
	if got := f.balance(t, f.account.ID); got != 80000 {
		t.Fatalf("after update: balance = %d, want 80000", got)
	}

	if err := f.ledger.DeleteExpense(ctx, testSpace, entry.ID); err != nil {
		t.Fatalf("delete expense: %v", err)
	}
	if got := f.balance(t, f.account.ID); got != 100000 {
		t.Fatalf("after delete: balance = %d, want 100000", got)
	}

	if _, err := f.ledger.GetEntry(ctx, testSpace, entry.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("deleted entry still readable: %v", err)
	}
}

func TestIncomeAffectsBalancePositively(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	entry, err := f.ledger.CreateIncome(ctx, testSpace, testUser, CreateEntryParams{
		AccountID: f.account.ID,
		Amount:    core.Money{Cents: 50000},
		Date:      time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("create income: %v", err)
	}
	if got := f.balance(t, f.account.ID); got != 150000 {
		t.Fatalf("after income: balance = %d, want 150000", got)
	}

	if err := f.ledger.DeleteIncome(ctx, testSpace, entry.ID); err != nil {
		t.Fatalf("delete income: %v", err)
	}
	if got := f.balance(t, f.account.ID); got != 100000 {
		t.Fatalf("after delete: balance = %d, want 100000", got)
	}
}

func TestCreateExpenseValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		params CreateEntryParams
	}{
		{"zero amount", CreateEntryParams{
			AccountID:  f.account.ID,
			CategoryID: f.category.ID,
			Date:       time.Now(),
		}},
		{"missing category", CreateEntryParams{
			AccountID: f.account.ID,
			Amount:    core.Money{Cents: 100},
			Date:      time.Now(),
		}},
		{"unknown account", CreateEntryParams{
			AccountID:  "no-such-account",
			CategoryID: f.category.ID,
			Amount:     core.Money{Cents: 100},
			Date:       time.Now(),
		}},
		{"unknown category", CreateEntryParams{
			AccountID:  f.account.ID,
			CategoryID: "no-such-category",
			Amount:     core.Money{Cents: 100},
			Date:       time.Now(),
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.ledger.CreateExpense(ctx, testSpace, testUser, tt.params); !errors.Is(err, core.ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
			// A rejected create must leave the balance untouched.
			if got := f.balance(t, f.account.ID); got != 100000 {
				t.Fatalf("balance mutated on rejected create: %d", got)
			}
		})
	}
}

func TestCrossSpaceReferencesRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// An account in another space must not be reachable.
	other, err := f.accounts.CreateAccount(ctx, "space-2", CreateAccountParams{
		Name: "Foreign", Type: core.Checking,
	})
	if err != nil {
		t.Fatalf("create account: %v", err)
	}

	_, err = f.ledger.CreateExpense(ctx, testSpace, testUser, CreateEntryParams{
		AccountID:  other.ID,
		CategoryID: f.category.ID,
		Amount:     core.Money{Cents: 100},
		Date:       time.Now(),
	})
	if !errors.Is(err, core.ErrValidation) {
		t.Fatalf("expected ErrValidation for cross-space account, got %v", err)
	}
}

func TestUpdateExpenseRepointsAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	second, err := f.accounts.CreateAccount(ctx, testSpace, CreateAccountParams{
		Name:            "Credit Card",
		Type:            core.CreditCard,
		StartingBalance: core.Money{Cents: 0},
	})
	if err != nil {
		t.Fatalf("create account: %v", err)
	}

	entry, err := f.ledger.CreateExpense(ctx, testSpace, testUser, f.expenseParams(25000))
	if err != nil {
		t.Fatalf("create expense: %v", err)
	}
	if got := f.balance(t, f.account.ID); got != 75000 {
		t.Fatalf("source balance = %d, want 75000", got)
	}

	if _, err := f.ledger.UpdateExpense(ctx, testSpace, entry.ID, UpdateEntryParams{
		AccountID: second.ID,
	}); err != nil {
		t.Fatalf("repoint expense: %v", err)
	}

	// Old account restored, new account carries the effect. Credit
	// cards may go negative.
	if got := f.balance(t, f.account.ID); got != 100000 {
		t.Fatalf("old account balance = %d, want 100000", got)
	}
	if got := f.balance(t, second.ID); got != -25000 {
		t.Fatalf("new account balance = %d, want -25000", got)
	}
}

func TestUpdateAndDeleteNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.ledger.UpdateExpense(ctx, testSpace, "missing", UpdateEntryParams{}); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("update missing: expected ErrNotFound, got %v", err)
	}
	if err := f.ledger.DeleteExpense(ctx, testSpace, "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("delete missing: expected ErrNotFound, got %v", err)
	}

	// An income is not reachable through the expense operations.
	income, err := f.ledger.CreateIncome(ctx, testSpace, testUser, CreateEntryParams{
		AccountID: f.account.ID,
		Amount:    core.Money{Cents: 100},
		Date:      time.Now(),
	})
	if err != nil {
		t.Fatalf("create income: %v", err)
	}
	if err := f.ledger.DeleteExpense(ctx, testSpace, income.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("delete income as expense: expected ErrNotFound, got %v", err)
	}
}

// The balance invariant holds after every step of a mixed sequence:
// currentBalance == startingBalance + sum(incomes) - sum(expenses)
// over the surviving entries.
func TestBalanceInvariantAcrossSequence(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	expected := int64(100000)
	check := func(step string) {
		t.Helper()
		if got := f.balance(t, f.account.ID); got != expected {
			t.Fatalf("%s: balance = %d, want %d", step, got, expected)
		}
	}

	e1, err := f.ledger.CreateExpense(ctx, testSpace, testUser, f.expenseParams(1250))
	if err != nil {
		t.Fatal(err)
	}
	expected -= 1250
	check("expense 12.50")

	i1, err := f.ledger.CreateIncome(ctx, testSpace, testUser, CreateEntryParams{
		AccountID: f.account.ID,
		Amount:    core.Money{Cents: 300000},
		Date:      time.Date(2024, time.March, 25, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatal(err)
	}
	expected += 300000
	check("income 3000.00")

	if _, err := f.ledger.UpdateExpense(ctx, testSpace, e1.ID, UpdateEntryParams{
		Amount: core.Money{Cents: 9900},
	}); err != nil {
		t.Fatal(err)
	}
	expected += 1250 - 9900
	check("expense updated to 99.00")

	if _, err := f.ledger.UpdateIncome(ctx, testSpace, i1.ID, UpdateEntryParams{
		Amount: core.Money{Cents: 280000},
	}); err != nil {
		t.Fatal(err)
	}
	expected += 280000 - 300000
	check("income updated to 2800.00")

	if err := f.ledger.DeleteExpense(ctx, testSpace, e1.ID); err != nil {
		t.Fatal(err)
	}
	expected += 9900
	check("expense deleted")

	if err := f.ledger.DeleteIncome(ctx, testSpace, i1.ID); err != nil {
		t.Fatal(err)
	}
	expected -= 280000
	check("income deleted")

	if expected != 100000 {
		t.Fatalf("sequence should return to the starting balance, expected=%d", expected)
	}
}

// Concurrent creates against the same account all land; the final
// balance reflects every entry exactly once.
func TestConcurrentCreatesSerialize(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const workers = 8
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		go func() {
			_, err := f.ledger.CreateExpense(ctx, testSpace, testUser, f.expenseParams(1000))
			errs <- err
		}()
	}
	for i := 0; i < workers; i++ {
		if err := <-errs; err != nil {
			t.Fatalf("concurrent create: %v", err)
		}
	}

	if got := f.balance(t, f.account.ID); got != 100000-workers*1000 {
		t.Fatalf("balance = %d, want %d", got, 100000-workers*1000)
	}
}

// A storage-level failure mid-unit leaves no partial effect.
func TestNoPartialEffectOnFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Force a failure after the balance write by deleting the category
	// between validation steps is not possible from outside the tx, so
	// exercise rollback directly: a tx fn error undoes the inserted
	// entry and balance change together.
	err := f.store.RunInTx(ctx, func(tx storage.Tx) error {
		entry := &core.Entry{
			ID:            "tmp",
			SpaceID:       testSpace,
			Kind:          core.KindExpense,
			AccountID:     f.account.ID,
			CategoryID:    f.category.ID,
			Amount:        core.Money{Cents: 100},
			Date:          time.Now(),
			AddedByUserID: testUser,
		}
		if err := f.ledger.ApplyCreate(ctx, tx, entry); err != nil {
			return err
		}
		return errors.New("boom")
	})
	if err == nil {
		t.Fatal("expected injected failure")
	}

	if got := f.balance(t, f.account.ID); got != 100000 {
		t.Fatalf("balance mutated despite rollback: %d", got)
	}
	if _, err := f.ledger.GetEntry(ctx, testSpace, "tmp"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("entry visible despite rollback: %v", err)
	}
}
