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

func newGoalFixture(t *testing.T) (*memory.Store, *GoalService, *core.SavingsGoal) {
	t.Helper()
	store := memory.New()
	svc := NewGoalService(store, nil, 3)

	goal, err := svc.CreateGoal(context.Background(), testSpace, CreateGoalParams{
		Name:         "Vacation",
		TargetAmount: core.Money{Cents: 500000},
		TargetDate:   time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("create goal: %v", err)
	}
	return store, svc, goal
}

func TestGoalContributeAndWithdraw(t *testing.T) {
	store, svc, goal := newGoalFixture(t)
	ctx := context.Background()

	res, err := svc.Contribute(ctx, testSpace, goal.ID, core.Money{Cents: 10000})
	if err != nil {
		t.Fatalf("contribute: %v", err)
	}
	if res.CurrentAmount.Cents != 10000 {
		t.Fatalf("after contribute: %d, want 10000", res.CurrentAmount.Cents)
	}

	res, err = svc.Withdraw(ctx, testSpace, goal.ID, core.Money{Cents: 3000})
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if res.CurrentAmount.Cents != 7000 {
		t.Fatalf("after withdraw: %d, want 7000", res.CurrentAmount.Cents)
	}

	// Both movements land in the append-only transaction stream.
	var txns []core.GoalTransaction
	err = store.RunInTx(ctx, func(tx storage.Tx) error {
		var err error
		txns, err = tx.ListGoalTransactions(ctx, goal.ID)
		return err
	})
	if err != nil {
		t.Fatalf("list transactions: %v", err)
	}
	if len(txns) != 2 {
		t.Fatalf("transactions = %d, want 2", len(txns))
	}
}

// A goal balance of 100.00 rejects a withdrawal of 150.00: the running
// total is floored at zero and the failed attempt leaves no trace.
func TestGoalWithdrawalFloor(t *testing.T) {
	store, svc, goal := newGoalFixture(t)
	ctx := context.Background()

	if _, err := svc.Contribute(ctx, testSpace, goal.ID, core.Money{Cents: 10000}); err != nil {
		t.Fatalf("contribute: %v", err)
	}

	_, err := svc.Withdraw(ctx, testSpace, goal.ID, core.Money{Cents: 15000})
	if !errors.Is(err, core.ErrBusinessRule) {
		t.Fatalf("expected ErrBusinessRule, got %v", err)
	}

	got, err := svc.GetGoal(ctx, testSpace, goal.ID)
	if err != nil {
		t.Fatalf("get goal: %v", err)
	}
	if got.CurrentAmount.Cents != 10000 {
		t.Fatalf("balance mutated by rejected withdrawal: %d", got.CurrentAmount.Cents)
	}

	var txns []core.GoalTransaction
	if err := store.RunInTx(ctx, func(tx storage.Tx) error {
		var err error
		txns, err = tx.ListGoalTransactions(ctx, goal.ID)
		return err
	}); err != nil {
		t.Fatal(err)
	}
	if len(txns) != 1 {
		t.Fatalf("rejected withdrawal recorded a transaction: %d", len(txns))
	}

	// Withdrawing the exact balance is allowed: the floor is zero, not
	// a positive minimum.
	res, err := svc.Withdraw(ctx, testSpace, goal.ID, core.Money{Cents: 10000})
	if err != nil {
		t.Fatalf("withdraw to zero: %v", err)
	}
	if res.CurrentAmount.Cents != 0 {
		t.Fatalf("after full withdrawal: %d, want 0", res.CurrentAmount.Cents)
	}
}

func TestGoalValidation(t *testing.T) {
	_, svc, goal := newGoalFixture(t)
	ctx := context.Background()

	if _, err := svc.CreateGoal(ctx, testSpace, CreateGoalParams{Name: "  "}); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("blank name: expected ErrValidation, got %v", err)
	}
	if _, err := svc.Contribute(ctx, testSpace, goal.ID, core.Money{Cents: 0}); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("zero amount: expected ErrValidation, got %v", err)
	}
	if _, err := svc.Withdraw(ctx, testSpace, goal.ID, core.Money{Cents: -100}); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("negative amount: expected ErrValidation, got %v", err)
	}
	if _, err := svc.Contribute(ctx, testSpace, "missing", core.Money{Cents: 100}); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("unknown goal: expected ErrNotFound, got %v", err)
	}
	if _, err := svc.Contribute(ctx, "space-2", goal.ID, core.Money{Cents: 100}); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("wrong space: expected ErrNotFound, got %v", err)
	}
}

func TestGoalConcurrentContributions(t *testing.T) {
	_, svc, goal := newGoalFixture(t)
	ctx := context.Background()

	const workers = 8
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		go func() {
			_, err := svc.Contribute(ctx, testSpace, goal.ID, core.Money{Cents: 500})
			errs <- err
		}()
	}
	for i := 0; i < workers; i++ {
		if err := <-errs; err != nil {
			t.Fatalf("concurrent contribute: %v", err)
		}
	}

	got, err := svc.GetGoal(ctx, testSpace, goal.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.CurrentAmount.Cents != workers*500 {
		t.Fatalf("balance = %d, want %d", got.CurrentAmount.Cents, workers*500)
	}
}
