package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"finledger/internal/core"
	"finledger/internal/events"
	"finledger/internal/storage"
)

// GoalService is the savings goal ledger: an append-only stream of
// contribution/withdrawal transactions with a running total. Unlike
// accounts, a goal's CurrentAmount is floored at zero: a withdrawal
// that would overdraw the goal is rejected with no mutation.
type GoalService struct {
	store    storage.Store
	events   *events.Client
	attempts int
	now      func() time.Time
}

func NewGoalService(store storage.Store, publisher *events.Client, retryAttempts int) *GoalService {
	if retryAttempts < 1 {
		retryAttempts = 1
	}
	return &GoalService{
		store:    store,
		events:   publisher,
		attempts: retryAttempts,
		now:      time.Now,
	}
}

type CreateGoalParams struct {
	Name         string
	TargetAmount core.Money
	TargetDate   time.Time
}

// GoalBalance is returned from Contribute/Withdraw with the committed
// running total.
type GoalBalance struct {
	Message       string
	CurrentAmount core.Money
}

func (s *GoalService) CreateGoal(ctx context.Context, spaceID string, p CreateGoalParams) (*core.SavingsGoal, error) {
	if strings.TrimSpace(p.Name) == "" {
		return nil, fmt.Errorf("%w: goal name is required", core.ErrValidation)
	}
	if err := p.TargetAmount.Validate(); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	goal := &core.SavingsGoal{
		ID:           uuid.NewString(),
		SpaceID:      spaceID,
		Name:         p.Name,
		TargetAmount: p.TargetAmount,
		TargetDate:   p.TargetDate,
		Version:      1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	err := s.store.RunInTx(ctx, func(tx storage.Tx) error {
		return tx.InsertGoal(ctx, goal)
	})
	if err != nil {
		return nil, fmt.Errorf("create goal: %w", err)
	}
	return goal, nil
}

func (s *GoalService) GetGoal(ctx context.Context, spaceID, goalID string) (*core.SavingsGoal, error) {
	var goal *core.SavingsGoal
	err := s.store.RunInTx(ctx, func(tx storage.Tx) error {
		var err error
		goal, err = tx.GetGoal(ctx, spaceID, goalID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return goal, nil
}

func (s *GoalService) Contribute(ctx context.Context, spaceID, goalID string, amount core.Money) (*GoalBalance, error) {
	return s.applyTransaction(ctx, spaceID, goalID, core.Contribution, amount)
}

func (s *GoalService) Withdraw(ctx context.Context, spaceID, goalID string, amount core.Money) (*GoalBalance, error) {
	return s.applyTransaction(ctx, spaceID, goalID, core.Withdrawal, amount)
}

func (s *GoalService) applyTransaction(ctx context.Context, spaceID, goalID string, txType core.GoalTransactionType, amount core.Money) (*GoalBalance, error) {
	if err := amount.Validate(); err != nil {
		return nil, err
	}

	var balance core.Money
	var txnID string
	err := withRetry(ctx, s.attempts, func() error {
		return s.store.RunInTx(ctx, func(tx storage.Tx) error {
			goal, err := tx.GetGoal(ctx, spaceID, goalID)
			if err != nil {
				return err
			}

			signed := amount.Cents
			if txType == core.Withdrawal {
				signed = -signed
			}
			next := goal.CurrentAmount.Add(signed)
			if next.IsNegative() {
				return fmt.Errorf("%w: withdrawal of %s exceeds goal balance %s",
					core.ErrBusinessRule, amount, goal.CurrentAmount)
			}

			txn := &core.GoalTransaction{
				ID:        uuid.NewString(),
				GoalID:    goal.ID,
				Type:      txType,
				Amount:    amount,
				CreatedAt: s.now().UTC(),
			}
			if err := tx.InsertGoalTransaction(ctx, txn); err != nil {
				return err
			}
			if err := tx.UpdateGoalAmount(ctx, goal.ID, next, goal.Version); err != nil {
				return err
			}
			balance = next
			txnID = txn.ID
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", txType, err)
	}

	s.publishGoalEvent(ctx, spaceID, goalID, txnID, txType, amount, balance)

	verb := "contributed to"
	if txType == core.Withdrawal {
		verb = "withdrawn from"
	}
	return &GoalBalance{
		Message:       fmt.Sprintf("%s %s goal", amount, verb),
		CurrentAmount: balance,
	}, nil
}

func (s *GoalService) publishGoalEvent(ctx context.Context, spaceID, goalID, txnID string, txType core.GoalTransactionType, amount, balance core.Money) {
	if s.events == nil {
		return
	}
	evt := &events.GoalEvent{
		GoalID:        goalID,
		SpaceID:       spaceID,
		Type:          string(txType),
		AmountCents:   amount.Cents,
		BalanceCents:  balance.Cents,
		OccurredAt:    s.now().UTC(),
		TransactionID: txnID,
	}
	if err := s.events.PublishGoalEvent(ctx, evt); err != nil {
		slog.ErrorContext(ctx, "Failed to publish goal event",
			"goal_id", goalID,
			"type", txType,
			"error", err)
	}
}
