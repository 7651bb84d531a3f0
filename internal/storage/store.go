// Package storage defines the transactional store contract shared by
// the memory and sqlite backends. Every logical operation acquires its
// own transactional scope through RunInTx; the Tx handle is never
// shared across concurrent operations.
package storage

import (
	"context"
	"time"

	"finledger/internal/core"
)

// Store is the durable entity store. RunInTx runs fn inside one atomic
// unit: if fn returns an error the unit rolls back completely, so no
// observer ever sees an entry without its balance effect or vice versa.
type Store interface {
	RunInTx(ctx context.Context, fn func(Tx) error) error
	Close() error
}

// Tx exposes space-scoped row operations valid for the duration of one
// atomic unit. Get* methods return core.ErrNotFound (wrapped) when the
// id does not resolve within the given space. Methods taking an
// expectedVersion compare-and-swap a row version and return
// core.ErrConflict (wrapped) when a concurrent writer got there first.
type Tx interface {
	// Accounts
	InsertAccount(ctx context.Context, a *core.Account) error
	GetAccount(ctx context.Context, spaceID, id string) (*core.Account, error)
	ListAccounts(ctx context.Context, spaceID string) ([]core.Account, error)
	UpdateAccountBalance(ctx context.Context, id string, balance core.Money, expectedVersion int64) error

	// Categories
	InsertCategory(ctx context.Context, c *core.Category) error
	GetCategory(ctx context.Context, spaceID, id string) (*core.Category, error)
	ListCategories(ctx context.Context, spaceID string) ([]core.Category, error)
	DeleteCategory(ctx context.Context, spaceID, id string) error
	CountEntriesByCategory(ctx context.Context, spaceID, categoryID string) (int64, error)

	// Entries
	InsertEntry(ctx context.Context, e *core.Entry) error
	GetEntry(ctx context.Context, spaceID, id string) (*core.Entry, error)
	ListEntries(ctx context.Context, spaceID string) ([]core.Entry, error)
	UpdateEntry(ctx context.Context, e *core.Entry) error
	DeleteEntry(ctx context.Context, spaceID, id string) error
	SumEntriesByCategory(ctx context.Context, spaceID, categoryID string, kind core.EntryKind, from, to time.Time) (core.Money, error)

	// Recurring templates
	InsertTemplate(ctx context.Context, t *core.RecurringTemplate) error
	GetTemplate(ctx context.Context, spaceID, id string) (*core.RecurringTemplate, error)
	DueTemplates(ctx context.Context, now time.Time) ([]core.RecurringTemplate, error)
	SetTemplateActive(ctx context.Context, id string, active bool, expectedVersion int64) error
	AdvanceTemplate(ctx context.Context, id string, nextDue, lastGenerated time.Time, expectedVersion int64) error

	// Savings goals
	InsertGoal(ctx context.Context, g *core.SavingsGoal) error
	GetGoal(ctx context.Context, spaceID, id string) (*core.SavingsGoal, error)
	UpdateGoalAmount(ctx context.Context, id string, amount core.Money, expectedVersion int64) error
	InsertGoalTransaction(ctx context.Context, t *core.GoalTransaction) error
	ListGoalTransactions(ctx context.Context, goalID string) ([]core.GoalTransaction, error)

	// Budgets
	InsertBudget(ctx context.Context, b *core.Budget) error
	GetBudget(ctx context.Context, spaceID, id string) (*core.Budget, error)
	ListBudgets(ctx context.Context, spaceID string) ([]core.Budget, error)
}
