package core

import (
	"fmt"
	"strings"
	"time"
)

type AccountType string

const (
	Checking   AccountType = "checking"
	Savings    AccountType = "savings"
	CreditCard AccountType = "credit_card"
	Cash       AccountType = "cash"
	Investment AccountType = "investment"
	Other      AccountType = "other"
)

func (t AccountType) Valid() bool {
	switch t {
	case Checking, Savings, CreditCard, Cash, Investment, Other:
		return true
	}
	return false
}

type Frequency string

const (
	Daily     Frequency = "daily"
	Weekly    Frequency = "weekly"
	Monthly   Frequency = "monthly"
	Quarterly Frequency = "quarterly"
	Yearly    Frequency = "yearly"
)

func (f Frequency) Valid() bool {
	switch f {
	case Daily, Weekly, Monthly, Quarterly, Yearly:
		return true
	}
	return false
}

// EntryKind distinguishes the two concrete ledger entry types. Expenses
// subtract from an account balance, incomes add to it.
type EntryKind string

const (
	KindExpense EntryKind = "expense"
	KindIncome  EntryKind = "income"
)

type GoalTransactionType string

const (
	Contribution GoalTransactionType = "contribution"
	Withdrawal   GoalTransactionType = "withdrawal"
)

// Account is the balance-bearing ledger entity. CurrentBalance is the
// authoritative running balance: StartingBalance plus the signed sum of
// every surviving entry applied to the account. Accounts may go
// negative (credit cards). Version is the optimistic-concurrency token
// compared-and-swapped on every balance write.
type Account struct {
	ID              string
	SpaceID         string
	Name            string
	Type            AccountType
	StartingBalance Money
	CurrentBalance  Money
	Version         int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type Category struct {
	ID      string
	SpaceID string
	Name    string
}

// Entry is a concrete expense or income row, as opposed to a recurring
// template. SourceTemplateID is set when the entry was materialized by
// the scheduler from a recurring template.
type Entry struct {
	ID               string
	SpaceID          string
	Kind             EntryKind
	AccountID        string
	CategoryID       string // required for expenses, empty for incomes
	Amount           Money
	Date             time.Time
	Notes            string
	AddedByUserID    string
	SourceTemplateID string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// SignedCents returns the entry's effect on its account balance in
// cents: negative for expenses, positive for incomes.
func (e Entry) SignedCents() int64 {
	if e.Kind == KindExpense {
		return -e.Amount.Cents
	}
	return e.Amount.Cents
}

func (e Entry) Validate() error {
	if e.Kind != KindExpense && e.Kind != KindIncome {
		return fmt.Errorf("%w: unknown entry kind %q", ErrValidation, e.Kind)
	}
	if strings.TrimSpace(e.AccountID) == "" {
		return fmt.Errorf("%w: account id is required", ErrValidation)
	}
	if e.Kind == KindExpense && strings.TrimSpace(e.CategoryID) == "" {
		return fmt.Errorf("%w: expenses require a category", ErrValidation)
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if e.Date.IsZero() {
		return fmt.Errorf("%w: date is required", ErrValidation)
	}
	return nil
}

// RecurringTemplate produces entries on a schedule. NextDueDate is the
// schedule cursor: created equal to StartDate and advanced by the
// recurrence calculator after each materialization. A template becomes
// permanently inactive once now passes EndDate or on explicit user
// deactivation; it is never deleted automatically.
type RecurringTemplate struct {
	ID                string
	SpaceID           string
	Kind              EntryKind
	AccountID         string
	CategoryID        string
	Amount            Money
	Frequency         Frequency
	StartDate         time.Time
	EndDate           *time.Time
	NextDueDate       time.Time
	LastGeneratedDate *time.Time
	IsActive          bool
	Version           int64
	CreatedByUserID   string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (t RecurringTemplate) Validate() error {
	if t.Kind != KindExpense && t.Kind != KindIncome {
		return fmt.Errorf("%w: unknown entry kind %q", ErrValidation, t.Kind)
	}
	if strings.TrimSpace(t.AccountID) == "" {
		return fmt.Errorf("%w: account id is required", ErrValidation)
	}
	if t.Kind == KindExpense && strings.TrimSpace(t.CategoryID) == "" {
		return fmt.Errorf("%w: expense templates require a category", ErrValidation)
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if !t.Frequency.Valid() {
		return fmt.Errorf("%w: unknown frequency %q", ErrValidation, t.Frequency)
	}
	if t.StartDate.IsZero() {
		return fmt.Errorf("%w: start date is required", ErrValidation)
	}
	if t.EndDate != nil && t.EndDate.Before(t.StartDate) {
		return fmt.Errorf("%w: end date must not precede start date", ErrValidation)
	}
	return nil
}

// SavingsGoal accumulates contributions toward TargetAmount.
// CurrentAmount is floored at zero: unlike accounts, a goal can never
// go negative.
type SavingsGoal struct {
	ID            string
	SpaceID       string
	Name          string
	TargetAmount  Money
	CurrentAmount Money
	TargetDate    time.Time
	Version       int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// GoalTransaction is the append-only record of a single contribution or
// withdrawal. Immutable once created.
type GoalTransaction struct {
	ID        string
	GoalID    string
	Type      GoalTransactionType
	Amount    Money
	CreatedAt time.Time
}

// Budget caps spending for one category over a calendar-month period
// anchored at StartDate. Budgets never touch account balances.
type Budget struct {
	ID         string
	SpaceID    string
	CategoryID string
	Amount     Money
	StartDate  time.Time
	CreatedAt  time.Time
}
