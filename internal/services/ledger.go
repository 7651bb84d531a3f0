// Package services holds the business operations of the ledger core:
// the balance mutator, savings goal ledger, and the supporting account,
// category, budget, and template services. Every mutation runs inside
// one store transaction so an entry row and its balance effect commit
// or roll back together.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"finledger/internal/core"
	"finledger/internal/events"
	"finledger/internal/storage"
)

// LedgerService is the balance mutator: it guarantees that an account's
// CurrentBalance equals StartingBalance plus the signed sum of all
// surviving entries, across any sequence of create/update/delete
// operations and under concurrent mutation.
type LedgerService struct {
	store    storage.Store
	events   *events.Client
	attempts int
	now      func() time.Time
}

// NewLedgerService wires the mutator. publisher may be nil; events are
// best-effort. retryAttempts bounds internal retries on version
// conflicts before surfacing core.ErrConflict.
func NewLedgerService(store storage.Store, publisher *events.Client, retryAttempts int) *LedgerService {
	if retryAttempts < 1 {
		retryAttempts = 1
	}
	return &LedgerService{
		store:    store,
		events:   publisher,
		attempts: retryAttempts,
		now:      time.Now,
	}
}

// CreateEntryParams carries the caller-supplied fields for a new entry.
// The (spaceID, userID) pair arrives already authenticated and
// authorized by the caller.
type CreateEntryParams struct {
	AccountID  string
	CategoryID string
	Amount     core.Money
	Date       time.Time
	Notes      string
}

// UpdateEntryParams updates an existing entry. Zero values keep the
// existing field; Notes is a pointer so an empty string can clear it.
type UpdateEntryParams struct {
	AccountID  string
	CategoryID string
	Amount     core.Money
	Date       time.Time
	Notes      *string
}

func (s *LedgerService) CreateExpense(ctx context.Context, spaceID, userID string, p CreateEntryParams) (*core.Entry, error) {
	return s.createEntry(ctx, spaceID, userID, core.KindExpense, p)
}

func (s *LedgerService) CreateIncome(ctx context.Context, spaceID, userID string, p CreateEntryParams) (*core.Entry, error) {
	return s.createEntry(ctx, spaceID, userID, core.KindIncome, p)
}

func (s *LedgerService) UpdateExpense(ctx context.Context, spaceID, entryID string, p UpdateEntryParams) (*core.Entry, error) {
	return s.updateEntry(ctx, spaceID, entryID, core.KindExpense, p)
}

func (s *LedgerService) UpdateIncome(ctx context.Context, spaceID, entryID string, p UpdateEntryParams) (*core.Entry, error) {
	return s.updateEntry(ctx, spaceID, entryID, core.KindIncome, p)
}

func (s *LedgerService) DeleteExpense(ctx context.Context, spaceID, entryID string) error {
	return s.deleteEntry(ctx, spaceID, entryID, core.KindExpense)
}

func (s *LedgerService) DeleteIncome(ctx context.Context, spaceID, entryID string) error {
	return s.deleteEntry(ctx, spaceID, entryID, core.KindIncome)
}

// GetEntry loads a single entry scoped to the space.
func (s *LedgerService) GetEntry(ctx context.Context, spaceID, entryID string) (*core.Entry, error) {
	var entry *core.Entry
	err := s.store.RunInTx(ctx, func(tx storage.Tx) error {
		var err error
		entry, err = tx.GetEntry(ctx, spaceID, entryID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// ListEntries returns the space's entries, newest first.
func (s *LedgerService) ListEntries(ctx context.Context, spaceID string) ([]core.Entry, error) {
	var entries []core.Entry
	err := s.store.RunInTx(ctx, func(tx storage.Tx) error {
		var err error
		entries, err = tx.ListEntries(ctx, spaceID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	return entries, nil
}

func (s *LedgerService) createEntry(ctx context.Context, spaceID, userID string, kind core.EntryKind, p CreateEntryParams) (*core.Entry, error) {
	now := s.now().UTC()
	entry := &core.Entry{
		ID:            uuid.NewString(),
		SpaceID:       spaceID,
		Kind:          kind,
		AccountID:     p.AccountID,
		CategoryID:    p.CategoryID,
		Amount:        p.Amount,
		Date:          p.Date,
		Notes:         p.Notes,
		AddedByUserID: userID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := entry.Validate(); err != nil {
		return nil, err
	}

	err := withRetry(ctx, s.attempts, func() error {
		return s.store.RunInTx(ctx, func(tx storage.Tx) error {
			return s.ApplyCreate(ctx, tx, entry)
		})
	})
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", kind, err)
	}

	s.publishEntryEvent(ctx, events.ActionCreated, entry)
	return entry, nil
}

// ApplyCreate validates the entry's references, adjusts the account
// balance, and inserts the row — all against the caller's transaction.
// The scheduler materializes template occurrences through this same
// path so generated entries behave exactly like manual ones.
func (s *LedgerService) ApplyCreate(ctx context.Context, tx storage.Tx, entry *core.Entry) error {
	account, err := tx.GetAccount(ctx, entry.SpaceID, entry.AccountID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return fmt.Errorf("%w: account %s not found in space", core.ErrValidation, entry.AccountID)
		}
		return err
	}
	if entry.Kind == core.KindExpense {
		if _, err := tx.GetCategory(ctx, entry.SpaceID, entry.CategoryID); err != nil {
			if errors.Is(err, core.ErrNotFound) {
				return fmt.Errorf("%w: category %s not found in space", core.ErrValidation, entry.CategoryID)
			}
			return err
		}
	}

	newBalance := account.CurrentBalance.Add(entry.SignedCents())
	if err := tx.UpdateAccountBalance(ctx, account.ID, newBalance, account.Version); err != nil {
		return err
	}
	return tx.InsertEntry(ctx, entry)
}

func (s *LedgerService) updateEntry(ctx context.Context, spaceID, entryID string, kind core.EntryKind, p UpdateEntryParams) (*core.Entry, error) {
	var updated *core.Entry
	err := withRetry(ctx, s.attempts, func() error {
		return s.store.RunInTx(ctx, func(tx storage.Tx) error {
			existing, err := tx.GetEntry(ctx, spaceID, entryID)
			if err != nil {
				return err
			}
			if existing.Kind != kind {
				return fmt.Errorf("%w: %s %s", core.ErrNotFound, kind, entryID)
			}

			next := *existing
			if p.AccountID != "" {
				next.AccountID = p.AccountID
			}
			if p.CategoryID != "" {
				next.CategoryID = p.CategoryID
			}
			if p.Amount.Cents != 0 {
				next.Amount = p.Amount
			}
			if !p.Date.IsZero() {
				next.Date = p.Date
			}
			if p.Notes != nil {
				next.Notes = *p.Notes
			}
			next.UpdatedAt = s.now().UTC()
			if err := next.Validate(); err != nil {
				return err
			}
			if next.Kind == core.KindExpense {
				if _, err := tx.GetCategory(ctx, spaceID, next.CategoryID); err != nil {
					if errors.Is(err, core.ErrNotFound) {
						return fmt.Errorf("%w: category %s not found in space", core.ErrValidation, next.CategoryID)
					}
					return err
				}
			}

			if next.AccountID == existing.AccountID {
				// Same account: apply the net delta in one balance write.
				account, err := tx.GetAccount(ctx, spaceID, existing.AccountID)
				if err != nil {
					return err
				}
				balance := account.CurrentBalance.Add(next.SignedCents() - existing.SignedCents())
				if err := tx.UpdateAccountBalance(ctx, account.ID, balance, account.Version); err != nil {
					return err
				}
			} else {
				// Re-pointed: reverse on the old account, apply on the new.
				oldAccount, err := tx.GetAccount(ctx, spaceID, existing.AccountID)
				if err != nil {
					return err
				}
				newAccount, err := tx.GetAccount(ctx, spaceID, next.AccountID)
				if err != nil {
					if errors.Is(err, core.ErrNotFound) {
						return fmt.Errorf("%w: account %s not found in space", core.ErrValidation, next.AccountID)
					}
					return err
				}
				oldBalance := oldAccount.CurrentBalance.Add(-existing.SignedCents())
				if err := tx.UpdateAccountBalance(ctx, oldAccount.ID, oldBalance, oldAccount.Version); err != nil {
					return err
				}
				newBalance := newAccount.CurrentBalance.Add(next.SignedCents())
				if err := tx.UpdateAccountBalance(ctx, newAccount.ID, newBalance, newAccount.Version); err != nil {
					return err
				}
			}

			if err := tx.UpdateEntry(ctx, &next); err != nil {
				return err
			}
			updated = &next
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("update %s: %w", kind, err)
	}

	s.publishEntryEvent(ctx, events.ActionUpdated, updated)
	return updated, nil
}

func (s *LedgerService) deleteEntry(ctx context.Context, spaceID, entryID string, kind core.EntryKind) error {
	var deleted *core.Entry
	err := withRetry(ctx, s.attempts, func() error {
		return s.store.RunInTx(ctx, func(tx storage.Tx) error {
			entry, err := tx.GetEntry(ctx, spaceID, entryID)
			if err != nil {
				return err
			}
			if entry.Kind != kind {
				return fmt.Errorf("%w: %s %s", core.ErrNotFound, kind, entryID)
			}

			account, err := tx.GetAccount(ctx, spaceID, entry.AccountID)
			if err != nil {
				return err
			}
			// Reverse the entry's effect before removing the row.
			balance := account.CurrentBalance.Add(-entry.SignedCents())
			if err := tx.UpdateAccountBalance(ctx, account.ID, balance, account.Version); err != nil {
				return err
			}
			if err := tx.DeleteEntry(ctx, spaceID, entryID); err != nil {
				return err
			}
			deleted = entry
			return nil
		})
	})
	if err != nil {
		return fmt.Errorf("delete %s: %w", kind, err)
	}

	s.publishEntryEvent(ctx, events.ActionDeleted, deleted)
	return nil
}

func (s *LedgerService) publishEntryEvent(ctx context.Context, action string, entry *core.Entry) {
	if s.events == nil {
		return
	}
	evt := &events.EntryEvent{
		Action:      action,
		EntryID:     entry.ID,
		SpaceID:     entry.SpaceID,
		AccountID:   entry.AccountID,
		Kind:        string(entry.Kind),
		AmountCents: entry.Amount.Cents,
		Generated:   entry.SourceTemplateID != "",
		OccurredAt:  s.now().UTC(),
	}
	if err := s.events.PublishEntryEvent(ctx, evt); err != nil {
		slog.ErrorContext(ctx, "Failed to publish entry event",
			"action", action,
			"entry_id", entry.ID,
			"error", err)
	}
}
