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

// TemplateService manages recurring expense/income templates. Templates
// are created active with the schedule cursor on StartDate; the
// scheduler owns every cursor advance after that. Deactivation is
// permanent from the core's point of view.
type TemplateService struct {
	store    storage.Store
	attempts int
	now      func() time.Time
}

func NewTemplateService(store storage.Store, retryAttempts int) *TemplateService {
	if retryAttempts < 1 {
		retryAttempts = 1
	}
	return &TemplateService{store: store, attempts: retryAttempts, now: time.Now}
}

type CreateTemplateParams struct {
	AccountID  string
	CategoryID string
	Amount     core.Money
	Frequency  core.Frequency
	StartDate  time.Time
	EndDate    *time.Time
}

func (s *TemplateService) CreateRecurringExpense(ctx context.Context, spaceID, userID string, p CreateTemplateParams) (*core.RecurringTemplate, error) {
	return s.createTemplate(ctx, spaceID, userID, core.KindExpense, p)
}

func (s *TemplateService) CreateRecurringIncome(ctx context.Context, spaceID, userID string, p CreateTemplateParams) (*core.RecurringTemplate, error) {
	return s.createTemplate(ctx, spaceID, userID, core.KindIncome, p)
}

func (s *TemplateService) createTemplate(ctx context.Context, spaceID, userID string, kind core.EntryKind, p CreateTemplateParams) (*core.RecurringTemplate, error) {
	now := s.now().UTC()
	template := &core.RecurringTemplate{
		ID:              uuid.NewString(),
		SpaceID:         spaceID,
		Kind:            kind,
		AccountID:       p.AccountID,
		CategoryID:      p.CategoryID,
		Amount:          p.Amount,
		Frequency:       p.Frequency,
		StartDate:       p.StartDate,
		EndDate:         p.EndDate,
		NextDueDate:     p.StartDate,
		IsActive:        true,
		Version:         1,
		CreatedByUserID: userID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := template.Validate(); err != nil {
		return nil, err
	}

	err := s.store.RunInTx(ctx, func(tx storage.Tx) error {
		if _, err := tx.GetAccount(ctx, spaceID, p.AccountID); err != nil {
			if errors.Is(err, core.ErrNotFound) {
				return fmt.Errorf("%w: account %s not found in space", core.ErrValidation, p.AccountID)
			}
			return err
		}
		if kind == core.KindExpense {
			if _, err := tx.GetCategory(ctx, spaceID, p.CategoryID); err != nil {
				if errors.Is(err, core.ErrNotFound) {
					return fmt.Errorf("%w: category %s not found in space", core.ErrValidation, p.CategoryID)
				}
				return err
			}
		}
		return tx.InsertTemplate(ctx, template)
	})
	if err != nil {
		return nil, fmt.Errorf("create recurring %s: %w", kind, err)
	}
	return template, nil
}

func (s *TemplateService) GetTemplate(ctx context.Context, spaceID, templateID string) (*core.RecurringTemplate, error) {
	var template *core.RecurringTemplate
	err := s.store.RunInTx(ctx, func(tx storage.Tx) error {
		var err error
		template, err = tx.GetTemplate(ctx, spaceID, templateID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return template, nil
}

// Deactivate turns a template off. Idempotent: deactivating an already
// inactive template succeeds without a write.
func (s *TemplateService) Deactivate(ctx context.Context, spaceID, templateID string) error {
	return withRetry(ctx, s.attempts, func() error {
		return s.store.RunInTx(ctx, func(tx storage.Tx) error {
			template, err := tx.GetTemplate(ctx, spaceID, templateID)
			if err != nil {
				return err
			}
			if !template.IsActive {
				return nil
			}
			return tx.SetTemplateActive(ctx, templateID, false, template.Version)
		})
	})
}
