package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"finledger/internal/core"
	"finledger/internal/storage"
)

// CategoryService manages expense categories. A category that still has
// entries cannot be deleted; that is a business rule, not a storage
// constraint, so the check and the delete share one transaction.
type CategoryService struct {
	store storage.Store
}

func NewCategoryService(store storage.Store) *CategoryService {
	return &CategoryService{store: store}
}

func (s *CategoryService) CreateCategory(ctx context.Context, spaceID, name string) (*core.Category, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: category name is required", core.ErrValidation)
	}

	category := &core.Category{
		ID:      uuid.NewString(),
		SpaceID: spaceID,
		Name:    name,
	}
	err := s.store.RunInTx(ctx, func(tx storage.Tx) error {
		return tx.InsertCategory(ctx, category)
	})
	if err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}
	return category, nil
}

func (s *CategoryService) ListCategories(ctx context.Context, spaceID string) ([]core.Category, error) {
	var categories []core.Category
	err := s.store.RunInTx(ctx, func(tx storage.Tx) error {
		var err error
		categories, err = tx.ListCategories(ctx, spaceID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

func (s *CategoryService) DeleteCategory(ctx context.Context, spaceID, categoryID string) error {
	return s.store.RunInTx(ctx, func(tx storage.Tx) error {
		if _, err := tx.GetCategory(ctx, spaceID, categoryID); err != nil {
			return err
		}
		count, err := tx.CountEntriesByCategory(ctx, spaceID, categoryID)
		if err != nil {
			return err
		}
		if count > 0 {
			return fmt.Errorf("%w: category has %d entries and cannot be deleted", core.ErrBusinessRule, count)
		}
		return tx.DeleteCategory(ctx, spaceID, categoryID)
	})
}
