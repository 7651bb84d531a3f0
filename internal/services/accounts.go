package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"finledger/internal/core"
	"finledger/internal/storage"
)

// AccountService manages the balance-bearing accounts that entries
// reference. Creation seeds CurrentBalance from StartingBalance; the
// balance mutator owns every adjustment after that.
type AccountService struct {
	store storage.Store
	now   func() time.Time
}

func NewAccountService(store storage.Store) *AccountService {
	return &AccountService{store: store, now: time.Now}
}

type CreateAccountParams struct {
	Name            string
	Type            core.AccountType
	StartingBalance core.Money // may be zero or negative (credit cards)
}

func (s *AccountService) CreateAccount(ctx context.Context, spaceID string, p CreateAccountParams) (*core.Account, error) {
	if strings.TrimSpace(p.Name) == "" {
		return nil, fmt.Errorf("%w: account name is required", core.ErrValidation)
	}
	if !p.Type.Valid() {
		return nil, fmt.Errorf("%w: unknown account type %q", core.ErrValidation, p.Type)
	}

	now := s.now().UTC()
	account := &core.Account{
		ID:              uuid.NewString(),
		SpaceID:         spaceID,
		Name:            p.Name,
		Type:            p.Type,
		StartingBalance: p.StartingBalance,
		CurrentBalance:  p.StartingBalance,
		Version:         1,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	err := s.store.RunInTx(ctx, func(tx storage.Tx) error {
		return tx.InsertAccount(ctx, account)
	})
	if err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}
	return account, nil
}

func (s *AccountService) GetAccount(ctx context.Context, spaceID, accountID string) (*core.Account, error) {
	var account *core.Account
	err := s.store.RunInTx(ctx, func(tx storage.Tx) error {
		var err error
		account, err = tx.GetAccount(ctx, spaceID, accountID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

func (s *AccountService) ListAccounts(ctx context.Context, spaceID string) ([]core.Account, error) {
	var accounts []core.Account
	err := s.store.RunInTx(ctx, func(tx storage.Tx) error {
		var err error
		accounts, err = tx.ListAccounts(ctx, spaceID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	return accounts, nil
}
