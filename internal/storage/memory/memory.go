// Package memory implements storage.Store with in-process maps. It
// backs the "memory" backend and the service/scheduler test suites:
// transactions serialize under one mutex and roll back by restoring a
// snapshot, so the atomicity and version-check contract matches the
// sqlite backend exactly.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"finledger/internal/core"
	"finledger/internal/storage"
)

type state struct {
	accounts   map[string]core.Account
	categories map[string]core.Category
	entries    map[string]core.Entry
	templates  map[string]core.RecurringTemplate
	goals      map[string]core.SavingsGoal
	goalTxns   map[string]core.GoalTransaction
	budgets    map[string]core.Budget
}

func newState() *state {
	return &state{
		accounts:   make(map[string]core.Account),
		categories: make(map[string]core.Category),
		entries:    make(map[string]core.Entry),
		templates:  make(map[string]core.RecurringTemplate),
		goals:      make(map[string]core.SavingsGoal),
		goalTxns:   make(map[string]core.GoalTransaction),
		budgets:    make(map[string]core.Budget),
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.accounts {
		c.accounts[k] = v
	}
	for k, v := range s.categories {
		c.categories[k] = v
	}
	for k, v := range s.entries {
		c.entries[k] = v
	}
	for k, v := range s.templates {
		c.templates[k] = v
	}
	for k, v := range s.goals {
		c.goals[k] = v
	}
	for k, v := range s.goalTxns {
		c.goalTxns[k] = v
	}
	for k, v := range s.budgets {
		c.budgets[k] = v
	}
	return c
}

type Store struct {
	mu sync.Mutex
	st *state
}

func New() *Store {
	return &Store{st: newState()}
}

// RunInTx serializes the atomic unit under the store mutex. A snapshot
// taken before fn runs is restored when fn fails, giving full rollback.
func (s *Store) RunInTx(ctx context.Context, fn func(storage.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", core.ErrStorage, err)
	}

	snap := s.st.clone()
	if err := fn(&tx{st: s.st}); err != nil {
		s.st = snap
		return err
	}
	return nil
}

func (s *Store) Close() error {
	return nil
}

type tx struct {
	st *state
}

// Accounts

func (t *tx) InsertAccount(_ context.Context, a *core.Account) error {
	t.st.accounts[a.ID] = *a
	return nil
}

func (t *tx) GetAccount(_ context.Context, spaceID, id string) (*core.Account, error) {
	a, ok := t.st.accounts[id]
	if !ok || a.SpaceID != spaceID {
		return nil, fmt.Errorf("%w: account %s", core.ErrNotFound, id)
	}
	out := a
	return &out, nil
}

func (t *tx) ListAccounts(_ context.Context, spaceID string) ([]core.Account, error) {
	var out []core.Account
	for _, a := range t.st.accounts {
		if a.SpaceID == spaceID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (t *tx) UpdateAccountBalance(_ context.Context, id string, balance core.Money, expectedVersion int64) error {
	a, ok := t.st.accounts[id]
	if !ok {
		return fmt.Errorf("%w: account %s", core.ErrNotFound, id)
	}
	if a.Version != expectedVersion {
		return fmt.Errorf("%w: account %s version %d != %d", core.ErrConflict, id, a.Version, expectedVersion)
	}
	a.CurrentBalance = balance
	a.Version++
	a.UpdatedAt = time.Now().UTC()
	t.st.accounts[id] = a
	return nil
}

// Categories

func (t *tx) InsertCategory(_ context.Context, c *core.Category) error {
	t.st.categories[c.ID] = *c
	return nil
}

func (t *tx) GetCategory(_ context.Context, spaceID, id string) (*core.Category, error) {
	c, ok := t.st.categories[id]
	if !ok || c.SpaceID != spaceID {
		return nil, fmt.Errorf("%w: category %s", core.ErrNotFound, id)
	}
	out := c
	return &out, nil
}

func (t *tx) ListCategories(_ context.Context, spaceID string) ([]core.Category, error) {
	var out []core.Category
	for _, c := range t.st.categories {
		if c.SpaceID == spaceID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (t *tx) DeleteCategory(_ context.Context, spaceID, id string) error {
	c, ok := t.st.categories[id]
	if !ok || c.SpaceID != spaceID {
		return fmt.Errorf("%w: category %s", core.ErrNotFound, id)
	}
	delete(t.st.categories, id)
	return nil
}

func (t *tx) CountEntriesByCategory(_ context.Context, spaceID, categoryID string) (int64, error) {
	var n int64
	for _, e := range t.st.entries {
		if e.SpaceID == spaceID && e.CategoryID == categoryID {
			n++
		}
	}
	return n, nil
}

// Entries

func (t *tx) InsertEntry(_ context.Context, e *core.Entry) error {
	t.st.entries[e.ID] = *e
	return nil
}

func (t *tx) GetEntry(_ context.Context, spaceID, id string) (*core.Entry, error) {
	e, ok := t.st.entries[id]
	if !ok || e.SpaceID != spaceID {
		return nil, fmt.Errorf("%w: entry %s", core.ErrNotFound, id)
	}
	out := e
	return &out, nil
}

func (t *tx) ListEntries(_ context.Context, spaceID string) ([]core.Entry, error) {
	var out []core.Entry
	for _, e := range t.st.entries {
		if e.SpaceID == spaceID {
			out = append(out, e)
		}
	}
	// Newest first, id as a stable tiebreak.
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (t *tx) UpdateEntry(_ context.Context, e *core.Entry) error {
	cur, ok := t.st.entries[e.ID]
	if !ok || cur.SpaceID != e.SpaceID {
		return fmt.Errorf("%w: entry %s", core.ErrNotFound, e.ID)
	}
	t.st.entries[e.ID] = *e
	return nil
}

func (t *tx) DeleteEntry(_ context.Context, spaceID, id string) error {
	e, ok := t.st.entries[id]
	if !ok || e.SpaceID != spaceID {
		return fmt.Errorf("%w: entry %s", core.ErrNotFound, id)
	}
	delete(t.st.entries, id)
	return nil
}

func (t *tx) SumEntriesByCategory(_ context.Context, spaceID, categoryID string, kind core.EntryKind, from, to time.Time) (core.Money, error) {
	var cents int64
	for _, e := range t.st.entries {
		if e.SpaceID != spaceID || e.CategoryID != categoryID || e.Kind != kind {
			continue
		}
		if e.Date.Before(from) || !e.Date.Before(to) {
			continue
		}
		cents += e.Amount.Cents
	}
	return core.Money{Cents: cents}, nil
}

// Recurring templates

func (t *tx) InsertTemplate(_ context.Context, rt *core.RecurringTemplate) error {
	t.st.templates[rt.ID] = *rt
	return nil
}

func (t *tx) GetTemplate(_ context.Context, spaceID, id string) (*core.RecurringTemplate, error) {
	rt, ok := t.st.templates[id]
	if !ok || rt.SpaceID != spaceID {
		return nil, fmt.Errorf("%w: template %s", core.ErrNotFound, id)
	}
	out := rt
	return &out, nil
}

func (t *tx) DueTemplates(_ context.Context, now time.Time) ([]core.RecurringTemplate, error) {
	var out []core.RecurringTemplate
	for _, rt := range t.st.templates {
		if rt.IsActive && !rt.NextDueDate.After(now) {
			out = append(out, rt)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].NextDueDate.Equal(out[j].NextDueDate) {
			return out[i].NextDueDate.Before(out[j].NextDueDate)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (t *tx) SetTemplateActive(_ context.Context, id string, active bool, expectedVersion int64) error {
	rt, ok := t.st.templates[id]
	if !ok {
		return fmt.Errorf("%w: template %s", core.ErrNotFound, id)
	}
	if rt.Version != expectedVersion {
		return fmt.Errorf("%w: template %s version %d != %d", core.ErrConflict, id, rt.Version, expectedVersion)
	}
	rt.IsActive = active
	rt.Version++
	rt.UpdatedAt = time.Now().UTC()
	t.st.templates[id] = rt
	return nil
}

func (t *tx) AdvanceTemplate(_ context.Context, id string, nextDue, lastGenerated time.Time, expectedVersion int64) error {
	rt, ok := t.st.templates[id]
	if !ok {
		return fmt.Errorf("%w: template %s", core.ErrNotFound, id)
	}
	if rt.Version != expectedVersion {
		return fmt.Errorf("%w: template %s version %d != %d", core.ErrConflict, id, rt.Version, expectedVersion)
	}
	rt.NextDueDate = nextDue
	lg := lastGenerated
	rt.LastGeneratedDate = &lg
	rt.Version++
	rt.UpdatedAt = time.Now().UTC()
	t.st.templates[id] = rt
	return nil
}

// Savings goals

func (t *tx) InsertGoal(_ context.Context, g *core.SavingsGoal) error {
	t.st.goals[g.ID] = *g
	return nil
}

func (t *tx) GetGoal(_ context.Context, spaceID, id string) (*core.SavingsGoal, error) {
	g, ok := t.st.goals[id]
	if !ok || g.SpaceID != spaceID {
		return nil, fmt.Errorf("%w: goal %s", core.ErrNotFound, id)
	}
	out := g
	return &out, nil
}

func (t *tx) UpdateGoalAmount(_ context.Context, id string, amount core.Money, expectedVersion int64) error {
	g, ok := t.st.goals[id]
	if !ok {
		return fmt.Errorf("%w: goal %s", core.ErrNotFound, id)
	}
	if g.Version != expectedVersion {
		return fmt.Errorf("%w: goal %s version %d != %d", core.ErrConflict, id, g.Version, expectedVersion)
	}
	g.CurrentAmount = amount
	g.Version++
	g.UpdatedAt = time.Now().UTC()
	t.st.goals[id] = g
	return nil
}

func (t *tx) InsertGoalTransaction(_ context.Context, gt *core.GoalTransaction) error {
	t.st.goalTxns[gt.ID] = *gt
	return nil
}

func (t *tx) ListGoalTransactions(_ context.Context, goalID string) ([]core.GoalTransaction, error) {
	var out []core.GoalTransaction
	for _, gt := range t.st.goalTxns {
		if gt.GoalID == goalID {
			out = append(out, gt)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// Budgets

func (t *tx) InsertBudget(_ context.Context, b *core.Budget) error {
	t.st.budgets[b.ID] = *b
	return nil
}

func (t *tx) GetBudget(_ context.Context, spaceID, id string) (*core.Budget, error) {
	b, ok := t.st.budgets[id]
	if !ok || b.SpaceID != spaceID {
		return nil, fmt.Errorf("%w: budget %s", core.ErrNotFound, id)
	}
	out := b
	return &out, nil
}

func (t *tx) ListBudgets(_ context.Context, spaceID string) ([]core.Budget, error) {
	var out []core.Budget
	for _, b := range t.st.budgets {
		if b.SpaceID == spaceID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

var _ storage.Store = (*Store)(nil)
var _ storage.Tx = (*tx)(nil)
