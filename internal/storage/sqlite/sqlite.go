// Package sqlite implements storage.Store on modernc.org/sqlite.
// Each RunInTx maps to one database transaction; optimistic concurrency
// uses a version column checked in the UPDATE's WHERE clause.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"finledger/internal/core"
	"finledger/internal/storage"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) RunInTx(ctx context.Context, fn func(storage.Tx) error) error {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %v", core.ErrStorage, err)
	}

	if err := fn(&tx{tx: dbTx}); err != nil {
		_ = dbTx.Rollback()
		return err
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", core.ErrStorage, err)
	}
	return nil
}

type tx struct {
	tx *sql.Tx
}

func fmtTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

func fmtTimePtr(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: fmtTime(*t), Valid: true}
}

func parseTimePtr(s sql.NullString) (*time.Time, error) {
	if !s.Valid {
		return nil, nil
	}
	t, err := parseTime(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// casResult classifies a CAS-style UPDATE: a zero row count means
// either the row is gone (not found) or another writer bumped the
// version first (conflict); a follow-up existence probe tells the two
// apart.
func (t *tx) casResult(ctx context.Context, res sql.Result, table, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: rows affected: %v", core.ErrStorage, err)
	}
	if n > 0 {
		return nil
	}
	var one int
	err = t.tx.QueryRowContext(ctx, fmt.Sprintf("SELECT 1 FROM %s WHERE id = ?", table), id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s %s", core.ErrNotFound, table, id)
	}
	if err != nil {
		return fmt.Errorf("%w: check %s row: %v", core.ErrStorage, table, err)
	}
	return fmt.Errorf("%w: %s %s", core.ErrConflict, table, id)
}

// Accounts

func (t *tx) InsertAccount(ctx context.Context, a *core.Account) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO accounts (id, space_id, name, type, starting_balance_cents, current_balance_cents, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.SpaceID, a.Name, string(a.Type), a.StartingBalance.Cents, a.CurrentBalance.Cents,
		a.Version, fmtTime(a.CreatedAt), fmtTime(a.UpdatedAt))
	if err != nil {
		return fmt.Errorf("%w: insert account: %v", core.ErrStorage, err)
	}
	return nil
}

func (t *tx) scanAccount(row *sql.Row) (*core.Account, error) {
	var a core.Account
	var typ, createdAt, updatedAt string
	err := row.Scan(&a.ID, &a.SpaceID, &a.Name, &typ, &a.StartingBalance.Cents,
		&a.CurrentBalance.Cents, &a.Version, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	a.Type = core.AccountType(typ)
	if a.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if a.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}

func (t *tx) GetAccount(ctx context.Context, spaceID, id string) (*core.Account, error) {
	row := t.tx.QueryRowContext(ctx, `
		SELECT id, space_id, name, type, starting_balance_cents, current_balance_cents, version, created_at, updated_at
		FROM accounts WHERE id = ? AND space_id = ?`, id, spaceID)
	a, err := t.scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: account %s", core.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get account: %v", core.ErrStorage, err)
	}
	return a, nil
}

func (t *tx) ListAccounts(ctx context.Context, spaceID string) ([]core.Account, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT id, space_id, name, type, starting_balance_cents, current_balance_cents, version, created_at, updated_at
		FROM accounts WHERE space_id = ? ORDER BY name`, spaceID)
	if err != nil {
		return nil, fmt.Errorf("%w: list accounts: %v", core.ErrStorage, err)
	}
	defer rows.Close()

	var out []core.Account
	for rows.Next() {
		var a core.Account
		var typ, createdAt, updatedAt string
		if err := rows.Scan(&a.ID, &a.SpaceID, &a.Name, &typ, &a.StartingBalance.Cents,
			&a.CurrentBalance.Cents, &a.Version, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("%w: scan account: %v", core.ErrStorage, err)
		}
		a.Type = core.AccountType(typ)
		if a.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("%w: parse created_at: %v", core.ErrStorage, err)
		}
		if a.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, fmt.Errorf("%w: parse updated_at: %v", core.ErrStorage, err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list accounts: %v", core.ErrStorage, err)
	}
	return out, nil
}

func (t *tx) UpdateAccountBalance(ctx context.Context, id string, balance core.Money, expectedVersion int64) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE accounts SET current_balance_cents = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`,
		balance.Cents, fmtTime(time.Now()), id, expectedVersion)
	if err != nil {
		return fmt.Errorf("%w: update account balance: %v", core.ErrStorage, err)
	}
	return t.casResult(ctx, res, "accounts", id)
}

// Categories

func (t *tx) InsertCategory(ctx context.Context, c *core.Category) error {
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO categories (id, space_id, name) VALUES (?, ?, ?)`,
		c.ID, c.SpaceID, c.Name)
	if err != nil {
		return fmt.Errorf("%w: insert category: %v", core.ErrStorage, err)
	}
	return nil
}

func (t *tx) GetCategory(ctx context.Context, spaceID, id string) (*core.Category, error) {
	var c core.Category
	err := t.tx.QueryRowContext(ctx,
		`SELECT id, space_id, name FROM categories WHERE id = ? AND space_id = ?`, id, spaceID).
		Scan(&c.ID, &c.SpaceID, &c.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: category %s", core.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get category: %v", core.ErrStorage, err)
	}
	return &c, nil
}

func (t *tx) ListCategories(ctx context.Context, spaceID string) ([]core.Category, error) {
	rows, err := t.tx.QueryContext(ctx,
		`SELECT id, space_id, name FROM categories WHERE space_id = ? ORDER BY name`, spaceID)
	if err != nil {
		return nil, fmt.Errorf("%w: list categories: %v", core.ErrStorage, err)
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		var c core.Category
		if err := rows.Scan(&c.ID, &c.SpaceID, &c.Name); err != nil {
			return nil, fmt.Errorf("%w: scan category: %v", core.ErrStorage, err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list categories: %v", core.ErrStorage, err)
	}
	return out, nil
}

func (t *tx) DeleteCategory(ctx context.Context, spaceID, id string) error {
	res, err := t.tx.ExecContext(ctx,
		`DELETE FROM categories WHERE id = ? AND space_id = ?`, id, spaceID)
	if err != nil {
		return fmt.Errorf("%w: delete category: %v", core.ErrStorage, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: rows affected: %v", core.ErrStorage, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: category %s", core.ErrNotFound, id)
	}
	return nil
}

func (t *tx) CountEntriesByCategory(ctx context.Context, spaceID, categoryID string) (int64, error) {
	var n int64
	err := t.tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM entries WHERE space_id = ? AND category_id = ?`,
		spaceID, categoryID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("%w: count entries by category: %v", core.ErrStorage, err)
	}
	return n, nil
}

// Entries

const entryColumns = `id, space_id, kind, account_id, category_id, amount_cents, entry_date, notes, added_by_user_id, source_template_id, created_at, updated_at`

func (t *tx) InsertEntry(ctx context.Context, e *core.Entry) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO entries (`+entryColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.SpaceID, string(e.Kind), e.AccountID, nullStr(e.CategoryID), e.Amount.Cents,
		fmtTime(e.Date), e.Notes, e.AddedByUserID, nullStr(e.SourceTemplateID),
		fmtTime(e.CreatedAt), fmtTime(e.UpdatedAt))
	if err != nil {
		return fmt.Errorf("%w: insert entry: %v", core.ErrStorage, err)
	}
	return nil
}

func scanEntry(scan func(dest ...any) error) (*core.Entry, error) {
	var e core.Entry
	var kind, entryDate, createdAt, updatedAt string
	var categoryID, sourceTemplateID sql.NullString
	err := scan(&e.ID, &e.SpaceID, &kind, &e.AccountID, &categoryID, &e.Amount.Cents,
		&entryDate, &e.Notes, &e.AddedByUserID, &sourceTemplateID, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	e.Kind = core.EntryKind(kind)
	e.CategoryID = categoryID.String
	e.SourceTemplateID = sourceTemplateID.String
	if e.Date, err = parseTime(entryDate); err != nil {
		return nil, err
	}
	if e.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if e.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &e, nil
}

func (t *tx) GetEntry(ctx context.Context, spaceID, id string) (*core.Entry, error) {
	row := t.tx.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM entries WHERE id = ? AND space_id = ?`, id, spaceID)
	e, err := scanEntry(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: entry %s", core.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get entry: %v", core.ErrStorage, err)
	}
	return e, nil
}

func (t *tx) ListEntries(ctx context.Context, spaceID string) ([]core.Entry, error) {
	rows, err := t.tx.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM entries WHERE space_id = ? ORDER BY entry_date DESC, id`, spaceID)
	if err != nil {
		return nil, fmt.Errorf("%w: list entries: %v", core.ErrStorage, err)
	}
	defer rows.Close()

	var out []core.Entry
	for rows.Next() {
		e, err := scanEntry(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("%w: scan entry: %v", core.ErrStorage, err)
		}
		out = append(out, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list entries: %v", core.ErrStorage, err)
	}
	return out, nil
}

func (t *tx) UpdateEntry(ctx context.Context, e *core.Entry) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE entries SET kind = ?, account_id = ?, category_id = ?, amount_cents = ?,
			entry_date = ?, notes = ?, updated_at = ?
		WHERE id = ? AND space_id = ?`,
		string(e.Kind), e.AccountID, nullStr(e.CategoryID), e.Amount.Cents,
		fmtTime(e.Date), e.Notes, fmtTime(time.Now()), e.ID, e.SpaceID)
	if err != nil {
		return fmt.Errorf("%w: update entry: %v", core.ErrStorage, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: rows affected: %v", core.ErrStorage, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: entry %s", core.ErrNotFound, e.ID)
	}
	return nil
}

func (t *tx) DeleteEntry(ctx context.Context, spaceID, id string) error {
	res, err := t.tx.ExecContext(ctx,
		`DELETE FROM entries WHERE id = ? AND space_id = ?`, id, spaceID)
	if err != nil {
		return fmt.Errorf("%w: delete entry: %v", core.ErrStorage, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: rows affected: %v", core.ErrStorage, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: entry %s", core.ErrNotFound, id)
	}
	return nil
}

func (t *tx) SumEntriesByCategory(ctx context.Context, spaceID, categoryID string, kind core.EntryKind, from, to time.Time) (core.Money, error) {
	var cents int64
	err := t.tx.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount_cents), 0) FROM entries
		WHERE space_id = ? AND category_id = ? AND kind = ? AND entry_date >= ? AND entry_date < ?`,
		spaceID, categoryID, string(kind), fmtTime(from), fmtTime(to)).Scan(&cents)
	if err != nil {
		return core.Money{}, fmt.Errorf("%w: sum entries by category: %v", core.ErrStorage, err)
	}
	return core.Money{Cents: cents}, nil
}

// Recurring templates

const templateColumns = `id, space_id, kind, account_id, category_id, amount_cents, frequency, start_date, end_date, next_due_date, last_generated_date, is_active, version, created_by_user_id, created_at, updated_at`

func (t *tx) InsertTemplate(ctx context.Context, rt *core.RecurringTemplate) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO recurring_templates (`+templateColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rt.ID, rt.SpaceID, string(rt.Kind), rt.AccountID, nullStr(rt.CategoryID), rt.Amount.Cents,
		string(rt.Frequency), fmtTime(rt.StartDate), fmtTimePtr(rt.EndDate), fmtTime(rt.NextDueDate),
		fmtTimePtr(rt.LastGeneratedDate), boolToInt(rt.IsActive), rt.Version, rt.CreatedByUserID,
		fmtTime(rt.CreatedAt), fmtTime(rt.UpdatedAt))
	if err != nil {
		return fmt.Errorf("%w: insert template: %v", core.ErrStorage, err)
	}
	return nil
}

func scanTemplate(scan func(dest ...any) error) (*core.RecurringTemplate, error) {
	var rt core.RecurringTemplate
	var kind, frequency, startDate, nextDue, createdAt, updatedAt string
	var categoryID, endDate, lastGenerated sql.NullString
	var active int
	err := scan(&rt.ID, &rt.SpaceID, &kind, &rt.AccountID, &categoryID, &rt.Amount.Cents,
		&frequency, &startDate, &endDate, &nextDue, &lastGenerated, &active, &rt.Version,
		&rt.CreatedByUserID, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	rt.Kind = core.EntryKind(kind)
	rt.CategoryID = categoryID.String
	rt.Frequency = core.Frequency(frequency)
	rt.IsActive = active != 0
	if rt.StartDate, err = parseTime(startDate); err != nil {
		return nil, err
	}
	if rt.NextDueDate, err = parseTime(nextDue); err != nil {
		return nil, err
	}
	if rt.EndDate, err = parseTimePtr(endDate); err != nil {
		return nil, err
	}
	if rt.LastGeneratedDate, err = parseTimePtr(lastGenerated); err != nil {
		return nil, err
	}
	if rt.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if rt.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &rt, nil
}

func (t *tx) GetTemplate(ctx context.Context, spaceID, id string) (*core.RecurringTemplate, error) {
	row := t.tx.QueryRowContext(ctx,
		`SELECT `+templateColumns+` FROM recurring_templates WHERE id = ? AND space_id = ?`, id, spaceID)
	rt, err := scanTemplate(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: template %s", core.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get template: %v", core.ErrStorage, err)
	}
	return rt, nil
}

func (t *tx) DueTemplates(ctx context.Context, now time.Time) ([]core.RecurringTemplate, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT `+templateColumns+` FROM recurring_templates
		WHERE is_active = 1 AND next_due_date <= ?
		ORDER BY next_due_date, id`, fmtTime(now))
	if err != nil {
		return nil, fmt.Errorf("%w: due templates: %v", core.ErrStorage, err)
	}
	defer rows.Close()

	var out []core.RecurringTemplate
	for rows.Next() {
		rt, err := scanTemplate(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("%w: scan template: %v", core.ErrStorage, err)
		}
		out = append(out, *rt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: due templates: %v", core.ErrStorage, err)
	}
	return out, nil
}

func (t *tx) SetTemplateActive(ctx context.Context, id string, active bool, expectedVersion int64) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE recurring_templates SET is_active = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`,
		boolToInt(active), fmtTime(time.Now()), id, expectedVersion)
	if err != nil {
		return fmt.Errorf("%w: set template active: %v", core.ErrStorage, err)
	}
	return t.casResult(ctx, res, "recurring_templates", id)
}

func (t *tx) AdvanceTemplate(ctx context.Context, id string, nextDue, lastGenerated time.Time, expectedVersion int64) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE recurring_templates SET next_due_date = ?, last_generated_date = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`,
		fmtTime(nextDue), fmtTime(lastGenerated), fmtTime(time.Now()), id, expectedVersion)
	if err != nil {
		return fmt.Errorf("%w: advance template: %v", core.ErrStorage, err)
	}
	return t.casResult(ctx, res, "recurring_templates", id)
}

// Savings goals

func (t *tx) InsertGoal(ctx context.Context, g *core.SavingsGoal) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO savings_goals (id, space_id, name, target_amount_cents, current_amount_cents, target_date, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		g.ID, g.SpaceID, g.Name, g.TargetAmount.Cents, g.CurrentAmount.Cents,
		fmtTime(g.TargetDate), g.Version, fmtTime(g.CreatedAt), fmtTime(g.UpdatedAt))
	if err != nil {
		return fmt.Errorf("%w: insert goal: %v", core.ErrStorage, err)
	}
	return nil
}

func (t *tx) GetGoal(ctx context.Context, spaceID, id string) (*core.SavingsGoal, error) {
	var g core.SavingsGoal
	var targetDate, createdAt, updatedAt string
	err := t.tx.QueryRowContext(ctx, `
		SELECT id, space_id, name, target_amount_cents, current_amount_cents, target_date, version, created_at, updated_at
		FROM savings_goals WHERE id = ? AND space_id = ?`, id, spaceID).
		Scan(&g.ID, &g.SpaceID, &g.Name, &g.TargetAmount.Cents, &g.CurrentAmount.Cents,
			&targetDate, &g.Version, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: goal %s", core.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get goal: %v", core.ErrStorage, err)
	}
	if g.TargetDate, err = parseTime(targetDate); err != nil {
		return nil, fmt.Errorf("%w: parse target_date: %v", core.ErrStorage, err)
	}
	if g.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("%w: parse created_at: %v", core.ErrStorage, err)
	}
	if g.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("%w: parse updated_at: %v", core.ErrStorage, err)
	}
	return &g, nil
}

func (t *tx) UpdateGoalAmount(ctx context.Context, id string, amount core.Money, expectedVersion int64) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE savings_goals SET current_amount_cents = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`,
		amount.Cents, fmtTime(time.Now()), id, expectedVersion)
	if err != nil {
		return fmt.Errorf("%w: update goal amount: %v", core.ErrStorage, err)
	}
	return t.casResult(ctx, res, "savings_goals", id)
}

func (t *tx) InsertGoalTransaction(ctx context.Context, gt *core.GoalTransaction) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO goal_transactions (id, goal_id, type, amount_cents, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		gt.ID, gt.GoalID, string(gt.Type), gt.Amount.Cents, fmtTime(gt.CreatedAt))
	if err != nil {
		return fmt.Errorf("%w: insert goal transaction: %v", core.ErrStorage, err)
	}
	return nil
}

func (t *tx) ListGoalTransactions(ctx context.Context, goalID string) ([]core.GoalTransaction, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT id, goal_id, type, amount_cents, created_at
		FROM goal_transactions WHERE goal_id = ? ORDER BY created_at`, goalID)
	if err != nil {
		return nil, fmt.Errorf("%w: list goal transactions: %v", core.ErrStorage, err)
	}
	defer rows.Close()

	var out []core.GoalTransaction
	for rows.Next() {
		var gt core.GoalTransaction
		var typ, createdAt string
		if err := rows.Scan(&gt.ID, &gt.GoalID, &typ, &gt.Amount.Cents, &createdAt); err != nil {
			return nil, fmt.Errorf("%w: scan goal transaction: %v", core.ErrStorage, err)
		}
		gt.Type = core.GoalTransactionType(typ)
		if gt.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("%w: parse created_at: %v", core.ErrStorage, err)
		}
		out = append(out, gt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list goal transactions: %v", core.ErrStorage, err)
	}
	return out, nil
}

// Budgets

func (t *tx) InsertBudget(ctx context.Context, b *core.Budget) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO budgets (id, space_id, category_id, amount_cents, start_date, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		b.ID, b.SpaceID, b.CategoryID, b.Amount.Cents, fmtTime(b.StartDate), fmtTime(b.CreatedAt))
	if err != nil {
		return fmt.Errorf("%w: insert budget: %v", core.ErrStorage, err)
	}
	return nil
}

func (t *tx) GetBudget(ctx context.Context, spaceID, id string) (*core.Budget, error) {
	var b core.Budget
	var startDate, createdAt string
	err := t.tx.QueryRowContext(ctx, `
		SELECT id, space_id, category_id, amount_cents, start_date, created_at
		FROM budgets WHERE id = ? AND space_id = ?`, id, spaceID).
		Scan(&b.ID, &b.SpaceID, &b.CategoryID, &b.Amount.Cents, &startDate, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: budget %s", core.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get budget: %v", core.ErrStorage, err)
	}
	if b.StartDate, err = parseTime(startDate); err != nil {
		return nil, fmt.Errorf("%w: parse start_date: %v", core.ErrStorage, err)
	}
	if b.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("%w: parse created_at: %v", core.ErrStorage, err)
	}
	return &b, nil
}

func (t *tx) ListBudgets(ctx context.Context, spaceID string) ([]core.Budget, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT id, space_id, category_id, amount_cents, start_date, created_at
		FROM budgets WHERE space_id = ? ORDER BY created_at`, spaceID)
	if err != nil {
		return nil, fmt.Errorf("%w: list budgets: %v", core.ErrStorage, err)
	}
	defer rows.Close()

	var out []core.Budget
	for rows.Next() {
		var b core.Budget
		var startDate, createdAt string
		if err := rows.Scan(&b.ID, &b.SpaceID, &b.CategoryID, &b.Amount.Cents, &startDate, &createdAt); err != nil {
			return nil, fmt.Errorf("%w: scan budget: %v", core.ErrStorage, err)
		}
		if b.StartDate, err = parseTime(startDate); err != nil {
			return nil, fmt.Errorf("%w: parse start_date: %v", core.ErrStorage, err)
		}
		if b.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("%w: parse created_at: %v", core.ErrStorage, err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list budgets: %v", core.ErrStorage, err)
	}
	return out, nil
}

func nullStr(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

var _ storage.Store = (*Store)(nil)
var _ storage.Tx = (*tx)(nil)
