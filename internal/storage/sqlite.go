package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	"github.com/teris-io/shortid"

	"github.com/kenay85/budget/internal/core"
	"github.com/kenay85/budget/internal/log"

	_ "modernc.org/sqlite"
)

// SQLiteRepository holds all four data collections in one SQLite
// database. Rows carry synthetic ids at the storage boundary, but the
// exposed transaction API stays value-match for compatibility with the
// file backend. Mutations are durable immediately, so the per-store Save
// methods are no-ops. The Ledger, Budgets, Recurring and Accounts views
// expose the store interfaces.
type SQLiteRepository struct {
	db     *sql.DB
	logger *log.Logger
	ids    *shortid.Shortid
}

// NewSQLiteRepository opens (creating if needed) the database at dbPath
// and brings the schema up to date.
func NewSQLiteRepository(dbPath string, logger *log.Logger) (*SQLiteRepository, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:     db,
		logger: logger.WithComponent(log.ComponentStorage),
		ids:    shortid.MustNew(2, shortid.DefaultABC, uint64(time.Now().UnixNano())),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ledger returns the LedgerStore view of the repository.
func (r *SQLiteRepository) Ledger() LedgerStore { return sqliteLedger{r} }

// Budgets returns the BudgetStore view of the repository.
func (r *SQLiteRepository) Budgets() BudgetStore { return sqliteBudgets{r} }

// Recurring returns the RecurringStore view of the repository.
func (r *SQLiteRepository) Recurring() RecurringStore { return sqliteRecurring{r} }

// Accounts returns the AccountStore view of the repository.
func (r *SQLiteRepository) Accounts() AccountStore { return sqliteAccounts{r} }

// --- ledger ---

func (r *SQLiteRepository) listTransactions(ctx context.Context) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, owner, date, kind, category, description, amount FROM transactions ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		var (
			id                                         int64
			owner, date, kind, category, descr, amount string
		)
		if err := rows.Scan(&id, &owner, &date, &kind, &category, &descr, &amount); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		tx, err := decodeTransaction([]string{owner, date, kind, category, descr, amount})
		if err != nil {
			r.logger.Warn("skipping transaction row",
				log.FieldError, fmt.Errorf("%w: id %d: %v", ErrMalformedRecord, id, err))
			continue
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) appendTransaction(ctx context.Context, tx core.Transaction) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions (owner, date, kind, category, description, amount) VALUES (?, ?, ?, ?, ?, ?)`,
		tx.Owner, tx.Date.String(), string(tx.Kind), tx.Category, tx.Description, tx.Amount.String())
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// firstMatch finds the row id of the earliest transaction equal to tx.
// The five exact fields narrow the candidates in SQL; the amount is
// compared in Go because the tolerance does not translate to a TEXT
// column comparison.
func (r *SQLiteRepository) firstMatch(ctx context.Context, tx core.Transaction) (int64, bool, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, amount FROM transactions
		 WHERE owner = ? AND date = ? AND kind = ? AND category = ? AND description = ?
		 ORDER BY id`,
		tx.Owner, tx.Date.String(), string(tx.Kind), tx.Category, tx.Description)
	if err != nil {
		return 0, false, fmt.Errorf("match transaction: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id     int64
			amount string
		)
		if err := rows.Scan(&id, &amount); err != nil {
			return 0, false, fmt.Errorf("scan match candidate: %w", err)
		}
		parsed, err := core.ParseAmount(amount)
		if err != nil {
			continue
		}
		if core.AmountsMatch(parsed, tx.Amount) {
			return id, true, nil
		}
	}
	return 0, false, rows.Err()
}

func (r *SQLiteRepository) removeMatching(ctx context.Context, tx core.Transaction) (bool, error) {
	id, ok, err := r.firstMatch(ctx, tx)
	if err != nil || !ok {
		return false, err
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id); err != nil {
		return false, fmt.Errorf("delete transaction: %w", err)
	}
	return true, nil
}

func (r *SQLiteRepository) updateMatching(ctx context.Context, old, updated core.Transaction) (bool, error) {
	id, ok, err := r.firstMatch(ctx, old)
	if err != nil || !ok {
		return false, err
	}
	_, err = r.db.ExecContext(ctx,
		`UPDATE transactions SET owner = ?, date = ?, kind = ?, category = ?, description = ?, amount = ? WHERE id = ?`,
		updated.Owner, updated.Date.String(), string(updated.Kind), updated.Category, updated.Description, updated.Amount.String(), id)
	if err != nil {
		return false, fmt.Errorf("update transaction: %w", err)
	}
	return true, nil
}

// --- budgets ---

func (r *SQLiteRepository) limits(ctx context.Context) (map[string]decimal.Decimal, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT category, limit_amount FROM budget_limits`)
	if err != nil {
		return nil, fmt.Errorf("list budget limits: %w", err)
	}
	defer rows.Close()

	limits := make(map[string]decimal.Decimal)
	for rows.Next() {
		var category, limit string
		if err := rows.Scan(&category, &limit); err != nil {
			return nil, fmt.Errorf("scan budget limit: %w", err)
		}
		parsed, err := core.ParseAmount(limit)
		if err != nil {
			r.logger.Warn("skipping budget limit row",
				log.FieldCategory, category,
				log.FieldError, fmt.Errorf("%w: %v", ErrMalformedRecord, err))
			continue
		}
		limits[category] = parsed
	}
	return limits, rows.Err()
}

func (r *SQLiteRepository) setLimit(ctx context.Context, category string, limit decimal.Decimal) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO budget_limits (category, limit_amount) VALUES (?, ?)
		 ON CONFLICT(category) DO UPDATE SET limit_amount = excluded.limit_amount`,
		category, limit.String())
	if err != nil {
		return fmt.Errorf("set budget limit: %w", err)
	}
	return nil
}

// --- recurring templates ---

func (r *SQLiteRepository) listTemplates(ctx context.Context) ([]core.RecurringTemplate, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, owner, next_due, interval_days, kind, category, amount, description
		 FROM recurring_templates ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("list recurring templates: %w", err)
	}
	defer rows.Close()

	var out []core.RecurringTemplate
	for rows.Next() {
		var (
			tpl                   core.RecurringTemplate
			nextDue, kind, amount string
		)
		if err := rows.Scan(&tpl.ID, &tpl.Owner, &nextDue, &tpl.IntervalDays, &kind, &tpl.Category, &amount, &tpl.Description); err != nil {
			return nil, fmt.Errorf("scan recurring template: %w", err)
		}
		tpl, err := decodeTemplate(tpl, nextDue, kind, amount)
		if err != nil {
			r.logger.Warn("skipping recurring template row",
				log.FieldTemplate, tpl.ID,
				log.FieldError, fmt.Errorf("%w: %v", ErrMalformedRecord, err))
			continue
		}
		out = append(out, tpl)
	}
	return out, rows.Err()
}

func decodeTemplate(tpl core.RecurringTemplate, nextDue, kind, amount string) (core.RecurringTemplate, error) {
	due, err := core.ParseDate(nextDue)
	if err != nil {
		return tpl, err
	}
	parsedKind, err := core.ParseKind(kind)
	if err != nil {
		return tpl, err
	}
	parsedAmount, err := core.ParseAmount(amount)
	if err != nil {
		return tpl, err
	}
	tpl.NextDue, tpl.Kind, tpl.Amount = due, parsedKind, parsedAmount
	return tpl, nil
}

func (r *SQLiteRepository) createTemplate(ctx context.Context, tpl core.RecurringTemplate) (string, error) {
	if err := tpl.Validate(); err != nil {
		return "", err
	}
	id, err := r.ids.Generate()
	if err != nil {
		return "", fmt.Errorf("generate template id: %w", err)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO recurring_templates (id, owner, next_due, interval_days, kind, category, amount, description)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, tpl.Owner, tpl.NextDue.String(), tpl.IntervalDays, string(tpl.Kind), tpl.Category, tpl.Amount.String(), tpl.Description)
	if err != nil {
		return "", fmt.Errorf("insert recurring template: %w", err)
	}
	return id, nil
}

func (r *SQLiteRepository) updateTemplate(ctx context.Context, id string, tpl core.RecurringTemplate) error {
	if err := tpl.Validate(); err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE recurring_templates
		 SET owner = ?, next_due = ?, interval_days = ?, kind = ?, category = ?, amount = ?, description = ?
		 WHERE id = ?`,
		tpl.Owner, tpl.NextDue.String(), tpl.IntervalDays, string(tpl.Kind), tpl.Category, tpl.Amount.String(), tpl.Description, id)
	if err != nil {
		return fmt.Errorf("update recurring template: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update recurring template: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrUnknownTemplate, id)
	}
	return nil
}

func (r *SQLiteRepository) deleteTemplate(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM recurring_templates WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete recurring template: %w", err)
	}
	return nil
}

// --- accounts ---

func (r *SQLiteRepository) lookupAccount(ctx context.Context, username string) (core.UserAccount, bool, error) {
	var account core.UserAccount
	err := r.db.QueryRowContext(ctx,
		`SELECT username, password_hash FROM accounts WHERE username = ?`, username).
		Scan(&account.Username, &account.PasswordHash)
	if err == sql.ErrNoRows {
		return core.UserAccount{}, false, nil
	}
	if err != nil {
		return core.UserAccount{}, false, fmt.Errorf("lookup account: %w", err)
	}
	return account, true, nil
}

func (r *SQLiteRepository) createAccount(ctx context.Context, account core.UserAccount) error {
	if _, ok, err := r.lookupAccount(ctx, account.Username); err != nil {
		return err
	} else if ok {
		return fmt.Errorf("%w: %s", ErrAccountExists, account.Username)
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO accounts (username, password_hash) VALUES (?, ?)`,
		account.Username, account.PasswordHash)
	if err != nil {
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

// --- interface views ---

type sqliteLedger struct{ repo *SQLiteRepository }

func (v sqliteLedger) All(ctx context.Context) ([]core.Transaction, error) {
	return v.repo.listTransactions(ctx)
}
func (v sqliteLedger) Append(ctx context.Context, tx core.Transaction) error {
	return v.repo.appendTransaction(ctx, tx)
}
func (v sqliteLedger) RemoveMatching(ctx context.Context, tx core.Transaction) (bool, error) {
	return v.repo.removeMatching(ctx, tx)
}
func (v sqliteLedger) UpdateMatching(ctx context.Context, old, updated core.Transaction) (bool, error) {
	return v.repo.updateMatching(ctx, old, updated)
}
func (v sqliteLedger) Save(context.Context) error { return nil }

type sqliteBudgets struct{ repo *SQLiteRepository }

func (v sqliteBudgets) Limits(ctx context.Context) (map[string]decimal.Decimal, error) {
	return v.repo.limits(ctx)
}
func (v sqliteBudgets) SetLimit(ctx context.Context, category string, limit decimal.Decimal) error {
	return v.repo.setLimit(ctx, category, limit)
}
func (v sqliteBudgets) Save(context.Context) error { return nil }

type sqliteRecurring struct{ repo *SQLiteRepository }

func (v sqliteRecurring) All(ctx context.Context) ([]core.RecurringTemplate, error) {
	return v.repo.listTemplates(ctx)
}
func (v sqliteRecurring) Create(ctx context.Context, tpl core.RecurringTemplate) (string, error) {
	return v.repo.createTemplate(ctx, tpl)
}
func (v sqliteRecurring) Update(ctx context.Context, id string, tpl core.RecurringTemplate) error {
	return v.repo.updateTemplate(ctx, id, tpl)
}
func (v sqliteRecurring) Delete(ctx context.Context, id string) error {
	return v.repo.deleteTemplate(ctx, id)
}
func (v sqliteRecurring) Save(context.Context) error { return nil }

type sqliteAccounts struct{ repo *SQLiteRepository }

func (v sqliteAccounts) Lookup(ctx context.Context, username string) (core.UserAccount, bool, error) {
	return v.repo.lookupAccount(ctx, username)
}
func (v sqliteAccounts) Create(ctx context.Context, account core.UserAccount) error {
	return v.repo.createAccount(ctx, account)
}
func (v sqliteAccounts) Save(context.Context) error { return nil }

var (
	_ LedgerStore    = sqliteLedger{}
	_ BudgetStore    = sqliteBudgets{}
	_ RecurringStore = sqliteRecurring{}
	_ AccountStore   = sqliteAccounts{}
)
