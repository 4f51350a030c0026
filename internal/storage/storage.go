// Package storage persists the four data collections: the transaction
// ledger, per-category budget limits, recurring templates and user
// accounts. Two backends implement the same interfaces: flat files
// matching the legacy on-disk formats (ledger sealed at rest), and a
// SQLite database.
package storage

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/kenay85/budget/internal/core"
)

// ErrMalformedRecord marks a persisted row that cannot be parsed. Such
// rows are skipped with a warning at load time, never fatal: one corrupt
// line must not take the rest of the ledger down with it.
var ErrMalformedRecord = errors.New("malformed persisted record")

// LedgerStore owns the ordered list of transactions for all users.
// Mutations act on the in-memory state; Save persists it. Callers must
// serialize access, there is no internal locking.
type LedgerStore interface {
	// All returns a snapshot of every transaction in insertion order.
	All(ctx context.Context) ([]core.Transaction, error)
	// Append adds a transaction at the end.
	Append(ctx context.Context, tx core.Transaction) error
	// RemoveMatching deletes the first transaction equal to tx (amount
	// within tolerance) and reports whether one was found.
	RemoveMatching(ctx context.Context, tx core.Transaction) (bool, error)
	// UpdateMatching replaces the first transaction equal to old with new
	// and reports whether one was found.
	UpdateMatching(ctx context.Context, old, updated core.Transaction) (bool, error)
	// Save persists the current state.
	Save(ctx context.Context) error
}

// BudgetStore owns the category → limit mapping. Limits are global
// across users.
type BudgetStore interface {
	// Limits returns a snapshot of all configured limits.
	Limits(ctx context.Context) (map[string]decimal.Decimal, error)
	// SetLimit creates or replaces the limit for a category.
	SetLimit(ctx context.Context, category string, limit decimal.Decimal) error
	// Save persists the current state.
	Save(ctx context.Context) error
}

// RecurringStore owns the recurring templates, keyed by their generated
// id.
type RecurringStore interface {
	// All returns every template in a stable order.
	All(ctx context.Context) ([]core.RecurringTemplate, error)
	// Create stores a new template under a freshly generated id, which it
	// returns. The template's ID field is ignored on input.
	Create(ctx context.Context, tpl core.RecurringTemplate) (string, error)
	// Update replaces every field except the id. Unknown ids are an error.
	Update(ctx context.Context, id string, tpl core.RecurringTemplate) error
	// Delete removes a template. Unknown ids are a no-op.
	Delete(ctx context.Context, id string) error
	// Save persists the current state.
	Save(ctx context.Context) error
}

// AccountStore owns the user accounts, keyed by case-sensitive username.
type AccountStore interface {
	// Lookup returns the account for a username, if present.
	Lookup(ctx context.Context, username string) (core.UserAccount, bool, error)
	// Create stores a new account. Duplicate usernames are an error.
	Create(ctx context.Context, account core.UserAccount) error
	// Save persists the current state.
	Save(ctx context.Context) error
}

// ErrUnknownTemplate is returned by RecurringStore.Update for ids that do
// not exist.
var ErrUnknownTemplate = errors.New("unknown recurring template id")

// ErrAccountExists is returned by AccountStore.Create for usernames that
// are already taken.
var ErrAccountExists = errors.New("account already exists")
