package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/kenay85/budget/internal/core"
	"github.com/kenay85/budget/internal/log"
	"github.com/kenay85/budget/internal/storage"
)

func testLogger() *log.Logger {
	return log.New(log.Config{
		Component: "test",
		Handler:   slog.NewTextHandler(io.Discard, nil),
	})
}

// In-memory stores for exercising the services without touching disk.
// Unlike the real stores they accept templates as-is, so tests can plant
// records that Create would reject.

type fakeLedger struct {
	entries []core.Transaction
	saves   int
}

func (f *fakeLedger) All(context.Context) ([]core.Transaction, error) {
	snapshot := make([]core.Transaction, len(f.entries))
	copy(snapshot, f.entries)
	return snapshot, nil
}

func (f *fakeLedger) Append(_ context.Context, tx core.Transaction) error {
	f.entries = append(f.entries, tx)
	return nil
}

func (f *fakeLedger) RemoveMatching(_ context.Context, tx core.Transaction) (bool, error) {
	for i, e := range f.entries {
		if e.Equal(tx) {
			f.entries = append(f.entries[:i], f.entries[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeLedger) UpdateMatching(_ context.Context, old, updated core.Transaction) (bool, error) {
	for i, e := range f.entries {
		if e.Equal(old) {
			f.entries[i] = updated
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeLedger) Save(context.Context) error {
	f.saves++
	return nil
}

type fakeBudgets struct {
	limits map[string]decimal.Decimal
	saves  int
}

func newFakeBudgets() *fakeBudgets {
	return &fakeBudgets{limits: make(map[string]decimal.Decimal)}
}

func (f *fakeBudgets) Limits(context.Context) (map[string]decimal.Decimal, error) {
	out := make(map[string]decimal.Decimal, len(f.limits))
	for k, v := range f.limits {
		out[k] = v
	}
	return out, nil
}

func (f *fakeBudgets) SetLimit(_ context.Context, category string, limit decimal.Decimal) error {
	f.limits[category] = limit
	return nil
}

func (f *fakeBudgets) Save(context.Context) error {
	f.saves++
	return nil
}

type fakeRecurring struct {
	templates []core.RecurringTemplate
	saves     int
	nextID    int
}

func (f *fakeRecurring) All(context.Context) ([]core.RecurringTemplate, error) {
	snapshot := make([]core.RecurringTemplate, len(f.templates))
	copy(snapshot, f.templates)
	return snapshot, nil
}

func (f *fakeRecurring) Create(_ context.Context, tpl core.RecurringTemplate) (string, error) {
	if err := tpl.Validate(); err != nil {
		return "", err
	}
	f.nextID++
	tpl.ID = fmt.Sprintf("tpl-%d", f.nextID)
	f.templates = append(f.templates, tpl)
	return tpl.ID, nil
}

// plant inserts a template without validation.
func (f *fakeRecurring) plant(tpl core.RecurringTemplate) {
	f.templates = append(f.templates, tpl)
}

func (f *fakeRecurring) Update(_ context.Context, id string, tpl core.RecurringTemplate) error {
	for i := range f.templates {
		if f.templates[i].ID == id {
			tpl.ID = id
			f.templates[i] = tpl
			return nil
		}
	}
	return storage.ErrUnknownTemplate
}

func (f *fakeRecurring) Delete(_ context.Context, id string) error {
	for i := range f.templates {
		if f.templates[i].ID == id {
			f.templates = append(f.templates[:i], f.templates[i+1:]...)
			return nil
		}
	}
	return nil
}

func (f *fakeRecurring) Save(context.Context) error {
	f.saves++
	return nil
}

// brokenSaveRecurring simulates a template store whose persistence
// fails, e.g. a full or read-only disk.
type brokenSaveRecurring struct {
	*fakeRecurring
	saveErr error
}

func (f *brokenSaveRecurring) Save(context.Context) error {
	return f.saveErr
}

type fakeAccounts struct {
	accounts map[string]core.UserAccount
	saves    int
}

func newFakeAccounts() *fakeAccounts {
	return &fakeAccounts{accounts: make(map[string]core.UserAccount)}
}

func (f *fakeAccounts) Lookup(_ context.Context, username string) (core.UserAccount, bool, error) {
	account, ok := f.accounts[username]
	return account, ok, nil
}

func (f *fakeAccounts) Create(_ context.Context, account core.UserAccount) error {
	if _, ok := f.accounts[account.Username]; ok {
		return storage.ErrAccountExists
	}
	f.accounts[account.Username] = account
	return nil
}

func (f *fakeAccounts) Save(context.Context) error {
	f.saves++
	return nil
}

var (
	_ storage.LedgerStore    = (*fakeLedger)(nil)
	_ storage.BudgetStore    = (*fakeBudgets)(nil)
	_ storage.RecurringStore = (*fakeRecurring)(nil)
	_ storage.AccountStore   = (*fakeAccounts)(nil)
)
