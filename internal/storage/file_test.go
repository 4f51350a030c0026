package storage

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kenay85/budget/internal/core"
	"github.com/kenay85/budget/internal/crypt"
	"github.com/kenay85/budget/internal/log"
)

func testLogger() *log.Logger {
	return log.New(log.Config{
		Component: "test",
		Handler:   slog.NewTextHandler(io.Discard, nil),
	})
}

func testKeeper(t *testing.T, dir string) *crypt.Keeper {
	t.Helper()
	keeper, err := crypt.LoadKeeper(filepath.Join(dir, "secret.key"), filepath.Join(dir, "ledger.bin"))
	require.NoError(t, err)
	return keeper
}

func tx(owner, date string, kind core.Kind, category, descr, amount string) core.Transaction {
	d, err := core.ParseDate(date)
	if err != nil {
		panic(err)
	}
	return core.Transaction{
		Owner:       owner,
		Date:        d,
		Kind:        kind,
		Category:    category,
		Description: descr,
		Amount:      decimal.RequireFromString(amount),
	}
}

func TestFileLedgerRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "ledger.bin")
	keeper := testKeeper(t, dir)

	ledger, err := OpenFileLedger(path, keeper, testLogger())
	require.NoError(t, err)

	entries := []core.Transaction{
		tx("alice", "2024-01-05", core.Income, "Salary", "january", "2500"),
		tx("alice", "2024-01-07", core.Expense, "Food", "groceries, market", "120.50"),
		tx("bob", "2024-01-08", core.Expense, "Food", "pizza \"large\"", "35"),
	}
	for _, e := range entries {
		require.NoError(t, ledger.Append(ctx, e))
	}
	require.NoError(t, ledger.Save(ctx))

	reopened, err := OpenFileLedger(path, keeper, testLogger())
	require.NoError(t, err)
	got, err := reopened.All(ctx)
	require.NoError(t, err)
	require.Len(t, got, len(entries))
	for i, e := range entries {
		assert.True(t, got[i].Equal(e), "entry %d: got %+v want %+v", i, got[i], e)
	}
}

func TestFileLedgerIsSealedOnDisk(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "ledger.bin")
	keeper := testKeeper(t, dir)

	ledger, err := OpenFileLedger(path, keeper, testLogger())
	require.NoError(t, err)
	require.NoError(t, ledger.Append(ctx, tx("alice", "2024-01-05", core.Expense, "Food", "groceries", "10")))
	require.NoError(t, ledger.Save(ctx))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "alice")
	assert.NotContains(t, string(raw), "groceries")
}

func TestFileLedgerMissingFileIsEmpty(t *testing.T) {
	dir := t.TempDir()
	ledger, err := OpenFileLedger(filepath.Join(dir, "ledger.bin"), testKeeper(t, dir), testLogger())
	require.NoError(t, err)

	got, err := ledger.All(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFileLedgerSkipsMalformedRows(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ledger.bin")
	keeper := testKeeper(t, dir)

	csv := "owner,date,kind,category,description,amount\n" +
		"alice,2024-01-05,Income,Salary,january,2500\n" +
		"alice,not-a-date,Income,Salary,bad date,100\n" +
		"alice,2024-01-06,Transfer,Salary,bad kind,100\n" +
		"alice,2024-01-07,Expense,Food,bad amount,lots\n" +
		"alice,2024-01-08\n" +
		"alice,2024-01-09,Expense,Food,ok,42\n"
	blob, err := keeper.Seal([]byte(csv))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, blob, 0o600))

	ledger, err := OpenFileLedger(path, keeper, testLogger())
	require.NoError(t, err)
	got, err := ledger.All(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "january", got[0].Description)
	assert.Equal(t, "ok", got[1].Description)
}

func TestFileLedgerRemoveMatchingRemovesExactlyOne(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	ledger, err := OpenFileLedger(filepath.Join(dir, "ledger.bin"), testKeeper(t, dir), testLogger())
	require.NoError(t, err)

	duplicate := tx("alice", "2024-01-07", core.Expense, "Food", "coffee", "4.50")
	require.NoError(t, ledger.Append(ctx, duplicate))
	require.NoError(t, ledger.Append(ctx, duplicate))
	require.NoError(t, ledger.Append(ctx, tx("alice", "2024-01-08", core.Expense, "Food", "lunch", "12")))

	removed, err := ledger.RemoveMatching(ctx, duplicate)
	require.NoError(t, err)
	assert.True(t, removed)

	got, err := ledger.All(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, got[0].Equal(duplicate), "the sibling duplicate must survive")

	removed, err = ledger.RemoveMatching(ctx, tx("alice", "2024-01-07", core.Expense, "Food", "coffee", "4.51"))
	require.NoError(t, err)
	assert.False(t, removed, "amount outside tolerance must not match")
}

func TestFileLedgerUpdateMatching(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	ledger, err := OpenFileLedger(filepath.Join(dir, "ledger.bin"), testKeeper(t, dir), testLogger())
	require.NoError(t, err)

	old := tx("alice", "2024-01-07", core.Expense, "Food", "coffee", "4.50")
	updated := tx("alice", "2024-01-07", core.Expense, "Food", "coffee and cake", "9.00")
	require.NoError(t, ledger.Append(ctx, old))

	changed, err := ledger.UpdateMatching(ctx, old, updated)
	require.NoError(t, err)
	assert.True(t, changed)

	got, err := ledger.All(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].Equal(updated))

	changed, err = ledger.UpdateMatching(ctx, old, updated)
	require.NoError(t, err)
	assert.False(t, changed, "old value no longer present")
}

func TestFileBudgetsRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "budgets.csv")

	budgets, err := OpenFileBudgets(path, testLogger())
	require.NoError(t, err)
	require.NoError(t, budgets.SetLimit(ctx, "Food", decimal.RequireFromString("150")))
	require.NoError(t, budgets.SetLimit(ctx, "Rent", decimal.RequireFromString("900.50")))
	require.NoError(t, budgets.Save(ctx))

	reopened, err := OpenFileBudgets(path, testLogger())
	require.NoError(t, err)
	limits, err := reopened.Limits(ctx)
	require.NoError(t, err)
	require.Len(t, limits, 2)
	assert.True(t, limits["Food"].Equal(decimal.RequireFromString("150")))
	assert.True(t, limits["Rent"].Equal(decimal.RequireFromString("900.50")))
}

func TestFileBudgetsUpsert(t *testing.T) {
	ctx := context.Background()
	budgets, err := OpenFileBudgets(filepath.Join(t.TempDir(), "budgets.csv"), testLogger())
	require.NoError(t, err)

	require.NoError(t, budgets.SetLimit(ctx, "Food", decimal.RequireFromString("150")))
	require.NoError(t, budgets.SetLimit(ctx, "Food", decimal.RequireFromString("200")))

	limits, err := budgets.Limits(ctx)
	require.NoError(t, err)
	require.Len(t, limits, 1)
	assert.True(t, limits["Food"].Equal(decimal.RequireFromString("200")))
}

func TestFileBudgetsSkipsMalformedRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "budgets.csv")
	raw := "Food,150\nBroken\nRent,not-a-number\nTravel,300\n"
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))

	budgets, err := OpenFileBudgets(path, testLogger())
	require.NoError(t, err)
	limits, err := budgets.Limits(context.Background())
	require.NoError(t, err)
	require.Len(t, limits, 2)
	assert.Contains(t, limits, "Food")
	assert.Contains(t, limits, "Travel")
}

func TestFileRecurringRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "recurring.json")

	store, err := OpenFileRecurring(path, testLogger())
	require.NoError(t, err)

	tpl := core.RecurringTemplate{
		Owner:        "alice",
		NextDue:      core.NewDate(2024, 2, 1),
		IntervalDays: 30,
		Kind:         core.Expense,
		Category:     "Rent",
		Amount:       decimal.RequireFromString("900"),
		Description:  "apartment",
	}
	id, err := store.Create(ctx, tpl)
	require.NoError(t, err)
	require.NotEmpty(t, id)
	require.NoError(t, store.Save(ctx))

	reopened, err := OpenFileRecurring(path, testLogger())
	require.NoError(t, err)
	all, err := reopened.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	got := all[0]
	assert.Equal(t, id, got.ID)
	assert.Equal(t, "alice", got.Owner)
	assert.True(t, got.NextDue.Equal(tpl.NextDue))
	assert.Equal(t, 30, got.IntervalDays)
	assert.True(t, got.Amount.Equal(tpl.Amount))
}

func TestFileRecurringCreateRejectsInvalidTemplate(t *testing.T) {
	store, err := OpenFileRecurring(filepath.Join(t.TempDir(), "recurring.json"), testLogger())
	require.NoError(t, err)

	_, err = store.Create(context.Background(), core.RecurringTemplate{
		Owner:        "alice",
		NextDue:      core.NewDate(2024, 2, 1),
		IntervalDays: 0,
		Kind:         core.Expense,
	})
	assert.ErrorIs(t, err, core.ErrInvalidTemplate)
}

func TestFileRecurringUpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	store, err := OpenFileRecurring(filepath.Join(t.TempDir(), "recurring.json"), testLogger())
	require.NoError(t, err)

	tpl := core.RecurringTemplate{
		Owner:        "alice",
		NextDue:      core.NewDate(2024, 2, 1),
		IntervalDays: 7,
		Kind:         core.Income,
		Amount:       decimal.RequireFromString("50"),
	}
	id, err := store.Create(ctx, tpl)
	require.NoError(t, err)

	tpl.IntervalDays = 14
	require.NoError(t, store.Update(ctx, id, tpl))
	all, err := store.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, 14, all[0].IntervalDays)

	assert.ErrorIs(t, store.Update(ctx, "nope", tpl), ErrUnknownTemplate)

	require.NoError(t, store.Delete(ctx, "nope"), "deleting an unknown id is a no-op")
	require.NoError(t, store.Delete(ctx, id))
	all, err = store.All(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestFileRecurringSkipsMalformedTemplates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recurring.json")
	raw := `{
  "good": {"owner":"alice","next_due":"2024-02-01","interval_days":30,"kind":"Expense","category":"Rent","amount":"900","description":"apartment"},
  "bad": {"owner":"alice","next_due":"someday","interval_days":30,"kind":"Expense","category":"Rent","amount":"900","description":"broken"}
}`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))

	store, err := OpenFileRecurring(path, testLogger())
	require.NoError(t, err)
	all, err := store.All(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "good", all[0].ID)
}

func TestFileAccountsRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "users.json")

	accounts, err := OpenFileAccounts(path, testLogger())
	require.NoError(t, err)
	require.NoError(t, accounts.Create(ctx, core.UserAccount{Username: "alice", PasswordHash: "$2a$10$hash"}))
	require.NoError(t, accounts.Save(ctx))

	assert.ErrorIs(t, accounts.Create(ctx, core.UserAccount{Username: "alice"}), ErrAccountExists)

	reopened, err := OpenFileAccounts(path, testLogger())
	require.NoError(t, err)
	got, ok, err := reopened.Lookup(ctx, "alice")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "alice", got.Username)
	assert.Equal(t, "$2a$10$hash", got.PasswordHash)

	_, ok, err = reopened.Lookup(ctx, "Alice")
	require.NoError(t, err)
	assert.False(t, ok, "usernames are case-sensitive")
}
