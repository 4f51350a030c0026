package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/kenay85/budget/internal/core"
)

type SQLiteRepositorySuite struct {
	suite.Suite
	repo *SQLiteRepository
	ctx  context.Context
}

func (s *SQLiteRepositorySuite) SetupTest() {
	repo, err := NewSQLiteRepository(filepath.Join(s.T().TempDir(), "budget.db"), testLogger())
	s.Require().NoError(err)
	s.repo = repo
	s.ctx = context.Background()
}

func (s *SQLiteRepositorySuite) TearDownTest() {
	s.Require().NoError(s.repo.Close())
}

func (s *SQLiteRepositorySuite) TestLedgerAppendAndList() {
	ledger := s.repo.Ledger()
	entries := []core.Transaction{
		tx("alice", "2024-01-05", core.Income, "Salary", "january", "2500"),
		tx("bob", "2024-01-07", core.Expense, "Food", "groceries", "120.50"),
	}
	for _, e := range entries {
		s.Require().NoError(ledger.Append(s.ctx, e))
	}

	got, err := ledger.All(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(got, 2)
	for i, e := range entries {
		s.True(got[i].Equal(e))
	}
}

func (s *SQLiteRepositorySuite) TestLedgerRemoveMatchingRemovesExactlyOne() {
	ledger := s.repo.Ledger()
	duplicate := tx("alice", "2024-01-07", core.Expense, "Food", "coffee", "4.50")
	s.Require().NoError(ledger.Append(s.ctx, duplicate))
	s.Require().NoError(ledger.Append(s.ctx, duplicate))

	removed, err := ledger.RemoveMatching(s.ctx, duplicate)
	s.Require().NoError(err)
	s.True(removed)

	got, err := ledger.All(s.ctx)
	s.Require().NoError(err)
	s.Len(got, 1)

	removed, err = ledger.RemoveMatching(s.ctx, tx("alice", "2024-01-07", core.Expense, "Food", "coffee", "4.51"))
	s.Require().NoError(err)
	s.False(removed, "amount outside tolerance must not match")
}

func (s *SQLiteRepositorySuite) TestLedgerUpdateMatching() {
	ledger := s.repo.Ledger()
	old := tx("alice", "2024-01-07", core.Expense, "Food", "coffee", "4.50")
	updated := tx("alice", "2024-01-07", core.Expense, "Food", "coffee and cake", "9.00")
	s.Require().NoError(ledger.Append(s.ctx, old))

	changed, err := ledger.UpdateMatching(s.ctx, old, updated)
	s.Require().NoError(err)
	s.True(changed)

	got, err := ledger.All(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(got, 1)
	s.True(got[0].Equal(updated))

	changed, err = ledger.UpdateMatching(s.ctx, old, updated)
	s.Require().NoError(err)
	s.False(changed)
}

func (s *SQLiteRepositorySuite) TestBudgetLimitsUpsert() {
	budgets := s.repo.Budgets()
	s.Require().NoError(budgets.SetLimit(s.ctx, "Food", decimal.RequireFromString("150")))
	s.Require().NoError(budgets.SetLimit(s.ctx, "Food", decimal.RequireFromString("200")))
	s.Require().NoError(budgets.SetLimit(s.ctx, "Rent", decimal.RequireFromString("900")))

	limits, err := budgets.Limits(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(limits, 2)
	s.True(limits["Food"].Equal(decimal.RequireFromString("200")))
	s.True(limits["Rent"].Equal(decimal.RequireFromString("900")))
}

func (s *SQLiteRepositorySuite) TestRecurringTemplateLifecycle() {
	recurring := s.repo.Recurring()
	tpl := core.RecurringTemplate{
		Owner:        "alice",
		NextDue:      core.NewDate(2024, 2, 1),
		IntervalDays: 30,
		Kind:         core.Expense,
		Category:     "Rent",
		Amount:       decimal.RequireFromString("900"),
		Description:  "apartment",
	}

	id, err := recurring.Create(s.ctx, tpl)
	s.Require().NoError(err)
	s.Require().NotEmpty(id)

	all, err := recurring.All(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(all, 1)
	s.Equal(id, all[0].ID)
	s.True(all[0].NextDue.Equal(tpl.NextDue))

	tpl.NextDue = core.NewDate(2024, 3, 2)
	s.Require().NoError(recurring.Update(s.ctx, id, tpl))
	all, err = recurring.All(s.ctx)
	s.Require().NoError(err)
	s.True(all[0].NextDue.Equal(core.NewDate(2024, 3, 2)))

	s.ErrorIs(recurring.Update(s.ctx, "nope", tpl), ErrUnknownTemplate)

	s.Require().NoError(recurring.Delete(s.ctx, "nope"))
	s.Require().NoError(recurring.Delete(s.ctx, id))
	all, err = recurring.All(s.ctx)
	s.Require().NoError(err)
	s.Empty(all)
}

func (s *SQLiteRepositorySuite) TestRecurringCreateRejectsInvalidTemplate() {
	_, err := s.repo.Recurring().Create(s.ctx, core.RecurringTemplate{
		Owner:        "alice",
		NextDue:      core.NewDate(2024, 2, 1),
		IntervalDays: 0,
		Kind:         core.Expense,
	})
	s.ErrorIs(err, core.ErrInvalidTemplate)
}

func (s *SQLiteRepositorySuite) TestAccounts() {
	accounts := s.repo.Accounts()
	s.Require().NoError(accounts.Create(s.ctx, core.UserAccount{Username: "alice", PasswordHash: "$2a$10$hash"}))

	s.ErrorIs(accounts.Create(s.ctx, core.UserAccount{Username: "alice"}), ErrAccountExists)

	got, ok, err := accounts.Lookup(s.ctx, "alice")
	s.Require().NoError(err)
	s.True(ok)
	s.Equal("$2a$10$hash", got.PasswordHash)

	_, ok, err = accounts.Lookup(s.ctx, "nobody")
	s.Require().NoError(err)
	s.False(ok)
}

func (s *SQLiteRepositorySuite) TestDataSurvivesReopen() {
	dbPath := filepath.Join(s.T().TempDir(), "budget.db")
	first, err := NewSQLiteRepository(dbPath, testLogger())
	s.Require().NoError(err)
	s.Require().NoError(first.Ledger().Append(s.ctx, tx("alice", "2024-01-05", core.Income, "Salary", "january", "2500")))
	s.Require().NoError(first.Close())

	second, err := NewSQLiteRepository(dbPath, testLogger())
	s.Require().NoError(err)
	defer second.Close()

	got, err := second.Ledger().All(s.ctx)
	s.Require().NoError(err)
	s.Len(got, 1)
}

func TestSQLiteRepositorySuite(t *testing.T) {
	suite.Run(t, new(SQLiteRepositorySuite))
}
