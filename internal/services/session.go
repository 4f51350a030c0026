package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/kenay85/budget/internal/backend"
	"github.com/kenay85/budget/internal/core"
	"github.com/kenay85/budget/internal/log"
)

// Session is the single in-process owner of the stores for one logged-in
// user. Opening a session runs recurrence materialization once; every
// mutation persists the affected store immediately and invalidates the
// report cache; closing saves everything and releases the backend.
//
// Sessions are single-threaded by design. Nothing here locks: the data
// files support exactly one active session at a time.
type Session struct {
	User    string
	Reports *Reports

	stores *backend.Stores
	logger *log.Logger
}

// OpenSession loads a session for an already-authenticated user and
// materializes recurring transactions due up to today. The ledger is
// saved before returning if materialization appended anything.
func OpenSession(ctx context.Context, stores *backend.Stores, user string, today core.Date, logger *log.Logger) (*Session, error) {
	s := &Session{
		User:    user,
		Reports: NewReports(stores.Ledger, stores.Budgets, logger),
		stores:  stores,
		logger:  logger.WithComponent(log.ComponentSession),
	}

	materializer := NewMaterializer(stores.Ledger, stores.Recurring, logger)
	changed, err := materializer.MaterializeDue(ctx, today)
	if err != nil && !errors.Is(err, core.ErrInvalidTemplate) {
		// Store failure: the advanced next-due dates are not on disk, so
		// persisting the ledger now would duplicate every occurrence on
		// the next run.
		return nil, fmt.Errorf("materialize recurring transactions: %w", err)
	}
	if changed {
		if saveErr := s.stores.Ledger.Save(ctx); saveErr != nil {
			return nil, fmt.Errorf("save ledger after materialization: %w", saveErr)
		}
	}
	if err != nil {
		// Invalid templates do not block the session; the valid ones
		// were processed and the user can fix the rest.
		s.logger.Warn("some recurring templates were not materialized", log.FieldError, err)
	}

	s.logger.Info("session opened", log.FieldOwner, user, "materialized", changed)
	return s, nil
}

// Transactions returns the ledger snapshot in insertion order.
func (s *Session) Transactions(ctx context.Context) ([]core.Transaction, error) {
	return s.stores.Ledger.All(ctx)
}

// AddTransaction appends a transaction owned by the session user and
// reports whether it pushed its category over a configured budget limit.
func (s *Session) AddTransaction(ctx context.Context, tx core.Transaction) (breached bool, err error) {
	tx.Owner = s.User
	if err := s.stores.Ledger.Append(ctx, tx); err != nil {
		return false, err
	}
	if err := s.stores.Ledger.Save(ctx); err != nil {
		return false, err
	}
	s.Reports.Invalidate()
	if tx.Kind == core.Expense {
		return s.Reports.CheckBreach(ctx, s.User, tx.Category)
	}
	return false, nil
}

// RemoveTransaction deletes the first ledger entry matching tx by value
// and reports whether one was found.
func (s *Session) RemoveTransaction(ctx context.Context, tx core.Transaction) (bool, error) {
	removed, err := s.stores.Ledger.RemoveMatching(ctx, tx)
	if err != nil || !removed {
		return removed, err
	}
	if err := s.stores.Ledger.Save(ctx); err != nil {
		return true, err
	}
	s.Reports.Invalidate()
	return true, nil
}

// UpdateTransaction replaces the first ledger entry matching old and
// reports whether one was found.
func (s *Session) UpdateTransaction(ctx context.Context, old, updated core.Transaction) (bool, error) {
	changed, err := s.stores.Ledger.UpdateMatching(ctx, old, updated)
	if err != nil || !changed {
		return changed, err
	}
	if err := s.stores.Ledger.Save(ctx); err != nil {
		return true, err
	}
	s.Reports.Invalidate()
	return true, nil
}

// SetBudgetLimit upserts the household-wide limit for a category.
func (s *Session) SetBudgetLimit(ctx context.Context, category string, limit decimal.Decimal) error {
	if err := s.stores.Budgets.SetLimit(ctx, category, limit); err != nil {
		return err
	}
	if err := s.stores.Budgets.Save(ctx); err != nil {
		return err
	}
	s.Reports.Invalidate()
	return nil
}

// RecurringTemplates lists all templates in stable order.
func (s *Session) RecurringTemplates(ctx context.Context) ([]core.RecurringTemplate, error) {
	return s.stores.Recurring.All(ctx)
}

// CreateRecurring stores a new template owned by the session user and
// returns its generated id.
func (s *Session) CreateRecurring(ctx context.Context, tpl core.RecurringTemplate) (string, error) {
	tpl.Owner = s.User
	id, err := s.stores.Recurring.Create(ctx, tpl)
	if err != nil {
		return "", err
	}
	if err := s.stores.Recurring.Save(ctx); err != nil {
		return "", err
	}
	return id, nil
}

// UpdateRecurring replaces every field of a template except its id.
func (s *Session) UpdateRecurring(ctx context.Context, id string, tpl core.RecurringTemplate) error {
	if err := s.stores.Recurring.Update(ctx, id, tpl); err != nil {
		return err
	}
	return s.stores.Recurring.Save(ctx)
}

// DeleteRecurring removes a template; unknown ids are a no-op.
func (s *Session) DeleteRecurring(ctx context.Context, id string) error {
	if err := s.stores.Recurring.Delete(ctx, id); err != nil {
		return err
	}
	return s.stores.Recurring.Save(ctx)
}

// Close saves every store and releases the backend. The four files are
// independent, so the saves run in parallel.
func (s *Session) Close(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.stores.Ledger.Save(gctx) })
	g.Go(func() error { return s.stores.Budgets.Save(gctx) })
	g.Go(func() error { return s.stores.Recurring.Save(gctx) })
	g.Go(func() error { return s.stores.Accounts.Save(gctx) })
	err := g.Wait()

	if s.stores.Cleanup != nil {
		if cerr := s.stores.Cleanup(); err == nil {
			err = cerr
		}
	}
	if err != nil {
		return fmt.Errorf("close session: %w", err)
	}
	s.logger.Info("session closed", log.FieldOwner, s.User)
	return nil
}
