package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/kenay85/budget/internal/core"
	"github.com/kenay85/budget/internal/log"
	"github.com/kenay85/budget/internal/storage"
)

// Materializer expands recurring templates into concrete ledger entries.
// It runs once per session start; templates are processed independently,
// so the order they come back from the store in does not affect the
// outcome.
type Materializer struct {
	ledger    storage.LedgerStore
	recurring storage.RecurringStore
	logger    *log.Logger
}

// NewMaterializer creates a materializer over the given stores.
func NewMaterializer(ledger storage.LedgerStore, recurring storage.RecurringStore, logger *log.Logger) *Materializer {
	return &Materializer{
		ledger:    ledger,
		recurring: recurring,
		logger:    logger.WithComponent(log.ComponentRecurrence),
	}
}

// MaterializeDue appends one ledger entry per template for every due date
// up to and including today, however large the backlog, and advances each
// template's next-due date past today. Advanced dates are persisted back
// to the recurring store before returning, which makes a repeat call with
// the same today a no-op. The returned flag tells the caller whether the
// ledger gained entries and needs saving.
//
// The two failure modes travel differently. A store failure aborts and
// is returned directly: the caller must not persist the ledger then,
// because the advanced dates never reached disk. Templates with an
// interval below one day are skipped instead of looping forever and
// come back only after every store operation succeeded, joined and
// matching core.ErrInvalidTemplate; the remaining templates are still
// processed.
func (m *Materializer) MaterializeDue(ctx context.Context, today core.Date) (bool, error) {
	templates, err := m.recurring.All(ctx)
	if err != nil {
		return false, fmt.Errorf("load recurring templates: %w", err)
	}

	changed := false
	var invalid []error
	for _, tpl := range templates {
		if err := tpl.Validate(); err != nil {
			invalid = append(invalid, fmt.Errorf("template %s: %w", tpl.ID, err))
			continue
		}

		appended := 0
		due := tpl.NextDue
		for !due.After(today) {
			if err := m.ledger.Append(ctx, tpl.Occurrence(due)); err != nil {
				return changed, fmt.Errorf("append occurrence for template %s: %w", tpl.ID, err)
			}
			appended++
			due = due.AddDays(tpl.IntervalDays)
		}
		if appended == 0 {
			continue
		}

		tpl.NextDue = due
		if err := m.recurring.Update(ctx, tpl.ID, tpl); err != nil {
			return changed, fmt.Errorf("advance template %s: %w", tpl.ID, err)
		}
		changed = true
		m.logger.Info("materialized recurring occurrences",
			log.FieldTemplate, tpl.ID,
			log.FieldOwner, tpl.Owner,
			"occurrences", appended,
			"next_due", tpl.NextDue.String())
	}

	if changed {
		// The advanced next-due dates must hit disk before the caller
		// persists the ledger, otherwise a crash in between would
		// duplicate the occurrences on the next run.
		if err := m.recurring.Save(ctx); err != nil {
			return changed, fmt.Errorf("save recurring templates: %w", err)
		}
	}
	return changed, errors.Join(invalid...)
}
