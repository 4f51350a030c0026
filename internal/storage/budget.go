package storage

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/kenay85/budget/internal/core"
	"github.com/kenay85/budget/internal/log"
)

// FileBudgets is the file-backed BudgetStore: plain CSV rows of
// category,limit with no header, unencrypted. Limits apply to a category
// across every user.
type FileBudgets struct {
	path   string
	logger *log.Logger
	limits map[string]decimal.Decimal
}

// OpenFileBudgets loads the budgets file at path; a missing file yields
// an empty mapping.
func OpenFileBudgets(path string, logger *log.Logger) (*FileBudgets, error) {
	b := &FileBudgets{
		path:   path,
		logger: logger.WithComponent(log.ComponentStorage),
		limits: make(map[string]decimal.Decimal),
	}
	if err := b.load(); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *FileBudgets) load() error {
	f, err := os.Open(b.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read budgets: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		b.logger.Warn("budgets file unreadable past this point", log.FieldError, err)
	}
	for i, rec := range records {
		if len(rec) != 2 {
			b.logger.Warn("skipping budget row",
				log.FieldError, fmt.Errorf("%w: row %d: want 2 fields, got %d", ErrMalformedRecord, i+1, len(rec)))
			continue
		}
		limit, err := core.ParseAmount(rec[1])
		if err != nil {
			b.logger.Warn("skipping budget row",
				log.FieldError, fmt.Errorf("%w: row %d: %v", ErrMalformedRecord, i+1, err))
			continue
		}
		b.limits[rec[0]] = limit
	}
	return nil
}

// Limits implements BudgetStore.
func (b *FileBudgets) Limits(_ context.Context) (map[string]decimal.Decimal, error) {
	snapshot := make(map[string]decimal.Decimal, len(b.limits))
	for cat, limit := range b.limits {
		snapshot[cat] = limit
	}
	return snapshot, nil
}

// SetLimit implements BudgetStore.
func (b *FileBudgets) SetLimit(_ context.Context, category string, limit decimal.Decimal) error {
	b.limits[category] = limit
	return nil
}

// Save implements BudgetStore. Rows are written sorted by category so the
// file diffs cleanly between sessions.
func (b *FileBudgets) Save(_ context.Context) error {
	categories := make([]string, 0, len(b.limits))
	for cat := range b.limits {
		categories = append(categories, cat)
	}
	sort.Strings(categories)

	f, err := os.Create(b.path)
	if err != nil {
		return fmt.Errorf("write budgets: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	for _, cat := range categories {
		if err := w.Write([]string{cat, b.limits[cat].String()}); err != nil {
			return fmt.Errorf("write budgets: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("write budgets: %w", err)
	}
	return nil
}

var _ BudgetStore = (*FileBudgets)(nil)
