package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/teris-io/shortid"

	"github.com/kenay85/budget/internal/core"
	"github.com/kenay85/budget/internal/log"
)

// FileRecurring is the file-backed RecurringStore: a JSON object keyed by
// template id, unencrypted. Ids come from a shortid generator seeded at
// open time; within a session templates keep insertion order, across
// sessions the order is ids sorted lexicographically (a JSON object has
// no order to preserve).
type FileRecurring struct {
	path      string
	logger    *log.Logger
	ids       *shortid.Shortid
	templates map[string]core.RecurringTemplate
	order     []string
}

// OpenFileRecurring loads the recurring templates file at path; a missing
// file yields an empty store.
func OpenFileRecurring(path string, logger *log.Logger) (*FileRecurring, error) {
	r := &FileRecurring{
		path:      path,
		logger:    logger.WithComponent(log.ComponentStorage),
		ids:       shortid.MustNew(1, shortid.DefaultABC, uint64(time.Now().UnixNano())),
		templates: make(map[string]core.RecurringTemplate),
	}
	if err := r.load(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *FileRecurring) load() error {
	data, err := os.ReadFile(r.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read recurring templates: %w", err)
	}

	// Decode record by record so one malformed template (bad date, bad
	// amount) is skipped instead of discarding the whole file.
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parse recurring templates: %w", err)
	}
	for id, msg := range raw {
		var tpl core.RecurringTemplate
		if err := json.Unmarshal(msg, &tpl); err != nil {
			r.logger.Warn("skipping recurring template",
				log.FieldTemplate, id,
				log.FieldError, fmt.Errorf("%w: %v", ErrMalformedRecord, err))
			continue
		}
		tpl.ID = id
		r.templates[id] = tpl
		r.order = append(r.order, id)
	}
	sort.Strings(r.order)
	return nil
}

// All implements RecurringStore.
func (r *FileRecurring) All(_ context.Context) ([]core.RecurringTemplate, error) {
	out := make([]core.RecurringTemplate, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.templates[id])
	}
	return out, nil
}

// Create implements RecurringStore.
func (r *FileRecurring) Create(_ context.Context, tpl core.RecurringTemplate) (string, error) {
	if err := tpl.Validate(); err != nil {
		return "", err
	}
	id, err := r.ids.Generate()
	if err != nil {
		return "", fmt.Errorf("generate template id: %w", err)
	}
	tpl.ID = id
	r.templates[id] = tpl
	r.order = append(r.order, id)
	return id, nil
}

// Update implements RecurringStore.
func (r *FileRecurring) Update(_ context.Context, id string, tpl core.RecurringTemplate) error {
	if _, ok := r.templates[id]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTemplate, id)
	}
	if err := tpl.Validate(); err != nil {
		return err
	}
	tpl.ID = id
	r.templates[id] = tpl
	return nil
}

// Delete implements RecurringStore. Deleting an unknown id is a no-op.
func (r *FileRecurring) Delete(_ context.Context, id string) error {
	if _, ok := r.templates[id]; !ok {
		return nil
	}
	delete(r.templates, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

// Save implements RecurringStore.
func (r *FileRecurring) Save(_ context.Context) error {
	data, err := json.MarshalIndent(r.templates, "", "  ")
	if err != nil {
		return fmt.Errorf("encode recurring templates: %w", err)
	}
	if err := os.WriteFile(r.path, data, 0o644); err != nil {
		return fmt.Errorf("write recurring templates: %w", err)
	}
	return nil
}

var _ RecurringStore = (*FileRecurring)(nil)
