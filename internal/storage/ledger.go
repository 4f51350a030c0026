package storage

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"os"

	"github.com/kenay85/budget/internal/core"
	"github.com/kenay85/budget/internal/crypt"
	"github.com/kenay85/budget/internal/log"
)

var ledgerHeader = []string{"owner", "date", "kind", "category", "description", "amount"}

// FileLedger is the file-backed LedgerStore. On disk the ledger is a CSV
// table sealed into a single AEAD blob; the plaintext only ever exists in
// memory. Loading a missing file yields an empty ledger.
type FileLedger struct {
	path    string
	keeper  *crypt.Keeper
	logger  *log.Logger
	entries []core.Transaction
}

// OpenFileLedger loads the ledger at path, unsealing it with keeper.
func OpenFileLedger(path string, keeper *crypt.Keeper, logger *log.Logger) (*FileLedger, error) {
	l := &FileLedger{path: path, keeper: keeper, logger: logger.WithComponent(log.ComponentStorage)}
	if err := l.load(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *FileLedger) load() error {
	blob, err := os.ReadFile(l.path)
	if os.IsNotExist(err) {
		l.entries = nil
		return nil
	}
	if err != nil {
		return fmt.Errorf("read ledger: %w", err)
	}
	plain, err := l.keeper.Open(blob)
	if err != nil {
		return fmt.Errorf("unseal ledger: %w", err)
	}
	l.entries = l.decode(plain)
	return nil
}

// decode parses the CSV plaintext, skipping rows it cannot parse.
func (l *FileLedger) decode(plain []byte) []core.Transaction {
	r := csv.NewReader(bytes.NewReader(plain))
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		l.logger.Warn("ledger file unreadable past this point", log.FieldError, err)
	}

	var entries []core.Transaction
	for i, rec := range records {
		if i == 0 && len(rec) > 0 && rec[0] == ledgerHeader[0] {
			continue
		}
		tx, err := decodeTransaction(rec)
		if err != nil {
			l.logger.Warn("skipping ledger row",
				log.FieldError, fmt.Errorf("%w: row %d: %v", ErrMalformedRecord, i+1, err))
			continue
		}
		entries = append(entries, tx)
	}
	return entries
}

func decodeTransaction(rec []string) (core.Transaction, error) {
	if len(rec) != len(ledgerHeader) {
		return core.Transaction{}, fmt.Errorf("want %d fields, got %d", len(ledgerHeader), len(rec))
	}
	date, err := core.ParseDate(rec[1])
	if err != nil {
		return core.Transaction{}, err
	}
	kind, err := core.ParseKind(rec[2])
	if err != nil {
		return core.Transaction{}, fmt.Errorf("kind %q: %w", rec[2], err)
	}
	amount, err := core.ParseAmount(rec[5])
	if err != nil {
		return core.Transaction{}, err
	}
	return core.Transaction{
		Owner:       rec[0],
		Date:        date,
		Kind:        kind,
		Category:    rec[3],
		Description: rec[4],
		Amount:      amount,
	}, nil
}

func (l *FileLedger) encode() ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(ledgerHeader); err != nil {
		return nil, err
	}
	for _, tx := range l.entries {
		row := []string{tx.Owner, tx.Date.String(), string(tx.Kind), tx.Category, tx.Description, tx.Amount.String()}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// All implements LedgerStore.
func (l *FileLedger) All(_ context.Context) ([]core.Transaction, error) {
	snapshot := make([]core.Transaction, len(l.entries))
	copy(snapshot, l.entries)
	return snapshot, nil
}

// Append implements LedgerStore.
func (l *FileLedger) Append(_ context.Context, tx core.Transaction) error {
	l.entries = append(l.entries, tx)
	return nil
}

// RemoveMatching implements LedgerStore. Only the first match goes; an
// identical duplicate row stays.
func (l *FileLedger) RemoveMatching(_ context.Context, tx core.Transaction) (bool, error) {
	for i, e := range l.entries {
		if e.Equal(tx) {
			l.entries = append(l.entries[:i], l.entries[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

// UpdateMatching implements LedgerStore.
func (l *FileLedger) UpdateMatching(_ context.Context, old, updated core.Transaction) (bool, error) {
	for i, e := range l.entries {
		if e.Equal(old) {
			l.entries[i] = updated
			return true, nil
		}
	}
	return false, nil
}

// Save implements LedgerStore: encode, seal, full-file rewrite.
func (l *FileLedger) Save(_ context.Context) error {
	plain, err := l.encode()
	if err != nil {
		return fmt.Errorf("encode ledger: %w", err)
	}
	blob, err := l.keeper.Seal(plain)
	if err != nil {
		return fmt.Errorf("seal ledger: %w", err)
	}
	if err := os.WriteFile(l.path, blob, 0o600); err != nil {
		return fmt.Errorf("write ledger: %w", err)
	}
	return nil
}

var _ LedgerStore = (*FileLedger)(nil)
