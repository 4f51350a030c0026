package core

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	Income  Kind = "Income"
	Expense Kind = "Expense"
)

// RecurringTag prefixes the description of every transaction materialized
// from a recurring template, so generated entries stay distinguishable from
// manual ones.
const RecurringTag = "[Recurring] "

type (
	// Kind classifies a transaction as money coming in or going out.
	Kind string

	// Transaction is a single ledger entry. It has no identity field:
	// update and delete locate an entry by value equality on all six
	// fields, with the amount compared within a small tolerance (a
	// contract kept from the legacy data model).
	Transaction struct {
		Owner       string          `json:"owner"`
		Date        Date            `json:"date"`
		Kind        Kind            `json:"kind"`
		Category    string          `json:"category"`
		Description string          `json:"description"`
		Amount      decimal.Decimal `json:"amount"`
	}

	// RecurringTemplate describes a transaction that repeats every
	// IntervalDays calendar days. ID is assigned once at creation and is
	// the sole identity key; NextDue advances as occurrences are
	// materialized.
	RecurringTemplate struct {
		ID           string          `json:"-"`
		Owner        string          `json:"owner"`
		NextDue      Date            `json:"next_due"`
		IntervalDays int             `json:"interval_days"`
		Kind         Kind            `json:"kind"`
		Category     string          `json:"category"`
		Amount       decimal.Decimal `json:"amount"`
		Description  string          `json:"description"`
	}

	// UserAccount identifies an owner. Transactions and templates
	// reference it by username only; there is no enforced referential
	// integrity.
	UserAccount struct {
		Username     string `json:"-"`
		PasswordHash string `json:"password_hash"`
	}
)

var (
	ErrInvalidKind     = errors.New("invalid transaction kind")
	ErrInvalidTemplate = errors.New("invalid recurring template")
)

// ParseKind converts the persisted literal into a Kind.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.TrimSpace(s)) {
	case Income:
		return Income, nil
	case Expense:
		return Expense, nil
	default:
		return "", ErrInvalidKind
	}
}

func (k Kind) Valid() bool { return k == Income || k == Expense }

// Equal reports value equality on all six fields, comparing the amount
// within the legacy 1e-9 absolute tolerance.
func (t Transaction) Equal(other Transaction) bool {
	return t.Owner == other.Owner &&
		t.Date.Equal(other.Date) &&
		t.Kind == other.Kind &&
		t.Category == other.Category &&
		t.Description == other.Description &&
		AmountsMatch(t.Amount, other.Amount)
}

// Occurrence builds the ledger entry materialized from the template for
// the given due date.
func (r RecurringTemplate) Occurrence(due Date) Transaction {
	return Transaction{
		Owner:       r.Owner,
		Date:        due,
		Kind:        r.Kind,
		Category:    r.Category,
		Description: RecurringTag + r.Description,
		Amount:      r.Amount,
	}
}

// Validate rejects templates the recurrence engine cannot advance. An
// interval below one day would make the materialization loop spin forever,
// so it is a hard error rather than a tolerated quirk.
func (r RecurringTemplate) Validate() error {
	if r.IntervalDays < 1 {
		return errors.Join(ErrInvalidTemplate, errors.New("interval must be at least 1 day"))
	}
	if r.NextDue.IsZero() {
		return errors.Join(ErrInvalidTemplate, errors.New("next due date is not set"))
	}
	if !r.Kind.Valid() {
		return errors.Join(ErrInvalidTemplate, ErrInvalidKind)
	}
	return nil
}
