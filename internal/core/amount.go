// Package core holds the domain types shared by the stores, the
// recurrence engine and the report evaluator.
//
// Monetary amounts are decimal throughout. The legacy data model carried
// binary floats and papered over the drift with an epsilon on every
// comparison; decimals make arithmetic exact, but the epsilon stays part
// of the matching contract so ledgers written by the old implementation
// still match.
package core

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// amountTolerance is the absolute tolerance used when matching amounts,
// 1e-9.
var amountTolerance = decimal.New(1, -9)

// ParseAmount parses a decimal amount from persisted or user-entered text.
// Both dot and comma decimal separators are accepted.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return d, nil
}

// AmountsMatch reports whether two amounts are equal within the legacy
// 1e-9 absolute tolerance.
func AmountsMatch(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(amountTolerance)
}

// FormatAmount renders an amount with two decimal places for display.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}
