package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kenay85/budget/internal/core"
)

func TestParseTransaction(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    core.Transaction
		wantErr bool
	}{
		{
			name: "with description",
			args: []string{"2024-03-15", "Expense", "Food", "12.50", "lunch", "out"},
			want: core.Transaction{
				Owner:       "alice",
				Date:        core.NewDate(2024, 3, 15),
				Kind:        core.Expense,
				Category:    "Food",
				Description: "lunch out",
			},
		},
		{
			name: "without description",
			args: []string{"2024-03-15", "Income", "Salary", "2500"},
			want: core.Transaction{
				Owner:    "alice",
				Date:     core.NewDate(2024, 3, 15),
				Kind:     core.Income,
				Category: "Salary",
			},
		},
		{name: "too few fields", args: []string{"2024-03-15", "Expense", "Food"}, wantErr: true},
		{name: "bad date", args: []string{"soon", "Expense", "Food", "10"}, wantErr: true},
		{name: "bad kind", args: []string{"2024-03-15", "Transfer", "Food", "10"}, wantErr: true},
		{name: "bad amount", args: []string{"2024-03-15", "Expense", "Food", "lots"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseTransaction("alice", tt.args)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want.Owner, got.Owner)
			assert.True(t, got.Date.Equal(tt.want.Date))
			assert.Equal(t, tt.want.Kind, got.Kind)
			assert.Equal(t, tt.want.Category, got.Category)
			assert.Equal(t, tt.want.Description, got.Description)
		})
	}
}

func TestParseTemplate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		tpl, err := parseTemplate([]string{"2024-04-01", "30", "Expense", "Rent", "900", "apartment"})
		require.NoError(t, err)
		assert.True(t, tpl.NextDue.Equal(core.NewDate(2024, 4, 1)))
		assert.Equal(t, 30, tpl.IntervalDays)
		assert.Equal(t, core.Expense, tpl.Kind)
		assert.Equal(t, "Rent", tpl.Category)
		assert.Equal(t, "apartment", tpl.Description)
		assert.NoError(t, tpl.Validate())
	})

	t.Run("no description", func(t *testing.T) {
		tpl, err := parseTemplate([]string{"2024-04-01", "7", "Income", "Salary", "100"})
		require.NoError(t, err)
		assert.Empty(t, tpl.Description)
	})

	tests := []struct {
		name string
		args []string
	}{
		{name: "too few fields", args: []string{"2024-04-01", "30", "Expense", "Rent"}},
		{name: "bad date", args: []string{"someday", "30", "Expense", "Rent", "900"}},
		{name: "bad interval", args: []string{"2024-04-01", "monthly", "Expense", "Rent", "900"}},
		{name: "bad kind", args: []string{"2024-04-01", "30", "Transfer", "Rent", "900"}},
		{name: "bad amount", args: []string{"2024-04-01", "30", "Expense", "Rent", "lots"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseTemplate(tt.args)
			assert.Error(t, err)
		})
	}
}
