// Package backend wires up a concrete storage backend from configuration.
package backend

import (
	"fmt"

	"github.com/kenay85/budget/internal/config"
	"github.com/kenay85/budget/internal/crypt"
	"github.com/kenay85/budget/internal/log"
	"github.com/kenay85/budget/internal/storage"
)

// Stores bundles the four store interfaces a session works with, plus an
// optional cleanup hook for backends holding open resources.
type Stores struct {
	Ledger    storage.LedgerStore
	Budgets   storage.BudgetStore
	Recurring storage.RecurringStore
	Accounts  storage.AccountStore
	Cleanup   func() error
}

// Open builds the backend selected by cfg.DataBackend: flat files
// (default, ledger sealed at rest) or a SQLite database.
func Open(cfg *config.Config, logger *log.Logger) (*Stores, error) {
	l := logger.WithComponent(log.ComponentBackend)

	switch cfg.DataBackend {
	case config.BackendFile:
		return openFile(cfg, logger, l)
	case config.BackendSQLite:
		return openSQLite(cfg, logger, l)
	default:
		return nil, fmt.Errorf("unsupported data backend: %s", cfg.DataBackend)
	}
}

func openFile(cfg *config.Config, logger, l *log.Logger) (*Stores, error) {
	keeper, err := crypt.LoadKeeper(cfg.KeyPath(), cfg.LedgerPath())
	if err != nil {
		return nil, fmt.Errorf("initialize ledger encryption: %w", err)
	}
	ledger, err := storage.OpenFileLedger(cfg.LedgerPath(), keeper, logger)
	if err != nil {
		return nil, err
	}
	budgets, err := storage.OpenFileBudgets(cfg.BudgetsPath(), logger)
	if err != nil {
		return nil, err
	}
	recurring, err := storage.OpenFileRecurring(cfg.RecurringPath(), logger)
	if err != nil {
		return nil, err
	}
	accounts, err := storage.OpenFileAccounts(cfg.AccountsPath(), logger)
	if err != nil {
		return nil, err
	}

	l.Info("initialized file backend", log.FieldPath, cfg.DataDir)
	return &Stores{
		Ledger:    ledger,
		Budgets:   budgets,
		Recurring: recurring,
		Accounts:  accounts,
	}, nil
}

func openSQLite(cfg *config.Config, logger, l *log.Logger) (*Stores, error) {
	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath, logger)
	if err != nil {
		return nil, fmt.Errorf("initialize sqlite backend: %w", err)
	}

	l.Info("initialized sqlite backend", log.FieldPath, cfg.SQLiteDBPath)
	return &Stores{
		Ledger:    repo.Ledger(),
		Budgets:   repo.Budgets(),
		Recurring: repo.Recurring(),
		Accounts:  repo.Accounts(),
		Cleanup:   repo.Close,
	}, nil
}
