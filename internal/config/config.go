package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Backend names accepted by DATA_BACKEND.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Config holds all runtime settings. Everything comes from environment
// variables; cmd binaries load a .env file first for local development.
type Config struct {
	// DataDir is the directory holding every persisted file.
	DataDir string

	// File backend paths, relative to DataDir unless absolute.
	LedgerFile    string
	BudgetsFile   string
	RecurringFile string
	AccountsFile  string
	KeyFile       string

	// Backend selection
	DataBackend string

	// SQLite backend
	SQLiteDBPath string

	// BcryptCost controls password hashing work factor.
	BcryptCost int
}

func Load() *Config {
	return &Config{
		DataDir:       getEnv("BUDGET_DATA_DIR", "./data"),
		LedgerFile:    getEnv("BUDGET_LEDGER_FILE", "transactions.bin"),
		BudgetsFile:   getEnv("BUDGET_LIMITS_FILE", "budgets.csv"),
		RecurringFile: getEnv("BUDGET_RECURRING_FILE", "recurring.json"),
		AccountsFile:  getEnv("BUDGET_ACCOUNTS_FILE", "users.json"),
		KeyFile:       getEnv("BUDGET_KEY_FILE", "secret.key"),
		DataBackend:   getEnv("DATA_BACKEND", BackendFile),
		SQLiteDBPath:  getEnv("SQLITE_DB_PATH", "./data/budget.db"),
		BcryptCost:    getEnvInt("BUDGET_BCRYPT_COST", 10),
	}
}

// Validate checks the configuration and returns an error describing every
// problem found.
func (c *Config) Validate() error {
	var errs []string

	switch c.DataBackend {
	case BackendFile, BackendSQLite:
	default:
		errs = append(errs, fmt.Sprintf("invalid data backend %q: must be %q or %q", c.DataBackend, BackendFile, BackendSQLite))
	}

	if c.DataBackend == BackendFile {
		if c.DataDir == "" {
			errs = append(errs, "data directory cannot be empty when using the file backend")
		} else if _, err := os.Stat(c.DataDir); os.IsNotExist(err) {
			if err := os.MkdirAll(c.DataDir, 0o755); err != nil {
				errs = append(errs, fmt.Sprintf("cannot create data directory %q: %v", c.DataDir, err))
			}
		}
		for name, val := range map[string]string{
			"ledger file":    c.LedgerFile,
			"budgets file":   c.BudgetsFile,
			"recurring file": c.RecurringFile,
			"accounts file":  c.AccountsFile,
			"key file":       c.KeyFile,
		} {
			if val == "" {
				errs = append(errs, name+" cannot be empty")
			}
		}
	}

	if c.DataBackend == BackendSQLite && c.SQLiteDBPath == "" {
		errs = append(errs, "SQLite database path cannot be empty when using the sqlite backend")
	}

	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		errs = append(errs, fmt.Sprintf("invalid bcrypt cost %d: must be between 4 and 31", c.BcryptCost))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

// LedgerPath returns the ledger file location under DataDir.
func (c *Config) LedgerPath() string { return c.resolve(c.LedgerFile) }

// BudgetsPath returns the budgets file location under DataDir.
func (c *Config) BudgetsPath() string { return c.resolve(c.BudgetsFile) }

// RecurringPath returns the recurring templates file location under DataDir.
func (c *Config) RecurringPath() string { return c.resolve(c.RecurringFile) }

// AccountsPath returns the accounts file location under DataDir.
func (c *Config) AccountsPath() string { return c.resolve(c.AccountsFile) }

// KeyPath returns the encryption key file location under DataDir.
func (c *Config) KeyPath() string { return c.resolve(c.KeyFile) }

func (c *Config) resolve(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.DataDir, name)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}
