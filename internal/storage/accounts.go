package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/kenay85/budget/internal/core"
	"github.com/kenay85/budget/internal/log"
)

// FileAccounts is the file-backed AccountStore: a JSON object keyed by
// username. Usernames are case-sensitive.
type FileAccounts struct {
	path     string
	logger   *log.Logger
	accounts map[string]core.UserAccount
}

// OpenFileAccounts loads the accounts file at path; a missing file yields
// an empty store.
func OpenFileAccounts(path string, logger *log.Logger) (*FileAccounts, error) {
	a := &FileAccounts{
		path:     path,
		logger:   logger.WithComponent(log.ComponentStorage),
		accounts: make(map[string]core.UserAccount),
	}
	if err := a.load(); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *FileAccounts) load() error {
	data, err := os.ReadFile(a.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read accounts: %w", err)
	}
	var raw map[string]core.UserAccount
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parse accounts: %w", err)
	}
	for username, account := range raw {
		account.Username = username
		a.accounts[username] = account
	}
	return nil
}

// Lookup implements AccountStore.
func (a *FileAccounts) Lookup(_ context.Context, username string) (core.UserAccount, bool, error) {
	account, ok := a.accounts[username]
	return account, ok, nil
}

// Create implements AccountStore.
func (a *FileAccounts) Create(_ context.Context, account core.UserAccount) error {
	if _, ok := a.accounts[account.Username]; ok {
		return fmt.Errorf("%w: %s", ErrAccountExists, account.Username)
	}
	a.accounts[account.Username] = account
	return nil
}

// Save implements AccountStore.
func (a *FileAccounts) Save(_ context.Context) error {
	data, err := json.MarshalIndent(a.accounts, "", "  ")
	if err != nil {
		return fmt.Errorf("encode accounts: %w", err)
	}
	if err := os.WriteFile(a.path, data, 0o600); err != nil {
		return fmt.Errorf("write accounts: %w", err)
	}
	return nil
}

var _ AccountStore = (*FileAccounts)(nil)
