package services

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/kenay85/budget/internal/core"
	"github.com/kenay85/budget/internal/log"
	"github.com/kenay85/budget/internal/storage"
)

var (
	ErrDuplicateAccount = errors.New("account already exists")
	ErrEmptyCredentials = errors.New("username and password must not be empty")
	ErrUnknownAccount   = errors.New("unknown account")
	ErrWrongPassword    = errors.New("wrong password")
)

// Auth registers accounts and verifies logins. New accounts get bcrypt
// hashes; hex SHA-256 digests written by the legacy implementation still
// verify, so old user files keep working.
//
// ErrUnknownAccount and ErrWrongPassword are distinct so callers can log
// and test them separately. Interactive frontends should collapse both
// into one "invalid credentials" message rather than confirm which
// usernames exist.
type Auth struct {
	accounts storage.AccountStore
	cost     int
	logger   *log.Logger
}

// NewAuth creates an Auth over the given account store. cost is the
// bcrypt work factor; values below bcrypt.MinCost fall back to the
// library default.
func NewAuth(accounts storage.AccountStore, cost int, logger *log.Logger) *Auth {
	if cost < bcrypt.MinCost {
		cost = bcrypt.DefaultCost
	}
	return &Auth{
		accounts: accounts,
		cost:     cost,
		logger:   logger.WithComponent(log.ComponentAuth),
	}
}

// Register creates a new account. Usernames are case-sensitive and must
// be unique.
func (a *Auth) Register(ctx context.Context, username, password string) error {
	if strings.TrimSpace(username) == "" || password == "" {
		return ErrEmptyCredentials
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), a.cost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	err = a.accounts.Create(ctx, core.UserAccount{
		Username:     username,
		PasswordHash: string(hash),
	})
	if errors.Is(err, storage.ErrAccountExists) {
		return fmt.Errorf("%w: %s", ErrDuplicateAccount, username)
	}
	if err != nil {
		return err
	}
	if err := a.accounts.Save(ctx); err != nil {
		return fmt.Errorf("save accounts: %w", err)
	}
	a.logger.Info("account registered", log.FieldOwner, username)
	return nil
}

// Login verifies the password and returns the username as the session
// owner identity.
func (a *Auth) Login(ctx context.Context, username, password string) (string, error) {
	if strings.TrimSpace(username) == "" || password == "" {
		return "", ErrEmptyCredentials
	}
	account, ok, err := a.accounts.Lookup(ctx, username)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownAccount, username)
	}
	if !verifyPassword(account.PasswordHash, password) {
		return "", ErrWrongPassword
	}
	a.logger.Info("login", log.FieldOwner, username)
	return username, nil
}

// verifyPassword accepts bcrypt hashes and legacy hex SHA-256 digests.
func verifyPassword(storedHash, password string) bool {
	if strings.HasPrefix(storedHash, "$2") {
		return bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(password)) == nil
	}
	digest := sha256.Sum256([]byte(password))
	legacy := hex.EncodeToString(digest[:])
	return subtle.ConstantTimeCompare([]byte(legacy), []byte(strings.ToLower(storedHash))) == 1
}
