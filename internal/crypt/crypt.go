// Package crypt seals and opens the ledger blob with an AEAD cipher keyed
// from a file next to the data. The ledger is the only store encrypted at
// rest; limits, templates and accounts stay in the clear.
package crypt

import (
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"os"

	"golang.org/x/crypto/chacha20poly1305"
)

// ErrKeyMissing is returned when an encrypted ledger exists but the key
// file does not. Silently generating a fresh key here would make the
// existing ledger permanently unreadable, so the caller has to resolve
// the mismatch (restore the key or remove the ledger) explicitly.
var ErrKeyMissing = errors.New("encryption key file missing for existing ledger")

// Keeper holds the symmetric key used to seal and open the ledger.
type Keeper struct {
	aead cipher.AEAD
}

// LoadKeeper reads the key from keyPath, generating it on first run. A
// missing key is only auto-remediated when no sealed ledger exists yet at
// ledgerPath; otherwise ErrKeyMissing is returned.
func LoadKeeper(keyPath, ledgerPath string) (*Keeper, error) {
	key, err := os.ReadFile(keyPath)
	switch {
	case err == nil:
	case os.IsNotExist(err):
		if _, statErr := os.Stat(ledgerPath); statErr == nil {
			return nil, fmt.Errorf("%w: %s", ErrKeyMissing, keyPath)
		}
		key = make([]byte, chacha20poly1305.KeySize)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("generate key: %w", err)
		}
		if err := os.WriteFile(keyPath, key, 0o600); err != nil {
			return nil, fmt.Errorf("write key file: %w", err)
		}
	default:
		return nil, fmt.Errorf("read key file: %w", err)
	}

	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("key file %s: want %d bytes, got %d", keyPath, chacha20poly1305.KeySize, len(key))
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	return &Keeper{aead: aead}, nil
}

// Seal encrypts plaintext into a self-contained blob (nonce prepended).
func (k *Keeper) Seal(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	return k.aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Open decrypts a blob produced by Seal.
func (k *Keeper) Open(blob []byte) ([]byte, error) {
	if len(blob) < chacha20poly1305.NonceSizeX {
		return nil, errors.New("sealed ledger too short")
	}
	nonce, ciphertext := blob[:chacha20poly1305.NonceSizeX], blob[chacha20poly1305.NonceSizeX:]
	plaintext, err := k.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("open sealed ledger: %w", err)
	}
	return plaintext, nil
}
