package kv

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/todosync/internal/shared"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

// SaltKey holds the argon2 salt of a sealed namespace, unencrypted.
const SaltKey = "sealed_salt"

var ErrWrongPassphrase = errors.New("wrong passphrase or corrupted value")

// SealedRepository encrypts values with XChaCha20-Poly1305 before handing
// them to the wrapped repository. The key is derived from a passphrase with
// argon2id; the key name is bound as additional data so values cannot be
// swapped between keys.
type SealedRepository struct {
	inner Repository
	key   []byte
}

func deriveKey(passphrase, salt []byte) []byte {
	return argon2.IDKey(passphrase, salt, 1, 64*1024, 4, chacha20poly1305.KeySize)
}

// NewSealedRepository loads the salt from inner, creating it on first use.
func NewSealedRepository(ctx context.Context, inner Repository, passphrase string) (*SealedRepository, error) {
	salt, err := inner.Get(ctx, SaltKey)
	if errors.Is(err, ErrNotFound) {
		salt = make([]byte, 16)
		if _, err := rand.Read(salt); err != nil {
			return nil, err
		}
		if err := inner.Set(ctx, SaltKey, salt); err != nil {
			return nil, fmt.Errorf("store salt: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("load salt: %w", err)
	}

	pass := []byte(passphrase)
	key := deriveKey(pass, salt)
	shared.WipeByteArray(pass)

	return &SealedRepository{inner: inner, key: key}, nil
}

func (r *SealedRepository) Get(ctx context.Context, key string) ([]byte, error) {
	sealed, err := r.inner.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	aead, err := chacha20poly1305.NewX(r.key)
	if err != nil {
		return nil, err
	}
	if len(sealed) < aead.NonceSize() {
		return nil, ErrWrongPassphrase
	}
	nonce, ct := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]

	plain, err := aead.Open(nil, nonce, ct, []byte(key))
	if err != nil {
		return nil, ErrWrongPassphrase
	}
	return plain, nil
}

func (r *SealedRepository) Set(ctx context.Context, key string, value []byte) error {
	aead, err := chacha20poly1305.NewX(r.key)
	if err != nil {
		return err
	}

	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(value)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return err
	}

	return r.inner.Set(ctx, key, aead.Seal(nonce, nonce, value, []byte(key)))
}

func (r *SealedRepository) Remove(ctx context.Context, key string) error {
	return r.inner.Remove(ctx, key)
}
