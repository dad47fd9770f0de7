package storage

import (
	"context"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

// Argon2id parameters for deriving the sealing key from a passphrase.
const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
)

var ErrEmptyPassphrase = errors.New("sealing passphrase is empty")

// SealedScope encrypts values before handing them to the wrapped scope.
// Values that cannot be opened (foreign key, tampering, plain text) read as
// absent.
type SealedScope struct {
	inner Scope
	aead  cipher.AEAD
}

var _ Scope = (*SealedScope)(nil)

// NewSealedScope derives an XChaCha20-Poly1305 key from passphrase, salted with
// label so each scope gets its own key.
func NewSealedScope(inner Scope, passphrase, label string) (*SealedScope, error) {
	if passphrase == "" {
		return nil, ErrEmptyPassphrase
	}
	key := argon2.IDKey([]byte(passphrase), []byte("portalctl:"+label), argonTime, argonMemory, argonThreads, chacha20poly1305.KeySize)
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	return &SealedScope{inner: inner, aead: aead}, nil
}

func (s *SealedScope) Get(ctx context.Context, key string) (string, bool, error) {
	raw, ok, err := s.inner.Get(ctx, key)
	if err != nil || !ok {
		return "", false, err
	}
	plain, err := s.open(key, raw)
	if err != nil {
		return "", false, nil
	}
	return plain, true, nil
}

func (s *SealedScope) Set(ctx context.Context, values map[string]string) error {
	sealed := make(map[string]string, len(values))
	for k, v := range values {
		out, err := s.seal(k, v)
		if err != nil {
			return err
		}
		sealed[k] = out
	}
	return s.inner.Set(ctx, sealed)
}

func (s *SealedScope) Delete(ctx context.Context, keys ...string) error {
	return s.inner.Delete(ctx, keys...)
}

// The key name is bound as additional data so values cannot be swapped
// between keys.
func (s *SealedScope) seal(key, value string) (string, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	out := s.aead.Seal(nonce, nonce, []byte(value), []byte(key))
	return base64.RawStdEncoding.EncodeToString(out), nil
}

func (s *SealedScope) open(key, value string) (string, error) {
	data, err := base64.RawStdEncoding.DecodeString(value)
	if err != nil {
		return "", err
	}
	if len(data) < s.aead.NonceSize() {
		return "", errors.New("sealed value too short")
	}
	nonce, ciphertext := data[:s.aead.NonceSize()], data[s.aead.NonceSize():]
	plain, err := s.aead.Open(nil, nonce, ciphertext, []byte(key))
	if err != nil {
		return "", err
	}
	return string(plain), nil
}
