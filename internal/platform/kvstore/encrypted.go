package kvstore

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"
)

// Encrypted wraps a Store and seals every value with AES-256-GCM. The nonce
// is prepended to the ciphertext.
type Encrypted struct {
	inner Store
	aead  cipher.AEAD
}

// NewEncrypted wraps inner with a 32-byte AES-256 key.
func NewEncrypted(inner Store, key []byte) (*Encrypted, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("kvstore: encryption key must be 32 bytes, got %d", len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("kvstore: create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("kvstore: create GCM: %w", err)
	}
	return &Encrypted{inner: inner, aead: aead}, nil
}

func (e *Encrypted) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := e.inner.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	nonceSize := e.aead.NonceSize()
	if len(data) < nonceSize {
		return nil, fmt.Errorf("kvstore: decrypt %s: ciphertext too short", key)
	}
	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	// The key is bound as additional data so values cannot be swapped between keys.
	plain, err := e.aead.Open(nil, nonce, ciphertext, []byte(key))
	if err != nil {
		return nil, fmt.Errorf("kvstore: decrypt %s: %w", key, err)
	}
	return plain, nil
}

func (e *Encrypted) Put(ctx context.Context, key string, value []byte) error {
	nonce := make([]byte, e.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return fmt.Errorf("kvstore: generate nonce: %w", err)
	}
	return e.inner.Put(ctx, key, e.aead.Seal(nonce, nonce, value, []byte(key)))
}

func (e *Encrypted) Delete(ctx context.Context, key string) error { return e.inner.Delete(ctx, key) }

func (e *Encrypted) Ping(ctx context.Context) error { return e.inner.Ping(ctx) }

func (e *Encrypted) Close() error { return e.inner.Close() }
