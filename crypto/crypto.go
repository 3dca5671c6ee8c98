// Package crypto seals game key values at rest. It implements AES-256-GCM
// authenticated encryption; sealed values carry a version prefix so rows written
// before encryption was enabled remain readable.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
)

// SealedPrefix marks values produced by AESSealer.
const SealedPrefix = "v1:"

// ErrNotConfigured is returned when a sealed value is read without a key.
var ErrNotConfigured = errors.New("value is sealed but no encryption key is configured")

// Sealer transforms key values for storage and back.
type Sealer interface {
	// Seal returns the storage form of plaintext.
	Seal(plaintext string) (string, error)
	// Open returns the plaintext for a stored value. Unsealed legacy values pass through.
	Open(stored string) (string, error)
}

// IsSealed reports whether a stored value was produced by an AESSealer.
func IsSealed(stored string) bool { return strings.HasPrefix(stored, SealedPrefix) }

// AESSealer implements Sealer using AES-256-GCM.
type AESSealer struct {
	aead cipher.AEAD
}

// NewAESSealer creates a sealer from a base64-encoded 32-byte key.
// Generate one with:
//
//	openssl rand -base64 32
func NewAESSealer(base64Key string) (*AESSealer, error) {
	if base64Key == "" {
		return nil, fmt.Errorf("encryption key is empty")
	}
	key, err := base64.StdEncoding.DecodeString(base64Key)
	if err != nil {
		return nil, fmt.Errorf("invalid encryption key: base64 decode failed: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("invalid encryption key: must be 32 bytes (256 bits), got %d bytes", len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create GCM: %w", err)
	}
	return &AESSealer{aead: gcm}, nil
}

// Seal encrypts plaintext and returns "v1:" + base64(nonce || ciphertext || tag).
// Empty input stays empty.
func (s *AESSealer) Seal(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	out := s.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return SealedPrefix + base64.StdEncoding.EncodeToString(out), nil
}

// Open decrypts a value produced by Seal. Values without the prefix are returned unchanged.
func (s *AESSealer) Open(stored string) (string, error) {
	if !IsSealed(stored) {
		return stored, nil
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(stored, SealedPrefix))
	if err != nil {
		return "", fmt.Errorf("base64 decode failed: %w", err)
	}
	ns := s.aead.NonceSize()
	if len(raw) < ns {
		return "", fmt.Errorf("ciphertext too short: expected at least %d bytes, got %d", ns, len(raw))
	}
	plain, err := s.aead.Open(nil, raw[:ns], raw[ns:], nil)
	if err != nil {
		// Don't expose internal error details
		return "", fmt.Errorf("decryption failed: authentication or integrity check failed")
	}
	return string(plain), nil
}

// Plain stores values as-is. It refuses to open sealed values.
type Plain struct{}

func (Plain) Seal(plaintext string) (string, error) { return plaintext, nil }

func (Plain) Open(stored string) (string, error) {
	if IsSealed(stored) {
		return "", ErrNotConfigured
	}
	return stored, nil
}

// FromKey returns an AESSealer when base64Key is set and Plain otherwise.
func FromKey(base64Key string) (Sealer, error) {
	if base64Key == "" {
		return Plain{}, nil
	}
	return NewAESSealer(base64Key)
}
