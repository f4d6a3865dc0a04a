// Package secret seals integration credentials with AES-256-GCM before they
// are written to integration_configs.
package secret

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
)

const sealedPrefix = "enc:v1:"

// ErrNoKey is returned when a sealed value is read without a configured key.
var ErrNoKey = errors.New("integrations encryption key not configured")

// Box seals and opens secret values. A Box without a key stores values as-is.
type Box struct {
	key []byte
}

// NewBox returns a Box for key, which must be empty or 32 bytes.
func NewBox(key []byte) (*Box, error) {
	if len(key) != 0 && len(key) != 32 {
		return nil, errors.New("encryption key must be 32 bytes")
	}
	return &Box{key: key}, nil
}

// Enabled reports whether values are encrypted at rest.
func (b *Box) Enabled() bool {
	return b != nil && len(b.key) == 32
}

// Seal encrypts plaintext and returns the prefixed hex-encoded nonce+ciphertext.
func (b *Box) Seal(plaintext string) (string, error) {
	if plaintext == "" || !b.Enabled() {
		return plaintext, nil
	}

	aesGCM, err := b.gcm()
	if err != nil {
		return "", err
	}

	nonce := make([]byte, aesGCM.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	ciphertext := aesGCM.Seal(nonce, nonce, []byte(plaintext), nil)
	return sealedPrefix + hex.EncodeToString(ciphertext), nil
}

// Open reverses Seal. Values without the sealed prefix are returned unchanged.
func (b *Box) Open(value string) (string, error) {
	if !strings.HasPrefix(value, sealedPrefix) {
		return value, nil
	}
	if !b.Enabled() {
		return "", ErrNoKey
	}

	data, err := hex.DecodeString(strings.TrimPrefix(value, sealedPrefix))
	if err != nil {
		return "", fmt.Errorf("hex decode: %w", err)
	}

	aesGCM, err := b.gcm()
	if err != nil {
		return "", err
	}

	nonceSize := aesGCM.NonceSize()
	if len(data) < nonceSize {
		return "", errors.New("ciphertext too short")
	}

	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	plaintext, err := aesGCM.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("decrypt: %w", err)
	}
	return string(plaintext), nil
}

func (b *Box) gcm() (cipher.AEAD, error) {
	block, err := aes.NewCipher(b.key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	aesGCM, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create GCM: %w", err)
	}
	return aesGCM, nil
}
