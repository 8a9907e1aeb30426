package auth

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Provider tokens may be stored encrypted at rest and supplied with an
// "enc:" prefix. DecryptToken unseals them with the deployment's token
// encryption key; plain tokens pass through untouched.

const sealedPrefix = "enc:"

// IsSealed reports whether value carries the sealed-token prefix.
func IsSealed(value string) bool { return strings.HasPrefix(value, sealedPrefix) }

// EncryptToken seals plaintext with AES-256-GCM under a key derived from
// keyMaterial and returns the prefixed base64 form.
func EncryptToken(keyMaterial, plaintext string) (string, error) {
	gcm, err := newGCM(keyMaterial)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	sealed := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return sealedPrefix + base64.StdEncoding.EncodeToString(sealed), nil
}

// DecryptToken unseals a sealed token. A value without the prefix is
// returned as is; a sealed value without a key is an error.
func DecryptToken(keyMaterial, value string) (string, error) {
	if !IsSealed(value) {
		return value, nil
	}
	if keyMaterial == "" {
		return "", errors.New("sealed token but no encryption key configured")
	}

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(value, sealedPrefix))
	if err != nil {
		return "", fmt.Errorf("decode sealed token: %w", err)
	}

	gcm, err := newGCM(keyMaterial)
	if err != nil {
		return "", err
	}
	if len(raw) < gcm.NonceSize() {
		return "", errors.New("sealed token too short")
	}

	plaintext, err := gcm.Open(nil, raw[:gcm.NonceSize()], raw[gcm.NonceSize():], nil)
	if err != nil {
		return "", fmt.Errorf("unseal token: %w", err)
	}
	return string(plaintext), nil
}

func newGCM(keyMaterial string) (cipher.AEAD, error) {
	if keyMaterial == "" {
		return nil, errors.New("empty encryption key")
	}
	key := sha256.Sum256([]byte(keyMaterial))
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	return cipher.NewGCM(block)
}
