// Package fieldcrypt encrypts individual column values before they reach the
// database and decrypts them on the way back.
package fieldcrypt

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
)

// prefix marks ciphertext so that rows written before encryption was enabled
// can still be read.
const prefix = "enc:v1:"

var ErrCorrupt = errors.New("fieldcrypt: corrupt ciphertext")

// Cipher transforms a single field value.
type Cipher interface {
	Encrypt(plain string) (string, error)
	Decrypt(stored string) (string, error)
}

// Nop stores values as-is.
type Nop struct{}

func (Nop) Encrypt(plain string) (string, error)  { return plain, nil }
func (Nop) Decrypt(stored string) (string, error) { return stored, nil }

// AEAD encrypts with XChaCha20-Poly1305 and a random nonce per value.
type AEAD struct {
	aead cipher.AEAD
}

// NewFromHex builds a cipher from a 64-character hex key. An empty key yields Nop.
func NewFromHex(hexKey string) (Cipher, error) {
	if hexKey == "" {
		return Nop{}, nil
	}
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("fieldcrypt: key is not hex: %w", err)
	}
	return New(key)
}

func New(key []byte) (*AEAD, error) {
	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("fieldcrypt: key must be %d bytes, got %d", chacha20poly1305.KeySize, len(key))
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	return &AEAD{aead: aead}, nil
}

func (c *AEAD) Encrypt(plain string) (string, error) {
	if plain == "" {
		return "", nil
	}
	nonce := make([]byte, c.aead.NonceSize(), c.aead.NonceSize()+len(plain)+c.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("fieldcrypt: nonce: %w", err)
	}
	sealed := c.aead.Seal(nonce, nonce, []byte(plain), nil)
	return prefix + base64.RawStdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens prefixed values. A prefixed value that cannot be ciphertext at
// all (not base64, or shorter than nonce plus tag) is legacy plaintext and is
// returned as stored. Well-formed ciphertext that fails authentication is
// ErrCorrupt.
func (c *AEAD) Decrypt(stored string) (string, error) {
	if !strings.HasPrefix(stored, prefix) {
		return stored, nil
	}
	raw, err := base64.RawStdEncoding.DecodeString(strings.TrimPrefix(stored, prefix))
	if err != nil || len(raw) < c.aead.NonceSize()+c.aead.Overhead() {
		return stored, nil
	}
	nonce, sealed := raw[:c.aead.NonceSize()], raw[c.aead.NonceSize():]
	plain, err := c.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", ErrCorrupt
	}
	return string(plain), nil
}
