package vault

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

const keyInfo = "marketplace-payments/tenant-credentials/v1"

var ErrDecrypt = errors.New("credential ciphertext cannot be decrypted")

// Cipher seals credential fields with XChaCha20-Poly1305. The tenant id is
// bound as additional data so a ciphertext cannot be moved between tenants.
type Cipher struct {
	aead cipher.AEAD
}

// NewCipher derives the data key from the process secret.
func NewCipher(secret string) (*Cipher, error) {
	if secret == "" {
		return nil, errors.New("vault secret is empty")
	}
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(keyInfo)), key); err != nil {
		return nil, fmt.Errorf("derive vault key: %w", err)
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("init vault cipher: %w", err)
	}
	return &Cipher{aead: aead}, nil
}

func (c *Cipher) Seal(tenantID, plaintext string) (string, error) {
	nonce := make([]byte, c.aead.NonceSize(), c.aead.NonceSize()+len(plaintext)+c.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	out := c.aead.Seal(nonce, nonce, []byte(plaintext), []byte(tenantID))
	return base64.StdEncoding.EncodeToString(out), nil
}

func (c *Cipher) Open(tenantID, encoded string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil || len(raw) < c.aead.NonceSize() {
		return "", ErrDecrypt
	}
	nonce, ct := raw[:c.aead.NonceSize()], raw[c.aead.NonceSize():]
	plain, err := c.aead.Open(nil, nonce, ct, []byte(tenantID))
	if err != nil {
		return "", ErrDecrypt
	}
	return string(plain), nil
}
