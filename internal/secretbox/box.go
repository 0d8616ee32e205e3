package secretbox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
)

const keySize = 32

// ErrDecrypt reports a failed authentication check during decryption.
// It covers tampered ciphertext, a truncated blob, and a wrong key alike.
var ErrDecrypt = errors.New("secretbox: decryption failed")

// Blob is a self-describing encrypted value. The nonce is generated fresh
// for every Encrypt call and stored next to the ciphertext.
type Blob struct {
	Nonce      []byte `json:"nonce"`
	Ciphertext []byte `json:"ciphertext"`
}

// Codec encrypts and decrypts blobs under a fixed key for the lifetime of
// the process. Safe for concurrent use.
type Codec struct {
	aead cipher.AEAD
}

// DeriveKey maps the service-wide secret onto a 256-bit AES key by padding
// with zero bytes or truncating. The secret itself must never appear in
// logs or API responses.
func DeriveKey(secret string) ([]byte, error) {
	if secret == "" {
		return nil, errors.New("secretbox: empty secret")
	}
	key := make([]byte, keySize)
	copy(key, secret)
	return key, nil
}

// New creates a codec from the service-wide secret.
func New(secret string) (*Codec, error) {
	key, err := DeriveKey(secret)
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("secretbox: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("secretbox: %w", err)
	}

	return &Codec{aead: aead}, nil
}

// Encrypt seals plaintext under a fresh random nonce.
func (c *Codec) Encrypt(plaintext []byte) (Blob, error) {
	if c == nil || c.aead == nil {
		return Blob{}, errors.New("secretbox: codec not initialized")
	}

	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return Blob{}, err
	}

	return Blob{
		Nonce:      nonce,
		Ciphertext: c.aead.Seal(nil, nonce, plaintext, nil),
	}, nil
}

// Decrypt opens a blob. Any authentication failure maps to [ErrDecrypt] so
// callers can treat corrupted stored state uniformly.
func (c *Codec) Decrypt(blob Blob) ([]byte, error) {
	if c == nil || c.aead == nil {
		return nil, errors.New("secretbox: codec not initialized")
	}
	if len(blob.Nonce) != c.aead.NonceSize() {
		return nil, ErrDecrypt
	}

	plaintext, err := c.aead.Open(nil, blob.Nonce, blob.Ciphertext, nil)
	if err != nil {
		return nil, ErrDecrypt
	}
	return plaintext, nil
}
