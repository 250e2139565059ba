// Package phi provides field-level encryption for protected health
// information stored at rest. Values are sealed with AES-256-GCM; the key
// is derived from an operator passphrase with PBKDF2 so deployments only
// need to manage a single secret.
package phi

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

const (
	keySize      = 32
	pbkdf2Iters  = 100_000
	saltSize     = 16
	sealedPrefix = "phi:v1:"
)

// Encryptor seals and opens PHI field values.
type Encryptor struct {
	aead cipher.AEAD
}

// NewEncryptor derives an AES-256 key from the passphrase and salt.
func NewEncryptor(passphrase string, salt []byte) (*Encryptor, error) {
	if passphrase == "" {
		return nil, fmt.Errorf("phi: empty passphrase")
	}
	if len(salt) < saltSize {
		return nil, fmt.Errorf("phi: salt must be at least %d bytes, got %d", saltSize, len(salt))
	}
	key := pbkdf2.Key([]byte(passphrase), salt, pbkdf2Iters, keySize, sha256.New)
	return NewEncryptorWithKey(key)
}

// NewEncryptorWithKey builds an Encryptor from a raw 32-byte key.
func NewEncryptorWithKey(key []byte) (*Encryptor, error) {
	if len(key) != keySize {
		return nil, fmt.Errorf("phi: key must be %d bytes, got %d", keySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("phi: create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("phi: create GCM: %w", err)
	}
	return &Encryptor{aead: aead}, nil
}

// NewSalt generates a random salt for key derivation.
func NewSalt() ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("phi: generate salt: %w", err)
	}
	return salt, nil
}

// Seal encrypts a field value. The result carries a version prefix so
// stored values can be told apart from plaintext.
func (e *Encryptor) Seal(plaintext string) (string, error) {
	sealed, err := e.SealBytes([]byte(plaintext))
	if err != nil {
		return "", err
	}
	return sealedPrefix + base64.StdEncoding.EncodeToString(sealed), nil
}

// Open decrypts a value produced by Seal. Unprefixed input is returned
// unchanged so records written before encryption was enabled still read.
func (e *Encryptor) Open(value string) (string, error) {
	if len(value) < len(sealedPrefix) || value[:len(sealedPrefix)] != sealedPrefix {
		return value, nil
	}
	data, err := base64.StdEncoding.DecodeString(value[len(sealedPrefix):])
	if err != nil {
		return "", fmt.Errorf("phi: base64 decode: %w", err)
	}
	plaintext, err := e.OpenBytes(data)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

// SealBytes encrypts data, returning nonce + ciphertext.
func (e *Encryptor) SealBytes(data []byte) ([]byte, error) {
	nonce := make([]byte, e.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("phi: generate nonce: %w", err)
	}
	return e.aead.Seal(nonce, nonce, data, nil), nil
}

// OpenBytes splits off the leading nonce and decrypts the remainder.
func (e *Encryptor) OpenBytes(data []byte) ([]byte, error) {
	nonceSize := e.aead.NonceSize()
	if len(data) < nonceSize {
		return nil, fmt.Errorf("phi: ciphertext too short")
	}
	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	plaintext, err := e.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("phi: decrypt: %w", err)
	}
	return plaintext, nil
}

// SealJSON marshals v and seals the resulting document.
func (e *Encryptor) SealJSON(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("phi: marshal: %w", err)
	}
	sealed, err := e.SealBytes(raw)
	if err != nil {
		return "", err
	}
	return sealedPrefix + base64.StdEncoding.EncodeToString(sealed), nil
}

// OpenJSON decrypts a SealJSON value into v.
func (e *Encryptor) OpenJSON(value string, v any) error {
	if len(value) < len(sealedPrefix) || value[:len(sealedPrefix)] != sealedPrefix {
		return fmt.Errorf("phi: value is not sealed")
	}
	data, err := base64.StdEncoding.DecodeString(value[len(sealedPrefix):])
	if err != nil {
		return fmt.Errorf("phi: base64 decode: %w", err)
	}
	raw, err := e.OpenBytes(data)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("phi: unmarshal: %w", err)
	}
	return nil
}

// Sealed reports whether value carries the sealed prefix.
func Sealed(value string) bool {
	return len(value) >= len(sealedPrefix) && value[:len(sealedPrefix)] == sealedPrefix
}
