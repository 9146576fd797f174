package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"
)

// SealedPrefix marks a value produced by Sealer.Seal.
const SealedPrefix = "enc:v1:"

// ErrSealed is returned when a sealed value is opened without a master key.
var ErrSealed = errors.New("cryptox: value is sealed and no master key is configured")

// Sealer encrypts key material at rest with AES-256-GCM. A nil *Sealer is
// valid: it stores values in clear text and refuses to open sealed ones.
type Sealer struct {
	aead cipher.AEAD
}

// NewSealer derives the AES-256 key from masterKey with SHA-256.
func NewSealer(masterKey []byte) (*Sealer, error) {
	if len(masterKey) == 0 {
		return nil, errors.New("cryptox: empty master key")
	}
	sum := sha256.Sum256(masterKey)

	block, err := aes.NewCipher(sum[:])
	if err != nil {
		return nil, fmt.Errorf("cryptox: create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("cryptox: create gcm: %w", err)
	}
	return &Sealer{aead: aead}, nil
}

// LoadSealer reads the master key file at path. An empty path yields a nil
// Sealer.
func LoadSealer(path string) (*Sealer, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cryptox: read master key: %w", err)
	}
	return NewSealer([]byte(strings.TrimSpace(string(data))))
}

// Seal encrypts plain. Output is SealedPrefix followed by base64url of
// nonce, ciphertext and tag.
func (s *Sealer) Seal(plain []byte) (string, error) {
	if s == nil || len(plain) == 0 {
		return string(plain), nil
	}

	nonce := make([]byte, s.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("cryptox: generate nonce: %w", err)
	}
	out := s.aead.Seal(nonce, nonce, plain, nil)
	return SealedPrefix + base64.RawURLEncoding.EncodeToString(out), nil
}

// Open reverses Seal. Values without SealedPrefix are returned unchanged.
func (s *Sealer) Open(value string) ([]byte, error) {
	if !strings.HasPrefix(value, SealedPrefix) {
		return []byte(value), nil
	}
	if s == nil {
		return nil, ErrSealed
	}

	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimPrefix(value, SealedPrefix))
	if err != nil {
		return nil, fmt.Errorf("cryptox: decode sealed value: %w", err)
	}
	n := s.aead.NonceSize()
	if len(raw) < n {
		return nil, errors.New("cryptox: sealed value too short")
	}
	plain, err := s.aead.Open(nil, raw[:n], raw[n:], nil)
	if err != nil {
		return nil, fmt.Errorf("cryptox: open sealed value: %w", err)
	}
	return plain, nil
}
