package cryptox

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Argon2Params are the argon2id cost parameters written into every hash.
type Argon2Params struct {
	Memory      uint32 // KiB
	Iterations  uint32
	Parallelism uint8
	KeyLength   uint32
	SaltLength  uint32
}

// DefaultArgon2Params follows the OWASP minimum for argon2id.
var DefaultArgon2Params = Argon2Params{
	Memory:      19 * 1024,
	Iterations:  2,
	Parallelism: 1,
	KeyLength:   32,
	SaltLength:  16,
}

// ErrMalformedHash reports a stored hash that is not a PHC argon2id string.
var ErrMalformedHash = errors.New("cryptox: malformed password hash")

// Hasher hashes and compares passwords with argon2id and a server side
// pepper. The zero value hashes without a pepper.
type Hasher struct {
	Pepper []byte
	Params Argon2Params
}

// NewHasher returns a Hasher with the default cost parameters.
func NewHasher(pepper []byte) *Hasher {
	return &Hasher{Pepper: pepper, Params: DefaultArgon2Params}
}

func (h *Hasher) params() Argon2Params {
	if h.Params == (Argon2Params{}) {
		return DefaultArgon2Params
	}
	return h.Params
}

func (h *Hasher) derive(plain string, salt []byte, p Argon2Params) []byte {
	input := make([]byte, 0, len(plain)+len(h.Pepper))
	input = append(input, plain...)
	input = append(input, h.Pepper...)
	return argon2.IDKey(input, salt, p.Iterations, p.Memory, p.Parallelism, p.KeyLength)
}

// Hash returns a PHC formatted argon2id hash of plain with a fresh salt.
func (h *Hasher) Hash(plain string) (string, error) {
	p := h.params()
	salt := make([]byte, p.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("cryptox: read salt: %w", err)
	}

	sum := h.derive(plain, salt, p)
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, p.Memory, p.Iterations, p.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(sum),
	), nil
}

// Compare reports whether plain matches encoded in constant time. Malformed
// hashes never match.
func (h *Hasher) Compare(plain, encoded string) bool {
	p, salt, want, err := decodeHash(encoded)
	if err != nil {
		return false
	}
	p.KeyLength = uint32(len(want)) // #nosec G115 -- bounded by the decoded hash
	got := h.derive(plain, salt, p)
	return subtle.ConstantTimeCompare(got, want) == 1
}

// decodeHash splits $argon2id$v=19$m=X,t=Y,p=Z$salt$hash.
func decodeHash(encoded string) (Argon2Params, []byte, []byte, error) {
	var p Argon2Params

	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return p, nil, nil, ErrMalformedHash
	}
	if parts[2] != fmt.Sprintf("v=%d", argon2.Version) {
		return p, nil, nil, ErrMalformedHash
	}
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.Memory, &p.Iterations, &p.Parallelism); err != nil {
		return p, nil, nil, ErrMalformedHash
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return p, nil, nil, ErrMalformedHash
	}
	sum, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(sum) == 0 {
		return p, nil, nil, ErrMalformedHash
	}
	return p, salt, sum, nil
}

// GeneratePassword returns a random alphanumeric password of length n.
func GeneratePassword(n int) (string, error) {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	if n <= 0 {
		n = 16
	}
	out := make([]byte, n)
	for i := range out {
		idx, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", fmt.Errorf("cryptox: generate password: %w", err)
		}
		out[i] = charset[idx.Int64()]
	}
	return string(out), nil
}
