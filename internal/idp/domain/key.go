package domain

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/aussiebroadwan/idp/pkg/jwtx"
)

// Key is a named signing key. Exactly one of PrivateKey and Secret is set:
// asymmetric algorithms sign with PrivateKey, HMAC algorithms with Secret.
type Key struct {
	ID         string
	Kid        string
	Algorithm  string
	PrivateKey string
	PublicKey  string
	Secret     string
	CreatedAt  time.Time
}

func (k *Key) Symmetric() bool { return jwtx.IsSymmetric(k.Algorithm) }

// Material converts k into signing material. Callers unseal stored values
// first.
func (k *Key) Material() jwtx.Material {
	return jwtx.Material{
		Alg:        k.Algorithm,
		KID:        k.Kid,
		PrivateKey: []byte(k.PrivateKey),
		PublicKey:  []byte(k.PublicKey),
		Secret:     []byte(k.Secret),
	}
}

// Validate checks the key before it is written.
func (k *Key) Validate() error {
	if k.ID == "" {
		return fmt.Errorf("%w: key requires an id", ErrInvalid)
	}
	if !slices.Contains(jwtx.SupportedAlgorithms, k.Algorithm) {
		return fmt.Errorf("%w: key %s has unsupported algorithm %q", ErrInvalid, k.ID, k.Algorithm)
	}

	hasPrivate := strings.TrimSpace(k.PrivateKey) != ""
	hasSecret := strings.TrimSpace(k.Secret) != ""
	switch {
	case hasPrivate == hasSecret:
		return fmt.Errorf("%w: key %s must have exactly one of privateKey or secret", ErrInvalid, k.ID)
	case k.Symmetric() && !hasSecret:
		return fmt.Errorf("%w: key %s uses %s and needs a secret", ErrInvalid, k.ID, k.Algorithm)
	case !k.Symmetric() && !hasPrivate:
		return fmt.Errorf("%w: key %s uses %s and needs a private key", ErrInvalid, k.ID, k.Algorithm)
	}
	return nil
}
