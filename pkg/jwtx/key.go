package jwtx

import (
	"crypto"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// SupportedAlgorithms lists every algorithm a signing key may declare.
var SupportedAlgorithms = []string{
	"RS256", "RS384", "RS512",
	"PS256", "PS384", "PS512",
	"ES256", "ES384", "ES512",
	"EdDSA",
	"HS256", "HS384", "HS512",
}

// IsSymmetric reports whether alg is an HMAC algorithm signed with a shared
// secret.
func IsSymmetric(alg string) bool {
	return strings.HasPrefix(alg, "HS")
}

// Method resolves alg to a jwt signing method.
func Method(alg string) (jwt.SigningMethod, error) {
	for _, a := range SupportedAlgorithms {
		if a == alg {
			if m := jwt.GetSigningMethod(alg); m != nil {
				return m, nil
			}
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedAlg, alg)
}

// ParsePrivateKey decodes a PEM private key for an asymmetric alg.
func ParsePrivateKey(alg string, pemBytes []byte) (crypto.Signer, error) {
	var (
		key any
		err error
	)
	switch {
	case strings.HasPrefix(alg, "RS"), strings.HasPrefix(alg, "PS"):
		key, err = jwt.ParseRSAPrivateKeyFromPEM(pemBytes)
	case strings.HasPrefix(alg, "ES"):
		key, err = jwt.ParseECPrivateKeyFromPEM(pemBytes)
	case alg == "EdDSA":
		key, err = jwt.ParseEdPrivateKeyFromPEM(pemBytes)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAlg, alg)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyMaterial, err)
	}

	signer, ok := key.(crypto.Signer)
	if !ok {
		return nil, ErrKeyMaterial
	}
	return signer, nil
}

// ParsePublicKey decodes a PEM public key for an asymmetric alg.
func ParsePublicKey(alg string, pemBytes []byte) (crypto.PublicKey, error) {
	var (
		key any
		err error
	)
	switch {
	case strings.HasPrefix(alg, "RS"), strings.HasPrefix(alg, "PS"):
		key, err = jwt.ParseRSAPublicKeyFromPEM(pemBytes)
	case strings.HasPrefix(alg, "ES"):
		key, err = jwt.ParseECPublicKeyFromPEM(pemBytes)
	case alg == "EdDSA":
		key, err = jwt.ParseEdPublicKeyFromPEM(pemBytes)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAlg, alg)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyMaterial, err)
	}
	return key, nil
}

// Material is the raw key material of one signing key. Exactly one of
// PrivateKey and Secret is set.
type Material struct {
	Alg        string
	KID        string
	PrivateKey []byte // PEM
	PublicKey  []byte // PEM, optional, derived from PrivateKey when empty
	Secret     []byte
}

// verificationKey returns the key that checks signatures made with m.
// Symmetric keys have no public half and return the secret.
func (m Material) verificationKey() (any, error) {
	if IsSymmetric(m.Alg) {
		if len(m.Secret) == 0 {
			return nil, fmt.Errorf("%w: %s requires a secret", ErrKeyMaterial, m.Alg)
		}
		return m.Secret, nil
	}
	if len(m.PublicKey) > 0 {
		return ParsePublicKey(m.Alg, m.PublicKey)
	}
	if len(m.PrivateKey) == 0 {
		return nil, fmt.Errorf("%w: %s requires a private or public key", ErrKeyMaterial, m.Alg)
	}
	priv, err := ParsePrivateKey(m.Alg, m.PrivateKey)
	if err != nil {
		return nil, err
	}
	return priv.Public(), nil
}
