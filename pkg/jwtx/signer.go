package jwtx

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Signer signs tokens with one key.
type Signer struct {
	method jwt.SigningMethod
	kid    string
	key    any
}

// NewSigner builds a Signer from key material. Asymmetric algorithms sign
// with the private key, HMAC algorithms with the secret.
func NewSigner(m Material) (*Signer, error) {
	method, err := Method(m.Alg)
	if err != nil {
		return nil, err
	}

	s := &Signer{method: method, kid: m.KID}
	if IsSymmetric(m.Alg) {
		if len(m.Secret) == 0 {
			return nil, fmt.Errorf("%w: %s requires a secret", ErrKeyMaterial, m.Alg)
		}
		s.key = m.Secret
		return s, nil
	}

	if len(m.PrivateKey) == 0 {
		return nil, fmt.Errorf("%w: %s requires a private key", ErrKeyMaterial, m.Alg)
	}
	priv, err := ParsePrivateKey(m.Alg, m.PrivateKey)
	if err != nil {
		return nil, err
	}
	s.key = priv
	return s, nil
}

func (s *Signer) Alg() string { return s.method.Alg() }
func (s *Signer) KID() string { return s.kid }

// Sign serialises claims into a compact JWS with a {typ, alg, kid} header.
func (s *Signer) Sign(claims jwt.Claims) (string, error) {
	t := jwt.NewWithClaims(s.method, claims)
	if s.kid != "" {
		t.Header["kid"] = s.kid
	}

	signed, err := t.SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("jwtx: sign: %w", err)
	}
	return signed, nil
}
