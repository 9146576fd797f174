package jwtx

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// VerifyOptions captures the expectations a token must meet beyond a valid
// signature.
type VerifyOptions struct {
	// Issuer the token must carry. Empty skips the check.
	Issuer string

	// Audience lists acceptable aud values. Empty skips the check.
	Audience []string

	// Leeway tolerates clock skew on exp and nbf.
	Leeway time.Duration

	// RequireKID rejects tokens whose kid header does not match the key.
	RequireKID bool

	// Now overrides the clock, mostly for tests.
	Now func() time.Time
}

// Verifier checks tokens signed by one key.
type Verifier struct {
	method jwt.SigningMethod
	kid    string
	key    any
}

// NewVerifier builds a Verifier from key material. For asymmetric keys the
// public half is used, derived from the private key when no public PEM is
// stored.
func NewVerifier(m Material) (*Verifier, error) {
	method, err := Method(m.Alg)
	if err != nil {
		return nil, err
	}
	key, err := m.verificationKey()
	if err != nil {
		return nil, err
	}
	return &Verifier{method: method, kid: m.KID, key: key}, nil
}

func (v *Verifier) Alg() string { return v.method.Alg() }
func (v *Verifier) KID() string { return v.kid }

// Verify parses token, checks its signature and time window, and returns
// its claims. A token whose exp is at or before now is expired.
func (v *Verifier) Verify(token string, opts VerifyOptions) (*Claims, error) {
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}

	parserOpts := []jwt.ParserOption{
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(now),
		jwt.WithLeeway(opts.Leeway),
	}
	if opts.Issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(opts.Issuer))
	}

	claims := &Claims{}
	_, err := jwt.NewParser(parserOpts...).ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != v.method.Alg() {
			return nil, ErrAlgMismatch
		}
		if opts.RequireKID {
			if kid, _ := t.Header["kid"].(string); kid != v.kid {
				return nil, ErrUnknownKID
			}
		}
		return v.key, nil
	})
	if err != nil {
		return nil, mapParseError(err)
	}

	if claims.ExpiresAt != nil && !now().Before(claims.ExpiresAt.Add(opts.Leeway)) {
		return nil, ErrExpired
	}
	if err := claims.validateAudience(opts.Audience); err != nil {
		return nil, err
	}
	return claims, nil
}

func (c *Claims) validateAudience(expected []string) error {
	if len(expected) == 0 {
		return nil
	}
	for _, want := range expected {
		for _, got := range c.Audience {
			if got == want {
				return nil
			}
		}
	}
	return ErrAudience
}

// Unverified decodes the claims of token without checking the signature.
// Callers use it to learn which key to verify with, never to trust content.
func Unverified(token string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, ErrMalformed
	}
	return claims, nil
}
