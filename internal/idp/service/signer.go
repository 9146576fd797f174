package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/aussiebroadwan/idp/internal/idp/domain"
	"github.com/aussiebroadwan/idp/internal/idp/store"
	"github.com/aussiebroadwan/idp/pkg/cryptox"
	"github.com/aussiebroadwan/idp/pkg/jwtx"
	"github.com/aussiebroadwan/idp/pkg/slogx"
)

// TokenKind selects the key a token is signed with.
type TokenKind string

const (
	KindAccess  TokenKind = jwtx.UseAccess
	KindID      TokenKind = jwtx.UseID
	KindRefresh TokenKind = jwtx.UseRefresh
)

// Validity is the result of checking a token. Claims is nil when the token
// is not active.
type Validity struct {
	Active bool
	Claims *jwtx.Claims
}

// Map renders v as an introspection body: {active, ...claims}.
func (v Validity) Map() map[string]any {
	if !v.Active || v.Claims == nil {
		return map[string]any{"active": false}
	}
	m := v.Claims.Map()
	m["active"] = true
	return m
}

// TokenSigner signs and checks tokens with application keys.
type TokenSigner struct {
	Resolver *KeyResolver
	Store    store.Store
	Issuer   string
	Now      func() time.Time
}

func (s *TokenSigner) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Sign signs claims with key. The header carries the key's kid.
func (s *TokenSigner) Sign(claims *jwtx.Claims, key domain.Key) (string, error) {
	signer, err := jwtx.NewSigner(key.Material())
	if err != nil {
		return "", fmt.Errorf("%w: key %s: %v", ErrSigning, key.ID, err)
	}
	token, err := signer.Sign(claims)
	if err != nil {
		return "", fmt.Errorf("%w: key %s: %v", ErrSigning, key.ID, err)
	}
	return token, nil
}

// CreateToken resolves the keys of applicationID and signs claims with the
// key kind calls for.
func (s *TokenSigner) CreateToken(ctx context.Context, claims *jwtx.Claims, applicationID string, kind TokenKind) (string, error) {
	keys, err := s.Resolver.Resolve(ctx, applicationID)
	if err != nil {
		return "", err
	}
	return s.SignFor(keys, claims, kind)
}

// SignFor signs claims with the key of keys that kind calls for.
func (s *TokenSigner) SignFor(keys *ResolvedKeys, claims *jwtx.Claims, kind TokenKind) (string, error) {
	return s.Sign(claims, keys.keyFor(kind))
}

// keyFor maps a token kind to its key: id tokens use the id key, access and
// refresh tokens the access key.
func (k *ResolvedKeys) keyFor(kind TokenKind) domain.Key {
	if kind == KindID {
		return k.IDKey
	}
	return k.AccessKey
}

// CheckValidity reports whether token is an active token of kind signed by
// key. A refresh token is only active while its fingerprint is the
// persisted refresh token. Invalid tokens are inactive, never an error;
// errors are reserved for store failures.
func (s *TokenSigner) CheckValidity(ctx context.Context, token string, key domain.Key, kind TokenKind) (Validity, error) {
	if token == "" {
		return Validity{}, nil
	}
	now := s.now()

	if kind == KindRefresh {
		row, err := s.Store.RefreshTokens().GetRefreshTokenByHash(ctx, cryptox.FingerprintToken(token))
		if errors.Is(err, store.ErrNotFound) {
			return Validity{}, nil
		}
		if err != nil {
			return Validity{}, fmt.Errorf("lookup refresh token: %w", err)
		}
		if row.Expired(now) {
			return Validity{}, nil
		}
	}

	verifier, err := jwtx.NewVerifier(key.Material())
	if err != nil {
		return Validity{}, fmt.Errorf("verifier for key %s: %w", key.ID, err)
	}
	claims, err := verifier.Verify(token, jwtx.VerifyOptions{
		Issuer: s.Issuer,
		Now:    func() time.Time { return now },
	})
	if err != nil {
		slogx.FromContext(ctx).Debug("token inactive", "kind", kind, "err", err)
		return Validity{}, nil
	}
	if claims.TokenUse != "" && claims.TokenUse != string(kind) {
		return Validity{}, nil
	}
	return Validity{Active: true, Claims: claims}, nil
}

// VerifyAccessToken checks a bearer access token against the access key of
// the application in its audience.
func (s *TokenSigner) VerifyAccessToken(ctx context.Context, token string) (*jwtx.Claims, error) {
	peek, err := jwtx.Unverified(token)
	if err != nil {
		return nil, err
	}
	if len(peek.Audience) == 0 {
		return nil, jwtx.ErrAudience
	}

	keys, err := s.Resolver.Resolve(ctx, peek.Audience[0])
	if err != nil {
		return nil, err
	}
	if !keys.Application.Active {
		return nil, ErrUnauthorizedClient
	}

	v, err := s.CheckValidity(ctx, token, keys.AccessKey, KindAccess)
	if err != nil {
		return nil, err
	}
	if !v.Active || !slices.Contains(v.Claims.Audience, keys.Application.ID) {
		return nil, jwtx.ErrInvalidClaim
	}
	return v.Claims, nil
}
