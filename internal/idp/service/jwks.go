package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/aussiebroadwan/idp/internal/idp/domain"
	"github.com/aussiebroadwan/idp/internal/idp/store"
	"github.com/aussiebroadwan/idp/pkg/cryptox"
	"github.com/aussiebroadwan/idp/pkg/jwtx"
	"github.com/aussiebroadwan/idp/pkg/slogx"
)

// JWKSService publishes the public halves of asymmetric signing keys.
// HMAC keys are never published.
type JWKSService struct {
	Store  store.Store
	Sealer *cryptox.Sealer
}

// Global returns every asymmetric key.
func (s *JWKSService) Global(ctx context.Context) (jwtx.JWKS, error) {
	keys, err := s.Store.Keys().ListKeys(ctx)
	if err != nil {
		return jwtx.JWKS{}, fmt.Errorf("list keys: %w", err)
	}
	return s.publish(ctx, keys), nil
}

// ForTenant returns the keys a tenant's tokens may be signed with: the
// tenant defaults and the keys its applications override them with.
func (s *JWKSService) ForTenant(ctx context.Context, tenantID string) (jwtx.JWKS, error) {
	tenant, err := s.Store.Tenants().GetTenantByID(ctx, tenantID)
	if errors.Is(err, store.ErrNotFound) {
		return jwtx.JWKS{}, fmt.Errorf("%w: %s", ErrTenantNotFound, tenantID)
	}
	if err != nil {
		return jwtx.JWKS{}, fmt.Errorf("load tenant: %w", err)
	}

	apps, err := s.Store.Applications().ListApplicationsByTenant(ctx, tenant.ID)
	if err != nil {
		return jwtx.JWKS{}, fmt.Errorf("list applications: %w", err)
	}

	ids := []string{tenant.AccessTokenKeyID, tenant.IDTokenKeyID}
	for _, app := range apps {
		ids = append(ids, app.AccessTokenKeyID, app.IDTokenKeyID)
	}

	var keys []domain.Key
	for _, id := range dedupe(ids) {
		if id == "" {
			continue
		}
		k, err := s.Store.Keys().GetKeyByID(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return jwtx.JWKS{}, fmt.Errorf("load key %s: %w", id, err)
		}
		keys = append(keys, k)
	}
	return s.publish(ctx, keys), nil
}

// publish converts keys to JWKs. A key that cannot be converted is logged
// and left out rather than failing the whole set.
func (s *JWKSService) publish(ctx context.Context, keys []domain.Key) jwtx.JWKS {
	set := jwtx.JWKS{Keys: []jwtx.JWK{}}
	for _, k := range keys {
		if k.Symmetric() {
			continue
		}
		if k.PublicKey == "" {
			opened, err := openKey(s.Sealer, k)
			if err != nil {
				slogx.FromContext(ctx).Warn("cannot open key for jwks", "key_id", k.ID, "err", err)
				continue
			}
			k = opened
		}
		jwk, err := jwtx.PublicJWK(k.Material())
		if err != nil {
			slogx.FromContext(ctx).Warn("cannot publish key", "key_id", k.ID, "err", err)
			continue
		}
		set.Keys = append(set.Keys, jwk)
	}
	return set
}
