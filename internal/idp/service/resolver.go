package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/aussiebroadwan/idp/internal/idp/cache"
	"github.com/aussiebroadwan/idp/internal/idp/domain"
	"github.com/aussiebroadwan/idp/internal/idp/metrics"
	"github.com/aussiebroadwan/idp/internal/idp/store"
	"github.com/aussiebroadwan/idp/pkg/cryptox"
	"github.com/aussiebroadwan/idp/pkg/slogx"
)

// DefaultResolverTTL bounds how long resolved signing keys stay cached.
const DefaultResolverTTL = 5 * time.Minute

const resolverCachePrefix = "keys:"

// ResolvedKeys is everything needed to mint tokens for one application.
// AccessKey and IDKey carry opened key material.
type ResolvedKeys struct {
	Application domain.Application
	Tenant      domain.Tenant
	AccessKey   domain.Key
	IDKey       domain.Key
}

// keyRecord is the cached form. Only key material is cached; it stays
// sealed in the cache and is opened on every read.
type keyRecord struct {
	TenantID  string     `json:"tenantId"`
	AccessKey domain.Key `json:"accessKey"`
	IDKey     domain.Key `json:"idKey"`
}

// matches reports whether rec still holds the keys the application and
// tenant point at.
func (rec *keyRecord) matches(tenantID, accessID, idID string) bool {
	return rec.TenantID == tenantID && rec.AccessKey.ID == accessID && rec.IDKey.ID == idID
}

// KeyResolver maps an application id to its application, tenant and signing
// keys. The application and tenant are read from the store on every call;
// only the signing keys are cached. Cache, Sealer and Metrics are optional.
type KeyResolver struct {
	Store   store.Store
	Sealer  *cryptox.Sealer
	Cache   cache.Cache
	TTL     time.Duration
	Metrics *metrics.Metrics

	group singleflight.Group
}

// Resolve returns the keys of applicationID. Unknown applications return
// ErrApplicationNotFound. The caller decides what an inactive application
// may do.
func (r *KeyResolver) Resolve(ctx context.Context, applicationID string) (*ResolvedKeys, error) {
	if applicationID == "" {
		return nil, invalid(ErrInvalidRequest, "client_id is required")
	}

	app, err := r.Store.Applications().GetApplicationByID(ctx, applicationID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrApplicationNotFound, applicationID)
	}
	if err != nil {
		return nil, fmt.Errorf("load application: %w", err)
	}

	tenant, err := r.Store.Tenants().GetTenantByID(ctx, app.TenantID)
	if err != nil {
		return nil, fmt.Errorf("load tenant %s: %w", app.TenantID, err)
	}

	accessID := firstNonEmpty(app.AccessTokenKeyID, tenant.AccessTokenKeyID)
	if accessID == "" {
		return nil, fmt.Errorf("%w: application %s", ErrKeyNotConfig, app.ID)
	}
	idID := firstNonEmpty(app.IDTokenKeyID, tenant.IDTokenKeyID, accessID)

	rec, err := r.record(ctx, app.ID, tenant.ID, accessID, idID)
	if err != nil {
		return nil, err
	}

	access, err := openKey(r.Sealer, rec.AccessKey)
	if err != nil {
		return nil, err
	}
	id, err := openKey(r.Sealer, rec.IDKey)
	if err != nil {
		return nil, err
	}
	return &ResolvedKeys{Application: app, Tenant: tenant, AccessKey: access, IDKey: id}, nil
}

// Invalidate drops the cached keys of applicationID so the next Resolve
// reads them from the store. Used after key rotation.
func (r *KeyResolver) Invalidate(ctx context.Context, applicationID string) error {
	if r.Cache == nil {
		return nil
	}
	return r.Cache.Delete(ctx, resolverCachePrefix+applicationID)
}

func (r *KeyResolver) record(ctx context.Context, applicationID, tenantID, accessID, idID string) (*keyRecord, error) {
	key := resolverCachePrefix + applicationID

	if r.Cache != nil {
		raw, ok, err := r.Cache.Get(ctx, key)
		switch {
		case err != nil:
			slogx.FromContext(ctx).Warn("key cache read failed", "application_id", applicationID, "err", err)
		case ok:
			var rec keyRecord
			if err := json.Unmarshal(raw, &rec); err == nil && rec.matches(tenantID, accessID, idID) {
				r.Metrics.ResolverCache(true)
				return &rec, nil
			}
			_ = r.Cache.Delete(ctx, key)
		}
		r.Metrics.ResolverCache(false)
	}

	v, err, _ := r.group.Do(applicationID+"|"+accessID+"|"+idID, func() (any, error) {
		rec, err := r.loadKeys(ctx, tenantID, accessID, idID)
		if err != nil {
			return nil, err
		}
		if r.Cache != nil {
			if raw, err := json.Marshal(rec); err == nil {
				if err := r.Cache.Set(ctx, key, raw, r.ttl()); err != nil {
					slogx.FromContext(ctx).Warn("key cache write failed", "application_id", applicationID, "err", err)
				}
			}
		}
		return rec, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*keyRecord), nil
}

func (r *KeyResolver) loadKeys(ctx context.Context, tenantID, accessID, idID string) (*keyRecord, error) {
	accessKey, err := r.Store.Keys().GetKeyByID(ctx, accessID)
	if err != nil {
		return nil, fmt.Errorf("load access token key %s: %w", accessID, err)
	}
	idKey := accessKey
	if idID != accessID {
		if idKey, err = r.Store.Keys().GetKeyByID(ctx, idID); err != nil {
			return nil, fmt.Errorf("load id token key %s: %w", idID, err)
		}
	}
	return &keyRecord{TenantID: tenantID, AccessKey: accessKey, IDKey: idKey}, nil
}

func (r *KeyResolver) ttl() time.Duration {
	if r.TTL > 0 {
		return r.TTL
	}
	return DefaultResolverTTL
}

// openKey returns k with its private key and secret unsealed. Values that
// were never sealed pass through.
func openKey(s *cryptox.Sealer, k domain.Key) (domain.Key, error) {
	priv, err := s.Open(k.PrivateKey)
	if err != nil {
		return domain.Key{}, fmt.Errorf("open private key of %s: %w", k.ID, err)
	}
	secret, err := s.Open(k.Secret)
	if err != nil {
		return domain.Key{}, fmt.Errorf("open secret of %s: %w", k.ID, err)
	}
	k.PrivateKey = string(priv)
	k.Secret = string(secret)
	return k, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
