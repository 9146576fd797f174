// Package seed provisions tenants, keys, applications, users, groups, roles
// and API keys from a YAML document.
package seed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aussiebroadwan/idp/internal/idp/domain"
	"github.com/aussiebroadwan/idp/internal/idp/store"
	"github.com/aussiebroadwan/idp/pkg/cryptox"
	"github.com/aussiebroadwan/idp/pkg/slogx"
)

// Seeder applies documents to a store. Sealer may be nil, in which case key
// material is stored in clear text.
type Seeder struct {
	Store  store.Store
	Hasher *cryptox.Hasher
	Sealer *cryptox.Sealer
}

// Summary counts what one apply wrote.
type Summary struct {
	Keys          int
	KeysGenerated int
	Tenants       int
	Applications  int
	Users         int
	Registrations int
	Roles         int
	Groups        int
	APIKeys       int
}

// Apply writes doc in a single transaction. Nothing is written when any
// entity is invalid.
func (s *Seeder) Apply(ctx context.Context, doc *Document) (Summary, error) {
	l := slogx.FromContext(ctx)

	var sum Summary
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		sum = Summary{}
		steps := []func(context.Context, store.Tx, *Document, *Summary) error{
			s.applyKeys,
			s.applyTenants,
			s.applyApplications,
			s.applyUsers,
			s.applyRoles,
			s.applyGroups,
			s.applyAPIKeys,
		}
		for _, step := range steps {
			if err := step(ctx, tx, doc, &sum); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Summary{}, err
	}

	l.Info("seed applied",
		slog.Int("keys", sum.Keys),
		slog.Int("keys_generated", sum.KeysGenerated),
		slog.Int("tenants", sum.Tenants),
		slog.Int("applications", sum.Applications),
		slog.Int("users", sum.Users),
		slog.Int("registrations", sum.Registrations),
		slog.Int("roles", sum.Roles),
		slog.Int("groups", sum.Groups),
		slog.Int("api_keys", sum.APIKeys),
	)
	return sum, nil
}

func (s *Seeder) applyKeys(ctx context.Context, tx store.Tx, doc *Document, sum *Summary) error {
	for _, k := range doc.Keys {
		key := domain.Key{
			ID:         k.ID,
			Kid:        k.Kid,
			Algorithm:  k.Algorithm,
			PrivateKey: k.PrivateKey,
			PublicKey:  k.PublicKey,
			Secret:     k.Secret,
		}

		if k.Generate && k.PrivateKey == "" && k.Secret == "" {
			_, err := tx.Keys().GetKeyByID(ctx, k.ID)
			if err == nil {
				continue
			}
			if !errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("seed: lookup key %s: %w", k.ID, err)
			}

			pair, err := cryptox.GenerateKey(k.Algorithm)
			if err != nil {
				return fmt.Errorf("seed: generate key %s: %w", k.ID, err)
			}
			key.PrivateKey = string(pair.PrivateKey)
			key.PublicKey = string(pair.PublicKey)
			key.Secret = string(pair.Secret)
			sum.KeysGenerated++
		}

		if err := key.Validate(); err != nil {
			return fmt.Errorf("seed: %w", err)
		}
		if err := s.sealKey(&key); err != nil {
			return fmt.Errorf("seed: seal key %s: %w", k.ID, err)
		}
		if err := tx.Keys().UpsertKey(ctx, key); err != nil {
			return fmt.Errorf("seed: write key %s: %w", k.ID, err)
		}
		sum.Keys++
	}
	return nil
}

func (s *Seeder) sealKey(k *domain.Key) error {
	for _, field := range []*string{&k.PrivateKey, &k.Secret} {
		if strings.HasPrefix(*field, cryptox.SealedPrefix) {
			continue
		}
		sealed, err := s.Sealer.Seal([]byte(*field))
		if err != nil {
			return err
		}
		*field = sealed
	}
	return nil
}

func (s *Seeder) applyTenants(ctx context.Context, tx store.Tx, doc *Document, sum *Summary) error {
	for _, t := range doc.Tenants {
		if t.ID == "" {
			return fmt.Errorf("seed: %w: tenant requires an id", domain.ErrInvalid)
		}
		name := t.Name
		if name == "" {
			name = t.ID
		}
		err := tx.Tenants().UpsertTenant(ctx, domain.Tenant{
			ID:               t.ID,
			Name:             name,
			AccessTokenKeyID: t.AccessTokenKeyID,
			IDTokenKeyID:     t.IDTokenKeyID,
			Config: domain.TenantConfiguration{
				AccessTokenTTLSeconds:  t.Lifetimes.AccessToken,
				RefreshTokenTTLSeconds: t.Lifetimes.RefreshToken,
				IDTokenTTLSeconds:      t.Lifetimes.IDToken,
			},
		})
		if err != nil {
			return fmt.Errorf("seed: write tenant %s: %w", t.ID, err)
		}
		sum.Tenants++
	}
	return nil
}

func (s *Seeder) applyApplications(ctx context.Context, tx store.Tx, doc *Document, sum *Summary) error {
	for _, a := range doc.Applications {
		if err := s.ensureTenant(ctx, tx, a, sum); err != nil {
			return err
		}

		secretHash, err := s.hashSecret(a.OAuth.ClientSecret, a.OAuth.ClientSecretHash)
		if err != nil {
			return fmt.Errorf("seed: client secret of application %s: %w", a.ID, err)
		}

		app := domain.Application{
			ID:               a.ID,
			TenantID:         a.TenantID,
			Name:             a.Name,
			Active:           a.Active == nil || *a.Active,
			AccessTokenKeyID: a.AccessTokenKeyID,
			IDTokenKeyID:     a.IDTokenKeyID,
			Config: domain.ApplicationConfiguration{
				OAuth: domain.OAuthConfiguration{
					ClientSecretHash:       secretHash,
					AuthorizedRedirectURLs: a.OAuth.AuthorizedRedirectURLs,
					AuthorizedOriginURLs:   a.OAuth.AuthorizedOriginURLs,
					EnabledGrants:          a.OAuth.EnabledGrants,
					LogoutURL:              a.OAuth.LogoutURL,
					Scopes:                 a.OAuth.Scopes,
					RequirePKCE:            a.OAuth.RequirePKCE,
				},
				JWT: domain.JWTConfiguration{
					AccessTokenTTLSeconds:  a.Lifetimes.AccessToken,
					RefreshTokenTTLSeconds: a.Lifetimes.RefreshToken,
					IDTokenTTLSeconds:      a.Lifetimes.IDToken,
				},
			},
		}
		if err := tx.Applications().UpsertApplication(ctx, app); err != nil {
			return fmt.Errorf("seed: write application %s: %w", a.ID, err)
		}
		sum.Applications++
	}
	return nil
}

// ensureTenant creates the tenant an application names when neither the
// document nor the store has it, using the application's keys as the
// tenant defaults.
func (s *Seeder) ensureTenant(ctx context.Context, tx store.Tx, a Application, sum *Summary) error {
	if a.TenantID == "" {
		return fmt.Errorf("seed: %w: application %s requires a tenantId", domain.ErrInvalid, a.ID)
	}

	_, err := tx.Tenants().GetTenantByID(ctx, a.TenantID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("seed: lookup tenant %s: %w", a.TenantID, err)
	}
	if a.AccessTokenKeyID == "" && a.IDTokenKeyID == "" {
		return fmt.Errorf("seed: %w: application %s names unknown tenant %s and declares no keys",
			domain.ErrInvalid, a.ID, a.TenantID)
	}

	err = tx.Tenants().UpsertTenant(ctx, domain.Tenant{
		ID:               a.TenantID,
		Name:             a.TenantID,
		AccessTokenKeyID: a.AccessTokenKeyID,
		IDTokenKeyID:     a.IDTokenKeyID,
	})
	if err != nil {
		return fmt.Errorf("seed: create tenant %s: %w", a.TenantID, err)
	}
	sum.Tenants++
	return nil
}

func (s *Seeder) applyUsers(ctx context.Context, tx store.Tx, doc *Document, sum *Summary) error {
	for _, u := range doc.Users {
		if u.ID == "" || u.Email == "" {
			return fmt.Errorf("seed: %w: user requires id and email", domain.ErrInvalid)
		}

		var data json.RawMessage
		if len(u.Data) > 0 {
			b, err := json.Marshal(u.Data)
			if err != nil {
				return fmt.Errorf("seed: encode data of user %s: %w", u.ID, err)
			}
			data = b
		}

		err := tx.Users().UpsertUser(ctx, domain.User{
			ID:       u.ID,
			Email:    u.Email,
			Username: u.Username,
			TenantID: u.TenantID,
			Active:   u.Active == nil || *u.Active,
			Data:     data,
		})
		if err != nil {
			return fmt.Errorf("seed: write user %s: %w", u.ID, err)
		}
		sum.Users++

		for _, r := range u.Registrations {
			if err := s.applyRegistration(ctx, tx, u.ID, r); err != nil {
				return err
			}
			sum.Registrations++
		}
	}
	return nil
}

// hashSecret returns hash when set, otherwise the hash of plain. An empty
// plain value yields an empty hash.
func (s *Seeder) hashSecret(plain, hash string) (string, error) {
	if hash != "" || plain == "" {
		return hash, nil
	}
	if s.Hasher == nil {
		return "", errors.New("a plain secret needs a hasher")
	}
	return s.Hasher.Hash(plain)
}

func (s *Seeder) applyRegistration(ctx context.Context, tx store.Tx, userID string, r Registration) error {
	hash, err := s.hashSecret(r.Password, r.PasswordHash)
	if err != nil {
		return fmt.Errorf("seed: password of user %s: %w", userID, err)
	}

	existing, err := tx.Registrations().GetRegistration(ctx, userID, r.ApplicationID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		existing = domain.UserRegistration{UserID: userID, ApplicationID: r.ApplicationID}
	case err != nil:
		return fmt.Errorf("seed: lookup registration of user %s: %w", userID, err)
	}
	existing.PasswordHash = hash

	if err := tx.Registrations().UpsertRegistration(ctx, existing); err != nil {
		return fmt.Errorf("seed: write registration of user %s for %s: %w", userID, r.ApplicationID, err)
	}
	return nil
}

func (s *Seeder) applyRoles(ctx context.Context, tx store.Tx, doc *Document, sum *Summary) error {
	for _, r := range doc.Roles {
		if r.ID == "" || r.ApplicationID == "" || r.Name == "" {
			return fmt.Errorf("seed: %w: role requires id, applicationId and name", domain.ErrInvalid)
		}
		err := tx.Roles().UpsertRole(ctx, domain.ApplicationRole{
			ID:            r.ID,
			ApplicationID: r.ApplicationID,
			Name:          r.Name,
			IsDefault:     r.IsDefault,
			Description:   r.Description,
		})
		if err != nil {
			return fmt.Errorf("seed: write role %s: %w", r.ID, err)
		}
		sum.Roles++
	}
	return nil
}

func (s *Seeder) applyGroups(ctx context.Context, tx store.Tx, doc *Document, sum *Summary) error {
	for _, g := range doc.Groups {
		if g.ID == "" || g.TenantID == "" {
			return fmt.Errorf("seed: %w: group requires id and tenantId", domain.ErrInvalid)
		}
		name := g.Name
		if name == "" {
			name = g.ID
		}
		if err := tx.Groups().UpsertGroup(ctx, domain.Group{ID: g.ID, TenantID: g.TenantID, Name: name}); err != nil {
			return fmt.Errorf("seed: write group %s: %w", g.ID, err)
		}
		for _, userID := range g.Members {
			if err := tx.Groups().AddMember(ctx, domain.GroupMember{GroupID: g.ID, UserID: userID}); err != nil {
				return fmt.Errorf("seed: add %s to group %s: %w", userID, g.ID, err)
			}
		}
		for _, roleID := range g.Roles {
			err := tx.Roles().LinkGroup(ctx, domain.GroupApplicationRole{GroupID: g.ID, ApplicationRoleID: roleID})
			if err != nil {
				return fmt.Errorf("seed: link role %s to group %s: %w", roleID, g.ID, err)
			}
		}
		sum.Groups++
	}
	return nil
}

func (s *Seeder) applyAPIKeys(ctx context.Context, tx store.Tx, doc *Document, sum *Summary) error {
	for _, k := range doc.APIKeys {
		if k.ID == "" || k.Key == "" {
			return fmt.Errorf("seed: %w: api key requires id and key", domain.ErrInvalid)
		}

		key := domain.AuthenticationKey{
			ID:          k.ID,
			KeyHash:     cryptox.FingerprintToken(k.Key),
			Description: k.Description,
		}
		if k.TenantID != "" {
			tenantID := k.TenantID
			key.TenantID = &tenantID
		}
		if k.Endpoints != nil {
			key.Permissions.Endpoints = make([]domain.EndpointPermission, 0, len(k.Endpoints))
			for _, e := range k.Endpoints {
				key.Permissions.Endpoints = append(key.Permissions.Endpoints, domain.EndpointPermission{
					URL:     e.URL,
					Methods: e.Methods,
				})
			}
		}

		if err := tx.APIKeys().UpsertAPIKey(ctx, key); err != nil {
			return fmt.Errorf("seed: write api key %s: %w", k.ID, err)
		}
		sum.APIKeys++
	}
	return nil
}
