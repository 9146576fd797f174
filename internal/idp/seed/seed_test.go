package seed

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/idp/internal/idp/store"
	"github.com/aussiebroadwan/idp/internal/idp/store/drivers/sqldb"
	"github.com/aussiebroadwan/idp/internal/idp/store/drivers/sqlite"
	"github.com/aussiebroadwan/idp/pkg/cryptox"
)

const testDocument = `
keys:
  - id: signing
    algorithm: EdDSA
    generate: true
  - id: hmac
    kid: hmac-kid
    algorithm: HS256
    secret: super-secret-value
applications:
  - id: app-1
    tenantId: tenant-auto
    name: Portal
    accessTokenKeyId: signing
    idTokenKeyId: hmac
    oauth:
      clientSecret: portal-secret
      authorizedRedirectURLs: [https://portal.example.com/cb]
      enabledGrants: [authorization_code, password, refresh_token]
    lifetimes:
      accessToken: 300
users:
  - id: user-1
    email: Bob@Example.com
    username: bob
    tenantId: tenant-auto
    data:
      plan: gold
    registrations:
      - applicationId: app-1
        password: hunter22
roles:
  - id: role-viewer
    applicationId: app-1
    name: viewer
    isDefault: true
  - id: role-admin
    applicationId: app-1
    name: admin
groups:
  - id: admins
    tenantId: tenant-auto
    members: [user-1]
    roles: [role-admin]
apiKeys:
  - id: ops
    key: ops-secret
    description: operations
  - id: locked
    key: locked-secret
    tenantId: tenant-auto
    endpoints: []
`

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	s, err := sqlite.NewStore(filepath.Join(t.TempDir(), "seed.db"), sqldb.PoolConfig{})
	require.NoError(t, err)
	require.NoError(t, s.ApplyMigrations())
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newSeeder(t *testing.T, s store.Store, sealer *cryptox.Sealer) *Seeder {
	t.Helper()
	h := cryptox.NewHasher([]byte("pepper"))
	h.Params.Memory = 1024
	h.Params.Iterations = 1
	return &Seeder{Store: s, Hasher: h, Sealer: sealer}
}

func TestApply(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seeder := newSeeder(t, s, nil)

	doc, err := Parse(strings.NewReader(testDocument))
	require.NoError(t, err)

	sum, err := seeder.Apply(ctx, doc)
	require.NoError(t, err)
	require.Equal(t, 2, sum.Keys)
	require.Equal(t, 1, sum.KeysGenerated)
	require.Equal(t, 1, sum.Tenants, "tenant is created on demand")
	require.Equal(t, 1, sum.Registrations)

	tenant, err := s.Tenants().GetTenantByID(ctx, "tenant-auto")
	require.NoError(t, err)
	require.Equal(t, "signing", tenant.AccessTokenKeyID)
	require.Equal(t, "hmac", tenant.IDTokenKeyID)

	app, err := s.Applications().GetApplicationByID(ctx, "app-1")
	require.NoError(t, err)
	require.True(t, app.Active)
	require.Equal(t, 300, app.Config.JWT.AccessTokenTTLSeconds)
	require.NotEqual(t, "portal-secret", app.Config.OAuth.ClientSecretHash, "client secret is not stored in clear")
	require.True(t, seeder.Hasher.Compare("portal-secret", app.Config.OAuth.ClientSecretHash))

	user, err := s.Users().GetUserByLoginID(ctx, "bob@example.com")
	require.NoError(t, err)
	require.JSONEq(t, `{"plan":"gold"}`, string(user.Data))

	reg, err := s.Registrations().GetRegistration(ctx, "user-1", "app-1")
	require.NoError(t, err)
	require.True(t, seeder.Hasher.Compare("hunter22", reg.PasswordHash))

	roleIDs, err := s.Roles().ListRoleIDsByGroup(ctx, "admins")
	require.NoError(t, err)
	require.Equal(t, []string{"role-admin"}, roleIDs)

	ops, err := s.APIKeys().GetAPIKeyByHash(ctx, cryptox.FingerprintToken("ops-secret"))
	require.NoError(t, err)
	require.Nil(t, ops.Permissions.Endpoints)

	locked, err := s.APIKeys().GetAPIKeyByHash(ctx, cryptox.FingerprintToken("locked-secret"))
	require.NoError(t, err)
	require.NotNil(t, locked.Permissions.Endpoints)
	require.Empty(t, locked.Permissions.Endpoints)
}

func TestApplyIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seeder := newSeeder(t, s, nil)

	doc, err := Parse(strings.NewReader(testDocument))
	require.NoError(t, err)

	_, err = seeder.Apply(ctx, doc)
	require.NoError(t, err)
	first, err := s.Keys().GetKeyByID(ctx, "signing")
	require.NoError(t, err)

	sum, err := seeder.Apply(ctx, doc)
	require.NoError(t, err)
	require.Zero(t, sum.KeysGenerated)
	require.Zero(t, sum.Tenants)

	second, err := s.Keys().GetKeyByID(ctx, "signing")
	require.NoError(t, err)
	require.Equal(t, first.PublicKey, second.PublicKey, "generated keys survive re-seeding")

	members, err := s.Groups().ListMembershipsByUser(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, members, 1)

	keys, err := s.Keys().ListKeys(ctx)
	require.NoError(t, err)
	require.Len(t, keys, 2)
}

func TestApplySealsKeyMaterial(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	sealer, err := cryptox.NewSealer([]byte("master"))
	require.NoError(t, err)
	seeder := newSeeder(t, s, sealer)

	doc, err := Parse(strings.NewReader(testDocument))
	require.NoError(t, err)
	_, err = seeder.Apply(ctx, doc)
	require.NoError(t, err)

	k, err := s.Keys().GetKeyByID(ctx, "hmac")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(k.Secret, cryptox.SealedPrefix))

	plain, err := sealer.Open(k.Secret)
	require.NoError(t, err)
	require.Equal(t, "super-secret-value", string(plain))

	k, err = s.Keys().GetKeyByID(ctx, "signing")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(k.PrivateKey, cryptox.SealedPrefix))
	require.Contains(t, k.PublicKey, "BEGIN PUBLIC KEY")
}

func TestApplyRollsBackOnInvalidEntity(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seeder := newSeeder(t, s, nil)

	doc, err := Parse(strings.NewReader(`
keys:
  - id: hmac
    algorithm: HS256
    secret: value
applications:
  - id: orphan
    tenantId: missing
    name: Orphan
`))
	require.NoError(t, err)

	_, err = seeder.Apply(ctx, doc)
	require.Error(t, err)

	_, err = s.Keys().GetKeyByID(ctx, "hmac")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestParseRejectsUnknownFields(t *testing.T) {
	_, err := Parse(strings.NewReader("tenants:\n  - id: t\n    nmae: typo\n"))
	require.ErrorIs(t, err, ErrInvalidYAML)
}

func TestLoadFile(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorIs(t, err, ErrFileNotFound)

	empty := filepath.Join(t.TempDir(), "empty.yaml")
	require.NoError(t, os.WriteFile(empty, []byte("\n"), 0o600))
	_, err = LoadFile(empty)
	require.ErrorIs(t, err, ErrEmptyFile)

	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testDocument), 0o600))
	doc, err := LoadFile(path)
	require.NoError(t, err)
	require.Len(t, doc.Users, 1)
}
