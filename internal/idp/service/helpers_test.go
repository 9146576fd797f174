package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/idp/internal/idp/domain"
	"github.com/aussiebroadwan/idp/internal/idp/store"
	"github.com/aussiebroadwan/idp/internal/idp/store/drivers/sqldb"
	"github.com/aussiebroadwan/idp/internal/idp/store/drivers/sqlite"
	"github.com/aussiebroadwan/idp/internal/idp/store/storetest"
	"github.com/aussiebroadwan/idp/pkg/cryptox"
)

const (
	testIssuer       = "https://idp.test"
	testPassword     = "hunter22"
	testClientSecret = "client-secret"
	testRedirectURI  = "https://app.example.com/callback"
)

type testEnv struct {
	Store     store.Store
	Fixture   storetest.Fixture
	Hasher    *cryptox.Hasher
	Resolver  *KeyResolver
	Signer    *TokenSigner
	Roles     *RoleResolver
	Tokens    *TokenService
	Authorize *AuthorizeService
}

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	s, err := sqlite.NewStore(filepath.Join(t.TempDir(), "idp.db"), sqldb.PoolConfig{MaxOpenConns: 4})
	require.NoError(t, err)
	require.NoError(t, s.ApplyMigrations())
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func cheapHasher() *cryptox.Hasher {
	h := cryptox.NewHasher([]byte("pepper"))
	h.Params.Memory = 1024
	h.Params.Iterations = 1
	return h
}

// newTestEnv seeds the storetest fixture, enables every grant on the
// application, sets its client secret to testClientSecret and registers the
// user with testPassword.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	s := newTestStore(t)
	f := storetest.Seed(t, s)
	h := cheapHasher()

	secretHash, err := h.Hash(testClientSecret)
	require.NoError(t, err)
	f.App.Config.OAuth.ClientSecretHash = secretHash
	f.App.Config.OAuth.EnabledGrants = append([]string(nil), domain.KnownGrants...)
	require.NoError(t, s.Applications().UpsertApplication(ctx, f.App))

	hash, err := h.Hash(testPassword)
	require.NoError(t, err)
	require.NoError(t, s.Registrations().UpsertRegistration(ctx, domain.UserRegistration{
		UserID:        f.User.ID,
		ApplicationID: f.App.ID,
		PasswordHash:  hash,
	}))

	resolver := &KeyResolver{Store: s}
	signer := &TokenSigner{Resolver: resolver, Store: s, Issuer: testIssuer}
	roles := &RoleResolver{Store: s}

	return &testEnv{
		Store:    s,
		Fixture:  f,
		Hasher:   h,
		Resolver: resolver,
		Signer:   signer,
		Roles:    roles,
		Tokens: &TokenService{
			Store:    s,
			Resolver: resolver,
			Signer:   signer,
			Roles:    roles,
			Hasher:   h,
		},
		Authorize: &AuthorizeService{Store: s, Hasher: h},
	}
}

// updateApp applies fn to the fixture application and stores it.
func (e *testEnv) updateApp(t *testing.T, fn func(a *domain.Application)) {
	t.Helper()
	fn(&e.Fixture.App)
	require.NoError(t, e.Store.Applications().UpsertApplication(context.Background(), e.Fixture.App))
	require.NoError(t, e.Resolver.Invalidate(context.Background(), e.Fixture.App.ID))
}

// login runs the authorize POST and returns the issued code.
func (e *testEnv) login(t *testing.T, req LoginRequest) string {
	t.Helper()
	if req.ClientID == "" {
		req.ClientID = e.Fixture.App.ID
	}
	if req.RedirectURI == "" {
		req.RedirectURI = testRedirectURI
	}
	if req.LoginID == "" {
		req.LoginID = e.Fixture.User.Email
	}
	if req.Password == "" {
		req.Password = testPassword
	}
	res, err := e.Authorize.Login(context.Background(), req)
	require.NoError(t, err)
	return res.Code
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
