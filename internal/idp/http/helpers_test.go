package http

import (
	"context"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/idp/internal/idp/cache"
	"github.com/aussiebroadwan/idp/internal/idp/domain"
	"github.com/aussiebroadwan/idp/internal/idp/metrics"
	"github.com/aussiebroadwan/idp/internal/idp/service"
	"github.com/aussiebroadwan/idp/internal/idp/store"
	"github.com/aussiebroadwan/idp/internal/idp/store/drivers/sqldb"
	"github.com/aussiebroadwan/idp/internal/idp/store/drivers/sqlite"
	"github.com/aussiebroadwan/idp/internal/idp/store/storetest"
	"github.com/aussiebroadwan/idp/pkg/authsdk"
	"github.com/aussiebroadwan/idp/pkg/cryptox"
	"github.com/aussiebroadwan/idp/pkg/httpx"
	"github.com/aussiebroadwan/idp/pkg/slogx"
)

const (
	testIssuer      = "https://idp.test"
	testPassword    = "hunter22"
	testRedirectURI = "https://app.example.com/callback"
	testSecret      = "client-secret"
)

var testLimits = httpx.RateLimits{
	Strict:   httpx.RateLimitConfig{RequestsPerWindow: 1000, Window: time.Minute, Burst: 1000},
	Moderate: httpx.RateLimitConfig{RequestsPerWindow: 1000, Window: time.Minute, Burst: 1000},
	Lenient:  httpx.RateLimitConfig{RequestsPerWindow: 1000, Window: time.Minute, Burst: 1000},
	Public:   httpx.RateLimitConfig{RequestsPerWindow: 1000, Window: time.Minute, Burst: 1000},
}

type testServer struct {
	URL     string
	Store   store.Store
	Fixture storetest.Fixture
	Metrics *metrics.Metrics
	Client  *authsdk.Client
}

// newTestServer serves a router over a seeded sqlite store. The fixture
// application has every grant enabled and testSecret as client secret. The
// fixture user is registered with testPassword.
func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx := context.Background()

	s, err := sqlite.NewStore(filepath.Join(t.TempDir(), "idp.db"), sqldb.PoolConfig{MaxOpenConns: 4})
	require.NoError(t, err)
	require.NoError(t, s.ApplyMigrations())
	t.Cleanup(func() { _ = s.Close() })

	hasher := cryptox.NewHasher([]byte("pepper"))
	hasher.Params.Memory = 1024
	hasher.Params.Iterations = 1

	f := storetest.Seed(t, s)
	secretHash, err := hasher.Hash(testSecret)
	require.NoError(t, err)
	f.App.Config.OAuth.ClientSecretHash = secretHash
	f.App.Config.OAuth.EnabledGrants = append([]string(nil), domain.KnownGrants...)
	require.NoError(t, s.Applications().UpsertApplication(ctx, f.App))

	hash, err := hasher.Hash(testPassword)
	require.NoError(t, err)
	require.NoError(t, s.Registrations().UpsertRegistration(ctx, domain.UserRegistration{
		UserID:        f.User.ID,
		ApplicationID: f.App.ID,
		PasswordHash:  hash,
	}))

	m := metrics.New()
	c := cache.NewMemory(0, service.DefaultResolverTTL)
	resolver := &service.KeyResolver{Store: s, Cache: c, Metrics: m}
	signer := &service.TokenSigner{Resolver: resolver, Store: s, Issuer: testIssuer}
	roles := &service.RoleResolver{Store: s}

	r := NewRouter(RouterConfig{
		Issuer:       testIssuer,
		BuildVersion: "test",
		RateLimits:   testLimits,
		Cache:        c,
		Metrics:      m,
	}, s, slogx.Discard())
	r.AuthorizeService = &service.AuthorizeService{Store: s, Hasher: hasher}
	r.TokenService = &service.TokenService{
		Store:    s,
		Resolver: resolver,
		Signer:   signer,
		Roles:    roles,
		Hasher:   hasher,
		Metrics:  m,
	}
	r.JWKSService = &service.JWKSService{Store: s}
	r.Signer = signer
	r.Resolver = resolver
	r.Roles = roles
	r.Guard = &service.APIKeyGuard{Store: s, Metrics: m}
	r.ApplyRoutes()

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	return &testServer{
		URL:     srv.URL,
		Store:   s,
		Fixture: f,
		Metrics: m,
		Client:  authsdk.NewClient(srv.URL),
	}
}

// loginCode runs the authorize POST for the fixture user.
func (ts *testServer) loginCode(t *testing.T, scope string, pkce *authsdk.PKCEChallenge) string {
	t.Helper()
	code, state, err := ts.Client.Login(context.Background(), authsdk.LoginRequest{
		AuthorizeParams: authsdk.AuthorizeParams{
			ClientID:    ts.Fixture.App.ID,
			RedirectURI: testRedirectURI,
			Scope:       scope,
			State:       "st",
			PKCE:        pkce,
		},
		LoginID:  ts.Fixture.User.Email,
		Password: testPassword,
	})
	require.NoError(t, err)
	require.Equal(t, "st", state)
	return code
}

func (ts *testServer) addAPIKey(t *testing.T, k domain.AuthenticationKey, secret string) {
	t.Helper()
	k.KeyHash = cryptox.FingerprintToken(secret)
	require.NoError(t, ts.Store.APIKeys().UpsertAPIKey(context.Background(), k))
}
