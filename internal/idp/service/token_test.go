package service

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/idp/internal/idp/cache"
	"github.com/aussiebroadwan/idp/internal/idp/domain"
	"github.com/aussiebroadwan/idp/pkg/cryptox"
	"github.com/aussiebroadwan/idp/pkg/jwtx"
)

func (e *testEnv) exchangeCode(code, verifier string) (*TokenResponse, error) {
	return e.Tokens.Exchange(context.Background(), TokenRequest{
		GrantType:    domain.GrantAuthorizationCode,
		ClientID:     e.Fixture.App.ID,
		ClientSecret: testClientSecret,
		Code:         code,
		CodeVerifier: verifier,
		RedirectURI:  testRedirectURI,
	})
}

func (e *testEnv) passwordGrant(scope string) (*TokenResponse, error) {
	return e.Tokens.Exchange(context.Background(), TokenRequest{
		GrantType: domain.GrantPassword,
		ClientID:  e.Fixture.App.ID,
		LoginID:   e.Fixture.User.Email,
		Password:  testPassword,
		Scope:     scope,
	})
}

func TestAuthorizationCodeFlow(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t)

	code := e.login(t, LoginRequest{})
	resp, err := e.exchangeCode(code, "")
	require.NoError(t, err)
	require.Equal(t, "Bearer", resp.TokenType)
	require.Equal(t, 600, resp.ExpiresIn, "tenant lifetime applies")
	require.NotEmpty(t, resp.IDToken)
	require.Empty(t, resp.RefreshToken, "no offline_access requested")

	access, err := jwtx.Unverified(resp.AccessToken)
	require.NoError(t, err)
	require.Equal(t, e.Fixture.User.ID, access.Subject)
	require.Equal(t, []string{e.Fixture.App.ID}, []string(access.Audience))
	require.Equal(t, testIssuer, access.Issuer)
	require.Equal(t, jwtx.UseAccess, access.TokenUse)
	require.Equal(t, e.Fixture.Tenant.ID, access.TenantID)

	id, err := jwtx.Unverified(resp.IDToken)
	require.NoError(t, err)
	require.Equal(t, e.Fixture.User.ID, id.Subject)
	require.Equal(t, "alice@example.com", id.Email)
	require.Equal(t, "alice", id.PreferredUsername)
	require.NotNil(t, id.AuthTime)
}

func TestAuthorizationCodeIsSingleUse(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t)

	code := e.login(t, LoginRequest{})
	_, err := e.exchangeCode(code, "")
	require.NoError(t, err)

	_, err = e.exchangeCode(code, "")
	require.ErrorIs(t, err, ErrInvalidGrant)
}

func TestAuthorizationCodeExpires(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t)
	e.Authorize.Now = fixedClock(time.Now().Add(-10 * time.Minute))

	code := e.login(t, LoginRequest{})
	_, err := e.exchangeCode(code, "")
	require.ErrorIs(t, err, ErrInvalidGrant)
}

func TestAuthorizationCodePKCE(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t)
	verifier := "a-sufficiently-long-code-verifier-for-testing-pkce"

	t.Run("S256 exact match", func(t *testing.T) {
		code := e.login(t, LoginRequest{AuthorizeRequest: AuthorizeRequest{
			CodeChallenge: cryptox.S256Challenge(verifier), CodeChallengeMethod: PKCEMethodS256,
		}})
		_, err := e.exchangeCode(code, verifier)
		require.NoError(t, err)
	})

	t.Run("wrong verifier", func(t *testing.T) {
		code := e.login(t, LoginRequest{AuthorizeRequest: AuthorizeRequest{
			CodeChallenge: cryptox.S256Challenge(verifier), CodeChallengeMethod: PKCEMethodS256,
		}})
		_, err := e.exchangeCode(code, verifier+"-tampered")
		require.ErrorIs(t, err, ErrPKCEMismatch)

		_, err = e.exchangeCode(code, verifier)
		require.ErrorIs(t, err, ErrInvalidGrant, "a failed attempt burns the code")
	})

	t.Run("plain", func(t *testing.T) {
		code := e.login(t, LoginRequest{AuthorizeRequest: AuthorizeRequest{
			CodeChallenge: verifier, CodeChallengeMethod: PKCEMethodPlain,
		}})
		_, err := e.exchangeCode(code, verifier)
		require.NoError(t, err)
	})
}

func TestAuthorizationCodeRequiresOpenID(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t)

	code := e.login(t, LoginRequest{AuthorizeRequest: AuthorizeRequest{Scope: "profile"}})
	_, err := e.exchangeCode(code, "")
	require.ErrorIs(t, err, ErrInvalidScope)
}

func TestAuthorizationCodeBoundToClient(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t)
	ctx := context.Background()

	other := e.Fixture.App
	other.ID = "app-other"
	other.Name = "Other"
	require.NoError(t, e.Store.Applications().UpsertApplication(ctx, other))

	code := e.login(t, LoginRequest{})
	_, err := e.Tokens.Exchange(ctx, TokenRequest{
		GrantType:    domain.GrantAuthorizationCode,
		ClientID:     other.ID,
		ClientSecret: testClientSecret,
		Code:         code,
	})
	require.ErrorIs(t, err, ErrInvalidGrant)

	_, err = e.exchangeCode(code, "")
	require.NoError(t, err, "a wrong client does not burn the code")
}

func TestOfflineAccessIssuesOneRefreshTokenPerUser(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t)
	ctx := context.Background()

	first, err := e.exchangeCode(e.login(t, LoginRequest{AuthorizeRequest: AuthorizeRequest{Scope: "openid offline_access"}}), "")
	require.NoError(t, err)
	require.NotEmpty(t, first.RefreshToken)
	require.NotEmpty(t, first.RefreshTokenID)

	second, err := e.exchangeCode(e.login(t, LoginRequest{AuthorizeRequest: AuthorizeRequest{Scope: "openid offline_access"}}), "")
	require.NoError(t, err)
	require.Equal(t, first.RefreshTokenID, second.RefreshTokenID)

	row, err := e.Store.RefreshTokens().GetRefreshToken(ctx, e.Fixture.App.ID, e.Fixture.User.ID)
	require.NoError(t, err)
	require.Equal(t, cryptox.FingerprintToken(second.RefreshToken), row.TokenHash)

	v, err := e.Signer.CheckValidity(ctx, first.RefreshToken, e.Fixture.Key, KindRefresh)
	require.NoError(t, err)
	require.False(t, v.Active, "the first login's refresh token was replaced")
}

func TestNoRefreshTokenWithoutRefreshGrant(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t)
	e.updateApp(t, func(a *domain.Application) {
		a.Config.OAuth.EnabledGrants = []string{domain.GrantPassword}
	})

	resp, err := e.passwordGrant("openid offline_access")
	require.NoError(t, err)
	require.Empty(t, resp.RefreshToken)
}

func TestRefreshTokenGrantRotates(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t)
	ctx := context.Background()

	initial, err := e.passwordGrant("openid offline_access")
	require.NoError(t, err)
	require.NotEmpty(t, initial.RefreshToken)

	refresh := func(token string) (*TokenResponse, error) {
		return e.Tokens.Exchange(ctx, TokenRequest{
			GrantType:    domain.GrantRefreshToken,
			ClientID:     e.Fixture.App.ID,
			ClientSecret: testClientSecret,
			RefreshToken: token,
		})
	}

	rotated, err := refresh(initial.RefreshToken)
	require.NoError(t, err)
	require.NotEmpty(t, rotated.AccessToken)
	require.NotEqual(t, initial.RefreshToken, rotated.RefreshToken)
	require.Equal(t, initial.RefreshTokenID, rotated.RefreshTokenID)
	require.Equal(t, "openid offline_access", rotated.Scope)

	_, err = refresh(initial.RefreshToken)
	require.ErrorIs(t, err, ErrInvalidGrant, "a rotated token cannot be replayed")

	_, err = refresh(rotated.RefreshToken)
	require.NoError(t, err)

	_, err = refresh("garbage")
	require.ErrorIs(t, err, ErrInvalidGrant)
}

func TestPasswordGrant(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t)
	ctx := context.Background()

	resp, err := e.passwordGrant("openid")
	require.NoError(t, err)
	require.NotEmpty(t, resp.IDToken)

	resp, err = e.passwordGrant("")
	require.NoError(t, err)
	require.Empty(t, resp.IDToken, "no openid scope, no id token")

	_, err = e.Tokens.Exchange(ctx, TokenRequest{
		GrantType: domain.GrantPassword, ClientID: e.Fixture.App.ID, LoginID: "alice", Password: "wrong",
	})
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = e.Tokens.Exchange(ctx, TokenRequest{
		GrantType: domain.GrantPassword, ClientID: e.Fixture.App.ID, LoginID: "nobody", Password: "x",
	})
	require.ErrorIs(t, err, ErrInvalidGrant)

	_, err = e.Tokens.Exchange(ctx, TokenRequest{
		GrantType: domain.GrantPassword, ClientID: e.Fixture.App.ID, LoginID: "alice",
	})
	require.ErrorIs(t, err, ErrInvalidRequest)
}

func TestClientCredentialsGrant(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t)
	ctx := context.Background()
	e.updateApp(t, func(a *domain.Application) {
		a.Config.OAuth.Scopes = []string{"reports:read"}
	})

	resp, err := e.Tokens.Exchange(ctx, TokenRequest{
		GrantType:    domain.GrantClientCredentials,
		ClientID:     e.Fixture.App.ID,
		ClientSecret: testClientSecret,
		Scope:        "reports:read admin openid offline_access",
	})
	require.NoError(t, err)
	require.Empty(t, resp.IDToken)
	require.Empty(t, resp.RefreshToken)
	require.Equal(t, "reports:read", resp.Scope)

	claims, err := jwtx.Unverified(resp.AccessToken)
	require.NoError(t, err)
	require.Equal(t, e.Fixture.App.ID, claims.Subject)

	_, err = e.Tokens.Exchange(ctx, TokenRequest{
		GrantType: domain.GrantClientCredentials, ClientID: e.Fixture.App.ID, ClientSecret: "wrong",
	})
	require.ErrorIs(t, err, ErrInvalidClient)

	_, err = e.Tokens.Exchange(ctx, TokenRequest{
		GrantType: domain.GrantClientCredentials, ClientID: e.Fixture.App.ID,
	})
	require.ErrorIs(t, err, ErrInvalidRequest)
}

func TestIssuedTokensUseKeyPerKind(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, e.Store.Keys().UpsertKey(ctx, domain.Key{ID: "key-id", Kid: "kid-id", Algorithm: "HS384", Secret: "id-secret"}))
	e.updateApp(t, func(a *domain.Application) { a.IDTokenKeyID = "key-id" })

	resp, err := e.passwordGrant("openid offline_access")
	require.NoError(t, err)

	kid := func(token string) string {
		t.Helper()
		tok, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
		require.NoError(t, err)
		v, _ := tok.Header["kid"].(string)
		return v
	}
	require.Equal(t, "kid-1", kid(resp.AccessToken))
	require.Equal(t, "kid-id", kid(resp.IDToken))
	require.Equal(t, "kid-1", kid(resp.RefreshToken), "refresh tokens use the access key")
}

func TestClientSecretComparedAgainstHash(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t)
	ctx := context.Background()

	e.updateApp(t, func(a *domain.Application) {
		a.Config.OAuth.ClientSecretHash = testClientSecret
	})
	_, err := e.Tokens.Exchange(ctx, TokenRequest{
		GrantType: domain.GrantClientCredentials, ClientID: e.Fixture.App.ID, ClientSecret: testClientSecret,
	})
	require.ErrorIs(t, err, ErrInvalidClient, "a clear text value in the hash column never matches")
}

func TestApplicationChangesBypassKeyCache(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t)
	ctx := context.Background()
	e.Resolver.Cache = cache.NewMemory(16, DefaultResolverTTL)

	exchange := func() error {
		_, err := e.Tokens.Exchange(ctx, TokenRequest{
			GrantType: domain.GrantClientCredentials, ClientID: e.Fixture.App.ID, ClientSecret: testClientSecret,
		})
		return err
	}
	require.NoError(t, exchange())

	rotated, err := e.Hasher.Hash("rotated")
	require.NoError(t, err)
	app := e.Fixture.App
	app.Config.OAuth.ClientSecretHash = rotated
	require.NoError(t, e.Store.Applications().UpsertApplication(ctx, app))
	require.ErrorIs(t, exchange(), ErrInvalidClient, "rotated secret applies without invalidation")

	app.Active = false
	app.Config.OAuth.ClientSecretHash = e.Fixture.App.Config.OAuth.ClientSecretHash
	require.NoError(t, e.Store.Applications().UpsertApplication(ctx, app))
	require.ErrorIs(t, exchange(), ErrUnauthorizedClient, "deactivation applies without invalidation")
}

func TestExchangePreconditions(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t)
	ctx := context.Background()

	_, err := e.Tokens.Exchange(ctx, TokenRequest{ClientID: e.Fixture.App.ID})
	require.ErrorIs(t, err, ErrInvalidRequest)
	require.Equal(t, "grant_type is required", Describe(err))

	_, err = e.Tokens.Exchange(ctx, TokenRequest{GrantType: "implicit", ClientID: e.Fixture.App.ID})
	require.ErrorIs(t, err, ErrUnsupportedGrantType)

	_, err = e.Tokens.Exchange(ctx, TokenRequest{GrantType: domain.GrantPassword, LoginID: "a", Password: "b"})
	require.ErrorIs(t, err, ErrInvalidRequest)

	_, err = e.Tokens.Exchange(ctx, TokenRequest{GrantType: domain.GrantPassword, ClientID: "missing", LoginID: "a", Password: "b"})
	require.ErrorIs(t, err, ErrApplicationNotFound)

	_, err = e.Tokens.Exchange(ctx, TokenRequest{
		GrantType: domain.GrantPassword, ClientID: e.Fixture.App.ID, ClientSecret: "wrong", LoginID: "alice", Password: testPassword,
	})
	require.ErrorIs(t, err, ErrInvalidClient)

	e.updateApp(t, func(a *domain.Application) {
		a.Config.OAuth.EnabledGrants = []string{domain.GrantAuthorizationCode}
	})
	_, err = e.passwordGrant("openid")
	require.ErrorIs(t, err, ErrUnauthorizedClient)

	e.updateApp(t, func(a *domain.Application) {
		a.Active = false
		a.Config.OAuth.EnabledGrants = domain.KnownGrants
	})
	_, err = e.passwordGrant("openid")
	require.ErrorIs(t, err, ErrUnauthorizedClient)
}

func TestTokensCarryRoles(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t)
	seedRoles(t, e)

	resp, err := e.passwordGrant("openid")
	require.NoError(t, err)

	access, err := jwtx.Unverified(resp.AccessToken)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"viewer", "admin"}, access.Roles)

	id, err := jwtx.Unverified(resp.IDToken)
	require.NoError(t, err)
	require.Equal(t, "engineering", id.Extra["department"])
}

func TestGrantScopes(t *testing.T) {
	t.Parallel()

	open := &domain.Application{}
	require.Equal(t, "a b", grantScopes("a b a", open))
	require.Empty(t, grantScopes("", open))

	configured := &domain.Application{Config: domain.ApplicationConfiguration{
		OAuth: domain.OAuthConfiguration{Scopes: []string{"reports:read"}},
	}}
	require.Equal(t, "reports:read", grantScopes("", configured))
	require.Equal(t, "openid reports:read", grantScopes("openid reports:read admin", configured))
}

func TestIntrospect(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t)
	ctx := context.Background()

	resp, err := e.passwordGrant("openid offline_access")
	require.NoError(t, err)

	v, err := e.Tokens.Introspect(ctx, e.Fixture.App.ID, testClientSecret, resp.AccessToken, "")
	require.NoError(t, err)
	require.True(t, v.Active)
	require.Equal(t, e.Fixture.User.ID, v.Map()["sub"])

	v, err = e.Tokens.Introspect(ctx, e.Fixture.App.ID, testClientSecret, resp.RefreshToken, "refresh_token")
	require.NoError(t, err)
	require.True(t, v.Active)

	v, err = e.Tokens.Introspect(ctx, e.Fixture.App.ID, testClientSecret, resp.IDToken, "")
	require.NoError(t, err)
	require.True(t, v.Active)

	v, err = e.Tokens.Introspect(ctx, e.Fixture.App.ID, testClientSecret, resp.AccessToken, "refresh_token")
	require.NoError(t, err)
	require.False(t, v.Active, "an access token is not a persisted refresh token")

	_, err = e.Tokens.Introspect(ctx, e.Fixture.App.ID, "wrong", resp.AccessToken, "")
	require.ErrorIs(t, err, ErrInvalidClient)

	_, err = e.Tokens.Introspect(ctx, e.Fixture.App.ID, "", resp.AccessToken, "")
	require.ErrorIs(t, err, ErrInvalidClient)

	_, err = e.Tokens.Introspect(ctx, e.Fixture.App.ID, testClientSecret, resp.AccessToken, "saml")
	require.ErrorIs(t, err, ErrInvalidRequest)
}

func TestLogoutRevokesRefreshToken(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t)
	ctx := context.Background()

	resp, err := e.passwordGrant("openid offline_access")
	require.NoError(t, err)

	require.NoError(t, e.Tokens.Logout(ctx, e.Fixture.App.ID, testClientSecret, resp.RefreshToken))
	_, err = e.Store.RefreshTokens().GetRefreshToken(ctx, e.Fixture.App.ID, e.Fixture.User.ID)
	require.Error(t, err)

	require.NoError(t, e.Tokens.Logout(ctx, e.Fixture.App.ID, testClientSecret, resp.RefreshToken), "idempotent")

	require.ErrorIs(t, e.Tokens.Logout(ctx, e.Fixture.App.ID, testClientSecret, ""), ErrInvalidRequest)
}

func TestRevokeRefreshTokens(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t)
	ctx := context.Background()

	_, err := e.passwordGrant("openid offline_access")
	require.NoError(t, err)

	removed, err := e.Tokens.RevokeRefreshTokens(ctx, e.Fixture.App.ID, e.Fixture.User.ID)
	require.NoError(t, err)
	require.True(t, removed)

	removed, err = e.Tokens.RevokeRefreshTokens(ctx, e.Fixture.App.ID, e.Fixture.User.ID)
	require.NoError(t, err)
	require.False(t, removed)
}

func TestUserInfo(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t)
	ctx := context.Background()

	resp, err := e.passwordGrant("openid")
	require.NoError(t, err)

	claims, err := e.Signer.VerifyAccessToken(ctx, resp.AccessToken)
	require.NoError(t, err)

	info, err := e.Tokens.UserInfo(ctx, claims)
	require.NoError(t, err)
	require.Equal(t, e.Fixture.User.ID, info.Subject)
	require.Equal(t, "alice@example.com", info.Email)
	require.Equal(t, "alice", info.PreferredUsername)
	require.Equal(t, e.Fixture.Tenant.ID, info.TenantID)
}
