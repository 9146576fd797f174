package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/idp/internal/idp/domain"
	"github.com/aussiebroadwan/idp/pkg/authsdk"
	"github.com/aussiebroadwan/idp/pkg/jwtx"
)

func TestAuthorizationCodeFlow(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	ctx := context.Background()
	app, user := ts.Fixture.App, ts.Fixture.User

	prompt, err := ts.Client.Prompt(ctx, authsdk.AuthorizeParams{
		ClientID:    app.ID,
		RedirectURI: testRedirectURI,
		Scope:       "openid offline_access",
		State:       "st",
	})
	require.NoError(t, err)
	require.Equal(t, app.Name, prompt.ApplicationName)
	require.Equal(t, app.TenantID, prompt.TenantID)
	require.Equal(t, "code", prompt.ResponseType)
	require.Equal(t, "st", prompt.State)

	pkce, err := authsdk.GeneratePKCEChallenge()
	require.NoError(t, err)
	code := ts.loginCode(t, "openid offline_access", pkce)

	tokens, err := ts.Client.ExchangeCode(ctx, app.ID, testSecret, code, testRedirectURI, pkce.Verifier)
	require.NoError(t, err)
	require.Equal(t, "Bearer", tokens.TokenType)
	require.Positive(t, tokens.ExpiresIn)
	require.NotEmpty(t, tokens.IDToken)
	require.NotEmpty(t, tokens.RefreshToken)
	require.NotEmpty(t, tokens.RefreshTokenID)

	access, err := jwtx.Unverified(tokens.AccessToken)
	require.NoError(t, err)
	require.Equal(t, user.ID, access.Subject)
	require.Contains(t, access.Audience, app.ID)
	require.Equal(t, testIssuer, access.Issuer)

	t.Run("code is single use", func(t *testing.T) {
		_, err := ts.Client.ExchangeCode(ctx, app.ID, testSecret, code, testRedirectURI, pkce.Verifier)
		var oe *authsdk.OAuth2Error
		require.ErrorAs(t, err, &oe)
		require.Equal(t, http.StatusBadRequest, oe.StatusCode)
		require.Equal(t, authsdk.ErrorCodeInvalidGrant, oe.Code)
	})

	info, err := ts.Client.UserInfo(ctx, tokens.AccessToken)
	require.NoError(t, err)
	require.Equal(t, user.ID, info.Subject)
	require.Equal(t, user.TenantID, info.TenantID)

	intro, err := ts.Client.Introspect(ctx, app.ID, testSecret, tokens.AccessToken, "")
	require.NoError(t, err)
	require.True(t, intro.Active)
	require.Equal(t, user.ID, intro.Claims["sub"])

	rotated, err := ts.Client.RefreshGrant(ctx, app.ID, testSecret, tokens.RefreshToken)
	require.NoError(t, err)
	require.NotEqual(t, tokens.RefreshToken, rotated.RefreshToken)
	require.Equal(t, tokens.RefreshTokenID, rotated.RefreshTokenID)

	_, err = ts.Client.RefreshGrant(ctx, app.ID, testSecret, tokens.RefreshToken)
	var oe *authsdk.OAuth2Error
	require.ErrorAs(t, err, &oe)
	require.Equal(t, authsdk.ErrorCodeInvalidGrant, oe.Code)

	require.NoError(t, ts.Client.Logout(ctx, app.ID, testSecret, rotated.RefreshToken))
	require.NoError(t, ts.Client.Logout(ctx, app.ID, testSecret, rotated.RefreshToken), "logout is idempotent")

	intro, err = ts.Client.Introspect(ctx, app.ID, testSecret, rotated.RefreshToken, "refresh_token")
	require.NoError(t, err)
	require.False(t, intro.Active)
	require.Empty(t, intro.Claims)
}

func TestAuthorizePostFailures(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	ctx := context.Background()

	login := func(mutate func(*authsdk.LoginRequest)) error {
		req := authsdk.LoginRequest{
			AuthorizeParams: authsdk.AuthorizeParams{ClientID: ts.Fixture.App.ID, RedirectURI: testRedirectURI},
			LoginID:         ts.Fixture.User.Email,
			Password:        testPassword,
		}
		mutate(&req)
		_, _, err := ts.Client.Login(ctx, req)
		return err
	}

	cases := []struct {
		name   string
		mutate func(*authsdk.LoginRequest)
		status int
	}{
		{"missing login id", func(r *authsdk.LoginRequest) { r.LoginID = "" }, http.StatusBadRequest},
		{"unknown client", func(r *authsdk.LoginRequest) { r.ClientID = "missing" }, http.StatusBadRequest},
		{"unregistered redirect", func(r *authsdk.LoginRequest) { r.RedirectURI = "https://evil.example.com/cb" }, http.StatusUnauthorized},
		{"wrong password", func(r *authsdk.LoginRequest) { r.Password = "wrong" }, http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := login(tc.mutate)
			var apiErr *authsdk.APIError
			require.ErrorAs(t, err, &apiErr)
			require.Equal(t, tc.status, apiErr.StatusCode)
			require.NotEmpty(t, apiErr.Message)
		})
	}

	t.Run("prompt without client", func(t *testing.T) {
		_, err := ts.Client.Prompt(ctx, authsdk.AuthorizeParams{})
		var oe *authsdk.OAuth2Error
		require.ErrorAs(t, err, &oe)
		require.Equal(t, http.StatusBadRequest, oe.StatusCode)
		require.Equal(t, authsdk.ErrorCodeInvalidRequest, oe.Code)
	})
}

func TestAuthorizePostJSON(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	body := `{"client_id":"app-1","redirect_uri":"` + testRedirectURI + `","loginId":"alice","password":"` + testPassword + `","state":"js"}`
	req, err := http.NewRequest(http.MethodPost, ts.URL+"/oauth2/authorize", strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := ts.Client.HTTPClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusFound, resp.StatusCode)

	loc, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	require.NotEmpty(t, loc.Query().Get("code"))
	require.Equal(t, "js", loc.Query().Get("state"))
}

func TestTokenEndpoint(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	ctx := context.Background()
	app := ts.Fixture.App

	post := func(t *testing.T, form url.Values, mutate func(*http.Request)) *http.Response {
		t.Helper()
		req, err := http.NewRequest(http.MethodPost, ts.URL+"/oauth2/token", strings.NewReader(form.Encode()))
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		if mutate != nil {
			mutate(req)
		}
		resp, err := ts.Client.HTTPClient.Do(req)
		require.NoError(t, err)
		t.Cleanup(func() { _ = resp.Body.Close() })
		return resp
	}

	t.Run("password grant", func(t *testing.T) {
		tokens, err := ts.Client.PasswordGrant(ctx, app.ID, testSecret, "alice", testPassword, "openid")
		require.NoError(t, err)
		require.NotEmpty(t, tokens.IDToken)
		require.Empty(t, tokens.RefreshToken, "no offline_access requested")
	})

	t.Run("client credentials over basic auth", func(t *testing.T) {
		resp := post(t, url.Values{"grant_type": {domain.GrantClientCredentials}}, func(r *http.Request) {
			r.SetBasicAuth(app.ID, testSecret)
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Equal(t, "no-store", resp.Header.Get("Cache-Control"))
	})

	t.Run("basic and form client disagree", func(t *testing.T) {
		resp := post(t, url.Values{"grant_type": {domain.GrantClientCredentials}, "client_id": {"other"}}, func(r *http.Request) {
			r.SetBasicAuth(app.ID, testSecret)
		})
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("wrong secret", func(t *testing.T) {
		_, err := ts.Client.ClientCredentialsGrant(ctx, app.ID, "nope", "")
		var oe *authsdk.OAuth2Error
		require.ErrorAs(t, err, &oe)
		require.Equal(t, http.StatusUnauthorized, oe.StatusCode)
		require.Equal(t, authsdk.ErrorCodeInvalidClient, oe.Code)
	})

	t.Run("unsupported grant", func(t *testing.T) {
		resp := post(t, url.Values{"grant_type": {"implicit"}, "client_id": {app.ID}}, nil)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("json body rejected", func(t *testing.T) {
		resp := post(t, url.Values{}, func(r *http.Request) { r.Header.Set("Content-Type", "application/json") })
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("missing content type rejected", func(t *testing.T) {
		form := url.Values{"grant_type": {domain.GrantClientCredentials}, "client_id": {app.ID}, "client_secret": {testSecret}}
		resp := post(t, form, func(r *http.Request) { r.Header.Del("Content-Type") })
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)

		var body struct {
			Error            string `json:"error"`
			ErrorDescription string `json:"error_description"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		require.Equal(t, authsdk.ErrorCodeInvalidRequest, body.Error)
		require.Equal(t, authsdk.ErrInvalidContentType.Description, body.ErrorDescription)
	})

	t.Run("pkce mismatch", func(t *testing.T) {
		pkce, err := authsdk.GeneratePKCEChallenge()
		require.NoError(t, err)
		code := ts.loginCode(t, "openid", pkce)

		_, err = ts.Client.ExchangeCode(ctx, app.ID, testSecret, code, testRedirectURI, "wrong-verifier")
		var oe *authsdk.OAuth2Error
		require.ErrorAs(t, err, &oe)
		require.Equal(t, http.StatusUnauthorized, oe.StatusCode)
	})
}

func TestUserInfoRequiresBearer(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	_, err := ts.Client.UserInfo(context.Background(), "garbage")
	var oe *authsdk.OAuth2Error
	require.ErrorAs(t, err, &oe)
	require.Equal(t, http.StatusUnauthorized, oe.StatusCode)
	require.Equal(t, authsdk.ErrorCodeInvalidToken, oe.Code)
}
