package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/idp/internal/idp/service"
	"github.com/aussiebroadwan/idp/pkg/authsdk"
)

func TestHealthEndpoints(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	ctx := context.Background()

	live, err := ts.Client.GetLiveness(ctx)
	require.NoError(t, err)
	require.Equal(t, "ok", live.Status)
	require.Equal(t, "test", live.Version)

	ready, err := ts.Client.GetReadiness(ctx)
	require.NoError(t, err)
	require.Equal(t, "ok", ready.Status)
	require.Equal(t, map[string]string{"database": "ok", "cache": "ok"}, ready.Checks)
}

func TestWellKnown(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	ctx := context.Background()

	doc, err := ts.Client.Discovery(ctx)
	require.NoError(t, err)
	require.Equal(t, testIssuer, doc.Issuer)
	require.Equal(t, testIssuer+"/oauth2/token", doc.TokenEndpoint)
	require.Contains(t, doc.CodeChallengeMethodsSupported, "S256")

	set, err := ts.Client.GetJWKS(ctx, "")
	require.NoError(t, err)
	require.NotNil(t, set.Keys)
	require.Empty(t, set.Keys, "the fixture only has an HMAC key")

	set, err = ts.Client.GetJWKS(ctx, ts.Fixture.Tenant.ID)
	require.NoError(t, err)
	require.Empty(t, set.Keys)

	_, err = ts.Client.GetJWKS(ctx, "missing")
	var oe *authsdk.OAuth2Error
	require.ErrorAs(t, err, &oe)
	require.Equal(t, http.StatusBadRequest, oe.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	ctx := context.Background()

	_, err := ts.Client.ClientCredentialsGrant(ctx, ts.Fixture.App.ID, testSecret, "")
	require.NoError(t, err)

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), `idp_tokens_issued_total{grant="client_credentials"} 1`)
	require.Contains(t, string(body), `route="POST /oauth2/token"`)
}

func TestOAuthErrorMapping(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err    error
		status int
		code   string
	}{
		{service.ErrInvalidRequest, http.StatusBadRequest, authsdk.ErrorCodeInvalidRequest},
		{service.ErrApplicationNotFound, http.StatusBadRequest, authsdk.ErrorCodeInvalidRequest},
		{service.ErrInvalidGrant, http.StatusBadRequest, authsdk.ErrorCodeInvalidGrant},
		{service.ErrInvalidScope, http.StatusBadRequest, authsdk.ErrorCodeInvalidScope},
		{service.ErrInvalidClient, http.StatusUnauthorized, authsdk.ErrorCodeInvalidClient},
		{service.ErrUnauthorizedClient, http.StatusUnauthorized, authsdk.ErrorCodeUnauthorizedClient},
		{service.ErrPKCEMismatch, http.StatusUnauthorized, authsdk.ErrorCodeInvalidGrant},
		{service.ErrRedirectNotAllowed, http.StatusUnauthorized, authsdk.ErrorCodeAccessDenied},
		{service.ErrSigning, http.StatusInternalServerError, authsdk.ErrorCodeServerError},
		{errors.New("boom"), http.StatusInternalServerError, authsdk.ErrorCodeServerError},
	}
	for _, tc := range cases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			e := oauthError(tc.err)
			require.Equal(t, tc.status, e.StatusCode)
			require.Equal(t, tc.code, e.Code)
		})
	}

	t.Run("description is carried", func(t *testing.T) {
		e := oauthError(fmt.Errorf("%w: %s", service.ErrInvalidRequest, "loginId is required"))
		require.Equal(t, "loginId is required", e.Description)

		e = oauthError(service.ErrInvalidGrant)
		require.Equal(t, authsdk.ErrInvalidGrant.Description, e.Description)
	})
}
