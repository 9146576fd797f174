package http

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/idp/internal/idp/domain"
	"github.com/aussiebroadwan/idp/pkg/authsdk"
)

func TestAPIKeyProtectedEndpoints(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	ctx := context.Background()
	f := ts.Fixture

	require.NoError(t, ts.Store.Roles().UpsertRole(ctx, domain.ApplicationRole{
		ID: "role-viewer", ApplicationID: f.App.ID, Name: "viewer", IsDefault: true,
	}))

	tenant := f.Tenant.ID
	ts.addAPIKey(t, domain.AuthenticationKey{ID: "global"}, "global-secret")
	ts.addAPIKey(t, domain.AuthenticationKey{ID: "scoped", TenantID: &tenant}, "scoped-secret")
	other := "tenant-2"
	require.NoError(t, ts.Store.Tenants().UpsertTenant(ctx, domain.Tenant{
		ID: other, Name: "Tenant Two", AccessTokenKeyID: f.Key.ID, IDTokenKeyID: f.Key.ID,
	}))
	ts.addAPIKey(t, domain.AuthenticationKey{ID: "foreign", TenantID: &other}, "foreign-secret")
	ts.addAPIKey(t, domain.AuthenticationKey{
		ID: "roles-only",
		Permissions: domain.KeyPermissions{Endpoints: []domain.EndpointPermission{
			{URL: "/api/v1/users/" + f.User.ID + "/roles", Methods: []string{"GET"}},
		}},
	}, "roles-secret")

	t.Run("roles for application", func(t *testing.T) {
		admin := authsdk.NewAdminClient(ts.URL, "global-secret", "")
		roles, err := admin.UserRolesForApplication(ctx, f.User.ID, f.App.ID)
		require.NoError(t, err)
		require.Equal(t, []string{"role-viewer"}, roles)
	})

	t.Run("roles for tenant", func(t *testing.T) {
		admin := authsdk.NewAdminClient(ts.URL, "Bearer scoped-secret", tenant)
		roles, err := admin.UserRolesForTenant(ctx, f.User.ID, tenant)
		require.NoError(t, err)
		require.Empty(t, roles)
	})

	t.Run("endpoint restricted key", func(t *testing.T) {
		admin := authsdk.NewAdminClient(ts.URL, "roles-secret", "")
		_, err := admin.UserRolesForApplication(ctx, f.User.ID, f.App.ID)
		require.NoError(t, err)

		err = admin.InvalidateKeys(ctx, f.App.ID)
		var apiErr *authsdk.APIError
		require.ErrorAs(t, err, &apiErr)
		require.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
		require.Equal(t, "You are not authorized", apiErr.Message)
	})

	t.Run("missing key", func(t *testing.T) {
		admin := authsdk.NewAdminClient(ts.URL, "", "")
		_, err := admin.UserRolesForApplication(ctx, f.User.ID, f.App.ID)
		var apiErr *authsdk.APIError
		require.ErrorAs(t, err, &apiErr)
		require.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
		require.Equal(t, "authorization header required", apiErr.Message)
	})

	t.Run("scoped key needs matching header", func(t *testing.T) {
		admin := authsdk.NewAdminClient(ts.URL, "scoped-secret", "")
		_, err := admin.UserRolesForApplication(ctx, f.User.ID, f.App.ID)
		var apiErr *authsdk.APIError
		require.ErrorAs(t, err, &apiErr)
		require.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	})

	t.Run("scoped key cannot reach another tenant's application", func(t *testing.T) {
		admin := authsdk.NewAdminClient(ts.URL, "foreign-secret", other)
		_, err := admin.UserRolesForApplication(ctx, f.User.ID, f.App.ID)
		var apiErr *authsdk.APIError
		require.ErrorAs(t, err, &apiErr)
		require.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	})

	t.Run("query must name one target", func(t *testing.T) {
		admin := authsdk.NewAdminClient(ts.URL, "global-secret", "")
		_, err := admin.UserRolesForApplication(ctx, f.User.ID, "")
		var apiErr *authsdk.APIError
		require.ErrorAs(t, err, &apiErr)
		require.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	})

	t.Run("revoke refresh tokens", func(t *testing.T) {
		tokens, err := ts.Client.PasswordGrant(ctx, f.App.ID, testSecret, "alice", testPassword, "openid offline_access")
		require.NoError(t, err)
		require.NotEmpty(t, tokens.RefreshToken)

		admin := authsdk.NewAdminClient(ts.URL, "scoped-secret", tenant)
		require.NoError(t, admin.RevokeRefreshTokens(ctx, f.App.ID, f.User.ID))

		_, err = ts.Client.RefreshGrant(ctx, f.App.ID, testSecret, tokens.RefreshToken)
		var oe *authsdk.OAuth2Error
		require.ErrorAs(t, err, &oe)
		require.Equal(t, authsdk.ErrorCodeInvalidGrant, oe.Code)
	})

	t.Run("invalidate keys", func(t *testing.T) {
		admin := authsdk.NewAdminClient(ts.URL, "global-secret", "")
		require.NoError(t, admin.InvalidateKeys(ctx, f.App.ID))

		err := admin.InvalidateKeys(ctx, "missing")
		var apiErr *authsdk.APIError
		require.ErrorAs(t, err, &apiErr)
		require.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	})
}
