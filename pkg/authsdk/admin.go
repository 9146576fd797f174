package authsdk

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/url"
	"strings"
)

// TenantHeader scopes API-key requests to one tenant.
const TenantHeader = "X-Tenant-ID"

// AdminClient calls the API-key protected endpoints.
type AdminClient struct {
	*Client

	APIKey   string
	TenantID string
}

// NewAdminClient returns an AdminClient for apiKey, optionally scoped to
// tenantID.
func NewAdminClient(baseURL, apiKey, tenantID string) *AdminClient {
	return &AdminClient{Client: NewClient(baseURL), APIKey: apiKey, TenantID: tenantID}
}

func (a *AdminClient) headers() map[string]string {
	h := map[string]string{"Authorization": a.APIKey}
	if a.TenantID != "" {
		h[TenantHeader] = a.TenantID
	}
	return h
}

type envelope[T any] struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

func (a *AdminClient) roles(ctx context.Context, userID string, q url.Values) ([]string, error) {
	resp, err := a.doRequest(ctx, http.MethodGet,
		"/api/v1/users/"+url.PathEscape(userID)+"/roles?"+q.Encode(), nil, a.headers())
	if err != nil {
		return nil, err
	}
	var out envelope[struct {
		Roles []string `json:"roles"`
	}]
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return out.Data.Roles, nil
}

// UserRolesForApplication lists role ids the user holds in an application.
func (a *AdminClient) UserRolesForApplication(ctx context.Context, userID, applicationID string) ([]string, error) {
	return a.roles(ctx, userID, url.Values{"applicationId": {applicationID}})
}

// UserRolesForTenant lists role ids the user holds through tenant groups.
func (a *AdminClient) UserRolesForTenant(ctx context.Context, userID, tenantID string) ([]string, error) {
	return a.roles(ctx, userID, url.Values{"tenantId": {tenantID}})
}

// RevokeRefreshTokens deletes the user's refresh token for an application.
func (a *AdminClient) RevokeRefreshTokens(ctx context.Context, applicationID, userID string) error {
	q := url.Values{"applicationId": {applicationID}, "userId": {userID}}
	resp, err := a.doRequest(ctx, http.MethodDelete, "/api/v1/refresh-tokens?"+q.Encode(), nil, a.headers())
	if err != nil {
		return err
	}
	return decodeJSON(resp, nil, http.StatusOK)
}

// InvalidateKeys drops cached signing keys for an application.
func (a *AdminClient) InvalidateKeys(ctx context.Context, applicationID string) error {
	resp, err := a.doRequest(ctx, http.MethodPost,
		"/api/v1/applications/"+url.PathEscape(applicationID)+"/keys/invalidate", nil, a.headers())
	if err != nil {
		return err
	}
	return decodeJSON(resp, nil, http.StatusOK)
}

func base64URL(s string) ([]byte, error) {
	return base64.RawURLEncoding.DecodeString(strings.TrimRight(s, "="))
}
