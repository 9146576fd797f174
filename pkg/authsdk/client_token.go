package authsdk

import (
	"context"
	"encoding/json"
	"maps"
	"net/http"
	"net/url"
	"strings"
)

const formContentType = "application/x-www-form-urlencoded"

// ExchangeCode redeems an authorization code.
func (c *Client) ExchangeCode(ctx context.Context, clientID, clientSecret, code, redirectURI, verifier string) (*TokenResponse, error) {
	form := url.Values{
		"grant_type":   {"authorization_code"},
		"client_id":    {clientID},
		"code":         {code},
		"redirect_uri": {redirectURI},
	}
	if clientSecret != "" {
		form.Set("client_secret", clientSecret)
	}
	if verifier != "" {
		form.Set("code_verifier", verifier)
	}
	return c.requestToken(ctx, form)
}

// PasswordGrant exchanges a login id and password for tokens.
func (c *Client) PasswordGrant(ctx context.Context, clientID, clientSecret, loginID, password, scope string) (*TokenResponse, error) {
	form := url.Values{
		"grant_type": {"password"},
		"client_id":  {clientID},
		"loginId":    {loginID},
		"password":   {password},
	}
	if clientSecret != "" {
		form.Set("client_secret", clientSecret)
	}
	if scope != "" {
		form.Set("scope", scope)
	}
	return c.requestToken(ctx, form)
}

// ClientCredentialsGrant issues a token for the client itself.
func (c *Client) ClientCredentialsGrant(ctx context.Context, clientID, clientSecret, scope string) (*TokenResponse, error) {
	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {clientID},
		"client_secret": {clientSecret},
	}
	if scope != "" {
		form.Set("scope", scope)
	}
	return c.requestToken(ctx, form)
}

// RefreshGrant rotates a refresh token.
func (c *Client) RefreshGrant(ctx context.Context, clientID, clientSecret, refreshToken string) (*TokenResponse, error) {
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"client_id":     {clientID},
		"refresh_token": {refreshToken},
	}
	if clientSecret != "" {
		form.Set("client_secret", clientSecret)
	}
	return c.requestToken(ctx, form)
}

func (c *Client) requestToken(ctx context.Context, form url.Values) (*TokenResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/oauth2/token",
		strings.NewReader(form.Encode()),
		map[string]string{"Content-Type": formContentType},
	)
	if err != nil {
		return nil, err
	}
	var out TokenResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// Introspect asks whether token is active, authenticating as the client
// with HTTP Basic.
func (c *Client) Introspect(ctx context.Context, clientID, clientSecret, token, hint string) (*IntrospectionResponse, error) {
	form := url.Values{"token": {token}}
	if hint != "" {
		form.Set("token_type_hint", hint)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/oauth2/introspect", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", formContentType)
	req.SetBasicAuth(clientID, clientSecret)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}

	var raw map[string]any
	if err := decodeJSON(resp, &raw, http.StatusOK); err != nil {
		return nil, err
	}
	out := &IntrospectionResponse{Claims: maps.Clone(raw)}
	out.Active, _ = raw["active"].(bool)
	delete(out.Claims, "active")
	return out, nil
}

// Logout revokes the refresh token for the client.
func (c *Client) Logout(ctx context.Context, clientID, clientSecret, refreshToken string) error {
	form := url.Values{
		"client_id":     {clientID},
		"refresh_token": {refreshToken},
	}
	if clientSecret != "" {
		form.Set("client_secret", clientSecret)
	}

	resp, err := c.doRequest(ctx, http.MethodPost, "/oauth2/logout",
		strings.NewReader(form.Encode()),
		map[string]string{"Content-Type": formContentType},
	)
	if err != nil {
		return err
	}
	return decodeJSON(resp, nil, http.StatusNoContent)
}

// DecodeClaims returns the unverified payload of a JWT. Useful in tests and
// debugging only.
func DecodeClaims(token string) (map[string]any, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, ErrInvalidToken
	}
	raw, err := base64URL(parts[1])
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
