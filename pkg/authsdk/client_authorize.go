package authsdk

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/aussiebroadwan/idp/pkg/cryptox"
)

// PKCEChallenge is a verifier and its derived challenge.
type PKCEChallenge struct {
	Verifier  string
	Challenge string
	Method    string
}

// GeneratePKCEChallenge creates an S256 challenge from a 43 character
// verifier.
func GeneratePKCEChallenge() (*PKCEChallenge, error) {
	verifier, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return nil, err
	}
	return &PKCEChallenge{
		Verifier:  verifier,
		Challenge: cryptox.S256Challenge(verifier),
		Method:    "S256",
	}, nil
}

// AuthorizeParams are the query parameters of an authorization request.
type AuthorizeParams struct {
	ClientID    string
	RedirectURI string
	Scope       string
	State       string
	TenantID    string
	PKCE        *PKCEChallenge
}

func (p AuthorizeParams) values() url.Values {
	q := url.Values{
		"response_type": {"code"},
		"client_id":     {p.ClientID},
	}
	set := func(k, v string) {
		if v != "" {
			q.Set(k, v)
		}
	}
	set("redirect_uri", p.RedirectURI)
	set("scope", p.Scope)
	set("state", p.State)
	set("tenantId", p.TenantID)
	if p.PKCE != nil {
		q.Set("code_challenge", p.PKCE.Challenge)
		q.Set("code_challenge_method", p.PKCE.Method)
	}
	return q
}

// BuildAuthorizeURL renders the URL a browser is sent to.
func (c *Client) BuildAuthorizeURL(p AuthorizeParams) string {
	return c.BaseURL + "/oauth2/authorize?" + p.values().Encode()
}

// Prompt performs GET /oauth2/authorize and returns the login prompt.
func (c *Client) Prompt(ctx context.Context, p AuthorizeParams) (*LoginPrompt, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/oauth2/authorize?"+p.values().Encode(), nil, nil)
	if err != nil {
		return nil, err
	}
	var out LoginPrompt
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// LoginRequest is a login form submission.
type LoginRequest struct {
	AuthorizeParams

	LoginID  string
	Password string
}

// Login submits credentials to POST /oauth2/authorize and returns the code
// and state carried by the redirect.
func (c *Client) Login(ctx context.Context, req LoginRequest) (code, state string, err error) {
	form := req.values()
	form.Set("loginId", req.LoginID)
	form.Set("password", req.Password)

	resp, err := c.doRequest(ctx, http.MethodPost,
		"/oauth2/authorize?client_id="+url.QueryEscape(req.ClientID),
		strings.NewReader(form.Encode()),
		map[string]string{"Content-Type": "application/x-www-form-urlencoded"},
	)
	if err != nil {
		return "", "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusFound {
		body, _ := io.ReadAll(resp.Body)
		return "", "", parseErrorResponse(resp, body)
	}

	loc, err := url.Parse(resp.Header.Get("Location"))
	if err != nil {
		return "", "", fmt.Errorf("authsdk: parse redirect: %w", err)
	}
	code = loc.Query().Get("code")
	if code == "" {
		return "", "", errors.New("authsdk: redirect carried no code")
	}
	return code, loc.Query().Get("state"), nil
}
