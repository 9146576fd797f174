package httpx_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aussiebroadwan/idp/pkg/httpx"
	"github.com/aussiebroadwan/idp/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func TestBearerToken(t *testing.T) {
	for header, want := range map[string]string{
		"":               "",
		"Bearer abc":     "abc",
		"bearer   abc  ": "abc",
		"raw-api-key":    "raw-api-key",
		"Basic dXNlcjpw": "Basic dXNlcjpw",
	} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		require.Equal(t, want, httpx.BearerToken(req), header)
	}
}

func TestHasContentType(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=utf-8")
	require.True(t, httpx.HasContentType(req, "application/x-www-form-urlencoded"))
	require.False(t, httpx.HasContentType(req, "application/json"))
}

func TestEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	httpx.WriteFailure(rec, http.StatusUnauthorized, "You are not authorized")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	require.JSONEq(t, `{"success":false,"message":"You are not authorized"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	httpx.WriteSuccess(rec, http.StatusOK, []string{"r1"})
	require.JSONEq(t, `{"success":true,"data":["r1"]}`, rec.Body.String())
}

type verifierFunc func(ctx context.Context, tok string) (*jwtx.Claims, error)

func (f verifierFunc) VerifyAccessToken(ctx context.Context, tok string) (*jwtx.Claims, error) {
	return f(ctx, tok)
}

func TestAuthnMiddleware(t *testing.T) {
	v := verifierFunc(func(_ context.Context, tok string) (*jwtx.Claims, error) {
		if tok != "good" {
			return nil, errors.New("bad")
		}
		return &jwtx.Claims{Scope: "openid"}, nil
	})

	var got *jwtx.Claims
	h := httpx.Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = httpx.ClaimsFromContext(r.Context())
	}), httpx.AuthnMiddleware(v), httpx.RequireScope("openid"))

	serve := func(auth string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if auth != "" {
			req.Header.Set("Authorization", auth)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	rec := serve("")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Header().Get("WWW-Authenticate"), "invalid_request")

	rec = serve("Bearer nope")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Header().Get("WWW-Authenticate"), "invalid_token")

	rec = serve("Bearer good")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, got)

	scoped := httpx.Chain(http.NotFoundHandler(), httpx.AuthnMiddleware(verifierFunc(
		func(context.Context, string) (*jwtx.Claims, error) { return &jwtx.Claims{Scope: "profile"}, nil },
	)), httpx.RequireScope("openid"))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer x")
	rec = httptest.NewRecorder()
	scoped.ServeHTTP(rec, req)
	require.Equal(t, http.StatusForbidden, rec.Code)
}
