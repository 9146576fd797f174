package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/aussiebroadwan/idp/internal/idp/domain"
	"github.com/aussiebroadwan/idp/internal/idp/metrics"
	"github.com/aussiebroadwan/idp/internal/idp/store"
	"github.com/aussiebroadwan/idp/pkg/cryptox"
	"github.com/aussiebroadwan/idp/pkg/jwtx"
	"github.com/aussiebroadwan/idp/pkg/slogx"
)

// OIDC scopes every application may grant in addition to its own.
const (
	ScopeOpenID        = "openid"
	ScopeOfflineAccess = "offline_access"
	ScopeProfile       = "profile"
	ScopeEmail         = "email"
)

var standardScopes = []string{ScopeOpenID, ScopeOfflineAccess, ScopeProfile, ScopeEmail}

// TokenService implements the token, introspection, userinfo and logout
// endpoints.
type TokenService struct {
	Store    store.Store
	Resolver *KeyResolver
	Signer   *TokenSigner
	Roles    *RoleResolver
	Hasher   *cryptox.Hasher
	Metrics  *metrics.Metrics
	Now      func() time.Time
}

// TokenRequest is the parsed body of POST /oauth2/token. Client credentials
// come from the form or from HTTP Basic.
type TokenRequest struct {
	GrantType    string
	ClientID     string
	ClientSecret string

	Code         string
	CodeVerifier string
	RedirectURI  string

	LoginID  string
	Password string

	RefreshToken string
	Scope        string
}

// TokenResponse mirrors the token endpoint body.
type TokenResponse struct {
	IDToken        string `json:"id_token,omitempty"`
	AccessToken    string `json:"access_token"`
	RefreshToken   string `json:"refresh_token,omitempty"`
	RefreshTokenID string `json:"refreshTokenId,omitempty"`
	TokenType      string `json:"token_type"`
	ExpiresIn      int    `json:"expires_in"`
	Scope          string `json:"scope,omitempty"`
}

func (s *TokenService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Exchange runs one grant. Checks happen in a fixed order: required input,
// then the application, then client authentication and grant permission,
// then the grant's own state.
func (s *TokenService) Exchange(ctx context.Context, req TokenRequest) (*TokenResponse, error) {
	if err := validateTokenRequest(req); err != nil {
		return nil, err
	}

	keys, err := s.authenticateClient(ctx, req.ClientID, req.ClientSecret, req.GrantType == domain.GrantClientCredentials)
	if err != nil {
		return nil, err
	}
	if !keys.Application.GrantEnabled(req.GrantType) {
		return nil, ErrUnauthorizedClient
	}

	var resp *TokenResponse
	switch req.GrantType {
	case domain.GrantAuthorizationCode:
		resp, err = s.exchangeAuthorizationCode(ctx, keys, req)
	case domain.GrantPassword:
		resp, err = s.exchangePassword(ctx, keys, req)
	case domain.GrantClientCredentials:
		resp, err = s.exchangeClientCredentials(ctx, keys, req)
	case domain.GrantRefreshToken:
		resp, err = s.exchangeRefreshToken(ctx, keys, req)
	}
	if err != nil {
		return nil, err
	}

	s.Metrics.TokenIssued(req.GrantType)
	slogx.FromContext(ctx).Info("tokens issued",
		"grant", req.GrantType,
		"application_id", keys.Application.ID,
		"refresh", resp.RefreshToken != "",
	)
	return resp, nil
}

func validateTokenRequest(req TokenRequest) error {
	if req.GrantType == "" {
		return invalid(ErrInvalidRequest, "grant_type is required")
	}
	if !slices.Contains(domain.KnownGrants, req.GrantType) {
		return invalid(ErrUnsupportedGrantType, "grant_type %q is not supported", req.GrantType)
	}
	if strings.TrimSpace(req.ClientID) == "" {
		return invalid(ErrInvalidRequest, "client_id is required")
	}

	switch req.GrantType {
	case domain.GrantAuthorizationCode:
		if req.Code == "" {
			return invalid(ErrInvalidRequest, "code is required")
		}
	case domain.GrantPassword:
		if strings.TrimSpace(req.LoginID) == "" {
			return invalid(ErrInvalidRequest, "loginId is required")
		}
		if req.Password == "" {
			return invalid(ErrInvalidRequest, "password is required")
		}
	case domain.GrantClientCredentials:
		if req.ClientSecret == "" {
			return invalid(ErrInvalidRequest, "client_secret is required")
		}
	case domain.GrantRefreshToken:
		if req.RefreshToken == "" {
			return invalid(ErrInvalidRequest, "refresh_token is required")
		}
	}
	return nil
}

// authenticateClient resolves the application and checks the client secret
// against its stored hash. A supplied secret must match; requireSecret makes
// it mandatory. Inactive applications are refused.
func (s *TokenService) authenticateClient(ctx context.Context, clientID, secret string, requireSecret bool) (*ResolvedKeys, error) {
	keys, err := s.Resolver.Resolve(ctx, clientID)
	if err != nil {
		return nil, err
	}

	configured := keys.Application.Config.OAuth.ClientSecretHash
	switch {
	case secret != "":
		if configured == "" || !s.Hasher.Compare(secret, configured) {
			return nil, ErrInvalidClient
		}
	case requireSecret:
		return nil, ErrInvalidClient
	}

	if !keys.Application.Active {
		return nil, ErrUnauthorizedClient
	}
	return keys, nil
}

func (s *TokenService) exchangeAuthorizationCode(ctx context.Context, keys *ResolvedKeys, req TokenRequest) (*TokenResponse, error) {
	now := s.now()

	// Codes issued to another client do not match and stay usable.
	reg, err := s.Store.Registrations().ConsumeCode(ctx, keys.Application.ID, cryptox.FingerprintToken(req.Code), now)
	if errors.Is(err, store.ErrNotFound) {
		return nil, invalid(ErrInvalidGrant, "authorization code is invalid, expired, already used or issued to another client")
	}
	if err != nil {
		return nil, fmt.Errorf("consume code: %w", err)
	}
	if reg.Data.RedirectURI != "" && req.RedirectURI != "" && req.RedirectURI != reg.Data.RedirectURI {
		return nil, invalid(ErrInvalidGrant, "redirect_uri does not match the authorization request")
	}
	if !verifyCodeVerifier(reg.Data.CodeChallenge, reg.Data.CodeChallengeMethod, req.CodeVerifier) {
		return nil, ErrPKCEMismatch
	}
	if !reg.Data.HasScope(ScopeOpenID) {
		return nil, invalid(ErrInvalidScope, "authorization was not granted the openid scope")
	}

	user, err := s.Store.Users().GetUserByID(ctx, reg.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, invalid(ErrInvalidGrant, "user no longer exists")
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if !user.Active {
		return nil, ErrInvalidCredentials
	}

	return s.issue(ctx, issueParams{
		keys:     keys,
		user:     &user,
		scope:    grantScopes(reg.Data.Scope, &keys.Application),
		nonce:    reg.Data.Nonce,
		authTime: now,
	})
}

func (s *TokenService) exchangePassword(ctx context.Context, keys *ResolvedKeys, req TokenRequest) (*TokenResponse, error) {
	user, _, err := authenticate(ctx, s.Store, s.Hasher, req.LoginID, req.Password, keys.Application.ID)
	if errors.Is(err, errUnknownLogin) {
		return nil, invalid(ErrInvalidGrant, "unknown user")
	}
	if err != nil {
		return nil, err
	}

	return s.issue(ctx, issueParams{
		keys:     keys,
		user:     &user,
		scope:    grantScopes(req.Scope, &keys.Application),
		authTime: s.now(),
	})
}

func (s *TokenService) exchangeClientCredentials(ctx context.Context, keys *ResolvedKeys, req TokenRequest) (*TokenResponse, error) {
	scope := grantScopes(req.Scope, &keys.Application)
	scope = strings.Join(slices.DeleteFunc(strings.Fields(scope), func(sc string) bool {
		return sc == ScopeOpenID || sc == ScopeOfflineAccess
	}), " ")

	return s.issue(ctx, issueParams{keys: keys, scope: scope})
}

func (s *TokenService) exchangeRefreshToken(ctx context.Context, keys *ResolvedKeys, req TokenRequest) (*TokenResponse, error) {
	v, err := s.Signer.CheckValidity(ctx, req.RefreshToken, keys.AccessKey, KindRefresh)
	if err != nil {
		return nil, err
	}
	if !v.Active || !slices.Contains(v.Claims.Audience, keys.Application.ID) {
		return nil, invalid(ErrInvalidGrant, "refresh token is invalid or revoked")
	}

	scope := v.Claims.Scope
	if req.Scope != "" {
		for _, sc := range strings.Fields(req.Scope) {
			if !v.Claims.HasScope(sc) {
				return nil, invalid(ErrInvalidScope, "scope %q exceeds the original grant", sc)
			}
		}
		scope = strings.Join(strings.Fields(req.Scope), " ")
	}

	user, err := s.Store.Users().GetUserByID(ctx, v.Claims.Subject)
	if errors.Is(err, store.ErrNotFound) {
		return nil, invalid(ErrInvalidGrant, "user no longer exists")
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if !user.Active {
		return nil, ErrInvalidCredentials
	}

	var authTime time.Time
	if v.Claims.AuthTime != nil {
		authTime = v.Claims.AuthTime.Time
	}
	return s.issue(ctx, issueParams{
		keys:       keys,
		user:       &user,
		scope:      scope,
		authTime:   authTime,
		rotateFrom: cryptox.FingerprintToken(req.RefreshToken),
	})
}

type issueParams struct {
	keys     *ResolvedKeys
	user     *domain.User // nil for client credentials
	scope    string
	nonce    string
	authTime time.Time

	// rotateFrom is the fingerprint of the refresh token being exchanged.
	rotateFrom string
}

// issue signs the access token and, depending on scope and application
// settings, an id token and a refresh token.
func (s *TokenService) issue(ctx context.Context, p issueParams) (*TokenResponse, error) {
	app := &p.keys.Application
	tenant := &p.keys.Tenant
	now := s.now()
	issuer := s.Signer.Issuer
	accessTTL := app.AccessTokenTTL(tenant)

	subject := app.ID
	var roles []string
	var roleClaims map[string]any
	if p.user != nil {
		subject = p.user.ID
		roleIDs, err := s.Roles.RolesForUserAndApplication(ctx, p.user.ID, app.ID)
		if err != nil {
			return nil, err
		}
		names, err := s.Roles.RoleNames(ctx, roleIDs)
		if err != nil {
			return nil, err
		}
		roles = plainRoles(names)
		roleClaims = RoleClaims(app.ID, names)
	}
	audience := []string{app.ID}

	access := &jwtx.Claims{
		RegisteredClaims: jwtx.NewRegistered(issuer, subject, audience, accessTTL, now),
		TokenUse:         jwtx.UseAccess,
		Scope:            p.scope,
		Roles:            roles,
		TenantID:         tenant.ID,
		ClientID:         app.ID,
	}
	accessToken, err := s.Signer.SignFor(p.keys, access, KindAccess)
	if err != nil {
		return nil, err
	}

	resp := &TokenResponse{
		AccessToken: accessToken,
		TokenType:   "Bearer",
		ExpiresIn:   int(accessTTL / time.Second),
		Scope:       p.scope,
	}
	if p.user == nil {
		return resp, nil
	}

	var authTime *jwt.NumericDate
	if !p.authTime.IsZero() {
		authTime = jwt.NewNumericDate(p.authTime)
	}

	if access.HasScope(ScopeOpenID) {
		id := &jwtx.Claims{
			RegisteredClaims:  jwtx.NewRegistered(issuer, subject, audience, app.IDTokenTTL(tenant), now),
			TokenUse:          jwtx.UseID,
			Roles:             roles,
			TenantID:          tenant.ID,
			Email:             p.user.Email,
			PreferredUsername: p.user.Username,
			Nonce:             p.nonce,
			AuthTime:          authTime,
			Extra:             roleClaims,
		}
		if resp.IDToken, err = s.Signer.SignFor(p.keys, id, KindID); err != nil {
			return nil, err
		}
	}

	if access.HasScope(ScopeOfflineAccess) && app.GrantEnabled(domain.GrantRefreshToken) {
		refreshTTL := app.RefreshTokenTTL(tenant)
		refresh := &jwtx.Claims{
			RegisteredClaims: jwtx.NewRegistered(issuer, subject, audience, refreshTTL, now),
			TokenUse:         jwtx.UseRefresh,
			Scope:            p.scope,
			TenantID:         tenant.ID,
			ClientID:         app.ID,
			AuthTime:         authTime,
		}
		token, err := s.Signer.SignFor(p.keys, refresh, KindRefresh)
		if err != nil {
			return nil, err
		}

		row := domain.RefreshToken{
			ApplicationID: app.ID,
			UserID:        p.user.ID,
			TenantID:      tenant.ID,
			TokenHash:     cryptox.FingerprintToken(token),
			StartInstant:  now,
			ExpiresAt:     now.Add(refreshTTL),
		}
		var rowID string
		if p.rotateFrom != "" {
			rowID, err = s.Store.RefreshTokens().RotateRefreshToken(ctx, p.rotateFrom, row)
			if errors.Is(err, store.ErrNotFound) {
				return nil, invalid(ErrInvalidGrant, "refresh token is invalid or revoked")
			}
		} else {
			rowID, err = s.Store.RefreshTokens().UpsertRefreshToken(ctx, row)
		}
		if err != nil {
			return nil, fmt.Errorf("store refresh token: %w", err)
		}
		resp.RefreshToken = token
		resp.RefreshTokenID = rowID
	}

	return resp, nil
}

// grantScopes narrows requested to what the application may grant. With no
// request the application's configured scopes are granted. Applications
// without a configured scope list grant whatever is asked.
func grantScopes(requested string, app *domain.Application) string {
	configured := app.Config.OAuth.Scopes
	fields := strings.Fields(requested)
	if len(fields) == 0 {
		return strings.Join(configured, " ")
	}
	if len(configured) == 0 {
		return strings.Join(dedupe(fields), " ")
	}

	granted := make([]string, 0, len(fields))
	for _, sc := range dedupe(fields) {
		if slices.Contains(configured, sc) || slices.Contains(standardScopes, sc) {
			granted = append(granted, sc)
		}
	}
	return strings.Join(granted, " ")
}

// Introspect reports whether token is active for the client. The client
// authenticates with its secret. hint selects the token kind; without one
// the token_use claim decides.
func (s *TokenService) Introspect(ctx context.Context, clientID, clientSecret, token, hint string) (Validity, error) {
	if strings.TrimSpace(clientID) == "" {
		return Validity{}, invalid(ErrInvalidRequest, "client_id is required")
	}
	if token == "" {
		return Validity{}, invalid(ErrInvalidRequest, "token is required")
	}
	kind, err := kindFromHint(hint, token)
	if err != nil {
		return Validity{}, err
	}

	keys, err := s.authenticateClient(ctx, clientID, clientSecret, true)
	if err != nil {
		return Validity{}, err
	}

	v, err := s.Signer.CheckValidity(ctx, token, keys.keyFor(kind), kind)
	if err != nil {
		return Validity{}, err
	}
	if v.Active && !slices.Contains(v.Claims.Audience, keys.Application.ID) {
		return Validity{}, nil
	}
	return v, nil
}

func kindFromHint(hint, token string) (TokenKind, error) {
	switch hint {
	case "access_token":
		return KindAccess, nil
	case "id_token":
		return KindID, nil
	case "refresh_token":
		return KindRefresh, nil
	case "":
		if c, err := jwtx.Unverified(token); err == nil {
			switch c.TokenUse {
			case jwtx.UseID:
				return KindID, nil
			case jwtx.UseRefresh:
				return KindRefresh, nil
			}
		}
		return KindAccess, nil
	default:
		return "", invalid(ErrInvalidRequest, "unsupported token_type_hint %q", hint)
	}
}

// Logout revokes the refresh token of the client. Unknown tokens are
// ignored so logout can be retried.
func (s *TokenService) Logout(ctx context.Context, clientID, clientSecret, refreshToken string) error {
	if strings.TrimSpace(clientID) == "" {
		return invalid(ErrInvalidRequest, "client_id is required")
	}
	if refreshToken == "" {
		return invalid(ErrInvalidRequest, "refresh_token is required")
	}

	keys, err := s.authenticateClient(ctx, clientID, clientSecret, false)
	if err != nil {
		return err
	}

	hash := cryptox.FingerprintToken(refreshToken)
	row, err := s.Store.RefreshTokens().GetRefreshTokenByHash(ctx, hash)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("lookup refresh token: %w", err)
	}
	if row.ApplicationID != keys.Application.ID {
		return nil
	}

	if _, err := s.Store.RefreshTokens().DeleteRefreshTokenByHash(ctx, hash); err != nil {
		return fmt.Errorf("delete refresh token: %w", err)
	}
	slogx.FromContext(ctx).Info("refresh token revoked", "application_id", row.ApplicationID, "user_id", row.UserID)
	return nil
}

// RevokeRefreshTokens removes the refresh token of (applicationID, userID)
// and reports whether one existed.
func (s *TokenService) RevokeRefreshTokens(ctx context.Context, applicationID, userID string) (bool, error) {
	if applicationID == "" || userID == "" {
		return false, invalid(ErrInvalidRequest, "applicationId and userId are required")
	}
	return s.Store.RefreshTokens().DeleteRefreshToken(ctx, applicationID, userID)
}

// UserInfo is the OIDC userinfo body.
type UserInfo struct {
	Subject           string   `json:"sub"`
	Email             string   `json:"email,omitempty"`
	PreferredUsername string   `json:"preferred_username,omitempty"`
	TenantID          string   `json:"tid,omitempty"`
	Roles             []string `json:"roles,omitempty"`
}

// UserInfo describes the user an access token was issued to.
func (s *TokenService) UserInfo(ctx context.Context, claims *jwtx.Claims) (*UserInfo, error) {
	user, err := s.Store.Users().GetUserByID(ctx, claims.Subject)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}

	info := &UserInfo{Subject: user.ID, TenantID: user.TenantID, Roles: claims.Roles}
	if claims.HasScope(ScopeEmail) || claims.HasScope(ScopeOpenID) {
		info.Email = user.Email
	}
	if claims.HasScope(ScopeProfile) || claims.HasScope(ScopeOpenID) {
		info.PreferredUsername = user.Username
	}
	return info, nil
}
