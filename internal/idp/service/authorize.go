package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/aussiebroadwan/idp/internal/idp/domain"
	"github.com/aussiebroadwan/idp/internal/idp/store"
	"github.com/aussiebroadwan/idp/pkg/cryptox"
	"github.com/aussiebroadwan/idp/pkg/slogx"
)

// DefaultCodeTTL is the lifetime of an authorization code.
const DefaultCodeTTL = 5 * time.Minute

// DefaultScope is granted when an authorization request names no scope.
const DefaultScope = "openid"

// PKCE methods.
const (
	PKCEMethodS256  = "S256"
	PKCEMethodPlain = "plain"
)

// AuthorizeService runs the interactive half of the authorization code
// flow: the login prompt and the credential check that mints a code.
type AuthorizeService struct {
	Store   store.Store
	Hasher  *cryptox.Hasher
	CodeTTL time.Duration
	Now     func() time.Time
}

// AuthorizeRequest carries the OAuth parameters of /oauth2/authorize.
type AuthorizeRequest struct {
	ClientID            string
	RedirectURI         string
	ResponseType        string
	Scope               string
	State               string
	Nonce               string
	CodeChallenge       string
	CodeChallengeMethod string
	TenantID            string
}

// Prompt is the login form description returned for GET requests.
type Prompt struct {
	AuthorizeRequest
	ApplicationName string
}

// LoginRequest is an authorization request plus the user's credentials.
type LoginRequest struct {
	AuthorizeRequest
	LoginID  string
	Password string
}

// AuthorizeResult is where the user agent goes next.
type AuthorizeResult struct {
	RedirectURL string
	Code        string
}

func (s *AuthorizeService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *AuthorizeService) codeTTL() time.Duration {
	if s.CodeTTL > 0 {
		return s.CodeTTL
	}
	return DefaultCodeTTL
}

// Prompt validates client_id and echoes the request back for the login
// form.
func (s *AuthorizeService) Prompt(ctx context.Context, req AuthorizeRequest) (*Prompt, error) {
	if strings.TrimSpace(req.ClientID) == "" {
		return nil, invalid(ErrInvalidRequest, "client_id is required")
	}
	app, err := s.application(ctx, req.ClientID)
	if err != nil {
		return nil, err
	}
	if req.TenantID == "" {
		req.TenantID = app.TenantID
	}
	return &Prompt{AuthorizeRequest: req, ApplicationName: app.Name}, nil
}

// Login verifies the user's password for the application, stores a fresh
// authorization code on the registration and returns the redirect carrying
// it.
func (s *AuthorizeService) Login(ctx context.Context, req LoginRequest) (*AuthorizeResult, error) {
	log := slogx.FromContext(ctx)

	switch {
	case strings.TrimSpace(req.ClientID) == "":
		return nil, invalid(ErrInvalidRequest, "client_id is required")
	case strings.TrimSpace(req.LoginID) == "":
		return nil, invalid(ErrInvalidRequest, "loginId is required")
	case req.Password == "":
		return nil, invalid(ErrInvalidRequest, "password is required")
	case strings.TrimSpace(req.RedirectURI) == "":
		return nil, invalid(ErrInvalidRequest, "redirect_uri is required")
	}
	if req.ResponseType != "" && req.ResponseType != "code" {
		return nil, invalid(ErrUnsupportedResponseType, "response_type must be code")
	}
	challenge, method, err := normalizePKCE(req.CodeChallenge, req.CodeChallengeMethod)
	if err != nil {
		return nil, err
	}
	redirect, err := url.Parse(req.RedirectURI)
	if err != nil || !redirect.IsAbs() {
		return nil, invalid(ErrInvalidRequest, "redirect_uri must be an absolute URL")
	}

	app, err := s.application(ctx, req.ClientID)
	if err != nil {
		return nil, err
	}
	if !app.Active || !app.GrantEnabled(domain.GrantAuthorizationCode) {
		return nil, ErrUnauthorizedClient
	}
	if !app.RedirectAllowed(req.RedirectURI) {
		return nil, ErrRedirectNotAllowed
	}
	if app.Config.OAuth.RequirePKCE && challenge == "" {
		return nil, invalid(ErrInvalidRequest, "code_challenge is required")
	}

	user, reg, err := authenticate(ctx, s.Store, s.Hasher, req.LoginID, req.Password, app.ID)
	if errors.Is(err, errUnknownLogin) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	code, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return nil, err
	}
	scope := strings.Join(strings.Fields(req.Scope), " ")
	if scope == "" {
		scope = DefaultScope
	}
	expires := s.now().Add(s.codeTTL())

	reg.UserID = user.ID
	reg.ApplicationID = app.ID
	reg.AuthenticationToken = cryptox.FingerprintToken(code)
	reg.CodeExpiresAt = &expires
	reg.Data = domain.RegistrationData{
		CodeChallenge:       challenge,
		CodeChallengeMethod: method,
		Scope:               scope,
		RedirectURI:         req.RedirectURI,
		Nonce:               req.Nonce,
	}
	if _, err := s.Store.Registrations().SaveAuthorization(ctx, reg); err != nil {
		return nil, fmt.Errorf("save authorization: %w", err)
	}

	q := redirect.Query()
	q.Set("code", code)
	if req.State != "" {
		q.Set("state", req.State)
	}
	redirect.RawQuery = q.Encode()

	log.Info("authorization code issued", "application_id", app.ID, "user_id", user.ID)
	return &AuthorizeResult{RedirectURL: redirect.String(), Code: code}, nil
}

func (s *AuthorizeService) application(ctx context.Context, clientID string) (domain.Application, error) {
	app, err := s.Store.Applications().GetApplicationByID(ctx, clientID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Application{}, invalid(ErrApplicationNotFound, "unknown client_id %s", clientID)
	}
	if err != nil {
		return domain.Application{}, fmt.Errorf("load application: %w", err)
	}
	return app, nil
}

// errUnknownLogin is returned by authenticate when no user has the login
// id. Callers decide whether that is distinguishable from a bad password.
var errUnknownLogin = errors.New("unknown login id")

// authenticate resolves loginID and checks password against the user's
// registration for applicationID. A missing registration, inactive user or
// wrong password are all ErrInvalidCredentials.
func authenticate(
	ctx context.Context,
	s store.Store,
	hasher *cryptox.Hasher,
	loginID, password, applicationID string,
) (domain.User, domain.UserRegistration, error) {
	user, err := s.Users().GetUserByLoginID(ctx, strings.TrimSpace(loginID))
	if errors.Is(err, store.ErrNotFound) {
		return domain.User{}, domain.UserRegistration{}, errUnknownLogin
	}
	if err != nil {
		return domain.User{}, domain.UserRegistration{}, fmt.Errorf("load user: %w", err)
	}

	reg, err := s.Registrations().GetRegistration(ctx, user.ID, applicationID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.User{}, domain.UserRegistration{}, ErrInvalidCredentials
	}
	if err != nil {
		return domain.User{}, domain.UserRegistration{}, fmt.Errorf("load registration: %w", err)
	}

	if !user.Active || reg.PasswordHash == "" || !hasher.Compare(password, reg.PasswordHash) {
		return domain.User{}, domain.UserRegistration{}, ErrInvalidCredentials
	}
	return user, reg, nil
}

// normalizePKCE validates the challenge method. A challenge without a
// method is taken as S256.
func normalizePKCE(challenge, method string) (string, string, error) {
	challenge = strings.TrimSpace(challenge)
	method = strings.TrimSpace(method)

	if challenge == "" {
		if method != "" {
			return "", "", invalid(ErrInvalidRequest, "code_challenge_method without code_challenge")
		}
		return "", "", nil
	}

	switch {
	case method == "", strings.EqualFold(method, PKCEMethodS256):
		return challenge, PKCEMethodS256, nil
	case strings.EqualFold(method, PKCEMethodPlain):
		return challenge, PKCEMethodPlain, nil
	default:
		return "", "", invalid(ErrInvalidRequest, "unsupported code_challenge_method %q", method)
	}
}

// verifyCodeVerifier checks verifier against the stored challenge in
// constant time. An empty challenge accepts any verifier.
func verifyCodeVerifier(challenge, method, verifier string) bool {
	if challenge == "" {
		return true
	}
	if verifier == "" {
		return false
	}

	expected := verifier
	if method == PKCEMethodS256 {
		expected = cryptox.S256Challenge(verifier)
	}
	return subtle.ConstantTimeCompare([]byte(challenge), []byte(expected)) == 1
}
