package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token use values carried in the token_use claim.
const (
	UseAccess  = "access"
	UseID      = "id"
	UseRefresh = "refresh"
)

// Claims is the claim set shared by access, id and refresh tokens. Claims
// that have no dedicated field (for example role claims decoded per client)
// travel in Extra and are flattened into the top level of the payload.
type Claims struct {
	jwt.RegisteredClaims

	TokenUse          string           `json:"token_use,omitempty"`
	Scope             string           `json:"scope,omitempty"`
	Roles             []string         `json:"roles,omitempty"`
	TenantID          string           `json:"tid,omitempty"`
	ClientID          string           `json:"client_id,omitempty"`
	Email             string           `json:"email,omitempty"`
	PreferredUsername string           `json:"preferred_username,omitempty"`
	Nonce             string           `json:"nonce,omitempty"`
	AuthTime          *jwt.NumericDate `json:"auth_time,omitempty"`

	Extra map[string]any `json:"-"`
}

var knownClaims = map[string]struct{}{
	"iss": {}, "sub": {}, "aud": {}, "exp": {}, "nbf": {}, "iat": {}, "jti": {},
	"token_use": {}, "scope": {}, "roles": {}, "tid": {}, "client_id": {},
	"email": {}, "preferred_username": {}, "nonce": {}, "auth_time": {},
}

type claimsAlias Claims

// MarshalJSON flattens Extra into the payload. Registered and typed claims
// always win over an Extra entry with the same name.
func (c Claims) MarshalJSON() ([]byte, error) {
	base, err := json.Marshal(claimsAlias(c))
	if err != nil {
		return nil, err
	}
	if len(c.Extra) == 0 {
		return base, nil
	}

	out := make(map[string]any, len(c.Extra)+8)
	for k, v := range c.Extra {
		if _, reserved := knownClaims[k]; !reserved {
			out[k] = v
		}
	}
	var typed map[string]any
	if err := json.Unmarshal(base, &typed); err != nil {
		return nil, err
	}
	maps.Copy(out, typed)
	return json.Marshal(out)
}

// UnmarshalJSON fills the typed fields and collects everything else into
// Extra.
func (c *Claims) UnmarshalJSON(b []byte) error {
	var a claimsAlias
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	var all map[string]any
	if err := json.Unmarshal(b, &all); err != nil {
		return err
	}
	for k := range knownClaims {
		delete(all, k)
	}
	*c = Claims(a)
	if len(all) > 0 {
		c.Extra = all
	}
	return nil
}

// Map returns the claims as a flat JSON object, the shape introspection
// responses expect.
func (c Claims) Map() map[string]any {
	b, err := c.MarshalJSON()
	if err != nil {
		return map[string]any{}
	}
	var m map[string]any
	_ = json.Unmarshal(b, &m)
	return m
}

// Scopes splits the space delimited scope claim.
func (c Claims) Scopes() []string {
	return strings.Fields(c.Scope)
}

// HasScope reports whether scope was granted.
func (c Claims) HasScope(scope string) bool {
	return slices.Contains(c.Scopes(), scope)
}

// NewRegistered builds the registered claim block for a token valid for ttl
// from now.
func NewRegistered(issuer, subject string, audience []string, ttl time.Duration, now time.Time) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   subject,
		Audience:  jwt.ClaimStrings(audience),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		ID:        NewJTI(),
	}
}

// NewJTI returns a URL-safe random identifier for the jti claim.
func NewJTI() string {
	var b [20]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}
