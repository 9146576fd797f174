package domain

import (
	"encoding/json"
	"slices"
	"strings"
	"time"
)

type User struct {
	ID        string
	Email     string
	Username  string
	TenantID  string
	Active    bool
	Data      json.RawMessage // opaque profile
	CreatedAt time.Time
}

// UserRegistration joins a user to an application. AuthenticationToken is
// the fingerprint of the pending authorization code, empty once consumed.
type UserRegistration struct {
	ID                  string
	UserID              string
	ApplicationID       string
	PasswordHash        string
	AuthenticationToken string
	Data                RegistrationData
	CodeExpiresAt       *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// RegistrationData is the state of the in-flight authorization.
type RegistrationData struct {
	CodeChallenge       string `json:"code_challenge,omitempty"`
	CodeChallengeMethod string `json:"code_challenge_method,omitempty"`
	Scope               string `json:"scope,omitempty"`
	RedirectURI         string `json:"redirect_uri,omitempty"`
	Nonce               string `json:"nonce,omitempty"`
}

// HasScope reports whether the pending authorization requested scope.
func (d RegistrationData) HasScope(scope string) bool {
	return slices.Contains(strings.Fields(d.Scope), scope)
}
