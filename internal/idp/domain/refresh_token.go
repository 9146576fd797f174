package domain

import (
	"encoding/json"
	"time"
)

// RefreshToken is the single live refresh token of a user for an
// application. TokenHash is the fingerprint of the issued token.
type RefreshToken struct {
	ID            string
	ApplicationID string
	UserID        string
	TenantID      string
	TokenHash     string
	StartInstant  time.Time
	ExpiresAt     time.Time
	Data          json.RawMessage
}

func (t *RefreshToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}
