package domain

import "time"

type Tenant struct {
	ID               string
	Name             string
	AccessTokenKeyID string
	IDTokenKeyID     string
	Config           TenantConfiguration
	CreatedAt        time.Time
}

// TenantConfiguration holds the token lifetimes applications inherit when
// they do not set their own.
type TenantConfiguration struct {
	AccessTokenTTLSeconds  int `json:"accessTokenTimeToLiveInSeconds,omitempty"`
	RefreshTokenTTLSeconds int `json:"refreshTokenTimeToLiveInSeconds,omitempty"`
	IDTokenTTLSeconds      int `json:"idTokenTimeToLiveInSeconds,omitempty"`
}

// Default lifetimes when neither application nor tenant set one.
const (
	DefaultAccessTokenTTL  = time.Hour
	DefaultRefreshTokenTTL = 30 * 24 * time.Hour
	DefaultIDTokenTTL      = time.Hour
)
