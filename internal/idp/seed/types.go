package seed

// Document is the provisioning file. Every entity carries its own id so
// applying the same document twice leaves the store unchanged.
type Document struct {
	Keys         []Key         `yaml:"keys"`
	Tenants      []Tenant      `yaml:"tenants"`
	Applications []Application `yaml:"applications"`
	Users        []User        `yaml:"users"`
	Roles        []Role        `yaml:"roles"`
	Groups       []Group       `yaml:"groups"`
	APIKeys      []APIKey      `yaml:"apiKeys"`
}

// Key declares signing material. With Generate set and no material given,
// fresh material is created for Algorithm on every apply that finds the key
// missing from the store.
type Key struct {
	ID         string `yaml:"id"`
	Kid        string `yaml:"kid"`
	Algorithm  string `yaml:"algorithm"`
	PrivateKey string `yaml:"privateKey"`
	PublicKey  string `yaml:"publicKey"`
	Secret     string `yaml:"secret"`
	Generate   bool   `yaml:"generate"`
}

type Tenant struct {
	ID               string         `yaml:"id"`
	Name             string         `yaml:"name"`
	AccessTokenKeyID string         `yaml:"accessTokenKeyId"`
	IDTokenKeyID     string         `yaml:"idTokenKeyId"`
	Lifetimes        TokenLifetimes `yaml:"lifetimes"`
}

// TokenLifetimes are in seconds.
type TokenLifetimes struct {
	AccessToken  int `yaml:"accessToken"`
	RefreshToken int `yaml:"refreshToken"`
	IDToken      int `yaml:"idToken"`
}

type Application struct {
	ID               string         `yaml:"id"`
	TenantID         string         `yaml:"tenantId"`
	Name             string         `yaml:"name"`
	Active           *bool          `yaml:"active"`
	AccessTokenKeyID string         `yaml:"accessTokenKeyId"`
	IDTokenKeyID     string         `yaml:"idTokenKeyId"`
	OAuth            OAuth          `yaml:"oauth"`
	Lifetimes        TokenLifetimes `yaml:"lifetimes"`
}

// OAuth configures the client. ClientSecretHash takes a value produced by
// `idp hash-password`; ClientSecret is hashed on apply.
type OAuth struct {
	ClientSecret           string   `yaml:"clientSecret"`
	ClientSecretHash       string   `yaml:"clientSecretHash"`
	AuthorizedRedirectURLs []string `yaml:"authorizedRedirectURLs"`
	AuthorizedOriginURLs   []string `yaml:"authorizedOriginURLs"`
	EnabledGrants          []string `yaml:"enabledGrants"`
	LogoutURL              string   `yaml:"logoutURL"`
	Scopes                 []string `yaml:"scopes"`
	RequirePKCE            bool     `yaml:"requirePKCE"`
}

type User struct {
	ID            string         `yaml:"id"`
	Email         string         `yaml:"email"`
	Username      string         `yaml:"username"`
	TenantID      string         `yaml:"tenantId"`
	Active        *bool          `yaml:"active"`
	Data          map[string]any `yaml:"data"`
	Registrations []Registration `yaml:"registrations"`
}

// Registration sets the per-application password. PasswordHash takes a
// value produced by `idp hash-password`; Password is hashed on apply.
type Registration struct {
	ApplicationID string `yaml:"applicationId"`
	Password      string `yaml:"password"`
	PasswordHash  string `yaml:"passwordHash"`
}

type Role struct {
	ID            string `yaml:"id"`
	ApplicationID string `yaml:"applicationId"`
	Name          string `yaml:"name"`
	IsDefault     bool   `yaml:"isDefault"`
	Description   string `yaml:"description"`
}

type Group struct {
	ID       string   `yaml:"id"`
	TenantID string   `yaml:"tenantId"`
	Name     string   `yaml:"name"`
	Members  []string `yaml:"members"`
	Roles    []string `yaml:"roles"`
}

// APIKey is stored by the fingerprint of Key. A nil Endpoints allows every
// endpoint; an empty list allows none.
type APIKey struct {
	ID          string     `yaml:"id"`
	Key         string     `yaml:"key"`
	TenantID    string     `yaml:"tenantId"`
	Description string     `yaml:"description"`
	Endpoints   []Endpoint `yaml:"endpoints"`
}

type Endpoint struct {
	URL     string   `yaml:"url"`
	Methods []string `yaml:"methods"`
}
