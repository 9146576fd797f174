package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/idp/internal/idp/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite, postgres)
// implement this. Sub-repositories are exposed as methods so a Tx can hand
// out the same repositories bound to the transaction.
type Store interface {
	Tenants() Tenants
	Applications() Applications
	Keys() Keys
	Users() Users
	Registrations() Registrations
	Groups() Groups
	Roles() Roles
	APIKeys() APIKeys
	RefreshTokens() RefreshTokens

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction. If fn returns an error the
	// transaction is rolled back, otherwise it is committed.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases the underlying connection pool.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Tenants interface {
	GetTenantByID(ctx context.Context, id string) (domain.Tenant, error)
	ListTenants(ctx context.Context) ([]domain.Tenant, error)

	// UpsertTenant inserts or replaces the tenant with the same id.
	UpsertTenant(ctx context.Context, t domain.Tenant) error
}

type Applications interface {
	GetApplicationByID(ctx context.Context, id string) (domain.Application, error)
	ListApplicationsByTenant(ctx context.Context, tenantID string) ([]domain.Application, error)
	UpsertApplication(ctx context.Context, a domain.Application) error
}

type Keys interface {
	GetKeyByID(ctx context.Context, id string) (domain.Key, error)

	// ListKeys returns every key ordered by creation (oldest first).
	ListKeys(ctx context.Context) ([]domain.Key, error)
	UpsertKey(ctx context.Context, k domain.Key) error
}

type Users interface {
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByLoginID resolves a login id against email (case-insensitive)
	// first and username second.
	GetUserByLoginID(ctx context.Context, loginID string) (domain.User, error)
	UpsertUser(ctx context.Context, u domain.User) error
}

type Registrations interface {
	GetRegistration(ctx context.Context, userID, applicationID string) (domain.UserRegistration, error)

	// UpsertRegistration inserts or replaces the (user, application)
	// registration, including its password hash.
	UpsertRegistration(ctx context.Context, r domain.UserRegistration) error

	// SaveAuthorization stores a pending authorization code on the
	// (user, application) registration, creating the row when missing. The
	// password hash of an existing row is left untouched.
	SaveAuthorization(ctx context.Context, r domain.UserRegistration) (domain.UserRegistration, error)

	// ConsumeCode atomically clears the pending code whose fingerprint is
	// codeHash if it was issued for applicationID and has not expired at now,
	// and returns the registration with its pending authorization data. A
	// second call with the same hash, or a call for another application,
	// returns ErrNotFound and leaves the code untouched.
	ConsumeCode(ctx context.Context, applicationID, codeHash string, now time.Time) (domain.UserRegistration, error)

	// ClearExpiredCodes drops pending codes that expired at or before now.
	ClearExpiredCodes(ctx context.Context, now time.Time) (int64, error)
}

type Groups interface {
	GetGroupByID(ctx context.Context, id string) (domain.Group, error)
	UpsertGroup(ctx context.Context, g domain.Group) error

	// AddMember is a no-op when the membership already exists.
	AddMember(ctx context.Context, m domain.GroupMember) error
	ListMembershipsByUser(ctx context.Context, userID string) ([]domain.GroupMember, error)
}

type Roles interface {
	GetRoleByID(ctx context.Context, id string) (domain.ApplicationRole, error)
	ListRolesByApplication(ctx context.Context, applicationID string) ([]domain.ApplicationRole, error)
	ListDefaultRoles(ctx context.Context, applicationID string) ([]domain.ApplicationRole, error)
	UpsertRole(ctx context.Context, r domain.ApplicationRole) error

	// LinkGroup is a no-op when the edge already exists.
	LinkGroup(ctx context.Context, e domain.GroupApplicationRole) error
	ListRoleIDsByGroup(ctx context.Context, groupID string) ([]string, error)
}

type APIKeys interface {
	// GetAPIKeyByHash looks a key up by the fingerprint of its secret.
	GetAPIKeyByHash(ctx context.Context, keyHash string) (domain.AuthenticationKey, error)
	UpsertAPIKey(ctx context.Context, k domain.AuthenticationKey) error
}

type RefreshTokens interface {
	// UpsertRefreshToken replaces the single refresh token row of
	// (application, user) in one statement and returns the row id, which is
	// stable across rotations.
	UpsertRefreshToken(ctx context.Context, t domain.RefreshToken) (string, error)

	// RotateRefreshToken swaps the row whose token_hash is oldHash to the
	// new token in one statement. It returns ErrNotFound when oldHash is no
	// longer the live token, so a refresh token is redeemed at most once.
	RotateRefreshToken(ctx context.Context, oldHash string, t domain.RefreshToken) (string, error)

	GetRefreshTokenByHash(ctx context.Context, tokenHash string) (domain.RefreshToken, error)
	GetRefreshToken(ctx context.Context, applicationID, userID string) (domain.RefreshToken, error)

	// DeleteRefreshToken removes the (application, user) row and reports
	// whether one existed.
	DeleteRefreshToken(ctx context.Context, applicationID, userID string) (bool, error)
	DeleteRefreshTokenByHash(ctx context.Context, tokenHash string) (bool, error)

	DeleteExpiredRefreshTokens(ctx context.Context, now time.Time) (int64, error)
}
