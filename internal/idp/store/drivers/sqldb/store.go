package sqldb

import (
	"context"
	"database/sql"

	"github.com/aussiebroadwan/idp/internal/idp/store"
)

// Migrator applies the schema of one driver to db.
type Migrator func(db *sql.DB) error

type Store struct {
	db      *sql.DB
	dialect Dialect
	q       *Queries
	migrate Migrator
}

var _ store.Store = (*Store)(nil)

func New(db *sql.DB, d Dialect, migrate Migrator) *Store {
	return &Store{
		db:      db,
		dialect: d,
		q:       newQueries(db, d),
		migrate: migrate,
	}
}

// DB exposes the pool for driver specific maintenance.
func (s *Store) DB() *sql.DB { return s.db }

// Driver names the dialect in use.
func (s *Store) Driver() string { return s.dialect.Name() }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) ApplyMigrations() error {
	if s.migrate == nil {
		return nil
	}
	return s.migrate(s.db)
}

// Tx starts a read/write transaction and returns a Tx-scoped Store.
func (s *Store) Tx(ctx context.Context) (store.Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &txStore{tx: tx, q: newQueries(tx, s.dialect)}, nil
}

// WithTx executes fn within a transaction, automatically handling commit/rollback.
func (s *Store) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	tx, err := s.Tx(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback() // no-op after commit
	}()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) Tenants() store.Tenants             { return &tenantsRepo{q: s.q} }
func (s *Store) Applications() store.Applications   { return &applicationsRepo{q: s.q} }
func (s *Store) Keys() store.Keys                   { return &keysRepo{q: s.q} }
func (s *Store) Users() store.Users                 { return &usersRepo{q: s.q} }
func (s *Store) Registrations() store.Registrations { return &registrationsRepo{q: s.q} }
func (s *Store) Groups() store.Groups               { return &groupsRepo{q: s.q} }
func (s *Store) Roles() store.Roles                 { return &rolesRepo{q: s.q} }
func (s *Store) APIKeys() store.APIKeys             { return &apiKeysRepo{q: s.q} }
func (s *Store) RefreshTokens() store.RefreshTokens { return &refreshTokensRepo{q: s.q} }

type txStore struct {
	tx *sql.Tx
	q  *Queries
}

func (t *txStore) Commit() error   { return t.tx.Commit() }
func (t *txStore) Rollback() error { return t.tx.Rollback() }

// Close is a no-op; the owning Store keeps the pool open.
func (t *txStore) Close() error { return nil }

func (t *txStore) Ping(ctx context.Context) error { return nil }

// Nested transactions are not supported.
func (t *txStore) Tx(ctx context.Context) (store.Tx, error) { return nil, sql.ErrTxDone }

func (t *txStore) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	return sql.ErrTxDone
}

// ApplyMigrations is a no-op; migrations run before any transaction starts.
func (t *txStore) ApplyMigrations() error { return nil }

func (t *txStore) Tenants() store.Tenants             { return &tenantsRepo{q: t.q} }
func (t *txStore) Applications() store.Applications   { return &applicationsRepo{q: t.q} }
func (t *txStore) Keys() store.Keys                   { return &keysRepo{q: t.q} }
func (t *txStore) Users() store.Users                 { return &usersRepo{q: t.q} }
func (t *txStore) Registrations() store.Registrations { return &registrationsRepo{q: t.q} }
func (t *txStore) Groups() store.Groups               { return &groupsRepo{q: t.q} }
func (t *txStore) Roles() store.Roles                 { return &rolesRepo{q: t.q} }
func (t *txStore) APIKeys() store.APIKeys             { return &apiKeysRepo{q: t.q} }
func (t *txStore) RefreshTokens() store.RefreshTokens { return &refreshTokensRepo{q: t.q} }
