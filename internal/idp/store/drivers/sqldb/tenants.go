package sqldb

import (
	"context"
	"database/sql"

	"github.com/aussiebroadwan/idp/internal/idp/domain"
)

const tenantColumns = `id, name, access_token_key_id, id_token_key_id, config, created_at`

type tenantsRepo struct {
	q *Queries
}

func (r *tenantsRepo) GetTenantByID(ctx context.Context, id string) (domain.Tenant, error) {
	row := r.q.queryRow(ctx, `SELECT `+tenantColumns+` FROM tenants WHERE id = ?`, id)
	t, err := scanTenant(row)
	return t, r.q.mapErr(err)
}

func (r *tenantsRepo) ListTenants(ctx context.Context) ([]domain.Tenant, error) {
	rows, err := r.q.query(ctx, `SELECT `+tenantColumns+` FROM tenants ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanTenant)
}

func (r *tenantsRepo) UpsertTenant(ctx context.Context, t domain.Tenant) error {
	config, err := encodeJSON(t.Config)
	if err != nil {
		return err
	}

	_, err = r.q.exec(ctx, `
		INSERT INTO tenants (id, name, access_token_key_id, id_token_key_id, config, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			access_token_key_id = excluded.access_token_key_id,
			id_token_key_id = excluded.id_token_key_id,
			config = excluded.config`,
		t.ID,
		t.Name,
		mapStringNull(t.AccessTokenKeyID),
		mapStringNull(t.IDTokenKeyID),
		config,
		toMillis(nowIfZero(t.CreatedAt)),
	)
	return err
}

func scanTenant(s scanner) (domain.Tenant, error) {
	var (
		t        domain.Tenant
		accessID sql.NullString
		idID     sql.NullString
		config   string
		created  int64
	)
	if err := s.Scan(&t.ID, &t.Name, &accessID, &idID, &config, &created); err != nil {
		return domain.Tenant{}, err
	}
	if err := decodeJSON(config, &t.Config); err != nil {
		return domain.Tenant{}, err
	}
	t.AccessTokenKeyID = accessID.String
	t.IDTokenKeyID = idID.String
	t.CreatedAt = fromMillis(created)
	return t, nil
}
