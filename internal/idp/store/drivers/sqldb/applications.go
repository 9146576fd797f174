package sqldb

import (
	"context"
	"database/sql"

	"github.com/aussiebroadwan/idp/internal/idp/domain"
)

const applicationColumns = `id, tenant_id, name, active, access_token_key_id, id_token_key_id, config, created_at`

type applicationsRepo struct {
	q *Queries
}

func (r *applicationsRepo) GetApplicationByID(ctx context.Context, id string) (domain.Application, error) {
	row := r.q.queryRow(ctx, `SELECT `+applicationColumns+` FROM applications WHERE id = ?`, id)
	a, err := scanApplication(row)
	return a, r.q.mapErr(err)
}

func (r *applicationsRepo) ListApplicationsByTenant(ctx context.Context, tenantID string) ([]domain.Application, error) {
	rows, err := r.q.query(ctx,
		`SELECT `+applicationColumns+` FROM applications WHERE tenant_id = ? ORDER BY created_at, id`,
		tenantID,
	)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanApplication)
}

func (r *applicationsRepo) UpsertApplication(ctx context.Context, a domain.Application) error {
	if err := a.Validate(); err != nil {
		return err
	}
	config, err := encodeJSON(a.Config)
	if err != nil {
		return err
	}

	_, err = r.q.exec(ctx, `
		INSERT INTO applications (id, tenant_id, name, active, access_token_key_id, id_token_key_id, config, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			tenant_id = excluded.tenant_id,
			name = excluded.name,
			active = excluded.active,
			access_token_key_id = excluded.access_token_key_id,
			id_token_key_id = excluded.id_token_key_id,
			config = excluded.config`,
		a.ID,
		a.TenantID,
		a.Name,
		a.Active,
		mapStringNull(a.AccessTokenKeyID),
		mapStringNull(a.IDTokenKeyID),
		config,
		toMillis(nowIfZero(a.CreatedAt)),
	)
	return err
}

func scanApplication(s scanner) (domain.Application, error) {
	var (
		a        domain.Application
		accessID sql.NullString
		idID     sql.NullString
		config   string
		created  int64
	)
	err := s.Scan(&a.ID, &a.TenantID, &a.Name, &a.Active, &accessID, &idID, &config, &created)
	if err != nil {
		return domain.Application{}, err
	}
	if err := decodeJSON(config, &a.Config); err != nil {
		return domain.Application{}, err
	}
	a.AccessTokenKeyID = accessID.String
	a.IDTokenKeyID = idID.String
	a.CreatedAt = fromMillis(created)
	return a, nil
}
