package sqldb

import (
	"context"
	"database/sql"

	"github.com/aussiebroadwan/idp/internal/idp/domain"
	"github.com/aussiebroadwan/idp/pkg/idx"
)

const roleColumns = `id, application_id, name, is_default, description`

type rolesRepo struct {
	q *Queries
}

func (r *rolesRepo) GetRoleByID(ctx context.Context, id string) (domain.ApplicationRole, error) {
	row := r.q.queryRow(ctx, `SELECT `+roleColumns+` FROM application_roles WHERE id = ?`, id)
	role, err := scanRole(row)
	return role, r.q.mapErr(err)
}

func (r *rolesRepo) ListRolesByApplication(ctx context.Context, applicationID string) ([]domain.ApplicationRole, error) {
	rows, err := r.q.query(ctx,
		`SELECT `+roleColumns+` FROM application_roles WHERE application_id = ? ORDER BY name`,
		applicationID,
	)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanRole)
}

func (r *rolesRepo) ListDefaultRoles(ctx context.Context, applicationID string) ([]domain.ApplicationRole, error) {
	rows, err := r.q.query(ctx,
		`SELECT `+roleColumns+` FROM application_roles WHERE application_id = ? AND is_default = ? ORDER BY name`,
		applicationID, true,
	)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanRole)
}

func (r *rolesRepo) UpsertRole(ctx context.Context, role domain.ApplicationRole) error {
	_, err := r.q.exec(ctx, `
		INSERT INTO application_roles (`+roleColumns+`) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			application_id = excluded.application_id,
			name = excluded.name,
			is_default = excluded.is_default,
			description = excluded.description`,
		role.ID,
		role.ApplicationID,
		role.Name,
		role.IsDefault,
		mapStringNull(role.Description),
	)
	return err
}

func (r *rolesRepo) LinkGroup(ctx context.Context, e domain.GroupApplicationRole) error {
	if e.ID == "" {
		e.ID = idx.NewString()
	}
	_, err := r.q.exec(ctx, `
		INSERT INTO group_application_roles (id, group_id, application_role_id) VALUES (?, ?, ?)
		ON CONFLICT (group_id, application_role_id) DO NOTHING`,
		e.ID, e.GroupID, e.ApplicationRoleID,
	)
	return err
}

func (r *rolesRepo) ListRoleIDsByGroup(ctx context.Context, groupID string) ([]string, error) {
	rows, err := r.q.query(ctx,
		`SELECT application_role_id FROM group_application_roles WHERE group_id = ? ORDER BY id`,
		groupID,
	)
	if err != nil {
		return nil, err
	}
	return collect(rows, func(s scanner) (string, error) {
		var id string
		err := s.Scan(&id)
		return id, err
	})
}

func scanRole(s scanner) (domain.ApplicationRole, error) {
	var (
		role        domain.ApplicationRole
		description sql.NullString
	)
	if err := s.Scan(&role.ID, &role.ApplicationID, &role.Name, &role.IsDefault, &description); err != nil {
		return domain.ApplicationRole{}, err
	}
	role.Description = description.String
	return role, nil
}
