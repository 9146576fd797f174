package sqldb

import (
	"context"
	"database/sql"
	"strings"

	"github.com/aussiebroadwan/idp/internal/idp/domain"
)

const userColumns = `id, email, username, tenant_id, active, data, created_at`

type usersRepo struct {
	q *Queries
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	row := r.q.queryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	return u, r.q.mapErr(err)
}

func (r *usersRepo) GetUserByLoginID(ctx context.Context, loginID string) (domain.User, error) {
	email := strings.ToLower(strings.TrimSpace(loginID))
	row := r.q.queryRow(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE email = ? OR username = ?
		ORDER BY CASE WHEN email = ? THEN 0 ELSE 1 END
		LIMIT 1`,
		email, loginID, email,
	)
	u, err := scanUser(row)
	return u, r.q.mapErr(err)
}

func (r *usersRepo) UpsertUser(ctx context.Context, u domain.User) error {
	_, err := r.q.exec(ctx, `
		INSERT INTO users (id, email, username, tenant_id, active, data, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			email = excluded.email,
			username = excluded.username,
			tenant_id = excluded.tenant_id,
			active = excluded.active,
			data = excluded.data`,
		u.ID,
		strings.ToLower(strings.TrimSpace(u.Email)),
		mapStringNull(u.Username),
		mapStringNull(u.TenantID),
		u.Active,
		rawJSON(u.Data),
		toMillis(nowIfZero(u.CreatedAt)),
	)
	return err
}

func scanUser(s scanner) (domain.User, error) {
	var (
		u        domain.User
		username sql.NullString
		tenantID sql.NullString
		data     string
		created  int64
	)
	if err := s.Scan(&u.ID, &u.Email, &username, &tenantID, &u.Active, &data, &created); err != nil {
		return domain.User{}, err
	}
	u.Username = username.String
	u.TenantID = tenantID.String
	if data != "" {
		u.Data = []byte(data)
	}
	u.CreatedAt = fromMillis(created)
	return u, nil
}
