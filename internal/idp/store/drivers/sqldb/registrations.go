package sqldb

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/idp/internal/idp/domain"
	"github.com/aussiebroadwan/idp/pkg/idx"
)

const registrationColumns = `id, user_id, application_id, password_hash, authentication_token, data, code_expires_at, created_at, updated_at`

type registrationsRepo struct {
	q *Queries
}

func (r *registrationsRepo) GetRegistration(
	ctx context.Context,
	userID, applicationID string,
) (domain.UserRegistration, error) {
	row := r.q.queryRow(ctx,
		`SELECT `+registrationColumns+` FROM user_registrations WHERE user_id = ? AND application_id = ?`,
		userID, applicationID,
	)
	reg, err := scanRegistration(row)
	return reg, r.q.mapErr(err)
}

func (r *registrationsRepo) UpsertRegistration(ctx context.Context, reg domain.UserRegistration) error {
	data, err := encodeJSON(reg.Data)
	if err != nil {
		return err
	}
	if reg.ID == "" {
		reg.ID = idx.NewString()
	}
	now := time.Now()

	_, err = r.q.exec(ctx, `
		INSERT INTO user_registrations (`+registrationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, application_id) DO UPDATE SET
			password_hash = excluded.password_hash,
			authentication_token = excluded.authentication_token,
			data = excluded.data,
			code_expires_at = excluded.code_expires_at,
			updated_at = excluded.updated_at`,
		reg.ID,
		reg.UserID,
		reg.ApplicationID,
		mapStringNull(reg.PasswordHash),
		mapStringNull(reg.AuthenticationToken),
		data,
		toMillisPtr(reg.CodeExpiresAt),
		toMillis(nowIfZero(reg.CreatedAt)),
		toMillis(now),
	)
	return err
}

func (r *registrationsRepo) SaveAuthorization(
	ctx context.Context,
	reg domain.UserRegistration,
) (domain.UserRegistration, error) {
	data, err := encodeJSON(reg.Data)
	if err != nil {
		return domain.UserRegistration{}, err
	}
	if reg.ID == "" {
		reg.ID = idx.NewString()
	}
	now := toMillis(time.Now())

	row := r.q.queryRow(ctx, `
		INSERT INTO user_registrations (`+registrationColumns+`)
		VALUES (?, ?, ?, NULL, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, application_id) DO UPDATE SET
			authentication_token = excluded.authentication_token,
			data = excluded.data,
			code_expires_at = excluded.code_expires_at,
			updated_at = excluded.updated_at
		RETURNING `+registrationColumns,
		reg.ID,
		reg.UserID,
		reg.ApplicationID,
		mapStringNull(reg.AuthenticationToken),
		data,
		toMillisPtr(reg.CodeExpiresAt),
		now,
		now,
	)
	saved, err := scanRegistration(row)
	return saved, r.q.mapErr(err)
}

func (r *registrationsRepo) ConsumeCode(
	ctx context.Context,
	applicationID string,
	codeHash string,
	now time.Time,
) (domain.UserRegistration, error) {
	row := r.q.queryRow(ctx, `
		UPDATE user_registrations
		SET authentication_token = NULL, code_expires_at = NULL, updated_at = ?
		WHERE authentication_token = ? AND application_id = ? AND code_expires_at > ?
		RETURNING `+registrationColumns,
		toMillis(now), codeHash, applicationID, toMillis(now),
	)
	reg, err := scanRegistration(row)
	return reg, r.q.mapErr(err)
}

func (r *registrationsRepo) ClearExpiredCodes(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.q.exec(ctx, `
		UPDATE user_registrations
		SET authentication_token = NULL, code_expires_at = NULL
		WHERE code_expires_at IS NOT NULL AND code_expires_at <= ?`,
		toMillis(now),
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanRegistration(s scanner) (domain.UserRegistration, error) {
	var (
		reg       domain.UserRegistration
		password  sql.NullString
		token     sql.NullString
		data      string
		expiresAt sql.NullInt64
		created   int64
		updated   int64
	)
	err := s.Scan(
		&reg.ID,
		&reg.UserID,
		&reg.ApplicationID,
		&password,
		&token,
		&data,
		&expiresAt,
		&created,
		&updated,
	)
	if err != nil {
		return domain.UserRegistration{}, err
	}
	if err := decodeJSON(data, &reg.Data); err != nil {
		return domain.UserRegistration{}, err
	}
	reg.PasswordHash = password.String
	reg.AuthenticationToken = token.String
	reg.CodeExpiresAt = fromNullMillis(expiresAt)
	reg.CreatedAt = fromMillis(created)
	reg.UpdatedAt = fromMillis(updated)
	return reg, nil
}
