package sqldb

import (
	"context"
	"time"

	"github.com/aussiebroadwan/idp/internal/idp/domain"
	"github.com/aussiebroadwan/idp/pkg/idx"
)

const refreshTokenColumns = `id, application_id, user_id, tenant_id, token_hash, start_instant, expires_at, data`

type refreshTokensRepo struct {
	q *Queries
}

func (r *refreshTokensRepo) UpsertRefreshToken(ctx context.Context, t domain.RefreshToken) (string, error) {
	if t.ID == "" {
		t.ID = idx.NewString()
	}

	var id string
	err := r.q.queryRow(ctx, `
		INSERT INTO refresh_tokens (`+refreshTokenColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (application_id, user_id) DO UPDATE SET
			tenant_id = excluded.tenant_id,
			token_hash = excluded.token_hash,
			start_instant = excluded.start_instant,
			expires_at = excluded.expires_at,
			data = excluded.data
		RETURNING id`,
		t.ID,
		t.ApplicationID,
		t.UserID,
		t.TenantID,
		t.TokenHash,
		toMillis(nowIfZero(t.StartInstant)),
		toMillis(t.ExpiresAt),
		rawJSON(t.Data),
	).Scan(&id)
	if err != nil {
		return "", r.q.mapErr(err)
	}
	return id, nil
}

func (r *refreshTokensRepo) RotateRefreshToken(
	ctx context.Context,
	oldHash string,
	t domain.RefreshToken,
) (string, error) {
	var id string
	err := r.q.queryRow(ctx, `
		UPDATE refresh_tokens SET
			token_hash = ?,
			start_instant = ?,
			expires_at = ?,
			data = ?
		WHERE token_hash = ? AND application_id = ? AND user_id = ?
		RETURNING id`,
		t.TokenHash,
		toMillis(nowIfZero(t.StartInstant)),
		toMillis(t.ExpiresAt),
		rawJSON(t.Data),
		oldHash,
		t.ApplicationID,
		t.UserID,
	).Scan(&id)
	if err != nil {
		return "", r.q.mapErr(err)
	}
	return id, nil
}

func (r *refreshTokensRepo) GetRefreshTokenByHash(ctx context.Context, tokenHash string) (domain.RefreshToken, error) {
	row := r.q.queryRow(ctx,
		`SELECT `+refreshTokenColumns+` FROM refresh_tokens WHERE token_hash = ?`,
		tokenHash,
	)
	t, err := scanRefreshToken(row)
	return t, r.q.mapErr(err)
}

func (r *refreshTokensRepo) GetRefreshToken(
	ctx context.Context,
	applicationID, userID string,
) (domain.RefreshToken, error) {
	row := r.q.queryRow(ctx,
		`SELECT `+refreshTokenColumns+` FROM refresh_tokens WHERE application_id = ? AND user_id = ?`,
		applicationID, userID,
	)
	t, err := scanRefreshToken(row)
	return t, r.q.mapErr(err)
}

func (r *refreshTokensRepo) DeleteRefreshToken(ctx context.Context, applicationID, userID string) (bool, error) {
	res, err := r.q.exec(ctx,
		`DELETE FROM refresh_tokens WHERE application_id = ? AND user_id = ?`,
		applicationID, userID,
	)
	return affected(res, err)
}

func (r *refreshTokensRepo) DeleteRefreshTokenByHash(ctx context.Context, tokenHash string) (bool, error) {
	res, err := r.q.exec(ctx, `DELETE FROM refresh_tokens WHERE token_hash = ?`, tokenHash)
	return affected(res, err)
}

func (r *refreshTokensRepo) DeleteExpiredRefreshTokens(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.q.exec(ctx, `DELETE FROM refresh_tokens WHERE expires_at <= ?`, toMillis(now))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanRefreshToken(s scanner) (domain.RefreshToken, error) {
	var (
		t       domain.RefreshToken
		start   int64
		expires int64
		data    string
	)
	err := s.Scan(&t.ID, &t.ApplicationID, &t.UserID, &t.TenantID, &t.TokenHash, &start, &expires, &data)
	if err != nil {
		return domain.RefreshToken{}, err
	}
	t.StartInstant = fromMillis(start)
	t.ExpiresAt = fromMillis(expires)
	if data != "" {
		t.Data = []byte(data)
	}
	return t, nil
}
