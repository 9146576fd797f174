package sqldb

import (
	"context"
	"database/sql"

	"github.com/aussiebroadwan/idp/internal/idp/domain"
)

const keyColumns = `id, kid, algorithm, private_key, public_key, secret, created_at`

type keysRepo struct {
	q *Queries
}

func (r *keysRepo) GetKeyByID(ctx context.Context, id string) (domain.Key, error) {
	row := r.q.queryRow(ctx, `SELECT `+keyColumns+` FROM signing_keys WHERE id = ?`, id)
	k, err := scanKey(row)
	return k, r.q.mapErr(err)
}

func (r *keysRepo) ListKeys(ctx context.Context) ([]domain.Key, error) {
	rows, err := r.q.query(ctx, `SELECT `+keyColumns+` FROM signing_keys ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanKey)
}

// UpsertKey stores k as given. Sealing private material is the caller's job.
func (r *keysRepo) UpsertKey(ctx context.Context, k domain.Key) error {
	if err := k.Validate(); err != nil {
		return err
	}
	if k.Kid == "" {
		k.Kid = k.ID
	}

	_, err := r.q.exec(ctx, `
		INSERT INTO signing_keys (id, kid, algorithm, private_key, public_key, secret, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			kid = excluded.kid,
			algorithm = excluded.algorithm,
			private_key = excluded.private_key,
			public_key = excluded.public_key,
			secret = excluded.secret`,
		k.ID,
		k.Kid,
		k.Algorithm,
		mapStringNull(k.PrivateKey),
		mapStringNull(k.PublicKey),
		mapStringNull(k.Secret),
		toMillis(nowIfZero(k.CreatedAt)),
	)
	return err
}

func scanKey(s scanner) (domain.Key, error) {
	var (
		k       domain.Key
		private sql.NullString
		public  sql.NullString
		secret  sql.NullString
		created int64
	)
	if err := s.Scan(&k.ID, &k.Kid, &k.Algorithm, &private, &public, &secret, &created); err != nil {
		return domain.Key{}, err
	}
	k.PrivateKey = private.String
	k.PublicKey = public.String
	k.Secret = secret.String
	k.CreatedAt = fromMillis(created)
	return k, nil
}
