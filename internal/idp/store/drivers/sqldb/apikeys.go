package sqldb

import (
	"context"
	"database/sql"

	"github.com/aussiebroadwan/idp/internal/idp/domain"
)

type apiKeysRepo struct {
	q *Queries
}

func (r *apiKeysRepo) GetAPIKeyByHash(ctx context.Context, keyHash string) (domain.AuthenticationKey, error) {
	var (
		k           domain.AuthenticationKey
		tenantID    sql.NullString
		permissions string
		description sql.NullString
	)
	err := r.q.queryRow(ctx, `
		SELECT id, key_hash, tenant_id, permissions, description
		FROM authentication_keys WHERE key_hash = ?`,
		keyHash,
	).Scan(&k.ID, &k.KeyHash, &tenantID, &permissions, &description)
	if err != nil {
		return domain.AuthenticationKey{}, r.q.mapErr(err)
	}
	if err := decodeJSON(permissions, &k.Permissions); err != nil {
		return domain.AuthenticationKey{}, err
	}
	k.TenantID = mapNullStringPtr(tenantID)
	k.Description = description.String
	return k, nil
}

func (r *apiKeysRepo) UpsertAPIKey(ctx context.Context, k domain.AuthenticationKey) error {
	permissions, err := encodeJSON(k.Permissions)
	if err != nil {
		return err
	}
	_, err = r.q.exec(ctx, `
		INSERT INTO authentication_keys (id, key_hash, tenant_id, permissions, description)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			key_hash = excluded.key_hash,
			tenant_id = excluded.tenant_id,
			permissions = excluded.permissions,
			description = excluded.description`,
		k.ID,
		k.KeyHash,
		mapOptionalString(k.TenantID),
		permissions,
		mapStringNull(k.Description),
	)
	return err
}
