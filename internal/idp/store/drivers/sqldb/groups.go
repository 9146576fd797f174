package sqldb

import (
	"context"

	"github.com/aussiebroadwan/idp/internal/idp/domain"
	"github.com/aussiebroadwan/idp/pkg/idx"
)

type groupsRepo struct {
	q *Queries
}

func (r *groupsRepo) GetGroupByID(ctx context.Context, id string) (domain.Group, error) {
	var g domain.Group
	err := r.q.queryRow(ctx, `SELECT id, tenant_id, name FROM user_groups WHERE id = ?`, id).
		Scan(&g.ID, &g.TenantID, &g.Name)
	return g, r.q.mapErr(err)
}

func (r *groupsRepo) UpsertGroup(ctx context.Context, g domain.Group) error {
	_, err := r.q.exec(ctx, `
		INSERT INTO user_groups (id, tenant_id, name) VALUES (?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET tenant_id = excluded.tenant_id, name = excluded.name`,
		g.ID, g.TenantID, g.Name,
	)
	return err
}

func (r *groupsRepo) AddMember(ctx context.Context, m domain.GroupMember) error {
	if m.ID == "" {
		m.ID = idx.NewString()
	}
	_, err := r.q.exec(ctx, `
		INSERT INTO group_members (id, group_id, user_id) VALUES (?, ?, ?)
		ON CONFLICT (group_id, user_id) DO NOTHING`,
		m.ID, m.GroupID, m.UserID,
	)
	return err
}

func (r *groupsRepo) ListMembershipsByUser(ctx context.Context, userID string) ([]domain.GroupMember, error) {
	rows, err := r.q.query(ctx,
		`SELECT id, group_id, user_id FROM group_members WHERE user_id = ? ORDER BY id`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	return collect(rows, func(s scanner) (domain.GroupMember, error) {
		var m domain.GroupMember
		err := s.Scan(&m.ID, &m.GroupID, &m.UserID)
		return m, err
	})
}
