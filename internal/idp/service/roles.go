package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/aussiebroadwan/idp/internal/idp/domain"
	"github.com/aussiebroadwan/idp/internal/idp/store"
)

// RoleResolver computes the application roles a user holds through group
// membership and default roles.
type RoleResolver struct {
	Store store.Store
}

// RolesForUserAndTenant returns the ids of every role granted to userID by
// the groups of tenantID it belongs to. A missing tenant or user yields an
// empty result.
func (r *RoleResolver) RolesForUserAndTenant(ctx context.Context, userID, tenantID string) ([]string, error) {
	if _, err := r.Store.Tenants().GetTenantByID(ctx, tenantID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("load tenant: %w", err)
	}
	if _, err := r.Store.Users().GetUserByID(ctx, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("load user: %w", err)
	}

	return r.groupRoleIDs(ctx, userID, tenantID)
}

// RolesForUserAndApplication returns the union of the application's default
// roles and the user's group roles within the application's tenant,
// restricted to roles of that application. The application must exist.
func (r *RoleResolver) RolesForUserAndApplication(ctx context.Context, userID, applicationID string) ([]string, error) {
	app, err := r.Store.Applications().GetApplicationByID(ctx, applicationID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrApplicationNotFound, applicationID)
	}
	if err != nil {
		return nil, fmt.Errorf("load application: %w", err)
	}

	appRoles, err := r.Store.Roles().ListRolesByApplication(ctx, app.ID)
	if err != nil {
		return nil, fmt.Errorf("list application roles: %w", err)
	}
	owned := make(map[string]struct{}, len(appRoles))
	for _, role := range appRoles {
		owned[role.ID] = struct{}{}
	}

	defaults, err := r.Store.Roles().ListDefaultRoles(ctx, app.ID)
	if err != nil {
		return nil, fmt.Errorf("list default roles: %w", err)
	}
	ids := make([]string, 0, len(defaults))
	for _, role := range defaults {
		ids = append(ids, role.ID)
	}

	groupIDs, err := r.groupRoleIDs(ctx, userID, app.TenantID)
	if err != nil {
		return nil, err
	}
	for _, id := range groupIDs {
		if _, ok := owned[id]; ok {
			ids = append(ids, id)
		}
	}
	return dedupe(ids), nil
}

// RoleNames maps role ids to their names, skipping ids that no longer exist.
func (r *RoleResolver) RoleNames(ctx context.Context, roleIDs []string) ([]string, error) {
	names := make([]string, 0, len(roleIDs))
	for _, id := range roleIDs {
		role, err := r.Store.Roles().GetRoleByID(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load role %s: %w", id, err)
		}
		names = append(names, role.Name)
	}
	return dedupe(names), nil
}

// groupRoleIDs collects the roles linked to the user's groups, ignoring
// groups of other tenants.
func (r *RoleResolver) groupRoleIDs(ctx context.Context, userID, tenantID string) ([]string, error) {
	memberships, err := r.Store.Groups().ListMembershipsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list memberships: %w", err)
	}

	ids := []string{}
	for _, m := range memberships {
		group, err := r.Store.Groups().GetGroupByID(ctx, m.GroupID)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load group %s: %w", m.GroupID, err)
		}
		if group.TenantID != tenantID {
			continue
		}

		roleIDs, err := r.Store.Roles().ListRoleIDsByGroup(ctx, group.ID)
		if err != nil {
			return nil, fmt.Errorf("list roles of group %s: %w", group.ID, err)
		}
		ids = append(ids, roleIDs...)
	}
	return dedupe(ids), nil
}

// RoleClaims decodes the urn:<clientId>:<claim>:<value> role names of
// clientID into a claim map. Ordinary role names and claims for other
// clients are ignored.
func RoleClaims(clientID string, roleNames []string) map[string]any {
	claims := make([]domain.RoleClaim, 0, len(roleNames))
	for _, name := range roleNames {
		if c, ok := domain.ParseRoleClaim(name); ok {
			claims = append(claims, c)
		}
	}
	return domain.MergeRoleClaims(clientID, claims)
}

// plainRoles drops role names that encode claims.
func plainRoles(roleNames []string) []string {
	out := make([]string, 0, len(roleNames))
	for _, name := range roleNames {
		if _, ok := domain.ParseRoleClaim(name); !ok {
			out = append(out, name)
		}
	}
	return out
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
