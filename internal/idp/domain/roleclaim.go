package domain

import (
	"encoding/json"
	"slices"
	"strings"
)

const roleClaimPrefix = "urn:"

// RoleClaim is a claim asserted by holding a role, scoped to one client.
// Value is a string or a []any.
type RoleClaim struct {
	ClientID string
	Name     string
	Value    any
}

// ParseRoleClaim decodes a role name of the form
// urn:<clientId>:<claimName>:<value>. Names that do not follow the form are
// ordinary roles and return false.
//
// A value in single quotes is unwrapped to a string. A value shaped like
// ['a','b'] is read as a JSON array after swapping single quotes for double
// quotes; if that fails the raw text is kept.
func ParseRoleClaim(roleName string) (RoleClaim, bool) {
	if !strings.HasPrefix(roleName, roleClaimPrefix) {
		return RoleClaim{}, false
	}
	parts := strings.SplitN(strings.TrimPrefix(roleName, roleClaimPrefix), ":", 3)
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" {
		return RoleClaim{}, false
	}
	return RoleClaim{ClientID: parts[0], Name: parts[1], Value: parseClaimValue(parts[2])}, true
}

func parseClaimValue(raw string) any {
	switch {
	case len(raw) >= 2 && strings.HasPrefix(raw, "'") && strings.HasSuffix(raw, "'"):
		return raw[1 : len(raw)-1]
	case strings.HasPrefix(raw, "[") && strings.HasSuffix(raw, "]"):
		var list []any
		if err := json.Unmarshal([]byte(strings.ReplaceAll(raw, "'", `"`)), &list); err == nil {
			return list
		}
	}
	return raw
}

// MergeRoleClaims folds the claims belonging to clientID into one object.
// A claim seen more than once becomes an array holding every value, with
// array values flattened in.
func MergeRoleClaims(clientID string, claims []RoleClaim) map[string]any {
	out := map[string]any{}
	for _, c := range claims {
		if c.ClientID != clientID {
			continue
		}
		prev, seen := out[c.Name]
		if !seen {
			out[c.Name] = c.Value
			continue
		}
		out[c.Name] = append(slices.Clone(asList(prev)), asList(c.Value)...)
	}
	return out
}

func asList(v any) []any {
	if list, ok := v.([]any); ok {
		return list
	}
	return []any{v}
}
