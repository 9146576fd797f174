package domain

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

// AuthenticationKey is an API key. The secret itself is never stored, only
// its fingerprint. A nil TenantID makes the key valid for every tenant.
type AuthenticationKey struct {
	ID          string
	KeyHash     string
	TenantID    *string
	Permissions KeyPermissions
	Description string
}

// ScopedTo reports whether the key may act on tenantID.
func (k *AuthenticationKey) ScopedTo(tenantID string) bool {
	return k.TenantID == nil || *k.TenantID == tenantID
}

// KeyPermissions is the permissions document of an API key. A nil Endpoints
// means no list was declared and every endpoint is allowed; an empty list
// allows nothing.
type KeyPermissions struct {
	Endpoints []EndpointPermission `json:"endpoints"`
}

// Allows reports whether path and method are permitted.
func (p KeyPermissions) Allows(path, method string) bool {
	if p.Endpoints == nil {
		return true
	}
	return slices.ContainsFunc(p.Endpoints, func(e EndpointPermission) bool {
		return e.Matches(path, method)
	})
}

// EndpointPermission grants one URL for a set of methods.
type EndpointPermission struct {
	URL     string   `json:"url"`
	Methods []string `json:"methods"`
}

// Matches requires an exact URL match and a case-insensitive method match.
func (e EndpointPermission) Matches(path, method string) bool {
	if e.URL != path {
		return false
	}
	return slices.ContainsFunc(e.Methods, func(m string) bool {
		return strings.EqualFold(m, method)
	})
}

// UnmarshalJSON accepts "method" or "methods", each either a string or a
// list of strings.
func (e *EndpointPermission) UnmarshalJSON(b []byte) error {
	var raw struct {
		URL     string          `json:"url"`
		Method  json.RawMessage `json:"method"`
		Methods json.RawMessage `json:"methods"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	e.URL = raw.URL
	e.Methods = nil
	for _, field := range []json.RawMessage{raw.Method, raw.Methods} {
		methods, err := stringOrList(field)
		if err != nil {
			return fmt.Errorf("%w: endpoint %q: %v", ErrInvalid, raw.URL, err)
		}
		e.Methods = append(e.Methods, methods...)
	}
	return nil
}

func stringOrList(raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var one string
	if err := json.Unmarshal(raw, &one); err == nil {
		return []string{one}, nil
	}
	var many []string
	if err := json.Unmarshal(raw, &many); err != nil {
		return nil, err
	}
	return many, nil
}
