package domain_test

import (
	"encoding/json"
	"testing"

	"github.com/aussiebroadwan/idp/internal/idp/domain"
	"github.com/stretchr/testify/require"
)

func TestKeyPermissionsDecodeAndMatch(t *testing.T) {
	t.Parallel()

	var p domain.KeyPermissions
	require.NoError(t, json.Unmarshal([]byte(`{"endpoints":[{"url":"/key","methods":"GET"}]}`), &p))

	require.True(t, p.Allows("/key", "GET"))
	require.True(t, p.Allows("/key", "get"))
	require.False(t, p.Allows("/key", "POST"))
	require.False(t, p.Allows("/other", "GET"))
	require.False(t, p.Allows("/key/", "GET"))
}

func TestKeyPermissionsMethodForms(t *testing.T) {
	t.Parallel()

	var p domain.KeyPermissions
	require.NoError(t, json.Unmarshal([]byte(`{"endpoints":[
		{"url":"/a","method":"DELETE"},
		{"url":"/b","methods":["GET","POST"]}
	]}`), &p))

	require.True(t, p.Allows("/a", "DELETE"))
	require.True(t, p.Allows("/b", "POST"))
	require.False(t, p.Allows("/b", "PUT"))

	require.Error(t, json.Unmarshal([]byte(`{"endpoints":[{"url":"/a","methods":42}]}`), &p))
}

func TestKeyPermissionsDeclaredVsAbsent(t *testing.T) {
	t.Parallel()

	var none domain.KeyPermissions
	require.NoError(t, json.Unmarshal([]byte(`{}`), &none))
	require.True(t, none.Allows("/anything", "PATCH"))

	var empty domain.KeyPermissions
	require.NoError(t, json.Unmarshal([]byte(`{"endpoints":[]}`), &empty))
	require.False(t, empty.Allows("/anything", "GET"))

	// Round trip keeps the distinction.
	b, err := json.Marshal(none)
	require.NoError(t, err)
	var back domain.KeyPermissions
	require.NoError(t, json.Unmarshal(b, &back))
	require.Nil(t, back.Endpoints)
}

func TestAuthenticationKeyScope(t *testing.T) {
	t.Parallel()

	t1 := "t1"
	scoped := domain.AuthenticationKey{TenantID: &t1}
	require.True(t, scoped.ScopedTo("t1"))
	require.False(t, scoped.ScopedTo("t2"))
	require.False(t, scoped.ScopedTo(""))

	super := domain.AuthenticationKey{}
	require.True(t, super.ScopedTo("t1"))
	require.True(t, super.ScopedTo(""))
}
