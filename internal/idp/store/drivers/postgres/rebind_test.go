package postgres

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRebind(t *testing.T) {
	d := dialect{}

	require.Equal(t, "SELECT 1", d.Rebind("SELECT 1"))
	require.Equal(t,
		"UPDATE t SET a = $1 WHERE b = $2 AND c > $3",
		d.Rebind("UPDATE t SET a = ? WHERE b = ? AND c > ?"),
	)
}
