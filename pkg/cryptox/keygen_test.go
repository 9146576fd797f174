package cryptox_test

import (
	"crypto/x509"
	"encoding/pem"
	"testing"

	"github.com/aussiebroadwan/idp/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

func TestGenerateKey(t *testing.T) {
	t.Parallel()

	for _, alg := range []string{"RS256", "PS256", "ES256", "ES384", "ES512", "EdDSA"} {
		t.Run(alg, func(t *testing.T) {
			t.Parallel()

			kp, err := cryptox.GenerateKey(alg)
			require.NoError(t, err)
			require.Empty(t, kp.Secret)

			block, _ := pem.Decode(kp.PrivateKey)
			require.NotNil(t, block)
			require.Equal(t, "PRIVATE KEY", block.Type)
			_, err = x509.ParsePKCS8PrivateKey(block.Bytes)
			require.NoError(t, err)

			block, _ = pem.Decode(kp.PublicKey)
			require.NotNil(t, block)
			_, err = x509.ParsePKIXPublicKey(block.Bytes)
			require.NoError(t, err)
		})
	}

	t.Run("HS384", func(t *testing.T) {
		kp, err := cryptox.GenerateKey("HS384")
		require.NoError(t, err)
		require.NotEmpty(t, kp.Secret)
		require.Empty(t, kp.PrivateKey)
	})

	t.Run("unsupported", func(t *testing.T) {
		_, err := cryptox.GenerateKey("none")
		require.Error(t, err)
	})
}
