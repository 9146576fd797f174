package cryptox

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"strings"
)

// RSAKeyBits is the modulus size used for generated RS and PS keys.
const RSAKeyBits = 2048

// KeyPair is freshly generated signing material. Asymmetric algorithms fill
// PrivateKey and PublicKey, HMAC algorithms fill Secret.
type KeyPair struct {
	PrivateKey []byte // PKCS8 PEM
	PublicKey  []byte // PKIX PEM
	Secret     []byte
}

// GenerateKey creates signing material for alg.
func GenerateKey(alg string) (KeyPair, error) {
	var (
		priv crypto.Signer
		err  error
	)

	switch {
	case strings.HasPrefix(alg, "HS"):
		size, ok := map[string]int{"HS256": 32, "HS384": 48, "HS512": 64}[alg]
		if !ok {
			return KeyPair{}, fmt.Errorf("cryptox: unsupported algorithm %q", alg)
		}
		secret, err := GenerateToken(size)
		if err != nil {
			return KeyPair{}, err
		}
		return KeyPair{Secret: []byte(secret)}, nil

	case strings.HasPrefix(alg, "RS"), strings.HasPrefix(alg, "PS"):
		priv, err = rsa.GenerateKey(rand.Reader, RSAKeyBits)
	case alg == "ES256":
		priv, err = ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	case alg == "ES384":
		priv, err = ecdsa.GenerateKey(elliptic.P384(), rand.Reader)
	case alg == "ES512":
		priv, err = ecdsa.GenerateKey(elliptic.P521(), rand.Reader)
	case alg == "EdDSA":
		_, priv, err = ed25519.GenerateKey(rand.Reader)
	default:
		return KeyPair{}, fmt.Errorf("cryptox: unsupported algorithm %q", alg)
	}
	if err != nil {
		return KeyPair{}, fmt.Errorf("cryptox: generate %s key: %w", alg, err)
	}

	privDER, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return KeyPair{}, fmt.Errorf("cryptox: marshal private key: %w", err)
	}
	pubDER, err := x509.MarshalPKIXPublicKey(priv.Public())
	if err != nil {
		return KeyPair{}, fmt.Errorf("cryptox: marshal public key: %w", err)
	}

	return KeyPair{
		PrivateKey: pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privDER}),
		PublicKey:  pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER}),
	}, nil
}
