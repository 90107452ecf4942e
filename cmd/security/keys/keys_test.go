package keys

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustGenerate(t *testing.T) *Pair {
	t.Helper()
	p, err := Generate("test-kid", 2048)
	require.NoError(t, err)
	return p
}

func TestLoad_InlinePEM(t *testing.T) {
	p := mustGenerate(t)
	privPEM, err := p.PrivatePEM()
	require.NoError(t, err)
	pubPEM, err := p.PublicPEM()
	require.NoError(t, err)

	got, err := Load(Config{KeyID: "k1", PrivateKey: string(privPEM), PublicKey: string(pubPEM)})
	require.NoError(t, err)
	assert.Equal(t, "k1", got.KeyID)
	assert.True(t, got.Public.Equal(p.Public))
}

func TestLoad_DerivesPublicKey(t *testing.T) {
	p := mustGenerate(t)
	privPEM, err := p.PrivatePEM()
	require.NoError(t, err)

	got, err := Load(Config{PrivateKey: string(privPEM)})
	require.NoError(t, err)
	assert.Equal(t, DefaultKeyID, got.KeyID)
	assert.True(t, got.Public.Equal(p.Public))
}

func TestLoad_Base64DER(t *testing.T) {
	p := mustGenerate(t)
	privDER, err := x509.MarshalPKCS8PrivateKey(p.Private)
	require.NoError(t, err)
	pubDER, err := x509.MarshalPKIXPublicKey(p.Public)
	require.NoError(t, err)

	got, err := Load(Config{
		PrivateKey: base64.StdEncoding.EncodeToString(privDER),
		PublicKey:  base64.StdEncoding.EncodeToString(pubDER),
	})
	require.NoError(t, err)
	assert.True(t, got.Private.Equal(p.Private))
}

func TestLoad_Files(t *testing.T) {
	p := mustGenerate(t)
	privPEM, err := p.PrivatePEM()
	require.NoError(t, err)

	dir := t.TempDir()
	path := filepath.Join(dir, "private.pem")
	require.NoError(t, os.WriteFile(path, privPEM, 0o600))

	got, err := Load(Config{PrivateKeyFile: path})
	require.NoError(t, err)
	assert.True(t, got.Public.Equal(p.Public))

	_, err = Load(Config{PrivateKeyFile: filepath.Join(dir, "missing.pem")})
	require.Error(t, err)
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(Config{})
	assert.ErrorIs(t, err, ErrKeyMissing)
}

func TestLoad_Malformed(t *testing.T) {
	_, err := Load(Config{PrivateKey: "not a key!"})
	assert.ErrorIs(t, err, ErrKeyMalformed)

	_, err = Load(Config{PrivateKey: base64.StdEncoding.EncodeToString([]byte("garbage"))})
	assert.ErrorIs(t, err, ErrKeyMalformed)
}

func TestLoad_Mismatch(t *testing.T) {
	a := mustGenerate(t)
	b := mustGenerate(t)
	privPEM, err := a.PrivatePEM()
	require.NoError(t, err)
	pubPEM, err := b.PublicPEM()
	require.NoError(t, err)

	_, err = Load(Config{PrivateKey: string(privPEM), PublicKey: string(pubPEM)})
	assert.ErrorIs(t, err, ErrKeyMismatch)
}

func TestLoad_TooWeak(t *testing.T) {
	weak, err := rsa.GenerateKey(rand.Reader, 1024)
	require.NoError(t, err)
	der, err := x509.MarshalPKCS8PrivateKey(weak)
	require.NoError(t, err)
	privPEM := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})

	_, err = Load(Config{PrivateKey: string(privPEM)})
	assert.ErrorIs(t, err, ErrKeyTooWeak)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("SOCIAL_JWT_KEY_ID", "")
	t.Setenv("SOCIAL_JWT_PRIVATE_KEY_FILE", " /run/secrets/jwt ")
	cfg := LoadConfigFromEnv()
	assert.Equal(t, DefaultKeyID, cfg.KeyID)
	assert.Equal(t, "/run/secrets/jwt", cfg.PrivateKeyFile)
}

func TestJWKS(t *testing.T) {
	p := mustGenerate(t)
	set := p.JWKS()
	require.Len(t, set.Keys, 1)

	k := set.Keys[0]
	assert.Equal(t, "RSA", k.Kty)
	assert.Equal(t, "RS256", k.Alg)
	assert.Equal(t, "test-kid", k.Kid)
	assert.Equal(t, "AQAB", k.E)

	n, err := base64.RawURLEncoding.DecodeString(k.N)
	require.NoError(t, err)
	assert.Equal(t, p.Public.N.Bytes(), n)
}
