package keys

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"os"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// MinRSABits is the smallest accepted RSA modulus.
const MinRSABits = 2048

// Pair is the process-wide signing key pair.
type Pair struct {
	KeyID   string
	Private *rsa.PrivateKey
	Public  *rsa.PublicKey
}

// Load resolves configured key material into a validated Pair.
func Load(cfg Config) (*Pair, error) {
	privRaw, err := material(cfg.PrivateKey, cfg.PrivateKeyFile)
	if err != nil {
		return nil, err
	}
	if len(privRaw) == 0 {
		return nil, ErrKeyMissing
	}
	priv, err := ParsePrivateKey(privRaw)
	if err != nil {
		return nil, err
	}

	pub := &priv.PublicKey
	pubRaw, err := material(cfg.PublicKey, cfg.PublicKeyFile)
	if err != nil {
		return nil, err
	}
	if len(pubRaw) > 0 {
		if pub, err = ParsePublicKey(pubRaw); err != nil {
			return nil, err
		}
	}

	keyID := strings.TrimSpace(cfg.KeyID)
	if keyID == "" {
		keyID = DefaultKeyID
	}
	return NewPair(keyID, priv, pub)
}

// NewPair validates strength and pairing before wrapping the keys.
func NewPair(keyID string, priv *rsa.PrivateKey, pub *rsa.PublicKey) (*Pair, error) {
	if priv == nil || pub == nil {
		return nil, ErrKeyMissing
	}
	if priv.N.BitLen() < MinRSABits {
		return nil, fmt.Errorf("%w: %d bits, need %d", ErrKeyTooWeak, priv.N.BitLen(), MinRSABits)
	}
	if !priv.PublicKey.Equal(pub) {
		return nil, ErrKeyMismatch
	}
	if err := priv.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyMalformed, err)
	}
	return &Pair{KeyID: keyID, Private: priv, Public: pub}, nil
}

// Generate creates a fresh pair. bits below MinRSABits are raised to it.
func Generate(keyID string, bits int) (*Pair, error) {
	if bits < MinRSABits {
		bits = MinRSABits
	}
	priv, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, fmt.Errorf("generate rsa key: %w", err)
	}
	if keyID == "" {
		keyID = DefaultKeyID
	}
	return &Pair{KeyID: keyID, Private: priv, Public: &priv.PublicKey}, nil
}

// ParsePrivateKey accepts PEM (PKCS#1 or PKCS#8) or base64 DER in PKCS#8 form.
func ParsePrivateKey(raw []byte) (*rsa.PrivateKey, error) {
	pemBytes, err := asPEM(raw, "PRIVATE KEY")
	if err != nil {
		return nil, err
	}
	key, err := jwt.ParseRSAPrivateKeyFromPEM(pemBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyMalformed, err)
	}
	return key, nil
}

// ParsePublicKey accepts PEM (PKIX, PKCS#1 or certificate) or base64 DER in X.509 SubjectPublicKeyInfo form.
func ParsePublicKey(raw []byte) (*rsa.PublicKey, error) {
	pemBytes, err := asPEM(raw, "PUBLIC KEY")
	if err != nil {
		return nil, err
	}
	key, err := jwt.ParseRSAPublicKeyFromPEM(pemBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyMalformed, err)
	}
	return key, nil
}

// PrivatePEM encodes the private key as PKCS#8 PEM.
func (p *Pair) PrivatePEM() ([]byte, error) {
	der, err := x509.MarshalPKCS8PrivateKey(p.Private)
	if err != nil {
		return nil, err
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}), nil
}

// PublicPEM encodes the public key as PKIX PEM.
func (p *Pair) PublicPEM() ([]byte, error) {
	der, err := x509.MarshalPKIXPublicKey(p.Public)
	if err != nil {
		return nil, err
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}), nil
}

func material(inline, file string) ([]byte, error) {
	if v := strings.TrimSpace(inline); v != "" {
		return []byte(v), nil
	}
	if file == "" {
		return nil, nil
	}
	b, err := os.ReadFile(file) // #nosec G304 -- operator-supplied path.
	if err != nil {
		return nil, fmt.Errorf("read key file: %w", err)
	}
	return bytes.TrimSpace(b), nil
}

// asPEM passes PEM through and wraps base64 DER in a PEM block of blockType.
func asPEM(raw []byte, blockType string) ([]byte, error) {
	raw = bytes.TrimSpace(raw)
	if bytes.HasPrefix(raw, []byte("-----BEGIN")) {
		return raw, nil
	}
	// Base64 material is often pasted with line breaks.
	compact := strings.Join(strings.Fields(string(raw)), "")
	der, err := base64.StdEncoding.DecodeString(compact)
	if err != nil {
		return nil, fmt.Errorf("%w: neither PEM nor base64 DER", ErrKeyMalformed)
	}
	return pem.EncodeToMemory(&pem.Block{Type: blockType, Bytes: der}), nil
}
