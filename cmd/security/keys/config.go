package keys

import (
	"os"
	"strings"
)

// DefaultKeyID is the "kid" advertised when none is configured.
const DefaultKeyID = "jwt-key-1"

// Config names where key material comes from. Inline values win over files.
type Config struct {
	KeyID string

	PrivateKey     string
	PublicKey      string
	PrivateKeyFile string
	PublicKeyFile  string
}

// LoadConfigFromEnv reads:
//   - SOCIAL_JWT_KEY_ID
//   - SOCIAL_JWT_PRIVATE_KEY / SOCIAL_JWT_PRIVATE_KEY_FILE
//   - SOCIAL_JWT_PUBLIC_KEY / SOCIAL_JWT_PUBLIC_KEY_FILE
//
// Inline values may be PEM text or base64-encoded DER.
func LoadConfigFromEnv() Config {
	cfg := Config{
		KeyID:          strings.TrimSpace(os.Getenv("SOCIAL_JWT_KEY_ID")),
		PrivateKey:     os.Getenv("SOCIAL_JWT_PRIVATE_KEY"),
		PublicKey:      os.Getenv("SOCIAL_JWT_PUBLIC_KEY"),
		PrivateKeyFile: strings.TrimSpace(os.Getenv("SOCIAL_JWT_PRIVATE_KEY_FILE")),
		PublicKeyFile:  strings.TrimSpace(os.Getenv("SOCIAL_JWT_PUBLIC_KEY_FILE")),
	}
	if cfg.KeyID == "" {
		cfg.KeyID = DefaultKeyID
	}
	return cfg
}
