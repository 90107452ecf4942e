package session

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Issuer is the fixed "iss" claim identifying this service as the token origin.
const Issuer = "self"

const (
	minRefreshTokenBytes = 32
	maxRefreshTokenBytes = 64
)

// Config defines runtime configuration for the session subsystem.
type Config struct {
	// AccessTokenTTL defines the lifetime of access tokens.
	AccessTokenTTL time.Duration

	// RefreshTTL defines the lifetime of a refresh token from its creation.
	RefreshTTL time.Duration

	// RefreshTokenBytes is the number of random bytes behind each refresh value.
	RefreshTokenBytes int
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		AccessTokenTTL:    15 * time.Minute,
		RefreshTTL:        7 * 24 * time.Hour,
		RefreshTokenBytes: minRefreshTokenBytes,
	}
}

// LoadConfigFromEnv loads session configuration from environment variables.
//
// Optional (durations must be valid Go duration strings):
//   - SOCIAL_AUTH_ACCESS_TTL
//   - SOCIAL_AUTH_REFRESH_TTL
//   - SOCIAL_AUTH_REFRESH_TOKEN_BYTES (32..64)
//
// Returns ErrConfig if configuration is invalid.
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	if v := strings.TrimSpace(os.Getenv("SOCIAL_AUTH_ACCESS_TTL")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, ErrConfig
		}
		cfg.AccessTokenTTL = d
	}

	if v := strings.TrimSpace(os.Getenv("SOCIAL_AUTH_REFRESH_TTL")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, ErrConfig
		}
		cfg.RefreshTTL = d
	}

	if v := strings.TrimSpace(os.Getenv("SOCIAL_AUTH_REFRESH_TOKEN_BYTES")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < minRefreshTokenBytes || n > maxRefreshTokenBytes {
			return Config{}, ErrConfig
		}
		cfg.RefreshTokenBytes = n
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks invariants between fields.
func (c Config) Validate() error {
	if c.AccessTokenTTL <= 0 || c.RefreshTTL <= 0 {
		return ErrConfig
	}
	if c.RefreshTokenBytes < minRefreshTokenBytes || c.RefreshTokenBytes > maxRefreshTokenBytes {
		return ErrConfig
	}
	// A refresh token that dies before the access token it accompanies is useless.
	if c.RefreshTTL < c.AccessTokenTTL {
		return ErrConfig
	}
	return nil
}
