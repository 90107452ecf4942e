package app

import (
	"errors"

	"socialapp/cmd/security/token"
)

// ValidateSecurityConfig enforces the startup security policy.
// Under SOCIAL_REQUIRE_TOKEN_HMAC the refresh-token hasher must run keyed.
func ValidateSecurityConfig(cfg Config) error {
	if !cfg.RequireTokenHMAC {
		return nil
	}

	// Bytes, not runes: the key is used raw.
	if _, err := token.HMACKeyFromEnv(32); err != nil {
		switch {
		case errors.Is(err, token.ErrHMACKeyMissing):
			return errors.New("security policy: SOCIAL_REQUIRE_TOKEN_HMAC=true but SOCIAL_TOKEN_HMAC_KEY is missing")
		case errors.Is(err, token.ErrHMACKeyTooShort):
			return errors.New("security policy: SOCIAL_REQUIRE_TOKEN_HMAC=true but SOCIAL_TOKEN_HMAC_KEY is too short (min 32 bytes)")
		default:
			return err
		}
	}

	if !token.HMACEnabled() {
		return errors.New("security policy: SOCIAL_REQUIRE_TOKEN_HMAC=true but token hasher is not in HMAC mode")
	}

	return nil
}
