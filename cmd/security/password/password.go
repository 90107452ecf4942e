package password

import "strings"

// Hash validates password against the policy and hashes it with the configured algorithm.
func (c Config) Hash(password string) (string, error) {
	if err := c.Validate(password); err != nil {
		return "", err
	}

	switch c.Algorithm {
	case AlgorithmBcrypt:
		return c.hashBcrypt(password)
	default:
		return c.hashArgon2id(password)
	}
}

// Verify checks whether password matches the given encoded hash.
// The scheme is taken from the hash prefix, so argon2id and bcrypt hashes can coexist.
// Returns (true, nil) for a match, (false, nil) for mismatch,
// and (false, ErrInvalidHash) for malformed/unsupported hashes.
func (c Config) Verify(encodedHash, password string) (bool, error) {
	switch {
	case strings.HasPrefix(encodedHash, argon2Prefix):
		return c.verifyArgon2id(encodedHash, password)
	case isBcryptHash(encodedHash):
		return verifyBcrypt(encodedHash, password)
	default:
		return false, ErrInvalidHash
	}
}
