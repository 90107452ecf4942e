package keys

import "errors"

var (
	// ErrKeyMissing is returned when no private key is configured.
	ErrKeyMissing = errors.New("signing key missing")

	// ErrKeyMalformed is returned when key material cannot be decoded as an RSA key.
	ErrKeyMalformed = errors.New("signing key malformed")

	// ErrKeyTooWeak is returned for RSA moduli below MinRSABits.
	ErrKeyTooWeak = errors.New("signing key too weak")

	// ErrKeyMismatch is returned when the public key does not belong to the private key.
	ErrKeyMismatch = errors.New("signing key pair mismatch")
)
