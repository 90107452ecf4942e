// Package keys holds the RSA key pair that signs and verifies access tokens.
//
// The pair is loaded once at startup from configuration and is immutable
// afterwards; it is safe for concurrent use without locking. Loading fails
// for absent, undecodable, mismatched or sub-2048-bit material, and callers
// are expected to abort startup on any such error.
package keys
