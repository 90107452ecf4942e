// Package token hashes opaque refresh-token values for server-side storage.
//
// Refresh values are bearer capabilities, so only their digest is persisted.
// With SOCIAL_TOKEN_HMAC_KEY set the digest is HMAC-SHA256 keyed by that secret;
// without it, plain SHA-256 is used (development). Output is always 64 hex chars.
package token
