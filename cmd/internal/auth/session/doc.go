// Package session implements the authentication session core.
//
// Access tokens are RS256 JWTs carrying {sub, iss, iat, exp, name, scope};
// they are never persisted and cannot be revoked before they expire.
// Refresh tokens are opaque random strings. Each account holds at most one;
// issuing a new one replaces the old in a single transaction, so every
// login and every refresh rotates it. Only a hash of the value is stored
// (HMAC-SHA256 when SOCIAL_TOKEN_HMAC_KEY is set, otherwise SHA-256).
//
// Transport (cookies, HTTP status codes) lives in package authapi.
package session
