// Package authapi exposes the session core over HTTP.
//
// Access tokens travel in the Authorization header; the refresh token travels in an
// HttpOnly cookie and is rotated on every refresh. Every authentication failure has
// the same 401 body.
package authapi
