package session

import "errors"

var (
	// ErrUnauthorized is returned when credentials do not verify.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidToken is returned when an access token fails verification or validation.
	ErrInvalidToken = errors.New("invalid token")

	// ErrRefreshNotFound is returned when a refresh value matches no stored token.
	ErrRefreshNotFound = errors.New("refresh token not found")

	// ErrRefreshExpired is returned when a refresh token has expired. The row is gone by then.
	ErrRefreshExpired = errors.New("refresh token expired")

	// ErrAccountNotFound is returned when the account behind a token or create call does not exist.
	ErrAccountNotFound = errors.New("account not found")

	// ErrConfig is returned for invalid configuration.
	ErrConfig = errors.New("invalid config")
)

// IsAuthFailure reports whether err should surface as a uniform 401.
func IsAuthFailure(err error) bool {
	return errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrInvalidToken) ||
		errors.Is(err, ErrRefreshNotFound) ||
		errors.Is(err, ErrRefreshExpired) ||
		errors.Is(err, ErrAccountNotFound)
}
