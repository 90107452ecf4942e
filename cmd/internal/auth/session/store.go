package session

import (
	"context"
	"time"
)

// RefreshToken is a stored refresh token. Value is the plain bearer string and is
// only populated on the row returned by Create; stores keep a hash of it.
type RefreshToken struct {
	ID        int64
	Value     string
	AccountID int64
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether the token is past its expiry at now.
func (t RefreshToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// Store persists refresh tokens, at most one per account.
type Store interface {
	// Create replaces any token of accountID with a fresh one, atomically.
	// Unknown accounts yield ErrAccountNotFound.
	Create(ctx context.Context, now time.Time, accountID int64) (RefreshToken, error)

	// FindByValue returns the token for a presented value or ErrRefreshNotFound.
	FindByValue(ctx context.Context, value string) (RefreshToken, error)

	// VerifyNotExpired returns tok unchanged while valid. An expired token is
	// deleted and ErrRefreshExpired returned.
	VerifyNotExpired(ctx context.Context, tok RefreshToken, now time.Time) (RefreshToken, error)

	// Delete removes the token for value. Unknown values are not an error.
	Delete(ctx context.Context, value string) error

	// DeleteForAccount removes the account's token, if any.
	DeleteForAccount(ctx context.Context, accountID int64) error
}
