package identity

import (
	"context"
	"time"
)

// CreateAccountInput is a validated, normalized insert.
type CreateAccountInput struct {
	Username     string
	Email        string
	Bio          *string
	Role         Role
	PasswordHash string
	Now          time.Time
}

// Store is the account persistence boundary.
type Store interface {
	// CreateAccount inserts an account. Duplicate username/email -> ConflictError.
	CreateAccount(ctx context.Context, in CreateAccountInput) (Account, error)

	// GetByID returns NotFoundError for unknown ids.
	GetByID(ctx context.Context, id int64) (Account, error)

	// GetAuthByUsername looks up by normalized username.
	GetAuthByUsername(ctx context.Context, username string) (AuthRecord, error)

	// Taken reports the first field ("email", then "username") already in use, or "".
	Taken(ctx context.Context, username, email string) (string, error)

	// SetRoleByEmail changes the role of the account owning email.
	SetRoleByEmail(ctx context.Context, email string, role Role, now time.Time) (Account, error)

	// DeleteAccount removes the account; NotFoundError when absent.
	DeleteAccount(ctx context.Context, id int64) error
}
