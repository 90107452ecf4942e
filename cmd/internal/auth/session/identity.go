package session

import (
	"context"
)

// Identity is an authenticated principal, resolved once at the boundary and
// passed explicitly from there on.
type Identity struct {
	AccountID   int64
	DisplayName string
	Role        string
	Authorities []string
}

// HasAuthority reports whether a is among the identity's authorities.
func (i Identity) HasAuthority(a string) bool {
	for _, v := range i.Authorities {
		if v == a {
			return true
		}
	}
	return false
}

// Registration carries the fields of a self-service sign-up.
type Registration struct {
	Username        string
	Email           string
	Password        string
	ConfirmPassword string
	Bio             *string
}

// IdentityResolver loads an account's current identity.
// Unknown accounts yield ErrAccountNotFound.
type IdentityResolver interface {
	ResolveIdentity(ctx context.Context, accountID int64) (Identity, error)
}

// Accounts is the account collaborator consumed by the orchestrator.
type Accounts interface {
	IdentityResolver

	// VerifyCredentials returns ErrUnauthorized for unknown users and wrong passwords alike.
	VerifyCredentials(ctx context.Context, username, password string) (Identity, error)

	// Register creates a member account. Its errors are propagated unchanged.
	Register(ctx context.Context, reg Registration) (Identity, error)
}
