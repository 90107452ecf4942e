package authapi

import (
	"context"
	"errors"
	"time"

	"socialapp/cmd/identity"
	"socialapp/cmd/internal/auth/session"
)

// AccountDirectory exposes an identity.Service as the session layer's account collaborator.
type AccountDirectory struct {
	accounts *identity.Service
	now      func() time.Time
}

// NewAccountDirectory wraps svc.
func NewAccountDirectory(svc *identity.Service) *AccountDirectory {
	return &AccountDirectory{accounts: svc, now: func() time.Time { return time.Now().UTC() }}
}

var _ session.Accounts = (*AccountDirectory)(nil)

func (d *AccountDirectory) VerifyCredentials(ctx context.Context, username, password string) (session.Identity, error) {
	acc, err := d.accounts.Authenticate(ctx, username, password)
	if err != nil {
		if errors.Is(err, identity.ErrInvalidCredentials) {
			return session.Identity{}, session.ErrUnauthorized
		}
		return session.Identity{}, err
	}
	return IdentityOf(acc), nil
}

func (d *AccountDirectory) ResolveIdentity(ctx context.Context, accountID int64) (session.Identity, error) {
	acc, err := d.accounts.Get(ctx, accountID)
	if err != nil {
		if identity.IsNotFound(err) {
			return session.Identity{}, session.ErrAccountNotFound
		}
		return session.Identity{}, err
	}
	return IdentityOf(acc), nil
}

func (d *AccountDirectory) Register(ctx context.Context, reg session.Registration) (session.Identity, error) {
	acc, err := d.accounts.Register(ctx, identity.RegisterInput{
		Username:        reg.Username,
		Email:           reg.Email,
		Password:        reg.Password,
		ConfirmPassword: reg.ConfirmPassword,
		Bio:             reg.Bio,
		Role:            identity.RoleMember,
		Now:             d.now(),
	})
	if err != nil {
		return session.Identity{}, err
	}
	return IdentityOf(acc), nil
}

// IdentityOf converts an account into the principal carried by tokens.
func IdentityOf(acc identity.Account) session.Identity {
	return session.Identity{
		AccountID:   acc.ID,
		DisplayName: acc.Username,
		Role:        string(acc.Role),
		Authorities: acc.Authorities(),
	}
}
