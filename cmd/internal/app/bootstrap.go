package app

import (
	"context"
	"fmt"
	"time"

	"socialapp/cmd/identity"
)

// bootstrapAdmin creates the configured ADMIN account unless the username or email is taken.
// An existing account is left untouched, so restarts are idempotent.
func bootstrapAdmin(ctx context.Context, accounts *identity.Service, b AdminBootstrap, log Logger) error {
	if !b.Enabled() {
		return nil
	}
	acc, created, err := accounts.EnsureAccount(ctx, identity.RegisterInput{
		Username:        b.Username,
		Email:           b.Email,
		Password:        b.Password,
		ConfirmPassword: b.Password,
		Role:            identity.RoleAdmin,
		Now:             time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("bootstrap admin: %w", err)
	}
	if created {
		log.Info("admin.bootstrap.created", "account_id", acc.ID, "username", acc.Username)
	} else {
		log.Info("admin.bootstrap.exists", "username", b.Username)
	}
	return nil
}
