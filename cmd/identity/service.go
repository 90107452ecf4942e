package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"socialapp/cmd/security/password"
)

// RegisterInput is a raw registration request.
type RegisterInput struct {
	Username        string
	Email           string
	Password        string
	ConfirmPassword string
	Bio             *string
	Role            Role
	Now             time.Time
}

// Service applies account rules on top of a Store.
type Service struct {
	store     Store
	pw        password.Config
	dummyHash string
}

// NewService builds a Service. The password config decides how new hashes are made.
func NewService(store Store, pw password.Config) (*Service, error) {
	if store == nil {
		return nil, errors.New("identity: nil store")
	}
	s := &Service{store: store, pw: pw}

	// Dummy hash for timing-resistant login checks.
	dummy := pw
	dummy.Policy.MinLength = 1
	if hash, err := dummy.Hash("dummy-password-for-timing-only"); err == nil {
		s.dummyHash = hash
	}
	return s, nil
}

// Register creates an account.
//
// Order of checks: password confirmation, field shape, duplicates (email then
// username), password policy. The store's unique constraints remain the final word
// when two registrations race.
func (s *Service) Register(ctx context.Context, in RegisterInput) (Account, error) {
	const op = "identity.Register"

	if in.Password != in.ConfirmPassword {
		return Account{}, OpError{Op: op, Kind: ErrPasswordMismatch, Msg: "password and confirmation differ"}
	}

	username := strings.TrimSpace(in.Username)
	email := strings.TrimSpace(in.Email)
	if !validUsername(username) {
		return Account{}, invalid(op, "username must be 3-32 characters of letters, digits, '.', '_' or '-'")
	}
	if !validEmail(email) {
		return Account{}, invalid(op, "invalid email")
	}
	var bio *string
	if in.Bio != nil {
		b := strings.TrimSpace(*in.Bio)
		if utf8.RuneCountInString(b) > maxBioLen {
			return Account{}, invalid(op, fmt.Sprintf("bio exceeds %d characters", maxBioLen))
		}
		if b != "" {
			bio = &b
		}
	}
	role := in.Role
	if role == "" {
		role = RoleMember
	}
	if _, ok := ParseRole(string(role)); !ok {
		return Account{}, invalid(op, "unknown role")
	}

	field, err := s.store.Taken(ctx, username, email)
	if err != nil {
		return Account{}, err
	}
	if field != "" {
		return Account{}, ConflictError{Op: op, Field: field}
	}

	hash, err := s.pw.Hash(in.Password)
	if err != nil {
		if isPolicyError(err) {
			return Account{}, invalid(op, err.Error())
		}
		return Account{}, fmt.Errorf("%s: hash password: %w", op, err)
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	return s.store.CreateAccount(ctx, CreateAccountInput{
		Username:     username,
		Email:        email,
		Bio:          bio,
		Role:         role,
		PasswordHash: hash,
		Now:          now,
	})
}

// Authenticate verifies a username/password pair.
// Unknown user and wrong password both yield ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, username, pw string) (Account, error) {
	const op = "identity.Authenticate"

	rec, err := s.store.GetAuthByUsername(ctx, username)
	if err != nil {
		if IsNotFound(err) {
			// Timing resistance: perform a dummy verify when the user is missing.
			if s.dummyHash != "" {
				_, _ = s.pw.Verify(s.dummyHash, pw)
			}
			return Account{}, OpError{Op: op, Kind: ErrInvalidCredentials}
		}
		return Account{}, err
	}

	ok, err := s.pw.Verify(rec.PasswordHash, pw)
	if err != nil || !ok {
		return Account{}, OpError{Op: op, Kind: ErrInvalidCredentials}
	}
	return rec.Account, nil
}

// Get returns the account with id.
func (s *Service) Get(ctx context.Context, id int64) (Account, error) {
	return s.store.GetByID(ctx, id)
}

// SetRole changes the role of the account owning email.
func (s *Service) SetRole(ctx context.Context, email string, role Role, now time.Time) (Account, error) {
	r, ok := ParseRole(string(role))
	if !ok {
		return Account{}, invalid("identity.SetRole", "unknown role")
	}
	return s.store.SetRoleByEmail(ctx, email, r, now)
}

// Delete removes the account.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.store.DeleteAccount(ctx, id)
}

// EnsureAccount registers in unless its email or username is already taken.
// created is false when an account already existed.
func (s *Service) EnsureAccount(ctx context.Context, in RegisterInput) (acc Account, created bool, err error) {
	acc, err = s.Register(ctx, in)
	if err == nil {
		return acc, true, nil
	}
	if IsConflict(err) {
		return Account{}, false, nil
	}
	return Account{}, false, err
}

func isPolicyError(err error) bool {
	return errors.Is(err, password.ErrPasswordTooShort) ||
		errors.Is(err, password.ErrPasswordTooLong) ||
		errors.Is(err, password.ErrWeakPassword)
}
