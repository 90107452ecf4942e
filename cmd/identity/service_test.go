package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"socialapp/cmd/security/password"
)

func testPasswordConfig() password.Config {
	cfg := password.DefaultConfig()
	cfg.Params.MemoryKiB = 8 * 1024
	cfg.Params.Iterations = 1
	return cfg
}

func newTestService(t *testing.T) (*Service, *MemoryStore) {
	t.Helper()
	st := NewMemoryStore()
	svc, err := NewService(st, testPasswordConfig())
	require.NoError(t, err)
	return svc, st
}

func validInput() RegisterInput {
	return RegisterInput{
		Username:        "Alice",
		Email:           "Alice@Example.com",
		Password:        "correct horse battery",
		ConfirmPassword: "correct horse battery",
	}
}

func TestRegister_CreatesMember(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	acc, err := svc.Register(ctx, validInput())
	require.NoError(t, err)
	assert.Equal(t, int64(1), acc.ID)
	assert.Equal(t, "Alice", acc.Username)
	assert.Equal(t, RoleMember, acc.Role)
	assert.Equal(t, []string{"ROLE_MEMBER"}, acc.Authorities())
	assert.Nil(t, acc.Bio)
}

func TestRegister_MismatchCheckedBeforeConflict(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, validInput())
	require.NoError(t, err)

	in := validInput()
	in.ConfirmPassword = "something else entirely"
	_, err = svc.Register(ctx, in)
	require.ErrorIs(t, err, ErrPasswordMismatch)
	assert.False(t, IsConflict(err))
}

func TestRegister_Conflicts(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, validInput())
	require.NoError(t, err)

	tests := []struct {
		name     string
		username string
		email    string
		field    string
	}{
		{"email wins when both taken", "alice", "alice@example.com", "email"},
		{"email case-insensitive", "bob", "ALICE@example.COM", "email"},
		{"username case-insensitive", "ALICE", "other@example.com", "username"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			in := validInput()
			in.Username, in.Email = tc.username, tc.email
			_, err := svc.Register(ctx, in)
			require.ErrorIs(t, err, ErrConflict)
			assert.Equal(t, tc.field, ConflictField(err))
		})
	}
}

func TestRegister_InvalidInput(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	long := make([]byte, maxBioLen+1)
	for i := range long {
		long[i] = 'x'
	}
	bio := string(long)

	tests := []struct {
		name string
		mod  func(*RegisterInput)
	}{
		{"short username", func(in *RegisterInput) { in.Username = "ab" }},
		{"username with spaces", func(in *RegisterInput) { in.Username = "a b c" }},
		{"bad email", func(in *RegisterInput) { in.Email = "not-an-email" }},
		{"short password", func(in *RegisterInput) { in.Password, in.ConfirmPassword = "short", "short" }},
		{"bio too long", func(in *RegisterInput) { in.Bio = &bio }},
		{"unknown role", func(in *RegisterInput) { in.Role = "ROOT" }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			in := validInput()
			tc.mod(&in)
			_, err := svc.Register(ctx, in)
			assert.True(t, IsInvalidInput(err), "got %v", err)
		})
	}
}

func TestAuthenticate(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Register(ctx, validInput())
	require.NoError(t, err)

	acc, err := svc.Authenticate(ctx, "  ALICE ", "correct horse battery")
	require.NoError(t, err)
	assert.Equal(t, created.ID, acc.ID)

	_, wrongPw := svc.Authenticate(ctx, "alice", "wrong password here")
	_, unknown := svc.Authenticate(ctx, "nobody", "correct horse battery")
	require.ErrorIs(t, wrongPw, ErrInvalidCredentials)
	require.ErrorIs(t, unknown, ErrInvalidCredentials)
	assert.Equal(t, wrongPw.Error(), unknown.Error())
}

func TestAuthenticate_StoreFailurePropagates(t *testing.T) {
	svc, _ := newTestService(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Authenticate(ctx, "alice", "whatever-password")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestSetRoleAndDelete(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	acc, err := svc.Register(ctx, validInput())
	require.NoError(t, err)

	updated, err := svc.SetRole(ctx, "alice@example.com", "admin", time.Now())
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, updated.Role)

	got, err := svc.Get(ctx, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, got.Role)

	_, err = svc.SetRole(ctx, "missing@example.com", RoleAdmin, time.Now())
	assert.True(t, IsNotFound(err))

	require.NoError(t, svc.Delete(ctx, acc.ID))
	assert.Empty(t, st.IDs())
	assert.True(t, IsNotFound(svc.Delete(ctx, acc.ID)))

	// Username is free again after deletion.
	_, err = svc.Register(ctx, validInput())
	require.NoError(t, err)
}

func TestEnsureAccount(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	in := validInput()
	in.Role = RoleAdmin

	acc, created, err := svc.EnsureAccount(ctx, in)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, RoleAdmin, acc.Role)

	_, created, err = svc.EnsureAccount(ctx, in)
	require.NoError(t, err)
	assert.False(t, created)
}

func TestParseRole(t *testing.T) {
	for in, want := range map[string]Role{
		"member":     RoleMember,
		"ROLE_ADMIN": RoleAdmin,
		" Admin ":    RoleAdmin,
	} {
		got, ok := ParseRole(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	_, ok := ParseRole("owner")
	assert.False(t, ok)
}
