package identity

import (
	"context"
	"errors"
	"net"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"socialapp/cmd/migrations"
)

// Integration tests are opt-in and require SOCIAL_DATABASE_URL.
// In non-CI runs, unreachable Postgres skips these tests to keep local runs fast.

func TestPostgresStore_CreateAccount_ConflictsCaseInsensitive(t *testing.T) {
	pool := mustOpenTestPool(t)
	s := mustNewStore(t, pool)
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	name := uniqueName()
	_, err := s.CreateAccount(ctx, CreateAccountInput{
		Username: name, Email: name + "@example.com", PasswordHash: "x", Now: time.Now().UTC(),
	})
	require.NoError(t, err)

	_, err = s.CreateAccount(ctx, CreateAccountInput{
		Username: strings.ToUpper(name), Email: "other-" + name + "@example.com", PasswordHash: "x",
	})
	require.True(t, IsConflict(err), "got %v", err)
	assert.Equal(t, "username", ConflictField(err))

	_, err = s.CreateAccount(ctx, CreateAccountInput{
		Username: "o" + name, Email: strings.ToUpper(name) + "@EXAMPLE.com", PasswordHash: "x",
	})
	assert.Equal(t, "email", ConflictField(err))
}

func TestPostgresStore_LookupsRoleAndDelete(t *testing.T) {
	pool := mustOpenTestPool(t)
	s := mustNewStore(t, pool)
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	name := uniqueName()
	bio := "hello"
	acc, err := s.CreateAccount(ctx, CreateAccountInput{
		Username: name, Email: name + "@example.com", Bio: &bio, PasswordHash: "hash-value",
	})
	require.NoError(t, err)
	assert.Equal(t, RoleMember, acc.Role)
	require.NotNil(t, acc.Bio)

	rec, err := s.GetAuthByUsername(ctx, strings.ToUpper(name))
	require.NoError(t, err)
	assert.Equal(t, acc.ID, rec.ID)
	assert.Equal(t, "hash-value", rec.PasswordHash)

	field, err := s.Taken(ctx, name, "free-"+name+"@example.com")
	require.NoError(t, err)
	assert.Equal(t, "username", field)

	updated, err := s.SetRoleByEmail(ctx, name+"@example.com", RoleAdmin, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, updated.Role)

	require.NoError(t, s.DeleteAccount(ctx, acc.ID))
	_, err = s.GetByID(ctx, acc.ID)
	assert.True(t, IsNotFound(err))
	assert.True(t, IsNotFound(s.DeleteAccount(ctx, acc.ID)))
}

func mustNewStore(t *testing.T, pool *pgxpool.Pool) *PostgresStore {
	t.Helper()
	s, err := NewPostgresStore(pool)
	require.NoError(t, err)
	return s
}

func uniqueName() string {
	return "u" + strings.ToLower(ulid.Make().String())[:20]
}

func mustOpenTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	raw := strings.TrimSpace(os.Getenv("SOCIAL_DATABASE_URL"))
	if raw == "" {
		t.Skip("integration test skipped: SOCIAL_DATABASE_URL is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 12*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, raw)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	c, err := pool.Acquire(ctx)
	if err != nil {
		if shouldSkipIntegration(err) {
			t.Skipf("integration test skipped: Postgres unreachable (SOCIAL_DATABASE_URL set): %v", err)
		}
		t.Fatalf("acquire: %v", err)
	}
	c.Release()

	db := stdlib.OpenDBFromPool(pool)
	defer func() { _ = db.Close() }()
	require.NoError(t, migrations.Up(ctx, db))

	return pool
}

func shouldSkipIntegration(err error) bool {
	if err == nil || os.Getenv("CI") != "" {
		return false
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "no such host")
}
