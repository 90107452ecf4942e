package session

import (
	"context"
	"encoding/base64"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMemoryStore(t *testing.T) (*MemoryStore, *fakeAccounts) {
	t.Helper()
	accounts := newFakeAccounts()
	accounts.add(42, "alice", "pw-alice-123", "MEMBER")
	accounts.add(7, "bob", "pw-bob-12345", "ADMIN")
	return NewMemoryStore(DefaultConfig(), accounts), accounts
}

func TestMemoryStore_CreateReplacesPrevious(t *testing.T) {
	st, _ := newTestMemoryStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	first, err := st.Create(ctx, now, 42)
	require.NoError(t, err)
	second, err := st.Create(ctx, now, 42)
	require.NoError(t, err)

	assert.NotEqual(t, first.Value, second.Value)
	assert.Equal(t, now.Add(DefaultConfig().RefreshTTL), second.ExpiresAt)

	n, err := st.Count(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = st.FindByValue(ctx, first.Value)
	assert.ErrorIs(t, err, ErrRefreshNotFound)

	got, err := st.FindByValue(ctx, second.Value)
	require.NoError(t, err)
	assert.Equal(t, int64(42), got.AccountID)
	assert.Equal(t, second.ID, got.ID)
}

func TestMemoryStore_ValueEntropy(t *testing.T) {
	st, _ := newTestMemoryStore(t)
	tok, err := st.Create(context.Background(), time.Now(), 42)
	require.NoError(t, err)

	raw, err := base64.RawURLEncoding.DecodeString(tok.Value)
	require.NoError(t, err)
	assert.Len(t, raw, DefaultConfig().RefreshTokenBytes)
}

func TestMemoryStore_CreateUnknownAccount(t *testing.T) {
	st, _ := newTestMemoryStore(t)
	_, err := st.Create(context.Background(), time.Now(), 999)
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestMemoryStore_ConcurrentCreatesLeaveOneRow(t *testing.T) {
	st, _ := newTestMemoryStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := st.Create(ctx, time.Now(), 42)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	n, err := st.Count(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestMemoryStore_VerifyNotExpired(t *testing.T) {
	st, _ := newTestMemoryStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	tok, err := st.Create(ctx, now, 42)
	require.NoError(t, err)

	got, err := st.VerifyNotExpired(ctx, tok, tok.ExpiresAt.Add(-time.Nanosecond))
	require.NoError(t, err)
	assert.Equal(t, tok, got)

	_, err = st.VerifyNotExpired(ctx, tok, tok.ExpiresAt)
	assert.ErrorIs(t, err, ErrRefreshExpired)

	_, err = st.FindByValue(ctx, tok.Value)
	assert.ErrorIs(t, err, ErrRefreshNotFound)
	n, _ := st.Count(ctx, 42)
	assert.Zero(t, n)
}

func TestMemoryStore_DeleteIdempotent(t *testing.T) {
	st, _ := newTestMemoryStore(t)
	ctx := context.Background()

	tok, err := st.Create(ctx, time.Now(), 42)
	require.NoError(t, err)
	other, err := st.Create(ctx, time.Now(), 7)
	require.NoError(t, err)

	require.NoError(t, st.Delete(ctx, tok.Value))
	require.NoError(t, st.Delete(ctx, tok.Value))
	require.NoError(t, st.Delete(ctx, "never-issued"))
	require.NoError(t, st.Delete(ctx, ""))

	_, err = st.FindByValue(ctx, tok.Value)
	assert.ErrorIs(t, err, ErrRefreshNotFound)
	_, err = st.FindByValue(ctx, other.Value)
	assert.NoError(t, err)

	require.NoError(t, st.DeleteForAccount(ctx, 7))
	require.NoError(t, st.DeleteForAccount(ctx, 7))
	_, err = st.FindByValue(ctx, other.Value)
	assert.ErrorIs(t, err, ErrRefreshNotFound)
}
