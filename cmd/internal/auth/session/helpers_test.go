package session

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"socialapp/cmd/security/keys"
)

var (
	testPairOnce sync.Once
	testPair     *keys.Pair
	testPairErr  error
)

// sharedTestPair generates one throwaway key pair per test binary.
func sharedTestPair(t *testing.T) *keys.Pair {
	t.Helper()
	testPairOnce.Do(func() {
		testPair, testPairErr = keys.Generate("test-key", 2048)
	})
	require.NoError(t, testPairErr)
	return testPair
}

func newTestManager(t *testing.T, cfg Config) AccessTokenManager {
	t.Helper()
	m, err := NewRS256Manager(cfg, sharedTestPair(t))
	require.NoError(t, err)
	return m
}

type fakeAccount struct {
	id       Identity
	password string
}

// fakeAccounts is an in-memory Accounts keyed by lower-cased username.
type fakeAccounts struct {
	mu     sync.Mutex
	nextID int64
	byName map[string]*fakeAccount
	byID   map[int64]*fakeAccount
}

func newFakeAccounts() *fakeAccounts {
	return &fakeAccounts{byName: map[string]*fakeAccount{}, byID: map[int64]*fakeAccount{}}
}

func (f *fakeAccounts) add(id int64, username, password, role string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a := &fakeAccount{
		id: Identity{
			AccountID:   id,
			DisplayName: username,
			Role:        role,
			Authorities: []string{"ROLE_" + role},
		},
		password: password,
	}
	f.byName[strings.ToLower(username)] = a
	f.byID[id] = a
	if id > f.nextID {
		f.nextID = id
	}
}

func (f *fakeAccounts) setRole(id int64, role string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a := f.byID[id]
	a.id.Role = role
	a.id.Authorities = []string{"ROLE_" + role}
}

func (f *fakeAccounts) remove(id int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a := f.byID[id]
	delete(f.byName, strings.ToLower(a.id.DisplayName))
	delete(f.byID, id)
}

func (f *fakeAccounts) VerifyCredentials(_ context.Context, username, password string) (Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.byName[strings.ToLower(username)]
	if !ok || a.password != password {
		return Identity{}, ErrUnauthorized
	}
	return a.id, nil
}

func (f *fakeAccounts) ResolveIdentity(_ context.Context, accountID int64) (Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.byID[accountID]
	if !ok {
		return Identity{}, ErrAccountNotFound
	}
	return a.id, nil
}

var errDuplicate = &duplicateError{}

type duplicateError struct{}

func (*duplicateError) Error() string { return "duplicate username" }

func (f *fakeAccounts) Register(_ context.Context, reg Registration) (Identity, error) {
	f.mu.Lock()
	if _, ok := f.byName[strings.ToLower(reg.Username)]; ok {
		f.mu.Unlock()
		return Identity{}, errDuplicate
	}
	id := f.nextID + 1
	f.mu.Unlock()

	f.add(id, reg.Username, reg.Password, "MEMBER")
	return f.ResolveIdentity(context.Background(), id)
}
