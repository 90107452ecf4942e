package session

import (
	"context"
	"strings"
	"sync"
	"time"
)

// MemoryStore keeps refresh tokens in process memory. It honors the same
// contract as PostgresStore; the mutex plays the role of the transaction.
type MemoryStore struct {
	cfg      Config
	accounts IdentityResolver

	mu        sync.Mutex
	nextID    int64
	byHash    map[string]RefreshToken
	byAccount map[int64]string
}

// NewMemoryStore builds a MemoryStore. accounts is consulted on Create to reject
// unknown account ids.
func NewMemoryStore(cfg Config, accounts IdentityResolver) *MemoryStore {
	return &MemoryStore{
		cfg:       cfg,
		accounts:  accounts,
		byHash:    make(map[string]RefreshToken),
		byAccount: make(map[int64]string),
	}
}

func (s *MemoryStore) Create(ctx context.Context, now time.Time, accountID int64) (RefreshToken, error) {
	if s.accounts != nil {
		if _, err := s.accounts.ResolveIdentity(ctx, accountID); err != nil {
			return RefreshToken{}, err
		}
	}
	plain, hash, err := newOpaqueRefreshToken(s.cfg.RefreshTokenBytes)
	if err != nil {
		return RefreshToken{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.byAccount[accountID]; ok {
		delete(s.byHash, old)
	}
	s.nextID++
	tok := RefreshToken{
		ID:        s.nextID,
		AccountID: accountID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.cfg.RefreshTTL),
	}
	s.byHash[hash] = tok
	s.byAccount[accountID] = hash

	tok.Value = plain
	return tok, nil
}

func (s *MemoryStore) FindByValue(ctx context.Context, value string) (RefreshToken, error) {
	if err := ctx.Err(); err != nil {
		return RefreshToken{}, err
	}
	value = strings.TrimSpace(value)
	if value == "" || len(value) > maxRefreshValueLen {
		return RefreshToken{}, ErrRefreshNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tok, ok := s.byHash[hashRefreshTokenHex(value)]
	if !ok {
		return RefreshToken{}, ErrRefreshNotFound
	}
	tok.Value = value
	return tok, nil
}

func (s *MemoryStore) VerifyNotExpired(ctx context.Context, tok RefreshToken, now time.Time) (RefreshToken, error) {
	if !tok.Expired(now) {
		return tok, nil
	}
	if err := ctx.Err(); err != nil {
		return RefreshToken{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for hash, stored := range s.byHash {
		if stored.ID == tok.ID {
			delete(s.byHash, hash)
			delete(s.byAccount, stored.AccountID)
			break
		}
	}
	return RefreshToken{}, ErrRefreshExpired
}

func (s *MemoryStore) Delete(ctx context.Context, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	hash := hashRefreshTokenHex(value)

	s.mu.Lock()
	defer s.mu.Unlock()

	if tok, ok := s.byHash[hash]; ok {
		delete(s.byHash, hash)
		delete(s.byAccount, tok.AccountID)
	}
	return nil
}

func (s *MemoryStore) DeleteForAccount(ctx context.Context, accountID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if hash, ok := s.byAccount[accountID]; ok {
		delete(s.byHash, hash)
		delete(s.byAccount, accountID)
	}
	return nil
}

// Count returns the number of stored tokens for an account (0 or 1).
func (s *MemoryStore) Count(_ context.Context, accountID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, tok := range s.byHash {
		if tok.AccountID == accountID {
			n++
		}
	}
	return n, nil
}

// Expire moves the account's token expiry to at. Used to simulate ageing.
func (s *MemoryStore) Expire(accountID int64, at time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	hash, ok := s.byAccount[accountID]
	if !ok {
		return false
	}
	tok := s.byHash[hash]
	tok.ExpiresAt = at
	s.byHash[hash] = tok
	return true
}
