package identity

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryStore is an in-process Store used when no database is configured and in tests.
type MemoryStore struct {
	mu         sync.RWMutex
	nextID     int64
	byID       map[int64]*AuthRecord
	byUsername map[string]int64
	byEmail    map[string]int64
}

// NewMemoryStore returns an empty store whose first id is 1.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:       make(map[int64]*AuthRecord),
		byUsername: make(map[string]int64),
		byEmail:    make(map[string]int64),
	}
}

func (s *MemoryStore) CreateAccount(ctx context.Context, in CreateAccountInput) (Account, error) {
	const op = "identity.CreateAccount"
	if err := ctx.Err(); err != nil {
		return Account{}, err
	}

	un, em := NormalizeUsername(in.Username), NormalizeEmail(in.Email)
	role := in.Role
	if role == "" {
		role = RoleMember
	}
	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byUsername[un]; ok {
		return Account{}, ConflictError{Op: op, Field: "username"}
	}
	if _, ok := s.byEmail[em]; ok {
		return Account{}, ConflictError{Op: op, Field: "email"}
	}

	s.nextID++
	rec := &AuthRecord{
		Account: Account{
			ID:        s.nextID,
			Username:  strings.TrimSpace(in.Username),
			Email:     strings.TrimSpace(in.Email),
			Bio:       copyStr(in.Bio),
			Role:      role,
			CreatedAt: now,
		},
		PasswordHash: in.PasswordHash,
	}
	s.byID[rec.ID] = rec
	s.byUsername[un] = rec.ID
	s.byEmail[em] = rec.ID
	return rec.Account, nil
}

func (s *MemoryStore) GetByID(ctx context.Context, id int64) (Account, error) {
	if err := ctx.Err(); err != nil {
		return Account{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.byID[id]
	if !ok {
		return Account{}, NotFoundError{Op: "identity.GetByID", Resource: "account"}
	}
	return rec.Account, nil
}

func (s *MemoryStore) GetAuthByUsername(ctx context.Context, username string) (AuthRecord, error) {
	if err := ctx.Err(); err != nil {
		return AuthRecord{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byUsername[NormalizeUsername(username)]
	if !ok {
		return AuthRecord{}, NotFoundError{Op: "identity.GetAuthByUsername", Resource: "account"}
	}
	return *s.byID[id], nil
}

func (s *MemoryStore) Taken(ctx context.Context, username, email string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.byEmail[NormalizeEmail(email)]; ok {
		return "email", nil
	}
	if _, ok := s.byUsername[NormalizeUsername(username)]; ok {
		return "username", nil
	}
	return "", nil
}

func (s *MemoryStore) SetRoleByEmail(ctx context.Context, email string, role Role, _ time.Time) (Account, error) {
	if err := ctx.Err(); err != nil {
		return Account{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byEmail[NormalizeEmail(email)]
	if !ok {
		return Account{}, NotFoundError{Op: "identity.SetRoleByEmail", Resource: "account"}
	}
	rec := s.byID[id]
	rec.Role = role
	return rec.Account, nil
}

func (s *MemoryStore) DeleteAccount(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.byID[id]
	if !ok {
		return NotFoundError{Op: "identity.DeleteAccount", Resource: "account"}
	}
	delete(s.byUsername, NormalizeUsername(rec.Username))
	delete(s.byEmail, NormalizeEmail(rec.Email))
	delete(s.byID, id)
	return nil
}

// IDs lists stored account ids in ascending order.
func (s *MemoryStore) IDs() []int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]int64, 0, len(s.byID))
	for id := range s.byID {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func copyStr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
