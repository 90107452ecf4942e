package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store using PostgreSQL (socialapp.refresh_tokens).
type PostgresStore struct {
	pool *pgxpool.Pool
	cfg  Config
}

// NewPostgresStore creates a Postgres-backed refresh token store.
func NewPostgresStore(pool *pgxpool.Pool, cfg Config) *PostgresStore {
	return &PostgresStore{pool: pool, cfg: cfg}
}

// Create locks the account row, deletes its token and inserts a new one in one
// transaction. Concurrent creates for the same account serialize on the lock;
// UNIQUE (account_id) backs the invariant at the storage layer.
func (s *PostgresStore) Create(ctx context.Context, now time.Time, accountID int64) (RefreshToken, error) {
	plain, hash, err := newOpaqueRefreshToken(s.cfg.RefreshTokenBytes)
	if err != nil {
		return RefreshToken{}, err
	}
	exp := now.Add(s.cfg.RefreshTTL)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return RefreshToken{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := lockAccountTx(ctx, tx, accountID); err != nil {
		return RefreshToken{}, err
	}
	if err := deleteForAccountTx(ctx, tx, accountID); err != nil {
		return RefreshToken{}, err
	}
	id, err := insertTx(ctx, tx, accountID, hash, now, exp)
	if err != nil {
		return RefreshToken{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return RefreshToken{}, err
	}

	return RefreshToken{
		ID:        id,
		Value:     plain,
		AccountID: accountID,
		CreatedAt: now,
		ExpiresAt: exp,
	}, nil
}

// FindByValue looks a token up by the hash of value.
func (s *PostgresStore) FindByValue(ctx context.Context, value string) (RefreshToken, error) {
	value = strings.TrimSpace(value)
	if value == "" || len(value) > maxRefreshValueLen {
		return RefreshToken{}, ErrRefreshNotFound
	}

	tok := RefreshToken{Value: value}
	err := s.pool.QueryRow(ctx, `
		SELECT id, account_id, created_at, expires_at
		FROM socialapp.refresh_tokens
		WHERE value_hash = $1
	`, hashRefreshTokenHex(value)).Scan(
		&tok.ID,
		&tok.AccountID,
		&tok.CreatedAt,
		&tok.ExpiresAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return RefreshToken{}, ErrRefreshNotFound
	}
	if err != nil {
		return RefreshToken{}, err
	}
	return tok, nil
}

// VerifyNotExpired deletes an expired row and reports ErrRefreshExpired.
func (s *PostgresStore) VerifyNotExpired(ctx context.Context, tok RefreshToken, now time.Time) (RefreshToken, error) {
	if !tok.Expired(now) {
		return tok, nil
	}
	if _, err := s.pool.Exec(ctx, `DELETE FROM socialapp.refresh_tokens WHERE id = $1`, tok.ID); err != nil {
		return RefreshToken{}, fmt.Errorf("delete expired refresh token: %w", err)
	}
	return RefreshToken{}, ErrRefreshExpired
}

// Delete removes the token for value (idempotent).
func (s *PostgresStore) Delete(ctx context.Context, value string) error {
	value = strings.TrimSpace(value)
	if value == "" || len(value) > maxRefreshValueLen {
		return nil
	}
	_, err := s.pool.Exec(ctx, `
		DELETE FROM socialapp.refresh_tokens
		WHERE value_hash = $1
	`, hashRefreshTokenHex(value))
	return err
}

// DeleteForAccount removes the account's token (idempotent).
func (s *PostgresStore) DeleteForAccount(ctx context.Context, accountID int64) error {
	_, err := s.pool.Exec(ctx, `
		DELETE FROM socialapp.refresh_tokens
		WHERE account_id = $1
	`, accountID)
	return err
}

// Count returns the number of stored tokens for an account.
func (s *PostgresStore) Count(ctx context.Context, accountID int64) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `
		SELECT count(*) FROM socialapp.refresh_tokens WHERE account_id = $1
	`, accountID).Scan(&n)
	return n, err
}
