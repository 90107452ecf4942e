package session

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
)

func lockAccountTx(ctx context.Context, tx pgx.Tx, accountID int64) error {
	var id int64
	err := tx.QueryRow(ctx, `
		SELECT id
		FROM socialapp.accounts
		WHERE id = $1
		FOR UPDATE
	`, accountID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrAccountNotFound
	}
	return err
}

func deleteForAccountTx(ctx context.Context, tx pgx.Tx, accountID int64) error {
	_, err := tx.Exec(ctx, `
		DELETE FROM socialapp.refresh_tokens
		WHERE account_id = $1
	`, accountID)
	return err
}

func insertTx(
	ctx context.Context,
	tx pgx.Tx,
	accountID int64,
	valueHash string,
	now time.Time,
	expiresAt time.Time,
) (int64, error) {
	var id int64
	err := tx.QueryRow(ctx, `
		INSERT INTO socialapp.refresh_tokens (
			account_id, value_hash, created_at, expires_at
		) VALUES (
			$1, $2, $3, $4
		)
		RETURNING id
	`, accountID, valueHash, now, expiresAt).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}
