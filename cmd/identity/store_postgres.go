package identity

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store over PostgreSQL.
//
// Design notes:
//   - The pgx pool is owned by the caller; this store must NOT close it.
//   - Schema identifiers are quoted with pgx.Identifier.
//   - Unique violations are mapped to ConflictError with a logical field name.
type PostgresStore struct {
	pool   *pgxpool.Pool
	schema string
}

// PostgresOption configures the store.
type PostgresOption func(*PostgresStore) error

var pgIdentRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// WithSchema sets the Postgres schema (default "socialapp").
func WithSchema(schema string) PostgresOption {
	return func(s *PostgresStore) error {
		schema = strings.TrimSpace(schema)
		if schema == "" {
			return fmt.Errorf("identity: empty schema")
		}
		if !pgIdentRe.MatchString(schema) {
			return fmt.Errorf("identity: invalid schema identifier")
		}
		s.schema = schema
		return nil
	}
}

// NewPostgresStore constructs a PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool, opts ...PostgresOption) (*PostgresStore, error) {
	st := &PostgresStore{pool: pool, schema: "socialapp"}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(st); err != nil {
			return nil, err
		}
	}
	if st.pool == nil {
		return nil, fmt.Errorf("identity: nil pool")
	}
	return st, nil
}

const accountColumns = `id, username, email, bio, role, created_at`

// CreateAccount inserts a new account row.
func (s *PostgresStore) CreateAccount(ctx context.Context, in CreateAccountInput) (Account, error) {
	const op = "identity.CreateAccount"

	if in.Role == "" {
		in.Role = RoleMember
	}
	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	accounts := pgIdent(s.schema, "accounts")

	var a Account
	err := scanAccount(s.pool.QueryRow(ctx,
		`INSERT INTO `+accounts+` (
		     username, username_norm, email, email_norm, bio, role, password_hash, created_at, updated_at
		   ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		   RETURNING `+accountColumns,
		strings.TrimSpace(in.Username),
		NormalizeUsername(in.Username),
		strings.TrimSpace(in.Email),
		NormalizeEmail(in.Email),
		in.Bio,
		string(in.Role),
		in.PasswordHash,
		now,
	), &a)
	if err != nil {
		if field, ok := pgClassifyUniqueViolation(err); ok {
			return Account{}, ConflictError{Op: op, Field: field}
		}
		return Account{}, err
	}
	return a, nil
}

// GetByID loads an account by id.
func (s *PostgresStore) GetByID(ctx context.Context, id int64) (Account, error) {
	const op = "identity.GetByID"

	var a Account
	err := scanAccount(s.pool.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM `+pgIdent(s.schema, "accounts")+` WHERE id = $1`,
		id,
	), &a)
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, NotFoundError{Op: op, Resource: "account"}
	}
	if err != nil {
		return Account{}, err
	}
	return a, nil
}

// GetAuthByUsername loads an account and its password hash.
func (s *PostgresStore) GetAuthByUsername(ctx context.Context, username string) (AuthRecord, error) {
	const op = "identity.GetAuthByUsername"

	var rec AuthRecord
	err := s.pool.QueryRow(ctx,
		`SELECT `+accountColumns+`, password_hash
		   FROM `+pgIdent(s.schema, "accounts")+`
		  WHERE username_norm = $1`,
		NormalizeUsername(username),
	).Scan(
		&rec.ID,
		&rec.Username,
		&rec.Email,
		&rec.Bio,
		&rec.Role,
		&rec.CreatedAt,
		&rec.PasswordHash,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return AuthRecord{}, NotFoundError{Op: op, Resource: "account"}
	}
	if err != nil {
		return AuthRecord{}, err
	}
	return rec, nil
}

// Taken checks email first, then username.
func (s *PostgresStore) Taken(ctx context.Context, username, email string) (string, error) {
	var emailTaken, usernameTaken bool
	err := s.pool.QueryRow(ctx,
		`SELECT
		     EXISTS (SELECT 1 FROM `+pgIdent(s.schema, "accounts")+` WHERE email_norm = $1),
		     EXISTS (SELECT 1 FROM `+pgIdent(s.schema, "accounts")+` WHERE username_norm = $2)`,
		NormalizeEmail(email), NormalizeUsername(username),
	).Scan(&emailTaken, &usernameTaken)
	if err != nil {
		return "", err
	}
	switch {
	case emailTaken:
		return "email", nil
	case usernameTaken:
		return "username", nil
	default:
		return "", nil
	}
}

// SetRoleByEmail updates the role of the account owning email.
func (s *PostgresStore) SetRoleByEmail(ctx context.Context, email string, role Role, now time.Time) (Account, error) {
	const op = "identity.SetRoleByEmail"

	var a Account
	err := scanAccount(s.pool.QueryRow(ctx,
		`UPDATE `+pgIdent(s.schema, "accounts")+`
		    SET role = $2, updated_at = $3
		  WHERE email_norm = $1
		  RETURNING `+accountColumns,
		NormalizeEmail(email), string(role), now,
	), &a)
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, NotFoundError{Op: op, Resource: "account"}
	}
	if err != nil {
		return Account{}, err
	}
	return a, nil
}

// DeleteAccount removes the account. Refresh tokens cascade.
func (s *PostgresStore) DeleteAccount(ctx context.Context, id int64) error {
	const op = "identity.DeleteAccount"

	ct, err := s.pool.Exec(ctx, `DELETE FROM `+pgIdent(s.schema, "accounts")+` WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return NotFoundError{Op: op, Resource: "account"}
	}
	return nil
}

func scanAccount(row pgx.Row, a *Account) error {
	return row.Scan(&a.ID, &a.Username, &a.Email, &a.Bio, &a.Role, &a.CreatedAt)
}

// pgIdent safely quotes a schema-qualified identifier: "schema"."name".
func pgIdent(schema, name string) string {
	return pgx.Identifier{schema, name}.Sanitize()
}

func pgClassifyUniqueViolation(err error) (field string, ok bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return "", false
	}
	if pgErr.Code != "23505" { // unique_violation
		return "", false
	}

	// Prefer stable constraint names; fall back to substring matching.
	c := strings.ToLower(strings.TrimSpace(pgErr.ConstraintName))
	switch c {
	case "accounts_username_norm_key":
		return "username", true
	case "accounts_email_norm_key":
		return "email", true
	default:
		switch {
		case strings.Contains(c, "username"):
			return "username", true
		case strings.Contains(c, "email"):
			return "email", true
		default:
			return "unique", true
		}
	}
}
