package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Service implements login, refresh, logout and register-then-login.
//
// Each operation either yields a full (access, refresh) pair or leaves no
// visible change: the refresh row is replaced in one store transaction and the
// access token is pure computation.
type Service struct {
	cfg      Config
	tokens   AccessTokenManager
	store    Store
	accounts Accounts
	metrics  *Metrics
}

// Issued is the result of a successful login, refresh or registration.
type Issued struct {
	AccessToken  string
	AccessExp    time.Time
	RefreshToken string
	RefreshExp   time.Time
	Identity     Identity
}

// Option configures optional Service dependencies.
type Option func(*Service)

// WithMetrics records operation outcomes on m.
func WithMetrics(m *Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// NewService constructs a Service.
func NewService(cfg Config, tokens AccessTokenManager, store Store, accounts Accounts, opts ...Option) (*Service, error) {
	if tokens == nil || store == nil || accounts == nil {
		return nil, fmt.Errorf("%w: missing dependency", ErrConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Service{cfg: cfg, tokens: tokens, store: store, accounts: accounts}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// Login verifies credentials and issues a fresh pair, replacing any previous
// refresh token of the account.
func (s *Service) Login(ctx context.Context, now time.Time, username, password string) (out Issued, err error) {
	defer func() { s.metrics.observe("login", err) }()

	id, err := s.accounts.VerifyCredentials(ctx, username, password)
	if err != nil {
		return Issued{}, err
	}
	return s.issue(ctx, now, id)
}

// Refresh exchanges a refresh value for a new pair. The presented value is dead
// afterwards because the account's row has been replaced.
func (s *Service) Refresh(ctx context.Context, now time.Time, value string) (out Issued, err error) {
	defer func() { s.metrics.observe("refresh", err) }()

	value = strings.TrimSpace(value)
	if value == "" {
		return Issued{}, ErrRefreshNotFound
	}

	tok, err := s.store.FindByValue(ctx, value)
	if err != nil {
		return Issued{}, err
	}
	tok, err = s.store.VerifyNotExpired(ctx, tok, now)
	if err != nil {
		return Issued{}, err
	}

	// Re-resolve: the role may have changed since the token was issued.
	id, err := s.accounts.ResolveIdentity(ctx, tok.AccountID)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			// Orphaned row: the account went away after this token was created.
			if delErr := s.store.Delete(ctx, value); delErr != nil {
				return Issued{}, delErr
			}
		}
		return Issued{}, err
	}
	return s.issue(ctx, now, id)
}

// Logout deletes the refresh token for value. Empty and unknown values are no-ops.
// Access tokens already issued stay valid until they expire.
func (s *Service) Logout(ctx context.Context, value string) (err error) {
	defer func() { s.metrics.observe("logout", err) }()

	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return s.store.Delete(ctx, value)
}

// RegisterAndLogin creates a member account and signs it in.
// Registration errors (conflict, mismatch, invalid input) are returned unchanged.
func (s *Service) RegisterAndLogin(ctx context.Context, now time.Time, reg Registration) (out Issued, err error) {
	defer func() { s.metrics.observe("register", err) }()

	id, err := s.accounts.Register(ctx, reg)
	if err != nil {
		return Issued{}, err
	}
	return s.issue(ctx, now, id)
}

// ValidateAccessToken verifies a presented access token. It is stateless.
func (s *Service) ValidateAccessToken(token string, now time.Time) (AccessClaims, error) {
	return s.tokens.Verify(token, now)
}

// EndAccountSessions removes the account's refresh token, e.g. before the account is deleted.
func (s *Service) EndAccountSessions(ctx context.Context, accountID int64) error {
	return s.store.DeleteForAccount(ctx, accountID)
}

// issue signs the access token first so a signer failure leaves the store untouched.
func (s *Service) issue(ctx context.Context, now time.Time, id Identity) (Issued, error) {
	access, accessExp, err := s.tokens.Issue(id, now)
	if err != nil {
		return Issued{}, fmt.Errorf("sign access token: %w", err)
	}

	tok, err := s.store.Create(ctx, now, id.AccountID)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return Issued{}, ErrAccountNotFound
		}
		return Issued{}, fmt.Errorf("create refresh token: %w", err)
	}

	return Issued{
		AccessToken:  access,
		AccessExp:    accessExp,
		RefreshToken: tok.Value,
		RefreshExp:   tok.ExpiresAt,
		Identity:     id,
	}, nil
}
