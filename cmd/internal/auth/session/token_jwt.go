package session

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"socialapp/cmd/security/keys"
)

// accessClaims is the JWT body: {sub, iss, iat, exp, name, scope}.
type accessClaims struct {
	jwt.RegisteredClaims
	Name  string   `json:"name"`
	Scope []string `json:"scope"`
}

type rs256Manager struct {
	ttl  time.Duration
	keys *keys.Pair
}

// NewRS256Manager builds an AccessTokenManager signing RS256 JWTs with pair.
// The pair is shared read-only; the manager holds no other state.
func NewRS256Manager(cfg Config, pair *keys.Pair) (AccessTokenManager, error) {
	if pair == nil || pair.Private == nil || pair.Public == nil {
		return nil, ErrConfig
	}
	if cfg.AccessTokenTTL <= 0 {
		return nil, ErrConfig
	}
	return &rs256Manager{ttl: cfg.AccessTokenTTL, keys: pair}, nil
}

func (m *rs256Manager) Issue(id Identity, now time.Time) (string, time.Time, error) {
	if id.AccountID <= 0 {
		return "", time.Time{}, errors.New("session: issue token for invalid account id")
	}
	iat := jwt.NewNumericDate(now)
	exp := jwt.NewNumericDate(now.Add(m.ttl))

	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, accessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(id.AccountID, 10),
			Issuer:    Issuer,
			IssuedAt:  iat,
			ExpiresAt: exp,
		},
		Name:  id.DisplayName,
		Scope: append([]string{}, id.Authorities...),
	})
	tok.Header["kid"] = m.keys.KeyID

	signed, err := tok.SignedString(m.keys.Private)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp.Time, nil
}

func (m *rs256Manager) Verify(token string, now time.Time) (AccessClaims, error) {
	var c accessClaims
	parsed, err := jwt.ParseWithClaims(token, &c,
		func(*jwt.Token) (any, error) { return m.keys.Public, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil || !parsed.Valid {
		return AccessClaims{}, ErrInvalidToken
	}

	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || id <= 0 {
		return AccessClaims{}, ErrInvalidToken
	}
	if c.Scope == nil || c.IssuedAt == nil {
		return AccessClaims{}, ErrInvalidToken
	}

	return AccessClaims{
		AccountID: id,
		Subject:   c.Subject,
		Name:      c.Name,
		Scope:     c.Scope,
		Issuer:    c.Issuer,
		IssuedAt:  c.IssuedAt.Time,
		ExpiresAt: c.ExpiresAt.Time,
	}, nil
}
