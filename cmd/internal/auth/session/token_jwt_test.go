package session

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"socialapp/cmd/security/keys"
)

func testIdentity() Identity {
	return Identity{AccountID: 42, DisplayName: "alice", Role: "MEMBER", Authorities: []string{"ROLE_MEMBER"}}
}

func TestRS256_RoundTrip(t *testing.T) {
	m := newTestManager(t, DefaultConfig())
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tok, exp, err := m.Issue(testIdentity(), now)
	require.NoError(t, err)
	assert.Equal(t, now.Add(15*time.Minute), exp)

	claims, err := m.Verify(tok, now.Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.AccountID)
	assert.Equal(t, "42", claims.Subject)
	assert.Equal(t, "alice", claims.Name)
	assert.Equal(t, Issuer, claims.Issuer)
	assert.Equal(t, []string{"ROLE_MEMBER"}, claims.Scope)
	assert.True(t, now.Equal(claims.IssuedAt))
	assert.True(t, exp.Equal(claims.ExpiresAt))

	id := claims.Identity()
	assert.Equal(t, "MEMBER", id.Role)
	assert.True(t, id.HasAuthority("ROLE_MEMBER"))
}

func TestRS256_ClaimShape(t *testing.T) {
	m := newTestManager(t, DefaultConfig())
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tok, _, err := m.Issue(testIdentity(), now)
	require.NoError(t, err)

	parsed, _, err := jwt.NewParser().ParseUnverified(tok, jwt.MapClaims{})
	require.NoError(t, err)
	assert.Equal(t, "RS256", parsed.Header["alg"])
	assert.Equal(t, "test-key", parsed.Header["kid"])

	mc := parsed.Claims.(jwt.MapClaims)
	keysSeen := make([]string, 0, len(mc))
	for k := range mc {
		keysSeen = append(keysSeen, k)
	}
	assert.ElementsMatch(t, []string{"sub", "iss", "iat", "exp", "name", "scope"}, keysSeen)
}

func TestRS256_DeterministicExceptTime(t *testing.T) {
	m := newTestManager(t, DefaultConfig())
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	a, _, err := m.Issue(testIdentity(), now)
	require.NoError(t, err)
	b, _, err := m.Issue(testIdentity(), now)
	require.NoError(t, err)
	// PKCS#1 v1.5 signatures are deterministic, so identical input yields identical tokens.
	assert.Equal(t, a, b)
}

func TestRS256_ExpiryBoundary(t *testing.T) {
	m := newTestManager(t, DefaultConfig())
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tok, exp, err := m.Issue(testIdentity(), now)
	require.NoError(t, err)

	_, err = m.Verify(tok, exp.Add(-time.Second))
	require.NoError(t, err)
	_, err = m.Verify(tok, exp)
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = m.Verify(tok, exp.Add(time.Hour))
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRS256_Rejects(t *testing.T) {
	m := newTestManager(t, DefaultConfig())
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tok, _, err := m.Issue(testIdentity(), now)
	require.NoError(t, err)

	other, err := keys.Generate("other", 2048)
	require.NoError(t, err)
	otherMgr, err := NewRS256Manager(DefaultConfig(), other)
	require.NoError(t, err)
	foreign, _, err := otherMgr.Issue(testIdentity(), now)
	require.NoError(t, err)

	parts := strings.Split(tok, ".")
	tampered := parts[0] + "." + parts[1] + "x." + parts[2]

	hs := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "42", "iss": Issuer, "iat": now.Unix(), "exp": now.Add(time.Hour).Unix(), "scope": []string{"ROLE_ADMIN"},
	})
	hsTok, err := hs.SignedString([]byte("guessable-secret"))
	require.NoError(t, err)

	wrongIss := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"sub": "42", "iss": "someone-else", "iat": now.Unix(), "exp": now.Add(time.Hour).Unix(), "scope": []string{"ROLE_MEMBER"},
	})
	wrongIssTok, err := wrongIss.SignedString(sharedTestPair(t).Private)
	require.NoError(t, err)

	badSub := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"sub": "alice", "iss": Issuer, "iat": now.Unix(), "exp": now.Add(time.Hour).Unix(), "scope": []string{"ROLE_MEMBER"},
	})
	badSubTok, err := badSub.SignedString(sharedTestPair(t).Private)
	require.NoError(t, err)

	for name, raw := range map[string]string{
		"foreign key":     foreign,
		"tampered":        tampered,
		"hs256":           hsTok,
		"wrong issuer":    wrongIssTok,
		"non-numeric sub": badSubTok,
		"garbage":         "not.a.jwt",
		"empty":           "",
	} {
		_, err := m.Verify(raw, now.Add(time.Second))
		assert.ErrorIs(t, err, ErrInvalidToken, name)
	}

	// Issued in the future relative to the verifier's clock.
	_, err = m.Verify(tok, now.Add(-time.Minute))
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewRS256Manager_RequiresKeys(t *testing.T) {
	_, err := NewRS256Manager(DefaultConfig(), nil)
	assert.ErrorIs(t, err, ErrConfig)
}
