package session

import "time"

// AccessClaims is the verified content of an access token.
type AccessClaims struct {
	AccountID int64
	Subject   string
	Name      string
	Scope     []string
	Issuer    string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Identity rebuilds the principal carried by the claims.
// Role is taken from the first ROLE_ authority.
func (c AccessClaims) Identity() Identity {
	var role string
	for _, s := range c.Scope {
		if len(s) > len("ROLE_") && s[:len("ROLE_")] == "ROLE_" {
			role = s[len("ROLE_"):]
			break
		}
	}
	return Identity{
		AccountID:   c.AccountID,
		DisplayName: c.Name,
		Role:        role,
		Authorities: append([]string(nil), c.Scope...),
	}
}

// AccessTokenManager issues and verifies short-lived access tokens.
type AccessTokenManager interface {
	Issue(id Identity, now time.Time) (token string, exp time.Time, err error)
	Verify(token string, now time.Time) (AccessClaims, error)
}
