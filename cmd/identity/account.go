package identity

import (
	"strings"
	"time"
)

// Role is the single authority tag carried by an account.
type Role string

const (
	RoleMember Role = "MEMBER"
	RoleAdmin  Role = "ADMIN"
)

// ParseRole accepts "member"/"admin" in any case, with or without the ROLE_ prefix.
func ParseRole(s string) (Role, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.TrimPrefix(s, "ROLE_")
	switch Role(s) {
	case RoleMember:
		return RoleMember, true
	case RoleAdmin:
		return RoleAdmin, true
	default:
		return "", false
	}
}

// Authority is the scope string resource servers check, e.g. "ROLE_ADMIN".
func (r Role) Authority() string { return "ROLE_" + string(r) }

// Account is the public view of a stored account.
type Account struct {
	ID        int64
	Username  string
	Email     string
	Bio       *string
	Role      Role
	CreatedAt time.Time
}

// Authorities lists the account's scope strings.
func (a Account) Authorities() []string { return []string{a.Role.Authority()} }

// AuthRecord is an Account plus its password hash; it never leaves the package boundary
// towards transport.
type AuthRecord struct {
	Account
	PasswordHash string
}
