// Package identity owns accounts: registration, credential verification
// and role management.
//
// The session core consumes it as a collaborator. It never sees tokens;
// it answers "who is this" and "are these credentials right".
package identity
