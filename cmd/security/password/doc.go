// Package password hashes and verifies account passwords.
//
// New hashes use argon2id (PHC string) unless SOCIAL_PASSWORD_ALGO=bcrypt.
// Verify accepts both formats, which keeps bcrypt hashes imported from older
// deployments usable. Hash strings are untrusted input during Verify.
package password
