// Package auth implements the credential store, the session token issuer,
// and the request-level access gate: user registration and login with salted
// iterated password hashing, signed time-limited bearer tokens delivered via
// an HTTP-only cookie, and the middleware that resolves a token back to a
// user on every request.
package auth

import "time"

// User is the identity record. Email and username are each globally unique.
// The password is never stored; only the salt and the derived verifier are,
// and the verifier is useless without the paired salt.
type User struct {
	ID             int       `json:"id"`
	Email          string    `json:"email"`
	Username       string    `json:"username"`
	HashedPassword string    `json:"-"`
	Salt           string    `json:"-"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
}
