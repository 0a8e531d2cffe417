package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// saltBytes is the length of the random per-user salt.
	saltBytes = 16
	// hashIterations is the PBKDF2 iteration count. Raising it invalidates
	// no stored verifier, but verifiers written with the old count keep it.
	hashIterations = 100_000
	// hashKeyLength is the derived key length in bytes.
	hashKeyLength = 32
)

// GenerateSalt returns a fresh random hex-encoded salt.
func GenerateSalt() (string, error) {
	buf := make([]byte, saltBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random salt: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// HashPassword derives the stored verifier from a password and its salt
// using PBKDF2-HMAC-SHA256.
func HashPassword(password, salt string) string {
	key := pbkdf2.Key([]byte(password), []byte(salt), hashIterations, hashKeyLength, sha256.New)
	return base64.StdEncoding.EncodeToString(key)
}

// VerifyPassword recomputes the verifier for the supplied password and
// compares it to the stored one in constant time.
func VerifyPassword(password, salt, storedHash string) bool {
	if storedHash == "" {
		return false
	}
	computed := HashPassword(password, salt)
	return hmac.Equal([]byte(computed), []byte(storedHash))
}
