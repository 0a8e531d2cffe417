package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/user/cityweather-go/config"
)

// Claims is the payload of a session token. The registered Subject claim
// carries the user's email; expiry and issuance come from RegisteredClaims.
type Claims struct {
	UserID   int    `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// TokenIssuer creates and validates signed, time-limited session tokens.
// The server keeps no per-session state: tamper-resistance and expiry are
// both enforced by the HMAC signature over the claims.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	// now is replaceable in tests to pin the clock.
	now func() time.Time
}

// NewTokenIssuer builds a TokenIssuer from the auth configuration.
func NewTokenIssuer(cfg *config.AuthConfig) *TokenIssuer {
	return &TokenIssuer{
		secret: []byte(cfg.TokenSecret),
		ttl:    cfg.TokenDuration,
		now:    time.Now,
	}
}

// TTL returns the validity window of issued tokens.
func (i *TokenIssuer) TTL() time.Duration {
	return i.ttl
}

// Issue signs a token for the given user, valid from now until now+TTL.
func (i *TokenIssuer) Issue(user *User) (string, time.Time, error) {
	now := i.now()
	expiresAt := now.Add(i.ttl)

	claims := &Claims{
		UserID:   user.ID,
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.Email,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Validate verifies the token's signature and expiry and returns its claims.
// Every failure mode (malformed, tampered, expired, wrong algorithm) reports
// the same way, so callers cannot leak validation internals.
func (i *TokenIssuer) Validate(tokenString string) (*Claims, bool) {
	if tokenString == "" {
		return nil, false
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return i.secret, nil
	}, jwt.WithTimeFunc(i.now))

	if err != nil || !token.Valid || claims.Subject == "" {
		return nil, false
	}
	return claims, true
}
