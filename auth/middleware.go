package auth

import (
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// sessionCookieName is the HTTP-only cookie carrying the bearer token.
const sessionCookieName = "access_token"

// ResolveUser is the access gate's first half. It runs on every request:
// if a valid session cookie is present it resolves the token to an active
// user and attaches that user to the request context; a present-but-invalid
// token is cleared from the client so it cannot linger. The request always
// continues: public pages render anonymously, and RequireUser enforces
// authentication where it is needed.
func ResolveUser(tokens *TokenIssuer, store UserStore, log *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(sessionCookieName)
			if err != nil || cookie.Value == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, ok := tokens.Validate(cookie.Value)
			if !ok {
				// Expired, tampered, malformed: all the same outcome.
				clearSessionCookie(w)
				next.ServeHTTP(w, r)
				return
			}

			user, err := store.GetUserByEmail(r.Context(), claims.Subject)
			if err != nil {
				if errors.Is(err, ErrNoSuchUser) {
					clearSessionCookie(w)
				} else {
					// A transient store failure must not log the client out;
					// the cookie stays and the request proceeds anonymously.
					log.Error("failed to resolve session user", zap.Error(err))
				}
				next.ServeHTTP(w, r)
				return
			}
			if !user.IsActive {
				clearSessionCookie(w)
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// RequireUser is the access gate's second half, applied to protected routes.
// An unauthenticated request is redirected to the login page; this is a
// policy decision, not an error.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := UserFromContext(r.Context()); !ok {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// SetSessionCookie delivers a freshly issued token to the client. The
// cookie's lifetime matches the token's validity window.
func SetSessionCookie(w http.ResponseWriter, token string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
