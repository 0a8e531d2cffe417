package auth

import "context"

// contextKey is a private type for context keys so that no other package can
// collide with or forge the value set by the access gate.
type contextKey string

const userContextKey contextKey = "current_user"

// WithUser returns a child context carrying the resolved user. Only the
// access gate middleware calls this.
func WithUser(ctx context.Context, user *User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// UserFromContext extracts the user attached by the access gate. The second
// return value is false for anonymous requests.
func UserFromContext(ctx context.Context) (*User, bool) {
	user, ok := ctx.Value(userContextKey).(*User)
	return user, ok && user != nil
}
