// ABOUTME: Session context for tracking identity through request handlers
// ABOUTME: Provides WithSession/FromContext for propagating the session via context

package auth

import (
	"context"
)

// sessionContextKey is the key type for storing Session in context.Context.
type sessionContextKey struct{}

// WithSession returns a new context with the Session attached.
func WithSession(ctx context.Context, sess Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sess)
}

// FromContext retrieves the Session from the context. The second return
// value is false if no session is present.
func FromContext(ctx context.Context) (Session, bool) {
	sess, ok := ctx.Value(sessionContextKey{}).(Session)
	return sess, ok
}

// MustFromContext retrieves the Session from the context, panicking if not
// present. Only for handlers behind RequireSession.
func MustFromContext(ctx context.Context) Session {
	sess, ok := FromContext(ctx)
	if !ok {
		panic("auth: Session not found in context")
	}
	return sess
}
