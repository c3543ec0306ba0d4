package shared

import "context"

type sessionContextKey struct{}

// ContextWithSession stores the session in context.
func ContextWithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sess)
}

// SessionFromContext extracts the session from context.
func SessionFromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(sessionContextKey{}).(*Session)
	return sess
}

// IdentityFromContext returns the identity of the session in ctx, or nil
// when the request is anonymous.
func IdentityFromContext(ctx context.Context) *Identity {
	return SessionFromContext(ctx).Identity()
}
