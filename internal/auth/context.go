package auth

import "context"

// Accessor is the per-request identity resolved by the gate middleware:
// the cached user snapshot plus the rotating session identifier. It lives
// on the request context and is discarded when the request ends.
type Accessor struct {
	UserID    string
	Account   string
	Name      string
	SessionID string
}

type accessorContextKey struct{}

// ContextWithAccessor attaches the resolved request identity to the context.
func ContextWithAccessor(ctx context.Context, accessor Accessor) context.Context {
	return context.WithValue(ctx, accessorContextKey{}, &accessor)
}

// AccessorFromContext extracts the request identity set by the gate chain.
func AccessorFromContext(ctx context.Context) (Accessor, bool) {
	if ctx == nil {
		return Accessor{}, false
	}
	v, ok := ctx.Value(accessorContextKey{}).(*Accessor)
	if !ok || v == nil {
		return Accessor{}, false
	}
	return *v, true
}

// UserIDFromContext is a shorthand used by audit logging.
func UserIDFromContext(ctx context.Context) (string, bool) {
	acc, ok := AccessorFromContext(ctx)
	if !ok || acc.UserID == "" {
		return "", false
	}
	return acc.UserID, true
}
