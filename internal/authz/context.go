package authz

import "context"

// Principal is the authenticated user as supplied by the session layer.
type Principal struct {
	UserID string
	Email  string
}

// Context is the request-scoped result of a successful guard check. It is a
// value object: never persisted, never cached across requests, and the only
// source of the organization id for the remainder of the request.
type Context struct {
	OrgID  string
	Role   Role
	UserID string
}

type principalContextKey struct{}

// ContextWithPrincipal attaches the authenticated principal to the request
// context.
func ContextWithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, &p)
}

// PrincipalFromContext extracts the authenticated principal, if any.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	if ctx == nil {
		return Principal{}, false
	}
	v, ok := ctx.Value(principalContextKey{}).(*Principal)
	if !ok || v == nil || v.UserID == "" {
		return Principal{}, false
	}
	return *v, true
}
