// Package requestctx carries the authenticated principal through a request.
package requestctx

import "context"

// Principal identifies the authenticated caller.
type Principal struct {
	Email string
	Role  string
}

type principalContextKey struct{}

// WithPrincipal stores the authenticated principal in context.
func WithPrincipal(ctx context.Context, principal Principal) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, principalContextKey{}, principal)
}

// PrincipalFromContext returns the principal stored in context.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	if ctx == nil {
		return Principal{}, false
	}
	value, ok := ctx.Value(principalContextKey{}).(Principal)
	return value, ok
}

// EmailFromContext returns the authenticated email, or "".
func EmailFromContext(ctx context.Context) string {
	principal, _ := PrincipalFromContext(ctx)
	return principal.Email
}
