package middleware

import (
	"context"

	"github.com/galleryve/galleryve-backend/pkg/identity"
)

type contextKey string

const ctxPrincipal contextKey = "principal"

// PrincipalFromContext returns the authenticated principal, if any.
func PrincipalFromContext(ctx context.Context) (identity.Principal, bool) {
	if ctx == nil {
		return identity.Principal{}, false
	}
	principal, ok := ctx.Value(ctxPrincipal).(identity.Principal)
	return principal, ok
}

// WithPrincipal injects the principal into the context.
func WithPrincipal(ctx context.Context, principal identity.Principal) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxPrincipal, principal)
}
