package shared

import (
	"context"

	"github.com/prodvault/prodvault/internal/access"
)

type principalContextKey struct{}

// ContextWithPrincipal stores the calling principal in context.
func ContextWithPrincipal(ctx context.Context, principal access.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, principal)
}

// PrincipalFromContext extracts the calling principal from context. The
// empty principal means the caller is anonymous.
func PrincipalFromContext(ctx context.Context) access.Principal {
	principal, _ := ctx.Value(principalContextKey{}).(access.Principal)
	return principal
}
