package httpx

import (
	"context"

	domainauth "github.com/target/auth-svc/internal/domain/auth"
)

// principalKey is an unexported context key type to avoid collisions across packages.
type principalKey struct{}

// SetPrincipalInContext returns a child context that carries the given principal.
func SetPrincipalInContext(ctx context.Context, p domainauth.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext returns the request principal and a boolean indicating presence.
func PrincipalFromContext(ctx context.Context) (domainauth.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(domainauth.Principal)
	return p, ok && p.Identifier != ""
}
