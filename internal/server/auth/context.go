package auth

import "context"

type identityKey struct{}

// WithIdentity returns a copy of ctx carrying the verified token claims.
func WithIdentity(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, identityKey{}, claims)
}

// IdentityFromContext returns the claims stored by WithIdentity, if any.
func IdentityFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(identityKey{}).(*Claims)
	return claims, ok && claims != nil
}
