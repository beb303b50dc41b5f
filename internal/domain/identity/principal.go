package identity

import "context"

// Principal is the authenticated caller as asserted by the identity provider.
type Principal struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

func (p Principal) Anonymous() bool {
	return p.ID == ""
}

type contextKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, contextKey{}, p)
}

// FromContext returns the principal stored by the auth middleware, or the
// anonymous principal.
func FromContext(ctx context.Context) Principal {
	p, _ := ctx.Value(contextKey{}).(Principal)
	return p
}
