package container

import (
	"context"
	"sync"
)

type scopeContextKey struct{}

// Scope holds the per-request instance cache for scoped registrations. Each
// scope is independent; instances live exactly as long as the context that
// carries the scope.
type Scope struct {
	mu        sync.Mutex
	instances map[string]any
}

// WithScope returns a child context carrying a fresh scope. Call once per
// logical request before resolving scoped services.
func WithScope(ctx context.Context) context.Context {
	return context.WithValue(ctx, scopeContextKey{}, &Scope{instances: make(map[string]any)})
}

func scopeFrom(ctx context.Context) *Scope {
	scope, _ := ctx.Value(scopeContextKey{}).(*Scope)
	return scope
}
