package session

import "context"

type managerContextKey struct{}

// WithManager adds a manager to the context
func WithManager(ctx context.Context, m *Manager) context.Context {
	return context.WithValue(ctx, managerContextKey{}, m)
}

// FromContext retrieves a manager from the context
func FromContext(ctx context.Context) (*Manager, bool) {
	m, ok := ctx.Value(managerContextKey{}).(*Manager)
	return m, ok && m != nil
}

// MustFromContext retrieves a manager from the context or panics.
// Reaching session state outside an initialised session is a programming error.
func MustFromContext(ctx context.Context) *Manager {
	m, ok := FromContext(ctx)
	if !ok {
		panic("session: manager not found in context")
	}
	return m
}
