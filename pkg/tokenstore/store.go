package tokenstore

import "context"

// Store is a single durable slot holding the current access token.
type Store interface {
	// Get returns the stored token or ErrNoToken.
	Get(ctx context.Context) (string, error)

	// Set replaces the stored token.
	Set(ctx context.Context, token string) error

	// Clear empties the slot. Clearing an empty slot is not an error.
	Clear(ctx context.Context) error
}
