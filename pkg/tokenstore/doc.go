// Package tokenstore keeps the current short-lived access token in a single
// process-wide slot.
//
// The token is an opaque bearer string. The store never inspects it, never
// talks to the network and knows nothing about roles. Every Set or Clear is
// visible to the next Get from any goroutine.
//
// Three backends are provided:
//
//   - MemoryStore keeps the token in memory for the life of the process.
//   - FileStore keeps it in one file so it survives a restart of the client.
//   - RedisStore keeps it under one Redis key, shared by every process that
//     points at the same key.
//
// Backends are usually built from environment configuration:
//
//	var cfg tokenstore.Config
//	config.MustLoad(&cfg)
//	store, err := tokenstore.NewFromConfig(ctx, cfg)
//
//	token, err := store.Get(ctx)
//	if errors.Is(err, tokenstore.ErrNoToken) {
//	    // unauthenticated
//	}
package tokenstore
