package session

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/dmitrymomot/gradeclient/pkg/rolegate"
	"github.com/dmitrymomot/gradeclient/pkg/tokenstore"
)

// Option is a functional option for configuring the Manager
type Option func(*Manager)

// WithStore sets the access token store. Default: an in-memory store.
func WithStore(store tokenstore.Store) Option {
	return func(m *Manager) {
		if store != nil {
			m.store = store
		}
	}
}

// WithHTTPClient sets the HTTP client shared by login, renewal and API calls.
// A client without a cookie jar is copied and given an in-memory jar.
func WithHTTPClient(client *http.Client) Option {
	return func(m *Manager) {
		if client != nil {
			m.http = client
		}
	}
}

// WithGate sets the route table used by Authorize and Navigation.
func WithGate(gate *rolegate.Gate) Option {
	return func(m *Manager) {
		if gate != nil {
			m.gate = gate
		}
	}
}

// WithRefreshTimeout bounds a shared renewal request.
func WithRefreshTimeout(d time.Duration) Option {
	return func(m *Manager) {
		m.refreshTimeout = d
	}
}

// WithLogger sets the logger shared with the renewal coordinator and API client.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithOnChange registers an observer called after every state change.
// Observers run outside the manager lock and may call back into it.
func WithOnChange(fn func(State)) Option {
	return func(m *Manager) {
		if fn != nil {
			m.onChange = append(m.onChange, fn)
		}
	}
}
