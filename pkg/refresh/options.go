package refresh

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// RenewedHook observes successful renewals, once per underlying request.
type RenewedHook func(ctx context.Context, grant Grant)

// FailedHook observes failed renewals, once per underlying request. ctx is
// still live even when the renewal failed on its deadline.
type FailedHook func(ctx context.Context, err error)

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithHTTPClient sets the client used for the refresh call. It must carry the
// cookie jar holding the renewal cookie.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Coordinator) {
		if client != nil {
			c.client = client
		}
	}
}

// WithEndpoint overrides the refresh path. Default: /api/auth/refresh.
func WithEndpoint(path string) Option {
	return func(c *Coordinator) {
		if path != "" {
			c.endpoint = path
		}
	}
}

// WithTimeout bounds the shared renewal request. Default: 15s.
func WithTimeout(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger sets the logger. Default: discard.
func WithLogger(l *slog.Logger) Option {
	return func(c *Coordinator) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithOnRenewed registers a success observer.
func WithOnRenewed(h RenewedHook) Option {
	return func(c *Coordinator) {
		if h != nil {
			c.onRenewed = append(c.onRenewed, h)
		}
	}
}

// WithOnFailed registers a failure observer.
func WithOnFailed(h FailedHook) Option {
	return func(c *Coordinator) {
		if h != nil {
			c.onFailed = append(c.onFailed, h)
		}
	}
}
