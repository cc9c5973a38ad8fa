package session

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/dmitrymomot/gradeclient/pkg/jar"
)

// Config holds the connection settings of a session manager.
type Config struct {
	// BaseURL is the grade service origin, e.g. https://grades.example.edu
	BaseURL string `env:"GRADECLIENT_API_URL" envDefault:"http://localhost:8000"`

	HTTPTimeout    time.Duration `env:"GRADECLIENT_HTTP_TIMEOUT" envDefault:"30s"`
	RefreshTimeout time.Duration `env:"GRADECLIENT_REFRESH_TIMEOUT" envDefault:"15s"`

	// CookieFile persists the renewal cookie between runs. Empty keeps it in memory.
	CookieFile string `env:"GRADECLIENT_COOKIE_FILE"`
}

// NewFromConfig creates a Manager whose HTTP client uses cfg's timeout and
// a cookie jar persisted to cfg.CookieFile.
func NewFromConfig(cfg Config, log *slog.Logger, opts ...Option) (*Manager, error) {
	jarOpts := []jar.Option{jar.WithLogger(log)}
	if cfg.CookieFile != "" {
		jarOpts = append(jarOpts, jar.WithFile(cfg.CookieFile))
	}
	j, err := jar.New(jarOpts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	configOpts := []Option{
		WithHTTPClient(&http.Client{Jar: j, Timeout: cfg.HTTPTimeout}),
		WithRefreshTimeout(cfg.RefreshTimeout),
		WithLogger(log),
	}
	configOpts = append(configOpts, opts...)

	return New(cfg.BaseURL, configOpts...)
}
