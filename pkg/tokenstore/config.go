package tokenstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Supported values of Config.Driver.
const (
	DriverFile   = "file"
	DriverRedis  = "redis"
	DriverMemory = "memory"
)

// Config selects and configures the token backend.
type Config struct {
	Driver   string `env:"GRADECLIENT_TOKEN_STORE" envDefault:"file"`
	FilePath string `env:"GRADECLIENT_TOKEN_FILE"` // defaults to <user config dir>/gradeclient/token
	Redis    RedisConfig
}

// RedisConfig configures the Redis backend and its connection.
type RedisConfig struct {
	URL            string        `env:"GRADECLIENT_REDIS_URL" envDefault:"redis://localhost:6379/0"`
	Key            string        `env:"GRADECLIENT_REDIS_KEY" envDefault:"gradeclient:access_token"`
	TTL            time.Duration `env:"GRADECLIENT_REDIS_TTL" envDefault:"0s"`
	RetryAttempts  int           `env:"GRADECLIENT_REDIS_RETRY_ATTEMPTS" envDefault:"3"`
	RetryInterval  time.Duration `env:"GRADECLIENT_REDIS_RETRY_INTERVAL" envDefault:"1s"`
	ConnectTimeout time.Duration `env:"GRADECLIENT_REDIS_CONNECT_TIMEOUT" envDefault:"10s"`
}

// DefaultFilePath returns the token file location under the user config dir.
func DefaultFilePath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "gradeclient", "token"), nil
}

// NewFromConfig builds the store selected by cfg.Driver.
func NewFromConfig(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Driver {
	case DriverFile, "":
		path := cfg.FilePath
		if path == "" {
			p, err := DefaultFilePath()
			if err != nil {
				return nil, fmt.Errorf("%w: %w", ErrStorageFailed, err)
			}
			path = p
		}
		return NewFileStore(path), nil
	case DriverRedis:
		client, err := ConnectRedis(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		return NewRedisStore(client, WithKey(cfg.Redis.Key), WithTTL(cfg.Redis.TTL)), nil
	case DriverMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
}
