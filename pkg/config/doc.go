// Package config loads typed configuration from the process environment.
//
// It wraps github.com/joho/godotenv and github.com/caarlos0/env/v11:
// an optional .env file in the working directory is read once, then env
// tags on the target struct are parsed. Every configuration type is parsed
// at most once per process and served from a cache afterwards.
//
//	type Config struct {
//	    BaseURL string        `env:"GRADECLIENT_API_URL" envDefault:"http://127.0.0.1:8000"`
//	    Timeout time.Duration `env:"GRADECLIENT_REQUEST_TIMEOUT" envDefault:"30s"`
//	}
//
//	var cfg Config
//	if err := config.Load(&cfg); err != nil {
//	    return err
//	}
//
// LoadEnv reads additional .env files before the first Load. ResetCache
// drops cached values, which tests use after changing the environment.
package config
