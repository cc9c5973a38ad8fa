package main

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/urfave/cli/v2"

	"github.com/dmitrymomot/gradeclient/internal/fakeapi"
	"github.com/dmitrymomot/gradeclient/pkg/config"
	"github.com/dmitrymomot/gradeclient/pkg/logger"
)

// Config is read from the environment; flags override it.
type Config struct {
	Log logger.Config

	Addr            string        `env:"GRADEAPI_ADDR" envDefault:":8000"`
	Secret          string        `env:"GRADEAPI_SECRET"`
	AccessTTL       time.Duration `env:"GRADEAPI_ACCESS_TTL" envDefault:"15m"`
	Rotate          bool          `env:"GRADEAPI_ROTATE_REFRESH" envDefault:"false"`
	RefreshDelay    time.Duration `env:"GRADEAPI_REFRESH_DELAY" envDefault:"0s"`
	ShutdownTimeout time.Duration `env:"GRADEAPI_SHUTDOWN_TIMEOUT" envDefault:"5s"`
	FrontendOrigin  string        `env:"GRADEAPI_FRONTEND_ORIGIN" envDefault:"http://localhost:3000"`
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "gradeapi-dev",
		Usage: "in-memory grade service for development",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Usage: "listen address (GRADEAPI_ADDR)"},
			&cli.DurationFlag{Name: "access-ttl", Usage: "access token lifetime (GRADEAPI_ACCESS_TTL)"},
			&cli.BoolFlag{Name: "rotate", Usage: "make renewal cookies single-use (GRADEAPI_ROTATE_REFRESH)"},
			&cli.DurationFlag{Name: "refresh-delay", Usage: "slow down every renewal (GRADEAPI_REFRESH_DELAY)"},
		},
		Action: run,
	}
}

func run(c *cli.Context) error {
	var cfg Config
	if err := config.Load(&cfg); err != nil {
		return err
	}
	if c.IsSet("addr") {
		cfg.Addr = c.String("addr")
	}
	if c.IsSet("access-ttl") {
		cfg.AccessTTL = c.Duration("access-ttl")
	}
	if c.IsSet("rotate") {
		cfg.Rotate = c.Bool("rotate")
	}
	if c.IsSet("refresh-delay") {
		cfg.RefreshDelay = c.Duration("refresh-delay")
	}

	log, err := logger.NewFromConfig(cfg.Log, "gradeapi-dev")
	if err != nil {
		return err
	}

	opts := []fakeapi.Option{fakeapi.WithAccessTTL(cfg.AccessTTL), fakeapi.WithSecret(cfg.Secret)}
	if cfg.Rotate {
		opts = append(opts, fakeapi.WithRotation())
	}
	api := fakeapi.New(opts...)
	api.SetRefreshDelay(cfg.RefreshDelay)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newHandler(api, cfg.FrontendOrigin),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return serve(c.Context, srv, cfg.ShutdownTimeout, log)
}

// newHandler mounts the grade service with liveness and metrics endpoints.
// A browser frontend on origin may call it with credentials.
func newHandler(api *fakeapi.Server, origin string) http.Handler {
	r := chi.NewRouter()
	if origin = strings.TrimSuffix(origin, "/"); origin != "" {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{origin},
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ALIVE"))
	})
	r.Handle("/metrics", metricsHandler(api))
	r.Mount("/", api)
	return r
}
