package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/urfave/cli/v2"

	"github.com/dmitrymomot/gradeclient/pkg/config"
	"github.com/dmitrymomot/gradeclient/pkg/gradebook"
	"github.com/dmitrymomot/gradeclient/pkg/logger"
	"github.com/dmitrymomot/gradeclient/pkg/rolegate"
	"github.com/dmitrymomot/gradeclient/pkg/session"
	"github.com/dmitrymomot/gradeclient/pkg/tokenstore"
)

// app carries per-invocation state between the cli hooks and actions.
type app struct {
	in     io.Reader
	out    io.Writer
	output string
	logger *slog.Logger
	book   *gradebook.Service
}

func newApp(in io.Reader, out, errOut io.Writer) *cli.App {
	a := &app{in: in, out: out}

	return &cli.App{
		Name:      "gradectl",
		Usage:     "command line client for the grade service",
		Writer:    out,
		ErrWriter: errOut,
		// main decides the exit code; the default handler would call os.Exit.
		ExitErrHandler: func(*cli.Context, error) {},
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "api-url", Usage: "grade service base URL (GRADECLIENT_API_URL)"},
			&cli.StringFlag{Name: "token-store", Usage: "access token backend: file, redis or memory (GRADECLIENT_TOKEN_STORE)"},
			&cli.StringFlag{Name: "token-file", Usage: "access token file (GRADECLIENT_TOKEN_FILE)"},
			&cli.StringFlag{Name: "cookie-file", Usage: "renewal cookie file (GRADECLIENT_COOKIE_FILE)"},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "output format: text, json or yaml (GRADECLIENT_OUTPUT)"},
			&cli.StringFlag{Name: "log-level", Usage: "debug, info, warn or error (GRADECLIENT_LOG_LEVEL)"},
			&cli.StringSliceFlag{Name: "env-file", Usage: "load variables from a .env file before reading the environment"},
		},
		Before: a.setup,
		Commands: []*cli.Command{
			loginCommand(a),
			logoutCommand(a),
			whoamiCommand(a),
			navCommand(a),
			coursesCommand(a),
			enrollCommand(a),
			gradesCommand(a),
			uploadGradesCommand(a),
			manageCoursesCommand(a),
		},
	}
}

// setup loads configuration, builds the session manager and recovers the
// previous session before any command runs.
func (a *app) setup(c *cli.Context) error {
	if err := config.LoadEnv(c.StringSlice("env-file")...); err != nil {
		return err
	}

	var cfg Config
	if err := config.Load(&cfg); err != nil {
		return err
	}
	applyFlags(c, &cfg)

	if !validOutput(cfg.Output) {
		return fmt.Errorf("unsupported output format %q", cfg.Output)
	}
	a.output = cfg.Output

	log, err := logger.NewFromConfig(cfg.Log, "gradectl", logger.WithOutput(c.App.ErrWriter))
	if err != nil {
		return err
	}
	a.logger = log

	store, err := tokenstore.NewFromConfig(c.Context, cfg.Tokens)
	if err != nil {
		return err
	}

	m, err := session.NewFromConfig(cfg.Session, log,
		session.WithStore(store),
		session.WithOnChange(func(s session.State) {
			log.Debug("session changed", logger.Role(s.Role))
		}),
	)
	if err != nil {
		return err
	}

	role := m.Probe(c.Context)
	log.Debug("session recovered", logger.Role(role))

	c.Context = session.WithManager(c.Context, m)
	a.book = gradebook.New(m, gradebook.WithLogger(log))
	return nil
}

func applyFlags(c *cli.Context, cfg *Config) {
	if v := c.String("api-url"); v != "" {
		cfg.Session.BaseURL = v
	}
	if v := c.String("token-store"); v != "" {
		cfg.Tokens.Driver = v
	}
	if v := c.String("token-file"); v != "" {
		cfg.Tokens.FilePath = v
	}
	if v := c.String("cookie-file"); v != "" {
		cfg.Session.CookieFile = v
	}
	if cfg.Session.CookieFile == "" {
		cfg.Session.CookieFile = defaultCookieFile()
	}
	if v := c.String("output"); v != "" {
		cfg.Output = v
	}
	if v := c.String("log-level"); v != "" {
		cfg.Log.Level = v
	}
}

// guard is the command equivalent of a page guard.
func guard(path string) cli.BeforeFunc {
	return func(c *cli.Context) error {
		m := session.MustFromContext(c.Context)
		err := m.Authorize(path)
		if err == nil {
			return nil
		}
		var denied *rolegate.NotAuthorizedError
		if errors.As(err, &denied) {
			if !m.IsAuthenticated() {
				return cli.Exit("Please sign in first: gradectl login", 3)
			}
			return cli.Exit(denied.Notice(), 3)
		}
		return err
	}
}
