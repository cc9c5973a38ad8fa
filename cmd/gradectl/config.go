package main

import (
	"os"
	"path/filepath"

	"github.com/dmitrymomot/gradeclient/pkg/logger"
	"github.com/dmitrymomot/gradeclient/pkg/session"
	"github.com/dmitrymomot/gradeclient/pkg/tokenstore"
)

// Config is everything gradectl reads from the environment.
type Config struct {
	Log     logger.Config
	Tokens  tokenstore.Config
	Session session.Config

	// Output is the default rendering: text, json or yaml.
	Output string `env:"GRADECLIENT_OUTPUT" envDefault:"text"`
}

// defaultCookieFile keeps the renewal cookie next to the token file so a
// restarted process can renew the session.
func defaultCookieFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "gradeclient", "cookies.json")
}
