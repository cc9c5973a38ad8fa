// Package logger builds the *slog.Logger used across the client and keeps
// attribute names consistent.
//
//	log := logger.New(
//	    logger.WithEnvironment("development", "gradectl"),
//	    logger.WithLevel(slog.LevelDebug),
//	)
//	log.Info("session renewed", logger.Role(role), logger.Component("refresh"))
//
// Components that accept a logger default to Discard, so libraries stay quiet
// unless the caller wires one in.
package logger
