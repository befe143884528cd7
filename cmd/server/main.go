// Package main is the entry point for the storefront server.
//
// The main package stays small. Its job is to:
//  1. Read configuration (environment variables, optionally from a .env file)
//  2. Build the logger
//  3. Hand both to internal/server and block until shutdown
//
// Everything else lives in internal/.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/sakif/storefront/internal/config"
	"github.com/sakif/storefront/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// No logger yet: the log settings are part of the config that failed.
		fmt.Fprintf(os.Stderr, "invalid configuration:\n%v\n", err)
		os.Exit(1)
	}

	logger, closeLog, err := newLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "setting up logging: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()

	srv, err := server.New(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		closeLog()
		os.Exit(1)
	}

	// Start blocks until the server is shut down (Ctrl+C or SIGTERM).
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		closeLog()
		os.Exit(1)
	}
}

// newLogger writes to stdout, and also to LOG_FILE when one is configured.
//
// LOG_FORMAT=json suits log shippers; the default text handler is easier to
// read in a terminal.
func newLogger(cfg config.LogConfig) (*slog.Logger, func(), error) {
	var out io.Writer = os.Stdout
	closeLog := func() {}

	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
			return nil, nil, err
		}
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, err
		}
		out = io.MultiWriter(os.Stdout, f)
		closeLog = func() { f.Close() }
	}

	opts := &slog.HandlerOptions{Level: cfg.Level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(out, opts)), closeLog, nil
	}
	return slog.New(slog.NewTextHandler(out, opts)), closeLog, nil
}
