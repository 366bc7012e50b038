// Package main is the entry point for the code studio server.
//
// The main package stays minimal. It:
//  1. Loads configuration (.env, then the environment)
//  2. Builds the logger
//  3. Creates and starts the server
//
// Everything else lives in internal/.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/sakif/code-studio/internal/config"
	"github.com/sakif/code-studio/internal/server"
)

func main() {
	// === 1. CONFIGURATION ===
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	// === 2. LOGGING ===
	logger := cfg.NewLogger()
	slog.SetDefault(logger)

	// === 3. CREATE AND START THE SERVER ===
	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start blocks until SIGINT/SIGTERM.
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
