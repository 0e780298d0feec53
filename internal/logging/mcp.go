package logging

import (
	"log/slog"
)

// SetupMCPMode installs a file-only default logger for the MCP server.
//
// stdout carries JSON-RPC exclusively and many clients treat stderr noise as
// a failed connection, so nothing is written to either.
func SetupMCPMode(level, path string) (func(), error) {
	if path == "" {
		path = DefaultLogPath()
	}
	cfg := Config{
		Level:     level,
		FilePath:  path,
		MaxSizeMB: 10,
		MaxFiles:  5,
	}

	logger, cleanup, err := Setup(cfg)
	if err != nil {
		return nil, err
	}

	slog.SetDefault(logger)
	slog.Info("MCP mode logging initialized",
		slog.String("log_file", cfg.FilePath),
		slog.String("level", cfg.Level))

	return cleanup, nil
}
