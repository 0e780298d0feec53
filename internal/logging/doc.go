// Package logging configures structured slog output for classcache.
//
// CLI commands log to stderr at the configured level. With --debug, JSON logs
// are also written to a size-rotated file under ~/.classcache/logs/. The MCP
// server logs only to the file, since stdout carries the protocol stream.
package logging
