// Package integration holds end-to-end tests that run the workspace cache
// against a real directory, the file watcher and the MCP tool surface
// together. It has no non-test code.
package integration
