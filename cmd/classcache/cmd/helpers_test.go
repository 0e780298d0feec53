package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// isolateConfig points the user config at a temp dir and clears overrides.
func isolateConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	for _, name := range []string{
		"CLASSCACHE_LOG_LEVEL", "CLASSCACHE_INCLUDE", "CLASSCACHE_MARKUP_LANGUAGES",
		"CLASSCACHE_SCAN_WORKERS", "CLASSCACHE_WATCH_ENABLED", "CLASSCACHE_WATCH_DEBOUNCE",
		"CLASSCACHE_RESPECT_GITIGNORE",
	} {
		t.Setenv(name, "")
	}
	return dir
}

// writeSite creates files under a new temp project.
func writeSite(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

// runCmd executes the root command with args and returns stdout and stderr.
func runCmd(t *testing.T, ctx context.Context, args ...string) (string, string, error) {
	t.Helper()
	root := NewRootCmd()
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	return stdout.String(), stderr.String(), err
}
