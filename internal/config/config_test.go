package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cerrors "github.com/Aman-CERP/classcache/internal/errors"
)

// isolate points the user config at an empty directory and clears env
// overrides so host settings cannot leak into a test.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	for _, k := range []string{
		"CLASSCACHE_LOG_LEVEL", "CLASSCACHE_INCLUDE", "CLASSCACHE_MARKUP_LANGUAGES",
		"CLASSCACHE_SCAN_WORKERS", "CLASSCACHE_WATCH_ENABLED", "CLASSCACHE_WATCH_DEBOUNCE",
		"CLASSCACHE_RESPECT_GITIGNORE",
	} {
		t.Setenv(k, "")
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestNewConfig_ReturnsDefaults(t *testing.T) {
	// Given: no configuration file exists
	cfg := NewConfig()

	// Then: all defaults should be applied
	require.NotNil(t, cfg)
	assert.Equal(t, 1, cfg.Version)
	assert.Equal(t, []string{"**/*.html", "**/*.htm"}, cfg.Paths.Include)
	assert.Contains(t, cfg.Paths.Exclude, "**/node_modules/**")
	assert.Contains(t, cfg.Paths.Exclude, "**/.git/**")
	assert.True(t, cfg.Paths.GitignoreEnabled())
	assert.Equal(t, []string{"html"}, cfg.Markup.Languages)
	assert.Equal(t, runtime.NumCPU(), cfg.Scan.Workers)
	assert.Equal(t, int64(10*1024*1024), cfg.Scan.MaxFileSize)
	assert.True(t, cfg.Watch.IsEnabled())
	assert.Equal(t, 200*time.Millisecond, cfg.Watch.DebounceDuration())
	assert.Equal(t, 5*time.Second, cfg.Watch.PollIntervalDuration())
	assert.Equal(t, "info", cfg.Server.LogLevel)
	require.NoError(t, cfg.Validate())
}

func TestNewConfig_DefaultSlicesAreIndependent(t *testing.T) {
	a := NewConfig()
	a.Paths.Include[0] = "changed"
	a.Paths.Exclude[0] = "changed"

	b := NewConfig()
	assert.Equal(t, "**/*.html", b.Paths.Include[0])
	assert.Equal(t, "**/node_modules/**", b.Paths.Exclude[0])
}

func TestLoad_NoFilesUsesDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load(t.TempDir())

	require.NoError(t, err)
	assert.Equal(t, NewConfig().Paths.Include, cfg.Paths.Include)
}

func TestLoad_ProjectConfigOverridesDefaults(t *testing.T) {
	// Given: a project config
	isolate(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".classcache.yaml"), `
paths:
  include: ["**/*.vue"]
  exclude: ["**/dist/**"]
  respect_gitignore: false
markup:
  languages: [html, vue]
watch:
  enabled: false
  debounce: 50ms
server:
  log_level: debug
`)

	// When: loading
	cfg, err := Load(dir)
	require.NoError(t, err)

	// Then: project values win and excludes extend the defaults
	assert.Equal(t, []string{"**/*.vue"}, cfg.Paths.Include)
	assert.Contains(t, cfg.Paths.Exclude, "**/dist/**")
	assert.Contains(t, cfg.Paths.Exclude, "**/node_modules/**")
	assert.False(t, cfg.Paths.GitignoreEnabled())
	assert.True(t, cfg.Markup.IsMarkupLanguage("VUE"))
	assert.False(t, cfg.Watch.IsEnabled())
	assert.Equal(t, 50*time.Millisecond, cfg.Watch.DebounceDuration())
	assert.Equal(t, "debug", cfg.Server.LogLevel)
}

func TestLoad_YAMLTakesPrecedenceOverYML(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".classcache.yaml"), "server:\n  log_level: warn\n")
	writeFile(t, filepath.Join(dir, ".classcache.yml"), "server:\n  log_level: error\n")

	cfg, err := Load(dir)

	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Server.LogLevel)
}

func TestLoad_PrecedenceUserProjectEnv(t *testing.T) {
	// Given: user, project and env settings for different fields
	isolate(t)
	home := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", home)
	writeFile(t, filepath.Join(home, "classcache", "config.yaml"), `
scan:
  workers: 3
server:
  log_level: warn
`)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".classcache.yml"), "server:\n  log_level: error\n")
	t.Setenv("CLASSCACHE_WATCH_DEBOUNCE", "1s")

	// When: loading
	cfg, err := Load(dir)
	require.NoError(t, err)

	// Then: each layer contributes, higher layers win
	assert.Equal(t, 3, cfg.Scan.Workers)
	assert.Equal(t, "error", cfg.Server.LogLevel)
	assert.Equal(t, time.Second, cfg.Watch.DebounceDuration())
}

func TestLoad_EnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("CLASSCACHE_LOG_LEVEL", "debug")
	t.Setenv("CLASSCACHE_INCLUDE", "**/*.html, **/*.php ,")
	t.Setenv("CLASSCACHE_MARKUP_LANGUAGES", "html,php")
	t.Setenv("CLASSCACHE_SCAN_WORKERS", "2")
	t.Setenv("CLASSCACHE_WATCH_ENABLED", "0")
	t.Setenv("CLASSCACHE_RESPECT_GITIGNORE", "false")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Server.LogLevel)
	assert.Equal(t, []string{"**/*.html", "**/*.php"}, cfg.Paths.Include)
	assert.Equal(t, []string{"html", "php"}, cfg.Markup.Languages)
	assert.Equal(t, 2, cfg.Scan.Workers)
	assert.False(t, cfg.Watch.IsEnabled())
	assert.False(t, cfg.Paths.GitignoreEnabled())
}

func TestLoad_InvalidYAML(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".classcache.yaml"), "paths: [unclosed\n")

	_, err := Load(dir)

	require.Error(t, err)
	assert.Equal(t, cerrors.ErrCodeConfigInvalid, cerrors.GetCode(err))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty include", func(c *Config) { c.Paths.Include = nil }},
		{"empty languages", func(c *Config) { c.Markup.Languages = nil }},
		{"negative workers", func(c *Config) { c.Scan.Workers = -1 }},
		{"negative max size", func(c *Config) { c.Scan.MaxFileSize = -1 }},
		{"bad debounce", func(c *Config) { c.Watch.Debounce = "soon" }},
		{"negative poll", func(c *Config) { c.Watch.PollInterval = "-1s" }},
		{"bad log level", func(c *Config) { c.Server.LogLevel = "loud" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			tt.mutate(cfg)

			err := cfg.Validate()

			require.Error(t, err)
			assert.Equal(t, cerrors.CategoryConfig, cerrors.GetCategory(err))
		})
	}
}

func TestMergeNewDefaults_FillsMissingFields(t *testing.T) {
	// Given: a config parsed from an older file
	cfg := &Config{Version: 1, Paths: PathsConfig{Include: []string{"**/*.html"}}}

	// When: merging new defaults
	added := cfg.MergeNewDefaults()

	// Then: missing fields are reported and filled
	assert.Contains(t, added, "paths.respect_gitignore")
	assert.Contains(t, added, "markup.languages")
	assert.Contains(t, added, "watch.enabled")
	assert.True(t, cfg.Paths.GitignoreEnabled())
	assert.Equal(t, []string{"html"}, cfg.Markup.Languages)

	// And: a second merge adds nothing
	assert.Empty(t, cfg.MergeNewDefaults())
}

func TestWriteYAML_RoundTripsThroughLoad(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	cfg := NewConfig()
	cfg.Server.LogLevel = "warn"

	require.NoError(t, cfg.WriteYAML(filepath.Join(dir, ".classcache.yaml")))

	loaded, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "warn", loaded.Server.LogLevel)
}

func TestFindProjectRoot(t *testing.T) {
	// Given: a project with a config file and a nested directory
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ".classcache.yaml"), "version: 1\n")
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0755))

	// When: searching from the nested directory
	got, err := FindProjectRoot(nested)
	require.NoError(t, err)

	// Then: the config directory is the root
	want, _ := filepath.EvalSymlinks(root)
	gotResolved, _ := filepath.EvalSymlinks(got)
	assert.Equal(t, want, gotResolved)
}

func TestFindProjectRoot_GitDirectory(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".git"), 0755))
	nested := filepath.Join(root, "src")
	require.NoError(t, os.MkdirAll(nested, 0755))

	got, err := FindProjectRoot(nested)
	require.NoError(t, err)
	assert.Equal(t, root, got)
}
