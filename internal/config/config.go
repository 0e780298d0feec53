package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	cerrors "github.com/Aman-CERP/classcache/internal/errors"
)

// Project configuration file names, in lookup order.
const (
	ProjectConfigYAML = ".classcache.yaml"
	ProjectConfigYML  = ".classcache.yml"
)

// Config represents the complete classcache configuration.
type Config struct {
	Version int          `yaml:"version" json:"version"`
	Paths   PathsConfig  `yaml:"paths" json:"paths"`
	Markup  MarkupConfig `yaml:"markup" json:"markup"`
	Scan    ScanConfig   `yaml:"scan" json:"scan"`
	Watch   WatchConfig  `yaml:"watch" json:"watch"`
	Server  ServerConfig `yaml:"server" json:"server"`
}

// PathsConfig configures which files are treated as markup documents.
type PathsConfig struct {
	// Include holds doublestar globs relative to the project root.
	Include []string `yaml:"include" json:"include"`
	// Exclude holds doublestar globs; user entries extend the defaults.
	Exclude []string `yaml:"exclude" json:"exclude"`
	// RespectGitignore skips files ignored by .gitignore. Defaults to true.
	RespectGitignore *bool `yaml:"respect_gitignore,omitempty" json:"respect_gitignore,omitempty"`
}

// MarkupConfig configures which editor documents feed the cache.
type MarkupConfig struct {
	// Languages lists editor language IDs whose events are applied.
	Languages []string `yaml:"languages" json:"languages"`
}

// ScanConfig configures disk enumeration and reads.
type ScanConfig struct {
	Workers     int   `yaml:"workers" json:"workers"`
	MaxFileSize int64 `yaml:"max_file_size" json:"max_file_size"`
}

// WatchConfig configures the file watcher.
type WatchConfig struct {
	Enabled      *bool  `yaml:"enabled,omitempty" json:"enabled,omitempty"`
	Debounce     string `yaml:"debounce" json:"debounce"`
	PollInterval string `yaml:"poll_interval" json:"poll_interval"`
}

// ServerConfig configures the MCP server.
type ServerConfig struct {
	LogLevel string `yaml:"log_level" json:"log_level"`
}

// defaultExcludePatterns are dependency and VCS directories that never hold
// project markup.
var defaultExcludePatterns = []string{
	"**/node_modules/**",
	"**/bower_components/**",
	"**/vendor/**",
	"**/.git/**",
	"**/.hg/**",
	"**/.svn/**",
}

// DefaultIncludePatterns match HTML documents.
var DefaultIncludePatterns = []string{
	"**/*.html",
	"**/*.htm",
}

// NewConfig creates a new Config with sensible defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Paths: PathsConfig{
			Include:          append([]string(nil), DefaultIncludePatterns...),
			Exclude:          append([]string(nil), defaultExcludePatterns...),
			RespectGitignore: boolPtr(true),
		},
		Markup: MarkupConfig{
			Languages: []string{"html"},
		},
		Scan: ScanConfig{
			Workers:     runtime.NumCPU(),
			MaxFileSize: 10 * 1024 * 1024,
		},
		Watch: WatchConfig{
			Enabled:      boolPtr(true),
			Debounce:     "200ms",
			PollInterval: "5s",
		},
		Server: ServerConfig{
			LogLevel: "info",
		},
	}
}

func boolPtr(b bool) *bool {
	return &b
}

// GitignoreEnabled reports whether .gitignore rules apply.
func (p PathsConfig) GitignoreEnabled() bool {
	return p.RespectGitignore == nil || *p.RespectGitignore
}

// IsEnabled reports whether the file watcher should run.
func (w WatchConfig) IsEnabled() bool {
	return w.Enabled == nil || *w.Enabled
}

// DebounceDuration returns the parsed debounce window.
// Validate guarantees it parses.
func (w WatchConfig) DebounceDuration() time.Duration {
	d, _ := time.ParseDuration(w.Debounce)
	return d
}

// PollIntervalDuration returns the parsed polling interval.
func (w WatchConfig) PollIntervalDuration() time.Duration {
	d, _ := time.ParseDuration(w.PollInterval)
	return d
}

// IsMarkupLanguage reports whether languageID is configured as markup.
// Comparison is case-insensitive.
func (m MarkupConfig) IsMarkupLanguage(languageID string) bool {
	for _, l := range m.Languages {
		if strings.EqualFold(l, languageID) {
			return true
		}
	}
	return false
}

// GetUserConfigPath returns the path to the user/global configuration file.
// It follows the XDG Base Directory specification:
// $XDG_CONFIG_HOME/classcache/config.yaml, else ~/.config/classcache/config.yaml.
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "classcache", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "classcache", "config.yaml")
	}
	return filepath.Join(home, ".config", "classcache", "config.yaml")
}

// GetUserConfigDir returns the directory containing the user configuration.
func GetUserConfigDir() string {
	return filepath.Dir(GetUserConfigPath())
}

// UserConfigExists returns true if the user configuration file exists.
func UserConfigExists() bool {
	return fileExists(GetUserConfigPath())
}

// LoadUserConfig loads the user configuration file.
// Returns nil config and nil error if the file doesn't exist.
func LoadUserConfig() (*Config, error) {
	configPath := GetUserConfigPath()
	if !fileExists(configPath) {
		return nil, nil
	}

	cfg := NewConfig()
	if err := cfg.loadYAML(configPath); err != nil {
		return nil, fmt.Errorf("failed to load user config from %s: %w", configPath, err)
	}
	return cfg, nil
}

// Load loads configuration for the project rooted at dir.
// It applies configuration in order of increasing precedence:
//  1. Hardcoded defaults
//  2. User config (~/.config/classcache/config.yaml)
//  3. Project config (.classcache.yaml or .classcache.yml)
//  4. Environment variables (CLASSCACHE_*)
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if userCfg, err := LoadUserConfig(); err != nil {
		return nil, err
	} else if userCfg != nil {
		cfg.mergeWith(userCfg)
	}

	if path := ProjectConfigPath(dir); path != "" {
		if err := cfg.loadYAML(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// ProjectConfigPath returns the project config file in dir, or "" if none.
// .yaml takes precedence over .yml.
func ProjectConfigPath(dir string) string {
	for _, name := range []string{ProjectConfigYAML, ProjectConfigYML} {
		p := filepath.Join(dir, name)
		if fileExists(p) {
			return p
		}
	}
	return ""
}

func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return cerrors.New(cerrors.ErrCodeConfigNotFound,
			fmt.Sprintf("failed to read config file %s", path), err)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return cerrors.New(cerrors.ErrCodeConfigInvalid,
			fmt.Sprintf("failed to parse config file %s", path), err).
			WithDetail("path", path)
	}

	c.mergeWith(&parsed)
	return nil
}

// mergeWith merges non-zero values from other into c.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}

	if len(other.Paths.Include) > 0 {
		c.Paths.Include = other.Paths.Include
	}
	for _, p := range other.Paths.Exclude {
		if !contains(c.Paths.Exclude, p) {
			c.Paths.Exclude = append(c.Paths.Exclude, p)
		}
	}
	if other.Paths.RespectGitignore != nil {
		c.Paths.RespectGitignore = boolPtr(*other.Paths.RespectGitignore)
	}

	if len(other.Markup.Languages) > 0 {
		c.Markup.Languages = other.Markup.Languages
	}

	if other.Scan.Workers != 0 {
		c.Scan.Workers = other.Scan.Workers
	}
	if other.Scan.MaxFileSize != 0 {
		c.Scan.MaxFileSize = other.Scan.MaxFileSize
	}

	if other.Watch.Enabled != nil {
		c.Watch.Enabled = boolPtr(*other.Watch.Enabled)
	}
	if other.Watch.Debounce != "" {
		c.Watch.Debounce = other.Watch.Debounce
	}
	if other.Watch.PollInterval != "" {
		c.Watch.PollInterval = other.Watch.PollInterval
	}

	if other.Server.LogLevel != "" {
		c.Server.LogLevel = other.Server.LogLevel
	}
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("CLASSCACHE_LOG_LEVEL"); v != "" {
		c.Server.LogLevel = v
	}
	if v := os.Getenv("CLASSCACHE_INCLUDE"); v != "" {
		c.Paths.Include = splitList(v)
	}
	if v := os.Getenv("CLASSCACHE_MARKUP_LANGUAGES"); v != "" {
		c.Markup.Languages = splitList(v)
	}
	if v := os.Getenv("CLASSCACHE_SCAN_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Scan.Workers = n
		}
	}
	if v := os.Getenv("CLASSCACHE_WATCH_ENABLED"); v != "" {
		c.Watch.Enabled = boolPtr(strings.EqualFold(v, "true") || v == "1")
	}
	if v := os.Getenv("CLASSCACHE_WATCH_DEBOUNCE"); v != "" {
		c.Watch.Debounce = v
	}
	if v := os.Getenv("CLASSCACHE_RESPECT_GITIGNORE"); v != "" {
		c.Paths.RespectGitignore = boolPtr(strings.EqualFold(v, "true") || v == "1")
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	if len(c.Paths.Include) == 0 {
		return cerrors.ConfigError("paths.include must not be empty", nil).
			WithSuggestion("Add a glob such as **/*.html")
	}
	if len(c.Markup.Languages) == 0 {
		return cerrors.ConfigError("markup.languages must not be empty", nil)
	}
	if c.Scan.Workers < 0 {
		return cerrors.ConfigError(fmt.Sprintf("scan.workers must be non-negative, got %d", c.Scan.Workers), nil)
	}
	if c.Scan.MaxFileSize < 0 {
		return cerrors.ConfigError(fmt.Sprintf("scan.max_file_size must be non-negative, got %d", c.Scan.MaxFileSize), nil)
	}

	for name, value := range map[string]string{
		"watch.debounce":      c.Watch.Debounce,
		"watch.poll_interval": c.Watch.PollInterval,
	} {
		d, err := time.ParseDuration(value)
		if err != nil || d < 0 {
			return cerrors.ConfigError(fmt.Sprintf("%s must be a non-negative duration, got %q", name, value), err).
				WithSuggestion("Use a Go duration such as 200ms or 5s")
		}
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Server.LogLevel)] {
		return cerrors.ConfigError(fmt.Sprintf("server.log_level must be 'debug', 'info', 'warn', or 'error', got %s", c.Server.LogLevel), nil)
	}

	return nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// JSON returns the configuration as indented JSON.
func (c *Config) JSON() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}

// MergeNewDefaults fills options that an older config file does not set.
// Returns the names of the fields that were added.
func (c *Config) MergeNewDefaults() []string {
	defaults := NewConfig()
	var added []string

	if c.Paths.RespectGitignore == nil {
		c.Paths.RespectGitignore = defaults.Paths.RespectGitignore
		added = append(added, "paths.respect_gitignore")
	}
	if len(c.Markup.Languages) == 0 {
		c.Markup.Languages = defaults.Markup.Languages
		added = append(added, "markup.languages")
	}
	if c.Scan.MaxFileSize == 0 {
		c.Scan.MaxFileSize = defaults.Scan.MaxFileSize
		added = append(added, "scan.max_file_size")
	}
	if c.Watch.Enabled == nil {
		c.Watch.Enabled = defaults.Watch.Enabled
		added = append(added, "watch.enabled")
	}
	if c.Watch.PollInterval == "" {
		c.Watch.PollInterval = defaults.Watch.PollInterval
		added = append(added, "watch.poll_interval")
	}

	return added
}

// FindProjectRoot finds the project root directory.
// It walks up from startDir looking for a .git directory or a project config
// file, and falls back to startDir itself.
func FindProjectRoot(startDir string) (string, error) {
	absDir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path: %w", err)
	}

	currentDir := absDir
	for {
		if dirExists(filepath.Join(currentDir, ".git")) || ProjectConfigPath(currentDir) != "" {
			return currentDir, nil
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			return absDir, nil
		}
		currentDir = parentDir
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
