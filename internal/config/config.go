// Package config resolves executioner settings from executioner.toml, a .env
// file and the process environment.
//
// Precedence, lowest first: built-in defaults, executioner.toml, .env,
// process environment. Command-line flags are applied on top by the CLI.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// FileName is the config file looked up from the working directory upward.
const FileName = "executioner.toml"

// Defaults for settings left empty everywhere.
const (
	DefaultDatabase   = ".executioner.db"
	DefaultScripts    = "scripts"
	DefaultShell      = "sh"
	DefaultTargetName = "default"
)

// Environment variables that override file values.
const (
	EnvDatabaseURL = "DATABASE_URL"
	EnvDatabase    = "EXECUTIONER_DB"
	EnvScripts     = "EXECUTIONER_SCRIPTS"
)

// Target is a database the sql executor applies scripts to.
type Target struct {
	Driver string `toml:"driver"`
	DSN    string `toml:"dsn"`
}

// Config holds resolved settings.
type Config struct {
	// Database is the completion store path.
	Database string `toml:"database"`

	// Scripts is the directory documents are loaded from.
	Scripts string `toml:"scripts"`

	ExecuteAll    bool              `toml:"execute_all"`
	DefaultTarget string            `toml:"default_target"`
	Targets       map[string]Target `toml:"targets"`
	Shell         string            `toml:"shell"`

	ConfigFilePath string `toml:"-"`
	DotenvPath     string `toml:"-"`
}

// Load discovers and resolves the config for the current working directory.
// An explicit path skips discovery and must exist.
func Load(path string) (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	return LoadFrom(wd, path, os.LookupEnv)
}

// LoadFrom is Load with an explicit start directory and environment lookup.
func LoadFrom(startDir, path string, lookupEnv func(string) (string, bool)) (*Config, error) {
	if path == "" {
		path = discover(startDir)
	}

	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, err
		}
		cfg.ConfigFilePath = abs
	}

	baseDir := cfg.ConfigDir()
	if baseDir == "" {
		baseDir = startDir
	}

	if err := cfg.applyDotenv(filepath.Join(baseDir, ".env")); err != nil {
		return nil, err
	}
	cfg.applyEnv(lookupEnv)
	cfg.applyDefaults(baseDir)

	for name, t := range cfg.Targets {
		if t.Driver == "" {
			t.Driver = DetectDriver(t.DSN)
			cfg.Targets[name] = t
		}
	}
	return cfg, nil
}

// discover walks up from dir looking for FileName, stopping at a project root.
// Returns "" if nothing is found.
func discover(dir string) string {
	for {
		candidate := filepath.Join(dir, FileName)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate
		}

		if isProjectRoot(dir) {
			return ""
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

func isProjectRoot(dir string) bool {
	for _, marker := range []string{".git", "go.mod"} {
		if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
			return true
		}
	}
	return false
}

// ConfigDir returns the directory holding the config file, or "" if none was
// loaded.
func (c *Config) ConfigDir() string {
	if c.ConfigFilePath == "" {
		return ""
	}
	return filepath.Dir(c.ConfigFilePath)
}

func (c *Config) applyDotenv(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to access %s: %w", path, err)
	}
	if info.IsDir() {
		return nil
	}

	values, err := godotenv.Read(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	c.DotenvPath = path
	c.applyEnv(func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	})
	return nil
}

func (c *Config) applyEnv(lookupEnv func(string) (string, bool)) {
	if lookupEnv == nil {
		return
	}
	if v, ok := lookupEnv(EnvDatabase); ok && v != "" {
		c.Database = v
	}
	if v, ok := lookupEnv(EnvScripts); ok && v != "" {
		c.Scripts = v
	}
	if v, ok := lookupEnv(EnvDatabaseURL); ok && v != "" {
		name := c.targetName("")
		if c.Targets == nil {
			c.Targets = make(map[string]Target)
		}
		// A URL replaces the whole target, so a stale driver cannot linger.
		c.Targets[name] = Target{DSN: v}
	}
}

func (c *Config) applyDefaults(baseDir string) {
	if c.Database == "" {
		c.Database = DefaultDatabase
	}
	if c.Scripts == "" {
		c.Scripts = DefaultScripts
	}
	if c.Shell == "" {
		c.Shell = DefaultShell
	}
	c.Database = resolvePath(c.Database, baseDir)
	c.Scripts = resolvePath(c.Scripts, baseDir)
}

func resolvePath(p, baseDir string) string {
	if p == "" || filepath.IsAbs(p) || baseDir == "" || p == ":memory:" {
		return p
	}
	return filepath.Join(baseDir, p)
}

func (c *Config) targetName(name string) string {
	name = strings.TrimSpace(name)
	if name != "" {
		return name
	}
	if c.DefaultTarget != "" {
		return c.DefaultTarget
	}
	return DefaultTargetName
}

// Target returns the named target, or the default target when name is empty.
func (c *Config) Target(name string) (Target, error) {
	resolved := c.targetName(name)
	t, ok := c.Targets[resolved]
	if !ok {
		return Target{}, fmt.Errorf("target %q not defined in %s (known: %s)",
			resolved, FileName, strings.Join(c.TargetNames(), ", "))
	}
	if t.DSN == "" {
		return Target{}, fmt.Errorf("target %q has no dsn", resolved)
	}
	return t, nil
}

// TargetNames returns configured target names, sorted.
func (c *Config) TargetNames() []string {
	names := make([]string, 0, len(c.Targets))
	for name := range c.Targets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DetectDriver guesses the database/sql driver name from a connection string.
// libsql:// URLs go to libsql; anything that is not a postgres URL is treated
// as a SQLite path.
func DetectDriver(dsn string) string {
	lower := strings.ToLower(strings.TrimSpace(dsn))
	if strings.HasPrefix(lower, "libsql://") {
		return "libsql"
	}
	if strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://") {
		return "postgres"
	}
	if strings.Contains(lower, "host=") && strings.Contains(lower, "dbname=") {
		return "postgres"
	}
	return "sqlite3"
}
