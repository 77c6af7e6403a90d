package executor

import (
	"fmt"

	"github.com/roach88/executioner/internal/config"
	"github.com/roach88/executioner/internal/engine"
)

// Built-in executor names.
const (
	NameSQL   = "sql"
	NameShell = "shell"
	NameCUE   = "cue"
)

// Defaults builds the catalog the CLI uses.
//
// "sql" applies to target (or the config's default target); every configured
// target is also reachable as "sql:<name>". Targets are opened only when a
// script references them, so a missing target fails engine construction
// rather than this call.
func Defaults(cfg *config.Config, target string) (*Catalog, error) {
	if cfg == nil {
		cfg = &config.Config{}
	}
	c := NewCatalog()

	if err := c.Register(NameSQL, sqlConstructor(cfg, target)); err != nil {
		return nil, err
	}
	for _, name := range cfg.TargetNames() {
		if err := c.Register(NameSQL+":"+name, sqlConstructor(cfg, name)); err != nil {
			return nil, err
		}
	}

	shell := cfg.Shell
	dir := cfg.ConfigDir()
	if err := c.Register(NameShell, func() (engine.Executor, error) {
		return &Shell{Path: shell, Dir: dir}, nil
	}); err != nil {
		return nil, err
	}

	if err := c.Register(NameCUE, func() (engine.Executor, error) {
		return NewCUE(), nil
	}); err != nil {
		return nil, err
	}
	return c, nil
}

func sqlConstructor(cfg *config.Config, target string) Constructor {
	return func() (engine.Executor, error) {
		t, err := cfg.Target(target)
		if err != nil {
			return nil, err
		}
		driver := t.Driver
		if driver == "" {
			driver = config.DetectDriver(t.DSN)
		}
		ex, err := OpenSQL(driver, t.DSN)
		if err != nil {
			return nil, fmt.Errorf("target %q: %w", target, err)
		}
		return ex, nil
	}
}
