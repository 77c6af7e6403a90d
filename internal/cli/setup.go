package cli

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/executioner/internal/config"
	"github.com/roach88/executioner/internal/engine"
	"github.com/roach88/executioner/internal/executor"
	"github.com/roach88/executioner/internal/loader"
	"github.com/roach88/executioner/internal/store"
)

// session is the wiring shared by commands: resolved config, an open store
// and the scripts directory.
type session struct {
	cfg        *config.Config
	scriptsDir string
	dbPath     string
}

// resolveSession loads config and applies the positional scripts dir and the
// --db flag on top of it.
func resolveSession(cmd *cobra.Command, opts *RootOptions, args []string, dbFlag string) (*session, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	s := &session{cfg: cfg, scriptsDir: cfg.Scripts, dbPath: cfg.Database}
	if len(args) > 0 {
		s.scriptsDir = args[0]
	}
	if cmd.Flags().Changed("db") {
		s.dbPath = dbFlag
	}
	if cfg.ConfigFilePath != "" {
		slog.Debug("config loaded", "path", cfg.ConfigFilePath)
	}
	return s, nil
}

// newEngine loads the scripts directory and builds an engine over st using
// the default executor catalog. The catalog must be closed by the caller.
func (s *session) newEngine(ctx context.Context, st engine.CompletionStore, target string, opts ...engine.Option) (*engine.Engine, *executor.Catalog, error) {
	catalog, err := executor.Defaults(s.cfg, target)
	if err != nil {
		return nil, nil, err
	}

	eng, err := engine.New(ctx, loader.NewDir(s.scriptsDir), st, catalog, opts...)
	if err != nil {
		catalog.Close()
		return nil, nil, err
	}
	return eng, catalog, nil
}

func openStore(path string) (*store.Store, error) {
	slog.Debug("opening completion store", "path", path)
	return store.Open(path)
}

func closeStore(st *store.Store) {
	if err := st.Close(); err != nil {
		slog.Error("error closing completion store", "error", err)
	}
}
