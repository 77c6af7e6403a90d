package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/executioner/internal/engine"
	"github.com/roach88/executioner/internal/script"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string
	All      bool
	Target   string

	// RunIDs allows overriding the run ID generator (for testing).
	// If nil, the engine default (UUIDv7) is used.
	RunIDs engine.RunIDGenerator
}

// RunReport is the result of a run command.
type RunReport struct {
	RunID              string `json:"run_id"`
	ExecuteAll         bool   `json:"execute_all"`
	DocumentsCompleted int    `json:"documents_completed"`
	ScriptsCompleted   int    `json:"scripts_completed"`
}

// RenderText implements TextRenderer.
func (r RunReport) RenderText(w io.Writer) error {
	if r.ScriptsCompleted == 0 && r.DocumentsCompleted == 0 {
		_, err := fmt.Fprintf(w, "Run %s: nothing to apply\n", r.RunID)
		return err
	}
	_, err := fmt.Fprintf(w, "Run %s: applied %d script(s) in %d document(s)\n",
		r.RunID, r.ScriptsCompleted, r.DocumentsCompleted)
	return err
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return newRunCommand(&RunOptions{RootOptions: rootOpts})
}

func newRunCommand(opts *RunOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [scripts-dir]",
		Short: "Apply pending scripts",
		Long: `Apply every script that has not completed yet, in ascending
(created date, order) sequence.

Completion is recorded in a SQLite database after each script. The run stops
at the first failing script; scripts applied before it stay applied and the
next run resumes at the failed script.

Example:
  executioner run --db ./.executioner.db ./scripts
  executioner run --all --target staging`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScripts(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to the completion database (default from config)")
	cmd.Flags().BoolVar(&opts.All, "all", false, "re-run every script, completed or not")
	cmd.Flags().StringVar(&opts.Target, "target", "", "sql target name (default from config)")

	return cmd
}

func runScripts(opts *RunOptions, args []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	sess, err := resolveSession(cmd, opts.RootOptions, args, opts.Database)
	if err != nil {
		return failWith(formatter, ErrCodeConfig, ExitCommandError, "failed to load config", err, nil)
	}

	st, err := openStore(sess.dbPath)
	if err != nil {
		return failWith(formatter, ErrCodeStore, ExitCommandError, "failed to open database", err, nil)
	}
	defer closeStore(st)

	// Use command's context if available (for testing), otherwise create one.
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, cancelling current script", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	engineOpts := []engine.Option{engine.WithObserver(engine.LogObserver{})}
	if opts.RunIDs != nil {
		engineOpts = append(engineOpts, engine.WithRunIDGenerator(opts.RunIDs))
	}

	eng, catalog, err := sess.newEngine(ctx, st, opts.Target, engineOpts...)
	if err != nil {
		return fail(formatter, "failed to prepare run", err)
	}
	defer catalog.Close()

	req := &script.ExecutionRequest{ExecuteAllScripts: opts.All || sess.cfg.ExecuteAll}
	slog.Info("run starting",
		"scripts_dir", sess.scriptsDir,
		"db", sess.dbPath,
		"documents", len(eng.Documents()),
		"execute_all", req.ExecuteAllScripts,
	)

	result, err := eng.Run(ctx, req)
	report := RunReport{
		RunID:              result.RunID,
		ExecuteAll:         req.ExecuteAllScripts,
		DocumentsCompleted: result.DocumentsCompleted,
		ScriptsCompleted:   result.ScriptsCompleted,
	}
	if err != nil {
		code, exit := classify(err)
		details := errorDetails(err)
		if details == nil {
			details = map[string]any{}
		}
		details["run"] = report
		return failWith(formatter, code, exit, "run failed", err, details)
	}

	slog.Info("run finished",
		"run_id", report.RunID,
		"documents", report.DocumentsCompleted,
		"scripts", report.ScriptsCompleted,
	)
	return formatter.Success(report)
}
