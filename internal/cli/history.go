package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/executioner/internal/script"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Database string
	Limit    int
}

// HistoryReport is the result of a history command.
type HistoryReport struct {
	Runs []script.RunRecord `json:"runs"`
}

// RenderText implements TextRenderer.
func (r HistoryReport) RenderText(w io.Writer) error {
	if len(r.Runs) == 0 {
		_, err := fmt.Fprintln(w, "No runs recorded")
		return err
	}
	for _, run := range r.Runs {
		outcome := "ok"
		if run.Error != "" {
			outcome = "failed: " + run.Error
		}
		mode := "pending"
		if run.ExecuteAllScripts {
			mode = "all"
		}
		if _, err := fmt.Fprintf(w, "%s  %s  %-7s %d document(s), %d script(s)  %s\n",
			run.ID,
			run.StartedAt.UTC().Format(time.RFC3339),
			mode,
			run.DocumentsCompleted,
			run.ScriptsCompleted,
			outcome,
		); err != nil {
			return err
		}
	}
	return nil
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "history",
		Short:         "List recorded runs, newest first",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to the completion database (default from config)")
	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 20, "maximum number of runs to show (0 for all)")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	sess, err := resolveSession(cmd, opts.RootOptions, nil, opts.Database)
	if err != nil {
		return failWith(formatter, ErrCodeConfig, ExitCommandError, "failed to load config", err, nil)
	}

	if _, err := os.Stat(sess.dbPath); errors.Is(err, fs.ErrNotExist) {
		return failWith(formatter, ErrCodeStore, ExitCommandError,
			fmt.Sprintf("database not found: %s", sess.dbPath), nil, nil)
	}

	st, err := openStore(sess.dbPath)
	if err != nil {
		return failWith(formatter, ErrCodeStore, ExitCommandError, "failed to open database", err, nil)
	}
	defer closeStore(st)

	runs, err := st.ListRuns(ctx, opts.Limit)
	if err != nil {
		return failWith(formatter, ErrCodeStore, ExitCommandError, "failed to read runs", err, nil)
	}
	return formatter.Success(HistoryReport{Runs: runs})
}
