package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/executioner/internal/executor"
	"github.com/roach88/executioner/internal/store"
)

// ValidateReport is the result of a validate command.
type ValidateReport struct {
	Valid     bool     `json:"valid"`
	Documents int      `json:"documents"`
	Scripts   int      `json:"scripts"`
	Executors []string `json:"executors"`
	Checked   int      `json:"checked"`
}

// RenderText implements TextRenderer.
func (r ValidateReport) RenderText(w io.Writer) error {
	_, err := fmt.Fprintf(w, "OK: %d document(s), %d script(s), %d checked; executors: %s\n",
		r.Documents, r.Scripts, r.Checked, strings.Join(r.Executors, ", "))
	return err
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	var target string

	cmd := &cobra.Command{
		Use:   "validate [scripts-dir]",
		Short: "Check scripts without running them",
		Long: `Load every document and build the executors they reference, without
running anything or touching the completion database.

Catches parse errors, duplicate IDs, clashing (date, order) keys and
unknown executor names. CUE payloads are evaluated and SQL bound for a
postgres target is parsed, both without side effects.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, target, args, cmd)
		},
	}

	cmd.Flags().StringVar(&target, "target", "", "sql target name (default from config)")

	return cmd
}

func runValidate(opts *RootOptions, target string, args []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	sess, err := resolveSession(cmd, opts, args, "")
	if err != nil {
		return failWith(formatter, ErrCodeConfig, ExitCommandError, "failed to load config", err, nil)
	}

	eng, catalog, err := sess.newEngine(ctx, store.NewMemory(), target)
	if err != nil {
		return fail(formatter, "validation failed", err)
	}
	defer catalog.Close()

	report := ValidateReport{
		Valid:     true,
		Documents: len(eng.Documents()),
		Executors: eng.Executors().Names(),
	}
	var issues []string
	for _, d := range eng.Documents() {
		report.Scripts += len(d.Scripts)
		for _, s := range d.Scripts {
			ex, ok := eng.Executors().Lookup(s.Executor)
			if !ok {
				continue
			}
			if _, checkable := ex.(executor.Checker); checkable {
				report.Checked++
			}
			if err := executor.Check(ex, s.Text); err != nil {
				issues = append(issues, fmt.Sprintf("%s/%s: %v", d.ID, s.ID, err))
			}
		}
	}
	if len(issues) > 0 {
		return failWith(formatter, ErrCodeInvalidDocuments, ExitCommandError,
			fmt.Sprintf("%d script(s) failed checks", len(issues)), nil,
			map[string]any{"issues": issues})
	}
	formatter.VerboseLog("Validated %s", sess.scriptsDir)
	return formatter.Success(report)
}
