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

	"github.com/roach88/executioner/internal/loader"
	"github.com/roach88/executioner/internal/script"
	"github.com/roach88/executioner/internal/store"
)

// Script and document states reported by status.
const (
	StateDone    = "done"
	StatePending = "pending"
	StateChanged = "changed" // applied, but the text differs from what ran
)

// StatusOptions holds flags for the status command.
type StatusOptions struct {
	*RootOptions
	Database string
}

// ScriptStatus is one script line in a status report.
type ScriptStatus struct {
	ID          string     `json:"id"`
	Key         string     `json:"key"`
	Executor    string     `json:"executor"`
	State       string     `json:"state"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	RunID       string     `json:"run_id,omitempty"`
}

// DocumentStatus groups script statuses by document.
type DocumentStatus struct {
	ID      string         `json:"id"`
	Name    string         `json:"name"`
	Key     string         `json:"key"`
	State   string         `json:"state"`
	Scripts []ScriptStatus `json:"scripts"`
}

// StatusReport is the result of a status command.
type StatusReport struct {
	Documents []DocumentStatus `json:"documents"`
	Done      int              `json:"done"`
	Pending   int              `json:"pending"`
	Changed   int              `json:"changed"`
}

// RenderText implements TextRenderer.
func (r StatusReport) RenderText(w io.Writer) error {
	for _, d := range r.Documents {
		if _, err := fmt.Fprintf(w, "%s  %s  %s\n", d.Key, d.ID, d.State); err != nil {
			return err
		}
		for _, s := range d.Scripts {
			if _, err := fmt.Fprintf(w, "  %-8s %s  %s  [%s]\n", s.State, s.Key, s.ID, s.Executor); err != nil {
				return err
			}
		}
	}
	_, err := fmt.Fprintf(w, "\n%d done, %d pending, %d changed\n", r.Done, r.Pending, r.Changed)
	return err
}

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StatusOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "status [scripts-dir]",
		Short: "Show which scripts have been applied",
		Long: `List every loaded document and script with its state:

  done     applied and unchanged
  pending  not applied yet
  changed  applied, but the script text has been edited since

The database is only read; a missing database shows everything as pending.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to the completion database (default from config)")

	return cmd
}

func runStatus(opts *StatusOptions, args []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	sess, err := resolveSession(cmd, opts.RootOptions, args, opts.Database)
	if err != nil {
		return failWith(formatter, ErrCodeConfig, ExitCommandError, "failed to load config", err, nil)
	}

	docs, err := loadSorted(ctx, sess.scriptsDir)
	if err != nil {
		return fail(formatter, "failed to load scripts", err)
	}
	formatter.VerboseLog("Loaded %d document(s) from %s", len(docs), sess.scriptsDir)

	records, err := readScriptRecords(ctx, sess.dbPath)
	if err != nil {
		return failWith(formatter, ErrCodeStore, ExitCommandError, "failed to read database", err, nil)
	}

	return formatter.Success(buildStatus(docs, records))
}

// loadSorted loads and validates documents without building executors.
func loadSorted(ctx context.Context, dir string) ([]*script.Document, error) {
	l := loader.NewDir(dir)
	if err := l.LoadDocuments(ctx); err != nil {
		return nil, err
	}
	docs := l.Documents()
	if err := script.Validate(docs); err != nil {
		return nil, err
	}
	script.SortDocuments(docs)
	return docs, nil
}

// readScriptRecords returns stored script rows keyed by script ID, across
// all documents so a script that moved between files keeps its state. A
// missing database yields no rows and is not created.
func readScriptRecords(ctx context.Context, path string) (map[string]store.ScriptRecord, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return map[string]store.ScriptRecord{}, nil
	}

	st, err := openStore(path)
	if err != nil {
		return nil, err
	}
	defer closeStore(st)

	return st.ScriptsByID(ctx)
}

func buildStatus(docs []*script.Document, records map[string]store.ScriptRecord) StatusReport {
	report := StatusReport{Documents: make([]DocumentStatus, 0, len(docs))}

	for _, d := range docs {
		ds := DocumentStatus{
			ID:      d.ID,
			Name:    d.Name,
			Key:     script.DocumentKeyOf(d).String(),
			State:   StateDone,
			Scripts: make([]ScriptStatus, 0, len(d.Scripts)),
		}

		for _, s := range d.Scripts {
			ss := ScriptStatus{
				ID:       s.ID,
				Key:      script.KeyOf(s).String(),
				Executor: s.Executor,
				State:    StatePending,
			}
			if rec, ok := records[s.ID]; ok && rec.CompletedAt != nil {
				ss.CompletedAt = rec.CompletedAt
				ss.RunID = rec.RunID
				ss.State = StateDone
				if rec.Checksum != "" && rec.Checksum != script.Checksum(s.Text) {
					ss.State = StateChanged
				}
			}

			switch ss.State {
			case StateDone:
				report.Done++
			case StatePending:
				report.Pending++
				ds.State = StatePending
			case StateChanged:
				report.Changed++
				if ds.State == StateDone {
					ds.State = StateChanged
				}
			}
			ds.Scripts = append(ds.Scripts, ss)
		}
		report.Documents = append(report.Documents, ds)
	}
	return report
}
