package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/executioner/internal/config"
	"github.com/roach88/executioner/internal/engine"
)

const alphaDoc = `id: alpha
created: 2016-06-21
executor: cue
scripts:
  - id: alpha-1
    text: "a: 1"
  - id: alpha-2
    order: 1
    text: "b: 2"
`

const betaDoc = `id: beta
created: 2016-06-22
executor: cue
scripts:
  - id: beta-1
    text: "c: 3"
`

// fixture is a project directory with a config file, a scripts directory and
// a database path.
type fixture struct {
	dir     string
	scripts string
	db      string
	config  string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	for _, key := range []string{config.EnvDatabaseURL, config.EnvDatabase, config.EnvScripts} {
		t.Setenv(key, "")
	}

	dir := t.TempDir()
	f := &fixture{
		dir:     dir,
		scripts: filepath.Join(dir, "scripts"),
		db:      filepath.Join(dir, "completion.db"),
		config:  filepath.Join(dir, "executioner.toml"),
	}
	require.NoError(t, os.MkdirAll(f.scripts, 0o755))
	require.NoError(t, os.WriteFile(f.config, []byte("shell = \"sh\"\n"), 0o644))
	return f
}

func (f *fixture) writeScript(t *testing.T, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(f.scripts, name), []byte(content), 0o644))
}

func (f *fixture) writeConfig(t *testing.T, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(f.config, []byte(content), 0o644))
}

// executeRoot runs the full command tree and returns stdout.
func executeRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// executeRun runs the run command with a fixed run ID.
func (f *fixture) executeRun(t *testing.T, runID string, extra ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	opts := &RunOptions{
		RootOptions: &RootOptions{Format: "text", ConfigPath: f.config},
		RunIDs:      engine.NewFixedGenerator(runID),
	}
	cmd := newRunCommand(opts)
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(append([]string{"--db", f.db, f.scripts}, extra...))
	err := cmd.Execute()
	return out.String(), err
}
