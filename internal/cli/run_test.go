package cli

import (
	"database/sql"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_AppliesPendingThenNothing(t *testing.T) {
	f := newFixture(t)
	f.writeScript(t, "alpha.yaml", alphaDoc)
	f.writeScript(t, "beta.yaml", betaDoc)

	out, err := f.executeRun(t, "run-1")
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "run_text", []byte(out))

	out, err = f.executeRun(t, "run-2")
	require.NoError(t, err)
	assert.Equal(t, "Run run-2: nothing to apply\n", out)
}

func TestRun_All(t *testing.T) {
	f := newFixture(t)
	f.writeScript(t, "alpha.yaml", alphaDoc)
	f.writeScript(t, "beta.yaml", betaDoc)

	_, err := f.executeRun(t, "run-1")
	require.NoError(t, err)

	out, err := f.executeRun(t, "run-2", "--all")
	require.NoError(t, err)
	assert.Equal(t, "Run run-2: applied 3 script(s) in 2 document(s)\n", out)
}

func TestRun_ExecuteAllFromConfig(t *testing.T) {
	f := newFixture(t)
	f.writeConfig(t, "execute_all = true\n")
	f.writeScript(t, "beta.yaml", betaDoc)

	_, err := f.executeRun(t, "run-1")
	require.NoError(t, err)

	out, err := f.executeRun(t, "run-2")
	require.NoError(t, err)
	assert.Equal(t, "Run run-2: applied 1 script(s) in 1 document(s)\n", out)
}

func TestRun_FailureThenResume(t *testing.T) {
	f := newFixture(t)
	f.writeScript(t, "alpha.yaml", alphaDoc)
	f.writeScript(t, "beta.yaml", `id: beta
created: 2016-06-22
executor: cue
scripts:
  - id: beta-1
    text: "c: int"
`)

	out, err := f.executeRun(t, "run-1")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [E007]")
	assert.Contains(t, out, "script=beta-1")

	f.writeScript(t, "beta.yaml", betaDoc)
	out, err = f.executeRun(t, "run-2")
	require.NoError(t, err)
	assert.Equal(t, "Run run-2: applied 1 script(s) in 1 document(s)\n", out)
}

func TestRun_Errors(t *testing.T) {
	tests := []struct {
		name     string
		doc      string
		wantCode string
	}{
		{
			name:     "unknown executor",
			doc:      "created: 2016-06-21\nscripts:\n  - id: s1\n    executor: nope\n    text: x\n",
			wantCode: ErrCodeExecutorNotFound,
		},
		{
			name:     "missing executor",
			doc:      "created: 2016-06-21\nscripts:\n  - id: s1\n    text: x\n",
			wantCode: ErrCodeInvalidDocuments,
		},
		{
			name:     "unparseable document",
			doc:      "created: 2016-06-21\nscripts: [\n",
			wantCode: ErrCodeLoadFailed,
		},
		{
			name:     "sql target not configured",
			doc:      "created: 2016-06-21\nexecutor: sql\nscripts:\n  - id: s1\n    text: SELECT 1\n",
			wantCode: ErrCodeExecutorNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.writeScript(t, "doc.yaml", tt.doc)

			out, err := f.executeRun(t, "run-1")
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, out, "Error ["+tt.wantCode+"]")
		})
	}
}

func TestRun_NoScripts(t *testing.T) {
	f := newFixture(t)

	out, err := f.executeRun(t, "run-1")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error ["+ErrCodeNoExecutors+"]")
}

func TestRun_SQLTarget(t *testing.T) {
	f := newFixture(t)
	target := filepath.Join(f.dir, "app.db")
	f.writeConfig(t, "[targets.default]\ndsn = \""+filepath.ToSlash(target)+"\"\n")
	f.writeScript(t, "users.yaml", `id: users
created: 2016-06-21
executor: sql
scripts:
  - id: users-table
    text: CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT NOT NULL);
  - id: users-admin
    order: 1
    text: INSERT INTO users (name) VALUES ('admin');
`)

	out, err := f.executeRun(t, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "Run run-1: applied 2 script(s) in 1 document(s)\n", out)

	db, err := sql.Open("sqlite3", target)
	require.NoError(t, err)
	defer db.Close()

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM users").Scan(&count))
	assert.Equal(t, 1, count)

	// A second run must not insert the row again.
	_, err = f.executeRun(t, "run-2")
	require.NoError(t, err)
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM users").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestRun_JSON(t *testing.T) {
	f := newFixture(t)
	f.writeScript(t, "alpha.yaml", alphaDoc)

	out, err := executeRoot(t, "--format", "json", "--config", f.config, "run", "--db", f.db, f.scripts)
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.NotEmpty(t, data["run_id"])
	assert.Equal(t, float64(2), data["scripts_completed"])
	assert.Equal(t, float64(1), data["documents_completed"])
}

func TestRun_JSONFailureCarriesPartialCounts(t *testing.T) {
	f := newFixture(t)
	f.writeScript(t, "alpha.yaml", `id: alpha
created: 2016-06-21
executor: cue
scripts:
  - id: alpha-1
    text: "a: 1"
  - id: alpha-2
    order: 1
    text: "b: string"
`)

	out, err := executeRoot(t, "--format", "json", "--config", f.config, "run", "--db", f.db, f.scripts)
	require.Error(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeScriptFailed, resp.Error.Code)

	details, ok := resp.Error.Details.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "alpha-2", details["script"])
	assert.Equal(t, "EXECUTION", details["kind"])
	run, ok := details["run"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(1), run["scripts_completed"])
	assert.Equal(t, float64(0), run["documents_completed"])
}
