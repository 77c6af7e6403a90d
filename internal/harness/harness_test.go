package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadTestScenario(t *testing.T, name string) *Scenario {
	t.Helper()
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", name+".yaml"))
	require.NoError(t, err)
	return s
}

func parseTestScenario(t *testing.T, yaml string) *Scenario {
	t.Helper()
	s, err := ParseScenario([]byte(yaml))
	require.NoError(t, err)
	return s
}

func TestScenarios_Golden(t *testing.T) {
	names := []string{
		"ordering",
		"resume_after_failure",
		"new_script_reopens_document",
		"unknown_executor",
		"moved_script",
	}
	for _, name := range names {
		t.Run(name, func(t *testing.T) {
			scenario := loadTestScenario(t, name)

			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
			assert.Empty(t, result.Errors)
		})
	}
}

func TestRun_Deterministic(t *testing.T) {
	scenario := loadTestScenario(t, "resume_after_failure")

	first, err := Run(scenario)
	require.NoError(t, err)
	second, err := Run(scenario)
	require.NoError(t, err)

	assert.Equal(t, first.TraceText(), second.TraceText())
	assert.Equal(t, first.Runs, second.Runs)
}

func TestRun_Outcomes(t *testing.T) {
	scenario := loadTestScenario(t, "resume_after_failure")

	result, err := Run(scenario)
	require.NoError(t, err)

	require.Len(t, result.Runs, 2)
	assert.Equal(t, "run-1", result.Runs[0].RunID)
	assert.Equal(t, "execution", result.Runs[0].Error)
	assert.Contains(t, result.Runs[0].Message, "script=a2")
	assert.Equal(t, 1, result.Runs[0].Scripts)

	assert.Equal(t, RunOutcome{RunID: "run-2", Documents: 2, Scripts: 2}, result.Runs[1])
}

func TestRun_RejectedEngineStaysRejected(t *testing.T) {
	scenario := parseTestScenario(t, `
name: rejected
description: every run reports the construction failure
documents:
  - id: a
    created: 2016-06-21
    scripts:
      - id: a1
        executor: python
runs:
  - expect: { error: configuration }
  - expect: { error: configuration }
assertions:
  - type: run_count
    count: 0
`)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	require.Len(t, result.Runs, 2)
	assert.Contains(t, result.Runs[1].Message, "python")
	assert.Equal(t, "001 - rejected configuration\n002 - rejected configuration\n", result.TraceText())
}

func TestRun_ExpectationMismatch(t *testing.T) {
	scenario := parseTestScenario(t, `
name: mismatch
description: expectations that do not hold are reported
documents:
  - id: a
    created: 2016-06-21
    scripts:
      - id: a1
      - id: a2
        order: 1
runs:
  - fail: [a1]
    expect: { documents: 1, scripts: 2 }
assertions:
  - type: trace_count
    script: a2
    event: executing
    count: 0
`)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 3)
	assert.Contains(t, result.Errors[0], "runs[0]: expected success, got execution")
	assert.Contains(t, result.Errors[1], "expected 1 document(s) completed, got 0")
	assert.Contains(t, result.Errors[2], "expected 2 script(s) completed, got 0")
}

func TestRun_AssertionFailuresReported(t *testing.T) {
	scenario := parseTestScenario(t, `
name: wrong_assertions
description: assertions that do not hold are reported
documents:
  - id: a
    created: 2016-06-21
    scripts:
      - id: a1
runs:
  - expect: { documents: 1, scripts: 1 }
assertions:
  - type: trace_count
    script: a1
    count: 2
  - type: final_state
    script: a1
    complete: false
  - type: run_count
    count: 5
`)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 3)
	assert.Contains(t, result.Errors[0], "trace_count")
	assert.Contains(t, result.Errors[1], "script a1 complete=false")
	assert.Contains(t, result.Errors[2], "5 recorded run(s)")
}

func TestRun_FailOnlyAffectsItsRun(t *testing.T) {
	scenario := parseTestScenario(t, `
name: transient_failure
description: a failure injected in one run does not leak into the next
documents:
  - id: a
    created: 2016-06-21
    scripts:
      - id: a1
runs:
  - fail: [a1]
    expect: { error: execution, documents: 0, scripts: 0 }
  - expect: { documents: 1, scripts: 1 }
assertions:
  - type: trace_contains
    script: a1
    run: run-2
  - type: final_state
    document: a
    complete: true
    run: run-2
`)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}
