package harness

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/executioner/internal/script"
)

// DefaultExecutor is the executor name used when a scenario lists none.
const DefaultExecutor = "sql"

// Scenario defines an upgrade scenario.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Executors lists the executor names the recording factory can build.
	// Defaults to [sql]. The first entry is the default for scripts that
	// name none.
	Executors []string `yaml:"executors,omitempty"`

	// Documents is the document set, in load order.
	Documents []DocumentDef `yaml:"documents"`

	// Runs are executed in order against one store.
	Runs []RunStep `yaml:"runs"`

	// Assertions validate the final trace and store state.
	Assertions []Assertion `yaml:"assertions"`
}

// DocumentDef is a document in a scenario.
type DocumentDef struct {
	ID       string      `yaml:"id"`
	Name     string      `yaml:"name,omitempty"`
	Created  string      `yaml:"created"`
	Order    int         `yaml:"order,omitempty"`
	Executor string      `yaml:"executor,omitempty"`
	Scripts  []ScriptDef `yaml:"scripts"`
}

// ScriptDef is a script in a scenario.
type ScriptDef struct {
	ID       string `yaml:"id"`
	Created  string `yaml:"created,omitempty"`
	Order    int    `yaml:"order,omitempty"`
	Executor string `yaml:"executor,omitempty"`
	Text     string `yaml:"text,omitempty"`

	// Since is the 1-based run from which the script exists. Zero means
	// from the start. The run it names must restart the engine.
	Since int `yaml:"since,omitempty"`

	// Until is the last 1-based run in which the script exists. Zero means
	// to the end. The run after it must restart the engine. Together with
	// Since, it lets a script move from one document to another.
	Until int `yaml:"until,omitempty"`
}

// RunStep is one call to Engine.Run.
type RunStep struct {
	// All sets ExecuteAllScripts.
	All bool `yaml:"all,omitempty"`

	// Fail lists script IDs whose executor reports failure during this run.
	Fail []string `yaml:"fail,omitempty"`

	// Restart builds a fresh engine over the same store before running.
	Restart bool `yaml:"restart,omitempty"`

	// Expect checks the run's outcome. If nil, no check is performed.
	Expect *RunExpect `yaml:"expect,omitempty"`
}

// RunExpect is the expected outcome of a run.
type RunExpect struct {
	// Error is the expected error kind (configuration, resolution, execution,
	// store), or empty for success.
	Error string `yaml:"error,omitempty"`

	// Documents and Scripts are the expected counts, checked when set.
	Documents *int `yaml:"documents,omitempty"`
	Scripts   *int `yaml:"scripts,omitempty"`
}

// Assertion validates trace or final state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "trace_contains": script has an event, optionally in Run
	// - "trace_order": Scripts were executed in order
	// - "trace_count": script has exactly Count events
	// - "final_state": Document or Script completion equals Complete
	// - "run_count": exactly Count runs were recorded
	Type string `yaml:"type"`

	Script   string   `yaml:"script,omitempty"`
	Document string   `yaml:"document,omitempty"`
	Scripts  []string `yaml:"scripts,omitempty"`

	// Event is the trace event type (executing, executed, failed).
	// Defaults to executed.
	Event string `yaml:"event,omitempty"`

	// Run restricts trace_contains to one run, and makes final_state check
	// the stored run ID.
	Run string `yaml:"run,omitempty"`

	Count    int   `yaml:"count,omitempty"`
	Complete *bool `yaml:"complete,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertFinalState    = "final_state"
	AssertRunCount      = "run_count"
)

var errorKinds = map[string]bool{
	"configuration": true,
	"resolution":    true,
	"execution":     true,
	"store":         true,
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Reject unknown fields (catches typos like "assertion:" vs "assertions:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if len(scenario.Executors) == 0 {
		scenario.Executors = []string{DefaultExecutor}
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if strings.ContainsAny(s.Name, `/\ `) {
		return fmt.Errorf("name %q must not contain slashes or spaces", s.Name)
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Documents) == 0 {
		return fmt.Errorf("documents list is required and must be non-empty")
	}
	if len(s.Runs) == 0 {
		return fmt.Errorf("runs list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	scripts := make(map[string]bool)
	for i, d := range s.Documents {
		if d.ID == "" {
			return fmt.Errorf("documents[%d]: id is required", i)
		}
		if _, err := script.ParseDate(d.Created); err != nil {
			return fmt.Errorf("documents[%d]: created: %w", i, err)
		}
		for j, sc := range d.Scripts {
			if sc.ID == "" {
				return fmt.Errorf("documents[%d].scripts[%d]: id is required", i, j)
			}
			if sc.Created != "" {
				if _, err := script.ParseDate(sc.Created); err != nil {
					return fmt.Errorf("documents[%d].scripts[%d]: created: %w", i, j, err)
				}
			}
			if sc.Since < 0 || sc.Since > len(s.Runs) {
				return fmt.Errorf("documents[%d].scripts[%d]: since must be between 0 and %d", i, j, len(s.Runs))
			}
			if sc.Since > 1 && !s.Runs[sc.Since-1].Restart {
				return fmt.Errorf("documents[%d].scripts[%d]: since %d requires runs[%d] to restart", i, j, sc.Since, sc.Since-1)
			}
			if sc.Until < 0 || sc.Until > len(s.Runs) {
				return fmt.Errorf("documents[%d].scripts[%d]: until must be between 0 and %d", i, j, len(s.Runs))
			}
			if sc.Until > 0 && sc.Until < sc.Since {
				return fmt.Errorf("documents[%d].scripts[%d]: until %d is before since %d", i, j, sc.Until, sc.Since)
			}
			if sc.Until > 0 && sc.Until < len(s.Runs) && !s.Runs[sc.Until].Restart {
				return fmt.Errorf("documents[%d].scripts[%d]: until %d requires runs[%d] to restart", i, j, sc.Until, sc.Until)
			}
			scripts[sc.ID] = true
		}
	}

	for i, r := range s.Runs {
		for _, id := range r.Fail {
			if !scripts[id] {
				return fmt.Errorf("runs[%d]: fail references unknown script %q", i, id)
			}
		}
		if r.Expect != nil && r.Expect.Error != "" && !errorKinds[r.Expect.Error] {
			return fmt.Errorf("runs[%d].expect: unknown error kind %q", i, r.Expect.Error)
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Event {
	case "", EventExecuting, EventExecuted, EventFailed:
	default:
		return fmt.Errorf("assertions[%d]: unknown event %q", index, a.Event)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.Script == "" {
			return fmt.Errorf("assertions[%d]: script is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Scripts) == 0 {
			return fmt.Errorf("assertions[%d]: scripts list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Script == "" {
			return fmt.Errorf("assertions[%d]: script is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertFinalState:
		if (a.Script == "") == (a.Document == "") {
			return fmt.Errorf("assertions[%d]: exactly one of script or document is required for final_state", index)
		}
		if a.Complete == nil {
			return fmt.Errorf("assertions[%d]: complete is required for final_state", index)
		}
	case AssertRunCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for run_count", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}

// documents builds the document set visible to the engine started before
// run number (1-based).
func (s *Scenario) documents(run int) ([]*script.Document, error) {
	docs := make([]*script.Document, 0, len(s.Documents))
	for _, d := range s.Documents {
		created, err := script.ParseDate(d.Created)
		if err != nil {
			return nil, fmt.Errorf("document %s: %w", d.ID, err)
		}
		executor := d.Executor
		if executor == "" {
			executor = s.Executors[0]
		}

		doc := &script.Document{
			ID:      d.ID,
			Name:    d.Name,
			Created: created,
			Order:   d.Order,
		}
		for _, sc := range d.Scripts {
			if sc.Since > run || (sc.Until > 0 && sc.Until < run) {
				continue
			}
			item := &script.Script{
				ID:       sc.ID,
				Created:  created,
				Order:    sc.Order,
				Executor: sc.Executor,
				Text:     sc.Text,
			}
			if sc.Created != "" {
				if item.Created, err = script.ParseDate(sc.Created); err != nil {
					return nil, fmt.Errorf("script %s: %w", sc.ID, err)
				}
			}
			if item.Executor == "" {
				item.Executor = executor
			}
			if item.Text == "" {
				item.Text = sc.ID
			}
			doc.Scripts = append(doc.Scripts, item)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}
