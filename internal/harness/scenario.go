package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/roach88/sitepipe/internal/ir"
)

// DefaultSecret signs scenario webhooks when a scenario sets none.
const DefaultSecret = "scenario-secret"

// Scenario is one end-to-end pipeline run.
type Scenario struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`

	// Stack is the stack file path. LoadScenario resolves it relative to the
	// scenario file.
	Stack string `yaml:"stack"`

	// Secret replaces the environment lookup for source.secret_env.
	Secret string `yaml:"secret,omitempty"`

	Push       Push        `yaml:"push"`
	Reports    []Report    `yaml:"reports,omitempty"`
	Assertions []Assertion `yaml:"assertions"`
}

// Push is the webhook delivery that may start the pipeline.
type Push struct {
	Ref    string `yaml:"ref"`
	Commit string `yaml:"commit,omitempty"`
}

// Report is one executor outcome.
type Report struct {
	Action  string     `yaml:"action"`
	Outcome ir.Outcome `yaml:"outcome"`
	Detail  string     `yaml:"detail,omitempty"`

	// ExpectError is the execution error code the report should produce.
	ExpectError ir.ExecutionErrorCode `yaml:"expect_error,omitempty"`
}

// expectedCode is the error code the tracker should return for r.
func (r Report) expectedCode() ir.ExecutionErrorCode {
	if r.ExpectError != "" {
		return r.ExpectError
	}
	if r.Outcome == ir.OutcomeFailure {
		return ir.ErrCodeActionFailed
	}
	return ""
}

// Assertion checks the result of a run.
type Assertion struct {
	Type string `yaml:"type"`

	// State is the expected execution (final_state) or stage (stage_state) state.
	State ir.ExecutionState `yaml:"state,omitempty"`

	// Stage names the stage for stage_state and stage_not_started.
	Stage string `yaml:"stage,omitempty"`

	// Event is an event selector for event_count: "type" or "type:Stage".
	Event string `yaml:"event,omitempty"`

	// Events are event selectors that must appear in this order (event_order).
	Events []string `yaml:"events,omitempty"`

	Count int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertFinalState      = "final_state"
	AssertStageState      = "stage_state"
	AssertStageNotStarted = "stage_not_started"
	AssertEventOrder      = "event_order"
	AssertEventCount      = "event_count"
	AssertIgnored         = "ignored"
)

// LoadScenario reads and validates a scenario file. Unknown fields are
// errors.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var s Scenario
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to parse scenario YAML: %w", err)
	}

	if s.Stack != "" && !filepath.IsAbs(s.Stack) {
		s.Stack = filepath.Join(filepath.Dir(path), s.Stack)
	}

	if err := validateScenario(&s); err != nil {
		return nil, fmt.Errorf("invalid scenario %s: %w", path, err)
	}
	return &s, nil
}

// LoadScenarios loads every .yaml and .yml file directly under dir, in name
// order.
func LoadScenarios(dir string) ([]*Scenario, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario directory: %w", err)
	}

	var paths []string
	for _, e := range entries {
		ext := filepath.Ext(e.Name())
		if !e.IsDir() && (ext == ".yaml" || ext == ".yml") {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	slices.Sort(paths)

	scenarios := make([]*Scenario, 0, len(paths))
	for _, p := range paths {
		s, err := LoadScenario(p)
		if err != nil {
			return nil, err
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Stack == "" {
		return fmt.Errorf("stack is required")
	}
	if _, err := os.Stat(s.Stack); os.IsNotExist(err) {
		return fmt.Errorf("stack file not found: %s", s.Stack)
	}
	if s.Push.Ref == "" {
		return fmt.Errorf("push.ref is required")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, r := range s.Reports {
		if r.Action == "" {
			return fmt.Errorf("reports[%d]: action is required", i)
		}
		if r.Outcome == "" {
			return fmt.Errorf("reports[%d]: outcome is required", i)
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, a); err != nil {
			return err
		}
	}
	return nil
}

func validateAssertion(index int, a Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertFinalState:
		if a.State == "" {
			return fmt.Errorf("assertions[%d]: state is required for final_state", index)
		}
	case AssertStageState:
		if a.Stage == "" || a.State == "" {
			return fmt.Errorf("assertions[%d]: stage and state are required for stage_state", index)
		}
	case AssertStageNotStarted:
		if a.Stage == "" {
			return fmt.Errorf("assertions[%d]: stage is required for stage_not_started", index)
		}
	case AssertEventOrder:
		if len(a.Events) == 0 {
			return fmt.Errorf("assertions[%d]: events list is required for event_order", index)
		}
	case AssertEventCount:
		if a.Event == "" {
			return fmt.Errorf("assertions[%d]: event is required for event_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for event_count", index)
		}
	case AssertIgnored:
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
