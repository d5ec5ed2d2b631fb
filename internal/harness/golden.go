package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/sitepipe/internal/canonical"
	"github.com/roach88/sitepipe/internal/ir"
)

// TraceSnapshot is the golden form of a scenario run, compared as canonical
// JSON.
type TraceSnapshot struct {
	ScenarioName string              `json:"scenario_name"`
	Pipeline     string              `json:"pipeline"`
	ExecutionID  string              `json:"execution_id,omitempty"`
	State        ir.ExecutionState   `json:"state,omitempty"`
	Trace        []ir.ExecutionEvent `json:"trace"`
}

// Snapshot returns the golden form of result.
func Snapshot(scenarioName string, result *Result) TraceSnapshot {
	trace := result.Trace
	if trace == nil {
		trace = []ir.ExecutionEvent{}
	}
	return TraceSnapshot{
		ScenarioName: scenarioName,
		Pipeline:     result.Pipeline,
		ExecutionID:  result.ExecutionID,
		State:        result.State,
		Trace:        trace,
	}
}

// RunWithGolden runs scenario and compares its trace against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	return result, AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares result against the golden file for scenarioName
// without re-running anything.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := canonical.Encode(Snapshot(scenarioName, result))
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}
