package execution

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sitepipe/internal/ir"
	"github.com/roach88/sitepipe/internal/stack"
	"github.com/roach88/sitepipe/internal/testutil"
	"github.com/roach88/sitepipe/internal/topology"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func definition(t *testing.T) *ir.Definition {
	t.Helper()
	def, err := stack.Synthesize(testutil.Stack("dev"), stack.WithLogger(quietLogger()))
	require.NoError(t, err)
	return def
}

func started(t *testing.T) *Execution {
	t.Helper()
	e := New("exec-1", definition(t), "abc123", testutil.NewDeterministicClock())
	_, err := e.Start()
	require.NoError(t, err)
	return e
}

func types(events []ir.ExecutionEvent) []string {
	out := make([]string, len(events))
	for i, ev := range events {
		out[i] = ev.Type
	}
	return out
}

func TestStartRunsSourceOnly(t *testing.T) {
	def := definition(t)
	e := New("exec-1", def, "abc123", testutil.NewDeterministicClock())
	assert.Equal(t, ir.StatePending, e.State())

	events, err := e.Start()
	require.NoError(t, err)
	assert.Equal(t, []ir.ExecutionEvent{
		{Seq: 1, ExecutionID: "exec-1", Type: ir.EventExecutionStarted, Detail: "abc123"},
		{Seq: 2, ExecutionID: "exec-1", Type: ir.EventStageStarted, Stage: topology.StageSource},
	}, events)

	assert.Equal(t, ir.StateRunning, e.State())
	for name, want := range map[string]ir.ExecutionState{
		topology.StageSource:       ir.StateRunning,
		topology.StageBuild:        ir.StatePending,
		topology.StageDeploy:       ir.StatePending,
		topology.StageInvalidation: ir.StatePending,
	} {
		got, ok := e.StageState(name)
		require.True(t, ok)
		assert.Equal(t, want, got, name)
	}

	assert.Equal(t, ir.ExecutionRecord{
		ID:               "exec-1",
		Pipeline:         def.Pipeline.Name,
		DefinitionDigest: def.Digest,
		Commit:           "abc123",
		State:            ir.StateRunning,
		StartedSeq:       1,
	}, e.Record())
}

func TestStartTwice(t *testing.T) {
	e := started(t)
	_, err := e.Start()
	assert.Equal(t, ir.ErrCodeStageNotEligible, ir.ExecutionCode(err))
}

func TestHappyPathSucceedsAfterInvalidation(t *testing.T) {
	e := started(t)

	for _, action := range []string{topology.ActionCheckout, topology.ActionBuild, topology.ActionDeploy} {
		events, err := e.Report(action, ir.OutcomeSuccess, "")
		require.NoError(t, err, action)
		assert.Equal(t, []string{ir.EventActionReported, ir.EventStageSucceeded, ir.EventStageStarted}, types(events), action)
		assert.Equal(t, ir.StateRunning, e.State(), action)
	}

	events, err := e.Report(topology.ActionInvalidate, ir.OutcomeSuccess, "invalidation I1")
	require.NoError(t, err)
	assert.Equal(t, []string{ir.EventActionReported, ir.EventStageSucceeded, ir.EventExecutionSucceeded}, types(events))
	assert.Equal(t, "invalidation I1", events[0].Detail)
	assert.Equal(t, ir.StateSucceeded, e.State())

	all := e.Events()
	require.Len(t, all, 14)
	for i, ev := range all {
		assert.Equal(t, int64(i+1), ev.Seq)
		assert.Equal(t, "exec-1", ev.ExecutionID)
	}
}

func TestFailureSkipsDownstream(t *testing.T) {
	e := started(t)
	_, err := e.Report(topology.ActionCheckout, ir.OutcomeSuccess, "")
	require.NoError(t, err)

	events, err := e.Report(topology.ActionBuild, ir.OutcomeFailure, "npm ci exited 1")
	require.Error(t, err)
	assert.Equal(t, ir.ErrCodeActionFailed, ir.ExecutionCode(err))
	assert.Contains(t, err.Error(), "npm ci exited 1")

	assert.Equal(t, []string{
		ir.EventActionReported,
		ir.EventStageFailed,
		ir.EventStageSkipped,
		ir.EventStageSkipped,
		ir.EventExecutionFailed,
	}, types(events))
	assert.Equal(t, ir.OutcomeFailure, events[0].Outcome)
	assert.Equal(t, topology.StageDeploy, events[2].Stage)
	assert.Equal(t, topology.StageInvalidation, events[3].Stage)

	assert.Equal(t, ir.StateFailed, e.State())
	deploy, _ := e.StageState(topology.StageDeploy)
	assert.Equal(t, ir.StateSkipped, deploy)
	source, _ := e.StageState(topology.StageSource)
	assert.Equal(t, ir.StateSucceeded, source)

	for _, ev := range e.Events() {
		if ev.Type == ir.EventStageStarted {
			assert.NotEqual(t, topology.StageDeploy, ev.Stage, "downstream stage never starts")
		}
	}
}

func TestReportAfterTerminal(t *testing.T) {
	e := started(t)
	_, err := e.Report(topology.ActionCheckout, ir.OutcomeFailure, "")
	require.Error(t, err)
	n := len(e.Events())

	events, err := e.Report(topology.ActionBuild, ir.OutcomeSuccess, "")
	assert.Nil(t, events)
	assert.Equal(t, ir.ErrCodeAlreadyTerminal, ir.ExecutionCode(err))
	assert.Len(t, e.Events(), n, "rejected reports emit nothing")
}

func TestReportRejections(t *testing.T) {
	tests := []struct {
		name    string
		action  string
		outcome ir.Outcome
		code    ir.ExecutionErrorCode
	}{
		{"stage not started", topology.ActionDeploy, ir.OutcomeSuccess, ir.ErrCodeStageNotEligible},
		{"unknown action", "Approve", ir.OutcomeSuccess, ir.ErrCodeUnknownAction},
		{"invalid outcome", topology.ActionCheckout, "Maybe", ir.ErrCodeInvalidOutcome},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := started(t)
			events, err := e.Report(tt.action, tt.outcome, "")
			assert.Nil(t, events)
			require.Error(t, err)
			assert.True(t, ir.IsExecutionError(err))
			assert.Equal(t, tt.code, ir.ExecutionCode(err))
			assert.Equal(t, ir.StateRunning, e.State())
			assert.Len(t, e.Events(), 2)
		})
	}
}

func TestReportBeforeStart(t *testing.T) {
	e := New("exec-1", definition(t), "", testutil.NewDeterministicClock())
	_, err := e.Report(topology.ActionCheckout, ir.OutcomeSuccess, "")
	assert.Equal(t, ir.ErrCodeStageNotEligible, ir.ExecutionCode(err))
}

func TestReportSameActionTwice(t *testing.T) {
	e := started(t)
	_, err := e.Report(topology.ActionCheckout, ir.OutcomeSuccess, "")
	require.NoError(t, err)

	_, err = e.Report(topology.ActionCheckout, ir.OutcomeSuccess, "")
	var ee *ir.ExecutionError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, ir.ErrCodeStageNotEligible, ee.Code)
	assert.Equal(t, topology.StageSource, ee.Stage)
}

func TestRunOrderWithinStage(t *testing.T) {
	def := &ir.Definition{Pipeline: ir.Pipeline{
		Name: "multi",
		Stages: []ir.Stage{{
			Name: "Only",
			Actions: []ir.Action{
				{Name: "second", RunOrder: 2},
				{Name: "first", RunOrder: 1},
			},
		}},
	}}
	e := New("exec-1", def, "", testutil.NewDeterministicClock())
	_, err := e.Start()
	require.NoError(t, err)

	_, err = e.Report("second", ir.OutcomeSuccess, "")
	assert.Equal(t, ir.ErrCodeStageNotEligible, ir.ExecutionCode(err))

	_, err = e.Report("first", ir.OutcomeSuccess, "")
	require.NoError(t, err)
	assert.Equal(t, ir.StateRunning, e.State())

	_, err = e.Report("second", ir.OutcomeSuccess, "")
	require.NoError(t, err)
	assert.Equal(t, ir.StateSucceeded, e.State())
}

func TestEmptyPipelineCannotStart(t *testing.T) {
	e := New("exec-1", &ir.Definition{Pipeline: ir.Pipeline{Name: "empty"}}, "", NewClock())
	_, err := e.Start()
	assert.Equal(t, ir.ErrCodeStageNotEligible, ir.ExecutionCode(err))
	assert.Equal(t, ir.StatePending, e.State())
}

func TestForkIsIndependent(t *testing.T) {
	e := started(t)
	draft := &draftClock{last: 2}
	f := e.fork(draft)

	_, err := f.Report(topology.ActionCheckout, ir.OutcomeFailure, "clone failed")
	require.Equal(t, ir.ErrCodeActionFailed, ir.ExecutionCode(err))
	assert.Equal(t, ir.StateFailed, f.State())
	assert.Equal(t, int64(8), draft.Current())

	assert.Equal(t, ir.StateRunning, e.State())
	state, _ := e.StageState(topology.StageSource)
	assert.Equal(t, ir.StateRunning, state)
	assert.Len(t, e.Events(), 2)

	_, err = e.Report(topology.ActionCheckout, ir.OutcomeSuccess, "")
	require.NoError(t, err)
}
