// Package execution drives the stage state machine of a synthesized pipeline
// from outcomes reported by external executors.
//
// Nothing here builds or deploys anything. Executors do the work and report
// each action's outcome; an Execution only decides which action may report
// next and what the run's state becomes. Stages run strictly in order, a
// stage starts only after the previous one succeeded, and the first failure
// ends the run with every later stage Skipped.
//
// An Execution is not safe for concurrent use. Tracker serializes access.
package execution

import (
	"fmt"
	"slices"

	"github.com/roach88/sitepipe/internal/ir"
)

type actionRun struct {
	name     string
	runOrder int
	reported bool
}

type stageRun struct {
	name    string
	state   ir.ExecutionState
	actions []*actionRun
}

// Execution is one run of a pipeline.
type Execution struct {
	id         string
	pipeline   string
	digest     string
	commit     string
	state      ir.ExecutionState
	startedSeq int64
	stages     []*stageRun
	events     []ir.ExecutionEvent
	clock      Clock
}

// New returns a Pending execution of def's pipeline. Stage and action order
// are copied from the definition; later changes to def do not affect it.
func New(id string, def *ir.Definition, commit string, clock Clock) *Execution {
	e := &Execution{
		id:       id,
		pipeline: def.Pipeline.Name,
		digest:   def.Digest,
		commit:   commit,
		state:    ir.StatePending,
		clock:    clock,
	}
	for _, s := range def.Pipeline.Stages {
		sr := &stageRun{name: s.Name, state: ir.StatePending}
		for _, a := range s.Actions {
			sr.actions = append(sr.actions, &actionRun{name: a.Name, runOrder: a.RunOrder})
		}
		slices.SortStableFunc(sr.actions, func(a, b *actionRun) int { return a.runOrder - b.runOrder })
		e.stages = append(e.stages, sr)
	}
	return e
}

// ID returns the execution ID.
func (e *Execution) ID() string { return e.id }

// State returns the run state.
func (e *Execution) State() ir.ExecutionState { return e.state }

// StageState returns the state of the named stage.
func (e *Execution) StageState(name string) (ir.ExecutionState, bool) {
	for _, s := range e.stages {
		if s.name == name {
			return s.state, true
		}
	}
	return "", false
}

// Events returns a copy of every event emitted so far, in sequence order.
func (e *Execution) Events() []ir.ExecutionEvent {
	return slices.Clone(e.events)
}

// Record returns the persisted header of the run.
func (e *Execution) Record() ir.ExecutionRecord {
	return ir.ExecutionRecord{
		ID:               e.id,
		Pipeline:         e.pipeline,
		DefinitionDigest: e.digest,
		Commit:           e.commit,
		State:            e.state,
		StartedSeq:       e.startedSeq,
	}
}

// fork returns an independent copy of e that stamps events from clock.
func (e *Execution) fork(clock Clock) *Execution {
	c := *e
	c.clock = clock
	c.events = slices.Clone(e.events)
	c.stages = make([]*stageRun, len(e.stages))
	for i, s := range e.stages {
		sr := &stageRun{name: s.name, state: s.state, actions: make([]*actionRun, len(s.actions))}
		for j, a := range s.actions {
			ar := *a
			sr.actions[j] = &ar
		}
		c.stages[i] = sr
	}
	return &c
}

// Start moves the run to Running and starts the first stage.
func (e *Execution) Start() ([]ir.ExecutionEvent, error) {
	if e.state.Terminal() {
		return nil, e.errorf(ir.ErrCodeAlreadyTerminal, "", "", "execution is %s", e.state)
	}
	if e.state != ir.StatePending {
		return nil, e.errorf(ir.ErrCodeStageNotEligible, "", "", "execution already started")
	}
	if len(e.stages) == 0 {
		return nil, e.errorf(ir.ErrCodeStageNotEligible, "", "", "pipeline %s has no stages", e.pipeline)
	}

	mark := len(e.events)
	e.state = ir.StateRunning
	e.startedSeq = e.emit(ir.EventExecutionStarted, "", "", "", e.commit)
	e.startStage(0)
	return slices.Clone(e.events[mark:]), nil
}

// Report records outcome for action and advances the run.
//
// The returned events are the transitions the report caused. A Failure
// outcome is applied (stage Failed, later stages Skipped, run Failed) and
// then returned as an ACTION_FAILED error together with those events.
func (e *Execution) Report(action string, outcome ir.Outcome, detail string) ([]ir.ExecutionEvent, error) {
	if e.state.Terminal() {
		return nil, e.errorf(ir.ErrCodeAlreadyTerminal, "", action, "execution is %s", e.state)
	}
	if e.state != ir.StateRunning {
		return nil, e.errorf(ir.ErrCodeStageNotEligible, "", action, "execution has not started")
	}
	if outcome != ir.OutcomeSuccess && outcome != ir.OutcomeFailure {
		return nil, e.errorf(ir.ErrCodeInvalidOutcome, "", action, "outcome %q is not %s or %s", outcome, ir.OutcomeSuccess, ir.OutcomeFailure)
	}

	idx, ar := e.find(action)
	if ar == nil {
		return nil, e.errorf(ir.ErrCodeUnknownAction, "", action, "pipeline %s has no action %s", e.pipeline, action)
	}
	stage := e.stages[idx]
	if stage.state != ir.StateRunning {
		return nil, e.errorf(ir.ErrCodeStageNotEligible, stage.name, action, "stage %s is %s", stage.name, stage.state)
	}
	if ar.reported {
		return nil, e.errorf(ir.ErrCodeStageNotEligible, stage.name, action, "action already reported")
	}
	for _, other := range stage.actions {
		if other.runOrder < ar.runOrder && !other.reported {
			return nil, e.errorf(ir.ErrCodeStageNotEligible, stage.name, action, "waiting on %s", other.name)
		}
	}

	mark := len(e.events)
	ar.reported = true
	e.emit(ir.EventActionReported, stage.name, action, outcome, detail)

	if outcome == ir.OutcomeFailure {
		e.fail(idx, detail)
		msg := "action reported failure"
		if detail != "" {
			msg += ": " + detail
		}
		return slices.Clone(e.events[mark:]), e.errorf(ir.ErrCodeActionFailed, stage.name, action, "%s", msg)
	}

	if stage.complete() {
		stage.state = ir.StateSucceeded
		e.emit(ir.EventStageSucceeded, stage.name, "", "", "")
		if idx+1 < len(e.stages) {
			e.startStage(idx + 1)
		} else {
			e.state = ir.StateSucceeded
			e.emit(ir.EventExecutionSucceeded, "", "", "", "")
		}
	}
	return slices.Clone(e.events[mark:]), nil
}

func (e *Execution) startStage(idx int) {
	e.stages[idx].state = ir.StateRunning
	e.emit(ir.EventStageStarted, e.stages[idx].name, "", "", "")
}

func (e *Execution) fail(idx int, detail string) {
	e.stages[idx].state = ir.StateFailed
	e.emit(ir.EventStageFailed, e.stages[idx].name, "", "", "")
	for _, s := range e.stages[idx+1:] {
		s.state = ir.StateSkipped
		e.emit(ir.EventStageSkipped, s.name, "", "", "")
	}
	e.state = ir.StateFailed
	e.emit(ir.EventExecutionFailed, "", "", "", detail)
}

func (e *Execution) find(action string) (int, *actionRun) {
	for i, s := range e.stages {
		for _, a := range s.actions {
			if a.name == action {
				return i, a
			}
		}
	}
	return -1, nil
}

func (s *stageRun) complete() bool {
	for _, a := range s.actions {
		if !a.reported {
			return false
		}
	}
	return true
}

func (e *Execution) emit(typ, stage, action string, outcome ir.Outcome, detail string) int64 {
	seq := e.clock.Next()
	e.events = append(e.events, ir.ExecutionEvent{
		Seq:         seq,
		ExecutionID: e.id,
		Type:        typ,
		Stage:       stage,
		Action:      action,
		Outcome:     outcome,
		Detail:      detail,
	})
	return seq
}

func (e *Execution) errorf(code ir.ExecutionErrorCode, stage, action, format string, args ...any) *ir.ExecutionError {
	return &ir.ExecutionError{
		Code:        code,
		ExecutionID: e.id,
		Stage:       stage,
		Action:      action,
		Message:     fmt.Sprintf(format, args...),
	}
}
