package execution

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/sitepipe/internal/ir"
)

// EventSink persists execution records and their events. store.Store
// implements it.
type EventSink interface {
	WriteExecution(ctx context.Context, rec ir.ExecutionRecord) error
	AppendEvents(ctx context.Context, events []ir.ExecutionEvent) error
	UpdateExecutionState(ctx context.Context, id string, state ir.ExecutionState) error
}

// Tracker owns every live execution. It implements trigger.Starter.
//
// All state changes happen under one mutex, so events from concurrent
// reports are stamped and persisted in a single total order. A change is
// applied to a draft of the run and becomes visible only once its events are
// stored; a failed write leaves the run and the clock where they were.
type Tracker struct {
	mu     sync.Mutex
	defs   map[string]*ir.Definition // by pipeline name
	runs   map[string]*Execution
	clock  Clock
	ids    IDGenerator
	sink   EventSink
	logger *slog.Logger
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock sets the event clock. The default starts at 1.
func WithClock(c Clock) Option {
	return func(t *Tracker) { t.clock = c }
}

// WithIDGenerator sets the execution ID source. The default issues UUIDv7s.
func WithIDGenerator(g IDGenerator) Option {
	return func(t *Tracker) { t.ids = g }
}

// WithSink persists executions through s. Without one the tracker is
// memory-only.
func WithSink(s EventSink) Option {
	return func(t *Tracker) { t.sink = s }
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(t *Tracker) { t.logger = l }
}

// NewTracker returns an empty tracker.
func NewTracker(opts ...Option) *Tracker {
	t := &Tracker{
		defs:   make(map[string]*ir.Definition),
		runs:   make(map[string]*Execution),
		clock:  NewClock(),
		ids:    UUIDv7Generator{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Register makes def's pipeline startable. A later definition for the same
// pipeline replaces it for new executions only.
func (t *Tracker) Register(def *ir.Definition) error {
	if def == nil || def.Pipeline.Name == "" {
		return errors.New("register: definition with a pipeline name is required")
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.defs[def.Pipeline.Name] = def
	return nil
}

// Start begins a run of pipeline. entryAction must be the first action of
// the first stage.
func (t *Tracker) Start(ctx context.Context, pipeline, entryAction, commit string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	def, ok := t.defs[pipeline]
	if !ok {
		return "", &ir.ExecutionError{
			Code:    ir.ErrCodeUnknownPipeline,
			Action:  entryAction,
			Message: fmt.Sprintf("no definition registered for pipeline %s", pipeline),
		}
	}
	if first := entryOf(def.Pipeline); first != entryAction {
		return "", &ir.ExecutionError{
			Code:    ir.ErrCodeStageNotEligible,
			Action:  entryAction,
			Message: fmt.Sprintf("pipeline %s starts at %s", pipeline, first),
		}
	}

	draft := &draftClock{last: t.clock.Current()}
	exec := New(t.ids.Generate(), def, commit, draft)
	events, err := exec.Start()
	if err != nil {
		return "", err
	}
	if t.sink != nil {
		if err := t.sink.WriteExecution(ctx, exec.Record()); err != nil {
			return "", fmt.Errorf("persist execution %s: %w", exec.ID(), err)
		}
		if err := t.sink.AppendEvents(ctx, events); err != nil {
			return "", fmt.Errorf("persist events for %s: %w", exec.ID(), err)
		}
	}
	t.commit(exec, draft)
	t.runs[exec.ID()] = exec

	t.logger.Info("execution started",
		"execution_id", exec.ID(),
		"pipeline", pipeline,
		"commit", commit,
	)
	return exec.ID(), nil
}

// Report applies an executor's outcome to execution id and returns the
// resulting record. A Failure outcome returns the Failed record together
// with an ACTION_FAILED error.
func (t *Tracker) Report(ctx context.Context, id, action string, outcome ir.Outcome, detail string) (ir.ExecutionRecord, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	exec, ok := t.runs[id]
	if !ok {
		return ir.ExecutionRecord{}, &ir.ExecutionError{
			Code:        ir.ErrCodeUnknownExecution,
			ExecutionID: id,
			Action:      action,
			Message:     "execution not found",
		}
	}

	draft := &draftClock{last: t.clock.Current()}
	next := exec.fork(draft)
	events, runErr := next.Report(action, outcome, detail)
	if len(events) > 0 && t.sink != nil {
		if err := t.sink.AppendEvents(ctx, events); err != nil {
			return exec.Record(), fmt.Errorf("persist events for %s: %w", id, err)
		}
		if next.State() != exec.State() {
			if err := t.sink.UpdateExecutionState(ctx, id, next.State()); err != nil {
				return exec.Record(), fmt.Errorf("persist state for %s: %w", id, err)
			}
		}
	}
	if len(events) > 0 {
		t.commit(next, draft)
		t.runs[id] = next
		exec = next
	}

	if runErr != nil {
		t.logger.Warn("action report",
			"execution_id", id,
			"action", action,
			"outcome", outcome,
			"state", exec.State(),
			"error", runErr,
		)
	} else {
		t.logger.Info("action report",
			"execution_id", id,
			"action", action,
			"outcome", outcome,
			"state", exec.State(),
		)
	}
	return exec.Record(), runErr
}

// Snapshot returns the record and events of execution id.
func (t *Tracker) Snapshot(id string) (ir.ExecutionRecord, []ir.ExecutionEvent, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	exec, ok := t.runs[id]
	if !ok {
		return ir.ExecutionRecord{}, nil, false
	}
	return exec.Record(), exec.Events(), true
}

// commit hands exec back to the shared clock and advances that clock past
// every sequence number the draft issued.
func (t *Tracker) commit(exec *Execution, draft *draftClock) {
	exec.clock = t.clock
	for t.clock.Current() < draft.last {
		t.clock.Next()
	}
}

func entryOf(p ir.Pipeline) string {
	if len(p.Stages) == 0 || len(p.Stages[0].Actions) == 0 {
		return ""
	}
	return p.Stages[0].Actions[0].Name
}
