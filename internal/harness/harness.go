package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/sitepipe/internal/compiler"
	"github.com/roach88/sitepipe/internal/execution"
	"github.com/roach88/sitepipe/internal/ir"
	"github.com/roach88/sitepipe/internal/stack"
	"github.com/roach88/sitepipe/internal/store"
	"github.com/roach88/sitepipe/internal/testutil"
	"github.com/roach88/sitepipe/internal/trigger"
)

// ExecutionPrefix prefixes the deterministic execution IDs of scenario runs.
const ExecutionPrefix = "exec"

// Harness runs scenarios. Each run gets a fresh in-memory store, a clock
// starting at 1 and execution IDs exec-1, exec-2, and so on.
type Harness struct {
	logger *slog.Logger
}

// Option configures a Harness.
type Option func(*Harness)

// WithLogger routes tracker and synthesis logs to l. Runs are silent by
// default.
func WithLogger(l *slog.Logger) Option {
	return func(h *Harness) { h.logger = l }
}

// New returns a Harness.
func New(opts ...Option) *Harness {
	h := &Harness{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run executes scenario with a default Harness.
func Run(scenario *Scenario) (*Result, error) {
	return New().Run(context.Background(), scenario)
}

// Run executes scenario.
//
// The returned error covers setup only: a stack that does not load or
// synthesize, or a store failure. Reports that misbehave and assertions that
// do not hold are recorded on the Result.
func (h *Harness) Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	def, err := h.synthesize(scenario)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	if _, err := st.WriteDefinition(ctx, def); err != nil {
		return nil, fmt.Errorf("record definition: %w", err)
	}

	tracker := execution.NewTracker(
		execution.WithClock(testutil.NewDeterministicClock()),
		execution.WithIDGenerator(testutil.NewSequentialIDs(ExecutionPrefix)),
		execution.WithSink(st),
		execution.WithLogger(h.logger),
	)
	if err := tracker.Register(def); err != nil {
		return nil, err
	}

	result := NewResult()
	result.Pipeline = def.Pipeline.Name

	if trigger.Matches(def.Webhook, scenario.Push.Ref) {
		id, err := tracker.Start(ctx, def.Webhook.TargetPipeline, def.Webhook.TargetAction, scenario.Push.Commit)
		if err != nil {
			return nil, fmt.Errorf("start execution: %w", err)
		}
		result.ExecutionID = id
		h.applyReports(ctx, tracker, result, scenario.Reports)

		rec, events, err := st.ReadExecution(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("read execution %s: %w", id, err)
		}
		result.State = rec.State
		result.Trace = events
	} else if len(scenario.Reports) > 0 {
		result.AddError(fmt.Sprintf("push to %s did not start %s, but the scenario has reports", scenario.Push.Ref, result.Pipeline))
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

func (h *Harness) synthesize(scenario *Scenario) (*ir.Definition, error) {
	cfg, err := compiler.LoadFile(scenario.Stack)
	if err != nil {
		return nil, fmt.Errorf("load stack %s: %w", scenario.Stack, err)
	}

	secret := scenario.Secret
	if secret == "" {
		secret = DefaultSecret
	}
	lookup := func(string) (string, bool) { return secret, true }
	if err := cfg.ResolveSecret(lookup); err != nil {
		return nil, err
	}

	def, err := stack.Synthesize(cfg, stack.WithLogger(h.logger))
	if err != nil {
		return nil, fmt.Errorf("synthesize %s: %w", scenario.Stack, err)
	}
	return def, nil
}

func (h *Harness) applyReports(ctx context.Context, tracker *execution.Tracker, result *Result, reports []Report) {
	for i, r := range reports {
		_, err := tracker.Report(ctx, result.ExecutionID, r.Action, r.Outcome, r.Detail)
		want := r.expectedCode()

		var ee *ir.ExecutionError
		switch {
		case err == nil && want == "":
		case err == nil:
			result.AddError(fmt.Sprintf("reports[%d] %s: expected %s, got success", i, r.Action, want))
		case !errors.As(err, &ee):
			result.AddError(fmt.Sprintf("reports[%d] %s: %v", i, r.Action, err))
		case ee.Code != want:
			expected := string(want)
			if expected == "" {
				expected = "success"
			}
			result.AddError(fmt.Sprintf("reports[%d] %s: expected %s, got %s (%s)", i, r.Action, expected, ee.Code, ee.Message))
		}
	}
}
