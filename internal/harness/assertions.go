package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/sitepipe/internal/ir"
)

// AssertionError describes one assertion that did not hold.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Trace    []ir.ExecutionEvent
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for _, ev := range e.Trace {
		fmt.Fprintf(&buf, "  [%d] %s\n", ev.Seq, selectorOf(ev))
	}
	return buf.String()
}

// EvaluateAssertions checks every assertion against result and returns a
// message per failure.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var failures []string
	for i, a := range assertions {
		if err := evaluate(result, a); err != nil {
			failures = append(failures, fmt.Sprintf("assertion %d: %v", i, err))
		}
	}
	return failures
}

func evaluate(result *Result, a Assertion) error {
	switch a.Type {
	case AssertFinalState:
		return assertFinalState(result, a)
	case AssertStageState:
		return assertStageState(result.Trace, a)
	case AssertStageNotStarted:
		return assertStageNotStarted(result.Trace, a)
	case AssertEventOrder:
		return assertEventOrder(result.Trace, a)
	case AssertEventCount:
		return assertEventCount(result.Trace, a)
	case AssertIgnored:
		return assertIgnored(result)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

func assertFinalState(result *Result, a Assertion) error {
	if result.State == a.State {
		return nil
	}
	actual := string(result.State)
	if !result.Started() {
		actual = "no execution"
	}
	return &AssertionError{
		Type:     AssertFinalState,
		Expected: string(a.State),
		Actual:   actual,
		Trace:    result.Trace,
	}
}

func assertStageState(trace []ir.ExecutionEvent, a Assertion) error {
	got := stageState(trace, a.Stage)
	if got == a.State {
		return nil
	}
	return &AssertionError{
		Type:     AssertStageState,
		Expected: fmt.Sprintf("stage %s %s", a.Stage, a.State),
		Actual:   fmt.Sprintf("stage %s %s", a.Stage, got),
		Trace:    trace,
	}
}

// assertStageNotStarted holds when no action of the stage was reported and
// the stage never ran. A Skipped stage passes.
func assertStageNotStarted(trace []ir.ExecutionEvent, a Assertion) error {
	for _, ev := range trace {
		if ev.Stage != a.Stage {
			continue
		}
		if ev.Type == ir.EventStageStarted || ev.Type == ir.EventActionReported {
			return &AssertionError{
				Type:     AssertStageNotStarted,
				Expected: fmt.Sprintf("stage %s never started", a.Stage),
				Actual:   fmt.Sprintf("%s at seq %d", selectorOf(ev), ev.Seq),
				Trace:    trace,
			}
		}
	}
	return nil
}

// assertEventOrder checks that the selectors match events in the given
// order. Other events may appear in between.
func assertEventOrder(trace []ir.ExecutionEvent, a Assertion) error {
	next := 0
	for _, ev := range trace {
		if next < len(a.Events) && matches(ev, a.Events[next]) {
			next++
		}
	}
	if next == len(a.Events) {
		return nil
	}

	actual := make([]string, len(trace))
	for i, ev := range trace {
		actual[i] = selectorOf(ev)
	}
	return &AssertionError{
		Type:     AssertEventOrder,
		Expected: strings.Join(a.Events, " -> "),
		Actual:   fmt.Sprintf("missing %s after %d matched: %s", a.Events[next], next, strings.Join(actual, ", ")),
		Trace:    trace,
	}
}

func assertEventCount(trace []ir.ExecutionEvent, a Assertion) error {
	n := 0
	for _, ev := range trace {
		if matches(ev, a.Event) {
			n++
		}
	}
	if n == a.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertEventCount,
		Expected: fmt.Sprintf("%d %s", a.Count, a.Event),
		Actual:   fmt.Sprintf("%d %s", n, a.Event),
		Trace:    trace,
	}
}

func assertIgnored(result *Result) error {
	if !result.Started() {
		return nil
	}
	return &AssertionError{
		Type:     AssertIgnored,
		Expected: "push ignored",
		Actual:   "started " + result.ExecutionID,
		Trace:    result.Trace,
	}
}

// stageState replays the stage events of trace. A stage with no events is
// Pending.
func stageState(trace []ir.ExecutionEvent, stage string) ir.ExecutionState {
	state := ir.StatePending
	for _, ev := range trace {
		if ev.Stage != stage {
			continue
		}
		switch ev.Type {
		case ir.EventStageStarted:
			state = ir.StateRunning
		case ir.EventStageSucceeded:
			state = ir.StateSucceeded
		case ir.EventStageFailed:
			state = ir.StateFailed
		case ir.EventStageSkipped:
			state = ir.StateSkipped
		}
	}
	return state
}

// matches reports whether ev satisfies selector "type" or "type:Name". Name
// is the action for action_reported and the stage otherwise.
func matches(ev ir.ExecutionEvent, selector string) bool {
	typ, name, scoped := strings.Cut(selector, ":")
	if ev.Type != typ {
		return false
	}
	if !scoped {
		return true
	}
	if ev.Type == ir.EventActionReported {
		return ev.Action == name
	}
	return ev.Stage == name
}

func selectorOf(ev ir.ExecutionEvent) string {
	switch {
	case ev.Type == ir.EventActionReported:
		return fmt.Sprintf("%s:%s(%s)", ev.Type, ev.Action, ev.Outcome)
	case ev.Stage != "":
		return ev.Type + ":" + ev.Stage
	default:
		return ev.Type
	}
}
