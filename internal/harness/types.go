package harness

import "github.com/roach88/sitepipe/internal/ir"

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every report behaved as expected and every
	// assertion held.
	Pass bool `json:"pass"`

	Pipeline string `json:"pipeline"`

	// ExecutionID is empty when the push did not match the webhook filter.
	ExecutionID string `json:"execution_id,omitempty"`

	State ir.ExecutionState `json:"state,omitempty"`

	// Trace is the persisted event log of the execution, in seq order.
	Trace []ir.ExecutionEvent `json:"trace"`

	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a passing result with an empty trace.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []ir.ExecutionEvent{},
		Errors: []string{},
	}
}

// AddError records a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Started reports whether the push started an execution.
func (r *Result) Started() bool {
	return r.ExecutionID != ""
}
