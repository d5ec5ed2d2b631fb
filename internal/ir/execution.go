package ir

// ExecutionState is the state of a pipeline run or one of its stages.
type ExecutionState string

const (
	StatePending   ExecutionState = "Pending"
	StateRunning   ExecutionState = "Running"
	StateSucceeded ExecutionState = "Succeeded"
	StateFailed    ExecutionState = "Failed"
	StateSkipped   ExecutionState = "Skipped" // downstream of a failure
)

// Terminal reports whether no further transition is possible.
func (s ExecutionState) Terminal() bool {
	return s == StateSucceeded || s == StateFailed || s == StateSkipped
}

// Outcome is what an external executor reports for one action.
type Outcome string

const (
	OutcomeSuccess Outcome = "Success"
	OutcomeFailure Outcome = "Failure"
)

// Execution event types.
const (
	EventExecutionStarted   = "execution_started"
	EventStageStarted       = "stage_started"
	EventActionReported     = "action_reported"
	EventStageSucceeded     = "stage_succeeded"
	EventStageFailed        = "stage_failed"
	EventStageSkipped       = "stage_skipped"
	EventExecutionSucceeded = "execution_succeeded"
	EventExecutionFailed    = "execution_failed"
)

// ExecutionEvent records one transition. Seq comes from a logical clock.
type ExecutionEvent struct {
	Seq         int64   `json:"seq"`
	ExecutionID string  `json:"execution_id"`
	Type        string  `json:"type"`
	Stage       string  `json:"stage,omitempty"`
	Action      string  `json:"action,omitempty"`
	Outcome     Outcome `json:"outcome,omitempty"`
	Detail      string  `json:"detail,omitempty"`
}

// ExecutionRecord is the persisted header of one run.
type ExecutionRecord struct {
	ID               string         `json:"id"`
	Pipeline         string         `json:"pipeline"`
	DefinitionDigest string         `json:"definition_digest,omitempty"`
	Commit           string         `json:"commit,omitempty"`
	State            ExecutionState `json:"state"`
	StartedSeq       int64          `json:"started_seq"`
}
