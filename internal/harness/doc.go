// Package harness runs pipeline scenarios end to end without any cloud.
//
// A scenario names a stack file, a push to deliver, and the outcomes an
// executor reports for each action. The harness synthesizes the definition,
// matches the push against the webhook filter, drives the execution tracker
// against an in-memory store, and evaluates assertions over the persisted
// event trace. Clock and execution IDs are deterministic, so traces can be
// compared against golden files.
//
// Scenario file format (YAML):
//
//	name: dev_build_fails
//	stack: ../stacks/dev.cue        # relative to the scenario file
//	secret: scenario-secret         # optional; stands in for the env variable
//	push: {ref: refs/heads/dev, commit: abc123}
//	reports:
//	  - {action: Checkout, outcome: Success}
//	  - {action: Build, outcome: Failure, detail: "npm ci exited 1"}
//	assertions:
//	  - {type: final_state, state: Failed}
//	  - {type: stage_state, stage: Deploy, state: Skipped}
//	  - {type: stage_not_started, stage: Deploy}
//	  - {type: event_order, events: [stage_failed:Build, execution_failed]}
//	  - {type: event_count, event: stage_skipped, count: 2}
//
// A report whose outcome is Failure expects ACTION_FAILED unless it sets
// expect_error. Reports that should be rejected set expect_error to the
// execution error code, e.g. STAGE_NOT_ELIGIBLE.
package harness
