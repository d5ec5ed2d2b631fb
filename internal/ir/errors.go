package ir

import (
	"errors"
	"fmt"
)

// ErrorClass groups construction-time failures.
type ErrorClass string

const (
	// ClassConfiguration: a required reference or value is missing or invalid.
	ClassConfiguration ErrorClass = "configuration"

	// ClassStructural: the stage/action graph is inconsistent.
	ClassStructural ErrorClass = "structural"

	// ClassPermission: a required statement cannot be addressed.
	ClassPermission ErrorClass = "permission"
)

// Configuration error codes (E201-E299)
const (
	ErrMissingValue      = "E201" // required value or reference absent
	ErrInvalidValue      = "E202" // value present but malformed
	ErrKindMismatch      = "E203" // resource reference of the wrong kind
	ErrMissingFilter     = "E204" // webhook branch filter absent
	ErrInvalidPrincipal  = "E205" // trusted principal malformed
	ErrUnknownStageLabel = "E206" // stage label resolves to no branch
)

// Structural validation error codes (E301-E399)
const (
	ErrUnresolvedArtifact = "E301" // input artifact not produced earlier
	ErrRunOrder           = "E302" // run order not unique and increasing
	ErrStageOrder         = "E303" // stages missing, extra or reordered
	ErrDuplicateAction    = "E304" // action name used twice
	ErrEmptyStage         = "E305" // stage without actions
	ErrEntryAction        = "E306" // trigger target is not the checkout action
	ErrDuplicateArtifact  = "E307" // output artifact produced twice
	ErrInvalidActionKind  = "E308" // action kind unknown or misplaced
)

// Permission synthesis error codes (E401-E499)
const (
	ErrUnaddressable = "E401" // resource has no ARN/pattern
	ErrEmptyActions  = "E402" // statement would grant nothing
	ErrWildcardScope = "E403" // wildcard for a resource-scoped need
	ErrUnknownNeed   = "E404" // need has no scope rule
)

// DefinitionError is a construction failure. Synthesis stops at the first
// one and returns no definition.
type DefinitionError struct {
	Class   ErrorClass `json:"class"`
	Code    string     `json:"code"`
	Field   string     `json:"field"`
	Message string     `json:"message"`
}

// Error implements the error interface.
func (e *DefinitionError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("[%s] %s: %s: %s", e.Code, e.Class, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Class, e.Message)
}

// NewConfigurationError creates a configuration-class error.
func NewConfigurationError(code, field, format string, args ...any) *DefinitionError {
	return &DefinitionError{Class: ClassConfiguration, Code: code, Field: field, Message: fmt.Sprintf(format, args...)}
}

// NewStructuralError creates a structural-class error.
func NewStructuralError(code, field, format string, args ...any) *DefinitionError {
	return &DefinitionError{Class: ClassStructural, Code: code, Field: field, Message: fmt.Sprintf(format, args...)}
}

// NewPermissionError creates a permission-class error.
func NewPermissionError(code, field, format string, args ...any) *DefinitionError {
	return &DefinitionError{Class: ClassPermission, Code: code, Field: field, Message: fmt.Sprintf(format, args...)}
}

func isClass(err error, class ErrorClass) bool {
	var de *DefinitionError
	if errors.As(err, &de) {
		return de.Class == class
	}
	return false
}

// IsConfigurationError reports whether err is a configuration error.
// Uses errors.As to handle wrapped errors.
func IsConfigurationError(err error) bool { return isClass(err, ClassConfiguration) }

// IsStructuralError reports whether err is a structural validation error.
func IsStructuralError(err error) bool { return isClass(err, ClassStructural) }

// IsPermissionError reports whether err is a permission synthesis error.
func IsPermissionError(err error) bool { return isClass(err, ClassPermission) }

// ErrorCode extracts the code from a DefinitionError, or "" for other errors.
func ErrorCode(err error) string {
	var de *DefinitionError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// ExecutionErrorCode categorizes failures while a pipeline runs.
type ExecutionErrorCode string

const (
	// ErrCodeStageNotEligible: the action's stage has not started yet.
	ErrCodeStageNotEligible ExecutionErrorCode = "STAGE_NOT_ELIGIBLE"

	// ErrCodeUnknownAction: the reported action is not in the pipeline.
	ErrCodeUnknownAction ExecutionErrorCode = "UNKNOWN_ACTION"

	// ErrCodeAlreadyTerminal: the execution already succeeded or failed.
	ErrCodeAlreadyTerminal ExecutionErrorCode = "ALREADY_TERMINAL"

	// ErrCodeActionFailed: an executor reported failure.
	ErrCodeActionFailed ExecutionErrorCode = "ACTION_FAILED"

	// ErrCodeInvalidOutcome: the outcome is neither Success nor Failure.
	ErrCodeInvalidOutcome ExecutionErrorCode = "INVALID_OUTCOME"

	// ErrCodeUnknownExecution: no execution with that ID is tracked.
	ErrCodeUnknownExecution ExecutionErrorCode = "UNKNOWN_EXECUTION"

	// ErrCodeUnknownPipeline: no definition is registered for the pipeline.
	ErrCodeUnknownPipeline ExecutionErrorCode = "UNKNOWN_PIPELINE"
)

// ExecutionError is raised while a pipeline runs. It never affects the
// definition itself.
type ExecutionError struct {
	Code        ExecutionErrorCode
	ExecutionID string
	Stage       string
	Action      string
	Message     string
}

// Error implements the error interface.
func (e *ExecutionError) Error() string {
	if e.Action != "" {
		return fmt.Sprintf("%s: %s (execution=%s, action=%s)", e.Code, e.Message, e.ExecutionID, e.Action)
	}
	return fmt.Sprintf("%s: %s (execution=%s)", e.Code, e.Message, e.ExecutionID)
}

// IsExecutionError reports whether err is an ExecutionError.
func IsExecutionError(err error) bool {
	var ee *ExecutionError
	return errors.As(err, &ee)
}

// ExecutionCode extracts the code from an ExecutionError, or "" for other errors.
func ExecutionCode(err error) ExecutionErrorCode {
	var ee *ExecutionError
	if errors.As(err, &ee) {
		return ee.Code
	}
	return ""
}
