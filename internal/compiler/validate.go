package compiler

import (
	"fmt"

	"github.com/roach88/sitepipe/internal/config"
	"github.com/roach88/sitepipe/internal/ir"
)

// ValidationError is one reportable problem in a stack file.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Class   string `json:"class,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// FromDefinitionError converts a synthesis error for reporting.
func FromDefinitionError(err *ir.DefinitionError) ValidationError {
	return ValidationError{
		Field:   err.Field,
		Message: err.Message,
		Code:    err.Code,
		Class:   string(err.Class),
	}
}

// Validate checks a compiled stack against configuration rules.
// Returns all errors found (does not fail-fast).
func Validate(s *config.Stack) []ValidationError {
	var errs []ValidationError
	for _, e := range s.Check() {
		errs = append(errs, FromDefinitionError(e))
	}
	return errs
}
