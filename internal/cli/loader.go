package cli

import (
	"errors"
	"fmt"
	"os"

	"cuelang.org/go/cue/token"

	"github.com/roach88/sitepipe/internal/compiler"
	"github.com/roach88/sitepipe/internal/config"
	"github.com/roach88/sitepipe/internal/ir"
)

// Error code constants shared by all commands. Stack configuration and
// synthesis problems keep their own E2xx-E4xx codes.
const (
	ErrCodeGeneric      = "E001" // Generic/unknown error
	ErrCodeNotFound     = "E002" // Path not found
	ErrCodeCompile      = "E003" // Stack file did not compile or decode
	ErrCodeWriteFailed  = "E004" // File write error
	ErrCodeDatabase     = "E005" // Database open/read/write error
	ErrCodeServe        = "E006" // HTTP listener error
	ErrCodeScenarioLoad = "E007" // Scenario file could not be loaded
)

// LoadError represents a failure to turn a stack file into configuration.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
	Err     error
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *LoadError) Unwrap() error { return e.Err }

// LoadStack reads path into a Stack with defaults applied. The secret is
// not resolved; see ResolveStack.
func LoadStack(path string) (*config.Stack, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("stack file not found: %s", path), Err: err}
		}
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing stack file: %v", err), Err: err}
	}

	s, err := compiler.LoadFile(path)
	if err != nil {
		return nil, convertCompileError(err)
	}
	return s, nil
}

// ResolveStack loads path and resolves its webhook secret from the process
// environment.
func ResolveStack(path string) (*config.Stack, error) {
	s, err := LoadStack(path)
	if err != nil {
		return nil, err
	}
	if err := s.ResolveSecret(os.LookupEnv); err != nil {
		return nil, err
	}
	return s, nil
}

// convertCompileError keeps the CUE position when there is one.
func convertCompileError(err error) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    ErrCodeCompile,
			Message: fmt.Sprintf("%s: %s", compileErr.Field, compileErr.Message),
			Pos:     compileErr.Pos,
			Err:     err,
		}
	}
	return &LoadError{Code: ErrCodeGeneric, Message: err.Error(), Err: err}
}

// reportLoadFailure writes err and maps it to an exit code: definition
// errors are validation failures (1), everything else a command error (2).
func reportLoadFailure(f *OutputFormatter, err error) error {
	var de *ir.DefinitionError
	if errors.As(err, &de) {
		return f.fail(ExitFailure, de.Code, de.Error(), nil)
	}
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return f.fail(ExitCommandError, loadErr.Code, loadErr.Error(), nil)
	}
	return f.fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
}
