package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/sitepipe/internal/config"
)

// CompileStack parses a CUE value into a config.Stack.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The CUE value should be the stack struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`stack: { stage_label: "dev", ... }`)
//	s, err := CompileStack(v.LookupPath(cue.ParsePath("stack")))
//
// Unknown fields are rejected with their source position. Defaults are not
// applied here.
func CompileStack(v cue.Value) (*config.Stack, error) {
	if !v.Exists() {
		return nil, &CompileError{Field: "stack", Message: "stack is required", Pos: v.Pos()}
	}
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	s := &config.Stack{}
	err := eachField(v, "stack", func(label string, fv cue.Value) error {
		var err error
		switch label {
		case "stage_label":
			s.StageLabel, err = stringValue(fv, label)
		case "project":
			s.Project, err = stringValue(fv, label)
		case "platform":
			err = stringFields(fv, label, map[string]*string{
				"partition": &s.Platform.Partition,
				"region":    &s.Platform.Region,
				"account":   &s.Platform.Account,
			})
		case "artifact_store":
			err = refFields(fv, label, &s.ArtifactStore)
		case "content_store":
			err = refFields(fv, label, &s.ContentStore)
		case "distribution":
			err = refFields(fv, label, &s.Distribution)
		case "source":
			err = stringFields(fv, label, map[string]*string{
				"owner":      &s.Source.Owner,
				"repo":       &s.Source.Repo,
				"secret_env": &s.Source.SecretEnv,
			})
		case "build":
			err = stringFields(fv, label, map[string]*string{
				"compute_type": &s.Build.ComputeType,
				"image":        &s.Build.Image,
			})
		case "branch_filter":
			s.BranchFilter, err = stringValue(fv, label)
		case "branches":
			s.Branches, err = stringMap(fv, label)
		case "principals":
			err = stringFields(fv, label, map[string]*string{
				"build":    &s.Principals.Build,
				"pipeline": &s.Principals.Pipeline,
				"handler":  &s.Principals.Handler,
			})
		case "secret", "webhook_secret":
			return &CompileError{
				Field:   "stack." + label,
				Message: "secrets must not be written in the stack file; set source.secret_env instead",
				Pos:     fv.Pos(),
			}
		default:
			return unknownField(fv, "stack."+label)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// eachField iterates the regular fields of a struct value.
func eachField(v cue.Value, path string, fn func(label string, fv cue.Value) error) error {
	if v.IncompleteKind() != cue.StructKind {
		return &CompileError{Field: path, Message: "must be a struct", Pos: v.Pos()}
	}
	iter, err := v.Fields()
	if err != nil {
		return formatCUEError(err)
	}
	for iter.Next() {
		if err := fn(iter.Label(), iter.Value()); err != nil {
			return err
		}
	}
	return nil
}

// stringValue extracts a concrete string.
func stringValue(v cue.Value, path string) (string, error) {
	if v.IncompleteKind() != cue.StringKind {
		return "", &CompileError{
			Field:   path,
			Message: fmt.Sprintf("must be a string, got %v", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}
	str, err := v.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return str, nil
}

// stringFields decodes a struct whose fields are all strings into targets.
func stringFields(v cue.Value, path string, targets map[string]*string) error {
	return eachField(v, path, func(label string, fv cue.Value) error {
		dst, ok := targets[label]
		if !ok {
			return unknownField(fv, path+"."+label)
		}
		str, err := stringValue(fv, path+"."+label)
		if err != nil {
			return err
		}
		*dst = str
		return nil
	})
}

func refFields(v cue.Value, path string, ref *config.Ref) error {
	return stringFields(v, path, map[string]*string{
		"id":  &ref.ID,
		"arn": &ref.ARN,
	})
}

// stringMap decodes a struct of arbitrary string-valued fields.
func stringMap(v cue.Value, path string) (map[string]string, error) {
	m := make(map[string]string)
	err := eachField(v, path, func(label string, fv cue.Value) error {
		str, err := stringValue(fv, path+"."+label)
		if err != nil {
			return err
		}
		m[label] = str
		return nil
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

func unknownField(v cue.Value, path string) error {
	return &CompileError{Field: path, Message: "unknown field", Pos: v.Pos()}
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
