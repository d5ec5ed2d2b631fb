package compiler

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"

	"github.com/roach88/sitepipe/internal/config"
)

// LoadFile reads a stack configuration from a .cue, .yaml or .yml file.
// Defaults are applied; the secret is not resolved.
func LoadFile(path string) (*config.Stack, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read stack file: %w", err)
	}

	var s *config.Stack
	switch ext := filepath.Ext(path); ext {
	case ".cue":
		s, err = CompileCUE(data, path)
	case ".yaml", ".yml":
		s, err = DecodeYAML(data, path)
	default:
		return nil, &CompileError{Field: "file", Message: fmt.Sprintf("unsupported stack file extension %q (want .cue, .yaml or .yml)", ext)}
	}
	if err != nil {
		return nil, err
	}
	s.ApplyDefaults()
	return s, nil
}

// CompileCUE compiles CUE source and extracts its top-level stack field.
func CompileCUE(src []byte, filename string) (*config.Stack, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	return CompileStack(v.LookupPath(cue.ParsePath("stack")))
}

type yamlDocument struct {
	Stack *config.Stack `yaml:"stack"`
}

// DecodeYAML decodes a YAML document with a top-level stack key.
// Unknown fields are errors.
func DecodeYAML(src []byte, filename string) (*config.Stack, error) {
	dec := yaml.NewDecoder(bytes.NewReader(src))
	dec.KnownFields(true)

	var doc yamlDocument
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &CompileError{Field: "stack", Message: fmt.Sprintf("%s: stack is required", filename)}
		}
		return nil, &CompileError{Field: "yaml", Message: fmt.Sprintf("%s: %v", filename, err)}
	}
	if doc.Stack == nil {
		return nil, &CompileError{Field: "stack", Message: fmt.Sprintf("%s: stack is required", filename)}
	}
	return doc.Stack, nil
}
