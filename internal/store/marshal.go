package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/sitepipe/internal/canonical"
	"github.com/roach88/sitepipe/internal/ir"
)

// marshalDefinition encodes def as canonical JSON TEXT. The secret encodes
// as its redaction placeholder.
func marshalDefinition(def *ir.Definition) (string, error) {
	data, err := canonical.Encode(def)
	if err != nil {
		return "", fmt.Errorf("marshal definition: %w", err)
	}
	return string(data), nil
}

func unmarshalDefinition(body string) (*ir.Definition, error) {
	var def ir.Definition
	if err := json.Unmarshal([]byte(body), &def); err != nil {
		return nil, fmt.Errorf("unmarshal definition: %w", err)
	}
	return &def, nil
}
