// Package resource models references to pre-existing platform resources.
//
// The synthesizer never creates buckets or distributions. It receives them
// as Refs: an identifier, an ARN-like address and a kind. Tests pass Static
// refs with made-up addresses; nothing here talks to a live platform.
package resource

import (
	"strings"

	"github.com/roach88/sitepipe/internal/ir"
)

// Kind is the category of a referenced resource.
type Kind string

const (
	KindArtifactStore Kind = "artifact-store"
	KindContentStore  Kind = "content-store"
	KindDistribution  Kind = "distribution"
	KindBuildProject  Kind = "build-project"
	KindFunction      Kind = "function"
	KindLogNamespace  Kind = "log-namespace"
)

// Ref is an opaque handle to a resource owned by the caller.
type Ref interface {
	ID() string
	ARN() string
	Kind() Kind
}

// Static is an immutable Ref value.
type Static struct {
	id   string
	arn  string
	kind Kind
}

// New returns a Static ref.
func New(kind Kind, id, arn string) Static {
	return Static{id: id, arn: arn, kind: kind}
}

func (s Static) ID() string  { return s.id }
func (s Static) ARN() string { return s.arn }
func (s Static) Kind() Kind  { return s.kind }

// Require checks that ref is set, of kind want, and carries a concrete
// identifier. A missing ref is a configuration error; callers must not
// continue with a zero value.
func Require(ref Ref, want Kind, field string) error {
	if ref == nil {
		return ir.NewConfigurationError(ir.ErrMissingValue, field, "%s reference is required", want)
	}
	if ref.Kind() != want {
		return ir.NewConfigurationError(ir.ErrKindMismatch, field, "expected %s reference, got %s", want, ref.Kind())
	}
	if strings.TrimSpace(ref.ID()) == "" {
		return ir.NewConfigurationError(ir.ErrMissingValue, field, "%s reference has no identifier", want)
	}
	if strings.ContainsAny(ref.ARN(), " \t\n*?") {
		return ir.NewConfigurationError(ir.ErrInvalidValue, field, "%s ARN %q must be a concrete address", want, ref.ARN())
	}
	return nil
}

// Address returns the ARN of ref, failing when the ref cannot be addressed
// by a permission statement.
func Address(ref Ref, field string) (string, error) {
	if ref == nil {
		return "", ir.NewConfigurationError(ir.ErrMissingValue, field, "reference is required")
	}
	arn := ref.ARN()
	switch {
	case strings.TrimSpace(arn) == "":
		return "", ir.NewPermissionError(ir.ErrUnaddressable, field, "%s %q has no ARN", ref.Kind(), ref.ID())
	case strings.ContainsAny(arn, " \t\n*?"):
		return "", ir.NewPermissionError(ir.ErrUnaddressable, field, "%s ARN %q must be a concrete address", ref.Kind(), arn)
	}
	return arn, nil
}
