package policy

import (
	"strings"

	"github.com/roach88/sitepipe/internal/ir"
	"github.com/roach88/sitepipe/internal/resource"
)

// defaultPartition applies when Inputs.Partition is empty.
const defaultPartition = "aws"

// Inputs are the references statements may be scoped to. Only the fields a
// given need uses must be set.
type Inputs struct {
	Partition     string
	ArtifactStore resource.Ref
	ContentStore  resource.Ref
	BuildProject  resource.Ref
	Distribution  resource.Ref
	LogNamespace  resource.Ref
}

// ScopeLookup resolves the resource patterns a need is granted on.
type ScopeLookup interface {
	Scope(n Need, in Inputs) ([]string, error)
}

// ScopeFunc adapts a function to ScopeLookup.
type ScopeFunc func(n Need, in Inputs) ([]string, error)

func (f ScopeFunc) Scope(n Need, in Inputs) ([]string, error) { return f(n, in) }

// PlatformScopes is the default lookup.
type PlatformScopes struct{}

// Scope implements ScopeLookup.
func (PlatformScopes) Scope(n Need, in Inputs) ([]string, error) {
	switch n {
	case NeedBuildLogs:
		ns, err := address(in.LogNamespace, resource.KindLogNamespace, "log_namespace")
		if err != nil {
			return nil, err
		}
		if err := resource.Require(in.BuildProject, resource.KindBuildProject, "build_project"); err != nil {
			return nil, err
		}
		group := ns + "/" + in.BuildProject.ID()
		return []string{group, group + ":*"}, nil

	case NeedArtifactReadWrite:
		arn, err := address(in.ArtifactStore, resource.KindArtifactStore, "artifact_store")
		if err != nil {
			return nil, err
		}
		return []string{arn + "/*"}, nil

	case NeedBuildTrigger:
		arn, err := address(in.BuildProject, resource.KindBuildProject, "build_project")
		if err != nil {
			return nil, err
		}
		return []string{arn}, nil

	case NeedContentWrite:
		arn, err := address(in.ContentStore, resource.KindContentStore, "content_store")
		if err != nil {
			return nil, err
		}
		return []string{arn, arn + "/*"}, nil

	case NeedHandlerLogs:
		partition := in.Partition
		if partition == "" {
			partition = defaultPartition
		}
		logs := resource.ARN{Partition: partition, Service: "logs", Region: "*", Account: "*", Resource: "*"}
		return []string{logs.String()}, nil

	case NeedFunctionInvoke, NeedJobResult, NeedCacheInvalidation:
		return []string{"*"}, nil
	}
	return nil, ir.NewPermissionError(ir.ErrUnknownNeed, string(n), "no scope rule for need %q", n)
}

func address(ref resource.Ref, kind resource.Kind, field string) (string, error) {
	if err := resource.Require(ref, kind, field); err != nil {
		return "", err
	}
	return resource.Address(ref, field)
}

// addressable reports whether pattern names something once any trailing
// "/*" or ":*" is removed.
func addressable(pattern string) bool {
	base := strings.TrimSpace(pattern)
	if base != pattern {
		return false
	}
	for _, suffix := range []string{"/*", ":*"} {
		if trimmed, ok := strings.CutSuffix(base, suffix); ok {
			base = trimmed
			break
		}
	}
	return base != ""
}

// wildcard reports whether pattern covers more than one named resource.
// A single trailing "/*" or ":*" addresses the children of one resource
// and is allowed.
func wildcard(pattern string) bool {
	for _, suffix := range []string{"/*", ":*"} {
		if trimmed, ok := strings.CutSuffix(pattern, suffix); ok {
			pattern = trimmed
			break
		}
	}
	return strings.ContainsAny(pattern, "*?")
}
