// Package config defines the stack configuration consumed by synthesis.
//
// A Stack is produced by the compiler package from a CUE or YAML file.
// The webhook secret is never part of the file; SecretEnv names the
// environment variable that holds it and ResolveSecret reads it through an
// injected lookup.
package config

import (
	"maps"
	"regexp"
	"slices"
	"strings"

	"github.com/roach88/sitepipe/internal/ir"
	"github.com/roach88/sitepipe/internal/resource"
)

// Default trusted principals, one per executing identity.
const (
	DefaultBuildPrincipal    = "codebuild.amazonaws.com"
	DefaultPipelinePrincipal = "codepipeline.amazonaws.com"
	DefaultHandlerPrincipal  = "lambda.amazonaws.com"
)

// DefaultPartition is used when platform.partition is omitted.
const DefaultPartition = "aws"

// Build compute sizes.
const (
	ComputeSmall   = "BUILD_GENERAL1_SMALL"
	ComputeMedium  = "BUILD_GENERAL1_MEDIUM"
	ComputeLarge   = "BUILD_GENERAL1_LARGE"
	Compute2XLarge = "BUILD_GENERAL1_2XLARGE"
)

var computeTypes = map[string]bool{
	ComputeSmall:   true,
	ComputeMedium:  true,
	ComputeLarge:   true,
	Compute2XLarge: true,
}

// BranchPlaceholder is replaced by the resolved checkout branch in
// BranchFilter.
const BranchPlaceholder = "{branch}"

var (
	namePattern    = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)
	accountPattern = regexp.MustCompile(`^[0-9]{12}$`)
)

// Ref is a resource reference as written in the file.
type Ref struct {
	ID  string `json:"id" yaml:"id"`
	ARN string `json:"arn" yaml:"arn"`
}

// Platform locates the account hosting synthesized resources.
type Platform struct {
	Partition string `json:"partition,omitempty" yaml:"partition"`
	Region    string `json:"region" yaml:"region"`
	Account   string `json:"account" yaml:"account"`
}

// Source identifies the repository whose pushes trigger the pipeline.
type Source struct {
	Owner     string `json:"owner" yaml:"owner"`
	Repo      string `json:"repo" yaml:"repo"`
	SecretEnv string `json:"secret_env" yaml:"secret_env"`
}

// Build configures the external build project.
type Build struct {
	ComputeType string `json:"compute_type" yaml:"compute_type"`
	Image       string `json:"image" yaml:"image"`
}

// Principals are the trusted principals of the three roles.
type Principals struct {
	Build    string `json:"build,omitempty" yaml:"build"`
	Pipeline string `json:"pipeline,omitempty" yaml:"pipeline"`
	Handler  string `json:"handler,omitempty" yaml:"handler"`
}

// Stack is the full input to one synthesis.
type Stack struct {
	StageLabel    string            `json:"stage_label" yaml:"stage_label"`
	Project       string            `json:"project" yaml:"project"`
	Platform      Platform          `json:"platform" yaml:"platform"`
	ArtifactStore Ref               `json:"artifact_store" yaml:"artifact_store"`
	ContentStore  Ref               `json:"content_store" yaml:"content_store"`
	Distribution  Ref               `json:"distribution" yaml:"distribution"`
	Source        Source            `json:"source" yaml:"source"`
	Build         Build             `json:"build" yaml:"build"`
	BranchFilter  string            `json:"branch_filter" yaml:"branch_filter"`
	Branches      map[string]string `json:"branches,omitempty" yaml:"branches"`
	Principals    Principals        `json:"principals" yaml:"principals"`

	// Secret is filled by ResolveSecret.
	Secret ir.Secret `json:"-" yaml:"-"`
}

// ApplyDefaults fills optional fields. It is idempotent.
func (s *Stack) ApplyDefaults() {
	if s.Platform.Partition == "" {
		s.Platform.Partition = DefaultPartition
	}
	if s.Principals.Build == "" {
		s.Principals.Build = DefaultBuildPrincipal
	}
	if s.Principals.Pipeline == "" {
		s.Principals.Pipeline = DefaultPipelinePrincipal
	}
	if s.Principals.Handler == "" {
		s.Principals.Handler = DefaultHandlerPrincipal
	}
}

// ResolveSecret reads the webhook secret named by Source.SecretEnv.
// lookup has the signature of os.LookupEnv.
func (s *Stack) ResolveSecret(lookup func(string) (string, bool)) error {
	name := strings.TrimSpace(s.Source.SecretEnv)
	if name == "" {
		return ir.NewConfigurationError(ir.ErrMissingValue, "source.secret_env", "secret_env is required")
	}
	value, ok := lookup(name)
	if !ok || value == "" {
		return ir.NewConfigurationError(ir.ErrMissingValue, "source.secret_env", "environment variable %s is not set", name)
	}
	s.Secret = ir.NewSecret(value)
	return nil
}

// Validate returns the first configuration violation, or nil.
func (s *Stack) Validate() error {
	if errs := s.Check(); len(errs) > 0 {
		return errs[0]
	}
	return nil
}

// Check returns every configuration violation in field order.
// Defaults are not applied; callers run ApplyDefaults first.
func (s *Stack) Check() []*ir.DefinitionError {
	var errs []*ir.DefinitionError
	add := func(code, field, format string, args ...any) {
		errs = append(errs, ir.NewConfigurationError(code, field, format, args...))
	}

	checkName := func(field, v string) {
		switch {
		case v == "":
			add(ir.ErrMissingValue, field, "%s is required", field)
		case !namePattern.MatchString(v):
			add(ir.ErrInvalidValue, field, "%q must be lowercase letters, digits and hyphens", v)
		}
	}
	checkName("stage_label", s.StageLabel)
	checkName("project", s.Project)

	if s.Platform.Region == "" {
		add(ir.ErrMissingValue, "platform.region", "region is required")
	}
	switch {
	case s.Platform.Account == "":
		add(ir.ErrMissingValue, "platform.account", "account is required")
	case !accountPattern.MatchString(s.Platform.Account):
		add(ir.ErrInvalidValue, "platform.account", "account %q must be 12 digits", s.Platform.Account)
	}

	for _, r := range []struct {
		field string
		kind  resource.Kind
		ref   Ref
	}{
		{"artifact_store", resource.KindArtifactStore, s.ArtifactStore},
		{"content_store", resource.KindContentStore, s.ContentStore},
		{"distribution", resource.KindDistribution, s.Distribution},
	} {
		if err := resource.Require(resource.New(r.kind, r.ref.ID, r.ref.ARN), r.kind, r.field); err != nil {
			errs = append(errs, err.(*ir.DefinitionError))
			continue
		}
		if r.ref.ARN == "" {
			add(ir.ErrMissingValue, r.field+".arn", "arn is required")
		}
	}

	if s.Source.Owner == "" {
		add(ir.ErrMissingValue, "source.owner", "owner is required")
	}
	if s.Source.Repo == "" {
		add(ir.ErrMissingValue, "source.repo", "repo is required")
	}

	switch {
	case s.Build.ComputeType == "":
		add(ir.ErrMissingValue, "build.compute_type", "compute_type is required")
	case !computeTypes[s.Build.ComputeType]:
		add(ir.ErrInvalidValue, "build.compute_type", "unknown compute type %q", s.Build.ComputeType)
	}
	if s.Build.Image == "" {
		add(ir.ErrMissingValue, "build.image", "image is required")
	}

	if strings.TrimSpace(s.BranchFilter) == "" {
		add(ir.ErrMissingFilter, "branch_filter", "a branch filter is required; a webhook without one would start on every push")
	}

	for _, label := range slices.Sorted(maps.Keys(s.Branches)) {
		if strings.TrimSpace(s.Branches[label]) == "" {
			add(ir.ErrUnknownStageLabel, "branches."+label, "stage label %q maps to an empty branch", label)
		}
	}

	for _, p := range []struct{ field, value string }{
		{"principals.build", s.Principals.Build},
		{"principals.pipeline", s.Principals.Pipeline},
		{"principals.handler", s.Principals.Handler},
	} {
		if !ir.ValidPrincipal(p.value) {
			add(ir.ErrInvalidPrincipal, p.field, "principal %q must be a service host name", p.value)
		}
	}

	return errs
}

// PlatformRef returns the platform the stack deploys into.
func (s *Stack) PlatformRef() resource.Platform {
	return resource.Platform{Partition: s.Platform.Partition, Region: s.Platform.Region, Account: s.Platform.Account}
}

// ArtifactStoreRef returns the artifact store as a resource reference.
func (s *Stack) ArtifactStoreRef() resource.Ref {
	return resource.New(resource.KindArtifactStore, s.ArtifactStore.ID, s.ArtifactStore.ARN)
}

// ContentStoreRef returns the content store as a resource reference.
func (s *Stack) ContentStoreRef() resource.Ref {
	return resource.New(resource.KindContentStore, s.ContentStore.ID, s.ContentStore.ARN)
}

// DistributionRef returns the distribution as a resource reference.
func (s *Stack) DistributionRef() resource.Ref {
	return resource.New(resource.KindDistribution, s.Distribution.ID, s.Distribution.ARN)
}
