// Package stack synthesizes a complete pipeline definition from a stack
// configuration in one call.
//
// Synthesis is all-or-nothing: it returns either a fully wired definition or
// the first configuration, structural or permission error it met. The same
// configuration always yields the same definition, digest and ID.
package stack

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/roach88/sitepipe/internal/canonical"
	"github.com/roach88/sitepipe/internal/config"
	"github.com/roach88/sitepipe/internal/ir"
	"github.com/roach88/sitepipe/internal/policy"
	"github.com/roach88/sitepipe/internal/role"
	"github.com/roach88/sitepipe/internal/topology"
	"github.com/roach88/sitepipe/internal/trigger"
)

// DefinitionDomain separates definition digests from other hashes.
const DefinitionDomain = "sitepipe/definition/v1"

// HandlerDistributionEnv is the only environment variable the invalidation
// handler receives.
const HandlerDistributionEnv = "DISTRIBUTION_ID"

// definitionNamespace roots the name-based definition IDs.
var definitionNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/roach88/sitepipe/definition"))

type options struct {
	scopes policy.ScopeLookup
	logger *slog.Logger
}

// Option configures Synthesize.
type Option func(*options)

// WithScopes replaces the scope lookup used for policy statements.
func WithScopes(l policy.ScopeLookup) Option {
	return func(o *options) { o.scopes = l }
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Synthesize builds the definition for cfg. cfg is not modified; defaults
// are applied to a copy. The webhook secret must already be resolved.
func Synthesize(cfg *config.Stack, opts ...Option) (*ir.Definition, error) {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	if cfg == nil {
		return nil, ir.NewConfigurationError(ir.ErrMissingValue, "stack", "stack configuration is required")
	}

	s := *cfg
	s.ApplyDefaults()
	if err := s.Validate(); err != nil {
		return nil, err
	}

	label, project := s.StageLabel, s.Project
	platform := s.PlatformRef()
	buildRef := platform.BuildProject(topology.BuildProjectName(label, project))
	handlerRef := platform.Function(topology.HandlerName(label, project))

	in := policy.Inputs{
		Partition:     platform.Partition,
		ArtifactStore: s.ArtifactStoreRef(),
		ContentStore:  s.ContentStoreRef(),
		BuildProject:  buildRef,
		Distribution:  s.DistributionRef(),
		LogNamespace:  platform.BuildLogNamespace(),
	}
	synth := policy.NewSynthesizer(o.scopes)

	specs := []role.Spec{
		{
			Name:      topology.BuildRoleName(label, project),
			Identity:  policy.IdentityBuild,
			Principal: s.Principals.Build,
			Kinds:     []ir.ActionKind{ir.KindBuild},
		},
		{
			Name:      topology.PipelineRoleName(label, project),
			Identity:  policy.IdentityPipeline,
			Principal: s.Principals.Pipeline,
			Kinds:     []ir.ActionKind{ir.KindCheckout, ir.KindBuild, ir.KindDeploy, ir.KindInvoke},
		},
		{
			Name:      topology.HandlerRoleName(label, project),
			Identity:  policy.IdentityHandler,
			Principal: s.Principals.Handler,
			Kinds:     []ir.ActionKind{ir.KindInvoke},
		},
	}
	roles := make([]ir.Role, 0, len(specs))
	for _, spec := range specs {
		r, err := role.Bind(synth, spec, in)
		if err != nil {
			return nil, err
		}
		roles = append(roles, r)
	}
	buildRole, pipelineRole, handlerRole := roles[0], roles[1], roles[2]

	branch := topology.DefaultBranches().With(s.Branches).Resolve(label)
	pipeline, err := topology.Assemble(topology.Params{
		Name:          topology.PipelineName(label, project),
		ArtifactStore: s.ArtifactStore.ARN,
		RoleName:      pipelineRole.Name,
		BuildRoleName: buildRole.Name,
		Owner:         s.Source.Owner,
		Repo:          s.Source.Repo,
		Branch:        branch,
		BuildProject:  buildRef.ID(),
		ContentStore:  s.ContentStore.ID,
		Function:      handlerRef.ID(),
	})
	if err != nil {
		return nil, err
	}

	buildProject := ir.BuildProject{
		Name:        buildRef.ID(),
		ARN:         buildRef.ARN(),
		ComputeType: s.Build.ComputeType,
		Image:       s.Build.Image,
		RoleName:    buildRole.Name,
		LogGroup:    platform.BuildLogNamespace().ID() + "/" + buildRef.ID(),
	}
	handler := ir.Handler{
		Name:        handlerRef.ID(),
		ARN:         handlerRef.ARN(),
		RoleName:    handlerRole.Name,
		Environment: map[string]string{HandlerDistributionEnv: s.Distribution.ID},
	}

	webhook, err := trigger.NewWebhook(topology.WebhookName(label, project), pipeline, s.BranchFilter, branch, s.Secret)
	if err != nil {
		return nil, err
	}
	grant, err := trigger.NewInvokeGrant(handler, s.Principals.Pipeline, platform.Pipeline(pipeline.Name))
	if err != nil {
		return nil, err
	}

	def := &ir.Definition{
		StageLabel:   label,
		Project:      project,
		Pipeline:     *pipeline,
		BuildProject: buildProject,
		Handler:      handler,
		Roles:        roles,
		Webhook:      webhook,
		Grant:        grant,
	}
	if err := Seal(def); err != nil {
		return nil, err
	}

	o.logger.Debug("definition synthesized",
		"pipeline", pipeline.Name,
		"branch", branch,
		"digest", def.Digest,
		"definition_id", def.ID,
	)
	return def, nil
}

// Seal computes the digest and ID of def over everything except those two
// fields. The webhook secret contributes only its placeholder.
func Seal(def *ir.Definition) error {
	def.ID, def.Digest = "", ""
	digest, err := canonical.DigestOf(DefinitionDomain, def)
	if err != nil {
		return fmt.Errorf("seal definition: %w", err)
	}
	def.Digest = digest
	def.ID = uuid.NewSHA1(definitionNamespace, []byte(digest)).String()
	return nil
}
