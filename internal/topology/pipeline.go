package topology

import (
	"maps"
	"strings"

	"github.com/roach88/sitepipe/internal/ir"
)

// Params are the inputs to Assemble.
type Params struct {
	Name          string // pipeline name
	ArtifactStore string // artifact store ARN
	RoleName      string // pipeline executor role
	BuildRoleName string

	Owner  string
	Repo   string
	Branch string

	BuildProject string
	ContentStore string // bucket identifier
	Function     string // invalidation handler
}

// Assemble builds the four-stage pipeline from p.
func Assemble(p Params) (*ir.Pipeline, error) {
	build := Build(p.BuildProject)
	build.RoleName = p.BuildRoleName

	stages := []ir.Stage{
		{Name: StageSource, Actions: []ir.Action{Checkout(p.Owner, p.Repo, p.Branch)}},
		{Name: StageBuild, Actions: []ir.Action{build}},
		{Name: StageDeploy, Actions: []ir.Action{Deploy(p.ContentStore, BuildArtifact)}},
		{Name: StageInvalidation, Actions: []ir.Action{Invoke(p.Function)}},
	}
	return NewPipeline(p.Name, p.ArtifactStore, p.RoleName, stages)
}

// NewPipeline validates stages and returns a pipeline holding its own copy
// of them.
func NewPipeline(name, artifactStore, roleName string, stages []ir.Stage) (*ir.Pipeline, error) {
	switch {
	case strings.TrimSpace(name) == "":
		return nil, ir.NewConfigurationError(ir.ErrMissingValue, "pipeline.name", "pipeline name is required")
	case strings.TrimSpace(artifactStore) == "":
		return nil, ir.NewConfigurationError(ir.ErrMissingValue, "pipeline.artifact_store", "artifact store is required")
	case strings.TrimSpace(roleName) == "":
		return nil, ir.NewConfigurationError(ir.ErrMissingValue, "pipeline.role_name", "pipeline role is required")
	}

	p := &ir.Pipeline{
		Name:          name,
		ArtifactStore: artifactStore,
		RoleName:      roleName,
		Stages:        cloneStages(stages),
	}
	if err := Validate(p); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate returns the first structural violation of p, or nil.
func Validate(p *ir.Pipeline) error {
	if errs := Check(p); len(errs) > 0 {
		return errs[0]
	}
	return nil
}

// feeds names the action kind whose output each kind must consume.
var feeds = map[ir.ActionKind]ir.ActionKind{
	ir.KindBuild:  ir.KindCheckout,
	ir.KindDeploy: ir.KindBuild,
}

// Check returns every structural violation of p in pipeline order.
func Check(p *ir.Pipeline) []*ir.DefinitionError {
	var errs []*ir.DefinitionError
	add := func(code, field, format string, args ...any) {
		errs = append(errs, ir.NewStructuralError(code, field, format, args...))
	}

	names := p.StageNames()
	if len(names) != len(stageOrder) {
		add(ir.ErrStageOrder, "stages", "expected stages %v, got %v", stageOrder, names)
	} else {
		for i, want := range stageOrder {
			if names[i] != want {
				add(ir.ErrStageOrder, "stages", "expected stages %v, got %v", stageOrder, names)
				break
			}
		}
	}

	seen := make(map[string]bool)
	produced := make(map[string]string)      // artifact -> producing action
	latest := make(map[ir.ActionKind]string) // kind -> most recent output
	for _, stage := range p.Stages {
		if len(stage.Actions) == 0 {
			add(ir.ErrEmptyStage, stage.Name, "stage has no actions")
			continue
		}

		lastOrder := 0
		for _, a := range stage.Actions {
			field := stage.Name + "." + a.Name

			if seen[a.Name] {
				add(ir.ErrDuplicateAction, field, "action name %q is used more than once", a.Name)
			}
			seen[a.Name] = true

			if !ir.ValidActionKinds[a.Kind] {
				add(ir.ErrInvalidActionKind, field, "unknown action kind %q", a.Kind)
			} else if want, ok := stageKind[stage.Name]; ok && a.Kind != want {
				add(ir.ErrInvalidActionKind, field, "stage %s cannot hold a %s action", stage.Name, a.Kind)
			}

			if a.RunOrder <= lastOrder {
				add(ir.ErrRunOrder, field, "run order %d must be greater than %d", a.RunOrder, lastOrder)
			} else {
				lastOrder = a.RunOrder
			}

			// Actions are ordered by run order, so everything in produced
			// ran before a.
			if a.InputArtifact != "" {
				if _, ok := produced[a.InputArtifact]; !ok {
					add(ir.ErrUnresolvedArtifact, field, "input artifact %q is not produced by an earlier action", a.InputArtifact)
				} else if from, ok := feeds[a.Kind]; ok && latest[from] != a.InputArtifact {
					add(ir.ErrUnresolvedArtifact, field, "%s input %q must be the %s output %q", a.Kind, a.InputArtifact, from, latest[from])
				}
			} else if from, ok := feeds[a.Kind]; ok {
				add(ir.ErrUnresolvedArtifact, field, "%s action must consume the %s output %q", a.Kind, from, latest[from])
			}
			if a.OutputArtifact != "" {
				if by, ok := produced[a.OutputArtifact]; ok {
					add(ir.ErrDuplicateArtifact, field, "output artifact %q is already produced by %s", a.OutputArtifact, by)
				} else {
					produced[a.OutputArtifact] = a.Name
				}
				latest[a.Kind] = a.OutputArtifact
			}
		}
	}

	return errs
}

func cloneStages(stages []ir.Stage) []ir.Stage {
	out := make([]ir.Stage, len(stages))
	for i, s := range stages {
		actions := make([]ir.Action, len(s.Actions))
		for j, a := range s.Actions {
			a.Configuration = maps.Clone(a.Configuration)
			actions[j] = a
		}
		out[i] = ir.Stage{Name: s.Name, Actions: actions}
	}
	return out
}
