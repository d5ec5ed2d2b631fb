package ir

// ActionKind identifies what an action does.
type ActionKind string

const (
	KindCheckout ActionKind = "Checkout"
	KindBuild    ActionKind = "Build"
	KindDeploy   ActionKind = "Deploy"
	KindInvoke   ActionKind = "Invoke"
)

// ValidActionKinds defines allowed action kinds.
var ValidActionKinds = map[ActionKind]bool{
	KindCheckout: true,
	KindBuild:    true,
	KindDeploy:   true,
	KindInvoke:   true,
}

// Action is one step within a stage. It describes the step; it does not run it.
type Action struct {
	Name           string            `json:"name"`
	Kind           ActionKind        `json:"kind"`
	InputArtifact  string            `json:"input_artifact,omitempty"`
	OutputArtifact string            `json:"output_artifact,omitempty"`
	RunOrder       int               `json:"run_order"`
	RoleName       string            `json:"role_name,omitempty"`
	Configuration  map[string]string `json:"configuration,omitempty"` // provider-specific settings
}

// Stage is an ordered group of actions.
type Stage struct {
	Name    string   `json:"name"`
	Actions []Action `json:"actions"`
}

// Pipeline is the assembled stage graph. Immutable once constructed.
type Pipeline struct {
	Name          string  `json:"name"`
	ArtifactStore string  `json:"artifact_store"` // ARN of the artifact bucket
	RoleName      string  `json:"role_name"`
	Stages        []Stage `json:"stages"`
}

// Stage returns the stage with the given name.
func (p *Pipeline) Stage(name string) (Stage, bool) {
	for _, s := range p.Stages {
		if s.Name == name {
			return s, true
		}
	}
	return Stage{}, false
}

// Action returns the action with the given name and the stage holding it.
func (p *Pipeline) Action(name string) (Action, string, bool) {
	for _, s := range p.Stages {
		for _, a := range s.Actions {
			if a.Name == name {
				return a, s.Name, true
			}
		}
	}
	return Action{}, "", false
}

// StageNames returns stage names in pipeline order.
func (p *Pipeline) StageNames() []string {
	names := make([]string, len(p.Stages))
	for i, s := range p.Stages {
		names[i] = s.Name
	}
	return names
}

// EffectAllow is the only effect the synthesizer emits.
const EffectAllow = "Allow"

// Statement is one permission grant.
type Statement struct {
	Sid       string   `json:"sid"`
	Effect    string   `json:"effect"`
	Actions   []string `json:"actions"`
	Resources []string `json:"resources"`
}

// Policy is a named set of statements. Statements are evaluated
// independently, so their order carries no meaning beyond determinism.
type Policy struct {
	Name       string      `json:"name"`
	Statements []Statement `json:"statements"`
}

// Role is an execution identity: who may assume it and what it may do.
type Role struct {
	Name             string `json:"name"`
	Identity         string `json:"identity"`
	TrustedPrincipal string `json:"trusted_principal"`
	Policy           Policy `json:"policy"`
}

// BuildProject is the external build executor the Build action delegates to.
type BuildProject struct {
	Name        string `json:"name"`
	ARN         string `json:"arn"`
	ComputeType string `json:"compute_type"`
	Image       string `json:"image"`
	RoleName    string `json:"role_name"`
	LogGroup    string `json:"log_group"`
}

// Handler is the invalidation function invoked by the final action.
type Handler struct {
	Name        string            `json:"name"`
	ARN         string            `json:"arn"`
	RoleName    string            `json:"role_name"`
	Environment map[string]string `json:"environment"`
}

// Filter matches a field of the incoming webhook payload.
type Filter struct {
	JSONPath    string `json:"json_path"`
	MatchEquals string `json:"match_equals"`
}

// Trigger binds an external webhook to the pipeline entry action.
type Trigger struct {
	Name           string   `json:"name"`
	TargetPipeline string   `json:"target_pipeline"`
	TargetAction   string   `json:"target_action"`
	Filters        []Filter `json:"filters"`
	Authentication string   `json:"authentication"`
	Secret         Secret   `json:"secret"`
}

// InvokeGrant is a resource-level permission on the handler function,
// separate from any identity policy.
type InvokeGrant struct {
	FunctionName string `json:"function_name"`
	Action       string `json:"action"`
	Principal    string `json:"principal"`
	SourceARN    string `json:"source_arn,omitempty"`
}

// Definition is everything one synthesis run produces.
type Definition struct {
	ID           string       `json:"id,omitempty"`     // UUIDv5 of the digest
	Digest       string       `json:"digest,omitempty"` // canonical content hash
	StageLabel   string       `json:"stage_label"`
	Project      string       `json:"project"`
	Pipeline     Pipeline     `json:"pipeline"`
	BuildProject BuildProject `json:"build_project"`
	Handler      Handler      `json:"handler"`
	Roles        []Role       `json:"roles"`
	Webhook      Trigger      `json:"webhook"`
	Grant        InvokeGrant  `json:"grant"`
}

// Role returns the role bound to the given identity.
func (d *Definition) Role(identity string) (Role, bool) {
	for _, r := range d.Roles {
		if r.Identity == identity {
			return r, true
		}
	}
	return Role{}, false
}
