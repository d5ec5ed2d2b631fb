// Package trigger wires the two event edges of a pipeline: the source
// webhook that starts it and the invoke grant that lets its last action
// call the invalidation handler.
package trigger

import (
	"path"
	"strings"

	"github.com/roach88/sitepipe/internal/config"
	"github.com/roach88/sitepipe/internal/ir"
	"github.com/roach88/sitepipe/internal/topology"
)

// RefPath is the payload field push filters match against.
const RefPath = "$.ref"

// AuthenticationHMAC means requests carry an HMAC signature of the payload.
const AuthenticationHMAC = "GITHUB_HMAC"

// InvokeAction is the permission an invoke grant allows.
const InvokeAction = "lambda:InvokeFunction"

// NewWebhook binds a push webhook to the checkout action of p.
//
// pattern is a branch-ref match such as "refs/heads/{branch}"; the
// placeholder expands to branch. A pattern is mandatory: a webhook without a
// filter would start the pipeline on every push.
func NewWebhook(name string, p *ir.Pipeline, pattern, branch string, secret ir.Secret) (ir.Trigger, error) {
	if strings.TrimSpace(pattern) == "" {
		return ir.Trigger{}, ir.NewConfigurationError(ir.ErrMissingFilter, "branch_filter", "webhook requires a branch filter")
	}
	match := strings.ReplaceAll(pattern, config.BranchPlaceholder, branch)
	if _, err := path.Match(match, ""); err != nil {
		return ir.Trigger{}, ir.NewConfigurationError(ir.ErrInvalidValue, "branch_filter", "malformed branch filter %q: %v", match, err)
	}
	if secret.IsZero() {
		return ir.Trigger{}, ir.NewConfigurationError(ir.ErrMissingValue, "source.secret_env", "webhook requires a secret")
	}
	if p == nil {
		return ir.Trigger{}, ir.NewStructuralError(ir.ErrEntryAction, name, "webhook has no target pipeline")
	}

	entry, err := EntryAction(p)
	if err != nil {
		return ir.Trigger{}, err
	}

	return ir.Trigger{
		Name:           name,
		TargetPipeline: p.Name,
		TargetAction:   entry,
		Filters:        []ir.Filter{{JSONPath: RefPath, MatchEquals: match}},
		Authentication: AuthenticationHMAC,
		Secret:         secret,
	}, nil
}

// EntryAction returns the name of the action a webhook starts: the checkout
// action of the Source stage.
func EntryAction(p *ir.Pipeline) (string, error) {
	stage, ok := p.Stage(topology.StageSource)
	if !ok || len(stage.Actions) == 0 {
		return "", ir.NewStructuralError(ir.ErrEntryAction, p.Name, "pipeline has no %s stage to start", topology.StageSource)
	}
	first := stage.Actions[0]
	if first.Kind != ir.KindCheckout {
		return "", ir.NewStructuralError(ir.ErrEntryAction, p.Name, "entry action %q is a %s action, not %s", first.Name, first.Kind, ir.KindCheckout)
	}
	return first.Name, nil
}

// Matches reports whether a push to ref satisfies every filter of t.
// A trigger without filters matches nothing.
func Matches(t ir.Trigger, ref string) bool {
	if len(t.Filters) == 0 {
		return false
	}
	for _, f := range t.Filters {
		if f.JSONPath != RefPath {
			return false
		}
		ok, err := path.Match(f.MatchEquals, ref)
		if err != nil || !ok {
			return false
		}
	}
	return true
}

// NewInvokeGrant allows principal to invoke handler, optionally only on
// behalf of sourceARN. The grant lives on the function, not on any role.
func NewInvokeGrant(handler ir.Handler, principal, sourceARN string) (ir.InvokeGrant, error) {
	if handler.Name == "" {
		return ir.InvokeGrant{}, ir.NewConfigurationError(ir.ErrMissingValue, "handler", "invoke grant needs a handler")
	}
	if !ir.ValidPrincipal(principal) {
		return ir.InvokeGrant{}, ir.NewConfigurationError(ir.ErrInvalidPrincipal, "grant.principal", "principal %q is not a service host name", principal)
	}
	if strings.ContainsAny(sourceARN, "*? ") {
		return ir.InvokeGrant{}, ir.NewPermissionError(ir.ErrWildcardScope, "grant.source_arn", "source ARN %q must name one resource", sourceARN)
	}
	return ir.InvokeGrant{
		FunctionName: handler.Name,
		Action:       InvokeAction,
		Principal:    principal,
		SourceARN:    sourceARN,
	}, nil
}
