package policy

import (
	"slices"

	"github.com/roach88/sitepipe/internal/ir"
)

// Synthesizer derives policies from action kinds.
type Synthesizer struct {
	scopes ScopeLookup
}

// NewSynthesizer returns a Synthesizer resolving scopes through lookup.
// A nil lookup means PlatformScopes.
func NewSynthesizer(lookup ScopeLookup) *Synthesizer {
	if lookup == nil {
		lookup = PlatformScopes{}
	}
	return &Synthesizer{scopes: lookup}
}

// Needs returns the distinct needs of identity across kinds, in statement
// order.
func Needs(id Identity, kinds []ir.ActionKind) []Need {
	want := make(map[Need]bool)
	for _, k := range kinds {
		for _, n := range NeedsFor(id, k) {
			want[n] = true
		}
	}
	var needs []Need
	for _, n := range needOrder {
		if want[n] {
			needs = append(needs, n)
		}
	}
	return needs
}

// Synthesize returns the minimal policy for identity running actions of the
// given kinds. It emits one Allow statement per distinct need. The policy
// name is left for the caller.
func (s *Synthesizer) Synthesize(id Identity, kinds []ir.ActionKind, in Inputs) (ir.Policy, error) {
	needs := Needs(id, kinds)
	if len(needs) == 0 {
		return ir.Policy{}, ir.NewPermissionError(ir.ErrEmptyActions, string(id), "identity %s has no permission needs for %v", id, kinds)
	}

	statements := make([]ir.Statement, 0, len(needs))
	for _, n := range needs {
		st, err := s.statement(n, in)
		if err != nil {
			return ir.Policy{}, err
		}
		statements = append(statements, st)
	}
	return ir.Policy{Statements: statements}, nil
}

func (s *Synthesizer) statement(n Need, in Inputs) (ir.Statement, error) {
	if _, ok := needRules[n]; !ok {
		return ir.Statement{}, ir.NewPermissionError(ir.ErrUnknownNeed, string(n), "unknown need %q", n)
	}

	actions := sortedUnique(n.Actions())
	if len(actions) == 0 {
		return ir.Statement{}, ir.NewPermissionError(ir.ErrEmptyActions, n.Sid(), "statement grants no actions")
	}

	resources, err := s.scopes.Scope(n, in)
	if err != nil {
		return ir.Statement{}, err
	}
	resources = sortedUnique(resources)
	if len(resources) == 0 {
		return ir.Statement{}, ir.NewPermissionError(ir.ErrUnaddressable, n.Sid(), "need %s resolved to no resources", n)
	}
	for _, r := range resources {
		if !addressable(r) {
			return ir.Statement{}, ir.NewPermissionError(ir.ErrUnaddressable, n.Sid(), "need %s resolved to unaddressable pattern %q", n, r)
		}
	}
	if !n.PlatformWide() {
		for _, r := range resources {
			if wildcard(r) {
				return ir.Statement{}, ir.NewPermissionError(ir.ErrWildcardScope, n.Sid(), "need %s must be scoped to a named resource, got %q", n, r)
			}
		}
	}

	return ir.Statement{
		Sid:       n.Sid(),
		Effect:    ir.EffectAllow,
		Actions:   actions,
		Resources: resources,
	}, nil
}

func sortedUnique(in []string) []string {
	out := slices.Clone(in)
	slices.Sort(out)
	return slices.Compact(out)
}
