// Package role binds execution identities to their synthesized policies.
package role

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/sitepipe/internal/ir"
	"github.com/roach88/sitepipe/internal/policy"
)

// Spec describes one role to bind.
type Spec struct {
	Name      string
	Identity  policy.Identity
	Principal string
	Kinds     []ir.ActionKind // action kinds the identity executes
}

// Bind synthesizes the policy for spec and returns the role carrying it.
// Either a complete role is returned or an error; the policy is never
// attached separately.
func Bind(s *policy.Synthesizer, spec Spec, in policy.Inputs) (ir.Role, error) {
	if spec.Name == "" {
		return ir.Role{}, ir.NewConfigurationError(ir.ErrMissingValue, "role", "role name is required for identity %s", spec.Identity)
	}
	if !ir.ValidPrincipal(spec.Principal) {
		return ir.Role{}, ir.NewConfigurationError(ir.ErrInvalidPrincipal, spec.Name, "trusted principal %q is not a service host name", spec.Principal)
	}

	p, err := s.Synthesize(spec.Identity, spec.Kinds, in)
	if err != nil {
		return ir.Role{}, fmt.Errorf("bind role %s: %w", spec.Name, err)
	}
	p.Name = PolicyName(spec.Name)

	return ir.Role{
		Name:             spec.Name,
		Identity:         string(spec.Identity),
		TrustedPrincipal: spec.Principal,
		Policy:           clonePolicy(p),
	}, nil
}

// PolicyName is the name of the inline policy attached to role.
func PolicyName(role string) string {
	return role + "-policy"
}

// Touches reports whether any statement of r is scoped to arn or to a
// child of it.
func Touches(r ir.Role, arn string) bool {
	for _, st := range r.Policy.Statements {
		for _, res := range st.Resources {
			if res == arn || strings.HasPrefix(res, arn+"/") || strings.HasPrefix(res, arn+":") {
				return true
			}
		}
	}
	return false
}

// GrantsService reports whether r is allowed any action of service, e.g. "logs".
func GrantsService(r ir.Role, service string) bool {
	for _, st := range r.Policy.Statements {
		for _, a := range st.Actions {
			if strings.HasPrefix(a, service+":") {
				return true
			}
		}
	}
	return false
}

func clonePolicy(p ir.Policy) ir.Policy {
	out := ir.Policy{Name: p.Name, Statements: make([]ir.Statement, len(p.Statements))}
	for i, st := range p.Statements {
		out.Statements[i] = ir.Statement{
			Sid:       st.Sid,
			Effect:    st.Effect,
			Actions:   slices.Clone(st.Actions),
			Resources: slices.Clone(st.Resources),
		}
	}
	return out
}
