package stack

import (
	"bufio"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/roach88/sitepipe/internal/ir"
)

// WriteSummary renders def for humans. Digest and ID are omitted.
func WriteSummary(w io.Writer, def *ir.Definition) error {
	bw := bufio.NewWriter(w)
	p := func(indent int, format string, args ...any) {
		fmt.Fprintf(bw, strings.Repeat("  ", indent)+format+"\n", args...)
	}

	pl := def.Pipeline
	p(0, "Pipeline: %s", pl.Name)
	p(1, "stage label: %s", def.StageLabel)
	p(1, "project: %s", def.Project)
	p(1, "artifact store: %s", pl.ArtifactStore)
	p(1, "role: %s", pl.RoleName)
	p(0, "")

	p(0, "Stages:")
	for i, stage := range pl.Stages {
		p(1, "%d. %s", i+1, stage.Name)
		for _, a := range stage.Actions {
			p(2, "%s (%s) run order %d", a.Name, a.Kind, a.RunOrder)
			if a.InputArtifact != "" {
				p(3, "in: %s", a.InputArtifact)
			}
			if a.OutputArtifact != "" {
				p(3, "out: %s", a.OutputArtifact)
			}
			if a.RoleName != "" {
				p(3, "role: %s", a.RoleName)
			}
			for _, k := range sortedKeys(a.Configuration) {
				p(3, "%s=%s", k, a.Configuration[k])
			}
		}
	}
	p(0, "")

	bp := def.BuildProject
	p(0, "Build project: %s", bp.Name)
	p(1, "arn: %s", bp.ARN)
	p(1, "compute: %s", bp.ComputeType)
	p(1, "image: %s", bp.Image)
	p(1, "role: %s", bp.RoleName)
	p(1, "log group: %s", bp.LogGroup)
	p(0, "")

	h := def.Handler
	p(0, "Handler: %s", h.Name)
	p(1, "arn: %s", h.ARN)
	p(1, "role: %s", h.RoleName)
	for _, k := range sortedKeys(h.Environment) {
		p(1, "env: %s=%s", k, h.Environment[k])
	}
	p(0, "")

	p(0, "Roles:")
	for _, r := range def.Roles {
		p(1, "%s (%s)", r.Name, r.Identity)
		p(2, "trusts: %s", r.TrustedPrincipal)
		p(2, "policy: %s", r.Policy.Name)
		for _, st := range r.Policy.Statements {
			p(3, "%s %s: %s", st.Sid, st.Effect, strings.Join(st.Actions, ", "))
			for _, res := range st.Resources {
				p(4, "on %s", res)
			}
		}
	}
	p(0, "")

	wh := def.Webhook
	p(0, "Webhook: %s", wh.Name)
	p(1, "target: %s/%s", wh.TargetPipeline, wh.TargetAction)
	for _, f := range wh.Filters {
		p(1, "filter: %s == %s", f.JSONPath, f.MatchEquals)
	}
	p(1, "authentication: %s", wh.Authentication)
	p(1, "secret: %s", wh.Secret)
	p(0, "")

	g := def.Grant
	p(0, "Invoke grant: %s", g.FunctionName)
	p(1, "%s may %s", g.Principal, g.Action)
	if g.SourceARN != "" {
		p(1, "source: %s", g.SourceARN)
	}

	return bw.Flush()
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
