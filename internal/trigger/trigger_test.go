package trigger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sitepipe/internal/ir"
	"github.com/roach88/sitepipe/internal/topology"
)

func testPipeline(t *testing.T) *ir.Pipeline {
	t.Helper()
	p, err := topology.Assemble(topology.Params{
		Name:          "website-dev-pipeline",
		ArtifactStore: "arn:aws:s3:::website-artifacts",
		RoleName:      "website-dev-pipeline-role",
		Owner:         "acme",
		Repo:          "website",
		Branch:        "dev",
		BuildProject:  "website-dev-build",
		ContentStore:  "website-content",
		Function:      "website-dev-invalidate",
	})
	require.NoError(t, err)
	return p
}

func TestNewWebhook(t *testing.T) {
	p := testPipeline(t)

	hook, err := NewWebhook("website-dev-webhook", p, "refs/heads/{branch}", "dev", ir.NewSecret("s3cret"))
	require.NoError(t, err)

	assert.Equal(t, "website-dev-webhook", hook.Name)
	assert.Equal(t, "website-dev-pipeline", hook.TargetPipeline)
	assert.Equal(t, topology.ActionCheckout, hook.TargetAction)
	assert.Equal(t, []ir.Filter{{JSONPath: RefPath, MatchEquals: "refs/heads/dev"}}, hook.Filters)
	assert.Equal(t, AuthenticationHMAC, hook.Authentication)
	assert.Equal(t, []byte("s3cret"), hook.Secret.Reveal())
}

func TestNewWebhookRequiresFilter(t *testing.T) {
	p := testPipeline(t)

	for _, pattern := range []string{"", "   "} {
		_, err := NewWebhook("hook", p, pattern, "dev", ir.NewSecret("s"))
		require.Error(t, err)
		assert.True(t, ir.IsConfigurationError(err))
		assert.Equal(t, ir.ErrMissingFilter, ir.ErrorCode(err))
	}
}

func TestNewWebhookErrors(t *testing.T) {
	p := testPipeline(t)

	_, err := NewWebhook("hook", p, "refs/heads/[", "dev", ir.NewSecret("s"))
	assert.Equal(t, ir.ErrInvalidValue, ir.ErrorCode(err))

	_, err = NewWebhook("hook", p, "refs/heads/{branch}", "dev", ir.Secret{})
	assert.Equal(t, ir.ErrMissingValue, ir.ErrorCode(err))

	_, err = NewWebhook("hook", nil, "refs/heads/{branch}", "dev", ir.NewSecret("s"))
	assert.Equal(t, ir.ErrEntryAction, ir.ErrorCode(err))

	noSource := &ir.Pipeline{Name: "p", Stages: p.Stages[1:]}
	_, err = NewWebhook("hook", noSource, "refs/heads/{branch}", "dev", ir.NewSecret("s"))
	assert.True(t, ir.IsStructuralError(err))
	assert.Equal(t, ir.ErrEntryAction, ir.ErrorCode(err))

	wrongEntry := &ir.Pipeline{Name: "p", Stages: []ir.Stage{{Name: topology.StageSource, Actions: []ir.Action{topology.Invoke("f")}}}}
	_, err = NewWebhook("hook", wrongEntry, "refs/heads/{branch}", "dev", ir.NewSecret("s"))
	assert.Equal(t, ir.ErrEntryAction, ir.ErrorCode(err))
}

func TestMatches(t *testing.T) {
	hook := ir.Trigger{Filters: []ir.Filter{{JSONPath: RefPath, MatchEquals: "refs/heads/dev"}}}
	assert.True(t, Matches(hook, "refs/heads/dev"))
	assert.False(t, Matches(hook, "refs/heads/master"))
	assert.False(t, Matches(hook, "refs/tags/dev"))

	glob := ir.Trigger{Filters: []ir.Filter{{JSONPath: RefPath, MatchEquals: "refs/heads/release-*"}}}
	assert.True(t, Matches(glob, "refs/heads/release-1"))
	assert.False(t, Matches(glob, "refs/heads/release/1"))

	assert.False(t, Matches(ir.Trigger{}, "refs/heads/dev"), "no filters never matches")

	other := ir.Trigger{Filters: []ir.Filter{{JSONPath: "$.repository.name", MatchEquals: "*"}}}
	assert.False(t, Matches(other, "refs/heads/dev"))
}

func TestNewInvokeGrant(t *testing.T) {
	h := ir.Handler{Name: "website-dev-invalidate"}
	src := "arn:aws:codepipeline:us-east-1:123456789012:website-dev-pipeline"

	g, err := NewInvokeGrant(h, "codepipeline.amazonaws.com", src)
	require.NoError(t, err)
	assert.Equal(t, ir.InvokeGrant{
		FunctionName: "website-dev-invalidate",
		Action:       InvokeAction,
		Principal:    "codepipeline.amazonaws.com",
		SourceARN:    src,
	}, g)

	_, err = NewInvokeGrant(ir.Handler{}, "codepipeline.amazonaws.com", src)
	assert.Equal(t, ir.ErrMissingValue, ir.ErrorCode(err))

	_, err = NewInvokeGrant(h, "", src)
	assert.Equal(t, ir.ErrInvalidPrincipal, ir.ErrorCode(err))

	_, err = NewInvokeGrant(h, "codepipeline.amazonaws.com", "arn:aws:codepipeline:*")
	assert.Equal(t, ir.ErrWildcardScope, ir.ErrorCode(err))
}
