package compiler

import (
	"os"
	"path/filepath"
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sitepipe/internal/config"
	"github.com/roach88/sitepipe/internal/ir"
)

func TestCompileStackBasic(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		stack: {
			stage_label: "dev"
			project:     "website"
			platform: { region: "us-east-1", account: "123456789012" }
			artifact_store: { id: "a", arn: "arn:aws:s3:::a" }
			branches: { staging: "staging", qa: "release/qa" }
			principals: { build: "builds.example.com" }
		}
	`)
	require.NoError(t, v.Err())

	s, err := CompileStack(v.LookupPath(cue.ParsePath("stack")))
	require.NoError(t, err)

	assert.Equal(t, "dev", s.StageLabel)
	assert.Equal(t, "website", s.Project)
	assert.Equal(t, "us-east-1", s.Platform.Region)
	assert.Equal(t, "arn:aws:s3:::a", s.ArtifactStore.ARN)
	assert.Equal(t, map[string]string{"staging": "staging", "qa": "release/qa"}, s.Branches)
	assert.Equal(t, "builds.example.com", s.Principals.Build)
	assert.Empty(t, s.Principals.Pipeline, "defaults are not applied by CompileStack")
}

func TestCompileStackMissing(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`other: {}`)

	_, err := CompileStack(v.LookupPath(cue.ParsePath("stack")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stack is required")
}

func TestCompileStackTypeErrors(t *testing.T) {
	tests := []struct {
		name      string
		src       string
		wantField string
	}{
		{"int label", `stack: { stage_label: 3 }`, "stage_label"},
		{"struct expected", `stack: { platform: "us-east-1" }`, "platform"},
		{"unknown nested", `stack: { build: { size: "small" } }`, "build.size"},
		{"non-string branch", `stack: { branches: { dev: true } }`, "branches.dev"},
		{"not a struct", `stack: "dev"`, "stack"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := cuecontext.New()
			v := ctx.CompileString(tt.src)
			require.NoError(t, v.Err())

			_, err := CompileStack(v.LookupPath(cue.ParsePath("stack")))
			require.Error(t, err)

			var compileErr *CompileError
			require.ErrorAs(t, err, &compileErr)
			assert.Equal(t, tt.wantField, compileErr.Field)
		})
	}
}

func TestCompileCUEPositions(t *testing.T) {
	src, err := os.ReadFile(filepath.Join("testdata", "unknown_field.cue"))
	require.NoError(t, err)

	_, err = CompileCUE(src, "unknown_field.cue")
	require.Error(t, err)

	var compileErr *CompileError
	require.ErrorAs(t, err, &compileErr)
	assert.Equal(t, "stack.projetc", compileErr.Field)
	require.True(t, compileErr.Pos.IsValid())
	assert.Equal(t, 3, compileErr.Pos.Line())
	assert.Contains(t, err.Error(), "unknown_field.cue:3:")
}

func TestCompileCUESyntaxError(t *testing.T) {
	_, err := CompileCUE([]byte("stack: {\n\tproject: \n"), "broken.cue")
	require.Error(t, err)

	var compileErr *CompileError
	require.ErrorAs(t, err, &compileErr)
	assert.Equal(t, "cue", compileErr.Field)
	assert.True(t, compileErr.Pos.IsValid())
}

func TestCompileCUERejectsInlineSecret(t *testing.T) {
	_, err := LoadFile(filepath.Join("testdata", "secret_inline.cue"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "secret_env")
	assert.NotContains(t, err.Error(), "hunter2")
}

func TestLoadFileCUE(t *testing.T) {
	s, err := LoadFile(filepath.Join("testdata", "dev.cue"))
	require.NoError(t, err)

	assert.Equal(t, "dev", s.StageLabel)
	assert.Equal(t, "E2EXAMPLE", s.Distribution.ID)
	assert.Equal(t, "SITEPIPE_WEBHOOK_SECRET", s.Source.SecretEnv)
	assert.Equal(t, "refs/heads/{branch}", s.BranchFilter)
	assert.Equal(t, config.DefaultPartition, s.Platform.Partition)
	assert.Equal(t, config.DefaultPipelinePrincipal, s.Principals.Pipeline)
	assert.True(t, s.Secret.IsZero())

	assert.Empty(t, Validate(s))
}

func TestLoadFileYAML(t *testing.T) {
	s, err := LoadFile(filepath.Join("testdata", "prod.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "prod", s.StageLabel)
	assert.Equal(t, "210987654321", s.Platform.Account)
	assert.Equal(t, config.ComputeMedium, s.Build.ComputeType)
	assert.Equal(t, map[string]string{"staging": "staging"}, s.Branches)
	assert.Equal(t, "pipelines.example.com", s.Principals.Pipeline)
	assert.Equal(t, config.DefaultBuildPrincipal, s.Principals.Build)

	assert.Empty(t, Validate(s))
}

func TestLoadFileYAMLUnknownField(t *testing.T) {
	_, err := LoadFile(filepath.Join("testdata", "unknown_field.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "projetc")
}

func TestLoadFileErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadFile(filepath.Join(dir, "missing.cue"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)

	txt := filepath.Join(dir, "stack.txt")
	require.NoError(t, os.WriteFile(txt, []byte("stack: {}"), 0o644))
	_, err = LoadFile(txt)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported stack file extension")

	empty := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(empty, []byte("other: 1\n"), 0o644))
	_, err = LoadFile(empty)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "field other not found")
}

func TestValidateCollectsAll(t *testing.T) {
	s := &config.Stack{}
	s.ApplyDefaults()

	errs := Validate(s)
	require.NotEmpty(t, errs)
	assert.Equal(t, "stage_label", errs[0].Field)
	assert.Equal(t, ir.ErrMissingValue, errs[0].Code)
	assert.Equal(t, string(ir.ClassConfiguration), errs[0].Class)

	var codes []string
	for _, e := range errs {
		codes = append(codes, e.Code)
	}
	assert.Contains(t, codes, ir.ErrMissingFilter)
}

func TestValidationErrorFormat(t *testing.T) {
	e := ValidationError{Field: "branch_filter", Message: "required", Code: ir.ErrMissingFilter}
	assert.Equal(t, "[E204] branch_filter: required", e.Error())
}
