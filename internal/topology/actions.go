// Package topology assembles the fixed four-stage pipeline and checks its
// artifact wiring.
//
// Stages always run Source, Build, Deploy, Invalidation. Each action names
// the artifact it consumes and the one it produces; a consumed name must be
// produced by an earlier action or construction fails.
package topology

import (
	"strconv"

	"github.com/roach88/sitepipe/internal/ir"
)

// Artifact names passed between actions.
const (
	SourceArtifact = "SourceArtifact"
	BuildArtifact  = "BuildArtifact"
)

// Stage names.
const (
	StageSource       = "Source"
	StageBuild        = "Build"
	StageDeploy       = "Deploy"
	StageInvalidation = "Invalidation"
)

// Action names.
const (
	ActionCheckout   = "Checkout"
	ActionBuild      = "Build"
	ActionDeploy     = "Deploy"
	ActionInvalidate = "Invalidate"
)

var stageOrder = []string{StageSource, StageBuild, StageDeploy, StageInvalidation}

// stageKind is the only action kind each stage may hold.
var stageKind = map[string]ir.ActionKind{
	StageSource:       ir.KindCheckout,
	StageBuild:        ir.KindBuild,
	StageDeploy:       ir.KindDeploy,
	StageInvalidation: ir.KindInvoke,
}

// StageOrder returns the fixed stage sequence.
func StageOrder() []string {
	return append([]string(nil), stageOrder...)
}

// Checkout pulls branch of owner/repo and produces SourceArtifact.
func Checkout(owner, repo, branch string) ir.Action {
	return ir.Action{
		Name:           ActionCheckout,
		Kind:           ir.KindCheckout,
		OutputArtifact: SourceArtifact,
		RunOrder:       1,
		Configuration: map[string]string{
			"Owner":                owner,
			"Repo":                 repo,
			"Branch":               branch,
			"PollForSourceChanges": strconv.FormatBool(false),
		},
	}
}

// Build hands SourceArtifact to the external build project and produces
// BuildArtifact.
func Build(project string) ir.Action {
	return ir.Action{
		Name:           ActionBuild,
		Kind:           ir.KindBuild,
		InputArtifact:  SourceArtifact,
		OutputArtifact: BuildArtifact,
		RunOrder:       1,
		Configuration:  map[string]string{"ProjectName": project},
	}
}

// Deploy extracts input into the content store bucket.
func Deploy(bucket, input string) ir.Action {
	return ir.Action{
		Name:          ActionDeploy,
		Kind:          ir.KindDeploy,
		InputArtifact: input,
		RunOrder:      1,
		Configuration: map[string]string{
			"BucketName": bucket,
			"Extract":    strconv.FormatBool(true),
		},
	}
}

// Invoke calls function once, with no artifacts.
func Invoke(function string) ir.Action {
	return ir.Action{
		Name:          ActionInvalidate,
		Kind:          ir.KindInvoke,
		RunOrder:      1,
		Configuration: map[string]string{"FunctionName": function},
	}
}
