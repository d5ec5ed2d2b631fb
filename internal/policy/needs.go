// Package policy derives least-privilege permission statements for each
// executing identity from the kinds of actions it runs.
//
// Derivation is a table lookup: (identity, action kind) yields a set of
// needs, each need maps to a fixed action list and a resource scope. A
// statement exists only because some action has the need; nothing is added
// speculatively.
package policy

import "github.com/roach88/sitepipe/internal/ir"

// Identity is an executing principal that receives its own role.
type Identity string

const (
	IdentityBuild    Identity = "build"
	IdentityPipeline Identity = "pipeline"
	IdentityHandler  Identity = "invalidation-handler"
)

// Need is one capability an action requires.
type Need string

const (
	NeedBuildLogs         Need = "build-logs"
	NeedArtifactReadWrite Need = "artifact-rw"
	NeedBuildTrigger      Need = "build-trigger"
	NeedContentWrite      Need = "content-write"
	NeedFunctionInvoke    Need = "function-invoke"
	NeedHandlerLogs       Need = "handler-logs"
	NeedJobResult         Need = "job-result"
	NeedCacheInvalidation Need = "cache-invalidation"
)

// needOrder is the order statements appear in a policy.
var needOrder = []Need{
	NeedBuildLogs,
	NeedArtifactReadWrite,
	NeedBuildTrigger,
	NeedContentWrite,
	NeedFunctionInvoke,
	NeedHandlerLogs,
	NeedJobResult,
	NeedCacheInvalidation,
}

type needRule struct {
	sid          string
	actions      []string // sorted
	platformWide bool
}

var needRules = map[Need]needRule{
	NeedBuildLogs: {
		sid:     "BuildLogs",
		actions: []string{"logs:CreateLogGroup", "logs:CreateLogStream", "logs:PutLogEvents"},
	},
	NeedArtifactReadWrite: {
		sid:     "ArtifactReadWrite",
		actions: []string{"s3:GetObject", "s3:GetObjectVersion", "s3:PutObject"},
	},
	NeedBuildTrigger: {
		sid:     "BuildTrigger",
		actions: []string{"codebuild:BatchGetBuilds", "codebuild:StartBuild"},
	},
	NeedContentWrite: {
		sid:     "ContentWrite",
		actions: []string{"s3:DeleteObject", "s3:PutObject"},
	},
	NeedFunctionInvoke: {
		sid:          "FunctionInvoke",
		actions:      []string{"lambda:InvokeFunction", "lambda:ListFunctions"},
		platformWide: true,
	},
	NeedHandlerLogs: {
		sid:          "HandlerLogs",
		actions:      []string{"logs:CreateLogGroup", "logs:CreateLogStream", "logs:PutLogEvents"},
		platformWide: true,
	},
	NeedJobResult: {
		sid:          "JobResult",
		actions:      []string{"codepipeline:PutJobFailureResult", "codepipeline:PutJobSuccessResult"},
		platformWide: true,
	},
	NeedCacheInvalidation: {
		sid:          "CacheInvalidation",
		actions:      []string{"cloudfront:CreateInvalidation"},
		platformWide: true,
	},
}

// PlatformWide reports whether the need is granted on every resource of
// its type rather than on a specific reference.
func (n Need) PlatformWide() bool {
	return needRules[n].platformWide
}

// Actions returns the permission actions the need grants, sorted.
func (n Need) Actions() []string {
	return append([]string(nil), needRules[n].actions...)
}

// Sid returns the statement identifier used for the need.
func (n Need) Sid() string {
	return needRules[n].sid
}

var needsTable = map[Identity]map[ir.ActionKind][]Need{
	IdentityBuild: {
		ir.KindBuild: {NeedBuildLogs, NeedArtifactReadWrite},
	},
	IdentityPipeline: {
		ir.KindCheckout: {NeedArtifactReadWrite},
		ir.KindBuild:    {NeedArtifactReadWrite, NeedBuildTrigger},
		ir.KindDeploy:   {NeedArtifactReadWrite, NeedContentWrite},
		ir.KindInvoke:   {NeedFunctionInvoke},
	},
	IdentityHandler: {
		ir.KindInvoke: {NeedHandlerLogs, NeedJobResult, NeedCacheInvalidation},
	},
}

// NeedsFor returns what identity requires to carry out an action of kind.
// The result is empty when identity plays no part in that kind.
func NeedsFor(id Identity, kind ir.ActionKind) []Need {
	return append([]Need(nil), needsTable[id][kind]...)
}
