package testutil

import (
	"github.com/roach88/sitepipe/internal/config"
	"github.com/roach88/sitepipe/internal/ir"
)

// WebhookSecret is the secret carried by Stack fixtures.
const WebhookSecret = "test-webhook-secret"

// Stack returns a complete, valid stack configuration for label with the
// secret already resolved. Each call returns a fresh value.
func Stack(label string) *config.Stack {
	return &config.Stack{
		StageLabel:    label,
		Project:       "website",
		Platform:      config.Platform{Partition: "aws", Region: "us-east-1", Account: "123456789012"},
		ArtifactStore: config.Ref{ID: "website-artifacts", ARN: "arn:aws:s3:::website-artifacts"},
		ContentStore:  config.Ref{ID: "website-content", ARN: "arn:aws:s3:::website-content"},
		Distribution:  config.Ref{ID: "E2EXAMPLE", ARN: "arn:aws:cloudfront::123456789012:distribution/E2EXAMPLE"},
		Source:        config.Source{Owner: "acme", Repo: "website", SecretEnv: "SITEPIPE_WEBHOOK_SECRET"},
		Build:         config.Build{ComputeType: config.ComputeSmall, Image: "aws/codebuild/standard:7.0"},
		BranchFilter:  "refs/heads/{branch}",
		Secret:        ir.NewSecret(WebhookSecret),
	}
}

// Env returns an os.LookupEnv stand-in that knows only the fixture secret.
func Env() func(string) (string, bool) {
	return func(name string) (string, bool) {
		if name == "SITEPIPE_WEBHOOK_SECRET" {
			return WebhookSecret, true
		}
		return "", false
	}
}
