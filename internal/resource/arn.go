package resource

import "strings"

// ARN is an address in the platform's partition:service:region:account
// scheme. Region and account are empty for global services.
type ARN struct {
	Partition string
	Service   string
	Region    string
	Account   string
	Resource  string
}

// String renders "arn:partition:service:region:account:resource".
func (a ARN) String() string {
	return strings.Join([]string{"arn", a.Partition, a.Service, a.Region, a.Account, a.Resource}, ":")
}

// Platform locates the account that hosts synthesized resources.
type Platform struct {
	Partition string
	Region    string
	Account   string
}

// BuildProject returns a ref to the build project named name.
func (p Platform) BuildProject(name string) Static {
	arn := ARN{Partition: p.Partition, Service: "codebuild", Region: p.Region, Account: p.Account, Resource: "project/" + name}
	return New(KindBuildProject, name, arn.String())
}

// Function returns a ref to the function named name.
func (p Platform) Function(name string) Static {
	arn := ARN{Partition: p.Partition, Service: "lambda", Region: p.Region, Account: p.Account, Resource: "function:" + name}
	return New(KindFunction, name, arn.String())
}

// Pipeline returns the ARN of the pipeline named name.
func (p Platform) Pipeline(name string) string {
	return ARN{Partition: p.Partition, Service: "codepipeline", Region: p.Region, Account: p.Account, Resource: name}.String()
}

// BuildLogNamespace is the log-group prefix the build service writes under.
func (p Platform) BuildLogNamespace() Static {
	arn := ARN{Partition: p.Partition, Service: "logs", Region: p.Region, Account: p.Account, Resource: "log-group:/aws/codebuild"}
	return New(KindLogNamespace, "/aws/codebuild", arn.String())
}
