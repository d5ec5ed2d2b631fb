package topology

// Names of synthesized resources. All derive from project and stage label
// so two labels of one project never collide.

func prefix(label, project string) string { return project + "-" + label }

func PipelineName(label, project string) string     { return prefix(label, project) + "-pipeline" }
func BuildProjectName(label, project string) string { return prefix(label, project) + "-build" }
func HandlerName(label, project string) string      { return prefix(label, project) + "-invalidate" }
func BuildRoleName(label, project string) string    { return prefix(label, project) + "-build-role" }
func PipelineRoleName(label, project string) string { return prefix(label, project) + "-pipeline-role" }
func HandlerRoleName(label, project string) string  { return prefix(label, project) + "-handler-role" }
func WebhookName(label, project string) string      { return prefix(label, project) + "-webhook" }
