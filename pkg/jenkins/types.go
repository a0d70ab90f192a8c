package jenkins

// ParameterDefinition describes a build parameter declared by a job.
type ParameterDefinition struct {
	Name         string `json:"name"         yaml:"name"`
	Type         string `json:"type"         yaml:"type"`
	Description  string `json:"description"  yaml:"description"`
	DefaultValue any    `json:"defaultValue" yaml:"defaultValue"`
}

// Result is one test case outcome.
type Result struct {
	ClassName       string  `json:"className"       yaml:"className"`
	Name            string  `json:"name"            yaml:"name"`
	Status          string  `json:"status"          yaml:"status"`
	Duration        float64 `json:"duration"        yaml:"duration"`
	Age             int     `json:"age"             yaml:"age"`
	Skipped         bool    `json:"skipped"         yaml:"skipped"`
	SkippedMessage  string  `json:"skippedMessage"  yaml:"skippedMessage"`
	ErrorDetails    string  `json:"errorDetails"    yaml:"errorDetails"`
	ErrorStackTrace string  `json:"errorStackTrace" yaml:"errorStackTrace"`
	Stdout          string  `json:"stdout"          yaml:"stdout"`
	Stderr          string  `json:"stderr"          yaml:"stderr"`
}

// Identifier is the result's key within its set.
func (r Result) Identifier() string {
	return r.ClassName + "." + r.Name
}

// Passed reports a PASSED or FIXED status.
func (r Result) Passed() bool {
	return r.Status == "PASSED" || r.Status == "FIXED"
}

// Plugin is an installed plugin.
type Plugin struct {
	ShortName    string             `json:"shortName"    yaml:"shortName"`
	LongName     string             `json:"longName"     yaml:"longName"`
	Version      string             `json:"version"      yaml:"version"`
	URL          string             `json:"url"          yaml:"url"`
	Active       bool               `json:"active"       yaml:"active"`
	Enabled      bool               `json:"enabled"      yaml:"enabled"`
	HasUpdate    bool               `json:"hasUpdate"    yaml:"hasUpdate"`
	Pinned       bool               `json:"pinned"       yaml:"pinned"`
	Bundled      bool               `json:"bundled"      yaml:"bundled"`
	Dependencies []PluginDependency `json:"dependencies" yaml:"dependencies"`
}

// PluginDependency names a plugin another plugin requires.
type PluginDependency struct {
	ShortName string `json:"shortName" yaml:"shortName"`
	Version   string `json:"version"   yaml:"version"`
	Optional  bool   `json:"optional"  yaml:"optional"`
}

// Credential is an entry of the credential store. Secrets are never
// returned by the server.
type Credential struct {
	ID          string `json:"id"          yaml:"id"`
	Description string `json:"description" yaml:"description"`
	DisplayName string `json:"displayName" yaml:"displayName"`
	TypeName    string `json:"typeName"    yaml:"typeName"`
	Fullname    string `json:"fullName"    yaml:"fullName"`
}

// ViewType is the remote class of a view.
type ViewType string

const (
	ListView            ViewType = "hudson.model.ListView"
	MyView              ViewType = "hudson.model.MyView"
	NestedView          ViewType = "hudson.plugins.nested_view.NestedView"
	CategorizedJobsView ViewType = "org.jenkinsci.plugins.categorizedview.CategorizedJobsView"
	DashboardView       ViewType = "hudson.plugins.view.dashboard.Dashboard"
	PipelineView        ViewType = "au.com.centrumsystems.hudson.plugin.buildpipeline.BuildPipelineView"
)
