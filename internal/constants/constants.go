package constants

import "time"

// File and directory permissions.
const (
	// ConfigDirPerm is the permission for configuration directories.
	ConfigDirPerm = 0750

	// ConfigFilePerm is the permission for configuration files.
	ConfigFilePerm = 0600

	// ArtifactFilePerm is the permission for downloaded artifacts.
	ArtifactFilePerm = 0644
)

// HTTP and network settings.
const (
	// DefaultHTTPTimeout is the default timeout for HTTP requests.
	DefaultHTTPTimeout = 30 * time.Second

	// MaxRedirects bounds redirect chains followed by GET requests.
	MaxRedirects = 10

	// DefaultUserAgent is sent when no user agent is configured.
	DefaultUserAgent = "jenkins-client/1.0"

	// DefaultRateBurst is the burst size used with a request rate limit.
	DefaultRateBurst = 5
)

// Retry settings for entity refreshes.
const (
	// DefaultRetryAttempts is the number of attempts per refresh.
	DefaultRetryAttempts = 5

	// DefaultRetryDelay is the fixed pause between refresh attempts.
	DefaultRetryDelay = time.Second

	// DefaultTransportRetryWaitMin is the minimum wait between transport retries.
	DefaultTransportRetryWaitMin = time.Second

	// DefaultTransportRetryWaitMax is the maximum wait between transport retries.
	DefaultTransportRetryWaitMax = 30 * time.Second
)

// Time intervals and delays.
const (
	// DefaultSettleDelay is the pause after a build request before its state is sampled.
	DefaultSettleDelay = 3 * time.Second

	// DefaultPollInterval is the queue and build polling interval.
	DefaultPollInterval = 15 * time.Second

	// DefaultBuildPollInterval is used when blocking on build completion.
	DefaultBuildPollInterval = 5 * time.Second

	// DefaultNodePollInterval is used when waiting for a node to come online.
	DefaultNodePollInterval = 5 * time.Second
)

// Remote paths. All are relative to the server root or an entity URL.
const (
	CrumbIssuerPath      = "crumbIssuer/api/json"
	CreateItemPath       = "createItem"
	CreateViewPath       = "createView"
	ComputerPath         = "computer/"
	CreateNodePath       = "computer/doCreateItem"
	QueuePath            = "queue/"
	CancelQueueItemPath  = "queue/cancelItem"
	PluginManagerPath    = "pluginManager/"
	CredentialsStorePath = "credentials/store/system/domain/_/"
	QuietDownPath        = "quietDown"
	CancelQuietDownPath  = "cancelQuietDown"
	ConfigXMLPath        = "config.xml"
	DeletePath           = "doDelete"
	TestReportPath       = "testReport"
	ConsolePath          = "consoleText"
	EnvVarsPath          = "injectedEnvVars"
	ArtifactPath         = "artifact/"
)

// Remote class names.
const (
	// DumbSlaveDescriptor is the node type for permanent agents.
	DumbSlaveDescriptor = "hudson.slaves.DumbSlave$DescriptorImpl"

	// JNLPLauncherClass launches agents that connect to the server.
	JNLPLauncherClass = "hudson.slaves.JNLPLauncher"

	// SSHLauncherClass launches agents over SSH.
	SSHLauncherClass = "hudson.plugins.sshslaves.SSHLauncher"

	// RetentionAlwaysClass keeps an agent online.
	RetentionAlwaysClass = "hudson.slaves.RetentionStrategy$Always"

	// RetentionDemandClass brings an agent online on demand.
	RetentionDemandClass = "hudson.slaves.RetentionStrategy$Demand"

	// EnvironmentVariablesNodeProperty carries agent environment variables.
	EnvironmentVariablesNodeProperty = "hudson.slaves.EnvironmentVariablesNodeProperty"
)

// Special node names.
const (
	// MasterNodeName is the legacy display name of the controller.
	MasterNodeName = "master"

	// BuiltInNodeName is the current display name of the controller.
	BuiltInNodeName = "Built-In Node"
)

// Headers.
const (
	// VersionHeader carries the server version.
	VersionHeader = "X-Jenkins"

	// LocationHeader is returned by build triggers with the queue item URL.
	LocationHeader = "Location"
)

// Display constants.
const (
	// NotAvailable is used when information is not available.
	NotAvailable = "N/A"

	// None is used when no value is present.
	None = "none"

	// MaskedSecret is used to hide sensitive information.
	MaskedSecret = "***"

	// StatusOnline indicates an online node.
	StatusOnline = "online"

	// StatusOffline indicates an offline node.
	StatusOffline = "offline"

	// StatusRunning indicates a running build.
	StatusRunning = "RUNNING"

	// JSONIndentSize is the number of spaces for JSON indentation.
	JSONIndentSize = 2

	// DescriptionDisplayLength is the length for displaying descriptions.
	DescriptionDisplayLength = 60
)

// Format constants.
const (
	// FormatJSON for JSON output format.
	FormatJSON = "json"

	// FormatYAML for YAML output format.
	FormatYAML = "yaml"

	// FormatTable for table output format.
	FormatTable = "table"
)

// Build results.
const (
	ResultSuccess  = "SUCCESS"
	ResultUnstable = "UNSTABLE"
	ResultFailure  = "FAILURE"
	ResultAborted  = "ABORTED"
	ResultNotBuilt = "NOT_BUILT"
)
