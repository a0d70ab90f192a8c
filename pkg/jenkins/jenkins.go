package jenkins

import (
	"context"
	"fmt"
	"time"
)

// Resource is the capability set shared by every remote-backed entity.
// An entity holds the snapshot returned by its last successful fetch and
// can re-fetch itself; it never owns the entities it references.
type Resource interface {
	fmt.Stringer

	// BaseURL is the entity's identity URL, without the API suffix.
	BaseURL() string
	// Refresh re-fetches the snapshot through the retry executor. On
	// failure the previous snapshot is kept.
	Refresh(ctx context.Context) error
	// Snapshot returns the current document.
	Snapshot() Document
	// Read returns a top-level field, or a *MissingFieldError.
	Read(key string) (any, error)
	// ReadNested resolves a key path, or returns a *MissingFieldError.
	ReadNested(path ...string) (any, error)
	// Jenkins returns the root server the entity was resolved from.
	Jenkins() Jenkins
}

// Jenkins is the root server entity.
type Jenkins interface {
	Resource

	// Version returns the server version from the X-Jenkins header.
	Version(ctx context.Context) (string, error)
	Jobs() Jobs
	Views() Views
	Nodes(ctx context.Context) (Nodes, error)
	Queue(ctx context.Context) (Queue, error)
	Plugins(ctx context.Context) (Plugins, error)
	Credentials(ctx context.Context) (Credentials, error)
	Label(ctx context.Context, name string) (Label, error)
	Fingerprint(ctx context.Context, id string) (Fingerprint, error)

	// Job is shorthand for Jobs().Get.
	Job(ctx context.Context, name string) (Job, error)
	// Build resolves a build by job name and number.
	Build(ctx context.Context, jobName string, number int) (Build, error)

	QuietDown(ctx context.Context) error
	CancelQuietDown(ctx context.Context) error
	IsQuietingDown() bool

	// Close ends the session: cookies and crumbs are discarded.
	Close() error
}

// Jobs is the collection of jobs known to the root snapshot. Jobs inside
// folders are keyed "folder/job".
type Jobs interface {
	Keys() []string
	Get(ctx context.Context, name string) (Job, error)
	Contains(name string) bool
	// Create returns the existing job if one with the same name exists.
	Create(ctx context.Context, name, configXML string) (Job, error)
	// Delete is a no-op for absent jobs.
	Delete(ctx context.Context, name string) error
	Rename(ctx context.Context, oldName, newName string) (Job, error)
	Copy(ctx context.Context, source, destination string) (Job, error)
	// Build invokes the job and blocks until the build completes.
	Build(ctx context.Context, name string, params map[string]string) (*Invocation, error)
}

// BuildKind names one of the build pointers a job snapshot carries.
type BuildKind string

const (
	FirstBuild          BuildKind = "firstBuild"
	LastBuild           BuildKind = "lastBuild"
	LastCompletedBuild  BuildKind = "lastCompletedBuild"
	LastFailedBuild     BuildKind = "lastFailedBuild"
	LastStableBuild     BuildKind = "lastStableBuild"
	LastSuccessfulBuild BuildKind = "lastSuccessfulBuild"
	LastUnstableBuild   BuildKind = "lastUnstableBuild"
)

// Job is a buildable project.
type Job interface {
	Resource

	Name() string
	Description() string
	IsEnabled() bool
	Enable(ctx context.Context) error
	Disable(ctx context.Context) error

	// BuildIDs lists known build numbers, newest first. The list is
	// complete even when the server truncates its build history.
	BuildIDs() []int
	// BuildDict maps build numbers to build URLs.
	BuildDict() map[int]string
	Build(ctx context.Context, number int) (Build, error)
	// BuildNumber returns ErrNoData when the job has no such build.
	BuildNumber(kind BuildKind) (int, error)
	LastBuild(ctx context.Context) (Build, error)

	IsQueued(ctx context.Context) (bool, error)
	IsRunning(ctx context.Context) (bool, error)
	IsQueuedOrRunning(ctx context.Context) (bool, error)
	QueueItem(ctx context.Context) (QueueItem, error)
	DeleteFromQueue(ctx context.Context) error

	Invoke(ctx context.Context, opts InvokeOptions) (*Invocation, error)

	DownstreamJobNames() []string
	DownstreamJobs(ctx context.Context) ([]Job, error)
	UpstreamJobNames() []string
	UpstreamJobs(ctx context.Context) ([]Job, error)

	Params() []ParameterDefinition
	HasParams() bool

	Config(ctx context.Context) (string, error)
	UpdateConfig(ctx context.Context, configXML string) error
}

// Build is a single run of a job.
type Build interface {
	Resource

	Number() int
	Job() Job
	// Status is the build result; empty while the build is running.
	Status() string
	IsGood() bool
	// IsRunning refreshes the snapshot and reports the building flag.
	IsRunning(ctx context.Context) (bool, error)
	BlockUntilComplete(ctx context.Context, interval, timeout time.Duration) error
	Stop(ctx context.Context) error

	Duration() time.Duration
	Timestamp() time.Time
	Description() string
	BuiltOn() string

	// Revision returns the VCS revision. ok is false when the change set
	// kind is unknown or carries no revision.
	Revision() (revision string, ok bool)
	RevisionBranches() []Document

	// Actions merges the action list into one lookup table.
	Actions() Document
	Causes() []Document
	Params() map[string]any

	Artifacts() []Artifact
	ArtifactDict() map[string]Artifact

	HasResultSet() bool
	ResultSet(ctx context.Context) (ResultSet, error)

	UpstreamJobName() (string, bool)
	UpstreamBuildNumber() (int, bool)
	// UpstreamBuild returns nil without error when there is no upstream cause.
	UpstreamBuild(ctx context.Context) (Build, error)
	// DownstreamJobNames intersects the job's downstream projects with the
	// fingerprint usage of this build. Missing fingerprint data yields an
	// empty result.
	DownstreamJobNames(ctx context.Context) ([]string, error)
	DownstreamBuilds(ctx context.Context) ([]Build, error)

	Console(ctx context.Context) (string, error)
	EnvVars(ctx context.Context) (map[string]string, error)
}

// Artifact is a file archived by a build.
type Artifact interface {
	Filename() string
	RelativePath() string
	URL() string
	Build() Build
	Data(ctx context.Context) ([]byte, error)
	// Save downloads the artifact and checks its MD5 against the server's
	// fingerprint record. Mismatches yield ErrBrokenArtifact; with strict,
	// so does a fingerprint the server does not know.
	Save(ctx context.Context, path string, strict bool) error
	SaveToDir(ctx context.Context, dir string, strict bool) (string, error)
}

// Fingerprint is the server's record of an artifact checksum.
type Fingerprint interface {
	Resource

	ID() string
	// Unknown reports that the server has no record for this checksum.
	Unknown() bool
	Valid(ctx context.Context) (bool, error)
	ValidateForBuild(ctx context.Context, filename, jobName string, buildNumber int) (bool, error)
}

// ResultSet is a build's test report.
type ResultSet interface {
	Resource

	Keys() []string
	Get(identifier string) (Result, error)
	Items() []Result
	Len() int
}

// Views is a view collection owned by the root or by a nested view.
type Views interface {
	Keys() []string
	Get(ctx context.Context, name string) (View, error)
	Contains(name string) bool
	Create(ctx context.Context, name string, viewType ViewType) (View, error)
	// Delete is a no-op for absent views.
	Delete(ctx context.Context, name string) error
	Rename(ctx context.Context, oldName, newName string) (View, error)
}

// View groups jobs and nested views.
type View interface {
	Resource

	Name() string
	JobNames() []string
	JobDict() map[string]string
	Job(ctx context.Context, name string) (Job, error)
	ContainsJob(name string) bool
	AddJob(ctx context.Context, name string) error
	RemoveJob(ctx context.Context, name string) error
	Views() Views
	Config(ctx context.Context) (string, error)
	UpdateConfig(ctx context.Context, configXML string) error
}

// Nodes is the set of build agents.
type Nodes interface {
	Resource

	Keys() []string
	Get(ctx context.Context, name string) (Node, error)
	Contains(name string) bool
	// Create validates cfg locally before issuing any request and returns
	// the existing node if the name is taken.
	Create(ctx context.Context, name string, cfg NodeConfig) (Node, error)
	// Delete returns a not-found error for absent nodes.
	Delete(ctx context.Context, name string) error
}

// Node is a build agent.
type Node interface {
	Resource

	Name() string
	IsOnline() bool
	IsTemporarilyOffline() bool
	IsIdle() bool
	IsJNLPAgent() bool
	NumExecutors() int
	Labels() []string
	OfflineReason() string

	SetOnline(ctx context.Context) error
	SetOffline(ctx context.Context, message string) error
	ToggleTemporarilyOffline(ctx context.Context, message string) error
	Launch(ctx context.Context) error
	BlockUntilOnline(ctx context.Context, interval, timeout time.Duration) error

	Executors(ctx context.Context) (Executors, error)
	Config(ctx context.Context) (string, error)
}

// Executors is a node's executor slots, indexed 0..n-1.
type Executors interface {
	Keys() []int
	Get(ctx context.Context, index int) (Executor, error)
	Contains(index int) bool
	All(ctx context.Context) ([]Executor, error)
}

// Executor is one build slot on a node.
type Executor interface {
	Resource

	Number() int
	IsIdle() bool
	LikelyStuck() bool
	Progress() int
	// CurrentBuild returns nil without error when the executor is idle.
	CurrentBuild(ctx context.Context) (Build, error)
}

// Queue is the server's build queue.
type Queue interface {
	Resource

	Keys() []int
	Get(ctx context.Context, id int) (QueueItem, error)
	Contains(id int) bool
	ItemsForJob(ctx context.Context, jobName string) ([]QueueItem, error)
	Cancel(ctx context.Context, id int) error
}

// QueueItem is a pending build request.
type QueueItem interface {
	Resource

	ID() int
	JobName() string
	Why() string
	IsCancelled() bool
	IsBlocked() bool
	IsQueued() bool
	Parameters() map[string]string

	// BuildNumber returns ErrNotBuiltYet until an executor picks the item up.
	BuildNumber() (int, error)
	Build(ctx context.Context) (Build, error)
	BlockUntilBuilding(ctx context.Context, interval, timeout time.Duration) (Build, error)
	BlockUntilComplete(ctx context.Context, interval, timeout time.Duration) (Build, error)
	Job(ctx context.Context) (Job, error)
}

// Plugins is the plugin manager.
type Plugins interface {
	Resource

	Keys() []string
	Get(shortName string) (Plugin, error)
	Contains(shortName string) bool
	Version(shortName string) (string, error)
	// Delete uninstalls the plugin. A restart is required to apply it.
	Delete(ctx context.Context, shortName string) error
}

// Credentials is the system credential store, keyed by description.
type Credentials interface {
	Resource

	Keys() []string
	// Get returns a not-found error for unknown descriptions.
	Get(description string) (Credential, error)
	Contains(description string) bool
	// Create returns the existing credential if the description is taken.
	Create(ctx context.Context, description string, spec CredentialSpec) (Credential, error)
	// Delete returns a not-found error for unknown descriptions.
	Delete(ctx context.Context, description string) error
}

// Label is a node label expression.
type Label interface {
	Resource

	Name() string
	IsOnline() bool
	NodeNames() []string
	TiedJobNames() []string
	TiedJobs(ctx context.Context) ([]Job, error)
	Nodes(ctx context.Context) ([]Node, error)
}
