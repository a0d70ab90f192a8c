package jenkins

import "time"

// InvocationState is a step of a build request's lifecycle.
type InvocationState string

const (
	NotRequested     InvocationState = "NotRequested"
	Requested        InvocationState = "Requested"
	Queued           InvocationState = "Queued"
	Running          InvocationState = "Running"
	Completed        InvocationState = "Completed"
	Skipped          InvocationState = "Skipped"
	FailedToSchedule InvocationState = "FailedToSchedule"
)

// Terminal reports whether no further transition can follow.
func (s InvocationState) Terminal() bool {
	return s == Completed || s == Skipped || s == FailedToSchedule
}

// InvokeOptions controls Job.Invoke.
type InvokeOptions struct {
	// SecurityToken is the job's remote trigger token.
	SecurityToken string
	// Params selects the buildWithParameters endpoint when non-empty.
	Params map[string]string
	// Cause is a free-text reason shown on the build page.
	Cause string
	// Block waits for the build to leave the queue and complete.
	Block bool
	// SkipIfRunning skips the request when a build is already running.
	SkipIfRunning bool
	// SettleDelay is the pause before the non-blocking state sample
	// (default 3s, negative for none).
	SettleDelay time.Duration
	// PollInterval is the queue and build polling interval (default 15s).
	PollInterval time.Duration
	// Timeout bounds blocking waits; zero waits indefinitely.
	Timeout time.Duration
}

// Invocation records the outcome of Job.Invoke.
type Invocation struct {
	JobName string
	State   InvocationState
	History []InvocationState
	// QueueURL is the Location header returned by the trigger request.
	QueueURL string
	// PreviousBuildNumber is the last build number before the request,
	// zero for a job that never built.
	PreviousBuildNumber int
	// BuildNumber is set once the request is known to have started a build.
	BuildNumber int
}

// NewInvocation starts a record in the NotRequested state.
func NewInvocation(jobName string) *Invocation {
	return &Invocation{
		JobName: jobName,
		State:   NotRequested,
		History: []InvocationState{NotRequested},
	}
}

// Transition moves to state and records it.
func (i *Invocation) Transition(state InvocationState) {
	if i.State == state {
		return
	}

	i.State = state
	i.History = append(i.History, state)
}

// Visited reports whether the invocation passed through state.
func (i *Invocation) Visited(state InvocationState) bool {
	for _, s := range i.History {
		if s == state {
			return true
		}
	}

	return false
}
