package client

import (
	"context"
	"fmt"
	"net/url"

	"github.com/fivetwenty-io/jenkins-client/internal/constants"
	"github.com/fivetwenty-io/jenkins-client/pkg/jenkins"
)

// Invoke implements jenkins.Job.
//
// The request state machine is NotRequested -> Requested -> Queued ->
// Running -> Completed, with Skipped and FailedToSchedule as the other
// terminal states. A job that is already queued is not requested again.
func (j *Job) Invoke(ctx context.Context, opts jenkins.InvokeOptions) (*jenkins.Invocation, error) {
	if opts.SettleDelay == 0 {
		opts.SettleDelay = constants.DefaultSettleDelay
	}

	if opts.PollInterval <= 0 {
		opts.PollInterval = constants.DefaultPollInterval
	}

	if opts.Timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	inv := jenkins.NewInvocation(j.name)

	err := j.Refresh(ctx)
	if err != nil {
		return inv, err
	}

	inv.PreviousBuildNumber = j.lastBuildNumber()

	queued := j.Snapshot().BoolOr(false, "inQueue")

	switch {
	case queued:
		j.log().Info("job already queued, not requesting another build", map[string]interface{}{
			"job": j.name,
		})
		inv.Transition(jenkins.Requested)
		inv.Transition(jenkins.Queued)
	default:
		if opts.SkipIfRunning {
			running, err := j.IsRunning(ctx)
			if err != nil {
				return inv, err
			}

			if running {
				j.log().Info("job already running, skipping build request", map[string]interface{}{
					"job": j.name,
				})
				inv.Transition(jenkins.Skipped)

				return inv, nil
			}
		}

		err = j.trigger(ctx, inv, opts)
		if err != nil {
			inv.Transition(jenkins.FailedToSchedule)

			return inv, err
		}
	}

	if opts.Block {
		return inv, j.awaitCompletion(ctx, inv, opts)
	}

	err = sleep(ctx, opts.SettleDelay)
	if err != nil {
		return inv, fmt.Errorf("waiting for %s to settle: %w", j.name, err)
	}

	return inv, j.classify(ctx, inv)
}

// triggerRequest builds one of the three trigger shapes: plain build,
// build with a security token, or buildWithParameters.
func (j *Job) triggerRequest(opts jenkins.InvokeOptions) (string, url.Values) {
	query := url.Values{}

	if opts.SecurityToken != "" {
		query.Set("token", opts.SecurityToken)
	}

	if opts.Cause != "" {
		query.Set("cause", opts.Cause)
	}

	if len(opts.Params) == 0 && !j.HasParams() {
		return j.endpoint("build"), query
	}

	for k, v := range opts.Params {
		query.Set(k, v)
	}

	return j.endpoint("buildWithParameters"), query
}

func (j *Job) trigger(ctx context.Context, inv *jenkins.Invocation, opts jenkins.InvokeOptions) error {
	triggerURL, query := j.triggerRequest(opts)

	resp, err := j.root.http.PostQuery(ctx, triggerURL, query)
	if err != nil {
		return fmt.Errorf("invoking job %s: %w", j.name, err)
	}

	inv.QueueURL = resp.Headers.Get(constants.LocationHeader)
	inv.Transition(jenkins.Requested)

	j.root.publish(ctx, jenkins.EventJob, jenkins.ActionInvoked, j.name, j.baseURL)

	return nil
}

// classify samples the job once and confirms the request took effect.
func (j *Job) classify(ctx context.Context, inv *jenkins.Invocation) error {
	err := j.Refresh(ctx)
	if err != nil {
		return err
	}

	if j.Snapshot().BoolOr(false, "inQueue") {
		inv.Transition(jenkins.Queued)

		return nil
	}

	last := j.lastBuildNumber()
	if last > inv.PreviousBuildNumber {
		inv.BuildNumber = last

		build, err := j.buildAt(ctx, last)
		if err != nil {
			return err
		}

		inv.Transition(jenkins.Running)

		if !build.building() {
			inv.Transition(jenkins.Completed)
		}

		return nil
	}

	running, err := j.IsRunning(ctx)
	if err != nil {
		return err
	}

	if running {
		inv.Transition(jenkins.Running)

		return nil
	}

	inv.Transition(jenkins.FailedToSchedule)

	return fmt.Errorf("%w: job %s", jenkins.ErrNotScheduled, j.name)
}

// awaitCompletion polls the queue flag until the request leaves the queue,
// then blocks on the resulting build.
func (j *Job) awaitCompletion(ctx context.Context, inv *jenkins.Invocation, opts jenkins.InvokeOptions) error {
	err := waitFor(ctx, opts.PollInterval, 0, "job "+j.name+" to leave the queue", func(ctx context.Context) (bool, error) {
		queued, err := j.IsQueued(ctx)
		if err != nil {
			return false, err
		}

		if queued {
			inv.Transition(jenkins.Queued)
		}

		return !queued, nil
	})
	if err != nil {
		return timeoutOr(err, opts.Timeout, "invocation of "+j.name)
	}

	// A queue item that left without a new build was cancelled or dropped.
	last := j.lastBuildNumber()
	if last <= inv.PreviousBuildNumber {
		inv.Transition(jenkins.FailedToSchedule)

		return fmt.Errorf("%w: job %s left the queue without a new build", jenkins.ErrNotScheduled, j.name)
	}

	inv.BuildNumber = last

	build, err := j.buildAt(ctx, last)
	if err != nil {
		return err
	}

	if build.building() {
		inv.Transition(jenkins.Running)

		err = build.BlockUntilComplete(ctx, opts.PollInterval, 0)
		if err != nil {
			return timeoutOr(err, opts.Timeout, "invocation of "+j.name)
		}
	}

	inv.Transition(jenkins.Completed)

	return nil
}

func (j *Job) lastBuildNumber() int {
	n, err := j.BuildNumber(jenkins.LastBuild)
	if err != nil {
		return 0
	}

	return n
}
