package commands

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/fivetwenty-io/jenkins-client/internal/constants"
	"github.com/fivetwenty-io/jenkins-client/pkg/jenkins"
	"github.com/spf13/cobra"
)

type invocationResult struct {
	Job           string   `json:"job"                 yaml:"job"`
	State         string   `json:"state"               yaml:"state"`
	History       []string `json:"history"             yaml:"history"`
	QueueURL      string   `json:"queue_url,omitempty" yaml:"queue_url,omitempty"`
	PreviousBuild int      `json:"previous_build"      yaml:"previous_build"`
	Build         int      `json:"build,omitempty"     yaml:"build,omitempty"`
}

// NewInvokeCommand creates the invoke command.
func NewInvokeCommand() *cobra.Command {
	var (
		block         bool
		skipIfRunning bool
		buildToken    string
		cause         string
		params        []string
		pollInterval  time.Duration
		timeout       time.Duration
	)

	cmd := &cobra.Command{
		Use:   "invoke JOB [JOB...]",
		Short: "Request builds of jobs",
		Long:  "Request a build of every named job, optionally waiting for each build to complete",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return constants.ErrNoJobNames
			}

			parsed, err := parseParams(params)
			if err != nil {
				return err
			}

			opts := jenkins.InvokeOptions{
				SecurityToken: buildToken,
				Params:        parsed,
				Cause:         cause,
				Block:         block,
				SkipIfRunning: skipIfRunning,
				PollInterval:  pollInterval,
				Timeout:       timeout,
			}

			client, cleanup, err := CreateClient(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			results, err := invokeJobs(cmd.Context(), client, args, opts)
			if len(results) > 0 {
				if outErr := outputInvocations(results); outErr != nil && err == nil {
					err = outErr
				}
			}

			return err
		},
	}

	cmd.Flags().BoolVarP(&block, "block", "b", false, "wait for each build to complete")
	cmd.Flags().BoolVar(&skipIfRunning, "skip-if-running", false, "do not request a build of a job that is running")
	cmd.Flags().StringVar(&buildToken, "build-token", "", "remote trigger security token of the job")
	cmd.Flags().StringVar(&cause, "cause", "", "reason shown on the build page")
	cmd.Flags().StringArrayVarP(&params, "param", "p", nil, "build parameter as key=value (repeatable)")
	cmd.Flags().DurationVar(&pollInterval, "poll-interval", constants.DefaultPollInterval, "queue and build polling interval")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "give up waiting after this long (0 waits indefinitely)")

	return cmd
}

// invokeJobs requests a build of each job in order and stops at the first
// failure. Invocations that were attempted are returned either way.
func invokeJobs(ctx context.Context, client jenkins.Jenkins, names []string, opts jenkins.InvokeOptions) ([]*jenkins.Invocation, error) {
	results := make([]*jenkins.Invocation, 0, len(names))

	for _, name := range names {
		job, err := client.Job(ctx, name)
		if err != nil {
			return results, fmt.Errorf("failed to get job %s: %w", name, err)
		}

		inv, err := job.Invoke(ctx, opts)
		if inv != nil {
			results = append(results, inv)
		}

		if err != nil {
			return results, fmt.Errorf("failed to invoke job %s: %w", name, err)
		}
	}

	return results, nil
}

func toInvocationResult(inv *jenkins.Invocation) invocationResult {
	history := make([]string, 0, len(inv.History))
	for _, state := range inv.History {
		history = append(history, string(state))
	}

	return invocationResult{
		Job:           inv.JobName,
		State:         string(inv.State),
		History:       history,
		QueueURL:      inv.QueueURL,
		PreviousBuild: inv.PreviousBuildNumber,
		Build:         inv.BuildNumber,
	}
}

func outputInvocations(invocations []*jenkins.Invocation) error {
	results := make([]invocationResult, 0, len(invocations))
	for _, inv := range invocations {
		results = append(results, toInvocationResult(inv))
	}

	return output(results, []string{"Job", "State", "History", "Build", "Queue URL"}, func() [][]string {
		rows := make([][]string, 0, len(results))

		for _, r := range results {
			build := constants.NotAvailable
			if r.Build > 0 {
				build = "#" + strconv.Itoa(r.Build)
			}

			rows = append(rows, []string{r.Job, r.State, strings.Join(r.History, " > "), build, orNA(r.QueueURL)})
		}

		return rows
	})
}
