package commands

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/fivetwenty-io/jenkins-client/internal/constants"
	"github.com/fivetwenty-io/jenkins-client/pkg/jenkins"
	"github.com/spf13/cobra"
)

type jobSummary struct {
	Name  string `json:"name"  yaml:"name"`
	Color string `json:"color" yaml:"color"`
	URL   string `json:"url"   yaml:"url"`
}

type jobDetails struct {
	Name        string                        `json:"name"                  yaml:"name"`
	URL         string                        `json:"url"                   yaml:"url"`
	Description string                        `json:"description,omitempty" yaml:"description,omitempty"`
	Enabled     bool                          `json:"enabled"               yaml:"enabled"`
	Queued      bool                          `json:"queued"                yaml:"queued"`
	Running     bool                          `json:"running"               yaml:"running"`
	LastBuild   int                           `json:"last_build,omitempty"  yaml:"last_build,omitempty"`
	Upstream    []string                      `json:"upstream"              yaml:"upstream"`
	Downstream  []string                      `json:"downstream"            yaml:"downstream"`
	Parameters  []jenkins.ParameterDefinition `json:"parameters,omitempty"  yaml:"parameters,omitempty"`
}

type buildRef struct {
	Number int    `json:"number" yaml:"number"`
	URL    string `json:"url"    yaml:"url"`
}

// NewJobsCommand creates the jobs command group.
func NewJobsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "jobs",
		Aliases: []string{"job"},
		Short:   "Manage jobs",
		Long:    "List, inspect, enable, disable and delete Jenkins jobs",
	}

	cmd.AddCommand(newJobsListCommand())
	cmd.AddCommand(newJobsGetCommand())
	cmd.AddCommand(newJobsBuildsCommand())
	cmd.AddCommand(newJobsEnableCommand())
	cmd.AddCommand(newJobsDisableCommand())
	cmd.AddCommand(newJobsDeleteCommand())

	return cmd
}

func newJobsListCommand() *cobra.Command {
	var filter string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs",
		Long:  "List all jobs, including jobs inside folders as folder/job",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, cleanup, err := CreateClient(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			jobs := listJobs(client, filter)

			return output(jobs, []string{"Name", "Status", "URL"}, func() [][]string {
				rows := make([][]string, 0, len(jobs))
				for _, job := range jobs {
					rows = append(rows, []string{job.Name, orNA(job.Color), job.URL})
				}

				return rows
			})
		},
	}

	cmd.Flags().StringVar(&filter, "filter", "", "only list jobs whose name contains this text")

	return cmd
}

// listJobs reads job summaries from the root snapshot without fetching
// each job.
func listJobs(client jenkins.Jenkins, filter string) []jobSummary {
	byName := make(map[string]jenkins.Document)
	for _, entry := range client.Snapshot().ListOrEmpty("jobs") {
		byName[entry.StringOr("", "name")] = entry
	}

	jobs := make([]jobSummary, 0, len(byName))

	for _, name := range client.Jobs().Keys() {
		if filter != "" && !strings.Contains(name, filter) {
			continue
		}

		entry := byName[name]
		jobs = append(jobs, jobSummary{
			Name:  name,
			Color: entry.StringOr("", "color"),
			URL:   entry.StringOr("", "url"),
		})
	}

	return jobs
}

func newJobsGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get JOB",
		Short: "Get job details",
		Long:  "Display detailed information about a specific job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, cleanup, err := CreateClient(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			details, err := describeJob(cmd.Context(), client, args[0])
			if err != nil {
				return err
			}

			return output(details, []string{"Property", "Value"}, func() [][]string {
				lastBuild := constants.NotAvailable
				if details.LastBuild > 0 {
					lastBuild = "#" + strconv.Itoa(details.LastBuild)
				}

				rows := [][]string{
					{"Name", details.Name},
					{"URL", details.URL},
					{"Description", orNA(truncateText(details.Description, constants.DescriptionDisplayLength))},
					{"Enabled", formatBool(details.Enabled)},
					{"Queued", formatBool(details.Queued)},
					{"Running", formatBool(details.Running)},
					{"Last Build", lastBuild},
					{"Upstream", orNA(strings.Join(details.Upstream, ", "))},
					{"Downstream", orNA(strings.Join(details.Downstream, ", "))},
				}

				for _, p := range details.Parameters {
					rows = append(rows, []string{"Parameter", fmt.Sprintf("%s (%s) default=%v", p.Name, p.Type, p.DefaultValue)})
				}

				return rows
			})
		},
	}
}

func describeJob(ctx context.Context, client jenkins.Jenkins, name string) (*jobDetails, error) {
	job, err := client.Job(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to get job %s: %w", name, err)
	}

	queued, err := job.IsQueued(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get queue state of %s: %w", name, err)
	}

	running, err := job.IsRunning(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get running state of %s: %w", name, err)
	}

	details := &jobDetails{
		Name:        job.Name(),
		URL:         job.BaseURL(),
		Description: job.Description(),
		Enabled:     job.IsEnabled(),
		Queued:      queued,
		Running:     running,
		Upstream:    job.UpstreamJobNames(),
		Downstream:  job.DownstreamJobNames(),
		Parameters:  job.Params(),
	}

	if n, err := job.BuildNumber(jenkins.LastBuild); err == nil {
		details.LastBuild = n
	}

	return details, nil
}

func newJobsBuildsCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "builds JOB",
		Short: "List builds of a job",
		Long:  "List the known builds of a job, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, cleanup, err := CreateClient(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			job, err := client.Job(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("failed to get job %s: %w", args[0], err)
			}

			builds := listBuilds(job, limit)

			return output(builds, []string{"Number", "URL"}, func() [][]string {
				rows := make([][]string, 0, len(builds))
				for _, b := range builds {
					rows = append(rows, []string{strconv.Itoa(b.Number), b.URL})
				}

				return rows
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "show at most this many builds (0 for all)")

	return cmd
}

func listBuilds(job jenkins.Job, limit int) []buildRef {
	ids := job.BuildIDs()
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}

	urls := job.BuildDict()

	builds := make([]buildRef, 0, len(ids))
	for _, id := range ids {
		builds = append(builds, buildRef{Number: id, URL: urls[id]})
	}

	return builds
}

func newJobsEnableCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "enable JOB",
		Short: "Enable a job",
		Long:  "Allow new builds of a disabled job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return toggleJob(cmd.Context(), args[0], true)
		},
	}
}

func newJobsDisableCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "disable JOB",
		Short: "Disable a job",
		Long:  "Prevent new builds of a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return toggleJob(cmd.Context(), args[0], false)
		},
	}
}

func toggleJob(ctx context.Context, name string, enable bool) error {
	client, cleanup, err := CreateClient(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	job, err := client.Job(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to get job %s: %w", name, err)
	}

	if enable {
		err = job.Enable(ctx)
	} else {
		err = job.Disable(ctx)
	}

	if err != nil {
		return fmt.Errorf("failed to update job %s: %w", name, err)
	}

	state := "disabled"
	if enable {
		state = "enabled"
	}

	fmt.Fprintf(os.Stdout, "Job %s %s\n", name, state)

	return nil
}

func newJobsDeleteCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete JOB",
		Short: "Delete a job",
		Long:  "Delete a job and all of its builds. Deleting an absent job does nothing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]

			if !force && !confirm(os.Stdin, fmt.Sprintf("Really delete job %s?", name)) {
				return constants.ErrConfirmationAbort
			}

			client, cleanup, err := CreateClient(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			err = client.Jobs().Delete(cmd.Context(), name)
			if err != nil {
				return fmt.Errorf("failed to delete job %s: %w", name, err)
			}

			fmt.Fprintf(os.Stdout, "Job %s deleted\n", name)

			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "skip confirmation")

	return cmd
}
