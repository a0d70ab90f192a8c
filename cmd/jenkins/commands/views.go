package commands

import (
	"fmt"

	"github.com/fivetwenty-io/jenkins-client/pkg/jenkins"
	"github.com/spf13/cobra"
)

type viewSummary struct {
	Name string `json:"name" yaml:"name"`
	URL  string `json:"url"  yaml:"url"`
}

// NewViewsCommand creates the views command group.
func NewViewsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "views",
		Aliases: []string{"view"},
		Short:   "Inspect views",
		Long:    "List views and the jobs they contain",
	}

	cmd.AddCommand(newViewsListCommand())
	cmd.AddCommand(newViewsJobsCommand())

	return cmd
}

func newViewsListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List views",
		Long:  "List the top-level views of the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, cleanup, err := CreateClient(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			views := listViews(client)

			return output(views, []string{"Name", "URL"}, func() [][]string {
				rows := make([][]string, 0, len(views))
				for _, v := range views {
					rows = append(rows, []string{v.Name, v.URL})
				}

				return rows
			})
		},
	}
}

func listViews(client jenkins.Jenkins) []viewSummary {
	urls := make(map[string]string)
	for _, entry := range client.Snapshot().ListOrEmpty("views") {
		urls[entry.StringOr("", "name")] = entry.StringOr("", "url")
	}

	keys := client.Views().Keys()

	views := make([]viewSummary, 0, len(keys))
	for _, name := range keys {
		views = append(views, viewSummary{Name: name, URL: urls[name]})
	}

	return views
}

func newViewsJobsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "jobs VIEW",
		Short: "List jobs in a view",
		Long:  "List the jobs a view contains",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, cleanup, err := CreateClient(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			view, err := client.Views().Get(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("failed to get view %s: %w", args[0], err)
			}

			urls := view.JobDict()
			names := view.JobNames()

			jobs := make([]jobSummary, 0, len(names))
			for _, name := range names {
				jobs = append(jobs, jobSummary{Name: name, URL: urls[name]})
			}

			return output(jobs, []string{"Name", "URL"}, func() [][]string {
				rows := make([][]string, 0, len(jobs))
				for _, job := range jobs {
					rows = append(rows, []string{job.Name, job.URL})
				}

				return rows
			})
		},
	}
}
