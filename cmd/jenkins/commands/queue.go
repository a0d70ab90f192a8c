package commands

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/fivetwenty-io/jenkins-client/pkg/jenkins"
	"github.com/spf13/cobra"
)

type queueEntry struct {
	ID        int    `json:"id"        yaml:"id"`
	Job       string `json:"job"       yaml:"job"`
	Why       string `json:"why"       yaml:"why"`
	Blocked   bool   `json:"blocked"   yaml:"blocked"`
	Cancelled bool   `json:"cancelled" yaml:"cancelled"`
}

// NewQueueCommand creates the queue command group.
func NewQueueCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Manage the build queue",
		Long:  "List pending build requests and cancel them",
	}

	cmd.AddCommand(newQueueListCommand())
	cmd.AddCommand(newQueueCancelCommand())

	return cmd
}

func newQueueListCommand() *cobra.Command {
	var jobName string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List queued items",
		Long:  "List the build requests waiting in the queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, cleanup, err := CreateClient(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			entries, err := listQueue(cmd.Context(), client, jobName)
			if err != nil {
				return err
			}

			return output(entries, []string{"ID", "Job", "Why", "Blocked"}, func() [][]string {
				rows := make([][]string, 0, len(entries))
				for _, e := range entries {
					rows = append(rows, []string{strconv.Itoa(e.ID), e.Job, orNA(e.Why), formatBool(e.Blocked)})
				}

				return rows
			})
		},
	}

	cmd.Flags().StringVarP(&jobName, "job", "j", "", "only list items of this job")

	return cmd
}

func listQueue(ctx context.Context, client jenkins.Jenkins, jobName string) ([]queueEntry, error) {
	queue, err := client.Queue(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get queue: %w", err)
	}

	var items []jenkins.QueueItem

	if jobName != "" {
		items, err = queue.ItemsForJob(ctx, jobName)
		if err != nil {
			return nil, fmt.Errorf("failed to get queue items of %s: %w", jobName, err)
		}
	} else {
		for _, id := range queue.Keys() {
			item, err := queue.Get(ctx, id)
			if err != nil {
				return nil, fmt.Errorf("failed to get queue item %d: %w", id, err)
			}

			items = append(items, item)
		}
	}

	entries := make([]queueEntry, 0, len(items))
	for _, item := range items {
		entries = append(entries, queueEntry{
			ID:        item.ID(),
			Job:       item.JobName(),
			Why:       item.Why(),
			Blocked:   item.IsBlocked(),
			Cancelled: item.IsCancelled(),
		})
	}

	return entries, nil
}

func newQueueCancelCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel ID",
		Short: "Cancel a queued item",
		Long:  "Remove a pending build request from the queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseQueueID(args[0])
			if err != nil {
				return err
			}

			client, cleanup, err := CreateClient(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			queue, err := client.Queue(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to get queue: %w", err)
			}

			err = queue.Cancel(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("failed to cancel queue item %d: %w", id, err)
			}

			fmt.Fprintf(os.Stdout, "Queue item %d cancelled\n", id)

			return nil
		},
	}
}
