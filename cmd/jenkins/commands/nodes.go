package commands

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/fivetwenty-io/jenkins-client/internal/constants"
	"github.com/fivetwenty-io/jenkins-client/pkg/jenkins"
	"github.com/spf13/cobra"
)

type nodeSummary struct {
	Name          string `json:"name"                     yaml:"name"`
	Status        string `json:"status"                   yaml:"status"`
	Temporarily   bool   `json:"temporarily_offline"      yaml:"temporarily_offline"`
	Idle          bool   `json:"idle"                     yaml:"idle"`
	Executors     int    `json:"executors"                yaml:"executors"`
	OfflineReason string `json:"offline_reason,omitempty" yaml:"offline_reason,omitempty"`
}

// NewNodesCommand creates the nodes command group.
func NewNodesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "nodes",
		Aliases: []string{"node", "computers"},
		Short:   "Manage build nodes",
		Long:    "List build nodes and take them online or offline",
	}

	cmd.AddCommand(newNodesListCommand())
	cmd.AddCommand(newNodesOnlineCommand())
	cmd.AddCommand(newNodesOfflineCommand())

	return cmd
}

func newNodesListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List nodes",
		Long:  "List the controller and every agent with their online state",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, cleanup, err := CreateClient(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			nodes, err := client.Nodes(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list nodes: %w", err)
			}

			summaries := summarizeNodes(nodes)

			return output(summaries, []string{"Name", "Status", "Idle", "Executors", "Offline Reason"}, func() [][]string {
				rows := make([][]string, 0, len(summaries))
				for _, n := range summaries {
					rows = append(rows, []string{n.Name, n.Status, formatBool(n.Idle), strconv.Itoa(n.Executors), orNA(n.OfflineReason)})
				}

				return rows
			})
		},
	}
}

// summarizeNodes reads node state from the collection snapshot without
// fetching each node.
func summarizeNodes(nodes jenkins.Nodes) []nodeSummary {
	entries := nodes.Snapshot().ListOrEmpty("computer")
	summaries := make([]nodeSummary, 0, len(entries))

	for _, entry := range entries {
		status := constants.StatusOnline
		if entry.BoolOr(false, "offline") {
			status = constants.StatusOffline
		}

		executors, _ := entry.Int("numExecutors")

		summaries = append(summaries, nodeSummary{
			Name:          entry.StringOr("", "displayName"),
			Status:        status,
			Temporarily:   entry.BoolOr(false, "temporarilyOffline"),
			Idle:          entry.BoolOr(false, "idle"),
			Executors:     executors,
			OfflineReason: entry.StringOr("", "offlineCauseReason"),
		})
	}

	return summaries
}

func newNodesOnlineCommand() *cobra.Command {
	var (
		wait    bool
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "online NODE",
		Short: "Bring a node online",
		Long:  "Clear the temporarily offline flag of a node and optionally wait until it is connected",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withNode(cmd.Context(), args[0], func(ctx context.Context, node jenkins.Node) error {
				err := node.SetOnline(ctx)
				if err != nil {
					return err
				}

				if wait {
					return node.BlockUntilOnline(ctx, constants.DefaultNodePollInterval, timeout)
				}

				return nil
			}, "online")
		},
	}

	cmd.Flags().BoolVarP(&wait, "wait", "w", false, "wait until the node is connected")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "give up waiting after this long (0 waits indefinitely)")

	return cmd
}

func newNodesOfflineCommand() *cobra.Command {
	var message string

	cmd := &cobra.Command{
		Use:   "offline NODE",
		Short: "Take a node offline",
		Long:  "Mark a node temporarily offline so it accepts no new builds",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withNode(cmd.Context(), args[0], func(ctx context.Context, node jenkins.Node) error {
				return node.SetOffline(ctx, message)
			}, "offline")
		},
	}

	cmd.Flags().StringVarP(&message, "message", "m", "", "reason shown for the node being offline")

	return cmd
}

func withNode(ctx context.Context, name string, fn func(context.Context, jenkins.Node) error, state string) error {
	client, cleanup, err := CreateClient(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	nodes, err := client.Nodes(ctx)
	if err != nil {
		return fmt.Errorf("failed to list nodes: %w", err)
	}

	node, err := nodes.Get(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to get node %s: %w", name, err)
	}

	err = fn(ctx, node)
	if err != nil {
		return fmt.Errorf("failed to set node %s %s: %w", name, state, err)
	}

	fmt.Fprintf(os.Stdout, "Node %s is %s\n", name, state)

	return nil
}
