package commands

import (
	"fmt"

	"github.com/fivetwenty-io/jenkins-client/pkg/jenkins"
	"github.com/spf13/cobra"
)

// NewPluginsCommand creates the plugins command group.
func NewPluginsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "plugins",
		Aliases: []string{"plugin"},
		Short:   "Inspect plugins",
		Long:    "List installed plugins and their versions",
	}

	cmd.AddCommand(newPluginsListCommand())

	return cmd
}

func newPluginsListCommand() *cobra.Command {
	var updatesOnly bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List plugins",
		Long:  "List installed plugins with their version and state",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, cleanup, err := CreateClient(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			plugins, err := client.Plugins(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list plugins: %w", err)
			}

			list := collectPlugins(plugins, updatesOnly)

			return output(list, []string{"Name", "Version", "Enabled", "Active", "Update"}, func() [][]string {
				rows := make([][]string, 0, len(list))
				for _, p := range list {
					rows = append(rows, []string{p.ShortName, p.Version, formatBool(p.Enabled), formatBool(p.Active), formatBool(p.HasUpdate)})
				}

				return rows
			})
		},
	}

	cmd.Flags().BoolVar(&updatesOnly, "updates", false, "only list plugins with an update available")

	return cmd
}

func collectPlugins(plugins jenkins.Plugins, updatesOnly bool) []jenkins.Plugin {
	keys := plugins.Keys()
	list := make([]jenkins.Plugin, 0, len(keys))

	for _, name := range keys {
		plugin, err := plugins.Get(name)
		if err != nil {
			continue
		}

		if updatesOnly && !plugin.HasUpdate {
			continue
		}

		list = append(list, plugin)
	}

	return list
}
