package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// NewVersionCommand creates the version command
func NewVersionCommand(version, commit, date string) *cobra.Command {
	var server bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Display version information",
		Long:  "Display detailed version information about the Jenkins CLI and, with --server, the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			type VersionInfo struct {
				Version string `json:"version"          yaml:"version"`
				Commit  string `json:"commit"           yaml:"commit"`
				Built   string `json:"built"            yaml:"built"`
				Server  string `json:"server,omitempty" yaml:"server,omitempty"`
			}

			versionInfo := VersionInfo{
				Version: version,
				Commit:  commit,
				Built:   date,
			}

			if server {
				client, cleanup, err := CreateClient(cmd.Context())
				if err != nil {
					return err
				}
				defer cleanup()

				versionInfo.Server, err = client.Version(cmd.Context())
				if err != nil {
					return fmt.Errorf("failed to get server version: %w", err)
				}
			}

			output := viper.GetString("output")
			switch output {
			case "json":
				encoder := json.NewEncoder(os.Stdout)
				encoder.SetIndent("", "  ")
				return encoder.Encode(versionInfo)
			case "yaml":
				encoder := yaml.NewEncoder(os.Stdout)
				return encoder.Encode(versionInfo)
			default:
				table := tablewriter.NewWriter(os.Stdout)
				table.Header("Property", "Value")
				_ = table.Append("Version", version)
				_ = table.Append("Commit", commit)
				_ = table.Append("Built", date)
				if server {
					_ = table.Append("Server", versionInfo.Server)
				}
				if err := table.Render(); err != nil {
					return fmt.Errorf("failed to render table: %w", err)
				}
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&server, "server", false, "also query the server version")

	return cmd
}
