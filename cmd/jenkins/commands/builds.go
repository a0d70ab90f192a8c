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

type buildDetails struct {
	Job           string         `json:"job"                  yaml:"job"`
	Number        int            `json:"number"               yaml:"number"`
	URL           string         `json:"url"                  yaml:"url"`
	Status        string         `json:"status"               yaml:"status"`
	Running       bool           `json:"running"              yaml:"running"`
	Duration      string         `json:"duration"             yaml:"duration"`
	Started       string         `json:"started"              yaml:"started"`
	BuiltOn       string         `json:"built_on,omitempty"   yaml:"built_on,omitempty"`
	Revision      string         `json:"revision,omitempty"   yaml:"revision,omitempty"`
	Upstream      string         `json:"upstream,omitempty"   yaml:"upstream,omitempty"`
	Artifacts     int            `json:"artifacts"            yaml:"artifacts"`
	Parameters    map[string]any `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	HasTestReport bool           `json:"has_test_report"      yaml:"has_test_report"`
}

type artifactInfo struct {
	Filename     string `json:"filename"           yaml:"filename"`
	RelativePath string `json:"relative_path"      yaml:"relative_path"`
	URL          string `json:"url"                yaml:"url"`
	SavedTo      string `json:"saved_to,omitempty" yaml:"saved_to,omitempty"`
}

// NewBuildsCommand creates the builds command group.
func NewBuildsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "builds",
		Aliases: []string{"build"},
		Short:   "Inspect builds",
		Long:    "Inspect builds, their console output and archived artifacts",
	}

	cmd.AddCommand(newBuildsGetCommand())
	cmd.AddCommand(newBuildsConsoleCommand())
	cmd.AddCommand(newBuildsArtifactsCommand())
	cmd.AddCommand(newBuildsStopCommand())

	return cmd
}

// resolveBuild returns the numbered build when args carries a number and
// the job's last build otherwise.
func resolveBuild(ctx context.Context, client jenkins.Jenkins, args []string) (jenkins.Build, error) {
	jobName := args[0]

	if len(args) > 1 {
		number, err := parseBuildNumber(args[1])
		if err != nil {
			return nil, err
		}

		build, err := client.Build(ctx, jobName, number)
		if err != nil {
			return nil, fmt.Errorf("failed to get build %s #%d: %w", jobName, number, err)
		}

		return build, nil
	}

	job, err := client.Job(ctx, jobName)
	if err != nil {
		return nil, fmt.Errorf("failed to get job %s: %w", jobName, err)
	}

	build, err := job.LastBuild(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get last build of %s: %w", jobName, err)
	}

	return build, nil
}

func newBuildsGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get JOB [NUMBER]",
		Short: "Get build details",
		Long:  "Display detailed information about a build, the last build by default",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, cleanup, err := CreateClient(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			build, err := resolveBuild(cmd.Context(), client, args)
			if err != nil {
				return err
			}

			details := describeBuild(args[0], build)

			return output(details, []string{"Property", "Value"}, func() [][]string {
				return [][]string{
					{"Job", details.Job},
					{"Number", strconv.Itoa(details.Number)},
					{"URL", details.URL},
					{"Status", details.Status},
					{"Duration", details.Duration},
					{"Started", details.Started},
					{"Built On", orNA(details.BuiltOn)},
					{"Revision", orNA(details.Revision)},
					{"Upstream", orNA(details.Upstream)},
					{"Artifacts", strconv.Itoa(details.Artifacts)},
					{"Test Report", formatBool(details.HasTestReport)},
				}
			})
		},
	}
}

func describeBuild(jobName string, build jenkins.Build) *buildDetails {
	status := build.Status()

	details := &buildDetails{
		Job:           jobName,
		Number:        build.Number(),
		URL:           build.BaseURL(),
		Status:        status,
		Running:       build.Snapshot().BoolOr(false, "building"),
		Duration:      build.Duration().Round(time.Second).String(),
		Started:       formatTime(build.Timestamp()),
		BuiltOn:       build.BuiltOn(),
		Artifacts:     len(build.Artifacts()),
		Parameters:    build.Params(),
		HasTestReport: build.HasResultSet(),
	}

	if details.Running && status == "" {
		details.Status = constants.StatusRunning
	}

	if revision, ok := build.Revision(); ok {
		details.Revision = revision
	}

	if upstream, ok := build.UpstreamJobName(); ok {
		number, _ := build.UpstreamBuildNumber()
		details.Upstream = fmt.Sprintf("%s #%d", upstream, number)
	}

	return details
}

func newBuildsConsoleCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "console JOB [NUMBER]",
		Short: "Print build console output",
		Long:  "Print the plain text console log of a build, the last build by default",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, cleanup, err := CreateClient(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			build, err := resolveBuild(cmd.Context(), client, args)
			if err != nil {
				return err
			}

			text, err := build.Console(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to get console output: %w", err)
			}

			_, err = fmt.Fprint(os.Stdout, text)

			return err
		},
	}
}

func newBuildsArtifactsCommand() *cobra.Command {
	var (
		dir    string
		strict bool
	)

	cmd := &cobra.Command{
		Use:   "artifacts JOB [NUMBER]",
		Short: "List or download build artifacts",
		Long:  "List the artifacts archived by a build, or download them with --download, verifying each against its fingerprint",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, cleanup, err := CreateClient(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			build, err := resolveBuild(cmd.Context(), client, args)
			if err != nil {
				return err
			}

			artifacts, err := collectArtifacts(cmd.Context(), build, dir, strict)
			if err != nil {
				return err
			}

			headers := []string{"File", "Path", "URL"}
			if dir != "" {
				headers = append(headers, "Saved To")
			}

			return output(artifacts, headers, func() [][]string {
				rows := make([][]string, 0, len(artifacts))

				for _, a := range artifacts {
					row := []string{a.Filename, a.RelativePath, a.URL}
					if dir != "" {
						row = append(row, a.SavedTo)
					}

					rows = append(rows, row)
				}

				return rows
			})
		},
	}

	cmd.Flags().StringVarP(&dir, "download", "d", "", "download every artifact into this directory")
	cmd.Flags().BoolVar(&strict, "strict", false, "fail when the server has no fingerprint for an artifact")

	return cmd
}

// collectArtifacts lists the build's artifacts and, when dir is set,
// downloads each one into it.
func collectArtifacts(ctx context.Context, build jenkins.Build, dir string, strict bool) ([]artifactInfo, error) {
	if dir != "" {
		err := os.MkdirAll(dir, constants.ConfigDirPerm)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	artifacts := build.Artifacts()
	infos := make([]artifactInfo, 0, len(artifacts))

	for _, artifact := range artifacts {
		info := artifactInfo{
			Filename:     artifact.Filename(),
			RelativePath: artifact.RelativePath(),
			URL:          artifact.URL(),
		}

		if dir != "" {
			path, err := artifact.SaveToDir(ctx, dir, strict)
			if err != nil {
				return nil, fmt.Errorf("failed to save %s: %w", info.RelativePath, err)
			}

			info.SavedTo = path
		}

		infos = append(infos, info)
	}

	return infos, nil
}

func newBuildsStopCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stop JOB NUMBER",
		Short: "Stop a running build",
		Long:  "Abort a running build. Stopping a finished build does nothing",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, cleanup, err := CreateClient(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			build, err := resolveBuild(cmd.Context(), client, args)
			if err != nil {
				return err
			}

			err = build.Stop(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to stop %s #%d: %w", args[0], build.Number(), err)
			}

			fmt.Fprintf(os.Stdout, "Build %s #%d stopped\n", args[0], build.Number())

			return nil
		},
	}
}
