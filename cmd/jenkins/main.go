package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/fivetwenty-io/jenkins-client/cmd/jenkins/commands"
	"github.com/fivetwenty-io/jenkins-client/internal/constants"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "jenkins",
	Short: "Jenkins CLI",
	Long: `A command-line interface for a Jenkins server.

Request builds, inspect jobs, builds and their artifacts, and manage
nodes, views and the build queue.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.jenkins/config.yml)")
	rootCmd.PersistentFlags().StringP("url", "u", "", "Jenkins server URL")
	rootCmd.PersistentFlags().String("username", "", "user name for basic authentication")
	rootCmd.PersistentFlags().StringP("token", "t", "", "API token for basic authentication")
	rootCmd.PersistentFlags().Bool("ask-token", false, "prompt for the API token")
	rootCmd.PersistentFlags().Bool("use-crumb", false, "send CSRF crumbs with POST requests")
	rootCmd.PersistentFlags().String("output", constants.FormatTable, "output format (table, json, yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().Bool("skip-ssl-validation", false, "skip SSL certificate validation")
	rootCmd.PersistentFlags().String("nats-url", "", "publish change events to this NATS server")
	rootCmd.PersistentFlags().String("nats-prefix", "jenkins", "subject prefix for change events")

	// Bind flags to viper
	for _, name := range []string{
		"config", "url", "username", "token", "ask-token", "use-crumb", "output",
		"verbose", "skip-ssl-validation", "nats-url", "nats-prefix",
	} {
		_ = viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name))
	}

	// Add commands
	rootCmd.AddCommand(commands.NewVersionCommand(version, commit, date))
	rootCmd.AddCommand(commands.NewConfigCommand())
	rootCmd.AddCommand(commands.NewInvokeCommand())
	rootCmd.AddCommand(commands.NewJobsCommand())
	rootCmd.AddCommand(commands.NewBuildsCommand())
	rootCmd.AddCommand(commands.NewNodesCommand())
	rootCmd.AddCommand(commands.NewViewsCommand())
	rootCmd.AddCommand(commands.NewQueueCommand())
	rootCmd.AddCommand(commands.NewPluginsCommand())
}

func initConfig() {
	cfgFile := viper.GetString("config")

	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}

		// Search config in ~/.jenkins/config.yml
		viper.AddConfigPath(filepath.Join(home, ".jenkins"))
		viper.SetConfigType("yml")
		viper.SetConfigName("config")
	}

	// JENKINS_URL, JENKINS_TOKEN, JENKINS_USE_CRUMB, ...
	viper.SetEnvPrefix("JENKINS")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		if viper.GetBool("verbose") {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := rootCmd.ExecuteContext(ctx)

	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
