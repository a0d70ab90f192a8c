package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/fivetwenty-io/jenkins-client/internal/constants"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config represents the CLI configuration file. Keys match the global flag
// names so viper resolves flags, JENKINS_* variables and the file alike.
type Config struct {
	URL               string `json:"url,omitempty"         yaml:"url,omitempty"`
	Username          string `json:"username,omitempty"    yaml:"username,omitempty"`
	Token             string `json:"token,omitempty"       yaml:"token,omitempty"`
	UseCrumb          bool   `json:"use-crumb"             yaml:"use-crumb"`
	SkipSSLValidation bool   `json:"skip-ssl-validation"   yaml:"skip-ssl-validation"`
	Output            string `json:"output,omitempty"      yaml:"output,omitempty"`
	NATSURL           string `json:"nats-url,omitempty"    yaml:"nats-url,omitempty"`
	NATSPrefix        string `json:"nats-prefix,omitempty" yaml:"nats-prefix,omitempty"`
}

// NewConfigCommand creates the config command group.
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage CLI configuration",
		Long:  "Show and change the Jenkins CLI configuration file",
	}

	cmd.AddCommand(newConfigShowCommand())
	cmd.AddCommand(newConfigSetCommand())

	return cmd
}

func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Long:  "Display the effective configuration with the API token masked",
		RunE: func(cmd *cobra.Command, args []string) error {
			config := maskConfig(loadConfig())

			return output(config, []string{"Key", "Value"}, func() [][]string {
				return [][]string{
					{"url", orNA(config.URL)},
					{"username", orNA(config.Username)},
					{"token", orNA(config.Token)},
					{"use-crumb", strconv.FormatBool(config.UseCrumb)},
					{"skip-ssl-validation", strconv.FormatBool(config.SkipSSLValidation)},
					{"output", orNA(config.Output)},
					{"nats-url", orNA(config.NATSURL)},
					{"nats-prefix", orNA(config.NATSPrefix)},
				}
			})
		},
	}
}

func newConfigSetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Set a configuration value",
		Long:  "Set a configuration value and save it to the configuration file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			config := loadConfig()

			err := setConfigValue(config, args[0], args[1])
			if err != nil {
				return err
			}

			err = saveConfigStruct(config)
			if err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}

			fmt.Fprintf(os.Stdout, "Set %s\n", args[0])

			return nil
		},
	}
}

func loadConfig() *Config {
	return &Config{
		URL:               viper.GetString("url"),
		Username:          viper.GetString("username"),
		Token:             viper.GetString("token"),
		UseCrumb:          viper.GetBool("use-crumb"),
		SkipSSLValidation: viper.GetBool("skip-ssl-validation"),
		Output:            viper.GetString("output"),
		NATSURL:           viper.GetString("nats-url"),
		NATSPrefix:        viper.GetString("nats-prefix"),
	}
}

func maskConfig(config *Config) *Config {
	masked := *config
	if masked.Token != "" {
		masked.Token = constants.MaskedSecret
	}

	return &masked
}

func setConfigValue(config *Config, key, value string) error {
	switch key {
	case "url":
		config.URL = value
	case "username":
		config.Username = value
	case "token":
		config.Token = value
	case "output":
		switch value {
		case constants.FormatTable, constants.FormatJSON, constants.FormatYAML:
			config.Output = value
		default:
			return fmt.Errorf("%w: %s", constants.ErrInvalidOutput, value)
		}
	case "nats-url":
		config.NATSURL = value
	case "nats-prefix":
		config.NATSPrefix = value
	case "use-crumb", "skip-ssl-validation":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%s: %w", key, constants.ErrInvalidBoolValue)
		}

		if key == "use-crumb" {
			config.UseCrumb = b
		} else {
			config.SkipSSLValidation = b
		}
	default:
		return fmt.Errorf("%w: %s", constants.ErrUnknownConfigKey, key)
	}

	return nil
}

func saveConfigStruct(config *Config) error {
	configFile := viper.ConfigFileUsed()
	if configFile == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get user home directory: %w", err)
		}

		configDir := filepath.Join(home, ".jenkins")

		err = os.MkdirAll(configDir, constants.ConfigDirPerm)
		if err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}

		configFile = filepath.Join(configDir, "config.yml")
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	err = os.WriteFile(configFile, data, constants.ConfigFilePerm)
	if err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
