package jenkins

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// LaunchType selects how the server starts a node's agent.
type LaunchType string

const (
	LaunchJNLP LaunchType = "jnlp"
	LaunchSSH  LaunchType = "ssh"
)

// Retention selects when the server keeps a node online.
type Retention string

const (
	RetainAlways   Retention = "always"
	RetainOnDemand Retention = "ondemand"
)

// Node defaults.
const (
	DefaultNumExecutors = 2
	DefaultRemoteFS     = "/var/lib/jenkins"
	DefaultSSHPort      = 22
)

var nodeValidate = validator.New()

// NodeConfig describes an agent to create. SSH nodes require Host and
// CredentialDescription; the description is resolved to a credential id
// through the credential store when the node is created.
type NodeConfig struct {
	NumExecutors int        `json:"num_executors" yaml:"num_executors" validate:"gte=1,lte=1024"`
	Description  string     `json:"description"   yaml:"description"`
	RemoteFS     string     `json:"remote_fs"     yaml:"remote_fs"     validate:"required"`
	Labels       []string   `json:"labels"        yaml:"labels"        validate:"dive,required"`
	Exclusive    bool       `json:"exclusive"     yaml:"exclusive"`
	Launcher     LaunchType `json:"launcher"      yaml:"launcher"      validate:"oneof=jnlp ssh"`
	Retention    Retention  `json:"retention"     yaml:"retention"     validate:"oneof=always ondemand"`

	// On-demand retention delays, in minutes.
	OnDemandDelay     int `json:"ondemand_delay"      yaml:"ondemand_delay"      validate:"gte=0"`
	OnDemandIdleDelay int `json:"ondemand_idle_delay" yaml:"ondemand_idle_delay" validate:"gte=0"`

	Host                  string `json:"host"                    yaml:"host"                    validate:"required_if=Launcher ssh"`
	Port                  int    `json:"port"                    yaml:"port"                    validate:"gte=0,lte=65535"`
	CredentialDescription string `json:"credential_description" yaml:"credential_description" validate:"required_if=Launcher ssh"`
	JVMOptions            string `json:"jvm_options"             yaml:"jvm_options"`
	JavaPath              string `json:"java_path"               yaml:"java_path"`
	PrefixStartSlaveCmd   string `json:"prefix_start_slave_cmd"  yaml:"prefix_start_slave_cmd"`
	SuffixStartSlaveCmd   string `json:"suffix_start_slave_cmd"  yaml:"suffix_start_slave_cmd"`
	MaxNumRetries         int    `json:"max_num_retries"         yaml:"max_num_retries"         validate:"gte=0"`
	RetryWaitTime         int    `json:"retry_wait_time"         yaml:"retry_wait_time"         validate:"gte=0"`

	Env map[string]string `json:"env" yaml:"env"`
}

// WithDefaults returns a copy with unset fields filled in.
func (c NodeConfig) WithDefaults() NodeConfig {
	if c.NumExecutors == 0 {
		c.NumExecutors = DefaultNumExecutors
	}

	if c.RemoteFS == "" {
		c.RemoteFS = DefaultRemoteFS
	}

	if c.Launcher == "" {
		c.Launcher = LaunchJNLP
	}

	if c.Retention == "" {
		c.Retention = RetainAlways
	}

	if c.Launcher == LaunchSSH && c.Port == 0 {
		c.Port = DefaultSSHPort
	}

	return c
}

// Validate checks the mandatory fields for the configured launch type.
// Failures wrap ErrContractViolation.
func (c NodeConfig) Validate() error {
	err := nodeValidate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %w", ErrContractViolation, err)
	}

	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
	}

	return fmt.Errorf("%w: invalid node config: %s", ErrContractViolation, strings.Join(fields, ", "))
}

// LabelString joins labels the way the server stores them.
func (c NodeConfig) LabelString() string {
	return strings.Join(c.Labels, " ")
}
