package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the hooks.
// It is immutable after creation via Load().
type Config struct {
	// LogLevel controls log verbosity (debug, info, warn, error)
	LogLevel string `yaml:"log_level"`

	// DockerCmd configures the docker-cmd hook and its reconciler
	DockerCmd DockerCmdConfig `yaml:"docker_cmd"`

	// Ansible configures the ansible hook
	Ansible AnsibleConfig `yaml:"ansible"`

	// Hiera configures the hiera hook
	Hiera HieraConfig `yaml:"hiera"`

	// Notify configures signal delivery
	Notify NotifyConfig `yaml:"notify"`
}

// DockerCmdConfig controls the container engine and the reconciler.
type DockerCmdConfig struct {
	// Command is the path or name of the container engine CLI
	Command string `yaml:"command"`

	// ShellConfig is the file or directory holding every active job document
	ShellConfig string `yaml:"shell_config"`

	// MaxNameAttempts caps suffixed name retries (0 = unlimited)
	MaxNameAttempts int `yaml:"max_name_attempts"`

	// ReconcileInterval re-runs the reconciler in watch mode ("0s" disables)
	ReconcileInterval string `yaml:"reconcile_interval"`

	// MetricsFile receives reconciler counters in Prometheus text format
	MetricsFile string `yaml:"metrics_file,omitempty"`
}

// AnsibleConfig locates ansible-playbook and its scratch directories.
type AnsibleConfig struct {
	Command    string `yaml:"command"`
	WorkingDir string `yaml:"working_dir"`
	OutputsDir string `yaml:"outputs_dir"`
	Inventory  string `yaml:"inventory"`
}

// HieraConfig locates hiera's files.
type HieraConfig struct {
	DataDir    string `yaml:"datadir"`
	ConfigFile string `yaml:"config_file"`

	// CheckCommand looks for os-apply-config hieradata; split on spaces
	CheckCommand string `yaml:"check_command"`
}

// NotifyConfig controls signal delivery.
type NotifyConfig struct {
	// Retries is the total number of delivery attempts
	Retries int `yaml:"retries"`

	// Timeout bounds each attempt
	Timeout string `yaml:"timeout"`
}

// ReconcileIntervalDuration parses the reconcile interval as a Duration.
func (c *Config) ReconcileIntervalDuration() (time.Duration, error) {
	return time.ParseDuration(c.DockerCmd.ReconcileInterval)
}

// NotifyTimeoutDuration parses the notify timeout as a Duration.
func (c *Config) NotifyTimeoutDuration() (time.Duration, error) {
	return time.ParseDuration(c.Notify.Timeout)
}

// Load builds the configuration. It applies defaults, then values from
// the YAML file at path, then environment overrides, then validates.
// A missing file is not an error; an empty path means DefaultConfigPath.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = DefaultConfigPath
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case !os.IsNotExist(err):
		return nil, fmt.Errorf("read config: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}
