package config

import "os"

// envOverrides maps environment variables to config field setters.
var envOverrides = []struct {
	envVar string
	apply  func(*Config, string)
}{
	{
		envVar: "HEAT_DOCKER_CMD",
		apply: func(c *Config, v string) {
			c.DockerCmd.Command = v
		},
	},
	{
		envVar: "HEAT_SHELL_CONFIG",
		apply: func(c *Config, v string) {
			c.DockerCmd.ShellConfig = v
		},
	},
	{
		envVar: "HEAT_ANSIBLE_WORKING",
		apply: func(c *Config, v string) {
			c.Ansible.WorkingDir = v
		},
	},
	{
		envVar: "HEAT_ANSIBLE_OUTPUTS",
		apply: func(c *Config, v string) {
			c.Ansible.OutputsDir = v
		},
	},
	{
		envVar: "HEAT_ANSIBLE_CMD",
		apply: func(c *Config, v string) {
			c.Ansible.Command = v
		},
	},
	{
		envVar: "HEAT_ANSIBLE_INVENTORY",
		apply: func(c *Config, v string) {
			c.Ansible.Inventory = v
		},
	},
	{
		envVar: "HEAT_PUPPET_HIERA_DATADIR",
		apply: func(c *Config, v string) {
			c.Hiera.DataDir = v
		},
	},
	{
		envVar: "HEAT_HIERA_CONFIG",
		apply: func(c *Config, v string) {
			c.Hiera.ConfigFile = v
		},
	},
	{
		envVar: "HEAT_HIERA_ELEMENT_CHECK_CMD",
		apply: func(c *Config, v string) {
			c.Hiera.CheckCommand = v
		},
	},
	{
		envVar: "HEAT_CONFIG_LOG_LEVEL",
		apply: func(c *Config, v string) {
			c.LogLevel = v
		},
	},
}

// applyEnvOverrides modifies config in place with environment variable values.
func applyEnvOverrides(cfg *Config) {
	for _, override := range envOverrides {
		if val := os.Getenv(override.envVar); val != "" {
			override.apply(cfg, val)
		}
	}
}
