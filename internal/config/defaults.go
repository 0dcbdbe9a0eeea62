package config

const (
	DefaultConfigPath        = "/etc/heat-config/heathook.yaml"
	DefaultLogLevel          = "info"
	DefaultDockerCommand     = "docker"
	DefaultShellConfig       = "/var/run/heat-config/heat-config"
	DefaultMaxNameAttempts   = 0 // unlimited
	DefaultReconcileInterval = "5m"
	DefaultAnsibleCommand    = "ansible-playbook"
	DefaultAnsibleWorkingDir = "/var/lib/heat-config/heat-config-ansible"
	DefaultAnsibleOutputsDir = "/var/run/heat-config/heat-config-ansible"
	DefaultAnsibleInventory  = "localhost,"
	DefaultHieraDataDir      = "/etc/puppet/hieradata"
	DefaultHieraConfigFile   = "/etc/puppet/hiera.yaml"
	DefaultHieraCheckCommand = "os-apply-config --key hiera.datafiles --type raw --key-default empty"
	DefaultNotifyRetries     = 10
	DefaultNotifyTimeout     = "30s"
)

// DefaultConfig returns a Config with all default values applied.
func DefaultConfig() *Config {
	return &Config{
		LogLevel: DefaultLogLevel,
		DockerCmd: DockerCmdConfig{
			Command:           DefaultDockerCommand,
			ShellConfig:       DefaultShellConfig,
			MaxNameAttempts:   DefaultMaxNameAttempts,
			ReconcileInterval: DefaultReconcileInterval,
		},
		Ansible: AnsibleConfig{
			Command:    DefaultAnsibleCommand,
			WorkingDir: DefaultAnsibleWorkingDir,
			OutputsDir: DefaultAnsibleOutputsDir,
			Inventory:  DefaultAnsibleInventory,
		},
		Hiera: HieraConfig{
			DataDir:      DefaultHieraDataDir,
			ConfigFile:   DefaultHieraConfigFile,
			CheckCommand: DefaultHieraCheckCommand,
		},
		Notify: NotifyConfig{
			Retries: DefaultNotifyRetries,
			Timeout: DefaultNotifyTimeout,
		},
	}
}
