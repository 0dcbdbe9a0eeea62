package config

import (
	"errors"
	"fmt"
	"time"
)

// ValidationError contains details about what failed validation.
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config.%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// validateConfig checks all config values for validity.
// Returns nil if valid, or joined errors for all validation failures.
func validateConfig(cfg *Config) error {
	var errs []error

	notEmpty := func(field, value string) {
		if value == "" {
			errs = append(errs, &ValidationError{
				Field:   field,
				Value:   value,
				Message: "must not be empty",
			})
		}
	}
	notEmpty("docker_cmd.command", cfg.DockerCmd.Command)
	notEmpty("docker_cmd.shell_config", cfg.DockerCmd.ShellConfig)
	notEmpty("ansible.command", cfg.Ansible.Command)
	notEmpty("ansible.working_dir", cfg.Ansible.WorkingDir)
	notEmpty("ansible.outputs_dir", cfg.Ansible.OutputsDir)
	notEmpty("ansible.inventory", cfg.Ansible.Inventory)
	notEmpty("hiera.datadir", cfg.Hiera.DataDir)
	notEmpty("hiera.config_file", cfg.Hiera.ConfigFile)
	notEmpty("hiera.check_command", cfg.Hiera.CheckCommand)

	// DockerCmd.MaxNameAttempts must be >= 0 (0 = unlimited)
	if cfg.DockerCmd.MaxNameAttempts < 0 {
		errs = append(errs, &ValidationError{
			Field:   "docker_cmd.max_name_attempts",
			Value:   cfg.DockerCmd.MaxNameAttempts,
			Message: "must be non-negative (0 = unlimited)",
		})
	}

	if d, err := time.ParseDuration(cfg.DockerCmd.ReconcileInterval); err != nil || d < 0 {
		errs = append(errs, &ValidationError{
			Field:   "docker_cmd.reconcile_interval",
			Value:   cfg.DockerCmd.ReconcileInterval,
			Message: "must be a non-negative duration",
		})
	}

	// Notify.Retries must be >= 1
	if cfg.Notify.Retries < 1 {
		errs = append(errs, &ValidationError{
			Field:   "notify.retries",
			Value:   cfg.Notify.Retries,
			Message: "must be at least 1",
		})
	}

	if _, err := time.ParseDuration(cfg.Notify.Timeout); err != nil {
		errs = append(errs, &ValidationError{
			Field:   "notify.timeout",
			Value:   cfg.Notify.Timeout,
			Message: fmt.Sprintf("invalid duration: %v", err),
		})
	}

	// LogLevel must be one of: debug, info, warn, error (case-sensitive)
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[cfg.LogLevel] {
		errs = append(errs, &ValidationError{
			Field:   "log_level",
			Value:   cfg.LogLevel,
			Message: "must be one of: debug, info, warn, error",
		})
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
