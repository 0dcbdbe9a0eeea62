package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/RevCBH/heathook/internal/ansible"
	"github.com/RevCBH/heathook/internal/hiera"
	"github.com/RevCBH/heathook/internal/notify"
	"github.com/spf13/cobra"
)

// NewAnsibleCmd creates the ansible hook command
func NewAnsibleCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "ansible",
		Short: "Run the playbook of an ansible deployment read from stdin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.Ansible(cmd.Context())
		},
	}
}

// Ansible applies the ansible job on stdin
func (a *App) Ansible(ctx context.Context) error {
	cfg, log := a.hookSetup()

	h := ansible.New(a.runner, ansible.Settings{
		Command:    cfg.Ansible.Command,
		WorkingDir: cfg.Ansible.WorkingDir,
		OutputsDir: cfg.Ansible.OutputsDir,
		Inventory:  cfg.Ansible.Inventory,
	}, log)
	return a.runHook(ctx, log, h)
}

// NewHieraCmd creates the hiera hook command
func NewHieraCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "hiera",
		Short: "Write hiera config and data files from a deployment read from stdin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.Hiera(cmd.Context())
		},
	}
}

// Hiera applies the hiera job on stdin
func (a *App) Hiera(ctx context.Context) error {
	cfg, log := a.hookSetup()

	h := hiera.New(a.runner, hiera.Settings{
		DataDir:      cfg.Hiera.DataDir,
		ConfigFile:   cfg.Hiera.ConfigFile,
		CheckCommand: cfg.Hiera.CheckCommand,
	}, log)
	return a.runHook(ctx, log, h)
}

// NewNotifyCmd creates the notify command
func NewNotifyCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "notify <job-file>",
		Short: "Send signal data read from stdin to a deployment's signal target",
		Long: `Notify reads the deployment's job document from <job-file> and signal
data from stdin. Data that is empty or not valid JSON is sent as {}.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.Notify(cmd.Context(), args)
		},
	}
}

// Notify delivers stdin to the signal target of the job in args[0]
func (a *App) Notify(ctx context.Context, args []string) error {
	cfg, log, err := a.setup()
	if err != nil {
		return err
	}
	if len(args) == 0 {
		return errors.New("a job document path is required")
	}

	job, err := notify.LoadJob(args[0])
	if err != nil {
		return err
	}

	in := a.stdin
	if isTerminal(in) {
		in = strings.NewReader("")
	}
	data := notify.SignalData(in)

	timeout, err := cfg.NotifyTimeoutDuration()
	if err != nil {
		return fmt.Errorf("notify timeout: %w", err)
	}
	n := notify.New(a.httpClient, notify.Settings{Retries: cfg.Notify.Retries, Timeout: timeout}, log)

	err = n.Notify(ctx, job, data)
	if errors.Is(err, notify.ErrNoSignalTarget) {
		log.Infof("Job %s has no signal target, nothing to notify", job.ID)
		return nil
	}
	return err
}
