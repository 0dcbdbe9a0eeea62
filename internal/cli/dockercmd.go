package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/RevCBH/heathook/internal/dockercmd"
	"github.com/RevCBH/heathook/internal/engine"
	"github.com/RevCBH/heathook/internal/naming"
	"github.com/RevCBH/heathook/internal/reconcile"
	"github.com/spf13/cobra"
)

// NewDockerCmdCmd creates the docker-cmd hook command and its operator
// subcommands
func NewDockerCmdCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docker-cmd",
		Short: "Apply a docker-cmd deployment read from stdin",
		Long: `docker-cmd starts the containers described by the job's config, in
start_order, and runs exec entries inside containers started earlier.

The result document carries the joined output of every engine command and
the exit code of the last entry that failed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.DockerCmd(cmd.Context())
		},
	}

	cmd.AddCommand(NewCleanupCmd(app), NewListCmd(app))
	return cmd
}

// DockerCmd applies the docker-cmd job on stdin
func (a *App) DockerCmd(ctx context.Context) error {
	cfg, log := a.hookSetup()

	client := engine.NewClient(a.runner, cfg.DockerCmd.Command, log)
	resolver := naming.NewResolver(client)
	resolver.MaxAttempts = cfg.DockerCmd.MaxNameAttempts

	return a.runHook(ctx, log, dockercmd.NewExecutor(client, resolver, log))
}

// CleanupOptions holds flags for the cleanup command
type CleanupOptions struct {
	Configs     string        // File or directory of active job documents
	Watch       bool          // Keep running and reconcile on change
	MetricsFile string        // Prometheus textfile written after each pass
	Interval    time.Duration // Periodic pass in watch mode
}

// NewCleanupCmd creates the cleanup command
func NewCleanupCmd(app *App) *cobra.Command {
	opts := CleanupOptions{}

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Remove withdrawn containers and restore drifted names",
		Long: `Cleanup compares the containers managed by docker-cmd with the active
job documents. Containers whose config id no longer appears in any active
docker-cmd document are removed. Containers of active documents that carry a
suffixed name are renamed back to their logical name when it is free.

Use --watch to keep reconciling whenever the documents change.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.Cleanup(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.Configs, "configs", "", "Active job documents (default from config shell_config)")
	cmd.Flags().BoolVar(&opts.Watch, "watch", false, "Reconcile again whenever the documents change")
	cmd.Flags().StringVar(&opts.MetricsFile, "metrics-file", "", "Write reconcile counters to this Prometheus textfile")
	cmd.Flags().DurationVar(&opts.Interval, "interval", 0, "Periodic reconcile in watch mode (default from config)")

	return cmd
}

// Cleanup runs one reconcile pass, or keeps reconciling in watch mode
func (a *App) Cleanup(ctx context.Context, opts CleanupOptions) error {
	cfg, log, err := a.setup()
	if err != nil {
		return err
	}

	if opts.Configs == "" {
		opts.Configs = cfg.DockerCmd.ShellConfig
	}
	if opts.MetricsFile == "" {
		opts.MetricsFile = cfg.DockerCmd.MetricsFile
	}
	if opts.Interval == 0 {
		opts.Interval, err = cfg.ReconcileIntervalDuration()
		if err != nil {
			return fmt.Errorf("reconcile interval: %w", err)
		}
	}

	client := engine.NewClient(a.runner, cfg.DockerCmd.Command, log)
	r := reconcile.New(client, log, reconcile.NewMetrics())
	r.MetricsFile = opts.MetricsFile

	if !opts.Watch {
		_, err := r.ReconcilePath(ctx, opts.Configs)
		return err
	}

	log.Infof("Watching %s", opts.Configs)
	return r.Watch(ctx, opts.Configs, reconcile.WatchOptions{Interval: opts.Interval})
}
