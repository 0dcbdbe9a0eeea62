package cli

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/RevCBH/heathook/internal/config"
	"github.com/RevCBH/heathook/internal/hook"
	"github.com/RevCBH/heathook/internal/logging"
	"github.com/RevCBH/heathook/internal/runner"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// App represents the CLI application with all wired dependencies
type App struct {
	// Root command
	rootCmd *cobra.Command

	// External collaborators, swapped out in tests
	runner     runner.Runner
	httpClient *http.Client
	stdin      io.Reader
	stdout     io.Writer
	stderr     io.Writer

	// Persistent flags
	configPath string
	logLevel   string
	verbose    bool

	// Version information
	versionInfo VersionInfo
}

// VersionInfo holds build metadata set via ldflags
type VersionInfo struct {
	Version string
	Commit  string
	Date    string
}

// New creates a new CLI application
func New() *App {
	app := &App{
		runner:     runner.OSRunner{},
		httpClient: http.DefaultClient,
		stdin:      os.Stdin,
		stdout:     os.Stdout,
		stderr:     os.Stderr,
	}
	app.setupRootCmd()
	return app
}

// Execute runs the CLI application. SIGINT and SIGTERM cancel the command's
// context, which stops watch mode and any engine call in flight.
func (a *App) Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.rootCmd.ExecuteContext(ctx)
}

// SetVersion sets the version string for the version command
func (a *App) SetVersion(version, commit, date string) {
	a.versionInfo = VersionInfo{Version: version, Commit: commit, Date: date}
}

// setupRootCmd configures the root Cobra command
func (a *App) setupRootCmd() {
	a.rootCmd = &cobra.Command{
		Use:   "heathook",
		Short: "Heat software-deployment hooks",
		Long: `heathook applies Heat software-deployment jobs. Each hook reads one
JSON job document on stdin and writes one JSON result document on stdout.
Logs go to stderr.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Add persistent flags
	a.rootCmd.PersistentFlags().StringVar(&a.configPath, "config", "",
		"Config file (default "+config.DefaultConfigPath+")")
	a.rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "",
		"Log level: debug, info, warn, error (overrides config)")
	a.rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false,
		"Verbose output (same as --log-level debug)")

	a.rootCmd.AddCommand(
		NewDockerCmdCmd(a),
		NewAnsibleCmd(a),
		NewHieraCmd(a),
		NewNotifyCmd(a),
		NewVersionCmd(a),
	)
}

// setup loads the configuration and builds the logger. Flags win over the
// config file and environment.
func (a *App) setup() (*config.Config, *logrus.Logger, error) {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return nil, nil, err
	}

	level := a.level(cfg)
	log, err := logging.New(level, a.stderr)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return cfg, log, nil
}

// hookSetup is setup for the stdin hooks, which always answer with a result
// document: a config that fails to load is replaced by the defaults and an
// unknown log level by info, each with a warning.
func (a *App) hookSetup() (*config.Config, *logrus.Logger) {
	cfg, cfgErr := config.Load(a.configPath)
	if cfgErr != nil {
		cfg = config.DefaultConfig()
	}

	level := a.level(cfg)
	log, err := logging.New(level, a.stderr)
	if err != nil {
		log, _ = logging.New(config.DefaultLogLevel, a.stderr)
		log.Warnf("Invalid log level %q, using %s", level, config.DefaultLogLevel)
	}
	if cfgErr != nil {
		log.WithError(cfgErr).Warn("Using default configuration")
	}
	return cfg, log
}

func (a *App) level(cfg *config.Config) string {
	switch {
	case a.verbose:
		return "debug"
	case a.logLevel != "":
		return a.logLevel
	}
	return cfg.LogLevel
}

// applier is a hook turning one job into one result.
type applier interface {
	Apply(ctx context.Context, job *hook.Job) hook.Response
}

// runHook reads the job from stdin, applies it and writes the result. Input
// that cannot be read yields the zero result so the caller always gets a
// document back.
func (a *App) runHook(ctx context.Context, log logrus.FieldLogger, h applier) error {
	resp := hook.Empty()
	if job, ok := a.readJob(log); ok {
		resp = h.Apply(ctx, job)
	}
	return resp.Write(a.stdout)
}

func (a *App) readJob(log logrus.FieldLogger) (*hook.Job, bool) {
	if isTerminal(a.stdin) {
		log.Warn("No job document on stdin, stdin is a terminal")
		return nil, false
	}
	job, err := hook.Decode(a.stdin)
	if err != nil {
		log.WithError(err).Warn("Could not read job document")
		return nil, false
	}
	return job, true
}

// isTerminal reports whether v is a file attached to a terminal.
func isTerminal(v any) bool {
	f, ok := v.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
