package dockercmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/RevCBH/heathook/internal/hook"
	"github.com/RevCBH/heathook/internal/labels"
	"github.com/RevCBH/heathook/internal/runner"
	"github.com/sirupsen/logrus"
)

// Status codes the executor reports for failures that are not a
// sub-command's own exit code.
const (
	StatusInvalidEntry  = 1
	StatusLaunchFailure = 127
)

// Engine is the slice of the engine client the executor drives.
type Engine interface {
	Invoke(ctx context.Context, args ...string) (runner.Result, error)
	DiscoverName(ctx context.Context, logical, configID string) (string, error)
}

// NameResolver picks a free physical name for a logical one.
type NameResolver interface {
	Resolve(ctx context.Context, base string) (string, error)
}

// Executor applies one desired-state document to the engine.
type Executor struct {
	engine   Engine
	resolver NameResolver
	log      logrus.FieldLogger
}

// NewExecutor wires an Executor.
func NewExecutor(engine Engine, resolver NameResolver, log logrus.FieldLogger) *Executor {
	return &Executor{engine: engine, resolver: resolver, log: log}
}

// Apply handles a docker-cmd job end to end: short-circuits, parsing, and
// execution. It always returns a result document.
func (e *Executor) Apply(ctx context.Context, job *hook.Job) hook.Response {
	if job.Input(hook.InputDeployAction) == hook.ActionDelete {
		return hook.Empty()
	}
	if !job.HasConfig() {
		e.log.Debug("No 'config' input found, nothing to do.")
		return hook.Empty()
	}

	entries, err := ParseConfig(job.Config)
	if err != nil {
		e.log.Warnf("Ignoring config %s: %v", job.ID, err)
		return hook.Empty()
	}
	if len(entries) == 0 {
		return hook.Empty()
	}

	base := labels.Set{
		StackID:      job.Input(hook.InputDeployStackID),
		ResourceName: job.Input(hook.InputDeployResourceName),
		ConfigID:     job.ID,
		ManagedBy:    labels.ManagedByDockerCmd,
	}
	return e.Execute(ctx, job.ID, entries, base)
}

// Execute runs entries in start order. A failing entry records its exit
// code and the batch carries on; only an engine that cannot be launched
// stops it.
func (e *Executor) Execute(ctx context.Context, configID string, entries []Entry, base labels.Set) hook.Response {
	var stdout, stderr []string
	status := 0

	for _, entry := range Ordered(entries) {
		if entry.Err != nil {
			e.log.Error(entry.Err)
			stderr = append(stderr, entry.Err.Error())
			status = StatusInvalidEntry
			continue
		}

		args, err := e.argsFor(ctx, configID, entry, base)
		if err == nil {
			var res runner.Result
			res, err = e.engine.Invoke(ctx, args...)
			if err == nil {
				if res.Stdout != "" {
					stdout = append(stdout, res.Stdout)
				}
				if res.Stderr != "" {
					stderr = append(stderr, res.Stderr)
				}
				if !entry.Succeeded(res.ExitCode) {
					e.log.Errorf("Error running %s. [%d]", strings.Join(args, " "), res.ExitCode)
					status = res.ExitCode
				}
				continue
			}
		}

		e.log.WithError(err).Errorf("Container %s not applied", entry.Name)
		stderr = append(stderr, err.Error())
		if runner.IsLaunchFailure(err) {
			status = StatusLaunchFailure
			break
		}
		status = StatusInvalidEntry
		if ctx.Err() != nil {
			break
		}
	}

	return hook.Joined(stdout, stderr, status)
}

func (e *Executor) argsFor(ctx context.Context, configID string, entry Entry, base labels.Set) ([]string, error) {
	switch spec := entry.Action.(type) {
	case RunSpec:
		name, err := e.resolver.Resolve(ctx, entry.Name)
		if err != nil {
			return nil, fmt.Errorf("container %s: %w", entry.Name, err)
		}
		set := base
		set.ConfigID = configID
		set.ContainerName = entry.Name
		return RunArgs(name, set, spec), nil
	case ExecSpec:
		physical, err := e.engine.DiscoverName(ctx, spec.Container, configID)
		if err != nil {
			return nil, fmt.Errorf("container %s: %w", entry.Name, err)
		}
		return ExecArgs(physical, spec), nil
	}
	return nil, errors.New("container " + entry.Name + ": no action")
}
