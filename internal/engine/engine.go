package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/RevCBH/heathook/internal/labels"
	"github.com/RevCBH/heathook/internal/runner"
	"github.com/sirupsen/logrus"
)

// Format strings passed to "ps --format". Names are opaque tokens: the
// output is split on whitespace and never passed through a shell.
const (
	FormatNames          = "{{.Names}}"
	FormatConfigID       = `{{.Label "config_id"}}`
	FormatNameAndLogical = `{{.Names}} {{.Label "container_name"}}`
	FormatNameAndLabels  = "{{.Names}}\t{{.Labels}}"
)

// NamePair is a container's physical name with its container_name label.
type NamePair struct {
	Name    string
	Logical string
}

// Listed is one row of a label listing.
type Listed struct {
	Name   string
	Labels map[string]string
}

// Client drives the container engine CLI (docker, podman, or anything
// accepting the same argument surface).
type Client struct {
	runner  runner.Runner
	command string
	log     logrus.FieldLogger
}

// NewClient creates a Client invoking the given engine binary.
func NewClient(r runner.Runner, command string, log logrus.FieldLogger) *Client {
	return &Client{runner: r, command: command, log: log}
}

// Invoke runs one engine subcommand. A non-zero exit is reported in the
// Result; only a launch failure or cancellation returns an error.
func (c *Client) Invoke(ctx context.Context, args ...string) (runner.Result, error) {
	cmd := runner.Command{Args: append([]string{c.command}, args...)}
	c.log.Debugf("Running %s", cmd)
	res, err := c.runner.Run(ctx, cmd)
	if err != nil {
		return res, err
	}
	if res.ExitCode != 0 {
		c.log.Debugf("%s exited %d: %s", cmd, res.ExitCode, strings.TrimSpace(res.Stderr))
	}
	return res, nil
}

// Exists looks up a container called name. A lookup that runs but fails
// means "not found"; a lookup that cannot start is an error.
func (c *Client) Exists(ctx context.Context, name string) (bool, error) {
	res, err := c.Invoke(ctx, "inspect", "--format", "exists", name)
	if err != nil {
		return false, fmt.Errorf("inspect %s: %w", name, err)
	}
	if res.ExitCode != 0 {
		return false, nil
	}
	return strings.TrimSpace(res.Stdout) != "", nil
}

// DiscoverName maps a logical container name to the physical name of the
// container carrying container_name=logical and config_id=configID. The
// logical name is returned unchanged when nothing is found or the query
// fails to run successfully.
func (c *Client) DiscoverName(ctx context.Context, logical, configID string) (string, error) {
	q := labels.Query{
		{Key: labels.KeyContainerName, Value: logical},
		{Key: labels.KeyConfigID, Value: configID},
	}
	args := append([]string{"ps", "-a"}, q.FilterArgs()...)
	args = append(args, "--format", FormatNames)

	res, err := c.Invoke(ctx, args...)
	if err != nil {
		return logical, fmt.Errorf("discover %s: %w", logical, err)
	}
	if res.ExitCode != 0 {
		c.log.Warnf("Could not discover container name for %s, using it as-is", logical)
		return logical, nil
	}
	if names := strings.Fields(res.Stdout); len(names) > 0 {
		return names[0], nil
	}
	return logical, nil
}

// ConfigIDs lists the config_id label of every container matching q, one
// entry per container, blanks dropped.
func (c *Client) ConfigIDs(ctx context.Context, q labels.Query) ([]string, error) {
	args := append([]string{"ps", "-a"}, q.FilterArgs()...)
	args = append(args, "--format", FormatConfigID)
	out, err := c.lines(ctx, args...)
	if err != nil {
		return nil, fmt.Errorf("list config ids: %w", err)
	}
	return out, nil
}

// IDs lists the ids of every container matching q.
func (c *Client) IDs(ctx context.Context, q labels.Query) ([]string, error) {
	args := append([]string{"ps", "-q", "-a"}, q.FilterArgs()...)
	out, err := c.lines(ctx, args...)
	if err != nil {
		return nil, fmt.Errorf("list container ids: %w", err)
	}
	return out, nil
}

// NamePairs lists (physical name, container_name label) for containers
// matching q. Rows without a label still appear, with an empty Logical.
func (c *Client) NamePairs(ctx context.Context, q labels.Query) ([]NamePair, error) {
	args := append([]string{"ps", "-a"}, q.FilterArgs()...)
	args = append(args, "--format", FormatNameAndLogical)
	rows, err := c.lines(ctx, args...)
	if err != nil {
		return nil, fmt.Errorf("list container names: %w", err)
	}

	pairs := make([]NamePair, 0, len(rows))
	for _, row := range rows {
		fields := strings.Fields(row)
		if len(fields) == 0 {
			continue
		}
		p := NamePair{Name: fields[0]}
		if len(fields) > 1 {
			p.Logical = fields[len(fields)-1]
		}
		pairs = append(pairs, p)
	}
	return pairs, nil
}

// List returns the name and decoded labels of containers matching q. Rows
// whose decoded labels do not satisfy q are dropped, whatever the engine's
// filter let through.
func (c *Client) List(ctx context.Context, q labels.Query) ([]Listed, error) {
	args := append([]string{"ps", "-a"}, q.FilterArgs()...)
	args = append(args, "--format", FormatNameAndLabels)
	rows, err := c.lines(ctx, args...)
	if err != nil {
		return nil, fmt.Errorf("list containers: %w", err)
	}

	out := make([]Listed, 0, len(rows))
	for _, row := range rows {
		name, rest, _ := strings.Cut(row, "\t")
		decoded := labels.Parse(rest)
		if !q.Matches(decoded) {
			c.log.Debugf("Ignoring %s, labels do not match %v", strings.TrimSpace(name), q.FilterArgs())
			continue
		}
		out = append(out, Listed{Name: strings.TrimSpace(name), Labels: decoded})
	}
	return out, nil
}

// Remove force-removes a container by id or name.
func (c *Client) Remove(ctx context.Context, id string) error {
	return c.check(ctx, "rm", "-f", id)
}

// Rename changes a container's physical name.
func (c *Client) Rename(ctx context.Context, from, to string) error {
	return c.check(ctx, "rename", from, to)
}

func (c *Client) check(ctx context.Context, args ...string) error {
	res, err := c.Invoke(ctx, args...)
	if err != nil {
		return fmt.Errorf("%s %s: %w", c.command, args[0], err)
	}
	if res.ExitCode != 0 {
		return &ExitError{Args: args, Result: res}
	}
	return nil
}

// lines runs a listing command and returns its non-blank output lines.
func (c *Client) lines(ctx context.Context, args ...string) ([]string, error) {
	res, err := c.Invoke(ctx, args...)
	if err != nil {
		return nil, err
	}
	if res.ExitCode != 0 {
		return nil, &ExitError{Args: args, Result: res}
	}

	var out []string
	for _, line := range strings.Split(res.Stdout, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	return out, nil
}

// ExitError is an engine command that ran but exited non-zero.
type ExitError struct {
	Args   []string
	Result runner.Result
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s exited %d: %s", strings.Join(e.Args, " "), e.Result.ExitCode, strings.TrimSpace(e.Result.Stderr))
}
