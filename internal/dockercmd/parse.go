package dockercmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/containerd/errdefs"
	"github.com/go-playground/validator/v10"
	"github.com/google/shlex"
	"gopkg.in/yaml.v3"
)

// ErrMalformedState marks desired-state text that is not a mapping of
// container names to specs.
var ErrMalformedState = fmt.Errorf("malformed desired state: %w", errdefs.ErrInvalidArgument)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Actions accepted in the "action" key.
const (
	ActionRun  = "run"
	ActionExec = "exec"
)

// knownKeys lists every key an entry may carry. "name" is accepted and
// ignored for compatibility with older documents.
var knownKeys = map[string]bool{
	"action":       true,
	"command":      true,
	"detach":       true,
	"env_file":     true,
	"environment":  true,
	"exit_codes":   true,
	"image":        true,
	"name":         true,
	"net":          true,
	"network":      true,
	"pid":          true,
	"privileged":   true,
	"restart":      true,
	"start_order":  true,
	"user":         true,
	"volumes":      true,
	"volumes_from": true,
}

// rawSpec mirrors the document shape of one entry.
type rawSpec struct {
	Action      string       `yaml:"action" validate:"omitempty,oneof=run exec"`
	Image       string       `yaml:"image"`
	Command     commandValue `yaml:"command"`
	Detach      *bool        `yaml:"detach"`
	EnvFile     stringList   `yaml:"env_file"`
	Environment []string     `yaml:"environment"`
	Net         string       `yaml:"net"`
	Network     string       `yaml:"network"`
	PID         string       `yaml:"pid"`
	Privileged  *bool        `yaml:"privileged"`
	Restart     string       `yaml:"restart"`
	User        string       `yaml:"user"`
	Volumes     []string     `yaml:"volumes"`
	VolumesFrom []string     `yaml:"volumes_from"`
	StartOrder  int          `yaml:"start_order"`
	ExitCodes   []int        `yaml:"exit_codes" validate:"omitempty,dive,gte=0,lte=255"`
	Name        string       `yaml:"name"`
}

// commandValue accepts a shell-style string or an argument list.
type commandValue []string

func (c *commandValue) UnmarshalYAML(n *yaml.Node) error {
	switch n.Kind {
	case yaml.ScalarNode:
		var s string
		if err := n.Decode(&s); err != nil {
			return err
		}
		args, err := shlex.Split(s)
		if err != nil {
			return fmt.Errorf("command %q: %w", s, err)
		}
		*c = args
		return nil
	case yaml.SequenceNode:
		var args []string
		if err := n.Decode(&args); err != nil {
			return err
		}
		*c = args
		return nil
	}
	return fmt.Errorf("line %d: command must be a string or a list", n.Line)
}

// stringList accepts a single string or a list of strings.
type stringList []string

func (l *stringList) UnmarshalYAML(n *yaml.Node) error {
	switch n.Kind {
	case yaml.ScalarNode:
		var s string
		if err := n.Decode(&s); err != nil {
			return err
		}
		*l = []string{s}
		return nil
	case yaml.SequenceNode:
		var items []string
		if err := n.Decode(&items); err != nil {
			return err
		}
		*l = items
		return nil
	}
	return fmt.Errorf("line %d: expected a string or a list", n.Line)
}

// Parse decodes desired-state text (YAML or JSON) into entries in document
// order. Entries that fail to decode or validate are returned with Err set so
// the caller can report them in sequence; only a document that is not a
// mapping at all fails as a whole.
func Parse(text string) ([]Entry, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(text), &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedState, err)
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return nil, nil
	}
	return parseRoot(doc.Content[0])
}

// ParseConfig decodes a job's config. A JSON string carries desired-state
// text and goes through Parse; any other value is already structured and is
// used as-is, keeping its key order.
func ParseConfig(raw json.RawMessage) ([]Entry, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, nil
	}
	if raw[0] == '"' {
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedState, err)
		}
		return Parse(text)
	}

	root, err := jsonNode(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedState, err)
	}
	return parseRoot(root)
}

func parseRoot(root *yaml.Node) ([]Entry, error) {
	if root.Kind == yaml.ScalarNode && root.ShortTag() == "!!null" {
		return nil, nil
	}
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: top level must be a mapping of container names", ErrMalformedState)
	}

	seen := make(map[string]bool, len(root.Content)/2)
	entries := make([]Entry, 0, len(root.Content)/2)
	for i := 0; i+1 < len(root.Content); i += 2 {
		name := root.Content[i].Value
		if seen[name] {
			return nil, fmt.Errorf("%w: container %q defined twice", ErrMalformedState, name)
		}
		seen[name] = true
		entries = append(entries, parseEntry(name, root.Content[i+1]))
	}
	return entries, nil
}

func parseEntry(name string, n *yaml.Node) Entry {
	entry := Entry{Name: name}
	fail := func(format string, args ...any) Entry {
		entry.Err = &EntryError{Name: name, Reason: fmt.Sprintf(format, args...)}
		return entry
	}

	if n.Kind == yaml.ScalarNode && n.ShortTag() == "!!null" {
		n = &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	}
	if n.Kind != yaml.MappingNode {
		return fail("spec must be a mapping")
	}

	var unknown []string
	for i := 0; i+1 < len(n.Content); i += 2 {
		if k := n.Content[i].Value; !knownKeys[k] {
			unknown = append(unknown, k)
		}
	}

	var raw rawSpec
	if err := n.Decode(&raw); err != nil {
		return fail("%v", err)
	}
	entry.StartOrder = raw.StartOrder
	entry.ExitCodes = raw.ExitCodes

	if len(unknown) > 0 {
		sort.Strings(unknown)
		return fail("unsupported key(s): %s", strings.Join(unknown, ", "))
	}
	if err := validate.Struct(&raw); err != nil {
		return fail("%s", describe(err))
	}

	var action Action
	switch raw.Action {
	case "", ActionRun:
		net := raw.Net
		if net == "" {
			net = raw.Network
		}
		detach := true
		if raw.Detach != nil {
			detach = *raw.Detach
		}
		action = RunSpec{
			Image:       raw.Image,
			Command:     raw.Command,
			Detach:      detach,
			EnvFiles:    raw.EnvFile,
			Environment: raw.Environment,
			Net:         net,
			PID:         raw.PID,
			Privileged:  raw.Privileged,
			Restart:     raw.Restart,
			User:        raw.User,
			Volumes:     raw.Volumes,
			VolumesFrom: raw.VolumesFrom,
		}
	case ActionExec:
		spec := ExecSpec{Privileged: raw.Privileged, User: raw.User}
		if len(raw.Command) > 0 {
			spec.Container = raw.Command[0]
			spec.Command = raw.Command[1:]
		}
		action = spec
	}

	if err := validate.Struct(action); err != nil {
		return fail("%s", describe(err))
	}
	entry.Action = action
	return entry
}

// describe turns validator output into a short, user-facing reason.
func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.StructField() {
		case "Image":
			msgs = append(msgs, "image is required for run")
		case "Container":
			msgs = append(msgs, "exec needs a command whose first item names a container")
		case "Action":
			msgs = append(msgs, fmt.Sprintf("unknown action %q", fe.Value()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
		}
	}
	return strings.Join(msgs, "; ")
}
