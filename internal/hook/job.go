// Package hook holds the boundary contract shared by every hook: one JSON
// job document in on stdin, one JSON result document out on stdout.
package hook

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/containerd/errdefs"
	"github.com/go-playground/validator/v10"
)

// ErrMalformedJob marks a job document that could not be decoded or failed
// validation. It is an errdefs invalid-argument error.
var ErrMalformedJob = fmt.Errorf("malformed job document: %w", errdefs.ErrInvalidArgument)

// ErrUnsafeName marks a job id or file name that is not a single path
// element. It is an errdefs invalid-argument error.
var ErrUnsafeName = fmt.Errorf("unsafe file name: %w", errdefs.ErrInvalidArgument)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Job is one deployment job as handed to a hook.
type Job struct {
	ID      string          `json:"id"`
	Group   string          `json:"group"`
	Name    string          `json:"name"`
	Inputs  []Input         `json:"inputs" validate:"dive"`
	Options map[string]any  `json:"options"`
	Config  json.RawMessage `json:"config"`
	Outputs []Output        `json:"outputs" validate:"dive"`
}

// Input is a named deployment input.
type Input struct {
	Name  string `json:"name" validate:"required"`
	Value any    `json:"value"`
}

// Output names a value the hook should report back.
type Output struct {
	Name string `json:"name" validate:"required"`
}

// Well-known inputs.
const (
	InputDeployAction       = "deploy_action"
	InputDeployStackID      = "deploy_stack_id"
	InputDeployResourceName = "deploy_resource_name"
	InputDeploySignalID     = "deploy_signal_id"
	InputDeploySignalVerb   = "deploy_signal_verb"
)

// ActionDelete short-circuits hooks that only create resources.
const ActionDelete = "DELETE"

// Decode reads a single job document.
func Decode(r io.Reader) (*Job, error) {
	var job Job
	if err := json.NewDecoder(r).Decode(&job); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedJob, err)
	}
	if err := validate.Struct(&job); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedJob, err)
	}
	return &job, nil
}

// CheckFileName rejects names that would leave the directory they are
// joined to: "." and "..", and anything holding a path separator or NUL.
func CheckFileName(name string) error {
	if name == "." || name == ".." || strings.ContainsAny(name, "/\\\x00") {
		return fmt.Errorf("%w: %q", ErrUnsafeName, name)
	}
	return nil
}

// InputValues returns every input keyed by name. Later duplicates win.
func (j *Job) InputValues() map[string]any {
	m := make(map[string]any, len(j.Inputs))
	for _, in := range j.Inputs {
		m[in.Name] = in.Value
	}
	return m
}

// Input returns the string form of the named input, "" when absent or null.
func (j *Job) Input(name string) string {
	for i := len(j.Inputs) - 1; i >= 0; i-- {
		if j.Inputs[i].Name == name {
			return stringify(j.Inputs[i].Value)
		}
	}
	return ""
}

// Option returns the string form of the named option, "" when absent.
func (j *Job) Option(name string) string {
	if j.Options == nil {
		return ""
	}
	return stringify(j.Options[name])
}

// HasConfig reports whether config carries anything to act on. Missing,
// null, "", {} and [] all count as empty.
func (j *Job) HasConfig() bool {
	raw := bytes.TrimSpace(j.Config)
	switch string(raw) {
	case "", "null", `""`, "{}", "[]":
		return false
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return true
	}
	switch t := v.(type) {
	case map[string]any:
		return len(t) > 0
	case []any:
		return len(t) > 0
	case string:
		return t != ""
	}
	return v != nil
}

// ConfigText returns config as text: a JSON string is unquoted, anything
// else is returned as its raw JSON.
func (j *Job) ConfigText() string {
	raw := bytes.TrimSpace(j.Config)
	if len(raw) > 0 && raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
	}
	return string(raw)
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}
