package dockercmd

import (
	"fmt"
	"sort"
)

// Action is what one desired-state entry asks the engine to do. It is a
// closed set: RunSpec or ExecSpec.
type Action interface {
	action()
}

// RunSpec launches a new container.
type RunSpec struct {
	Image       string `validate:"required"`
	Command     []string
	Detach      bool
	EnvFiles    []string
	Environment []string
	Net         string
	PID         string

	// Privileged is nil when the key is absent; a present false is still
	// passed to the engine.
	Privileged  *bool
	Restart     string
	User        string
	Volumes     []string
	VolumesFrom []string
}

// ExecSpec runs a command inside a container created by an earlier entry.
// Container is the logical name, resolved to the physical one at execution
// time.
type ExecSpec struct {
	Container  string `validate:"required"`
	Command    []string
	Privileged *bool
	User       string
}

func (RunSpec) action()  {}
func (ExecSpec) action() {}

// Entry is one named item of a desired-state document.
type Entry struct {
	Name       string
	StartOrder int
	ExitCodes  []int
	Action     Action

	// Err is set when the entry could not be decoded or validated. Action is
	// nil in that case.
	Err error
}

// Succeeded reports whether code is one of the entry's accepted exit codes.
func (e Entry) Succeeded(code int) bool {
	codes := e.ExitCodes
	if len(codes) == 0 {
		codes = []int{0}
	}
	for _, c := range codes {
		if c == code {
			return true
		}
	}
	return false
}

// EntryError describes a desired-state entry that cannot be executed.
type EntryError struct {
	Name   string
	Reason string
}

func (e *EntryError) Error() string {
	return fmt.Sprintf("container %s: %s", e.Name, e.Reason)
}

// Ordered returns entries sorted by ascending StartOrder. Entries with equal
// order keep their document order.
func Ordered(entries []Entry) []Entry {
	out := append([]Entry(nil), entries...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartOrder < out[j].StartOrder
	})
	return out
}
