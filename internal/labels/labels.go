// Package labels encodes the identity labels stamped on every container the
// docker-cmd hook creates, and the label filters used to find them again.
package labels

import (
	"strings"
)

// Label keys. The set is the only durable link between a desired-state
// entry and the physical container created for it.
const (
	KeyStackID       = "deploy_stack_id"
	KeyResourceName  = "deploy_resource_name"
	KeyConfigID      = "config_id"
	KeyContainerName = "container_name"
	KeyManagedBy     = "managed_by"
)

// ManagedByDockerCmd marks containers owned by the docker-cmd hook.
const ManagedByDockerCmd = "docker-cmd"

// Pair is a single key=value label.
type Pair struct {
	Key   string
	Value string
}

func (p Pair) String() string {
	return p.Key + "=" + p.Value
}

// Set is the label set of one managed container.
type Set struct {
	StackID       string
	ResourceName  string
	ConfigID      string
	ContainerName string
	ManagedBy     string
}

// Pairs returns the labels in their fixed order: stack id, resource name,
// config id, container name, managed-by.
func (s Set) Pairs() []Pair {
	managedBy := s.ManagedBy
	if managedBy == "" {
		managedBy = ManagedByDockerCmd
	}
	return []Pair{
		{Key: KeyStackID, Value: s.StackID},
		{Key: KeyResourceName, Value: s.ResourceName},
		{Key: KeyConfigID, Value: s.ConfigID},
		{Key: KeyContainerName, Value: s.ContainerName},
		{Key: KeyManagedBy, Value: managedBy},
	}
}

// Args flattens the set into ["--label", "k=v", ...].
func (s Set) Args() []string {
	pairs := s.Pairs()
	args := make([]string, 0, 2*len(pairs))
	for _, p := range pairs {
		args = append(args, "--label", p.String())
	}
	return args
}

// FromMap rebuilds a Set from decoded engine labels.
func FromMap(m map[string]string) Set {
	return Set{
		StackID:       m[KeyStackID],
		ResourceName:  m[KeyResourceName],
		ConfigID:      m[KeyConfigID],
		ContainerName: m[KeyContainerName],
		ManagedBy:     m[KeyManagedBy],
	}
}

// Query is an ordered conjunction of label equality filters.
type Query []Pair

// Managed selects every container owned by docker-cmd.
func Managed() Query {
	return Query{{Key: KeyManagedBy, Value: ManagedByDockerCmd}}
}

// With returns a copy of q with one more filter appended.
func (q Query) With(key, value string) Query {
	out := make(Query, 0, len(q)+1)
	out = append(out, q...)
	return append(out, Pair{Key: key, Value: value})
}

// FilterArgs renders q as ["--filter", "label=k=v", ...].
func (q Query) FilterArgs() []string {
	args := make([]string, 0, 2*len(q))
	for _, p := range q {
		args = append(args, "--filter", "label="+p.String())
	}
	return args
}

// Matches reports whether every filter in q is satisfied by candidate.
// An empty query matches everything.
func (q Query) Matches(candidate map[string]string) bool {
	for _, p := range q {
		v, ok := candidate[p.Key]
		if !ok || v != p.Value {
			return false
		}
	}
	return true
}

// Parse decodes the engine's "{{.Labels}}" rendering, "k1=v1,k2=v2".
// Names are treated as opaque; a segment without "=" continues the previous
// value, since values may themselves contain commas.
func Parse(s string) map[string]string {
	out := make(map[string]string)
	s = strings.TrimSpace(s)
	if s == "" {
		return out
	}

	last := ""
	for _, seg := range strings.Split(s, ",") {
		k, v, ok := strings.Cut(seg, "=")
		if !ok {
			if last != "" {
				out[last] += "," + seg
			}
			continue
		}
		out[k] = v
		last = k
	}
	return out
}
