package labels

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSet_ArgsFixedOrder(t *testing.T) {
	s := Set{
		StackID:       "the_stack",
		ResourceName:  "the_deployment",
		ConfigID:      "abc123",
		ContainerName: "web",
	}

	assert.Equal(t, []string{
		"--label", "deploy_stack_id=the_stack",
		"--label", "deploy_resource_name=the_deployment",
		"--label", "config_id=abc123",
		"--label", "container_name=web",
		"--label", "managed_by=docker-cmd",
	}, s.Args())
}

func TestFromMap_ParsedLabels(t *testing.T) {
	s := Set{StackID: "s", ResourceName: "r", ConfigID: "c", ContainerName: "n", ManagedBy: "other"}
	assert.Equal(t, s, FromMap(Parse("deploy_stack_id=s,deploy_resource_name=r,config_id=c,container_name=n,managed_by=other")))
}

func TestQuery_FilterArgs(t *testing.T) {
	q := Managed().With(KeyConfigID, "abc123")

	assert.Equal(t, []string{
		"--filter", "label=managed_by=docker-cmd",
		"--filter", "label=config_id=abc123",
	}, q.FilterArgs())
}

func TestQuery_WithDoesNotAlias(t *testing.T) {
	base := Managed()
	a := base.With(KeyConfigID, "a")
	b := base.With(KeyConfigID, "b")

	assert.Len(t, base, 1)
	assert.Equal(t, "a", a[1].Value)
	assert.Equal(t, "b", b[1].Value)
}

func TestMatches(t *testing.T) {
	candidate := map[string]string{
		KeyManagedBy:     ManagedByDockerCmd,
		KeyConfigID:      "abc123",
		KeyContainerName: "web",
	}

	tests := []struct {
		name  string
		query Query
		want  bool
	}{
		{"empty query", Query{}, true},
		{"managed", Managed(), true},
		{"managed and config", Managed().With(KeyConfigID, "abc123"), true},
		{"wrong config", Managed().With(KeyConfigID, "def456"), false},
		{"missing key", Query{{Key: KeyStackID, Value: ""}}, false},
		{"name and config", Query{{KeyContainerName, "web"}, {KeyConfigID, "abc123"}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.query.Matches(candidate))
		})
	}
}

func TestParse(t *testing.T) {
	got := Parse("config_id=abc123,container_name=web,managed_by=docker-cmd\n")
	assert.Equal(t, map[string]string{
		"config_id":      "abc123",
		"container_name": "web",
		"managed_by":     "docker-cmd",
	}, got)
}

func TestParse_CommaInValue(t *testing.T) {
	got := Parse("a=1,2,b=3")
	assert.Equal(t, map[string]string{"a": "1,2", "b": "3"}, got)
}

func TestParse_Empty(t *testing.T) {
	assert.Empty(t, Parse("  "))
}
