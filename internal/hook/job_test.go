package hook

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/containerd/errdefs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleJob = `{
  "name": "abcdef001",
  "group": "docker-cmd",
  "id": "abc123",
  "inputs": [
    {"name": "deploy_stack_id", "value": "the_stack"},
    {"name": "deploy_resource_name", "value": "the_deployment"},
    {"name": "count", "value": 3},
    {"name": "flag", "value": true}
  ],
  "options": {"tags": "abc,def"},
  "config": {"db": {"image": "xxx"}}
}`

func TestDecode(t *testing.T) {
	job, err := Decode(strings.NewReader(sampleJob))
	require.NoError(t, err)

	assert.Equal(t, "abc123", job.ID)
	assert.Equal(t, "docker-cmd", job.Group)
	assert.Equal(t, "the_stack", job.Input(InputDeployStackID))
	assert.Equal(t, "the_deployment", job.Input(InputDeployResourceName))
	assert.Equal(t, "3", job.Input("count"))
	assert.Equal(t, "true", job.Input("flag"))
	assert.Equal(t, "", job.Input("missing"))
	assert.Equal(t, "abc,def", job.Option("tags"))
	assert.Equal(t, "", job.Option("skip_tags"))
	assert.True(t, job.HasConfig())
}

func TestDecode_Malformed(t *testing.T) {
	_, err := Decode(strings.NewReader(`{"id": `))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedJob)
	assert.True(t, errdefs.IsInvalidArgument(err))
}

func TestDecode_InputWithoutName(t *testing.T) {
	_, err := Decode(strings.NewReader(`{"id": "x", "inputs": [{"value": 1}]}`))
	assert.ErrorIs(t, err, ErrMalformedJob)
}

func TestHasConfig(t *testing.T) {
	tests := []struct {
		config string
		want   bool
	}{
		{``, false},
		{`null`, false},
		{`""`, false},
		{`{}`, false},
		{`[]`, false},
		{`{ }`, false},
		{`"db: {image: x}"`, true},
		{`{"db": {}}`, true},
		{`0`, true},
	}

	for _, tt := range tests {
		job := &Job{Config: json.RawMessage(tt.config)}
		assert.Equal(t, tt.want, job.HasConfig(), "config %q", tt.config)
	}
}

func TestConfigText(t *testing.T) {
	job := &Job{Config: json.RawMessage(`"the ansible playbook"`)}
	assert.Equal(t, "the ansible playbook", job.ConfigText())

	job = &Job{Config: json.RawMessage(`{"a": 1}`)}
	assert.Equal(t, `{"a": 1}`, job.ConfigText())
}

func TestResponse_JSON(t *testing.T) {
	var buf bytes.Buffer
	r := Response{Stdout: "out", Stderr: "err", StatusCode: 2, Outputs: map[string]string{
		"result":      "42",
		KeyStatusCode: "ignored",
	}}
	require.NoError(t, r.Write(&buf))

	var m map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &m))
	assert.Equal(t, "out", m[KeyStdout])
	assert.Equal(t, "err", m[KeyStderr])
	assert.Equal(t, float64(2), m[KeyStatusCode])
	assert.Equal(t, "42", m["result"])

	var back Response
	require.NoError(t, json.Unmarshal(buf.Bytes(), &back))
	assert.Equal(t, 2, back.StatusCode)
	assert.Equal(t, "42", back.Outputs["result"])
}

func TestEmptyResponse(t *testing.T) {
	b, err := json.Marshal(Empty())
	require.NoError(t, err)
	assert.JSONEq(t, `{"deploy_stdout": "", "deploy_stderr": "", "deploy_status_code": 0}`, string(b))
}

func TestJoined(t *testing.T) {
	r := Joined([]string{"a", "b"}, []string{"c"}, 4)
	assert.Equal(t, "a\nb", r.Stdout)
	assert.Equal(t, "c", r.Stderr)
	assert.Equal(t, 4, r.StatusCode)
}

func TestCheckFileName(t *testing.T) {
	for _, name := range []string{"1234", "abc-def_01", "", "..x", "a.b"} {
		assert.NoError(t, CheckFileName(name), name)
	}
	for _, name := range []string{".", "..", "../x", "a/b", `a\b`, "/etc/passwd", "a\x00b"} {
		err := CheckFileName(name)
		assert.ErrorIs(t, err, ErrUnsafeName, name)
		assert.ErrorIs(t, err, errdefs.ErrInvalidArgument, name)
	}
}
