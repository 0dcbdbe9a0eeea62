package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCmd_Output(t *testing.T) {
	app := New()
	app.SetVersion("1.2.3", "abc1234", "2024-01-15T10:30:00Z")

	cmd := NewVersionCmd(app)
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{})

	require.NoError(t, cmd.Execute())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Equal(t, []string{
		"heathook version 1.2.3",
		"commit: abc1234",
		"built: 2024-01-15T10:30:00Z",
	}, lines)
}

func TestSetVersion(t *testing.T) {
	app := New()
	assert.Equal(t, VersionInfo{}, app.versionInfo)

	app.SetVersion("1.2.3", "abc1234", "2024-01-15T10:30:00Z")
	assert.Equal(t, VersionInfo{Version: "1.2.3", Commit: "abc1234", Date: "2024-01-15T10:30:00Z"}, app.versionInfo)
}

func TestVersionCmd_DefaultValues(t *testing.T) {
	app := New()

	cmd := NewVersionCmd(app)
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{})

	require.NoError(t, cmd.Execute())

	output := buf.String()
	assert.Contains(t, output, "heathook version dev")
	assert.Equal(t, 2, strings.Count(output, "unknown"))
}
