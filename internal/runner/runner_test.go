package runner

import (
	"context"
	"errors"
	"os/exec"
	"testing"
	"time"

	"github.com/containerd/errdefs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestOSRunner_CapturesOutput(t *testing.T) {
	requireShell(t)

	res, err := OSRunner{}.Run(context.Background(), Command{
		Args: []string{"sh", "-c", "echo out; echo err >&2"},
	})
	require.NoError(t, err)

	assert.Equal(t, "out\n", res.Stdout)
	assert.Equal(t, "err\n", res.Stderr)
	assert.Equal(t, 0, res.ExitCode)
}

func TestOSRunner_NonZeroExitIsNotAnError(t *testing.T) {
	requireShell(t)

	res, err := OSRunner{}.Run(context.Background(), Command{
		Args: []string{"sh", "-c", "echo broken >&2; exit 3"},
	})
	require.NoError(t, err)

	assert.Equal(t, 3, res.ExitCode)
	assert.Equal(t, "broken\n", res.Stderr)
}

func TestOSRunner_MissingBinaryIsLaunchFailure(t *testing.T) {
	_, err := OSRunner{}.Run(context.Background(), Command{
		Args: []string{"/nonexistent/heathook-test-binary", "ps"},
	})
	require.Error(t, err)

	assert.True(t, IsLaunchFailure(err))
	assert.True(t, errdefs.IsUnavailable(err))

	var le *LaunchError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, "/nonexistent/heathook-test-binary", le.Path)
}

func TestOSRunner_EmptyArgs(t *testing.T) {
	_, err := OSRunner{}.Run(context.Background(), Command{})
	assert.True(t, IsLaunchFailure(err))
}

func TestOSRunner_ExtraEnvAndDir(t *testing.T) {
	requireShell(t)
	dir := t.TempDir()

	res, err := OSRunner{}.Run(context.Background(), Command{
		Args: []string{"sh", "-c", "echo $HEATHOOK_TEST_VAR; pwd"},
		Env:  []string{"HEATHOOK_TEST_VAR=hello"},
		Dir:  dir,
	})
	require.NoError(t, err)

	assert.Contains(t, res.Stdout, "hello\n")
	assert.Contains(t, res.Stdout, dir)
}

func TestOSRunner_ContextCancel(t *testing.T) {
	requireShell(t)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := OSRunner{}.Run(ctx, Command{Args: []string{"sh", "-c", "sleep 5"}})
	require.Error(t, err)
	assert.False(t, IsLaunchFailure(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCommand_String(t *testing.T) {
	cmd := Command{Args: []string{"docker", "rm", "-f", "abc"}}
	assert.Equal(t, "docker rm -f abc", cmd.String())
}
