package gpio

import (
	"context"
	"errors"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("no sh on this system")
	}
}

func TestExecRunner_Run(t *testing.T) {
	requireShell(t)
	r := NewExecRunner(0)

	stdout, stderr, err := r.Run(context.Background(), "sh", "-c", "echo 1; echo warn >&2")
	require.NoError(t, err)
	assert.Equal(t, "1\n", stdout)
	assert.Equal(t, "warn\n", stderr)
}

func TestExecRunner_NonZeroExit(t *testing.T) {
	requireShell(t)
	r := NewExecRunner(0)

	_, stderr, err := r.Run(context.Background(), "sh", "-c", "echo nope >&2; exit 3")
	require.Error(t, err)
	assert.False(t, isSpawnError(err))
	assert.Equal(t, "nope\n", stderr)
}

func TestExecRunner_MissingExecutable(t *testing.T) {
	r := NewExecRunner(0)

	_, _, err := r.Run(context.Background(), "fireside-no-such-tool")
	require.Error(t, err)
	assert.True(t, isSpawnError(err))
}

func TestExecRunner_Timeout(t *testing.T) {
	requireShell(t)
	r := NewExecRunner(50 * time.Millisecond)

	start := time.Now()
	_, _, err := r.Run(context.Background(), "sh", "-c", "exec sleep 5")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Less(t, time.Since(start), 4*time.Second)
}

func TestExecRunner_Start(t *testing.T) {
	requireShell(t)
	r := NewExecRunner(0)

	done := make(chan error, 1)
	require.NoError(t, r.Start("sh", []string{"-c", "exit 2"}, func(_ string, err error) {
		done <- err
	}))

	select {
	case err := <-done:
		require.Error(t, err)
		assert.False(t, isSpawnError(err))
	case <-time.After(5 * time.Second):
		t.Fatal("background command never finished")
	}

	assert.Error(t, r.Start("fireside-no-such-tool", nil, nil))
}

func TestCommand_RunWrapsErrors(t *testing.T) {
	requireShell(t)
	c := command{runner: NewExecRunner(0), tool: "sh"}

	_, err := c.run(context.Background(), "Failed to write GPIO pin", "-c", "echo 'export failed' >&2; exit 1")
	require.EqualError(t, err, "Failed to write GPIO pin: export failed\n")
}
