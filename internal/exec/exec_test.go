package exec

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := Run(context.Background(), "sh", []string{"-c", "true"}, ""); err != nil {
		t.Skip("sh not available")
	}
}

func TestRunSuccess(t *testing.T) {
	requireShell(t)
	res, err := OS{}.Run(context.Background(), t.TempDir(), "sh", "-c", "echo hooks; echo oops 1>&2")
	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitCode)
	assert.Equal(t, "hooks", res.Output())
	assert.Equal(t, "oops\n", res.Stderr)
}

func TestRunExitCode(t *testing.T) {
	requireShell(t)
	res, err := Run(context.Background(), "sh", []string{"-c", "exit 3"}, "")
	require.Error(t, err)
	assert.Equal(t, 3, res.ExitCode)
}

func TestRunNotFound(t *testing.T) {
	res, err := Run(context.Background(), "nonexistentcommand12345", nil, "")
	require.Error(t, err)
	assert.Equal(t, ExitNotFound, res.ExitCode)
}

func TestRunTimeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	res, _ := Run(ctx, "sleep", []string{"2"}, "")
	if res.ExitCode == ExitNotFound {
		t.Skip("sleep command not found, skipping timeout test")
	}
	assert.Equal(t, ExitTimeout, res.ExitCode)
}
