// Test Type: Unit Test
// Description: Tests for the subprocess runner

package execx_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arthur-debert/relpack/pkg/execx"
)

func TestRunCapturesOutput(t *testing.T) {
	runner := execx.ExecRunner{}
	result, err := runner.Run(context.Background(), "", "sh", "-c", "echo out; echo err >&2")
	require.NoError(t, err)

	assert.Equal(t, 0, result.ExitCode)
	assert.True(t, result.Success())
	assert.Equal(t, "out", strings.TrimSpace(result.Stdout))
	assert.Equal(t, "err", strings.TrimSpace(result.Stderr))
}

func TestRunNonZeroExitIsNotAnError(t *testing.T) {
	runner := execx.ExecRunner{}
	result, err := runner.Run(context.Background(), "", "sh", "-c", "exit 7")
	require.NoError(t, err)

	assert.Equal(t, 7, result.ExitCode)
	assert.False(t, result.Success())
}

func TestRunMissingExecutable(t *testing.T) {
	runner := execx.ExecRunner{}
	_, err := runner.Run(context.Background(), "", "definitely-not-a-real-tool")
	assert.Error(t, err)
}

func TestRunHonorsDir(t *testing.T) {
	dir := t.TempDir()
	runner := execx.ExecRunner{}
	result, err := runner.Run(context.Background(), dir, "pwd")
	require.NoError(t, err)
	assert.Contains(t, strings.TrimSpace(result.Stdout), dir)
}
