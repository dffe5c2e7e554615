package process

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessEchoCombinedOutput(t *testing.T) {
	p, err := New(WithCommand("echo", "hello"))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	out, err := p.StartAndWaitForCombinedOutput(ctx)
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(out))
	assert.NotZero(t, p.PID())
	assert.Equal(t, int32(0), p.ExitCode())

	require.NoError(t, p.Close(ctx))
	require.NoError(t, p.Close(ctx)) // redundant close is ok
	assert.True(t, p.Closed())
}

func TestProcessNonZeroExit(t *testing.T) {
	p, err := New(WithCommand("false"))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err = p.StartAndWaitForCombinedOutput(ctx)
	require.Error(t, err)
	assert.NotEqual(t, int32(0), p.ExitCode())
}

func TestProcessRunBashScriptContents(t *testing.T) {
	p, err := New(WithBashScriptContentsToRun("#!/bin/bash\nset -o pipefail\necho hello\n"))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	out, err := p.StartAndWaitForCombinedOutput(ctx)
	require.NoError(t, err)
	assert.Contains(t, string(out), "hello")

	proc, ok := p.(*process)
	require.True(t, ok)
	bashFile := proc.runBashFile.Name()
	_, statErr := os.Stat(bashFile)
	require.NoError(t, statErr)

	require.NoError(t, p.Close(ctx))
	_, statErr = os.Stat(bashFile)
	assert.True(t, os.IsNotExist(statErr))
}

func TestProcessMultipleCommandsRequireBashScript(t *testing.T) {
	_, err := New(
		WithCommand("echo", "hello"),
		WithCommand("echo", "world"),
	)
	require.Error(t, err)

	p, err := New(
		WithCommand("echo", "hello"),
		WithCommand("echo", "world"),
		WithRunAsBashScript(),
	)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	out, err := p.StartAndWaitForCombinedOutput(ctx)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(out), "hello") && strings.Contains(string(out), "world"))
}

func TestProcessInvalidCommand(t *testing.T) {
	_, err := New(WithCommand("no_such_command_xyz"))
	require.Error(t, err)
}

func TestCommandExists(t *testing.T) {
	assert.True(t, commandExists("echo"))
	assert.False(t, commandExists("no_such_command_xyz"))
}
