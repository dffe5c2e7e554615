package process

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpApplyOpts(t *testing.T) {
	op := &Op{}
	require.Error(t, op.applyOpts([]OpOption{}))

	op = &Op{}
	require.NoError(t, op.applyOpts([]OpOption{WithCommand("echo", "hello")}))
	require.Len(t, op.commandsToRun, 1)
	require.Equal(t, []string{"echo", "hello"}, op.commandsToRun[0])

	op = &Op{}
	require.NoError(t, op.applyOpts([]OpOption{WithBashScriptContentsToRun("echo hello")}))
	require.Equal(t, "echo hello", op.bashScriptContentsToRun)
	require.True(t, op.runAsBashScript)

	op = &Op{}
	require.Error(t, op.applyOpts([]OpOption{
		WithCommand("echo", "hello"),
		WithCommand("echo", "world"),
	}))

	op = &Op{}
	require.NoError(t, op.applyOpts([]OpOption{
		WithCommand("echo", "hello"),
		WithCommand("echo", "world"),
		WithRunAsBashScript(),
	}))
	require.Len(t, op.commandsToRun, 2)

	op = &Op{}
	require.Error(t, op.applyOpts([]OpOption{WithCommand("non_existent_command_12345")}))

	op = &Op{}
	require.NoError(t, op.applyOpts([]OpOption{
		WithCommand("echo", "hello"),
		WithEnvs("VAR1=value1", "VAR2=value2"),
	}))
	require.Equal(t, []string{"VAR1=value1", "VAR2=value2"}, op.envs)

	op = &Op{}
	require.Error(t, op.applyOpts([]OpOption{
		WithCommand("echo", "hello"),
		WithEnvs("INVALID_ENV_VAR"),
	}))

	op = &Op{}
	require.Error(t, op.applyOpts([]OpOption{
		WithCommand("echo", "hello"),
		WithEnvs("VAR=value1", "VAR=value2"),
	}))

	op = &Op{}
	require.NoError(t, op.applyOpts([]OpOption{
		WithCommand("echo", "hello"),
		WithRunAsBashScript(),
		WithBashScriptTmpDirectory("/tmp"),
		WithBashScriptFilePattern("custom-*.sh"),
	}))
	require.Equal(t, "/tmp", op.bashScriptTmpDirectory)
	require.Equal(t, "custom-*.sh", op.bashScriptFilePattern)

	op = &Op{}
	require.NoError(t, op.applyOpts([]OpOption{
		WithCommand("echo", "hello"),
		WithRunAsBashScript(),
	}))
	require.Equal(t, os.TempDir(), op.bashScriptTmpDirectory)
	require.Equal(t, DefaultBashScriptFilePattern, op.bashScriptFilePattern)

	tmpFile, err := os.CreateTemp("", "process-test-*.txt")
	require.NoError(t, err)
	defer func() { _ = os.Remove(tmpFile.Name()) }()
	defer func() { _ = tmpFile.Close() }()

	op = &Op{}
	require.NoError(t, op.applyOpts([]OpOption{
		WithCommand("echo", "hello"),
		WithOutputFile(tmpFile),
	}))
	require.Same(t, tmpFile, op.outputFile)

	op = &Op{}
	require.NoError(t, op.applyOpts([]OpOption{
		WithCommand("echo", "hello"),
		WithLabel("key1", "value1"),
		WithLabel("key2", "value2"),
	}))
	require.Len(t, op.labels, 2)
	require.Equal(t, "value1", op.labels["key1"])

	op = &Op{}
	require.NoError(t, op.applyOpts([]OpOption{
		WithCommands([][]string{
			{"echo", "hello"},
			{"echo", "world"},
		}),
		WithRunAsBashScript(),
	}))
	require.Len(t, op.commandsToRun, 2)
}

func TestCommandExistsOption(t *testing.T) {
	require.True(t, commandExists("echo"))
	require.False(t, commandExists("non_existent_command_12345"))
}
