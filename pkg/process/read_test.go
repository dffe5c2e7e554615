package process

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadStdoutLines(t *testing.T) {
	p, err := New(WithBashScriptContentsToRun("echo one\necho two\necho three\n"))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, p.Start(ctx))
	select {
	case err := <-p.Wait():
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for process")
	}

	var lines []string
	require.NoError(t, Read(ctx, p, WithReadStdout(), WithProcessLine(func(line string) {
		lines = append(lines, line)
	})))

	assert.Equal(t, []string{"one", "two", "three"}, lines)
	require.NoError(t, p.Close(ctx))
}
