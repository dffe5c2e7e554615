package applier

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeBin writes an executable shell script named name onto a fresh
// directory and prepends it to PATH, so isMounted/isSwapActive and their
// label-checking siblings exercise the real process.New/exec path
// against a canned command instead of real mounts/swap.
func fakeBin(t *testing.T, name, script string) {
	t.Helper()
	if runtime.GOOS != "linux" {
		t.Skip("fake bin scripts are bash, linux-only")
	}
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/bash\n"+script+"\n"), 0o755))
	t.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))
}

func TestIsLabelMountedMatchesFindmntOutput(t *testing.T) {
	fakeBin(t, "findmnt", "echo slash")
	ok, err := isLabelMounted(context.Background(), "/", "slash")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestIsLabelMountedRejectsMismatch(t *testing.T) {
	fakeBin(t, "findmnt", "echo home")
	ok, err := isLabelMounted(context.Background(), "/", "slash")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestIsLabelMountedSkipsWhenNoLabelPlanned(t *testing.T) {
	ok, err := isLabelMounted(context.Background(), "/", "")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestIsSwapLabelActiveMatchesSwaponOutput(t *testing.T) {
	fakeBin(t, "swapon", "echo swap")
	ok, err := isSwapLabelActive(context.Background(), "swap")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestIsSwapLabelActiveRejectsMissingLabel(t *testing.T) {
	fakeBin(t, "swapon", "echo other")
	ok, err := isSwapLabelActive(context.Background(), "swap")
	require.NoError(t, err)
	require.False(t, ok)
}
