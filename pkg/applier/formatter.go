package applier

import (
	"context"
	"fmt"
	"strings"

	"github.com/trbarbour/diskprep/pkg/process"
)

// formatterCapabilities records which invocation shape the configured
// formatter binary supports, probed once via --help.
type formatterCapabilities struct {
	CombinedMode       bool // supports --mode destroy,format,mount
	YesWipeAllDisksAck bool // supports --yes-wipe-all-disks
}

// probeFormatterCapabilities runs `<cmd> --help` once and inspects the
// combined output for the combined-mode and acknowledgement-flag tokens.
func probeFormatterCapabilities(ctx context.Context, formatterCmd string) (formatterCapabilities, error) {
	p, err := process.New(process.WithCommand(formatterCmd, "--help"))
	if err != nil {
		return formatterCapabilities{}, fmt.Errorf("applier: constructing formatter --help command: %w", err)
	}

	out, _ := p.StartAndWaitForCombinedOutput(ctx) // --help commonly exits non-zero; output is what matters
	return detectFormatterCapabilities(string(out)), nil
}

// detectFormatterCapabilities inspects --help output for the tokens that
// distinguish the combined destroy,format,mount invocation (and its
// --yes-wipe-all-disks acknowledgement flag) from the legacy single-mode
// invocation.
func detectFormatterCapabilities(helpText string) formatterCapabilities {
	return formatterCapabilities{
		CombinedMode:       strings.Contains(helpText, "destroy,format,mount"),
		YesWipeAllDisksAck: strings.Contains(helpText, "--yes-wipe-all-disks"),
	}
}

// formatterArgv builds the formatter's argv: the legacy single-mode
// invocation, or the combined destroy,format,mount invocation (with its
// optional --yes-wipe-all-disks acknowledgement) per caps.
func formatterArgv(formatterCmd, renderedFile, rootMountpoint string, caps formatterCapabilities) []string {
	if caps.CombinedMode {
		argv := []string{formatterCmd, "--mode", "destroy,format,mount"}
		if caps.YesWipeAllDisksAck {
			argv = append(argv, "--yes-wipe-all-disks")
		}
		return append(argv, "--root-mountpoint", rootMountpoint, renderedFile)
	}
	return []string{formatterCmd, "--mode", "disko", "--root-mountpoint", rootMountpoint, renderedFile}
}

// invokeFormatter runs the formatter against renderedFile, mounting the
// result at rootMountpoint.
func invokeFormatter(ctx context.Context, formatterCmd, renderedFile, rootMountpoint string, caps formatterCapabilities) ([]byte, error) {
	argv := formatterArgv(formatterCmd, renderedFile, rootMountpoint, caps)

	p, err := process.New(process.WithCommand(argv...))
	if err != nil {
		return nil, fmt.Errorf("applier: constructing formatter command: %w", err)
	}
	return p.StartAndWaitForCombinedOutput(ctx)
}
