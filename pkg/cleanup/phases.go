package cleanup

import (
	"context"
	"path/filepath"

	"github.com/trbarbour/diskprep/pkg/storagegraph"
)

// mapperName strips a /dev/mapper/ (or bare device-mapper) identifier
// down to the bare name dmsetup/cryptsetup expect as an argument.
func mapperName(identifier string) string {
	return filepath.Base(identifier)
}

// phaseA implements the quiesce sequence per node kind, leaf-to-root.
// Disks and partitions are only unmounted (umount -f) or swapped off
// when they are mounted or hold active swap (spec §4.5.1).
func phaseA(ctx context.Context, g *storagegraph.Graph, order []storagegraph.NodeIndex, report *Report) {
	for _, idx := range order {
		n := g.Nodes[idx]
		switch n.Kind {
		case storagegraph.KindLV:
			if n.MountPoint != "" && n.MountPoint != "[SWAP]" {
				run(ctx, report, PhaseTeardown, n.Kind, n.Identifier, "umount", []string{"umount", "-f", n.Identifier})
			}
			if n.SwapActive {
				run(ctx, report, PhaseTeardown, n.Kind, n.Identifier, "swapoff", []string{"swapoff", n.Identifier})
			}
			run(ctx, report, PhaseTeardown, n.Kind, n.Identifier, "lvchange", []string{"lvchange", "-an", n.Identifier})
		case storagegraph.KindVG:
			run(ctx, report, PhaseTeardown, n.Kind, n.Identifier, "vgchange", []string{"vgchange", "-an", n.Identifier})
		case storagegraph.KindMdArray:
			run(ctx, report, PhaseTeardown, n.Kind, n.Identifier, "mdadm-stop", []string{"mdadm", "--stop", n.Identifier})
		case storagegraph.KindCrypt:
			if n.MountPoint != "" && n.MountPoint != "[SWAP]" {
				run(ctx, report, PhaseTeardown, n.Kind, n.Identifier, "umount", []string{"umount", "-f", n.Identifier})
			}
			if n.SwapActive {
				run(ctx, report, PhaseTeardown, n.Kind, n.Identifier, "swapoff", []string{"swapoff", n.Identifier})
			}
			run(ctx, report, PhaseTeardown, n.Kind, n.Identifier, "cryptsetup-close", []string{"cryptsetup", "close", mapperName(n.Identifier)})
		case storagegraph.KindDm:
			run(ctx, report, PhaseTeardown, n.Kind, n.Identifier, "dmsetup-remove", []string{"dmsetup", "remove", mapperName(n.Identifier)})
		case storagegraph.KindLoop:
			run(ctx, report, PhaseTeardown, n.Kind, n.Identifier, "losetup-detach", []string{"losetup", "-d", n.Identifier})
		case storagegraph.KindDisk, storagegraph.KindPartition:
			if n.MountPoint != "" && n.MountPoint != "[SWAP]" {
				run(ctx, report, PhaseTeardown, n.Kind, n.Identifier, "umount", []string{"umount", "-f", n.Identifier})
			}
			if n.SwapActive {
				run(ctx, report, PhaseTeardown, n.Kind, n.Identifier, "swapoff", []string{"swapoff", n.Identifier})
			}
		}
	}
}

// phaseB walks the same ordering again, removing descendant metadata:
// LVs, VGs, PVs, md-member signatures, and a final signature wipe on any
// block device (spec §4.5.2).
func phaseB(ctx context.Context, g *storagegraph.Graph, order []storagegraph.NodeIndex, report *Report) {
	for _, idx := range order {
		n := g.Nodes[idx]
		switch n.Kind {
		case storagegraph.KindLV:
			run(ctx, report, PhaseDescendant, n.Kind, n.Identifier, "lvremove", []string{"lvremove", "-fy", n.Identifier})
		case storagegraph.KindVG:
			run(ctx, report, PhaseDescendant, n.Kind, n.Identifier, "vgremove", []string{"vgremove", "-ff", "-y", n.Identifier})
		case storagegraph.KindPV:
			run(ctx, report, PhaseDescendant, n.Kind, n.Identifier, "pvremove", []string{"pvremove", "-ff", "-y", n.Identifier})
		case storagegraph.KindMdArray:
			// By Phase A the array itself has been stopped and no longer
			// exists as a device; the superblock lives on the member
			// partitions, so zero it there instead.
			for _, p := range n.Parents {
				member := g.Nodes[p]
				run(ctx, report, PhaseDescendant, member.Kind, member.Identifier, "mdadm-zero-superblock", []string{"mdadm", "--zero-superblock", member.Identifier})
			}
		}

		if isBlockKind(n.Kind) {
			run(ctx, report, PhaseDescendant, n.Kind, n.Identifier, "wipefs", []string{"wipefs", "-af", n.Identifier})
		}
	}
}

func isBlockKind(k storagegraph.Kind) bool {
	switch k {
	case storagegraph.KindDisk, storagegraph.KindPartition, storagegraph.KindMdArray, storagegraph.KindLoop,
		storagegraph.KindDm, storagegraph.KindCrypt:
		return true
	}
	return false
}

// phaseC scrubs each requested root disk: GPT zap, partition-table
// re-read (diagnostic-only on failure), a blkdiscard of the whole disk in
// ModeWipeSignatures only, and a final wipefs (spec §4.5.3). The discard
// step does not look at whether the disk is rotational, and no shred
// pass is ever run.
func phaseC(ctx context.Context, roots []string, mode Mode, report *Report) {
	for _, root := range roots {
		run(ctx, report, PhaseRootScrub, storagegraph.KindDisk, root, "sgdisk-zap", []string{"sgdisk", "--zap-all", root})

		// A partprobe failure is downgraded to diagnostic only (recorded in
		// the report) and never halts the rest of the scrub.
		run(ctx, report, PhaseRootScrub, storagegraph.KindDisk, root, "partprobe", []string{"partprobe", root})

		switch mode {
		case ModeWipeSignatures:
			run(ctx, report, PhaseRootScrub, storagegraph.KindDisk, root, "blkdiscard", []string{"blkdiscard", root})
		}

		run(ctx, report, PhaseRootScrub, storagegraph.KindDisk, root, "wipefs", []string{"wipefs", "-af", root})
	}
}
