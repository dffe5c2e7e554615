package storagegraph

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/trbarbour/diskprep/pkg/process"
)

// blockNode mirrors the subset of lsblk's JSON schema the graph builder
// needs, kept separate from pkg/disk.BlockDevice since the graph also
// wants MOUNTPOINT/FSTYPE on every descendant, not just top-level disks.
type blockNode struct {
	Name       string      `json:"name"`
	Type       string      `json:"type"`
	MountPoint string      `json:"mountpoint"`
	FSType     string      `json:"fstype"`
	Children   []blockNode `json:"children"`
}

type blockTreeDoc struct {
	BlockDevices []blockNode `json:"blockdevices"`
}

// blockTree runs lsblk in recursive JSON mode and returns the raw forest,
// parent/child relationships intact.
func blockTree(ctx context.Context) ([]blockNode, error) {
	p, err := process.New(process.WithCommand("lsblk", "--paths", "--json", "--output", "NAME,TYPE,MOUNTPOINT,FSTYPE"))
	if err != nil {
		return nil, fmt.Errorf("storagegraph: constructing lsblk command: %w", err)
	}
	out, err := p.StartAndWaitForCombinedOutput(ctx)
	if err != nil {
		return nil, fmt.Errorf("storagegraph: running lsblk: %w", err)
	}

	var doc blockTreeDoc
	if err := json.Unmarshal(out, &doc); err != nil {
		return nil, fmt.Errorf("storagegraph: parsing lsblk json: %w", err)
	}
	return doc.BlockDevices, nil
}

func blockKind(bd blockNode) Kind {
	switch {
	case bd.Type == "disk":
		return KindDisk
	case bd.Type == "part":
		return KindPartition
	case strings.HasPrefix(bd.Type, "raid"):
		return KindMdArray
	case bd.Type == "loop":
		return KindLoop
	case bd.Type == "lvm":
		return KindLV
	case bd.Type == "crypt":
		return KindCrypt
	case bd.Type == "dm":
		return KindDm
	default:
		return KindPartition
	}
}

// ensureBlockNode inserts or reuses the node for bd and returns its index.
func (g *builder) ensureBlockNode(bd blockNode) NodeIndex {
	k := key{kind: blockKind(bd), identifier: bd.Name}
	if idx, ok := g.seen[k]; ok {
		return idx
	}
	idx := g.add(StorageNode{
		Kind:       k.kind,
		Identifier: bd.Name,
		MountPoint: bd.MountPoint,
		FSType:     bd.FSType,
		SwapActive: bd.FSType == "swap" && bd.MountPoint == "[SWAP]",
	})
	g.seen[k] = idx
	return idx
}

func (g *builder) addBlockTree(forest []blockNode) {
	var walk func(bd blockNode, parent *NodeIndex)
	walk = func(bd blockNode, parent *NodeIndex) {
		idx := g.ensureBlockNode(bd)
		if parent != nil {
			g.link(*parent, idx)
		}
		for _, c := range bd.Children {
			walk(c, &idx)
		}
	}
	for _, bd := range forest {
		walk(bd, nil)
	}
}
