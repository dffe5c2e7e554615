package storagegraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBuilder() *builder { return &builder{seen: map[key]NodeIndex{}} }

func TestAddBlockTreeLinksParentChild(t *testing.T) {
	b := newBuilder()
	forest := []blockNode{
		{
			Name: "/dev/sda", Type: "disk",
			Children: []blockNode{
				{Name: "/dev/sda1", Type: "part", MountPoint: "/boot/efi", FSType: "vfat"},
				{Name: "/dev/sda2", Type: "part", FSType: "linux_raid_member"},
			},
		},
	}
	b.addBlockTree(forest)

	g := &Graph{Nodes: b.nodes}
	require.Len(t, g.Nodes, 3)

	diskIdx, ok := b.seen[key{kind: KindDisk, identifier: "/dev/sda"}]
	require.True(t, ok)
	assert.Len(t, g.Nodes[diskIdx].Children, 2)
}

func TestAddLVMWiresPVVGLV(t *testing.T) {
	b := newBuilder()
	b.addBlockTree([]blockNode{{Name: "/dev/md0", Type: "raid1"}})

	pvs := []map[string]string{{"pv_name": "/dev/md0", "vg_name": "main"}}
	vgs := []map[string]string{{"vg_name": "main"}}
	lvs := []map[string]string{{"lv_name": "slash", "vg_name": "main", "lv_path": "/dev/main/slash"}}
	b.addLVM(pvs, vgs, lvs)

	vgIdx, ok := b.seen[key{kind: KindVG, identifier: "main"}]
	require.True(t, ok)
	g := &Graph{Nodes: b.nodes}
	assert.Len(t, g.Nodes[vgIdx].Children, 1)
	assert.Equal(t, "main/slash", g.Nodes[g.Nodes[vgIdx].Children[0]].Identifier)

	pvIdx, ok := b.seen[key{kind: KindMdArray, identifier: "/dev/md0"}]
	require.True(t, ok, "pv aliases the existing md block node rather than duplicating it")
	assert.Contains(t, g.Nodes[pvIdx].Children, vgIdx)
}

func TestAddLoopEntries(t *testing.T) {
	b := newBuilder()
	b.addLoopEntries([]LoopEntry{{Name: "/dev/loop0", BackFile: "/tmp/disk.img"}})
	idx, ok := b.seen[key{kind: KindLoop, identifier: "/dev/loop0"}]
	require.True(t, ok)
	assert.Equal(t, "/dev/loop0", b.nodes[idx].Identifier)
}

func TestReachableFromPrunesUnreachableNodes(t *testing.T) {
	b := newBuilder()
	b.addBlockTree([]blockNode{
		{Name: "/dev/sda", Type: "disk", Children: []blockNode{{Name: "/dev/sda1", Type: "part"}}},
		{Name: "/dev/sdb", Type: "disk", Children: []blockNode{{Name: "/dev/sdb1", Type: "part"}}},
	})
	full := &Graph{Nodes: b.nodes}

	reachable, err := full.reachableFrom([]string{"/dev/sda"})
	require.NoError(t, err)
	require.Len(t, reachable.Nodes, 2)
	for _, n := range reachable.Nodes {
		assert.Contains(t, []string{"/dev/sda", "/dev/sda1"}, n.Identifier)
	}
}

func TestAssignDepthsLeafIsZero(t *testing.T) {
	b := newBuilder()
	b.addBlockTree([]blockNode{
		{Name: "/dev/sda", Type: "disk", Children: []blockNode{
			{Name: "/dev/sda1", Type: "part"},
		}},
	})
	g := &Graph{Nodes: b.nodes}
	require.NoError(t, g.assignDepths())

	leafIdx := b.seen[key{kind: KindPartition, identifier: "/dev/sda1"}]
	diskIdx := b.seen[key{kind: KindDisk, identifier: "/dev/sda"}]
	assert.Equal(t, 0, g.Nodes[leafIdx].Depth)
	assert.Equal(t, 1, g.Nodes[diskIdx].Depth)
}

func TestAssignDepthsDetectsCycle(t *testing.T) {
	g := &Graph{Nodes: []StorageNode{
		{Kind: KindVG, Identifier: "a", Children: []NodeIndex{1}},
		{Kind: KindVG, Identifier: "b", Children: []NodeIndex{0}},
	}}
	err := g.assignDepths()
	assert.Error(t, err)
}

func TestTeardownOrderAscendingDepth(t *testing.T) {
	b := newBuilder()
	b.addBlockTree([]blockNode{
		{Name: "/dev/sda", Type: "disk", Children: []blockNode{
			{Name: "/dev/sda1", Type: "part"},
		}},
	})
	g := &Graph{Nodes: b.nodes}
	require.NoError(t, g.assignDepths())

	order := g.TeardownOrder()
	require.Len(t, order, 2)
	assert.Equal(t, "/dev/sda1", g.Nodes[order[0]].Identifier, "leaf partition tears down before its parent disk")
	assert.Equal(t, "/dev/sda", g.Nodes[order[1]].Identifier)
}
