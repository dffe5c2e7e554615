package diskoplan

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trbarbour/diskprep/pkg/planner"
)

func samplePlan() *planner.Plan {
	espPart := planner.Partition{DiskPath: "/dev/nvme0n1", Index: 1, SizeBytes: 1 << 30, Type: planner.PartitionESP}
	dataPart := planner.Partition{DiskPath: "/dev/nvme0n1", Index: 2, SizeBytes: 0, Type: planner.PartitionLVM}

	return &planner.Plan{
		Partitions: []planner.Partition{espPart, dataPart},
		VolumeGroups: []planner.VolumeGroup{
			{Name: "main", PVPartition: &dataPart},
		},
		LogicalVolumes: []planner.LogicalVolume{
			{Name: "slash", VG: "main", SizeBytes: 50 << 30, Content: planner.ContentFilesystem, Format: "ext4", Label: "slash", MountPoint: "/", Options: "relatime"},
			{Name: "swap", VG: "main", SizeBytes: 4 << 30, Content: planner.ContentSwap, Label: "swap"},
		},
	}
}

func TestBuildProducesDiskAndVGSections(t *testing.T) {
	doc, err := Build(samplePlan())
	require.NoError(t, err)

	require.Len(t, doc.Disks, 1)
	assert.Equal(t, "nvme0n1", doc.Disks[0].Name)
	require.Len(t, doc.Disks[0].Content.Partitions, 2)
	assert.Equal(t, "vfat", doc.Disks[0].Content.Partitions[0].Content.File.Format)
	assert.Equal(t, "EFI", doc.Disks[0].Content.Partitions[0].Content.File.Label)

	require.Len(t, doc.VolumeGroups, 1)
	assert.Equal(t, "main", doc.VolumeGroups[0].Name)
	require.Len(t, doc.VolumeGroups[0].LVs, 2)
	for _, lv := range doc.VolumeGroups[0].LVs {
		switch lv.Name {
		case "slash":
			assert.Equal(t, "slash", lv.Content.File.Label)
		case "swap":
			assert.Equal(t, "swap", lv.Content.Swap.Label)
		}
	}
}

func TestBuildMdadmMemberDevicesUsePInfixForNvmeDisks(t *testing.T) {
	m1 := planner.Partition{DiskPath: "/dev/nvme0n1", Index: 2, Type: planner.PartitionLinuxRAID}
	m2 := planner.Partition{DiskPath: "/dev/nvme1n1", Index: 2, Type: planner.PartitionLinuxRAID}
	arr := planner.Array{Name: "md0", Level: planner.RAID1, Members: []planner.Partition{m1, m2}}

	plan := &planner.Plan{
		Partitions: []planner.Partition{m1, m2},
		Arrays:     []planner.Array{arr},
	}

	doc, err := Build(plan)
	require.NoError(t, err)
	require.Len(t, doc.MdadmArrays, 1)
	assert.ElementsMatch(t, []string{"/dev/nvme0n1p2", "/dev/nvme1n1p2"}, doc.MdadmArrays[0].Content.Devices)
}

func TestBuildMdadmMemberDevicesOmitPInfixForSdDisks(t *testing.T) {
	m1 := planner.Partition{DiskPath: "/dev/sda", Index: 1, Type: planner.PartitionLinuxRAID}
	m2 := planner.Partition{DiskPath: "/dev/sdb", Index: 1, Type: planner.PartitionLinuxRAID}
	arr := planner.Array{Name: "md0", Level: planner.RAID1, Members: []planner.Partition{m1, m2}}

	plan := &planner.Plan{
		Partitions: []planner.Partition{m1, m2},
		Arrays:     []planner.Array{arr},
	}

	doc, err := Build(plan)
	require.NoError(t, err)
	require.Len(t, doc.MdadmArrays, 1)
	assert.ElementsMatch(t, []string{"/dev/sda1", "/dev/sdb1"}, doc.MdadmArrays[0].Content.Devices)
}

func TestBuildSortsDiskNamesLexically(t *testing.T) {
	plan := &planner.Plan{
		Partitions: []planner.Partition{
			{DiskPath: "/dev/sdb", Index: 1, Type: planner.PartitionLVM},
			{DiskPath: "/dev/sda", Index: 1, Type: planner.PartitionLVM},
		},
	}
	doc, err := Build(plan)
	require.NoError(t, err)
	require.Len(t, doc.Disks, 2)
	assert.Equal(t, "sda", doc.Disks[0].Name)
	assert.Equal(t, "sdb", doc.Disks[1].Name)
}

func TestBuildWiresArrayToVG(t *testing.T) {
	m1 := planner.Partition{DiskPath: "/dev/sda", Index: 1, Type: planner.PartitionLinuxRAID}
	m2 := planner.Partition{DiskPath: "/dev/sdb", Index: 1, Type: planner.PartitionLinuxRAID}
	arr := planner.Array{Name: "main", Level: planner.RAID1, Members: []planner.Partition{m1, m2}}

	plan := &planner.Plan{
		Partitions: []planner.Partition{m1, m2},
		Arrays:     []planner.Array{arr},
		VolumeGroups: []planner.VolumeGroup{
			{Name: "main", PVArray: &arr},
		},
	}

	doc, err := Build(plan)
	require.NoError(t, err)
	require.Len(t, doc.MdadmArrays, 1)
	assert.Equal(t, "main", doc.MdadmArrays[0].Name)
	assert.Equal(t, 1, doc.MdadmArrays[0].Content.Level)
	assert.Equal(t, "main", doc.MdadmArrays[0].Content.Content.LvmPv.VG)
}

func TestEncodeProducesValidJSONWithExpectedKeys(t *testing.T) {
	doc, err := Build(samplePlan())
	require.NoError(t, err)

	out, err := Encode(doc)
	require.NoError(t, err)

	var generic map[string]any
	require.NoError(t, json.Unmarshal(out, &generic))
	assert.Contains(t, generic, "disk")
	assert.Contains(t, generic, "mdadm")
	assert.Contains(t, generic, "lvm_vg")

	disks := generic["disk"].(map[string]any)
	require.Contains(t, disks, "nvme0n1")
}

func TestEncodeEmitsFilesystemAndSwapLabels(t *testing.T) {
	doc, err := Build(samplePlan())
	require.NoError(t, err)

	out, err := Encode(doc)
	require.NoError(t, err)

	var generic map[string]any
	require.NoError(t, json.Unmarshal(out, &generic))

	disks := generic["disk"].(map[string]any)["nvme0n1"].(map[string]any)
	content := disks["content"].(map[string]any)
	parts := content["partitions"].([]any)
	esp := parts[0].(map[string]any)["content"].(map[string]any)
	assert.Equal(t, "EFI", esp["label"])

	vgs := generic["lvm_vg"].(map[string]any)["main"].(map[string]any)
	lvs := vgs["lvs"].(map[string]any)
	slash := lvs["slash"].(map[string]any)["content"].(map[string]any)
	assert.Equal(t, "slash", slash["label"])
	swap := lvs["swap"].(map[string]any)["content"].(map[string]any)
	assert.Equal(t, "swap", swap["label"])
}

func TestEncodeIsDeterministicAcrossCalls(t *testing.T) {
	doc, err := Build(samplePlan())
	require.NoError(t, err)

	a, err := Encode(doc)
	require.NoError(t, err)
	b, err := Encode(doc)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}
