// Package planner turns a disk inventory into a deterministic storage
// plan: bucketing disks by size, choosing RAID levels, laying out GPT
// partitions, and constructing the LVM volume groups and logical
// volumes diskprep will render and apply. Plan is a pure, total
// function of its inputs — it performs no I/O and never blocks.
package planner

import "github.com/trbarbour/diskprep/pkg/disk"

// Mode toggles conservative-vs-throughput-biased defaults across
// bucketing, RAID selection, and mkfs options.
type Mode string

const (
	ModeFast    Mode = "fast"
	ModeCareful Mode = "careful"
)

// Config is the planner's configuration input. Zero values mean "use
// the spec default" except where noted.
type Config struct {
	Mode Mode

	// ESPSizeBytes defaults to 1 GiB when zero.
	ESPSizeBytes uint64

	// SwapSizeBytes is the desired swap LV size. If zero, 2*RAMBytes is
	// used (RAMBytes must then be supplied by the caller — the planner
	// never probes RAM itself).
	SwapSizeBytes uint64
	RAMBytes      uint64

	// ForceIgnoreSignatures allows planning over disks that carry an
	// existing filesystem/RAID/LVM signature. When false, such disks
	// are still included in the plan but flagged (FlaggedDisk) for the
	// applier to surface to the cleanup engine.
	ForceIgnoreSignatures bool
}

const (
	DefaultESPSizeBytes  = 1 << 30        // 1 GiB
	DefaultSlashSizeBytes = 50 << 30      // 50 GiB
	DefaultHomeSizeBytes  = 16 << 30      // 16 GiB cap
	DefaultDataSizeBytes  = 100 << 30     // 100 GiB
	DefaultVarLogCapBytes = 4 << 30       // 4 GiB cap
	bucketTolerance       = 0.01
	extentSizeBytes       = 4 << 20 // 4 MiB, matching LVM's default PE size
	extentSafetyMargin    = 2       // never allocate the last 2 extents of a VG
)

// RAIDLevel mirrors md's level numbering (0 is RAID0); RAIDNone (-1)
// means "no array, single member used directly".
type RAIDLevel int

const (
	RAIDNone RAIDLevel = -1
	RAID0    RAIDLevel = 0
	RAID1    RAIDLevel = 1
	RAID5    RAIDLevel = 5
	RAID6    RAIDLevel = 6
	RAID10   RAIDLevel = 10
)

// SizeBucket groups disks of the same rotational class whose sizes fall
// within 1% of each other.
type SizeBucket struct {
	Rotational bool
	Disks      []disk.Disk
}

// TotalBytes sums the bucket's disk sizes.
func (b SizeBucket) TotalBytes() uint64 {
	var total uint64
	for _, d := range b.Disks {
		total += d.SizeBytes
	}
	return total
}

// SmallestBytes returns the size of the smallest disk in the bucket,
// the safe per-disk capacity to build partitions/arrays against.
func (b SizeBucket) SmallestBytes() uint64 {
	if len(b.Disks) == 0 {
		return 0
	}
	min := b.Disks[0].SizeBytes
	for _, d := range b.Disks[1:] {
		if d.SizeBytes < min {
			min = d.SizeBytes
		}
	}
	return min
}

// PartitionType is the GPT partition type tag.
type PartitionType string

const (
	PartitionESP       PartitionType = "EF00"
	PartitionLinuxRAID PartitionType = "linux-raid"
	PartitionLVM       PartitionType = "lvm"
)

// Partition is a single GPT slice on a Disk.
type Partition struct {
	DiskPath string
	Index    int
	SizeBytes uint64 // 0 means "remainder"
	Type      PartitionType
}

// Array is a logical md device built from partitions of a single
// SizeBucket.
type Array struct {
	Name       string
	Level      RAIDLevel
	Members    []Partition
	ChunkBytes uint64
	Metadata   string
}

// VolumeGroup is a named LVM VG. Its PV is either a single partition
// (PVPartition, no RAID) or an Array's resulting md device (PVArray).
type VolumeGroup struct {
	Name      string
	PVPartition *Partition
	PVArray     *Array
}

// ContentKind enumerates the LV content types from spec §4.3.
type ContentKind string

const (
	ContentFilesystem ContentKind = "filesystem"
	ContentSwap       ContentKind = "swap"
)

// LogicalVolume is a single LV within a VolumeGroup.
type LogicalVolume struct {
	Name        string
	VG          string
	SizeBytes   uint64
	Content     ContentKind
	Format      string // "ext4", empty for swap
	Label       string
	MountPoint  string
	Options     string
}

// PostApplyCommand is one ordered action run after the formatter
// reports success.
type PostApplyCommand struct {
	Description string
	Path        string
	Mode        string
}

// FlaggedDisk notes a disk the planner included despite a pre-existing
// signature, for the applier to surface to the cleanup engine.
type FlaggedDisk struct {
	Disk          disk.Disk
	SignatureKind string
}

// Plan is the root aggregate the planner produces.
type Plan struct {
	Disks              []disk.Disk
	Buckets            []SizeBucket
	Partitions         []Partition
	Arrays             []Array
	VolumeGroups       []VolumeGroup
	LogicalVolumes     []LogicalVolume
	PostApplyCommands  []PostApplyCommand
	FlaggedDisks       []FlaggedDisk
	Mode               Mode
}
