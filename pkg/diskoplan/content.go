// Package diskoplan renders a planner.Plan into the tagged-variant
// declarative tree a disko-shaped external formatter consumes, and
// persists it as canonical JSON.
package diskoplan

// Content is a tagged variant: exactly one of the embedded *Kind fields
// is non-nil. The formatter keys off Type, the same way the planner's
// own content types do.
type Content struct {
	Type string

	File  *FileContent
	Swap  *SwapContent
	LvmPv *LvmPvContent
	Gpt   *GptContent
	Mdadm *MdadmContent
}

const (
	TypeFilesystem = "filesystem"
	TypeSwap       = "swap"
	TypeLvmPv      = "lvm_pv"
	TypeGpt        = "gpt"
	TypeDisk       = "disk"
	TypeLvmVg      = "lvm_vg"
	TypeMdadm      = "mdadm"
)

// FileContent formats and mounts a filesystem.
type FileContent struct {
	Format       string
	Label        string
	MountPoint   string
	MountOptions []string
}

// SwapContent activates a swap device.
type SwapContent struct {
	Label string
}

// LvmPvContent marks a block device as a physical volume belonging to VG.
type LvmPvContent struct {
	VG string
}

// GptPartition is one entry in a GptContent partition table.
type GptPartition struct {
	Number  int
	Label   string
	Type    string // "EF00", "linux-raid", "lvm", ...
	SizeMiB uint64 // 0 means "remainder of the disk"
	Content Content
}

// GptContent is a GPT partition table applied to a disk.
type GptContent struct {
	Partitions []GptPartition
}

// Disk is a top-level disk.<name> section.
type Disk struct {
	Name    string
	Device  string
	Content GptContent
}

// MdadmContent assembles member devices into a RAID array, whose own
// Content (typically an LvmPvContent) is applied to the resulting device.
type MdadmContent struct {
	Level   int
	Devices []string
	Content Content
}

// Mdadm is a top-level mdadm.<name> section.
type Mdadm struct {
	Name    string
	Content MdadmContent
}

// LogicalVolume is one lvs.<name> entry within a VolumeGroup.
type LogicalVolume struct {
	Name    string
	SizeMiB uint64 // 0 means "remainder of the VG"
	Content Content
}

// VolumeGroup is a top-level lvm_vg.<name> section.
type VolumeGroup struct {
	Name string
	LVs  []LogicalVolume
}

// Document is the root of the rendered tree: disks, mdadm arrays, and
// volume groups, each keyed by name and emitted in the order given.
type Document struct {
	Disks        []Disk
	MdadmArrays  []Mdadm
	VolumeGroups []VolumeGroup
}

func filesystemContent(format, label, mountPoint, options string) Content {
	var opts []string
	if options != "" {
		opts = []string{options}
	}
	return Content{Type: TypeFilesystem, File: &FileContent{Format: format, Label: label, MountPoint: mountPoint, MountOptions: opts}}
}

func swapContent(label string) Content {
	return Content{Type: TypeSwap, Swap: &SwapContent{Label: label}}
}

func lvmPvContent(vg string) Content {
	return Content{Type: TypeLvmPv, LvmPv: &LvmPvContent{VG: vg}}
}
