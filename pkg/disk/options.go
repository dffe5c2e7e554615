package disk

// DeviceTypeFunc decides whether a block device of the given lsblk TYPE
// column ("disk", "part", "lvm", "raid0", "loop", …) is kept.
type DeviceTypeFunc func(deviceType string) bool

// FsTypeFunc decides whether a block device's filesystem/signature type
// is kept.
type FsTypeFunc func(fsType string) bool

// DefaultDeviceTypeFunc keeps physical disks, partitions, and LVM/RAID
// logical devices; it drops loop devices, which never back a real
// physical disk that diskprep would plan against.
func DefaultDeviceTypeFunc(deviceType string) bool {
	switch deviceType {
	case "disk", "part", "lvm", "raid0", "raid1", "raid5", "raid6", "raid10", "crypt":
		return true
	default:
		return false
	}
}

// DefaultExt4FsTypeFunc matches the ext4 filesystem signature.
func DefaultExt4FsTypeFunc(fsType string) bool {
	return fsType == "ext4"
}

// DefaultNFSFsTypeFunc matches network/cluster filesystem signatures
// that diskprep must never attempt to reformat even when otherwise
// unmounted (wekafs, lustre, …).
func DefaultNFSFsTypeFunc(fsType string) bool {
	switch fsType {
	case "wekafs", "lustre", "nfs", "nfs4", "glusterfs", "ceph":
		return true
	default:
		return false
	}
}

// DefaultFsTypeFunc keeps devices with no signature, or with a signature
// diskprep's planner and storage graph both understand (ext4, vfat, the
// LVM/RAID member markers). It drops fuse-backed and clustered
// filesystems, which are never candidates for wiping.
func DefaultFsTypeFunc(fsType string) bool {
	switch fsType {
	case "", "ext4", "vfat", "swap", "LVM2_member", "linux_raid_member", "raid0", "raid1", "raid5", "raid6", "raid10":
		return true
	default:
		return false
	}
}

// Op holds the filter predicates applied while parsing lsblk output.
type Op struct {
	deviceTypeFunc DeviceTypeFunc
	fsTypeFunc     FsTypeFunc
}

type OpOption func(*Op)

// WithDeviceType overrides the device-type predicate (default
// DefaultDeviceTypeFunc).
func WithDeviceType(f DeviceTypeFunc) OpOption {
	return func(op *Op) { op.deviceTypeFunc = f }
}

// WithFsType overrides the filesystem-type predicate (default
// DefaultFsTypeFunc).
func WithFsType(f FsTypeFunc) OpOption {
	return func(op *Op) { op.fsTypeFunc = f }
}

func (op *Op) applyOpts(opts []OpOption) error {
	op.deviceTypeFunc = DefaultDeviceTypeFunc
	op.fsTypeFunc = DefaultFsTypeFunc
	for _, opt := range opts {
		opt(op)
	}
	return nil
}
