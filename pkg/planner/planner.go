package planner

import (
	"fmt"

	"github.com/trbarbour/diskprep/pkg/disk"
)

// Plan is the planner's entry point: a pure, total function from an
// inventory and a configuration to either a Plan or a structured
// PlanError. It performs no I/O — RAM-based swap sizing is resolved by
// the caller into Config.RAMBytes before Plan is called, the same way
// disk.GetDisks is a separate I/O step from this pure function.
func Plan(inv disk.Disks, cfg Config) (*Plan, *PlanError) {
	if cfg.Mode == "" {
		cfg.Mode = ModeFast
	}
	if cfg.ESPSizeBytes == 0 {
		cfg.ESPSizeBytes = DefaultESPSizeBytes
	}

	if len(inv) == 0 {
		return nil, &PlanError{Kind: NoEligibleDisks, Message: "inventory contains no eligible disks"}
	}

	swapWanted := cfg.SwapSizeBytes
	if swapWanted == 0 {
		if cfg.RAMBytes == 0 {
			return nil, &PlanError{Kind: ConfigConflict, Message: "swap_size=auto requires a RAM size to be supplied"}
		}
		swapWanted = 2 * cfg.RAMBytes
	}

	ssdBuckets := bucketDisks(inv, false)
	hddBuckets := bucketDisks(inv, true)

	if len(ssdBuckets) == 0 {
		return nil, &PlanError{Kind: InsufficientCapacityForRoot, Message: "no SSD disks available to host VG main"}
	}

	p := &Plan{Mode: cfg.Mode, Disks: append(disk.Disks{}, inv...)}
	p.Buckets = append(p.Buckets, ssdBuckets...)
	p.Buckets = append(p.Buckets, hddBuckets...)

	for _, d := range inv {
		if d.HasSignature && !cfg.ForceIgnoreSignatures {
			p.FlaggedDisks = append(p.FlaggedDisks, FlaggedDisk{Disk: d, SignatureKind: d.SignatureKind})
		}
	}

	idx := newPartitionIndexer()

	mainVG, mainCapacity, mainParts, perr := buildMainTier(ssdBuckets[0], cfg, idx)
	if perr != nil {
		return nil, perr
	}
	p.Partitions = append(p.Partitions, mainParts...)
	if mainVG.PVArray != nil {
		p.Arrays = append(p.Arrays, *mainVG.PVArray)
	}
	p.VolumeGroups = append(p.VolumeGroups, *mainVG)

	for i, bucket := range ssdBuckets {
		if i == 0 {
			continue // primary bucket already built above
		}
		p.Partitions = append(p.Partitions, tagOnlyPartitions(bucket, idx, fmt.Sprintf("main_%d", i))...)
	}

	var swapVG, largeVG *VolumeGroup
	var swapCapacity, largeCapacity uint64
	if len(hddBuckets) > 0 {
		sv, sc, lv, lc, parts := buildHDDTier(hddBuckets[0], idx)
		swapVG, swapCapacity = sv, sc
		largeVG, largeCapacity = lv, lc
		p.Partitions = append(p.Partitions, parts...)
		if swapVG != nil {
			if swapVG.PVArray != nil {
				p.Arrays = append(p.Arrays, *swapVG.PVArray)
			}
			p.VolumeGroups = append(p.VolumeGroups, *swapVG)
		}
		if largeVG != nil {
			if largeVG.PVArray != nil {
				p.Arrays = append(p.Arrays, *largeVG.PVArray)
			}
			p.VolumeGroups = append(p.VolumeGroups, *largeVG)
		}

		for i, bucket := range hddBuckets {
			if i == 0 {
				continue
			}
			p.Partitions = append(p.Partitions, tagOnlyPartitions(bucket, idx, fmt.Sprintf("large_%d", i))...)
		}
	}

	lvs, postApply, perr := buildLogicalVolumes(mainCapacity, swapVG, swapCapacity, largeVG, largeCapacity, swapWanted)
	if perr != nil {
		return nil, perr
	}
	p.LogicalVolumes = lvs
	p.PostApplyCommands = postApply

	return p, nil
}

type partitionIndexer struct {
	next map[string]int
}

func newPartitionIndexer() *partitionIndexer {
	return &partitionIndexer{next: map[string]int{}}
}

func (pi *partitionIndexer) allocate(diskPath string) int {
	pi.next[diskPath]++
	return pi.next[diskPath]
}

// buildMainTier lays out the primary SSD bucket: every disk gets an ESP
// plus a data partition (spec §4.2.3), the data partitions are arrayed
// per §4.2.2, and the result becomes VG "main". It returns the VG, the
// usable byte capacity backing it, and every partition created.
func buildMainTier(bucket SizeBucket, cfg Config, idx *partitionIndexer) (*VolumeGroup, uint64, []Partition, *PlanError) {
	raidPlan := planSSDRAID(len(bucket.Disks), cfg.Mode)

	var parts []Partition
	var dataParts []Partition
	for _, d := range bucket.Disks {
		espIdx := idx.allocate(d.Path)
		parts = append(parts, Partition{DiskPath: d.Path, Index: espIdx, SizeBytes: cfg.ESPSizeBytes, Type: PartitionESP})

		dataIdx := idx.allocate(d.Path)
		dataType := PartitionLVM
		if raidPlan.Level != RAIDNone {
			dataType = PartitionLinuxRAID
		}
		dp := Partition{DiskPath: d.Path, Index: dataIdx, SizeBytes: 0, Type: dataType}
		parts = append(parts, dp)
		dataParts = append(dataParts, dp)
	}

	memberSize := bucket.SmallestBytes() - cfg.ESPSizeBytes

	vg := &VolumeGroup{Name: "main"}
	var capacity uint64

	switch {
	case raidPlan.Level == RAIDNone:
		pv := dataParts[0]
		vg.PVPartition = &pv
		capacity = memberSize
	default:
		members := dataParts[:raidPlan.MembersUsed]
		arr := Array{Name: "main", Level: raidPlan.Level, Members: members, ChunkBytes: 512 * 1024, Metadata: "1.2"}
		vg.PVArray = &arr
		capacity = raidCapacity(raidPlan.Level, raidPlan.MembersUsed, memberSize)
	}

	if capacity < DefaultSlashSizeBytes {
		return nil, 0, nil, &PlanError{Kind: InsufficientCapacityForRoot, Message: fmt.Sprintf("VG main capacity %d bytes is below the fixed slash size %d", capacity, DefaultSlashSizeBytes)}
	}

	return vg, capacity, parts, nil
}

// buildHDDTier lays out the primary HDD bucket: an optional 2-disk swap
// mirror reservation, plus a data array over the bucket's remaining
// capacity (spec §4.2.2). Per the Data Model's Array invariant ("members
// all drawn from one SizeBucket"), the data array draws only from this
// bucket; other HDD buckets are left unassembled, same as secondary SSD
// buckets.
func buildHDDTier(bucket SizeBucket, idx *partitionIndexer) (*VolumeGroup, uint64, *VolumeGroup, uint64, []Partition) {
	n := len(bucket.Disks)
	var parts []Partition

	var swapVG *VolumeGroup
	var swapCapacity uint64
	reserveSwap := n >= 2
	swapReserveBytes := uint64(0)
	if reserveSwap {
		swapReserveBytes = bucket.SmallestBytes() / 16 // conservative slice of each disk; sized precisely by the configured swap LV later
	}

	dataRaidPlan := hddDataRAIDPlan(n)
	var dataParts []Partition
	var swapReserveParts []Partition

	for i, d := range bucket.Disks {
		if reserveSwap && i < 2 {
			swapIdx := idx.allocate(d.Path)
			sp := Partition{DiskPath: d.Path, Index: swapIdx, SizeBytes: swapReserveBytes, Type: PartitionLinuxRAID}
			parts = append(parts, sp)
			swapReserveParts = append(swapReserveParts, sp)
		}

		dataIdx := idx.allocate(d.Path)
		dataType := PartitionLVM
		if dataRaidPlan.Level != RAIDNone {
			dataType = PartitionLinuxRAID
		}
		dp := Partition{DiskPath: d.Path, Index: dataIdx, SizeBytes: 0, Type: dataType}
		parts = append(parts, dp)
		dataParts = append(dataParts, dp)
	}

	if reserveSwap {
		arr := Array{Name: "swap", Level: RAID1, Members: swapReserveParts, ChunkBytes: 512 * 1024, Metadata: "1.2"}
		swapVG = &VolumeGroup{Name: "swap", PVArray: &arr}
		swapCapacity = swapReserveBytes
	}

	memberSize := bucket.SmallestBytes()
	if reserveSwap {
		memberSize -= swapReserveBytes
	}

	var largeVG *VolumeGroup
	var largeCapacity uint64
	switch {
	case dataRaidPlan.Level == RAIDNone:
		pv := dataParts[0]
		largeVG = &VolumeGroup{Name: "large", PVPartition: &pv}
		largeCapacity = memberSize
	default:
		members := dataParts[:dataRaidPlan.MembersUsed]
		arr := Array{Name: "large", Level: dataRaidPlan.Level, Members: members, ChunkBytes: 512 * 1024, Metadata: "1.2"}
		largeVG = &VolumeGroup{Name: "large", PVArray: &arr}
		largeCapacity = raidCapacity(dataRaidPlan.Level, dataRaidPlan.MembersUsed, memberSize)
	}

	return swapVG, swapCapacity, largeVG, largeCapacity, parts
}

// tagOnlyPartitions lays out a single full-disk data partition per disk
// in a non-primary bucket, tagged for LVM but never assembled into an
// array or volume group: the bucket is "left unassembled" per spec
// §4.2.2, available for a later manual extension of name's tier.
func tagOnlyPartitions(bucket SizeBucket, idx *partitionIndexer, name string) []Partition {
	_ = name
	var parts []Partition
	for _, d := range bucket.Disks {
		i := idx.allocate(d.Path)
		parts = append(parts, Partition{DiskPath: d.Path, Index: i, SizeBytes: 0, Type: PartitionLVM})
	}
	return parts
}

// raidCapacity approximates the usable capacity of an array built from
// n members of memberSize each.
func raidCapacity(level RAIDLevel, n int, memberSize uint64) uint64 {
	switch level {
	case RAID0:
		return memberSize * uint64(n)
	case RAID1:
		return memberSize
	case RAID5:
		return memberSize * uint64(n-1)
	case RAID6:
		return memberSize * uint64(n-2)
	case RAID10:
		return memberSize * uint64(n/2)
	default:
		return memberSize
	}
}

func roundDownToExtent(size uint64) uint64 {
	return (size / extentSizeBytes) * extentSizeBytes
}

// withSafetyMargin returns the largest size allocable from an available
// capacity without ever consuming the VG's last extentSafetyMargin
// extents (spec §4.2.4).
func withSafetyMargin(available uint64) uint64 {
	margin := extentSizeBytes * extentSafetyMargin
	if available <= margin {
		return 0
	}
	return roundDownToExtent(available - margin)
}
