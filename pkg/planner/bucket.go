package planner

import (
	"sort"

	"github.com/trbarbour/diskprep/pkg/disk"
)

// bucketDisks groups disks of the given rotational class into
// SizeBuckets per spec §4.2.1: two disks share a bucket when their size
// difference is within 1% of the larger. Buckets are sorted by total
// capacity descending, so index 0 is always the primary bucket of that
// class.
func bucketDisks(inv disk.Disks, rotational bool) []SizeBucket {
	var class []disk.Disk
	for _, d := range inv {
		if d.Rotational == rotational {
			class = append(class, d)
		}
	}
	if len(class) == 0 {
		return nil
	}

	sort.Slice(class, func(i, j int) bool { return class[i].SizeBytes > class[j].SizeBytes })

	var buckets []SizeBucket
	for _, d := range class {
		placed := false
		for i := range buckets {
			if withinTolerance(d.SizeBytes, buckets[i].Disks[0].SizeBytes) {
				buckets[i].Disks = append(buckets[i].Disks, d)
				placed = true
				break
			}
		}
		if !placed {
			buckets = append(buckets, SizeBucket{Rotational: rotational, Disks: []disk.Disk{d}})
		}
	}

	sort.SliceStable(buckets, func(i, j int) bool { return buckets[i].TotalBytes() > buckets[j].TotalBytes() })
	return buckets
}

func withinTolerance(a, b uint64) bool {
	max, min := a, b
	if min > max {
		max, min = min, max
	}
	if max == 0 {
		return true
	}
	diff := float64(max-min) / float64(max)
	return diff <= bucketTolerance
}
