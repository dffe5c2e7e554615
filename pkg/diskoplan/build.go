package diskoplan

import (
	"fmt"
	"sort"

	"github.com/trbarbour/diskprep/pkg/planner"
)

// Build translates a planner.Plan into a Document. It is a pure
// transformation: every byte size, partition, array, and LV already
// decided by the planner is carried across unchanged, only reshaped into
// the tagged-variant tree the formatter expects.
func Build(plan *planner.Plan) (*Document, error) {
	doc := &Document{}

	partitionsByDisk := map[string][]planner.Partition{}
	for _, p := range plan.Partitions {
		partitionsByDisk[p.DiskPath] = append(partitionsByDisk[p.DiskPath], p)
	}

	lvsByVG := map[string][]planner.LogicalVolume{}
	for _, lv := range plan.LogicalVolumes {
		lvsByVG[lv.VG] = append(lvsByVG[lv.VG], lv)
	}

	arrayMemberDisk := map[string]string{} // "<disk>#<index>" -> owning array name, for partition->content wiring
	for _, a := range plan.Arrays {
		for _, m := range a.Members {
			arrayMemberDisk[fmt.Sprintf("%s#%d", m.DiskPath, m.Index)] = a.Name
		}
	}

	vgByArray := map[string]string{}
	vgByPVPartition := map[string]string{} // "<disk>#<index>" -> vg name
	for _, vg := range plan.VolumeGroups {
		if vg.PVArray != nil {
			vgByArray[vg.PVArray.Name] = vg.Name
		}
		if vg.PVPartition != nil {
			vgByPVPartition[fmt.Sprintf("%s#%d", vg.PVPartition.DiskPath, vg.PVPartition.Index)] = vg.Name
		}
	}

	diskNames := make([]string, 0, len(partitionsByDisk))
	for name := range partitionsByDisk {
		diskNames = append(diskNames, name)
	}
	sort.Strings(diskNames)

	for _, diskPath := range diskNames {
		parts := append([]planner.Partition{}, partitionsByDisk[diskPath]...)
		sort.Slice(parts, func(i, j int) bool { return parts[i].Index < parts[j].Index })

		var gptParts []GptPartition
		for _, p := range parts {
			key := fmt.Sprintf("%s#%d", p.DiskPath, p.Index)

			var content Content
			switch {
			case p.Type == planner.PartitionESP:
				content = filesystemContent("vfat", "EFI", "/boot/efi", "")
			case vgByPVPartition[key] != "":
				content = lvmPvContent(vgByPVPartition[key])
			case arrayMemberDisk[key] != "":
				// Member of an array; the array itself carries the PV content,
				// so the partition's own content is just its raid-member type.
				content = Content{}
			default:
				content = lvmPvContent("") // tag-only partition, reserved for later manual assembly
			}

			gptParts = append(gptParts, GptPartition{
				Number:  p.Index,
				Label:   fmt.Sprintf("%s-%d", diskName(diskPath), p.Index),
				Type:    string(p.Type),
				SizeMiB: toMiB(p.SizeBytes),
				Content: content,
			})
		}

		doc.Disks = append(doc.Disks, Disk{
			Name:    diskName(diskPath),
			Device:  diskPath,
			Content: GptContent{Partitions: gptParts},
		})
	}

	arrayNames := make([]string, 0, len(plan.Arrays))
	for _, a := range plan.Arrays {
		arrayNames = append(arrayNames, a.Name)
	}
	sort.Strings(arrayNames)
	byName := map[string]planner.Array{}
	for _, a := range plan.Arrays {
		byName[a.Name] = a
	}

	for _, name := range arrayNames {
		a := byName[name]
		var devices []string
		for _, m := range a.Members {
			devices = append(devices, partitionDevicePath(m.DiskPath, m.Index))
		}

		var inner Content
		if vg := vgByArray[a.Name]; vg != "" {
			inner = lvmPvContent(vg)
		}

		doc.MdadmArrays = append(doc.MdadmArrays, Mdadm{
			Name: a.Name,
			Content: MdadmContent{
				Level:   int(a.Level),
				Devices: devices,
				Content: inner,
			},
		})
	}

	vgNames := make([]string, 0, len(plan.VolumeGroups))
	for _, vg := range plan.VolumeGroups {
		vgNames = append(vgNames, vg.Name)
	}
	sort.Strings(vgNames)

	for _, name := range vgNames {
		lvs := lvsByVG[name]
		sort.Slice(lvs, func(i, j int) bool { return lvs[i].Name < lvs[j].Name })

		var outLVs []LogicalVolume
		for _, lv := range lvs {
			var content Content
			switch lv.Content {
			case planner.ContentSwap:
				content = swapContent(lv.Label)
			default:
				content = filesystemContent(lv.Format, lv.Label, lv.MountPoint, lv.Options)
			}
			outLVs = append(outLVs, LogicalVolume{Name: lv.Name, SizeMiB: toMiB(lv.SizeBytes), Content: content})
		}

		doc.VolumeGroups = append(doc.VolumeGroups, VolumeGroup{Name: name, LVs: outLVs})
	}

	return doc, nil
}

func toMiB(b uint64) uint64 { return b / (1 << 20) }

// partitionDevicePath derives a member partition's device path from its
// disk path and partition index. Disks whose base name already ends in a
// digit (nvme, mmcblk, loop) need a "p" infix before the partition number
// so it isn't read as part of the disk's own number, e.g. "/dev/nvme0n1"
// + 2 -> "/dev/nvme0n1p2", but "/dev/sda" + 2 -> "/dev/sda2".
func partitionDevicePath(diskPath string, index int) string {
	if n := len(diskPath); n > 0 && diskPath[n-1] >= '0' && diskPath[n-1] <= '9' {
		return fmt.Sprintf("%sp%d", diskPath, index)
	}
	return fmt.Sprintf("%s%d", diskPath, index)
}

// diskName derives the disko disk-section key from a device path, e.g.
// "/dev/nvme0n1" -> "nvme0n1".
func diskName(devicePath string) string {
	for i := len(devicePath) - 1; i >= 0; i-- {
		if devicePath[i] == '/' {
			return devicePath[i+1:]
		}
	}
	return devicePath
}
