package planner

// buildLogicalVolumes implements spec §4.2.4: the fixed slash LV, an
// optional home LV, the three-tier swap fallback (swap VG, else large
// VG, else main VG, else omitted), swap VG's var_tmp/var_log overflow
// LVs, and the large/data LV — all respecting the extent safety margin.
func buildLogicalVolumes(
	mainCapacity uint64,
	swapVG *VolumeGroup, swapCapacity uint64,
	largeVG *VolumeGroup, largeCapacity uint64,
	swapWanted uint64,
) ([]LogicalVolume, []PostApplyCommand, *PlanError) {
	var lvs []LogicalVolume
	var postApply []PostApplyCommand

	mainRemaining := withSafetyMargin(mainCapacity)
	if mainRemaining < DefaultSlashSizeBytes {
		return nil, nil, &PlanError{Kind: InsufficientCapacityForRoot, Message: "VG main capacity leaves no room for the fixed slash LV after the extent safety margin"}
	}

	lvs = append(lvs, LogicalVolume{
		Name: "slash", VG: "main", SizeBytes: DefaultSlashSizeBytes,
		Content: ContentFilesystem, Format: "ext4", Label: "slash", MountPoint: "/", Options: "relatime",
	})
	mainRemaining -= DefaultSlashSizeBytes

	homeSize := roundDownToExtent(min64(DefaultHomeSizeBytes, mainRemaining/4))
	if homeSize > 0 {
		lvs = append(lvs, LogicalVolume{
			Name: "home", VG: "main", SizeBytes: homeSize,
			Content: ContentFilesystem, Format: "ext4", Label: "home", MountPoint: "/home", Options: "relatime",
		})
		mainRemaining -= homeSize
	}

	switch {
	case swapVG != nil:
		swapLVSize := roundDownToExtent(min64(swapWanted, withSafetyMargin(swapCapacity)))
		if swapLVSize > 0 {
			lvs = append(lvs, LogicalVolume{Name: "swap", VG: "swap", SizeBytes: swapLVSize, Content: ContentSwap, Label: "swap"})

			residual := withSafetyMargin(swapCapacity - swapLVSize)
			if residual > 0 {
				varTmpSize := roundDownToExtent(min64(swapLVSize, residual))
				if varTmpSize > 0 {
					lvs = append(lvs, LogicalVolume{
						Name: "var_tmp", VG: "swap", SizeBytes: varTmpSize,
						Content: ContentFilesystem, Format: "ext4", Label: "var_tmp", MountPoint: "/var/tmp", Options: "relatime",
					})
					postApply = append(postApply, PostApplyCommand{Description: "fix /var/tmp mode", Path: "/var/tmp", Mode: "1777"})
					residual -= varTmpSize
				}

				varLogSize := roundDownToExtent(min64(DefaultVarLogCapBytes, residual))
				if varLogSize > 0 {
					lvs = append(lvs, LogicalVolume{
						Name: "var_log", VG: "swap", SizeBytes: varLogSize,
						Content: ContentFilesystem, Format: "ext4", Label: "var_log", MountPoint: "/var/log", Options: "relatime",
					})
				}
			}
		}

	case largeVG != nil:
		swapLVSize := roundDownToExtent(min64(swapWanted, withSafetyMargin(largeCapacity)))
		if swapLVSize > 0 {
			lvs = append(lvs, LogicalVolume{Name: "swap", VG: "large", SizeBytes: swapLVSize, Content: ContentSwap, Label: "swap"})
			largeCapacity -= swapLVSize
		}

	default:
		if withSafetyMargin(mainRemaining) >= swapWanted && swapWanted > 0 {
			swapLVSize := roundDownToExtent(swapWanted)
			lvs = append(lvs, LogicalVolume{Name: "swap", VG: "main", SizeBytes: swapLVSize, Content: ContentSwap, Label: "swap"})
			mainRemaining -= swapLVSize
		}
		// else: swap omitted entirely, per spec §4.2.4 step 4.
	}

	if largeVG != nil {
		dataSize := roundDownToExtent(min64(DefaultDataSizeBytes, withSafetyMargin(largeCapacity)))
		if dataSize > 0 {
			lvs = append(lvs, LogicalVolume{
				Name: "data", VG: "large", SizeBytes: dataSize,
				Content: ContentFilesystem, Format: "ext4", Label: "data", MountPoint: "/data", Options: "relatime",
			})
		}
	}

	return lvs, postApply, nil
}

func min64(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}
