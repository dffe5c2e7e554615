package applier

import (
	"context"
	"strings"

	"github.com/trbarbour/diskprep/pkg/disk"
	"github.com/trbarbour/diskprep/pkg/env"
	"github.com/trbarbour/diskprep/pkg/planner"
	"github.com/trbarbour/diskprep/pkg/process"
)

// alreadyApplied re-probes live disk inventory and, if every disk the
// plan references still carries a signature (meaning nothing since the
// last apply has wiped it), reports the plan as already in effect. This
// is the "re-running inventory and comparing" check spec §4.6 calls for.
func alreadyApplied(ctx context.Context, e env.Environment, plan *planner.Plan) (bool, error) {
	inv, err := disk.GetDisks(ctx, e)
	if err != nil {
		return false, err
	}

	bySerial := make(map[string]disk.Disk, len(inv))
	for _, d := range inv {
		bySerial[d.ID()] = d
	}

	for _, planned := range plan.Disks {
		live, ok := bySerial[planned.ID()]
		if !ok || !live.HasSignature {
			return false, nil
		}
	}
	return true, nil
}

// verifyPostApplyState checks every filesystem LV's mountpoint is
// actually mounted with the expected label (via findmnt) and every swap
// LV's label is active (via swapon --show=LABEL), satisfying the
// PostApply idempotency check spec §4.6 requires when Formatting is
// skipped ("verifying labels, mounts, and swap entries").
func verifyPostApplyState(ctx context.Context, plan *planner.Plan) (bool, error) {
	for _, lv := range plan.LogicalVolumes {
		switch lv.Content {
		case planner.ContentFilesystem:
			mounted, err := isMounted(ctx, lv.MountPoint)
			if err != nil || !mounted {
				return false, err
			}
			labeled, err := isLabelMounted(ctx, lv.MountPoint, lv.Label)
			if err != nil || !labeled {
				return false, err
			}
		case planner.ContentSwap:
			active, err := isSwapActive(ctx)
			if err != nil || !active {
				return false, err
			}
			labeled, err := isSwapLabelActive(ctx, lv.Label)
			if err != nil || !labeled {
				return false, err
			}
		}
	}
	return true, nil
}

func isMounted(ctx context.Context, mountPoint string) (bool, error) {
	if mountPoint == "" {
		return true, nil
	}
	p, err := process.New(process.WithCommand("findmnt", mountPoint))
	if err != nil {
		return false, err
	}
	_, err = p.StartAndWaitForCombinedOutput(ctx)
	return err == nil, nil
}

// isLabelMounted compares the filesystem label findmnt reports for
// mountPoint against the planned label.
func isLabelMounted(ctx context.Context, mountPoint, label string) (bool, error) {
	if mountPoint == "" || label == "" {
		return true, nil
	}
	p, err := process.New(process.WithCommand("findmnt", "-no", "LABEL", mountPoint))
	if err != nil {
		return false, err
	}
	out, err := p.StartAndWaitForCombinedOutput(ctx)
	if err != nil {
		return false, nil
	}
	return strings.TrimSpace(string(out)) == label, nil
}

func isSwapActive(ctx context.Context) (bool, error) {
	p, err := process.New(process.WithCommand("swapon", "--show"))
	if err != nil {
		return false, err
	}
	out, err := p.StartAndWaitForCombinedOutput(ctx)
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(string(out)) != "", nil
}

// isSwapLabelActive checks that an active swap device carries label,
// via swapon's own LABEL column.
func isSwapLabelActive(ctx context.Context, label string) (bool, error) {
	if label == "" {
		return true, nil
	}
	p, err := process.New(process.WithCommand("swapon", "--show=LABEL", "--noheadings"))
	if err != nil {
		return false, err
	}
	out, err := p.StartAndWaitForCombinedOutput(ctx)
	if err != nil {
		return false, err
	}
	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		if strings.TrimSpace(line) == label {
			return true, nil
		}
	}
	return false, nil
}
