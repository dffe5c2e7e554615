package disk

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/trbarbour/diskprep/pkg/env"
	"github.com/trbarbour/diskprep/pkg/log"
	"github.com/trbarbour/diskprep/pkg/process"
)

// Bus is the transport a disk is attached over, derived from lsblk's
// TRAN column.
type Bus string

const (
	BusNVMe  Bus = "nvme"
	BusSATA  Bus = "sata"
	BusSAS   Bus = "sas"
	BusUSB   Bus = "usb"
	BusVirt  Bus = "virtio"
	BusOther Bus = "other"
)

func classifyBus(tran string) Bus {
	switch strings.ToLower(tran) {
	case "nvme":
		return BusNVMe
	case "sata":
		return BusSATA
	case "sas":
		return BusSAS
	case "usb":
		return BusUSB
	case "virtio":
		return BusVirt
	default:
		return BusOther
	}
}

// Disk is one eligible physical disk in the inventory: a planning unit,
// not a live graph node (see pkg/storagegraph for the latter).
type Disk struct {
	Path           string
	Serial         string
	SizeBytes      uint64
	Rotational     bool
	Bus            Bus
	PhysicalSector uint64
	LogicalSector  uint64
	Removable      bool
	HasSignature   bool
	SignatureKind  string
}

// ID is the disk's stable identity: Path alone is not durable across
// reboots on some buses, so Inventory pairs it with Serial when present.
func (d Disk) ID() string {
	if d.Serial != "" {
		return d.Path + "#" + d.Serial
	}
	return d.Path
}

// Disks is an inventory of eligible physical disks.
type Disks []Disk

// InventoryFatal is returned when lsblk could not be run or produced no
// parseable output at all — as opposed to a single attribute probe
// failure, which degrades that attribute to unknown and keeps the disk.
type InventoryFatal struct {
	Err error
}

func (e *InventoryFatal) Error() string { return fmt.Sprintf("disk: inventory failed: %v", e.Err) }
func (e *InventoryFatal) Unwrap() error { return e.Err }

const maxLsblkAttempts = 5

// GetDisks runs lsblk (sniffing --json vs --pairs support) and returns
// the eligible physical disks: loop, optical, floppy, device-mapper leaf
// names, and the disk currently backing the mounted boot medium are all
// excluded. Inventory only ever excludes — it never recurses into a
// PV/VG/LV chain, which pkg/storagegraph builds separately.
func GetDisks(ctx context.Context, e env.Environment, opts ...OpOption) (Disks, error) {
	flags, useJSON, err := resolveLsblkInvocation(ctx)
	if err != nil {
		return nil, &InventoryFatal{Err: err}
	}

	var bds BlockDevices
	var lastErr error
	for attempt := 0; attempt < maxLsblkAttempts; attempt++ {
		bds, lastErr = runLsblkOnce(ctx, flags, useJSON, opts...)
		if lastErr == nil {
			break
		}
		log.Logger.Warnw("lsblk attempt failed, retrying", "attempt", attempt, "error", lastErr)
	}
	if lastErr != nil {
		return nil, &InventoryFatal{Err: lastErr}
	}

	bootDevices, err := bootMediumDevices()
	if err != nil {
		log.Logger.Warnw("could not determine boot medium, not excluding any disk on that basis", "error", err)
		bootDevices = nil
	}

	var out Disks
	for _, bd := range bds {
		if bd.Type != "disk" {
			continue
		}
		if isIgnoredDevice(bd, bootDevices) {
			continue
		}
		out = append(out, toDisk(bd))
	}
	return out, nil
}

func resolveLsblkInvocation(ctx context.Context) (string, bool, error) {
	p, err := process.New(process.WithCommand("lsblk", "--version"))
	if err != nil {
		return "", false, err
	}
	out, err := p.StartAndWaitForCombinedOutput(ctx)
	if err != nil {
		return "", false, fmt.Errorf("disk: running lsblk --version: %w", err)
	}
	return decideLsblkFlag(ctx, strings.TrimSpace(string(out)))
}

func runLsblkOnce(ctx context.Context, flags string, useJSON bool, opts ...OpOption) (BlockDevices, error) {
	args := append([]string{"lsblk"}, strings.Fields(flags)...)
	p, err := process.New(process.WithCommand(args...))
	if err != nil {
		return nil, err
	}
	out, err := p.StartAndWaitForCombinedOutput(ctx)
	if err != nil {
		return nil, fmt.Errorf("disk: running lsblk: %w", err)
	}

	if useJSON {
		return parseLsblkJSON(ctx, out, opts...)
	}
	return parseLsblkPairs(ctx, out, opts...)
}

// isIgnoredDevice implements the exclusion families: loop, optical,
// floppy, device-mapper leaves, and the active boot medium.
func isIgnoredDevice(bd BlockDevice, bootDevices map[string]bool) bool {
	if strings.HasPrefix(bd.Name, "/dev/loop") {
		return true
	}
	if strings.HasPrefix(bd.Name, "/dev/sr") || strings.HasPrefix(bd.Name, "/dev/cdrom") {
		return true
	}
	if strings.HasPrefix(bd.Name, "/dev/fd") {
		return true
	}
	if strings.HasPrefix(bd.Name, "/dev/dm-") {
		return true
	}
	if bootDevices[bd.Name] {
		return true
	}
	for _, c := range bd.Children {
		if bootDevices[c.Name] {
			return true
		}
	}
	return false
}

func toDisk(bd BlockDevice) Disk {
	return Disk{
		Path:           bd.Name,
		Serial:         bd.Serial,
		SizeBytes:      bd.Size.Uint64,
		Rotational:     bd.Rota,
		Bus:            classifyBus(bd.Tran),
		PhysicalSector: bd.PhySec.Uint64,
		LogicalSector:  bd.LogSec.Uint64,
		HasSignature:   bd.FSType != "",
		SignatureKind:  bd.FSType,
	}
}

// bootMediumDevices returns the set of top-level device names (e.g.
// "/dev/sda") backing whatever is currently mounted at "/" or "/boot",
// read from /proc/self/mountinfo.
func bootMediumDevices() (map[string]bool, error) {
	f, err := os.Open("/proc/self/mountinfo")
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sources := map[string]bool{}
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		// mountinfo: ... <mount point> ... - <fstype> <source> <options>
		dashIdx := -1
		for i, f := range fields {
			if f == "-" {
				dashIdx = i
				break
			}
		}
		if dashIdx < 0 || dashIdx+2 >= len(fields) {
			continue
		}
		mountPoint := fields[4]
		source := fields[dashIdx+2]
		if mountPoint == "/" || mountPoint == "/boot" {
			sources[source] = true
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	// Resolve partition sources (e.g. /dev/sda1) to their parent disk.
	out := map[string]bool{}
	for src := range sources {
		out[parentDiskName(src)] = true
	}
	return out, nil
}

// parentDiskName strips a trailing partition number (and the "p"
// separator nvme/mmcblk devices use) from a partition device path.
func parentDiskName(path string) string {
	i := len(path)
	for i > 0 && path[i-1] >= '0' && path[i-1] <= '9' {
		i--
	}
	if i == len(path) {
		return path
	}
	if i > 0 && path[i-1] == 'p' && i > 1 && path[i-2] >= '0' && path[i-2] <= '9' {
		i--
	}
	return path[:i]
}
