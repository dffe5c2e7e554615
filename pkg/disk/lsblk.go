// Modified from https://github.com/dell/csi-baremetal/blob/v1.7.0/pkg/base/linuxutils/lsblk/lsblk.go
package disk

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/dustin/go-humanize"
)

// CustomUint64 unmarshals both a bare JSON number and an lsblk
// human-readable size string ("894.3G") into a byte count.
type CustomUint64 struct {
	Uint64 uint64
}

func (c CustomUint64) MarshalJSON() ([]byte, error) {
	return json.Marshal(strconv.FormatUint(c.Uint64, 10))
}

func (c *CustomUint64) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		c.Uint64 = 0
		return nil
	}

	trimmed := strings.Trim(string(b), `"`)
	if trimmed == "" {
		c.Uint64 = 0
		return nil
	}

	if v, err := strconv.ParseUint(trimmed, 10, 64); err == nil {
		c.Uint64 = v
		return nil
	}

	v, err := parseLsblkSize([]byte(trimmed))
	if err != nil {
		return err
	}
	c.Uint64 = v
	return nil
}

var sizeSuffixRe = regexp.MustCompile(`^([0-9.]+)\s*([KMGTP]?)$`)

var decimalSuffixMultiplier = map[string]float64{
	"":  1,
	"K": 1e3,
	"M": 1e6,
	"G": 1e9,
	"T": 1e12,
	"P": 1e15,
}

// parseLsblkSize parses an lsblk human-readable size ("64.9M",
// "894.3G") into a byte count. lsblk's suffixes are decimal (SI), not
// binary.
func parseLsblkSize(b []byte) (uint64, error) {
	s := strings.TrimSpace(strings.Trim(strings.TrimSpace(string(b)), `"`))
	s = strings.TrimSpace(s)

	m := sizeSuffixRe.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("disk: invalid lsblk size %q", s)
	}

	f, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, fmt.Errorf("disk: invalid lsblk size %q: %w", s, err)
	}

	return uint64(f * decimalSuffixMultiplier[m[2]]), nil
}

// BlockDevice is one node of the lsblk device tree: a disk, partition,
// or LVM/RAID logical device, with its children nested the way lsblk's
// --json output nests them.
type BlockDevice struct {
	Name       string        `json:"name"`
	KName      string        `json:"kname,omitempty"`
	Type       string        `json:"type"`
	Size       CustomUint64  `json:"size"`
	Rota       bool          `json:"rota"`
	Serial     string        `json:"serial,omitempty"`
	WWN        string        `json:"wwn,omitempty"`
	Vendor     string        `json:"vendor,omitempty"`
	Model      string        `json:"model,omitempty"`
	Tran       string        `json:"tran,omitempty"`
	MountPoint string        `json:"mountpoint,omitempty"`
	FSType     string        `json:"fstype,omitempty"`
	PhySec     CustomUint64  `json:"phy-sec,omitempty"`
	LogSec     CustomUint64  `json:"log-sec,omitempty"`
	ParentName string        `json:"-"`
	Children   []BlockDevice `json:"children,omitempty"`
}

// BlockDevices is the top-level lsblk device forest, with convenience
// aggregate operations used by the CLI and the inventory builder.
type BlockDevices []BlockDevice

type lsblkDoc struct {
	BlockDevices []BlockDevice `json:"blockdevices"`
}

// parseLsblkJSON parses lsblk --json output and recursively filters the
// tree by the device-type and fstype predicates in opts: a node is kept
// if it (or any descendant) passes both predicates.
func parseLsblkJSON(ctx context.Context, data []byte, opts ...OpOption) (BlockDevices, error) {
	op := &Op{}
	if err := op.applyOpts(opts); err != nil {
		return nil, err
	}

	var doc lsblkDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("disk: parsing lsblk json: %w", err)
	}

	out := make(BlockDevices, 0, len(doc.BlockDevices))
	for _, bd := range doc.BlockDevices {
		filtered, keep := processBlockDevice(bd, "", op)
		if keep {
			out = append(out, filtered)
		}
	}
	return out, nil
}

func processBlockDevice(bd BlockDevice, parentName string, op *Op) (BlockDevice, bool) {
	bd.ParentName = parentName

	var children []BlockDevice
	for _, c := range bd.Children {
		if filtered, keep := processBlockDevice(c, bd.Name, op); keep {
			children = append(children, filtered)
		}
	}
	bd.Children = children

	selfMatches := op.deviceTypeFunc(bd.Type) && op.fsTypeFunc(bd.FSType)
	return bd, selfMatches || len(children) > 0
}

// parseLsblkPairs parses lsblk --pairs output (KEY="value" tokens, one
// device per line, used on util-linux releases that predate --json
// support). The pairs format carries no parent/child nesting, so the
// result is a flat list.
func parseLsblkPairs(ctx context.Context, data []byte, opts ...OpOption) (BlockDevices, error) {
	op := &Op{}
	if err := op.applyOpts(opts); err != nil {
		return nil, err
	}

	var out BlockDevices
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		fields := splitLsblkPairs(line)
		bd := BlockDevice{
			Name:       fields["NAME"],
			Type:       fields["TYPE"],
			Serial:     fields["SERIAL"],
			WWN:        fields["WWN"],
			Vendor:     fields["VENDOR"],
			Model:      fields["MODEL"],
			Tran:       fields["TRAN"],
			MountPoint: fields["MOUNTPOINT"],
			FSType:     fields["FSTYPE"],
		}
		if raw, ok := fields["ROTA"]; ok {
			bd.Rota = raw == "1"
		}
		if raw, ok := fields["SIZE"]; ok && raw != "" {
			if v, err := strconv.ParseUint(raw, 10, 64); err == nil {
				bd.Size = CustomUint64{Uint64: v}
			} else if v, err := parseLsblkSize([]byte(raw)); err == nil {
				bd.Size = CustomUint64{Uint64: v}
			}
		}

		if op.deviceTypeFunc(bd.Type) && op.fsTypeFunc(bd.FSType) {
			out = append(out, bd)
		}
	}
	return out, nil
}

var lsblkPairRe = regexp.MustCompile(`(\w+)="([^"]*)"`)

func splitLsblkPairs(line string) map[string]string {
	out := map[string]string{}
	for _, m := range lsblkPairRe.FindAllStringSubmatch(line, -1) {
		out[m[1]] = m[2]
	}
	return out
}

var versionRe = regexp.MustCompile(`(\d+)\.(\d+)(?:\.(\d+))?`)

const lsblkColumns = "NAME,TYPE,SIZE,ROTA,SERIAL,WWN,VENDOR,MODEL,TRAN,MOUNTPOINT,FSTYPE,PHY-SEC,LOG-SEC"

// decideLsblkFlag sniffs the installed lsblk's version (from the output
// of `lsblk --version`, which util-linux localizes but always embeds a
// MAJOR.MINOR[.PATCH] token) and returns the output-mode flags to use:
// --json on util-linux >= 2.33 (which introduced it), --pairs on older
// releases.
func decideLsblkFlag(ctx context.Context, versionOutput string) (string, bool, error) {
	m := versionRe.FindStringSubmatch(versionOutput)
	if m == nil {
		return "", false, fmt.Errorf("disk: could not parse lsblk version from %q", versionOutput)
	}

	major, err := strconv.Atoi(m[1])
	if err != nil {
		return "", false, fmt.Errorf("disk: invalid lsblk major version in %q: %w", versionOutput, err)
	}
	minor, err := strconv.Atoi(m[2])
	if err != nil {
		return "", false, fmt.Errorf("disk: invalid lsblk minor version in %q: %w", versionOutput, err)
	}

	useJSON := major > 2 || (major == 2 && minor >= 33)

	base := fmt.Sprintf("--paths --bytes --fs --output %s", lsblkColumns)
	if useJSON {
		return base + " --json", true, nil
	}
	return base + " --pairs", false, nil
}

// RenderTable writes a human-readable table of the device forest to w.
func (bds BlockDevices) RenderTable(w io.Writer) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"NAME", "TYPE", "SIZE", "ROTA", "FSTYPE", "MOUNTPOINT"})
	for _, bd := range bds.Flatten() {
		table.Append([]string{
			bd.Name,
			bd.Type,
			humanize.IBytes(bd.Size.Uint64),
			strconv.FormatBool(bd.Rota),
			bd.FSType,
			bd.MountPoint,
		})
	}
	table.Render()
}

// Flatten returns every device in the forest (including nested
// children) as a single slice, parents before children.
func (bds BlockDevices) Flatten() BlockDevices {
	var out BlockDevices
	var walk func(BlockDevice)
	walk = func(bd BlockDevice) {
		out = append(out, bd)
		for _, c := range bd.Children {
			walk(c)
		}
	}
	for _, bd := range bds {
		walk(bd)
	}
	return out
}

// GetTotalBytes sums the Size of every device in the forest
// (top-level and nested).
func (bds BlockDevices) GetTotalBytes() uint64 {
	var total uint64
	for _, bd := range bds.Flatten() {
		total += bd.Size.Uint64
	}
	return total
}
