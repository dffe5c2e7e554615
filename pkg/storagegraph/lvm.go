package storagegraph

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/trbarbour/diskprep/pkg/process"
)

// reportDoc mirrors the `--reportformat json` envelope lvm2 tools share:
// {"report": [{"pv": [...]}]} / {"vg": [...]} / {"lv": [...]}.
type reportDoc struct {
	Report []map[string][]map[string]string `json:"report"`
}

func runReport(ctx context.Context, cmd string, extraArgs ...string) ([]map[string]string, string, error) {
	args := append([]string{cmd, "--reportformat", "json", "--noheadings"}, extraArgs...)
	p, err := process.New(process.WithCommand(args...))
	if err != nil {
		return nil, "", fmt.Errorf("storagegraph: constructing %s command: %w", cmd, err)
	}
	out, err := p.StartAndWaitForCombinedOutput(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("storagegraph: running %s: %w", cmd, err)
	}

	var doc reportDoc
	if err := json.Unmarshal(out, &doc); err != nil {
		return nil, "", fmt.Errorf("storagegraph: parsing %s json: %w", cmd, err)
	}
	if len(doc.Report) == 0 {
		return nil, "", nil
	}
	for key, rows := range doc.Report[0] {
		return rows, key, nil
	}
	return nil, "", nil
}

func pvReport(ctx context.Context) ([]map[string]string, error) {
	rows, _, err := runReport(ctx, "pvs", "-o", "pv_name,vg_name")
	return rows, err
}

func vgReport(ctx context.Context) ([]map[string]string, error) {
	rows, _, err := runReport(ctx, "vgs", "-o", "vg_name")
	return rows, err
}

func lvReport(ctx context.Context) ([]map[string]string, error) {
	rows, _, err := runReport(ctx, "lvs", "-o", "lv_name,vg_name,lv_path")
	return rows, err
}

// addLVM wires pvs→vgs→lvs into the arena: each VG becomes a pseudo-node
// whose parents are its PVs (block nodes already added by addBlockTree,
// or created fresh if the PV wasn't seen as a block device) and whose
// children are its LVs.
func (g *builder) addLVM(pvs, vgs, lvs []map[string]string) {
	vgIndex := map[string]NodeIndex{}
	for _, vg := range vgs {
		name := vg["vg_name"]
		if name == "" {
			continue
		}
		k := key{kind: KindVG, identifier: name}
		if _, ok := g.seen[k]; ok {
			continue
		}
		idx := g.add(StorageNode{Kind: KindVG, Identifier: name})
		g.seen[k] = idx
		vgIndex[name] = idx
	}

	for _, pv := range pvs {
		pvName := pv["pv_name"]
		vgName := pv["vg_name"]
		if pvName == "" || vgName == "" {
			continue
		}
		vgIdx, ok := vgIndex[vgName]
		if !ok {
			continue
		}

		pvKey := key{kind: KindPV, identifier: pvName}
		pvIdx, ok := g.seen[pvKey]
		if !ok {
			// The PV sits on a block device already in the arena (partition,
			// md array, or loop device) under its device-path identifier;
			// alias it as a PV node on top rather than duplicating it.
			if blockIdx, isBlock := g.findBlockNode(pvName); isBlock {
				pvIdx = blockIdx
			} else {
				pvIdx = g.add(StorageNode{Kind: KindPV, Identifier: pvName})
			}
			g.seen[pvKey] = pvIdx
		}
		g.link(pvIdx, vgIdx)
	}

	for _, lv := range lvs {
		lvName := lv["lv_name"]
		vgName := lv["vg_name"]
		if lvName == "" || vgName == "" {
			continue
		}
		vgIdx, ok := vgIndex[vgName]
		if !ok {
			continue
		}

		identifier := vgName + "/" + lvName
		lvKey := key{kind: KindLV, identifier: identifier}
		lvIdx, ok := g.seen[lvKey]
		if !ok {
			lvIdx = g.add(StorageNode{Kind: KindLV, Identifier: identifier, MountPoint: lv["lv_path"]})
			g.seen[lvKey] = lvIdx
		}
		g.link(vgIdx, lvIdx)
	}
}

func (g *builder) findBlockNode(devicePath string) (NodeIndex, bool) {
	for _, k := range []Kind{KindPartition, KindMdArray, KindDisk, KindLoop} {
		if idx, ok := g.seen[key{kind: k, identifier: devicePath}]; ok {
			return idx, true
		}
	}
	return 0, false
}
