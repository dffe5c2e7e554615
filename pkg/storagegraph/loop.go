package storagegraph

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/trbarbour/diskprep/pkg/process"
)

// LoopEntry is one losetup --list --json entry.
type LoopEntry struct {
	Name    string `json:"name"`
	BackFile string `json:"back-file"`
}

type loopDoc struct {
	LoopDevices []LoopEntry `json:"loopdevices"`
}

func losetupTable(ctx context.Context) ([]LoopEntry, error) {
	p, err := process.New(process.WithCommand("losetup", "--list", "--json"))
	if err != nil {
		return nil, fmt.Errorf("storagegraph: constructing losetup command: %w", err)
	}
	out, err := p.StartAndWaitForCombinedOutput(ctx)
	if err != nil {
		return nil, fmt.Errorf("storagegraph: running losetup: %w", err)
	}

	var doc loopDoc
	if err := json.Unmarshal(out, &doc); err != nil {
		return nil, fmt.Errorf("storagegraph: parsing losetup json: %w", err)
	}
	return doc.LoopDevices, nil
}

func (g *builder) addLoopEntries(entries []LoopEntry) {
	for _, e := range entries {
		k := key{kind: KindLoop, identifier: e.Name}
		if _, ok := g.seen[k]; ok {
			continue
		}
		idx := g.add(StorageNode{Kind: KindLoop, Identifier: e.Name})
		g.seen[k] = idx
	}
}
