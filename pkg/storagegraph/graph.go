package storagegraph

import (
	"context"
	"fmt"
	"sort"

	"github.com/trbarbour/diskprep/pkg/env"
)

// Graph is the arena-indexed result of Build: every node discovered
// reachable from roots, with parent/child edges and a computed Depth.
type Graph struct {
	Nodes []StorageNode
}

// builder accumulates nodes during Build before the reachable subforest
// and depths are computed.
type builder struct {
	nodes []StorageNode
	seen  map[key]NodeIndex
}

func (g *builder) add(n StorageNode) NodeIndex {
	g.nodes = append(g.nodes, n)
	return NodeIndex(len(g.nodes) - 1)
}

func (g *builder) link(parent, child NodeIndex) {
	p := &g.nodes[parent]
	for _, c := range p.Children {
		if c == child {
			return
		}
	}
	p.Children = append(p.Children, child)
	g.nodes[child].Parents = append(g.nodes[child].Parents, parent)
}

// Build merges the lsblk tree, LVM pvs/vgs/lvs report, and losetup table
// into one arena, computes the reachable subforest from roots (root
// device paths, e.g. "/dev/sda"), and assigns Depth as the longest path
// from a leaf. It asserts acyclicity rather than looping forever should
// the merge somehow produce one.
func Build(ctx context.Context, _ env.Environment, roots []string) (*Graph, error) {
	tree, err := blockTree(ctx)
	if err != nil {
		return nil, err
	}
	pvs, err := pvReport(ctx)
	if err != nil {
		return nil, err
	}
	vgs, err := vgReport(ctx)
	if err != nil {
		return nil, err
	}
	lvs, err := lvReport(ctx)
	if err != nil {
		return nil, err
	}
	loops, err := losetupTable(ctx)
	if err != nil {
		return nil, err
	}

	b := &builder{seen: map[key]NodeIndex{}}
	b.addBlockTree(tree)
	b.addLoopEntries(loops)
	b.addLVM(pvs, vgs, lvs)

	full := &Graph{Nodes: b.nodes}

	reachable, err := full.reachableFrom(roots)
	if err != nil {
		return nil, err
	}

	if err := reachable.assignDepths(); err != nil {
		return nil, err
	}

	return reachable, nil
}

// reachableFrom returns the subforest of g reachable from the named
// roots (matched by Identifier, any Kind), re-indexed into a fresh arena.
func (g *Graph) reachableFrom(roots []string) (*Graph, error) {
	rootSet := map[string]bool{}
	for _, r := range roots {
		rootSet[r] = true
	}

	keep := make([]bool, len(g.Nodes))
	var visit func(idx NodeIndex)
	visited := map[NodeIndex]bool{}
	visit = func(idx NodeIndex) {
		if visited[idx] {
			return
		}
		visited[idx] = true
		keep[idx] = true
		for _, c := range g.Nodes[idx].Children {
			visit(c)
		}
	}
	for i, n := range g.Nodes {
		if rootSet[n.Identifier] {
			visit(NodeIndex(i))
		}
	}

	remap := map[NodeIndex]NodeIndex{}
	var out Graph
	for i, n := range g.Nodes {
		if !keep[i] {
			continue
		}
		remap[NodeIndex(i)] = NodeIndex(len(out.Nodes))
		out.Nodes = append(out.Nodes, StorageNode{
			Kind:       n.Kind,
			Identifier: n.Identifier,
			MountPoint: n.MountPoint,
			SwapActive: n.SwapActive,
			FSType:     n.FSType,
		})
	}
	for oldIdx, newIdx := range remap {
		old := g.Nodes[oldIdx]
		for _, c := range old.Children {
			if nc, ok := remap[c]; ok {
				out.Nodes[newIdx].Children = append(out.Nodes[newIdx].Children, nc)
			}
		}
		for _, p := range old.Parents {
			if np, ok := remap[p]; ok {
				out.Nodes[newIdx].Parents = append(out.Nodes[newIdx].Parents, np)
			}
		}
	}

	return &out, nil
}

// assignDepths computes each node's Depth as the longest path to any
// leaf, detecting a cycle rather than recursing forever.
func (g *Graph) assignDepths() error {
	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)
	state := make([]int, len(g.Nodes))
	depth := make([]int, len(g.Nodes))

	var visit func(idx NodeIndex) (int, error)
	visit = func(idx NodeIndex) (int, error) {
		switch state[idx] {
		case done:
			return depth[idx], nil
		case visiting:
			return 0, fmt.Errorf("storagegraph: cycle detected at node %s/%s", g.Nodes[idx].Kind, g.Nodes[idx].Identifier)
		}
		state[idx] = visiting

		max := 0
		for _, c := range g.Nodes[idx].Children {
			d, err := visit(c)
			if err != nil {
				return 0, err
			}
			if d+1 > max {
				max = d + 1
			}
		}

		state[idx] = done
		depth[idx] = max
		return max, nil
	}

	for i := range g.Nodes {
		if _, err := visit(NodeIndex(i)); err != nil {
			return err
		}
	}
	for i := range g.Nodes {
		g.Nodes[i].Depth = depth[i]
	}
	return nil
}

// TeardownOrder returns node indices in leaf-to-root teardown order:
// ascending Depth, ties broken by (Kind, Identifier) for determinism.
func (g *Graph) TeardownOrder() []NodeIndex {
	order := make([]NodeIndex, len(g.Nodes))
	for i := range order {
		order[i] = NodeIndex(i)
	}
	sort.Slice(order, func(i, j int) bool {
		a, b := g.Nodes[order[i]], g.Nodes[order[j]]
		if a.Depth != b.Depth {
			return a.Depth < b.Depth
		}
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		return a.Identifier < b.Identifier
	})
	return order
}
