package graph

import (
	"sort"
	"strings"

	"MemSpectra/internal/model"
)

// sharedPathPrefix marks nodes that describe cross-process shared memory.
// They are attributed to the shared tree instead of their own process tree.
const sharedPathPrefix = "global/"

// Builder builds Global graphs from accumulation windows.
type Builder struct{}

// NewBuilder creates a Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

type build struct {
	nextID uint64
	// byRawID resolves dumped node ids to populated graph nodes, across all
	// trees. First writer wins on id collisions.
	byRawID map[model.NodeID]*Node
}

func (s *build) newNode(name string) *Node {
	s.nextID++
	return &Node{
		ID:       s.nextID,
		Name:     name,
		Children: make(map[string]*Node),
	}
}

// Build assembles trees from the window's raw nodes, resolves edges and
// computes size and effective_size. Processes are handled in ascending pid
// order so node identities are deterministic for a given window.
func (b *Builder) Build(raw model.RawNodeMap) *Global {
	s := &build{byRawID: make(map[model.NodeID]*Node)}
	g := &Global{
		processTrees: make(map[uint32]*Tree, len(raw)),
		sharedTree:   &Tree{Root: s.newNode("")},
	}

	pids := make([]uint32, 0, len(raw))
	for pid := range raw {
		pids = append(pids, pid)
	}
	sort.Slice(pids, func(i, j int) bool { return pids[i] < pids[j] })

	for _, pid := range pids {
		ps := raw[pid]
		tree := &Tree{Root: s.newNode("")}
		g.processTrees[pid] = tree

		paths := make([]string, 0, len(ps.Nodes))
		for path := range ps.Nodes {
			paths = append(paths, path)
		}
		sort.Strings(paths)

		for _, path := range paths {
			rawNode := ps.Nodes[path]
			root := tree.Root
			if strings.HasPrefix(path, sharedPathPrefix) {
				root = g.sharedTree.Root
			}
			s.placeNode(root, path, rawNode)
		}
	}

	for _, pid := range pids {
		for _, re := range raw[pid].Edges {
			src, okSrc := s.byRawID[re.SourceID]
			dst, okDst := s.byRawID[re.TargetID]
			if !okSrc || !okDst {
				// The dump referenced a node that was never dumped; the
				// edge cannot be resolved and is not part of the graph.
				continue
			}
			g.edges = append(g.edges, Edge{
				Source:      src,
				Target:      dst,
				Importance:  re.Importance,
				Overridable: re.Overridable,
			})
		}
	}

	for _, tree := range g.processTrees {
		computeSizes(tree.Root)
	}
	computeSizes(g.sharedTree.Root)

	for _, e := range g.edges {
		applyOwnership(e)
	}

	for _, tree := range g.processTrees {
		computeEffective(tree.Root)
		materializeSizeEntries(tree.Root)
	}
	computeEffective(g.sharedTree.Root)
	materializeSizeEntries(g.sharedTree.Root)

	return g
}

// placeNode walks path segments from root, creating intermediate nodes as
// needed, and fills the terminal node with the raw node's data. A terminal
// that is already populated keeps its existing data.
func (s *build) placeNode(root *Node, path string, rawNode *model.RawNode) {
	node := root
	for _, segment := range strings.Split(path, "/") {
		child, ok := node.Children[segment]
		if !ok {
			child = s.newNode(segment)
			node.Children[segment] = child
		}
		node = child
	}
	if node.populated {
		return
	}
	node.populated = true
	node.Weak = rawNode.Flags&model.FlagWeak != 0
	for _, e := range rawNode.Entries {
		if e.Name == "size" && e.Kind == model.EntryUint64 {
			node.size = e.ValueUint64
			node.explicitSize = true
			node.hasSize = true
			continue
		}
		node.Entries = append(node.Entries, Entry{
			Name:   e.Name,
			Kind:   e.Kind,
			Unit:   e.Unit,
			Uint64: e.ValueUint64,
			Str:    e.ValueString,
		})
	}
	if _, ok := s.byRawID[rawNode.ID]; !ok {
		s.byRawID[rawNode.ID] = node
	}
}

// computeSizes aggregates sizes bottom-up: a node without a dumped size gets
// the sum of its children's sizes.
func computeSizes(n *Node) {
	var childSum uint64
	anyChild := false
	for _, c := range n.Children {
		computeSizes(c)
		if c.hasSize {
			childSum += c.size
			anyChild = true
		}
	}
	if !n.explicitSize && anyChild {
		n.size = childSum
		n.hasSize = true
	}
	n.effective = n.size
}

// applyOwnership charges an ownership edge: the owner (source) claims part
// of the owned node (target), reducing the target's effective size.
func applyOwnership(e Edge) {
	if !e.Source.hasSize || !e.Target.hasSize {
		return
	}
	claimed := e.Source.size
	if claimed > e.Target.effective {
		claimed = e.Target.effective
	}
	e.Target.effective -= claimed
}

// computeEffective aggregates effective sizes bottom-up for nodes whose size
// was itself aggregated from children.
func computeEffective(n *Node) {
	if len(n.Children) == 0 {
		return
	}
	var sum uint64
	for _, c := range n.Children {
		computeEffective(c)
		if c.hasSize {
			sum += c.effective
		}
	}
	if !n.explicitSize && n.hasSize {
		n.effective = sum
	}
}

// materializeSizeEntries prepends the computed size and effective_size as
// entries so row emission sees them uniformly with dumped metrics.
func materializeSizeEntries(n *Node) {
	if n.hasSize {
		n.Entries = append([]Entry{
			{Name: "size", Kind: model.EntryUint64, Unit: model.UnitBytes, Uint64: n.size},
			{Name: "effective_size", Kind: model.EntryUint64, Unit: model.UnitBytes, Uint64: n.effective},
		}, n.Entries...)
	}
	for _, c := range n.Children {
		materializeSizeEntries(c)
	}
}
