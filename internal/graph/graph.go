// Package graph turns the flat per-process node and edge collections of an
// accumulation window into a hierarchical memory graph: one tree per process,
// one shared tree for cross-process memory, resolved ownership edges and
// derived size metrics.
package graph

import "MemSpectra/internal/model"

// Entry is one typed metric on a graph node.
type Entry struct {
	Name   string
	Kind   model.EntryKind
	Unit   model.Unit
	Uint64 uint64
	Str    string
}

// Node is one node of a built tree. ID is an opaque identity, unique within
// one built graph and stable for its lifetime; edges are resolved against it.
type Node struct {
	ID       uint64
	Name     string
	Children map[string]*Node
	Entries  []Entry
	Weak     bool

	populated    bool
	explicitSize bool
	hasSize      bool
	size         uint64
	effective    uint64
}

// HasSize reports whether the node carries a size, dumped or aggregated.
func (n *Node) HasSize() bool { return n.hasSize }

// Size returns the node's size in bytes. Valid only when HasSize is true.
func (n *Node) Size() uint64 { return n.size }

// EffectiveSize returns the ownership-adjusted size in bytes. Valid only
// when HasSize is true.
func (n *Node) EffectiveSize() uint64 { return n.effective }

// Tree is one process (or the shared) allocator tree. Root is synthetic and
// carries no data of its own.
type Tree struct {
	Root *Node
}

// Edge is a resolved ownership edge between two populated nodes.
type Edge struct {
	Source      *Node
	Target      *Node
	Importance  int32
	Overridable bool
}

// Global is the output of a build: every process tree, the shared tree and
// all resolved edges.
type Global struct {
	processTrees map[uint32]*Tree
	sharedTree   *Tree
	edges        []Edge
}

// ProcessTrees returns the per-process trees keyed by pid. The shared tree
// is not among them.
func (g *Global) ProcessTrees() map[uint32]*Tree { return g.processTrees }

// SharedTree returns the tree holding cross-process shared memory nodes.
func (g *Global) SharedTree() *Tree { return g.sharedTree }

// Edges returns all resolved edges across every tree.
func (g *Global) Edges() []Edge { return g.edges }
