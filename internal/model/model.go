package model

// LevelOfDetail is the granularity tag attached to a memory snapshot.
type LevelOfDetail int

const (
	LevelDetailed LevelOfDetail = iota
	LevelLight
	LevelBackground
)

// Label returns the string form stored on snapshot rows.
func (l LevelOfDetail) Label() string {
	switch l {
	case LevelLight:
		return "light"
	case LevelBackground:
		return "background"
	default:
		return "detailed"
	}
}

// Unit describes what a numeric node entry counts.
type Unit int

const (
	UnitUnspecified Unit = iota
	UnitBytes
	UnitObjects
)

// Label returns the unit name used in emitted arguments. Unspecified units
// have no name and produce no unit argument.
func (u Unit) Label() string {
	switch u {
	case UnitBytes:
		return "bytes"
	case UnitObjects:
		return "objects"
	default:
		return ""
	}
}

// EntryKind tags which value a NodeEntry carries.
type EntryKind int

const (
	EntryUint64 EntryKind = iota
	EntryString
)

// NodeEntry is one named metric attached to an allocator node.
type NodeEntry struct {
	Name        string
	Unit        Unit
	Kind        EntryKind
	ValueUint64 uint64
	ValueString string
}

// NodeID identifies an allocator node. IDs are assigned by the producing
// process and are stable for the lifetime of one snapshot.
type NodeID uint64

// Node flags.
const (
	FlagDefault = 0
	FlagWeak    = 1
)

// RawNode is one allocator/memory region as decoded from a single chunk,
// before any graph structure is built. AbsoluteName is a slash-delimited
// path that implies the node's position in the allocator tree.
type RawNode struct {
	AbsoluteName string
	ID           NodeID
	Flags        int
	Entries      []NodeEntry
}

// RawEdge is an ownership edge between two allocator nodes, recorded
// unvalidated; source and target are resolved when the graph is built.
type RawEdge struct {
	SourceID    NodeID
	TargetID    NodeID
	Importance  int32
	Overridable bool
}

// RawProcessSnapshot accumulates one process's decoded nodes and edges
// within a single snapshot window.
type RawProcessSnapshot struct {
	LevelOfDetail LevelOfDetail
	Nodes         map[string]*RawNode
	Edges         []RawEdge
}

// NewRawProcessSnapshot returns an empty per-process accumulation.
func NewRawProcessSnapshot(level LevelOfDetail) *RawProcessSnapshot {
	return &RawProcessSnapshot{
		LevelOfDetail: level,
		Nodes:         make(map[string]*RawNode),
	}
}

// AddNode inserts a node keyed by its absolute path. The insert is
// first-writer-wins: a node whose path is already present is dropped, never
// merged or overwritten. Reports whether the node was inserted.
func (p *RawProcessSnapshot) AddNode(n *RawNode) bool {
	if _, ok := p.Nodes[n.AbsoluteName]; ok {
		return false
	}
	p.Nodes[n.AbsoluteName] = n
	return true
}

// AddEdge appends an edge. Edges accumulate without dedup; multiple edges
// may share a source.
func (p *RawProcessSnapshot) AddEdge(e RawEdge) {
	p.Edges = append(p.Edges, e)
}

// RawNodeMap is the accumulation window body: per-process raw snapshots
// keyed by OS process id.
type RawNodeMap map[uint32]*RawProcessSnapshot
