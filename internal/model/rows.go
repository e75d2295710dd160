package model

// SnapshotRows is the export view of one finalized snapshot: every row the
// importer produced for it, with interned strings resolved. This is what
// writers receive.
type SnapshotRows struct {
	SnapshotID  uint32
	Timestamp   int64
	DetailLevel string
	Processes   []ProcessSnapshotRow
	Nodes       []NodeRow
	Edges       []EdgeRow
}

// ProcessSnapshotRow ties one process to one snapshot.
type ProcessSnapshotRow struct {
	ID  uint32
	Pid uint32
}

// NodeRow is one emitted allocator node. ParentID is nil for top-level
// children of a tree; Size and EffectiveSize are nil when the node carried
// no such metric.
type NodeRow struct {
	ID                uint32
	ProcessSnapshotID uint32
	ParentID          *uint32
	Path              string
	Size              *int64
	EffectiveSize     *int64
	Args              []Arg
}

// Arg is one generic key/value argument attached to a node row.
type Arg struct {
	Key         string
	Kind        EntryKind
	IntValue    int64
	StringValue string
}

// EdgeRow is one emitted ownership edge between two node rows.
type EdgeRow struct {
	ID           uint32
	SourceNodeID uint32
	TargetNodeID uint32
	Importance   uint32
}
