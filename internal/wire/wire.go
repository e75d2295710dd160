// Package wire implements the binary format of memory snapshot chunks and of
// the transport envelope they travel in. Messages are read and written field
// by field with the protobuf wire primitives; there is no generated code.
package wire

// Snapshot is one decoded snapshot chunk. Several chunks sharing a timestamp
// together form one logical snapshot.
//
// On the wire:
//
//	Snapshot        { global_dump_id=1, level_of_detail=2, process_dumps=3 }
//	ProcessSnapshot { pid=1, allocator_dumps=2, memory_edges=3 }
//	MemoryNode      { id=1, absolute_name=2, weak=3, size_bytes=4, entries=5 }
//	MemoryNodeEntry { name=1, units=2, value_uint64=3, value_string=4 }
//	MemoryEdge      { source_id=1, target_id=2, importance=3, overridable=4 }
type Snapshot struct {
	GlobalDumpID  uint64
	LevelOfDetail int32
	Processes     []ProcessSnapshot
}

// ProcessSnapshot is the per-process part of a chunk.
type ProcessSnapshot struct {
	Pid   uint32
	Nodes []MemoryNode
	Edges []MemoryEdge
}

// MemoryNode is one dumped allocator node. Field presence is significant:
// HasSizeBytes distinguishes "no size dumped" from a zero size.
type MemoryNode struct {
	ID           uint64
	AbsoluteName string
	Weak         bool
	SizeBytes    uint64
	HasSizeBytes bool
	Entries      []NodeEntry
}

// NodeEntry is one named metric on a dumped node. An entry carrying neither
// a uint64 nor a string value is malformed.
type NodeEntry struct {
	Name           string
	Units          int32
	ValueUint64    uint64
	HasValueUint64 bool
	ValueString    string
	HasValueString bool
}

// MemoryEdge is one dumped ownership edge.
type MemoryEdge struct {
	SourceID    uint64
	TargetID    uint64
	Importance  int32
	Overridable bool
}

// Chunk is the transport envelope published over NATS: the trace timestamp
// plus the raw snapshot chunk payload.
//
// On the wire: Chunk { timestamp=1, payload=2 }.
type Chunk struct {
	Timestamp int64
	Payload   []byte
}
