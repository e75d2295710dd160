package wire

import "google.golang.org/protobuf/encoding/protowire"

// MarshalSnapshot encodes one snapshot chunk payload. Fields guarded by a
// has-bit are emitted only when present, so zero values survive a round trip.
func MarshalSnapshot(s *Snapshot) []byte {
	var b []byte
	if s.GlobalDumpID != 0 {
		b = protowire.AppendTag(b, 1, protowire.VarintType)
		b = protowire.AppendVarint(b, s.GlobalDumpID)
	}
	if s.LevelOfDetail != 0 {
		b = protowire.AppendTag(b, 2, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(s.LevelOfDetail))
	}
	for i := range s.Processes {
		b = protowire.AppendTag(b, 3, protowire.BytesType)
		b = protowire.AppendBytes(b, appendProcessSnapshot(nil, &s.Processes[i]))
	}
	return b
}

func appendProcessSnapshot(b []byte, p *ProcessSnapshot) []byte {
	if p.Pid != 0 {
		b = protowire.AppendTag(b, 1, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(p.Pid))
	}
	for i := range p.Nodes {
		b = protowire.AppendTag(b, 2, protowire.BytesType)
		b = protowire.AppendBytes(b, appendMemoryNode(nil, &p.Nodes[i]))
	}
	for i := range p.Edges {
		b = protowire.AppendTag(b, 3, protowire.BytesType)
		b = protowire.AppendBytes(b, appendMemoryEdge(nil, &p.Edges[i]))
	}
	return b
}

func appendMemoryNode(b []byte, m *MemoryNode) []byte {
	if m.ID != 0 {
		b = protowire.AppendTag(b, 1, protowire.VarintType)
		b = protowire.AppendVarint(b, m.ID)
	}
	if m.AbsoluteName != "" {
		b = protowire.AppendTag(b, 2, protowire.BytesType)
		b = protowire.AppendString(b, m.AbsoluteName)
	}
	if m.Weak {
		b = protowire.AppendTag(b, 3, protowire.VarintType)
		b = protowire.AppendVarint(b, 1)
	}
	if m.HasSizeBytes {
		b = protowire.AppendTag(b, 4, protowire.VarintType)
		b = protowire.AppendVarint(b, m.SizeBytes)
	}
	for i := range m.Entries {
		b = protowire.AppendTag(b, 5, protowire.BytesType)
		b = protowire.AppendBytes(b, appendNodeEntry(nil, &m.Entries[i]))
	}
	return b
}

func appendNodeEntry(b []byte, e *NodeEntry) []byte {
	if e.Name != "" {
		b = protowire.AppendTag(b, 1, protowire.BytesType)
		b = protowire.AppendString(b, e.Name)
	}
	if e.Units != 0 {
		b = protowire.AppendTag(b, 2, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(e.Units))
	}
	if e.HasValueUint64 {
		b = protowire.AppendTag(b, 3, protowire.VarintType)
		b = protowire.AppendVarint(b, e.ValueUint64)
	}
	if e.HasValueString {
		b = protowire.AppendTag(b, 4, protowire.BytesType)
		b = protowire.AppendString(b, e.ValueString)
	}
	return b
}

func appendMemoryEdge(b []byte, e *MemoryEdge) []byte {
	if e.SourceID != 0 {
		b = protowire.AppendTag(b, 1, protowire.VarintType)
		b = protowire.AppendVarint(b, e.SourceID)
	}
	if e.TargetID != 0 {
		b = protowire.AppendTag(b, 2, protowire.VarintType)
		b = protowire.AppendVarint(b, e.TargetID)
	}
	if e.Importance != 0 {
		b = protowire.AppendTag(b, 3, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(int64(e.Importance)))
	}
	if e.Overridable {
		b = protowire.AppendTag(b, 4, protowire.VarintType)
		b = protowire.AppendVarint(b, 1)
	}
	return b
}

// MarshalChunk encodes a transport envelope.
func MarshalChunk(c *Chunk) []byte {
	var b []byte
	if c.Timestamp != 0 {
		b = protowire.AppendTag(b, 1, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(c.Timestamp))
	}
	if len(c.Payload) > 0 {
		b = protowire.AppendTag(b, 2, protowire.BytesType)
		b = protowire.AppendBytes(b, c.Payload)
	}
	return b
}
