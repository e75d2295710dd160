package wire

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// DecodeSnapshot decodes one snapshot chunk payload. Unknown fields are
// skipped so producers may extend the schema; a truncated or syntactically
// invalid payload is an error.
func DecodeSnapshot(b []byte) (*Snapshot, error) {
	var s Snapshot
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("snapshot: %w", protowire.ParseError(n))
		}
		b = b[n:]
		switch {
		case num == 1 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, fmt.Errorf("snapshot global_dump_id: %w", protowire.ParseError(n))
			}
			s.GlobalDumpID = v
			b = b[n:]
		case num == 2 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, fmt.Errorf("snapshot level_of_detail: %w", protowire.ParseError(n))
			}
			s.LevelOfDetail = int32(v)
			b = b[n:]
		case num == 3 && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, fmt.Errorf("snapshot process_dumps: %w", protowire.ParseError(n))
			}
			p, err := decodeProcessSnapshot(v)
			if err != nil {
				return nil, err
			}
			s.Processes = append(s.Processes, p)
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, fmt.Errorf("snapshot field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	return &s, nil
}

func decodeProcessSnapshot(b []byte) (ProcessSnapshot, error) {
	var p ProcessSnapshot
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return p, fmt.Errorf("process dump: %w", protowire.ParseError(n))
		}
		b = b[n:]
		switch {
		case num == 1 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return p, fmt.Errorf("process dump pid: %w", protowire.ParseError(n))
			}
			p.Pid = uint32(v)
			b = b[n:]
		case num == 2 && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return p, fmt.Errorf("process dump allocator_dumps: %w", protowire.ParseError(n))
			}
			node, err := decodeMemoryNode(v)
			if err != nil {
				return p, err
			}
			p.Nodes = append(p.Nodes, node)
			b = b[n:]
		case num == 3 && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return p, fmt.Errorf("process dump memory_edges: %w", protowire.ParseError(n))
			}
			edge, err := decodeMemoryEdge(v)
			if err != nil {
				return p, err
			}
			p.Edges = append(p.Edges, edge)
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return p, fmt.Errorf("process dump field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	return p, nil
}

func decodeMemoryNode(b []byte) (MemoryNode, error) {
	var m MemoryNode
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return m, fmt.Errorf("memory node: %w", protowire.ParseError(n))
		}
		b = b[n:]
		switch {
		case num == 1 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return m, fmt.Errorf("memory node id: %w", protowire.ParseError(n))
			}
			m.ID = v
			b = b[n:]
		case num == 2 && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return m, fmt.Errorf("memory node absolute_name: %w", protowire.ParseError(n))
			}
			m.AbsoluteName = string(v)
			b = b[n:]
		case num == 3 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return m, fmt.Errorf("memory node weak: %w", protowire.ParseError(n))
			}
			m.Weak = v != 0
			b = b[n:]
		case num == 4 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return m, fmt.Errorf("memory node size_bytes: %w", protowire.ParseError(n))
			}
			m.SizeBytes = v
			m.HasSizeBytes = true
			b = b[n:]
		case num == 5 && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return m, fmt.Errorf("memory node entries: %w", protowire.ParseError(n))
			}
			entry, err := decodeNodeEntry(v)
			if err != nil {
				return m, err
			}
			m.Entries = append(m.Entries, entry)
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return m, fmt.Errorf("memory node field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	return m, nil
}

func decodeNodeEntry(b []byte) (NodeEntry, error) {
	var e NodeEntry
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return e, fmt.Errorf("node entry: %w", protowire.ParseError(n))
		}
		b = b[n:]
		switch {
		case num == 1 && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return e, fmt.Errorf("node entry name: %w", protowire.ParseError(n))
			}
			e.Name = string(v)
			b = b[n:]
		case num == 2 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return e, fmt.Errorf("node entry units: %w", protowire.ParseError(n))
			}
			e.Units = int32(v)
			b = b[n:]
		case num == 3 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return e, fmt.Errorf("node entry value_uint64: %w", protowire.ParseError(n))
			}
			e.ValueUint64 = v
			e.HasValueUint64 = true
			b = b[n:]
		case num == 4 && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return e, fmt.Errorf("node entry value_string: %w", protowire.ParseError(n))
			}
			e.ValueString = string(v)
			e.HasValueString = true
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return e, fmt.Errorf("node entry field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	return e, nil
}

func decodeMemoryEdge(b []byte) (MemoryEdge, error) {
	var e MemoryEdge
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return e, fmt.Errorf("memory edge: %w", protowire.ParseError(n))
		}
		b = b[n:]
		switch {
		case num == 1 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return e, fmt.Errorf("memory edge source_id: %w", protowire.ParseError(n))
			}
			e.SourceID = v
			b = b[n:]
		case num == 2 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return e, fmt.Errorf("memory edge target_id: %w", protowire.ParseError(n))
			}
			e.TargetID = v
			b = b[n:]
		case num == 3 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return e, fmt.Errorf("memory edge importance: %w", protowire.ParseError(n))
			}
			e.Importance = int32(v)
			b = b[n:]
		case num == 4 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return e, fmt.Errorf("memory edge overridable: %w", protowire.ParseError(n))
			}
			e.Overridable = v != 0
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return e, fmt.Errorf("memory edge field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	return e, nil
}

// UnmarshalChunk decodes a transport envelope.
func UnmarshalChunk(b []byte) (*Chunk, error) {
	var c Chunk
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("chunk envelope: %w", protowire.ParseError(n))
		}
		b = b[n:]
		switch {
		case num == 1 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, fmt.Errorf("chunk timestamp: %w", protowire.ParseError(n))
			}
			c.Timestamp = int64(v)
			b = b[n:]
		case num == 2 && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, fmt.Errorf("chunk payload: %w", protowire.ParseError(n))
			}
			c.Payload = append([]byte(nil), v...)
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, fmt.Errorf("chunk field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	return &c, nil
}
