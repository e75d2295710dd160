package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

func TestSnapshotRoundTrip(t *testing.T) {
	in := &Snapshot{
		GlobalDumpID:  7,
		LevelOfDetail: 2,
		Processes: []ProcessSnapshot{
			{
				Pid: 1234,
				Nodes: []MemoryNode{
					{
						ID:           42,
						AbsoluteName: "malloc/allocated",
						Weak:         true,
						SizeBytes:    4096,
						HasSizeBytes: true,
						Entries: []NodeEntry{
							{Name: "objects", Units: 2, ValueUint64: 17, HasValueUint64: true},
							{Name: "allocator", ValueString: "tcmalloc", HasValueString: true},
						},
					},
				},
				Edges: []MemoryEdge{
					{SourceID: 42, TargetID: 43, Importance: 2, Overridable: true},
				},
			},
		},
	}

	out, err := DecodeSnapshot(MarshalSnapshot(in))
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestSnapshotZeroSizePresence(t *testing.T) {
	// A dumped size of zero must survive the round trip: presence is
	// tracked, not inferred from the value.
	in := &Snapshot{
		Processes: []ProcessSnapshot{
			{
				Pid: 1,
				Nodes: []MemoryNode{
					{ID: 1, AbsoluteName: "empty", SizeBytes: 0, HasSizeBytes: true},
					{ID: 2, AbsoluteName: "no_size"},
				},
			},
		},
	}

	out, err := DecodeSnapshot(MarshalSnapshot(in))
	require.NoError(t, err)
	require.Len(t, out.Processes, 1)
	require.Len(t, out.Processes[0].Nodes, 2)
	assert.True(t, out.Processes[0].Nodes[0].HasSizeBytes)
	assert.False(t, out.Processes[0].Nodes[1].HasSizeBytes)
}

func TestSnapshotEntryWithoutValue(t *testing.T) {
	// An entry with neither value is syntactically valid wire data; the
	// decoder surfaces it with both has-bits unset and leaves the judgement
	// to the importer.
	in := &Snapshot{
		Processes: []ProcessSnapshot{
			{
				Pid: 1,
				Nodes: []MemoryNode{
					{ID: 1, AbsoluteName: "n", Entries: []NodeEntry{{Name: "broken", Units: 1}}},
				},
			},
		},
	}

	out, err := DecodeSnapshot(MarshalSnapshot(in))
	require.NoError(t, err)
	entry := out.Processes[0].Nodes[0].Entries[0]
	assert.False(t, entry.HasValueUint64)
	assert.False(t, entry.HasValueString)
	assert.Equal(t, "broken", entry.Name)
}

func TestDecodeSnapshotSkipsUnknownFields(t *testing.T) {
	b := MarshalSnapshot(&Snapshot{GlobalDumpID: 9})
	// Append an unknown varint field 15 and an unknown bytes field 16.
	b = protowire.AppendTag(b, 15, protowire.VarintType)
	b = protowire.AppendVarint(b, 99)
	b = protowire.AppendTag(b, 16, protowire.BytesType)
	b = protowire.AppendBytes(b, []byte("future"))

	out, err := DecodeSnapshot(b)
	require.NoError(t, err)
	assert.Equal(t, uint64(9), out.GlobalDumpID)
}

func TestDecodeSnapshotTruncated(t *testing.T) {
	b := MarshalSnapshot(&Snapshot{
		Processes: []ProcessSnapshot{{Pid: 1, Nodes: []MemoryNode{{ID: 1, AbsoluteName: "a"}}}},
	})
	_, err := DecodeSnapshot(b[:len(b)-3])
	assert.Error(t, err)
}

func TestChunkRoundTrip(t *testing.T) {
	payload := MarshalSnapshot(&Snapshot{GlobalDumpID: 3})
	in := &Chunk{Timestamp: 1700000000123, Payload: payload}

	out, err := UnmarshalChunk(MarshalChunk(in))
	require.NoError(t, err)
	assert.Equal(t, in.Timestamp, out.Timestamp)
	assert.Equal(t, in.Payload, out.Payload)
}
