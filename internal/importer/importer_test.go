package importer

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MemSpectra/internal/graph"
	"MemSpectra/internal/model"
	"MemSpectra/internal/storage"
	"MemSpectra/internal/wire"
)

func newTestImporter(w model.Writer) (*Importer, *storage.Store) {
	store := storage.NewStore()
	return NewImporter(store, graph.NewBuilder(), w), store
}

func payload(s *wire.Snapshot) []byte {
	return wire.MarshalSnapshot(s)
}

func singleNodeChunk(pid uint32, path string, id uint64) *wire.Snapshot {
	return &wire.Snapshot{
		Processes: []wire.ProcessSnapshot{
			{Pid: pid, Nodes: []wire.MemoryNode{{ID: id, AbsoluteName: path}}},
		},
	}
}

func findNode(rows *model.SnapshotRows, path string) *model.NodeRow {
	for i := range rows.Nodes {
		if rows.Nodes[i].Path == path {
			return &rows.Nodes[i]
		}
	}
	return nil
}

func pids(rows *model.SnapshotRows) []uint32 {
	out := make([]uint32, 0, len(rows.Processes))
	for _, p := range rows.Processes {
		out = append(out, p.Pid)
	}
	return out
}

// The end-to-end shape of one logical snapshot split across two chunks: a
// sized node from the first chunk and a counted child node from the second.
func TestMultiChunkSnapshot(t *testing.T) {
	imp, store := newTestImporter(nil)

	require.NoError(t, imp.Parse(100, payload(&wire.Snapshot{
		Processes: []wire.ProcessSnapshot{
			{Pid: 7, Nodes: []wire.MemoryNode{
				{ID: 1, AbsoluteName: "heap", SizeBytes: 1000, HasSizeBytes: true},
			}},
		},
	})))
	require.NoError(t, imp.Parse(100, payload(&wire.Snapshot{
		Processes: []wire.ProcessSnapshot{
			{Pid: 7, Nodes: []wire.MemoryNode{
				{ID: 2, AbsoluteName: "heap/bucket1", Entries: []wire.NodeEntry{
					{Name: "n_objects", Units: 2, ValueUint64: 5, HasValueUint64: true},
				}},
			}},
		},
	})))

	// Nothing is finalized until the timestamp moves on.
	assert.Equal(t, 0, store.SnapshotCount())
	require.NoError(t, imp.Parse(200, payload(singleNodeChunk(7, "heap", 3))))
	require.Equal(t, 1, store.SnapshotCount())

	rows, err := store.SnapshotRows(0)
	require.NoError(t, err)

	assert.Equal(t, int64(100), rows.Timestamp)
	assert.Equal(t, "detailed", rows.DetailLevel)
	assert.Equal(t, []uint32{7, 0}, pids(rows))

	heap := findNode(rows, "heap")
	require.NotNil(t, heap)
	assert.Nil(t, heap.ParentID)
	require.NotNil(t, heap.Size)
	assert.Equal(t, int64(1000), *heap.Size)
	require.NotNil(t, heap.EffectiveSize)
	assert.Equal(t, int64(1000), *heap.EffectiveSize)

	bucket := findNode(rows, "heap/bucket1")
	require.NotNil(t, bucket)
	require.NotNil(t, bucket.ParentID)
	assert.Equal(t, heap.ID, *bucket.ParentID)
	assert.Nil(t, bucket.Size)
	require.Len(t, bucket.Args, 2)
	assert.Equal(t, "n_objects.value", bucket.Args[0].Key)
	assert.Equal(t, int64(5), bucket.Args[0].IntValue)
	assert.Equal(t, "n_objects.unit", bucket.Args[1].Key)
	assert.Equal(t, "objects", bucket.Args[1].StringValue)
}

func TestDisjointProcessChunks(t *testing.T) {
	imp, store := newTestImporter(nil)

	require.NoError(t, imp.Parse(100, payload(singleNodeChunk(9, "v8", 1))))
	require.NoError(t, imp.Parse(100, payload(singleNodeChunk(3, "malloc", 2))))
	require.NoError(t, imp.NotifyEndOfStream())

	rows, err := store.SnapshotRows(0)
	require.NoError(t, err)
	// One process snapshot per pid seen, ascending, plus the shared
	// pseudo-process last.
	assert.Equal(t, []uint32{3, 9, 0}, pids(rows))
}

func TestFirstWriterWinsWithinWindow(t *testing.T) {
	imp, store := newTestImporter(nil)

	require.NoError(t, imp.Parse(100, payload(&wire.Snapshot{
		Processes: []wire.ProcessSnapshot{
			{Pid: 7, Nodes: []wire.MemoryNode{
				{ID: 1, AbsoluteName: "heap", Entries: []wire.NodeEntry{
					{Name: "n_objects", Units: 2, ValueUint64: 5, HasValueUint64: true},
				}},
			}},
		},
	})))
	// A later chunk dumps the same path with different data; it is dropped,
	// not merged.
	require.NoError(t, imp.Parse(100, payload(&wire.Snapshot{
		Processes: []wire.ProcessSnapshot{
			{Pid: 7, Nodes: []wire.MemoryNode{
				{ID: 8, AbsoluteName: "heap", SizeBytes: 999, HasSizeBytes: true},
			}},
		},
	})))
	require.NoError(t, imp.NotifyEndOfStream())

	rows, err := store.SnapshotRows(0)
	require.NoError(t, err)
	heap := findNode(rows, "heap")
	require.NotNil(t, heap)
	assert.Nil(t, heap.Size, "second chunk's size must not appear")
	require.Len(t, heap.Args, 2)
	assert.Equal(t, "n_objects.value", heap.Args[0].Key)
}

func TestDetailLevelFollowsLastChunk(t *testing.T) {
	imp, store := newTestImporter(nil)

	light := singleNodeChunk(1, "a", 1)
	light.LevelOfDetail = 1
	background := singleNodeChunk(2, "b", 2)
	background.LevelOfDetail = 2

	require.NoError(t, imp.Parse(100, payload(light)))
	require.NoError(t, imp.Parse(100, payload(background)))
	require.NoError(t, imp.NotifyEndOfStream())

	rows, err := store.SnapshotRows(0)
	require.NoError(t, err)
	assert.Equal(t, "background", rows.DetailLevel)
}

func TestUnknownDetailLevelDefaultsToDetailed(t *testing.T) {
	imp, store := newTestImporter(nil)

	chunk := singleNodeChunk(1, "a", 1)
	chunk.LevelOfDetail = 42
	require.NoError(t, imp.Parse(100, payload(chunk)))
	require.NoError(t, imp.NotifyEndOfStream())

	rows, err := store.SnapshotRows(0)
	require.NoError(t, err)
	assert.Equal(t, "detailed", rows.DetailLevel)
}

func TestAncestryRowsSynthesized(t *testing.T) {
	imp, store := newTestImporter(nil)

	require.NoError(t, imp.Parse(100, payload(singleNodeChunk(7, "a/b/c", 1))))
	require.NoError(t, imp.NotifyEndOfStream())

	rows, err := store.SnapshotRows(0)
	require.NoError(t, err)

	a := findNode(rows, "a")
	ab := findNode(rows, "a/b")
	abc := findNode(rows, "a/b/c")
	require.NotNil(t, a)
	require.NotNil(t, ab)
	require.NotNil(t, abc)

	assert.Nil(t, a.ParentID)
	require.NotNil(t, ab.ParentID)
	assert.Equal(t, a.ID, *ab.ParentID)
	require.NotNil(t, abc.ParentID)
	assert.Equal(t, ab.ID, *abc.ParentID)

	// Parents are emitted strictly before their children, and sibling paths
	// are unique.
	seen := make(map[string]bool)
	for _, n := range rows.Nodes {
		assert.False(t, seen[n.Path], "duplicate path %q", n.Path)
		seen[n.Path] = true
		if n.ParentID != nil {
			assert.Less(t, *n.ParentID, n.ID)
		}
	}
}

func TestEdgesEmittedAfterAllNodes(t *testing.T) {
	imp, store := newTestImporter(nil)

	// pid 7 dumps a cache and the shared buffer it owns; pid 9 references
	// the same shared buffer from its own edge list.
	require.NoError(t, imp.Parse(100, payload(&wire.Snapshot{
		Processes: []wire.ProcessSnapshot{
			{
				Pid: 7,
				Nodes: []wire.MemoryNode{
					{ID: 1, AbsoluteName: "cache", SizeBytes: 100, HasSizeBytes: true},
					{ID: 2, AbsoluteName: "global/buf", SizeBytes: 60, HasSizeBytes: true},
				},
				Edges: []wire.MemoryEdge{{SourceID: 1, TargetID: 2, Importance: 2}},
			},
			{
				Pid:   9,
				Nodes: []wire.MemoryNode{{ID: 3, AbsoluteName: "mapper", SizeBytes: 10, HasSizeBytes: true}},
				Edges: []wire.MemoryEdge{{SourceID: 3, TargetID: 2, Importance: 1}},
			},
		},
	})))
	require.NoError(t, imp.NotifyEndOfStream())

	rows, err := store.SnapshotRows(0)
	require.NoError(t, err)
	require.Len(t, rows.Edges, 2)

	nodeIDs := make(map[uint32]bool)
	for _, n := range rows.Nodes {
		nodeIDs[n.ID] = true
	}
	for _, e := range rows.Edges {
		assert.True(t, nodeIDs[e.SourceNodeID], "edge source must be a node of this snapshot")
		assert.True(t, nodeIDs[e.TargetNodeID], "edge target must be a node of this snapshot")
	}

	cache := findNode(rows, "cache")
	buf := findNode(rows, "global/buf")
	require.NotNil(t, cache)
	require.NotNil(t, buf)
	assert.Equal(t, cache.ID, rows.Edges[0].SourceNodeID)
	assert.Equal(t, buf.ID, rows.Edges[0].TargetNodeID)
	assert.Equal(t, uint32(2), rows.Edges[0].Importance)
}

func TestMalformedEntryCountedAndSkipped(t *testing.T) {
	imp, store := newTestImporter(nil)

	require.NoError(t, imp.Parse(100, payload(&wire.Snapshot{
		Processes: []wire.ProcessSnapshot{
			{Pid: 7, Nodes: []wire.MemoryNode{
				{ID: 1, AbsoluteName: "n", Entries: []wire.NodeEntry{
					{Name: "broken", Units: 1},
					{Name: "fine", Units: 1, ValueUint64: 3, HasValueUint64: true},
				}},
			}},
		},
	})))
	require.NoError(t, imp.NotifyEndOfStream())

	assert.Equal(t, uint64(1), store.ParserFailures())

	rows, err := store.SnapshotRows(0)
	require.NoError(t, err)
	n := findNode(rows, "n")
	require.NotNil(t, n)
	require.Len(t, n.Args, 2, "sibling entry must still be emitted")
	assert.Equal(t, "fine.value", n.Args[0].Key)
	assert.Equal(t, "fine.unit", n.Args[1].Key)
}

func TestOutOfOrderChunkRejected(t *testing.T) {
	imp, store := newTestImporter(nil)

	require.NoError(t, imp.Parse(200, payload(singleNodeChunk(1, "a", 1))))
	err := imp.Parse(100, payload(singleNodeChunk(1, "b", 2)))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTimestampOrder))

	// The window survives the rejected chunk and the sorted feed resumes.
	require.NoError(t, imp.Parse(200, payload(singleNodeChunk(1, "c", 3))))
	require.NoError(t, imp.NotifyEndOfStream())
	require.Equal(t, 1, store.SnapshotCount())

	rows, err := store.SnapshotRows(0)
	require.NoError(t, err)
	assert.NotNil(t, findNode(rows, "a"))
	assert.Nil(t, findNode(rows, "b"))
	assert.NotNil(t, findNode(rows, "c"))
}

func TestEndOfStreamWithoutChunks(t *testing.T) {
	imp, store := newTestImporter(nil)

	require.NoError(t, imp.NotifyEndOfStream())
	require.NoError(t, imp.NotifyEndOfStream())
	assert.Equal(t, 0, store.SnapshotCount())
}

func TestFinalizeExactlyOnce(t *testing.T) {
	imp, store := newTestImporter(nil)

	require.NoError(t, imp.Parse(100, payload(singleNodeChunk(1, "a", 1))))
	require.NoError(t, imp.Parse(200, payload(singleNodeChunk(1, "a", 2))))
	assert.Equal(t, 1, store.SnapshotCount())

	require.NoError(t, imp.NotifyEndOfStream())
	assert.Equal(t, 2, store.SnapshotCount())
	require.NoError(t, imp.NotifyEndOfStream())
	assert.Equal(t, 2, store.SnapshotCount())
}

type captureWriter struct {
	written []*model.SnapshotRows
}

func (w *captureWriter) Write(rows *model.SnapshotRows) error {
	w.written = append(w.written, rows)
	return nil
}

func TestWriterReceivesFinalizedSnapshots(t *testing.T) {
	w := &captureWriter{}
	imp, _ := newTestImporter(w)

	require.NoError(t, imp.Parse(100, payload(singleNodeChunk(1, "a", 1))))
	require.NoError(t, imp.Parse(200, payload(singleNodeChunk(1, "a", 2))))
	require.NoError(t, imp.NotifyEndOfStream())

	require.Len(t, w.written, 2)
	assert.Equal(t, int64(100), w.written[0].Timestamp)
	assert.Equal(t, int64(200), w.written[1].Timestamp)
}
