// Package storage holds the in-memory row store the importer emits into:
// four related tables with store-allocated ids, a string pool, a process
// tracker and per-row generic arguments. Durable persistence is layered on
// top by writers that consume SnapshotRows views.
package storage

import (
	"fmt"

	"MemSpectra/internal/model"
)

type (
	// StringID is a stable id for interned text.
	StringID uint32
	// TrackID identifies an event track.
	TrackID uint32
	// UPid is a store-scoped process reference.
	UPid uint32
	// SnapshotID identifies a snapshot row.
	SnapshotID uint32
	// ProcessSnapshotID identifies a process-snapshot row.
	ProcessSnapshotID uint32
	// NodeRowID identifies a node row.
	NodeRowID uint32
	// EdgeRowID identifies an edge row.
	EdgeRowID uint32
)

// SharedPseudoPid is the reserved process id that cross-process shared
// memory regions are attributed to. It is not a real OS pid.
const SharedPseudoPid uint32 = 0

// SharedMemoryUPid is the distinguished process reference SharedPseudoPid
// resolves to. It exists from store construction.
const SharedMemoryUPid UPid = 0

type snapshotRow struct {
	timestamp   int64
	track       TrackID
	detailLevel StringID
}

type processSnapshotRow struct {
	snapshot SnapshotID
	upid     UPid
}

type nodeRow struct {
	processSnapshot ProcessSnapshotID
	parent          *NodeRowID
	path            StringID
	size            *int64
	effectiveSize   *int64
}

type edgeRow struct {
	source     NodeRowID
	target     NodeRowID
	importance uint32
}

type argRow struct {
	key       StringID
	kind      model.EntryKind
	intVal    int64
	stringVal StringID
}

// Store is the in-memory row store. It allocates all row ids on insert; a
// row is never updated after insertion except for the node table's dedicated
// size columns. The store does no locking of its own: the importer owns it
// and feeds it serially.
type Store struct {
	strings   *StringPool
	processes *ProcessTracker

	trackNames []StringID

	snapshots        []snapshotRow
	processSnapshots []processSnapshotRow
	nodes            []nodeRow
	edges            []edgeRow
	args             map[NodeRowID][]argRow

	parserFailures uint64
}

// NewStore creates an empty store with the global instant track and the
// shared-memory pseudo-process pre-registered.
func NewStore() *Store {
	s := &Store{
		strings:   NewStringPool(),
		processes: NewProcessTracker(),
		args:      make(map[NodeRowID][]argRow),
	}
	s.trackNames = append(s.trackNames, s.strings.Intern("memory.snapshots"))
	return s
}

// InternString interns text and returns its stable id.
func (s *Store) InternString(str string) StringID {
	return s.strings.Intern(str)
}

// GetString resolves an interned id back to its text.
func (s *Store) GetString(id StringID) string {
	return s.strings.Get(id)
}

// GetOrCreateProcess resolves a pid to its process reference, creating one
// if the pid has not been seen.
func (s *Store) GetOrCreateProcess(pid uint32) UPid {
	return s.processes.GetOrCreate(pid)
}

// Pid returns the OS pid a process reference was created for.
func (s *Store) Pid(upid UPid) uint32 {
	return s.processes.Pid(upid)
}

// GlobalInstantTrack returns the fixed track that snapshot rows are placed
// on. Memory snapshots are global instantaneous events.
func (s *Store) GlobalInstantTrack() TrackID {
	return TrackID(0)
}

// IncrementParserFailure bumps the counter for malformed node entries.
func (s *Store) IncrementParserFailure() {
	s.parserFailures++
}

// ParserFailures returns the number of malformed node entries seen.
func (s *Store) ParserFailures() uint64 {
	return s.parserFailures
}

// InsertSnapshot adds one snapshot row and returns its id.
func (s *Store) InsertSnapshot(ts int64, track TrackID, detailLevel StringID) SnapshotID {
	s.snapshots = append(s.snapshots, snapshotRow{timestamp: ts, track: track, detailLevel: detailLevel})
	return SnapshotID(len(s.snapshots) - 1)
}

// InsertProcessSnapshot adds one process-snapshot row and returns its id.
func (s *Store) InsertProcessSnapshot(snapshot SnapshotID, upid UPid) ProcessSnapshotID {
	s.processSnapshots = append(s.processSnapshots, processSnapshotRow{snapshot: snapshot, upid: upid})
	return ProcessSnapshotID(len(s.processSnapshots) - 1)
}

// InsertNode adds one node row. parent is nil for top-level children of a
// tree. The size columns start unset and may be filled in later with
// SetNodeSize/SetNodeEffectiveSize.
func (s *Store) InsertNode(ps ProcessSnapshotID, parent *NodeRowID, path StringID) NodeRowID {
	row := nodeRow{processSnapshot: ps, path: path}
	if parent != nil {
		p := *parent
		row.parent = &p
	}
	s.nodes = append(s.nodes, row)
	return NodeRowID(len(s.nodes) - 1)
}

// SetNodeSize fills the dedicated size column of an existing node row.
func (s *Store) SetNodeSize(id NodeRowID, v int64) {
	s.nodes[id].size = &v
}

// SetNodeEffectiveSize fills the dedicated effective_size column of an
// existing node row.
func (s *Store) SetNodeEffectiveSize(id NodeRowID, v int64) {
	s.nodes[id].effectiveSize = &v
}

// InsertEdge adds one edge row between two node rows.
func (s *Store) InsertEdge(source, target NodeRowID, importance uint32) EdgeRowID {
	s.edges = append(s.edges, edgeRow{source: source, target: target, importance: importance})
	return EdgeRowID(len(s.edges) - 1)
}

// AddIntArg attaches an integer argument to a node row.
func (s *Store) AddIntArg(node NodeRowID, key StringID, v int64) {
	s.args[node] = append(s.args[node], argRow{key: key, kind: model.EntryUint64, intVal: v})
}

// AddStringArg attaches an interned-string argument to a node row.
func (s *Store) AddStringArg(node NodeRowID, key StringID, v StringID) {
	s.args[node] = append(s.args[node], argRow{key: key, kind: model.EntryString, stringVal: v})
}

// SnapshotCount returns the number of snapshot rows inserted so far.
func (s *Store) SnapshotCount() int {
	return len(s.snapshots)
}

// SnapshotRows materializes the export view of one finalized snapshot, with
// interned strings resolved. Rows appear in insertion order.
func (s *Store) SnapshotRows(id SnapshotID) (*model.SnapshotRows, error) {
	if int(id) >= len(s.snapshots) {
		return nil, fmt.Errorf("unknown snapshot id %d", id)
	}
	snap := s.snapshots[id]
	out := &model.SnapshotRows{
		SnapshotID:  uint32(id),
		Timestamp:   snap.timestamp,
		DetailLevel: s.strings.Get(snap.detailLevel),
	}

	inSnapshot := make(map[ProcessSnapshotID]bool)
	for i, ps := range s.processSnapshots {
		if ps.snapshot != id {
			continue
		}
		inSnapshot[ProcessSnapshotID(i)] = true
		out.Processes = append(out.Processes, model.ProcessSnapshotRow{
			ID:  uint32(i),
			Pid: s.processes.Pid(ps.upid),
		})
	}

	nodeInSnapshot := make(map[NodeRowID]bool)
	for i, n := range s.nodes {
		if !inSnapshot[n.processSnapshot] {
			continue
		}
		rowID := NodeRowID(i)
		nodeInSnapshot[rowID] = true
		row := model.NodeRow{
			ID:                uint32(i),
			ProcessSnapshotID: uint32(n.processSnapshot),
			Path:              s.strings.Get(n.path),
			Size:              n.size,
			EffectiveSize:     n.effectiveSize,
		}
		if n.parent != nil {
			p := uint32(*n.parent)
			row.ParentID = &p
		}
		for _, a := range s.args[rowID] {
			arg := model.Arg{Key: s.strings.Get(a.key), Kind: a.kind}
			if a.kind == model.EntryString {
				arg.StringValue = s.strings.Get(a.stringVal)
			} else {
				arg.IntValue = a.intVal
			}
			row.Args = append(row.Args, arg)
		}
		out.Nodes = append(out.Nodes, row)
	}

	for i, e := range s.edges {
		if !nodeInSnapshot[e.source] {
			continue
		}
		out.Edges = append(out.Edges, model.EdgeRow{
			ID:           uint32(i),
			SourceNodeID: uint32(e.source),
			TargetNodeID: uint32(e.target),
			Importance:   e.importance,
		})
	}
	return out, nil
}
