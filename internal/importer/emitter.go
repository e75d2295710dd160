package importer

import (
	"sort"

	"MemSpectra/internal/graph"
	"MemSpectra/internal/model"
	"MemSpectra/internal/storage"
)

// emitRows writes one finalized snapshot into the store: the snapshot row,
// then per-process rows and their node subtrees in ascending pid order, then
// the shared tree under the pseudo-process, then all edges. Edges go last
// because they may cross process trees.
func (im *Importer) emitRows(ts int64, g *graph.Global, level model.LevelOfDetail) storage.SnapshotID {
	idToRow := make(map[uint64]storage.NodeRowID)

	snapshotID := im.store.InsertSnapshot(ts, im.store.GlobalInstantTrack(), im.levelOfDetailIDs[level])

	trees := g.ProcessTrees()
	pids := make([]uint32, 0, len(trees))
	for pid := range trees {
		pids = append(pids, pid)
	}
	sort.Slice(pids, func(i, j int) bool { return pids[i] < pids[j] })

	for _, pid := range pids {
		upid := im.store.GetOrCreateProcess(pid)
		psID := im.store.InsertProcessSnapshot(snapshotID, upid)
		im.emitNodeTree(trees[pid].Root, "", nil, psID, idToRow)
	}

	// Shared memory nodes hang off a process snapshot of the reserved
	// pseudo-process rather than any real process.
	sharedUpid := im.store.GetOrCreateProcess(storage.SharedPseudoPid)
	sharedPsID := im.store.InsertProcessSnapshot(snapshotID, sharedUpid)
	im.emitNodeTree(g.SharedTree().Root, "", nil, sharedPsID, idToRow)

	for _, e := range g.Edges() {
		// Every edge endpoint was emitted above: the builder only resolves
		// edges against nodes placed in a tree.
		im.store.InsertEdge(idToRow[e.Source.ID], idToRow[e.Target.ID], uint32(e.Importance))
	}
	return snapshotID
}

// emitNodeTree emits a subtree depth-first. The synthetic root (empty path)
// produces no row; children are visited in segment order so output is
// deterministic.
func (im *Importer) emitNodeTree(n *graph.Node, path string, parent *storage.NodeRowID, psID storage.ProcessSnapshotID, idToRow map[uint64]storage.NodeRowID) {
	var rowID *storage.NodeRowID
	if path != "" {
		id := im.emitNode(n, path, parent, psID, idToRow)
		rowID = &id
	}

	names := make([]string, 0, len(n.Children))
	for name := range n.Children {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		childPath := path
		if childPath != "" {
			childPath += "/"
		}
		childPath += name
		im.emitNodeTree(n.Children[name], childPath, rowID, psID, idToRow)
	}
}

// emitNode inserts one node row, routes size/effective_size to their
// dedicated columns, attaches every other entry as generic arguments, and
// records the node's identity for edge resolution.
func (im *Importer) emitNode(n *graph.Node, path string, parent *storage.NodeRowID, psID storage.ProcessSnapshotID, idToRow map[uint64]storage.NodeRowID) storage.NodeRowID {
	rowID := im.store.InsertNode(psID, parent, im.store.InternString(path))

	for _, entry := range n.Entries {
		switch entry.Kind {
		case model.EntryUint64:
			v := int64(entry.Uint64)
			switch entry.Name {
			case "size":
				im.store.SetNodeSize(rowID, v)
			case "effective_size":
				im.store.SetNodeEffectiveSize(rowID, v)
			default:
				im.store.AddIntArg(rowID, im.store.InternString(entry.Name+".value"), v)
				if entry.Unit == model.UnitBytes || entry.Unit == model.UnitObjects {
					im.store.AddStringArg(rowID, im.store.InternString(entry.Name+".unit"), im.unitIDs[entry.Unit])
				}
			}
		case model.EntryString:
			im.store.AddStringArg(rowID, im.store.InternString(entry.Name+".value"), im.store.InternString(entry.Str))
		}
	}

	idToRow[n.ID] = rowID
	return rowID
}
