package importer

import (
	"fmt"

	"MemSpectra/internal/model"
	"MemSpectra/internal/wire"
)

// decodeChunk decodes one chunk payload and merges it into the accumulation
// window. Node inserts are first-writer-wins per process per path; edges
// accumulate. The window's detail level always follows the most recent
// chunk, even if earlier chunks in the window declared a different one.
func (im *Importer) decodeChunk(payload []byte) error {
	snap, err := wire.DecodeSnapshot(payload)
	if err != nil {
		return fmt.Errorf("decode snapshot chunk: %w", err)
	}

	level := model.LevelDetailed
	switch snap.LevelOfDetail {
	case 0: // FULL
		level = model.LevelDetailed
	case 1: // LIGHT
		level = model.LevelLight
	case 2: // BACKGROUND
		level = model.LevelBackground
	}
	im.windowLevel = level

	for i := range snap.Processes {
		proc := &snap.Processes[i]
		ps, ok := im.window[proc.Pid]
		if !ok {
			ps = model.NewRawProcessSnapshot(level)
			im.window[proc.Pid] = ps
		}
		ps.LevelOfDetail = level

		for j := range proc.Nodes {
			node := &proc.Nodes[j]

			entries := make([]model.NodeEntry, 0, len(node.Entries)+1)
			if node.HasSizeBytes {
				entries = append(entries, model.NodeEntry{
					Name:        "size",
					Unit:        model.UnitBytes,
					Kind:        model.EntryUint64,
					ValueUint64: node.SizeBytes,
				})
			}
			for _, e := range node.Entries {
				unit := model.UnitUnspecified
				switch e.Units {
				case 1: // BYTES
					unit = model.UnitBytes
				case 2: // COUNT
					unit = model.UnitObjects
				}
				switch {
				case e.HasValueUint64:
					entries = append(entries, model.NodeEntry{
						Name:        e.Name,
						Unit:        unit,
						Kind:        model.EntryUint64,
						ValueUint64: e.ValueUint64,
					})
				case e.HasValueString:
					entries = append(entries, model.NodeEntry{
						Name:        e.Name,
						Unit:        unit,
						Kind:        model.EntryString,
						ValueString: e.ValueString,
					})
				default:
					// Entry carries no value at all; drop it and keep going.
					im.store.IncrementParserFailure()
				}
			}

			flags := model.FlagDefault
			if node.Weak {
				flags = model.FlagWeak
			}
			ps.AddNode(&model.RawNode{
				AbsoluteName: node.AbsoluteName,
				ID:           model.NodeID(node.ID),
				Flags:        flags,
				Entries:      entries,
			})
		}

		for _, e := range proc.Edges {
			// Source and target existence is not checked here; edges are
			// validated when the graph is built.
			ps.AddEdge(model.RawEdge{
				SourceID:    model.NodeID(e.SourceID),
				TargetID:    model.NodeID(e.TargetID),
				Importance:  e.Importance,
				Overridable: e.Overridable,
			})
		}
	}
	return nil
}
