// Package importer is the streaming snapshot importer: it decodes incoming
// memory snapshot chunks, accumulates every chunk sharing a timestamp into
// one logical snapshot, and on each timestamp change (or end of stream) has
// the graph built and emits it as rows into the store.
package importer

import (
	"errors"
	"fmt"
	"log"

	"MemSpectra/internal/graph"
	"MemSpectra/internal/model"
	"MemSpectra/internal/storage"
)

// ErrTimestampOrder is returned when a chunk's timestamp precedes the
// snapshot currently being accumulated. The input feed is required to be
// timestamp-sorted; the offending chunk is rejected and the window is left
// untouched.
var ErrTimestampOrder = errors.New("chunk timestamp precedes current snapshot")

// GraphBuilder builds the hierarchical memory graph for one finalized
// accumulation window.
type GraphBuilder interface {
	Build(raw model.RawNodeMap) *graph.Global
}

// Importer consumes snapshot chunks in timestamp order and emits normalized
// rows. It is single-threaded and push-based: each chunk is processed to
// completion before the next is accepted.
type Importer struct {
	store   *storage.Store
	builder GraphBuilder
	writer  model.Writer // optional, may be nil

	levelOfDetailIDs [3]storage.StringID
	unitIDs          [3]storage.StringID

	window          model.RawNodeMap
	windowTimestamp int64
	windowLevel     model.LevelOfDetail

	lastTimestamp int64
	started       bool
}

// NewImporter creates an importer emitting into store. writer may be nil; if
// set, it receives each finalized snapshot's rows after emission.
func NewImporter(store *storage.Store, builder GraphBuilder, writer model.Writer) *Importer {
	im := &Importer{
		store:   store,
		builder: builder,
		writer:  writer,
		window:  make(model.RawNodeMap),
	}
	for _, l := range []model.LevelOfDetail{model.LevelDetailed, model.LevelLight, model.LevelBackground} {
		im.levelOfDetailIDs[l] = store.InternString(l.Label())
	}
	for _, u := range []model.Unit{model.UnitBytes, model.UnitObjects} {
		im.unitIDs[u] = store.InternString(u.Label())
	}
	return im
}

// Parse consumes one chunk. Chunks must arrive in non-decreasing timestamp
// order; a chunk older than the accumulating snapshot is rejected with
// ErrTimestampOrder. When ts differs from the accumulating snapshot's
// timestamp, the previous snapshot is finalized first, then a new window
// starts at ts.
func (im *Importer) Parse(ts int64, payload []byte) error {
	if im.started && ts < im.lastTimestamp {
		return fmt.Errorf("%w: got %d, last seen %d", ErrTimestampOrder, ts, im.lastTimestamp)
	}
	if len(im.window) > 0 && ts != im.windowTimestamp {
		if err := im.finalize(); err != nil {
			return err
		}
	}
	if err := im.decodeChunk(payload); err != nil {
		return err
	}
	im.windowTimestamp = ts
	im.lastTimestamp = ts
	im.started = true
	return nil
}

// NotifyEndOfStream finalizes the accumulating snapshot, if any. It is safe
// to call when no chunk was ever parsed.
func (im *Importer) NotifyEndOfStream() error {
	if len(im.window) == 0 {
		return nil
	}
	return im.finalize()
}

// finalize builds the graph for the accumulated window, emits its rows, and
// clears the window.
func (im *Importer) finalize() error {
	g := im.builder.Build(im.window)
	snapshotID := im.emitRows(im.windowTimestamp, g, im.windowLevel)
	im.window = make(model.RawNodeMap)

	if im.writer == nil {
		return nil
	}
	rows, err := im.store.SnapshotRows(snapshotID)
	if err != nil {
		return err
	}
	if err := im.writer.Write(rows); err != nil {
		return fmt.Errorf("write snapshot %d: %w", snapshotID, err)
	}
	log.Printf("Finalized snapshot at ts=%d: %d processes, %d nodes, %d edges",
		rows.Timestamp, len(rows.Processes), len(rows.Nodes), len(rows.Edges))
	return nil
}
