package model

// Writer defines a generic interface for persisting a finalized snapshot's
// rows to a durable store.
type Writer interface {
	// Write persists all rows of one finalized snapshot. It is called once
	// per snapshot, after every row has been emitted.
	Write(rows *SnapshotRows) error
}
