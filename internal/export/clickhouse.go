// Package export persists finalized snapshot rows to ClickHouse.
package export

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"MemSpectra/internal/config"
	"MemSpectra/internal/model"
)

var createTableStatements = []string{
	`
CREATE TABLE IF NOT EXISTS memory_snapshots (
    SnapshotID  UInt32,
    Timestamp   Int64,
    DetailLevel String,
    WrittenAt   DateTime
) ENGINE = MergeTree()
ORDER BY (Timestamp, SnapshotID);
`,
	`
CREATE TABLE IF NOT EXISTS process_memory_snapshots (
    ProcessSnapshotID UInt32,
    SnapshotID        UInt32,
    Pid               UInt32
) ENGINE = MergeTree()
ORDER BY (SnapshotID, ProcessSnapshotID);
`,
	`
CREATE TABLE IF NOT EXISTS memory_snapshot_nodes (
    NodeID            UInt32,
    ProcessSnapshotID UInt32,
    ParentNodeID      Nullable(UInt32),
    Path              String,
    Size              Nullable(Int64),
    EffectiveSize     Nullable(Int64),
    ArgKeys           Array(String),
    ArgValues         Array(String)
) ENGINE = MergeTree()
ORDER BY (ProcessSnapshotID, NodeID);
`,
	`
CREATE TABLE IF NOT EXISTS memory_snapshot_edges (
    EdgeID       UInt32,
    SnapshotID   UInt32,
    SourceNodeID UInt32,
    TargetNodeID UInt32,
    Importance   UInt32
) ENGINE = MergeTree()
ORDER BY (SnapshotID, EdgeID);
`,
}

// ClickHouseWriter implements the model.Writer interface for ClickHouse.
type ClickHouseWriter struct {
	conn driver.Conn
}

// NewClickHouseWriter connects to ClickHouse and ensures the snapshot tables
// exist.
func NewClickHouseWriter(cfg config.ClickHouseConfig) (model.Writer, error) {
	conn, err := connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to clickhouse: %w", err)
	}

	for _, stmt := range createTableStatements {
		if err := conn.Exec(context.Background(), stmt); err != nil {
			return nil, fmt.Errorf("failed to create table: %w", err)
		}
	}
	log.Println("Successfully connected to ClickHouse and ensured tables exist.")

	return &ClickHouseWriter{conn: conn}, nil
}

func connect(cfg config.ClickHouseConfig) (driver.Conn, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		Debug: false,
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})
	if err != nil {
		return nil, err
	}

	if err := conn.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping clickhouse: %w", err)
	}

	return conn, nil
}

// Write batch-inserts one finalized snapshot's rows into the four tables.
func (w *ClickHouseWriter) Write(rows *model.SnapshotRows) error {
	ctx := context.Background()
	now := time.Now().UTC()

	batch, err := w.conn.PrepareBatch(ctx, "INSERT INTO memory_snapshots")
	if err != nil {
		return fmt.Errorf("failed to prepare snapshot batch: %w", err)
	}
	if err := batch.Append(rows.SnapshotID, rows.Timestamp, rows.DetailLevel, now); err != nil {
		return fmt.Errorf("failed to append snapshot row: %w", err)
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send snapshot batch: %w", err)
	}

	batch, err = w.conn.PrepareBatch(ctx, "INSERT INTO process_memory_snapshots")
	if err != nil {
		return fmt.Errorf("failed to prepare process snapshot batch: %w", err)
	}
	for _, p := range rows.Processes {
		if err := batch.Append(p.ID, rows.SnapshotID, p.Pid); err != nil {
			return fmt.Errorf("failed to append process snapshot row: %w", err)
		}
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send process snapshot batch: %w", err)
	}

	batch, err = w.conn.PrepareBatch(ctx, "INSERT INTO memory_snapshot_nodes")
	if err != nil {
		return fmt.Errorf("failed to prepare node batch: %w", err)
	}
	for _, n := range rows.Nodes {
		keys, values := flattenArgs(n.Args)
		if err := batch.Append(n.ID, n.ProcessSnapshotID, n.ParentID, n.Path, n.Size, n.EffectiveSize, keys, values); err != nil {
			return fmt.Errorf("failed to append node row: %w", err)
		}
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send node batch: %w", err)
	}

	batch, err = w.conn.PrepareBatch(ctx, "INSERT INTO memory_snapshot_edges")
	if err != nil {
		return fmt.Errorf("failed to prepare edge batch: %w", err)
	}
	for _, e := range rows.Edges {
		if err := batch.Append(e.ID, rows.SnapshotID, e.SourceNodeID, e.TargetNodeID, e.Importance); err != nil {
			return fmt.Errorf("failed to append edge row: %w", err)
		}
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send edge batch: %w", err)
	}

	log.Printf("Wrote snapshot %d (ts=%d) to ClickHouse: %d processes, %d nodes, %d edges",
		rows.SnapshotID, rows.Timestamp, len(rows.Processes), len(rows.Nodes), len(rows.Edges))
	return nil
}

// flattenArgs turns a node's arguments into paired key/value string arrays
// for the array columns.
func flattenArgs(args []model.Arg) ([]string, []string) {
	keys := make([]string, 0, len(args))
	values := make([]string, 0, len(args))
	for _, a := range args {
		keys = append(keys, a.Key)
		if a.Kind == model.EntryString {
			values = append(values, a.StringValue)
		} else {
			values = append(values, strconv.FormatInt(a.IntValue, 10))
		}
	}
	return keys, values
}
