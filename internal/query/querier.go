package query

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2"

	"MemSpectra/internal/config"
)

// SnapshotSummary is one snapshot as listed by the API.
type SnapshotSummary struct {
	SnapshotID  uint32 `json:"snapshot_id"`
	Timestamp   int64  `json:"timestamp"`
	DetailLevel string `json:"detail_level"`
}

// NodeInfo is one node row of a snapshot as returned by the API.
type NodeInfo struct {
	NodeID            uint32  `json:"node_id"`
	ProcessSnapshotID uint32  `json:"process_snapshot_id"`
	Pid               uint32  `json:"pid"`
	ParentNodeID      *uint32 `json:"parent_node_id,omitempty"`
	Path              string  `json:"path"`
	Size              *int64  `json:"size,omitempty"`
	EffectiveSize     *int64  `json:"effective_size,omitempty"`
}

// Querier defines the interface for querying imported snapshot data.
type Querier interface {
	ListSnapshots(ctx context.Context, limit int) ([]SnapshotSummary, error)
	SnapshotNodes(ctx context.Context, snapshotID uint32) ([]NodeInfo, error)
}

// clickhouseQuerier implements the Querier interface for ClickHouse.
type clickhouseQuerier struct {
	conn clickhouse.Conn
}

// NewClickHouseQuerier creates a new querier for ClickHouse.
func NewClickHouseQuerier(cfg config.ClickHouseConfig) (Querier, error) {
	conn, err := connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to clickhouse: %w", err)
	}
	return &clickhouseQuerier{conn: conn}, nil
}

func connect(cfg config.ClickHouseConfig) (clickhouse.Conn, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
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

// ListSnapshots returns the most recent snapshots, newest first.
func (q *clickhouseQuerier) ListSnapshots(ctx context.Context, limit int) ([]SnapshotSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := q.conn.Query(ctx, `
		SELECT SnapshotID, Timestamp, DetailLevel
		FROM memory_snapshots
		ORDER BY Timestamp DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	var out []SnapshotSummary
	for rows.Next() {
		var s SnapshotSummary
		if err := rows.Scan(&s.SnapshotID, &s.Timestamp, &s.DetailLevel); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot row: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// SnapshotNodes returns every node row of one snapshot, with its owning pid.
func (q *clickhouseQuerier) SnapshotNodes(ctx context.Context, snapshotID uint32) ([]NodeInfo, error) {
	rows, err := q.conn.Query(ctx, `
		SELECT n.NodeID, n.ProcessSnapshotID, p.Pid, n.ParentNodeID, n.Path, n.Size, n.EffectiveSize
		FROM memory_snapshot_nodes AS n
		INNER JOIN process_memory_snapshots AS p
			ON n.ProcessSnapshotID = p.ProcessSnapshotID
		WHERE p.SnapshotID = ?
		ORDER BY n.NodeID
	`, snapshotID)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	var out []NodeInfo
	for rows.Next() {
		var n NodeInfo
		if err := rows.Scan(&n.NodeID, &n.ProcessSnapshotID, &n.Pid, &n.ParentNodeID, &n.Path, &n.Size, &n.EffectiveSize); err != nil {
			return nil, fmt.Errorf("failed to scan node row: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}
