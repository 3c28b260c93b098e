package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"lora-console/pkg/model"
)

const snapshotSchema = `
CREATE TABLE IF NOT EXISTS node_reports(
	position INTEGER PRIMARY KEY,
	id TEXT NOT NULL,
	latitude REAL NOT NULL,
	longitude REAL NOT NULL,
	fport INTEGER NOT NULL,
	reported_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS snapshot_meta(
	k TEXT PRIMARY KEY,
	v INTEGER NOT NULL
);`

// SnapshotCache persists the last good report snapshot in a local sqlite file
// so a restarted console can serve nodes before its first poll completes.
type SnapshotCache struct {
	db *sql.DB
}

// OpenSnapshotCache opens (and creates if needed) the cache at path.
func OpenSnapshotCache(ctx context.Context, path string) (*SnapshotCache, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("snapshot cache mkdir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("snapshot cache open: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("snapshot cache ping: %w", err)
	}
	if _, err := db.ExecContext(ctx, snapshotSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("snapshot cache schema: %w", err)
	}
	return &SnapshotCache{db: db}, nil
}

// Save replaces the cached snapshot in one transaction.
func (c *SnapshotCache) Save(ctx context.Context, snap Snapshot) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM node_reports`); err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO node_reports(position, id, latitude, longitude, fport, reported_at) VALUES(?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i, r := range snap.Reports {
		if _, err := stmt.ExecContext(ctx, i, r.ID, r.Latitude, r.Longitude, r.Port, r.ReportedAt.UnixNano()); err != nil {
			return fmt.Errorf("insert report %s: %w", r.ID, err)
		}
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO snapshot_meta(k, v) VALUES('fetched_at', ?) ON CONFLICT(k) DO UPDATE SET v=excluded.v`, snap.FetchedAt.UnixNano()); err != nil {
		return err
	}
	return tx.Commit()
}

// Load returns the cached snapshot; ok is false when nothing was saved yet.
func (c *SnapshotCache) Load(ctx context.Context) (Snapshot, bool, error) {
	var fetched int64
	err := c.db.QueryRowContext(ctx, `SELECT v FROM snapshot_meta WHERE k='fetched_at'`).Scan(&fetched)
	if err == sql.ErrNoRows {
		return Snapshot{}, false, nil
	}
	if err != nil {
		return Snapshot{}, false, err
	}
	rows, err := c.db.QueryContext(ctx, `SELECT id, latitude, longitude, fport, reported_at FROM node_reports ORDER BY position`)
	if err != nil {
		return Snapshot{}, false, err
	}
	defer rows.Close()
	snap := Snapshot{FetchedAt: time.Unix(0, fetched).UTC()}
	for rows.Next() {
		var r model.NodeReport
		var ts int64
		if err := rows.Scan(&r.ID, &r.Latitude, &r.Longitude, &r.Port, &ts); err != nil {
			return Snapshot{}, false, err
		}
		r.ReportedAt = time.Unix(0, ts).UTC()
		snap.Reports = append(snap.Reports, r)
	}
	return snap, true, rows.Err()
}

func (c *SnapshotCache) Close() error {
	return c.db.Close()
}
