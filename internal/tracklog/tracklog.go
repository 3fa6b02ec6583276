// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package tracklog records the vehicle track to a local SQLite file.
package tracklog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/relabs-tech/vehicle_telemetry/internal/telemetry"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS track (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		ts_ms       INTEGER NOT NULL,
		lat         REAL    NOT NULL,
		lon         REAL    NOT NULL,
		speed_kmh   REAL    NOT NULL,
		heading_deg REAL    NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS track_ts ON track(ts_ms)`,
}

// Point is one recorded track sample.
type Point struct {
	At         time.Time `json:"at"`
	Latitude   float64   `json:"lat"`
	Longitude  float64   `json:"lon"`
	SpeedKmh   float64   `json:"speed_kmh"`
	HeadingDeg float64   `json:"heading_deg"`
}

// Recorder appends valid fixes to the track table, at most once per
// interval and only when the position moved.
type Recorder struct {
	db       *sql.DB
	interval time.Duration

	mu      sync.Mutex
	have    bool
	lastAt  time.Time
	lastLat float64
	lastLon float64
}

// Open opens (or creates) the track database at path.
func Open(path string, interval time.Duration) (*Recorder, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("tracklog: ensure dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("tracklog: open %s: %w", path, err)
	}
	// Keep operations serialized.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("tracklog: create schema: %w", err)
		}
	}
	return &Recorder{db: db, interval: interval}, nil
}

// Close closes the database.
func (r *Recorder) Close() error {
	return r.db.Close()
}

// Record stores st if it is a valid fix that moved since the last stored
// point and at least one interval has passed. It reports whether a row
// was written.
func (r *Recorder) Record(ctx context.Context, st telemetry.State, at time.Time) (bool, error) {
	if !st.FixValid {
		return false, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.have {
		if at.Sub(r.lastAt) < r.interval {
			return false, nil
		}
		if telemetry.FloatEqual(st.Latitude, r.lastLat) && telemetry.FloatEqual(st.Longitude, r.lastLon) {
			return false, nil
		}
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO track (ts_ms, lat, lon, speed_kmh, heading_deg) VALUES (?, ?, ?, ?, ?)`,
		at.UnixMilli(), st.Latitude, st.Longitude, st.SpeedKmh, st.HeadingDeg)
	if err != nil {
		return false, fmt.Errorf("tracklog: insert: %w", err)
	}

	r.have = true
	r.lastAt = at
	r.lastLat = st.Latitude
	r.lastLon = st.Longitude
	return true, nil
}

// Count returns the number of stored points.
func (r *Recorder) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM track`).Scan(&n); err != nil {
		return 0, fmt.Errorf("tracklog: count: %w", err)
	}
	return n, nil
}

// Recent returns up to n most recent points, oldest first.
func (r *Recorder) Recent(ctx context.Context, n int) ([]Point, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT ts_ms, lat, lon, speed_kmh, heading_deg FROM track ORDER BY id DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("tracklog: query: %w", err)
	}
	defer rows.Close()

	var out []Point
	for rows.Next() {
		var p Point
		var ts int64
		if err := rows.Scan(&ts, &p.Latitude, &p.Longitude, &p.SpeedKmh, &p.HeadingDeg); err != nil {
			return nil, fmt.Errorf("tracklog: scan: %w", err)
		}
		p.At = time.UnixMilli(ts).UTC()
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("tracklog: rows: %w", err)
	}

	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}
