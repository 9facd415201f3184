// Package db persists the reading audit trail in SQLite. Every decoded frame
// can be recorded here; the ledger itself lives in the JSON documents, this
// store exists for diagnostics and reporting.
package db

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

type DB struct {
	*sql.DB
	path string
}

// NewDB opens (creating if needed) the SQLite database at path. Call
// MigrateUp before first use.
func NewDB(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// Single connection avoids SQLITE_BUSY between the acquisition loop and
	// HTTP readers.
	sqlDB.SetMaxOpenConns(1)
	return &DB{DB: sqlDB, path: path}, nil
}

// Path reports the database file the connection was opened on.
func (db *DB) Path() string { return db.path }

// Reading is one persisted scale frame.
type Reading struct {
	ID        int64     `json:"id"`
	WeightKg  float64   `json:"weight_kg"`
	Valid     bool      `json:"valid"`
	Protocol  string    `json:"protocol"`
	RawHex    string    `json:"raw_hex"`
	Timestamp time.Time `json:"timestamp"`
}

// RecordReading inserts one frame into the audit trail. Invalid frames are
// recorded with weight 0 so decode failures stay visible.
func (db *DB) RecordReading(weightKg float64, valid bool, protocol, rawHex string) error {
	_, err := db.Exec(
		`INSERT INTO readings (weight_kg, valid, protocol, raw_hex) VALUES (?, ?, ?, ?)`,
		weightKg, valid, protocol, rawHex,
	)
	if err != nil {
		return fmt.Errorf("insert reading: %w", err)
	}
	return nil
}

// Readings returns the most recent readings, newest first. limit <= 0 selects
// 100.
func (db *DB) Readings(limit int) ([]Reading, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.Query(
		`SELECT id, weight_kg, valid, protocol, raw_hex, timestamp
		 FROM readings ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query readings: %w", err)
	}
	defer rows.Close()

	var out []Reading
	for rows.Next() {
		var r Reading
		var ts string
		if err := rows.Scan(&r.ID, &r.WeightKg, &r.Valid, &r.Protocol, &r.RawHex, &ts); err != nil {
			return nil, fmt.Errorf("scan reading: %w", err)
		}
		r.Timestamp = parseSQLiteTime(ts)
		out = append(out, r)
	}
	return out, rows.Err()
}

// DayStats aggregates one day of readings.
type DayStats struct {
	Day     string  `json:"day"`
	Count   int64   `json:"count"`
	Invalid int64   `json:"invalid"`
	AvgKg   float64 `json:"avg_kg"`
	MinKg   float64 `json:"min_kg"`
	MaxKg   float64 `json:"max_kg"`
}

// ReadingStats aggregates readings per day over the last days days. Weight
// aggregates consider valid readings only. days <= 0 selects 7.
func (db *DB) ReadingStats(days int) ([]DayStats, error) {
	if days <= 0 {
		days = 7
	}
	rows, err := db.Query(
		`SELECT date(timestamp) AS day,
		        COUNT(*),
		        SUM(CASE WHEN valid THEN 0 ELSE 1 END),
		        COALESCE(AVG(CASE WHEN valid THEN weight_kg END), 0),
		        COALESCE(MIN(CASE WHEN valid THEN weight_kg END), 0),
		        COALESCE(MAX(CASE WHEN valid THEN weight_kg END), 0)
		 FROM readings
		 WHERE timestamp >= datetime('now', ?)
		 GROUP BY day ORDER BY day`,
		fmt.Sprintf("-%d days", days))
	if err != nil {
		return nil, fmt.Errorf("query reading stats: %w", err)
	}
	defer rows.Close()

	var out []DayStats
	for rows.Next() {
		var s DayStats
		if err := rows.Scan(&s.Day, &s.Count, &s.Invalid, &s.AvgKg, &s.MinKg, &s.MaxKg); err != nil {
			return nil, fmt.Errorf("scan reading stats: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// parseSQLiteTime parses the DATETIME text SQLite produces for
// CURRENT_TIMESTAMP. An unparseable value yields the zero time rather than an
// error; the row data still matters.
func parseSQLiteTime(s string) time.Time {
	for _, layout := range []string{"2006-01-02 15:04:05", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
