// Package storage persists the agent's local state: published-post
// markers, in-flight attempt markers, and the daily posted counter.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// DayKey formats t as the day bucket used by the daily counter.
func DayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// Store wraps the SQLite database holding local agent state.
type Store struct {
	db *sql.DB
}

// Open opens (and if needed creates) the state database. In-flight
// markers from a previous run are cleared: a crash mid-attempt must not
// wedge a post forever.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create state directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open state database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.initTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize tables: %w", err)
	}
	if _, err := db.Exec("DELETE FROM in_flight"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to clear stale in-flight markers: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initTables() error {
	tables := []string{
		`CREATE TABLE IF NOT EXISTS published_posts (
			post_id TEXT PRIMARY KEY,
			platform TEXT NOT NULL,
			published_at DATETIME NOT NULL,
			confirmed INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS in_flight (
			post_id TEXT PRIMARY KEY,
			started_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS daily_counts (
			day TEXT PRIMARY KEY,
			count INTEGER NOT NULL DEFAULT 0
		)`,
	}
	for _, stmt := range tables {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// MarkInFlight records that an attempt for the post is running. Returns
// models-level duplicate semantics via the primary key: a second marker
// for the same post fails.
func (s *Store) MarkInFlight(ctx context.Context, postID string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO in_flight (post_id, started_at) VALUES (?, ?)",
		postID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to mark post %s in flight: %w", postID, err)
	}
	return nil
}

// ClearInFlight removes the attempt marker so a later pass may retry.
func (s *Store) ClearInFlight(ctx context.Context, postID string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM in_flight WHERE post_id = ?", postID)
	if err != nil {
		return fmt.Errorf("failed to clear in-flight marker for %s: %w", postID, err)
	}
	return nil
}

// MarkPublished records a successful publish and drops the in-flight
// marker. confirmed records whether the backend acknowledged the
// confirmation call; false means the server still believes the post is
// pending (visible desync).
func (s *Store) MarkPublished(ctx context.Context, postID, platform string, confirmed bool) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin publish transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO published_posts (post_id, platform, published_at, confirmed)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(post_id) DO UPDATE SET confirmed = excluded.confirmed`,
		postID, platform, time.Now().UTC(), boolToInt(confirmed)); err != nil {
		return fmt.Errorf("failed to mark post %s published: %w", postID, err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM in_flight WHERE post_id = ?", postID); err != nil {
		return fmt.Errorf("failed to clear in-flight marker for %s: %w", postID, err)
	}
	return tx.Commit()
}

// IsPublishedOrInFlight reports whether the post already has a publish
// marker or a running attempt. Consulted before every attempt so that
// re-reading a due, not-yet-confirmed post from the server cannot
// double-post.
func (s *Store) IsPublishedOrInFlight(ctx context.Context, postID string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT (SELECT COUNT(*) FROM published_posts WHERE post_id = ?)
		      + (SELECT COUNT(*) FROM in_flight WHERE post_id = ?)`,
		postID, postID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check markers for %s: %w", postID, err)
	}
	return n > 0, nil
}

// UnconfirmedCount returns how many published posts never got a
// successful confirmation call (local/server desync).
func (s *Store) UnconfirmedCount(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM published_posts WHERE confirmed = 0").Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count unconfirmed posts: %w", err)
	}
	return n, nil
}

// IncrementDaily bumps the posted counter for the given day and returns
// the new value.
func (s *Store) IncrementDaily(ctx context.Context, day string) (int, error) {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO daily_counts (day, count) VALUES (?, 1)
		 ON CONFLICT(day) DO UPDATE SET count = count + 1`, day)
	if err != nil {
		return 0, fmt.Errorf("failed to increment daily count for %s: %w", day, err)
	}
	return s.DailyCount(ctx, day)
}

// DailyCount returns the posted counter for the given day.
func (s *Store) DailyCount(ctx context.Context, day string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT count FROM daily_counts WHERE day = ?", day).Scan(&n)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read daily count for %s: %w", day, err)
	}
	return n, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
