package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore keeps snapshots in a sqlite database.
type SQLiteStore struct {
	db    *sql.DB
	limit int
}

// NewSQLiteStore opens (and if needed creates) the database at path.
func NewSQLiteStore(path string, limit int) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure data directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("error open db: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("error ping db: %w", err)
	}

	_, err = db.Exec(`
	CREATE TABLE IF NOT EXISTS snapshots (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		view TEXT NOT NULL,
		slug TEXT NOT NULL DEFAULT '',
		from_tick INTEGER,
		to_tick INTEGER,
		fetched_at TEXT NOT NULL,
		payload TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS snapshots_view_slug ON snapshots(view, slug, id);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("error creating snapshots table: %w", err)
	}

	return &SQLiteStore{db: db, limit: limit}, nil
}

// Save inserts a snapshot and prunes rows beyond the history limit.
func (s *SQLiteStore) Save(snap Snapshot) (Snapshot, error) {
	snap, err := prepare(snap)
	if err != nil {
		return Snapshot{}, err
	}

	res, err := s.db.Exec(`
		INSERT INTO snapshots(view, slug, from_tick, to_tick, fetched_at, payload)
		VALUES(?, ?, ?, ?, ?, ?)
	`, snap.View, snap.Slug, nullInt(snap.FromTick), nullInt(snap.ToTick),
		snap.FetchedAt.UTC().Format(time.RFC3339Nano), string(snap.Payload))
	if err != nil {
		return Snapshot{}, fmt.Errorf("insert snapshot: %w", err)
	}
	if snap.ID, err = res.LastInsertId(); err != nil {
		return Snapshot{}, fmt.Errorf("insert snapshot: %w", err)
	}

	if s.limit > 0 {
		_, err = s.db.Exec(`
			DELETE FROM snapshots
			WHERE id NOT IN (SELECT id FROM snapshots ORDER BY id DESC LIMIT ?)
		`, s.limit)
		if err != nil {
			return Snapshot{}, fmt.Errorf("prune snapshots: %w", err)
		}
	}
	return snap, nil
}

// Latest returns the newest snapshot of a view. An empty slug matches any.
func (s *SQLiteStore) Latest(view, slug string) (Snapshot, error) {
	row := s.db.QueryRow(`
		SELECT id, view, slug, from_tick, to_tick, fetched_at, payload
		FROM snapshots
		WHERE view = ? AND (? = '' OR slug = ?)
		ORDER BY id DESC
		LIMIT 1
	`, view, slug, slug)
	snap, err := scanSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, ErrNotFound
	}
	return snap, err
}

// List returns up to limit snapshots, newest first. limit <= 0 returns all.
func (s *SQLiteStore) List(limit int) ([]Snapshot, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.Query(`
		SELECT id, view, slug, from_tick, to_tick, fetched_at, payload
		FROM snapshots
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snaps []Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, snap)
	}
	return snaps, rows.Err()
}

// Close releases the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row scanner) (Snapshot, error) {
	var (
		snap     Snapshot
		from, to sql.NullInt64
		fetched  string
		payload  string
	)
	if err := row.Scan(&snap.ID, &snap.View, &snap.Slug, &from, &to, &fetched, &payload); err != nil {
		return Snapshot{}, err
	}
	ts, err := time.Parse(time.RFC3339Nano, fetched)
	if err != nil {
		return Snapshot{}, fmt.Errorf("parse fetched_at: %w", err)
	}
	snap.FetchedAt = ts
	snap.FromTick = intFromNull(from)
	snap.ToTick = intFromNull(to)
	snap.Payload = []byte(payload)
	return snap, nil
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func intFromNull(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}
