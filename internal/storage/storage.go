package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when no snapshot matches a lookup.
var ErrNotFound = errors.New("snapshot not found")

// Snapshot is a gameserver payload as it was fetched for a view.
type Snapshot struct {
	ID        int64           `json:"id"`
	View      string          `json:"view"`
	Slug      string          `json:"slug,omitempty"`
	FromTick  *int            `json:"from_tick,omitempty"`
	ToTick    *int            `json:"to_tick,omitempty"`
	FetchedAt time.Time       `json:"fetched_at"`
	Payload   json.RawMessage `json:"payload"`
}

// Store persists snapshots. List returns the newest first.
type Store interface {
	Save(snap Snapshot) (Snapshot, error)
	Latest(view, slug string) (Snapshot, error)
	List(limit int) ([]Snapshot, error)
	Close() error
}

// Drivers accepted by Open.
const (
	DriverFile   = "file"
	DriverSQLite = "sqlite"
)

// Open creates the store for driver. historyLimit bounds the number of kept snapshots.
func Open(driver, path string, historyLimit int) (Store, error) {
	switch driver {
	case "", DriverFile:
		return NewFileStore(path, historyLimit)
	case DriverSQLite:
		return NewSQLiteStore(path, historyLimit)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", driver)
	}
}

func prepare(snap Snapshot) (Snapshot, error) {
	if snap.View == "" {
		return Snapshot{}, errors.New("snapshot view is required")
	}
	if !json.Valid(snap.Payload) {
		return Snapshot{}, errors.New("snapshot payload is not JSON")
	}
	if snap.FetchedAt.IsZero() {
		snap.FetchedAt = time.Now().UTC()
	}
	return snap, nil
}
