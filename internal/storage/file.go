package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// FileStore keeps a bounded snapshot history in a single JSON file.
type FileStore struct {
	mu      sync.RWMutex
	path    string
	limit   int
	nextID  int64
	history []Snapshot
}

// NewFileStore creates a store and loads existing history if present.
func NewFileStore(path string, limit int) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure data directory: %w", err)
	}

	s := &FileStore{path: path, limit: limit}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Save appends a snapshot and persists the history.
func (s *FileStore) Save(snap Snapshot) (Snapshot, error) {
	snap, err := prepare(snap)
	if err != nil {
		return Snapshot{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	snap.ID = s.nextID
	s.history = append(s.history, snap)
	if s.limit > 0 && len(s.history) > s.limit {
		s.history = append([]Snapshot(nil), s.history[len(s.history)-s.limit:]...)
	}
	if err := s.persist(); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

// Latest returns the newest snapshot of a view. An empty slug matches any.
func (s *FileStore) Latest(view, slug string) (Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := len(s.history) - 1; i >= 0; i-- {
		snap := s.history[i]
		if snap.View == view && (slug == "" || snap.Slug == slug) {
			return snap, nil
		}
	}
	return Snapshot{}, ErrNotFound
}

// List returns up to limit snapshots, newest first. limit <= 0 returns all.
func (s *FileStore) List(limit int) ([]Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := len(s.history)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]Snapshot, 0, n)
	for i := len(s.history) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, s.history[i])
	}
	return out, nil
}

// Close is a no-op; every Save is already on disk.
func (s *FileStore) Close() error { return nil }

func (s *FileStore) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.history = []Snapshot{}
			return nil
		}
		return fmt.Errorf("read snapshots: %w", err)
	}

	if len(data) == 0 {
		s.history = []Snapshot{}
		return nil
	}

	var entries []Snapshot
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("parse snapshots: %w", err)
	}
	for _, entry := range entries {
		if entry.ID > s.nextID {
			s.nextID = entry.ID
		}
	}
	s.history = entries
	return nil
}

func (s *FileStore) persist() error {
	bytes, err := json.Marshal(s.history)
	if err != nil {
		return fmt.Errorf("encode snapshots: %w", err)
	}

	tmpPath := fmt.Sprintf("%s.%d.tmp", s.path, time.Now().UnixNano())
	if err := os.WriteFile(tmpPath, bytes, 0o644); err != nil {
		return fmt.Errorf("write temp snapshots: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("replace snapshots file: %w", err)
	}
	return nil
}
