package dispatch

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Item is one queued outbound event
type Item struct {
	Payload    json.RawMessage `json:"payload"`
	Attempt    int             `json:"attempt"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
}

// QueueStore loads and persists the queue state. Persist must replace the
// whole list in one atomic write so a crash never leaves a half-written
// queue behind.
type QueueStore interface {
	Load() ([]Item, error)
	Persist(items []Item) error
}

type queueFileState struct {
	Items []Item `json:"items"`
}

// FileStore keeps the queue in a JSON file, written via a temp file and
// rename for atomicity
type FileStore struct {
	path string
}

// NewFileStore creates a FileStore at the given path, creating parent
// directories as needed
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("queue file path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create queue directory: %w", err)
		}
	}
	return &FileStore{path: path}, nil
}

// Load reads the persisted queue; a missing file is an empty queue
func (s *FileStore) Load() ([]Item, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return []Item{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read queue file: %w", err)
	}

	var state queueFileState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to parse queue file: %w", err)
	}
	if state.Items == nil {
		state.Items = []Item{}
	}
	return state.Items, nil
}

// Persist atomically replaces the queue file with the given items
func (s *FileStore) Persist(items []Item) error {
	data, err := json.Marshal(queueFileState{Items: items})
	if err != nil {
		return fmt.Errorf("failed to marshal queue state: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write queue file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace queue file: %w", err)
	}
	return nil
}
