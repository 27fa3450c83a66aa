// Package sync pushes local records to a hosted knowledge base and tracks
// what the remote already has via a content-hash map on disk.
package sync

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// MapFileName is the sync map file inside the base directory.
const MapFileName = "sync-map.json"

// Entry records the remote identity assigned to one content hash.
type Entry struct {
	RemoteID string `json:"remoteId"`
	LocalID  string `json:"localId"`
	SyncedAt string `json:"syncedAt"`
}

// Map tracks content hash → remote state. Keying by hash rather than local
// id means a re-saved record with identical content is recognized as
// already pushed, and an edited copy naturally re-qualifies. A missing file
// means nothing has been pushed yet.
type Map struct {
	path    string
	Entries map[string]Entry `json:"entries"`
}

// LoadMap reads the sync map from baseDir, returning an empty map when the
// file does not exist.
func LoadMap(baseDir string) (*Map, error) {
	m := &Map{
		path:    filepath.Join(baseDir, MapFileName),
		Entries: make(map[string]Entry),
	}
	data, err := os.ReadFile(m.path)
	if errors.Is(err, os.ErrNotExist) {
		return m, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading sync map: %w", err)
	}
	if err := json.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("parsing sync map %s: %w", m.path, err)
	}
	if m.Entries == nil {
		m.Entries = make(map[string]Entry)
	}
	return m, nil
}

// Save writes the whole map back to disk.
func (m *Map) Save() error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(m.path, data, 0o600); err != nil {
		return fmt.Errorf("writing sync map: %w", err)
	}
	return nil
}
