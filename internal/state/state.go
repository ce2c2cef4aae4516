// Package state keeps the durable set of processed item identifiers. An
// identifier present in the store is never processed again, even across
// restarts.
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kalambet/vaultflow/internal/vault"
)

const stateFile = "planning_state.json"

// Record describes one processed item.
type Record struct {
	Timestamp string  `json:"timestamp"`
	Plan      string  `json:"plan"`
	Approval  *string `json:"approval"`
}

type fileData struct {
	Processed map[string]Record `json:"processed"`
}

// Store is the JSON-file-backed processed-item map. It is owned by a single
// engine loop; writes persist synchronously before returning.
type Store struct {
	path string
	data fileData
}

// Open loads the state file under the vault's Logs folder. Missing or
// corrupt backing data starts from an empty state rather than failing.
func Open(vaultRoot string) (*Store, error) {
	dir := filepath.Join(vaultRoot, vault.DirLogs)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating logs folder: %w", err)
	}

	s := &Store{
		path: filepath.Join(dir, stateFile),
		data: fileData{Processed: map[string]Record{}},
	}

	raw, err := os.ReadFile(s.path)
	if err != nil {
		return s, nil
	}
	var loaded fileData
	if err := json.Unmarshal(raw, &loaded); err != nil || loaded.Processed == nil {
		return s, nil
	}
	s.data = loaded
	return s, nil
}

// IsProcessed reports whether the item identifier has already been handled.
func (s *Store) IsProcessed(id string) bool {
	_, ok := s.data.Processed[id]
	return ok
}

// MarkProcessed records the item and persists the store before returning.
func (s *Store) MarkProcessed(id, planRef, approvalRef string, ts time.Time) error {
	rec := Record{
		Timestamp: ts.UTC().Format(time.RFC3339),
		Plan:      planRef,
	}
	if approvalRef != "" {
		rec.Approval = &approvalRef
	}
	s.data.Processed[id] = rec

	raw, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding state: %w", err)
	}
	if err := vault.WriteFileAtomic(s.path, raw); err != nil {
		return fmt.Errorf("persisting state: %w", err)
	}
	return nil
}

// Count returns the number of processed items.
func (s *Store) Count() int {
	return len(s.data.Processed)
}
