// Package audit appends structured records of every pipeline outcome to a
// date-partitioned JSONL stream under the vault's Logs folder. Records are
// never rewritten or deleted.
package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/kalambet/vaultflow/internal/vault"
)

// Fields carries the event-specific payload of an entry.
type Fields map[string]any

// Log writes one JSON object per line to Logs/YYYY-MM-DD.jsonl. Each Log
// value stamps its entries with a short run identifier so a batch can be
// traced through the stream.
type Log struct {
	dir   string
	runID string
	now   func() time.Time
}

// New creates a Log rooted at the vault's Logs folder with a fresh run id.
func New(vaultRoot string) *Log {
	return &Log{
		dir:   filepath.Join(vaultRoot, vault.DirLogs),
		runID: uuid.New().String()[:8],
		now:   time.Now,
	}
}

// RunID returns the identifier stamped on this log's entries.
func (l *Log) RunID() string { return l.runID }

// Write appends one entry. The timestamp, event name, and run id are set
// here; fields must not use those keys.
func (l *Log) Write(event string, fields Fields) error {
	ts := l.now().UTC()
	entry := make(map[string]any, len(fields)+3)
	for k, v := range fields {
		entry[k] = v
	}
	entry["timestamp"] = ts.Format(time.RFC3339)
	entry["event"] = event
	entry["run"] = l.runID

	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encoding audit entry: %w", err)
	}

	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return fmt.Errorf("creating logs folder: %w", err)
	}
	path := filepath.Join(l.dir, ts.Format("2006-01-02")+".jsonl")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening audit log: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("appending audit entry: %w", err)
	}
	return nil
}

// Tail returns up to n of today's most recent entries, oldest first.
// A missing log file yields an empty slice.
func (l *Log) Tail(n int) ([]map[string]any, error) {
	path := filepath.Join(l.dir, l.now().UTC().Format("2006-01-02")+".jsonl")
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening audit log: %w", err)
	}
	defer f.Close()

	var entries []map[string]any
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		var entry map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading audit log: %w", err)
	}

	if n > 0 && len(entries) > n {
		entries = entries[len(entries)-n:]
	}
	return entries, nil
}
