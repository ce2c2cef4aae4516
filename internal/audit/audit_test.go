package audit

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kalambet/vaultflow/internal/vault"
)

func TestWriteAppendsOneLinePerEntry(t *testing.T) {
	root := t.TempDir()
	l := New(root)

	if err := l.Write("item_processed", Fields{"filename": "a.md", "result": "success"}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := l.Write("item_error", Fields{"filename": "b.md", "error": "boom"}); err != nil {
		t.Fatalf("Write: %v", err)
	}

	day := time.Now().UTC().Format("2006-01-02")
	raw, err := os.ReadFile(filepath.Join(root, vault.DirLogs, day+".jsonl"))
	if err != nil {
		t.Fatalf("reading log: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	if len(lines) != 2 {
		t.Fatalf("log has %d lines, want 2", len(lines))
	}
	if !strings.Contains(lines[0], `"event":"item_processed"`) {
		t.Errorf("first line = %s", lines[0])
	}
	if !strings.Contains(lines[1], `"error":"boom"`) {
		t.Errorf("second line = %s", lines[1])
	}
	for _, line := range lines {
		if !strings.Contains(line, `"run":"`+l.RunID()+`"`) {
			t.Errorf("line missing run id: %s", line)
		}
	}
}

func TestTail(t *testing.T) {
	root := t.TempDir()
	l := New(root)

	for _, name := range []string{"a.md", "b.md", "c.md"} {
		if err := l.Write("item_processed", Fields{"filename": name}); err != nil {
			t.Fatal(err)
		}
	}

	entries, err := l.Tail(2)
	if err != nil {
		t.Fatalf("Tail: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Tail returned %d entries, want 2", len(entries))
	}
	if entries[0]["filename"] != "b.md" || entries[1]["filename"] != "c.md" {
		t.Errorf("Tail = %v, want most recent two oldest-first", entries)
	}
}

func TestTailNoFile(t *testing.T) {
	l := New(t.TempDir())
	entries, err := l.Tail(10)
	if err != nil {
		t.Fatalf("Tail: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("Tail = %v, want empty", entries)
	}
}
