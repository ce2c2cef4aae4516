// Package vault manages the directory-based queue layout. Moving a document
// between stage folders IS the state transition, so every move here is a
// rename and every write lands complete before it becomes visible.
package vault

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Stage folders under the vault root.
const (
	DirInbound  = "Needs_Action"
	DirPlans    = "Plans"
	DirPending  = "Pending_Approval"
	DirApproved = "Approved"
	DirRejected = "Rejected"
	DirArchive  = "Done"
	DirLogs     = "Logs"
)

var stageDirs = []string{
	DirInbound, DirPlans, DirPending, DirApproved, DirRejected, DirArchive, DirLogs,
}

// Vault is a rooted directory queue.
type Vault struct {
	Root string
}

// Prepare resolves root, creates it if absent, and ensures every stage
// folder exists. A root that cannot be created is a fatal startup error.
func Prepare(root string) (*Vault, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving vault path: %w", err)
	}
	for _, dir := range stageDirs {
		if err := os.MkdirAll(filepath.Join(abs, dir), 0o755); err != nil {
			return nil, fmt.Errorf("creating vault folder %s: %w", dir, err)
		}
	}
	return &Vault{Root: abs}, nil
}

// Require opens an existing vault root and refuses to create one: a typo in
// the vault path must abort, not silently spawn an empty vault. Stage
// folders missing under an existing root are still created.
func Require(root string) (*Vault, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving vault path: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("vault root %s does not exist: %w", abs, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("vault root %s is not a directory", abs)
	}
	return Prepare(abs)
}

// Dir returns the absolute path of a stage folder.
func (v *Vault) Dir(name string) string {
	return filepath.Join(v.Root, name)
}

// Rel returns path relative to the vault root, falling back to the input
// when it is outside the vault.
func (v *Vault) Rel(path string) string {
	rel, err := filepath.Rel(v.Root, path)
	if err != nil {
		return path
	}
	return filepath.ToSlash(rel)
}

// ListMarkdown returns the *.md files in a stage folder whose names start
// with prefix (empty prefix matches all), oldest first by modification
// time. Placeholder and hidden files are skipped.
func (v *Vault) ListMarkdown(dir, prefix string) ([]string, error) {
	entries, err := os.ReadDir(v.Dir(dir))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", dir, err)
	}

	type candidate struct {
		path  string
		mtime int64
	}
	var found []candidate
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".md") || strings.HasPrefix(name, ".") {
			continue
		}
		if prefix != "" && !strings.HasPrefix(name, prefix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		found = append(found, candidate{
			path:  filepath.Join(v.Dir(dir), name),
			mtime: info.ModTime().UnixNano(),
		})
	}

	sort.Slice(found, func(i, j int) bool {
		if found[i].mtime != found[j].mtime {
			return found[i].mtime < found[j].mtime
		}
		return found[i].path < found[j].path
	})

	paths := make([]string, len(found))
	for i, c := range found {
		paths[i] = c.path
	}
	return paths, nil
}

// UniquePath disambiguates path so an existing file is never overwritten:
// name.md, name_1.md, name_2.md, ...
func UniquePath(path string) string {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return path
	}
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s_%d%s", stem, i, ext)
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate
		}
	}
}

// WriteFileAtomic writes data to a temp file in the target directory, syncs
// it, then renames it into place, so a partially written document is never
// visible under its final name.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", path, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("renaming into %s: %w", path, err)
	}
	return nil
}

// Archive moves src into the Done folder with a collision-safe name and
// returns the destination path. Originals are never deleted.
func (v *Vault) Archive(src string) (string, error) {
	dest := UniquePath(filepath.Join(v.Dir(DirArchive), filepath.Base(src)))
	if err := os.Rename(src, dest); err != nil {
		return "", fmt.Errorf("archiving %s: %w", filepath.Base(src), err)
	}
	return dest, nil
}
