// Package report renders the dashboard projection: live per-stage counts
// plus recent activity. The dashboard is fully regenerated after every
// batch and is never a source of truth.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kalambet/vaultflow/internal/vault"
)

const dashboardFile = "Dashboard.md"

// Summary holds the per-stage document counts and recent activity lines.
type Summary struct {
	UpdatedAt time.Time `json:"updated_at"`
	Inbound   int       `json:"needs_action"`
	Plans     int       `json:"plans"`
	Pending   int       `json:"pending_approval"`
	Approved  int       `json:"approved"`
	Rejected  int       `json:"rejected"`
	Done      int       `json:"done"`
	Recent    []string  `json:"recent"`
}

// Collect counts markdown documents in every stage folder.
func Collect(v *vault.Vault, recent []string) (Summary, error) {
	s := Summary{UpdatedAt: time.Now().UTC(), Recent: lastN(recent, 10)}
	counts := []struct {
		dir string
		dst *int
	}{
		{vault.DirInbound, &s.Inbound},
		{vault.DirPlans, &s.Plans},
		{vault.DirPending, &s.Pending},
		{vault.DirApproved, &s.Approved},
		{vault.DirRejected, &s.Rejected},
		{vault.DirArchive, &s.Done},
	}
	for _, c := range counts {
		files, err := v.ListMarkdown(c.dir, "")
		if err != nil {
			return Summary{}, err
		}
		*c.dst = len(files)
	}
	return s, nil
}

// Render produces the dashboard markdown.
func Render(s Summary) string {
	activity := "_No recent activity this session._"
	if len(s.Recent) > 0 {
		lines := make([]string, len(s.Recent))
		for i, a := range s.Recent {
			lines[i] = "- " + a
		}
		activity = strings.Join(lines, "\n")
	}

	return fmt.Sprintf(`---
updated: %s
---

# Vault Dashboard

## Live Vault Counts

| Folder             | Files |
|--------------------|-------|
| 📥 Needs Action    | %d     |
| 📋 Plans           | %d     |
| ⏳ Pending Approval | %d     |
| ✅ Approved        | %d     |
| ❌ Rejected        | %d     |
| 🗂 Done            | %d     |

## Recent Activity

%s

---
*Updated by the workflow engine — %s*
`,
		s.UpdatedAt.Format(time.RFC3339),
		s.Inbound, s.Plans, s.Pending, s.Approved, s.Rejected, s.Done,
		activity,
		s.UpdatedAt.Format("2006-01-02 15:04 UTC"))
}

// Write regenerates Dashboard.md at the vault root and returns the summary
// it rendered.
func Write(v *vault.Vault, recent []string) (Summary, error) {
	s, err := Collect(v, recent)
	if err != nil {
		return Summary{}, fmt.Errorf("collecting summary: %w", err)
	}
	path := filepath.Join(v.Root, dashboardFile)
	if err := os.WriteFile(path, []byte(Render(s)), 0o644); err != nil {
		return Summary{}, fmt.Errorf("writing dashboard: %w", err)
	}
	return s, nil
}

// ReadDashboard returns the current dashboard markdown, or "" when it has
// not been generated yet.
func ReadDashboard(v *vault.Vault) string {
	raw, err := os.ReadFile(filepath.Join(v.Root, dashboardFile))
	if err != nil {
		return ""
	}
	return string(raw)
}

func lastN(items []string, n int) []string {
	if len(items) <= n {
		return items
	}
	return items[len(items)-n:]
}
