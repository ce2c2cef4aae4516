package engine

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kalambet/vaultflow/internal/audit"
	"github.com/kalambet/vaultflow/internal/document"
	"github.com/kalambet/vaultflow/internal/state"
	"github.com/kalambet/vaultflow/internal/vault"
)

func newTestEngine(t *testing.T) (*Engine, *vault.Vault) {
	t.Helper()
	v, err := vault.Prepare(t.TempDir())
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	st, err := state.Open(v.Root)
	if err != nil {
		t.Fatalf("state.Open: %v", err)
	}
	return New(v, st, audit.New(v.Root)), v
}

func dropItem(t *testing.T, v *vault.Vault, name, content string) string {
	t.Helper()
	path := filepath.Join(v.Dir(vault.DirInbound), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing item: %v", err)
	}
	return path
}

func listNames(t *testing.T, v *vault.Vault, dir string) []string {
	t.Helper()
	paths, err := v.ListMarkdown(dir, "")
	if err != nil {
		t.Fatalf("ListMarkdown(%s): %v", dir, err)
	}
	names := make([]string, len(paths))
	for i, p := range paths {
		names[i] = filepath.Base(p)
	}
	return names
}

func TestMailItemWithInvoiceCreatesPlanAndApproval(t *testing.T) {
	e, v := newTestEngine(t)
	dropItem(t, v, "mail_001.md",
		"---\nsource: mail\nfrom: Alice <alice@example.com>\nsubject: Invoice question\n---\n\nPlease check the attached invoice.")

	res, err := e.RunOnce()
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if res.Processed != 1 || res.Failed != 0 {
		t.Fatalf("result = %+v", res)
	}

	plans := listNames(t, v, vault.DirPlans)
	if len(plans) != 1 {
		t.Fatalf("plans = %v, want exactly one", plans)
	}
	raw, _ := os.ReadFile(filepath.Join(v.Dir(vault.DirPlans), plans[0]))
	fm, _ := document.Parse(string(raw))
	if fm.String("status") != "planned" {
		t.Errorf("plan status = %q", fm.String("status"))
	}
	if fm.String("risk") != "medium" {
		t.Errorf("risk = %q, want medium", fm.String("risk"))
	}
	if fm.String("priority") != "medium" {
		t.Errorf("priority = %q, want medium", fm.String("priority"))
	}
	// Mail is an external-communication origin, so approval is required
	// regardless of keywords.
	if fm.String("requires_approval") != "true" {
		t.Errorf("requires_approval = %q", fm.String("requires_approval"))
	}

	approvals := listNames(t, v, vault.DirPending)
	if len(approvals) != 1 {
		t.Fatalf("approvals = %v, want exactly one", approvals)
	}
	araw, _ := os.ReadFile(filepath.Join(v.Dir(vault.DirPending), approvals[0]))
	afm, _ := document.Parse(string(araw))
	if afm.String("action") != "send_email" {
		t.Errorf("approval action = %q", afm.String("action"))
	}
	if afm.String("source_plan") != "Plans/"+plans[0] {
		t.Errorf("approval references %q, want Plans/%s", afm.String("source_plan"), plans[0])
	}

	if got := listNames(t, v, vault.DirInbound); len(got) != 0 {
		t.Errorf("inbound queue not drained: %v", got)
	}
	if got := listNames(t, v, vault.DirArchive); len(got) != 1 || got[0] != "mail_001.md" {
		t.Errorf("archive = %v", got)
	}
}

func TestFileDropWithoutTriggersSkipsApproval(t *testing.T) {
	e, v := newTestEngine(t)
	dropItem(t, v, "drop_001.md",
		"---\nsource: file_drop\noriginal_name: notes.txt\n---\n\nroutine file uploaded")

	res, err := e.RunOnce()
	if err != nil || res.Processed != 1 {
		t.Fatalf("RunOnce = %+v, %v", res, err)
	}

	plans := listNames(t, v, vault.DirPlans)
	if len(plans) != 1 {
		t.Fatalf("plans = %v", plans)
	}
	raw, _ := os.ReadFile(filepath.Join(v.Dir(vault.DirPlans), plans[0]))
	fm, _ := document.Parse(string(raw))
	if fm.String("risk") != "low" {
		t.Errorf("risk = %q, want low", fm.String("risk"))
	}
	if fm.String("requires_approval") != "false" {
		t.Errorf("requires_approval = %q, want false", fm.String("requires_approval"))
	}
	if approvals := listNames(t, v, vault.DirPending); len(approvals) != 0 {
		t.Errorf("unexpected approvals: %v", approvals)
	}
	if got := listNames(t, v, vault.DirArchive); len(got) != 1 {
		t.Errorf("archive = %v", got)
	}
}

func TestProcessedItemNeverReprocessed(t *testing.T) {
	e, v := newTestEngine(t)
	dropItem(t, v, "mail_001.md", "---\nsource: mail\nfrom: Bob\n---\n\nhello")

	if res, _ := e.RunOnce(); res.Processed != 1 {
		t.Fatal("first pass did not process the item")
	}

	// A watcher re-delivers the same item after it was already handled.
	dropItem(t, v, "mail_001.md", "---\nsource: mail\nfrom: Bob\n---\n\nhello")
	res, err := e.RunOnce()
	if err != nil {
		t.Fatalf("second RunOnce: %v", err)
	}
	if res.Processed != 0 || res.Failed != 0 {
		t.Errorf("second pass result = %+v, want nothing processed", res)
	}
	if plans := listNames(t, v, vault.DirPlans); len(plans) != 1 {
		t.Errorf("plans = %v, want still one", plans)
	}
}

func TestProcessedMarkSurvivesRestart(t *testing.T) {
	e, v := newTestEngine(t)
	dropItem(t, v, "chat_7.md", "---\nsource: chat\nfrom: Dana\n---\n\nping")
	if res, _ := e.RunOnce(); res.Processed != 1 {
		t.Fatal("item not processed")
	}

	// Restart: fresh engine over the same vault.
	st, err := state.Open(v.Root)
	if err != nil {
		t.Fatal(err)
	}
	e2 := New(v, st, audit.New(v.Root))
	dropItem(t, v, "chat_7.md", "---\nsource: chat\nfrom: Dana\n---\n\nping")
	res, err := e2.RunOnce()
	if err != nil {
		t.Fatal(err)
	}
	if res.Processed != 0 {
		t.Errorf("restarted engine reprocessed the item: %+v", res)
	}
}

func TestItemWithoutFrontmatterStillProcessed(t *testing.T) {
	e, v := newTestEngine(t)
	dropItem(t, v, "scribble.md", "just some dropped text, nothing structured")

	res, err := e.RunOnce()
	if err != nil || res.Processed != 1 || res.Failed != 0 {
		t.Fatalf("RunOnce = %+v, %v", res, err)
	}
	if plans := listNames(t, v, vault.DirPlans); len(plans) != 1 {
		t.Errorf("plans = %v", plans)
	}
}

func TestBatchContinuesPastBadItem(t *testing.T) {
	e, v := newTestEngine(t)
	// A symlink to a directory lists as a markdown file but fails to read.
	bad := filepath.Join(v.Dir(vault.DirInbound), "bad.md")
	if err := os.Symlink(t.TempDir(), bad); err != nil {
		t.Fatal(err)
	}
	dropItem(t, v, "good.md", "---\nsource: mail\nfrom: Eve\n---\n\nhello")

	res, err := e.RunOnce()
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if res.Processed != 1 || res.Failed != 1 {
		t.Errorf("result = %+v, want one processed and one failed", res)
	}
	if plans := listNames(t, v, vault.DirPlans); len(plans) != 1 {
		t.Errorf("plans = %v", plans)
	}
}

func TestDashboardWrittenAfterBatch(t *testing.T) {
	e, v := newTestEngine(t)
	dropItem(t, v, "mail_1.md", "---\nsource: mail\nfrom: Ann\n---\n\nhi")
	if _, err := e.RunOnce(); err != nil {
		t.Fatal(err)
	}
	raw, err := os.ReadFile(filepath.Join(v.Root, "Dashboard.md"))
	if err != nil {
		t.Fatalf("dashboard missing: %v", err)
	}
	if !strings.Contains(string(raw), "[MAIL] Ann") {
		t.Errorf("dashboard missing activity line: %s", raw)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		e.Run(ctx, 10*time.Millisecond)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not observe cancellation")
	}
}
