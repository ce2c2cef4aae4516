// Package engine orchestrates the per-item pipeline: classify, draft,
// plan, request approval, archive. Items are processed strictly
// sequentially, oldest first, and each item is terminal on its first
// successful pass.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kalambet/vaultflow/internal/audit"
	"github.com/kalambet/vaultflow/internal/classify"
	"github.com/kalambet/vaultflow/internal/document"
	"github.com/kalambet/vaultflow/internal/draft"
	"github.com/kalambet/vaultflow/internal/plan"
	"github.com/kalambet/vaultflow/internal/report"
	"github.com/kalambet/vaultflow/internal/state"
	"github.com/kalambet/vaultflow/internal/vault"
)

// Engine scans the inbound queue, generates plans and approval requests,
// and archives originals. It owns the state store and must be the only
// writer to it.
type Engine struct {
	vault  *vault.Vault
	state  *state.Store
	audit  *audit.Log
	logger *slog.Logger
	recent []string
}

// New creates an Engine over an already-prepared vault.
func New(v *vault.Vault, st *state.Store, au *audit.Log) *Engine {
	return &Engine{
		vault:  v,
		state:  st,
		audit:  au,
		logger: slog.Default().With("run", au.RunID()),
	}
}

// BatchResult summarizes one pass over the inbound queue.
type BatchResult struct {
	Processed int
	Failed    int
}

// RunOnce processes everything currently queued and regenerates the
// dashboard. A per-item failure is recorded and does not abort the batch.
func (e *Engine) RunOnce() (BatchResult, error) {
	pending, err := e.vault.ListMarkdown(vault.DirInbound, "")
	if err != nil {
		return BatchResult{}, fmt.Errorf("scanning inbound queue: %w", err)
	}

	var res BatchResult
	if len(pending) == 0 {
		e.logger.Info("inbound queue is empty — nothing to process")
		e.updateDashboard()
		return res, nil
	}

	e.logger.Info("found pending items", "count", len(pending))
	for _, path := range pending {
		if err := e.processFile(path); err != nil {
			res.Failed++
			e.logger.Error("failed to process item", "file", filepath.Base(path), "error", err)
			if aerr := e.audit.Write("item_error", audit.Fields{
				"filename": filepath.Base(path),
				"error":    err.Error(),
				"result":   "error",
			}); aerr != nil {
				e.logger.Error("writing audit entry", "error", aerr)
			}
			continue
		}
		res.Processed++
	}

	e.updateDashboard()
	e.logger.Info("cycle complete", "processed", res.Processed, "failed", res.Failed)
	return res, nil
}

// Run repeats RunOnce on a fixed interval until ctx is cancelled. Unhandled
// errors are logged and do not terminate the loop.
func (e *Engine) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	e.logger.Info("engine loop started", "interval", interval)
	for {
		if ctx.Err() != nil {
			return
		}
		if _, err := e.RunOnce(); err != nil {
			e.logger.Error("engine iteration failed", "error", err)
		}
		select {
		case <-ctx.Done():
			e.logger.Info("shutdown requested — exiting cleanly")
			return
		case <-time.After(interval):
		}
	}
}

func (e *Engine) processFile(path string) error {
	filename := filepath.Base(path)

	if e.state.IsProcessed(filename) {
		e.logger.Debug("already processed", "file", filename)
		return nil
	}

	e.logger.Info("processing item", "file", filename)
	ts := time.Now().UTC()

	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading item: %w", err)
	}

	meta, body := document.Parse(string(raw))
	fullText := classificationText(meta, body)

	origin := classify.ParseOrigin(meta.String("source"))
	risk := classify.ClassifyRisk(fullText)
	approvalNeeded := classify.NeedsApproval(fullText, origin, risk)
	priority := classify.PriorityFor(meta.String("priority"), risk)
	sender := document.Sender(meta)
	stem := strings.TrimSuffix(filename, ".md")

	planPath := vault.UniquePath(filepath.Join(
		e.vault.Dir(vault.DirPlans), plan.Filename(origin, sender, stem, ts)))

	approvalPath := ""
	var action classify.Action
	if approvalNeeded {
		action = classify.ActionFor(origin, meta.String("kind"))
		approvalPath = vault.UniquePath(filepath.Join(
			e.vault.Dir(vault.DirPending), plan.ApprovalFilename(action, sender, stem, ts)))
	}

	draftText := draft.Generate(origin, meta, body)

	planDoc := plan.BuildPlan(plan.Input{
		SourceRel:      e.vault.Rel(path),
		Origin:         origin,
		Meta:           meta,
		Body:           body,
		Priority:       priority,
		Risk:           risk,
		ApprovalNeeded: approvalNeeded,
		ApprovalRel:    relOrEmpty(e.vault, approvalPath),
		Draft:          draftText,
		CreatedAt:      ts,
	})
	if err := vault.WriteFileAtomic(planPath, []byte(planDoc)); err != nil {
		return fmt.Errorf("writing plan: %w", err)
	}
	e.logger.Info("plan written", "plan", e.vault.Rel(planPath))

	if approvalPath != "" {
		approvalDoc := plan.BuildApproval(plan.ApprovalInput{
			Action:    action,
			PlanRel:   e.vault.Rel(planPath),
			Meta:      meta,
			Draft:     draftText,
			CreatedAt: ts,
		})
		if err := vault.WriteFileAtomic(approvalPath, []byte(approvalDoc)); err != nil {
			return fmt.Errorf("writing approval: %w", err)
		}
		e.logger.Info("approval written", "approval", e.vault.Rel(approvalPath))
	}

	archived, err := e.vault.Archive(path)
	if err != nil {
		return err
	}
	e.logger.Info("item archived", "dest", e.vault.Rel(archived))

	// State is persisted only after the archive rename succeeded: a crash
	// earlier in the pipeline reprocesses the item (idempotently), never
	// loses it.
	if err := e.state.MarkProcessed(filename, e.vault.Rel(planPath), relOrEmpty(e.vault, approvalPath), ts); err != nil {
		return err
	}

	var approvalName any
	if approvalPath != "" {
		approvalName = filepath.Base(approvalPath)
	}
	if err := e.audit.Write("item_processed", audit.Fields{
		"source":   string(origin),
		"filename": filename,
		"plan":     filepath.Base(planPath),
		"approval": approvalName,
		"priority": string(priority),
		"risk":     string(risk),
		"result":   "success",
	}); err != nil {
		e.logger.Error("writing audit entry", "error", err)
	}

	activity := fmt.Sprintf("`%s` [%s] %s → `%s`",
		ts.Format("2006-01-02 15:04 UTC"),
		strings.ToUpper(string(origin)),
		truncate(sender, 35),
		filepath.Base(planPath))
	if approvalPath != "" {
		activity += fmt.Sprintf(" + `%s`", filepath.Base(approvalPath))
	}
	e.recent = append(e.recent, activity)

	return nil
}

func (e *Engine) updateDashboard() {
	if _, err := report.Write(e.vault, e.recent); err != nil {
		e.logger.Error("updating dashboard", "error", err)
	}
}

// classificationText joins every metadata value with the body so keyword
// classification sees origin-specific fields (subject, kind, ...) too.
func classificationText(meta document.Metadata, body string) string {
	parts := make([]string, 0, len(meta)+1)
	for k := range meta {
		parts = append(parts, meta.String(k))
	}
	parts = append(parts, body)
	return strings.Join(parts, " ")
}

func relOrEmpty(v *vault.Vault, path string) string {
	if path == "" {
		return ""
	}
	return v.Rel(path)
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
