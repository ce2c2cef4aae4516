// Package executor dispatches authorized approvals to external action
// handlers. It scans the Approved folder oldest first, enforces expiry and
// an hourly rate cap, invokes one subprocess per approval, and archives
// each approval with a terminal status exactly once.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kalambet/vaultflow/internal/audit"
	"github.com/kalambet/vaultflow/internal/classify"
	"github.com/kalambet/vaultflow/internal/document"
	"github.com/kalambet/vaultflow/internal/vault"
)

// Outcome is what happened to a single approval during a pass.
type Outcome string

const (
	OutcomeExecuted Outcome = "executed"
	OutcomeDryRun   Outcome = "dry_run"
	OutcomeSkipped  Outcome = "skipped"
	OutcomeDeferred Outcome = "deferred"
	OutcomeFailed   Outcome = "failed"
)

// terminalStatuses are approval states the executor must never touch again.
var terminalStatuses = map[string]bool{
	"sent":   true,
	"posted": true,
	"failed": true,
}

// Executor drains the authorized-approval queue.
type Executor struct {
	vault  *vault.Vault
	audit  *audit.Log
	runner Runner
	limit  *RateLimiter
	logger *slog.Logger
	now    func() time.Time
}

// New creates an Executor over an already-prepared vault. capPerHour bounds
// external actions per UTC hour.
func New(v *vault.Vault, au *audit.Log, runner Runner, capPerHour int) *Executor {
	return &Executor{
		vault:  v,
		audit:  au,
		runner: runner,
		limit:  NewRateLimiter(capPerHour),
		logger: slog.Default().With("run", au.RunID()),
		now:    time.Now,
	}
}

// BatchResult summarizes one pass over the authorized queue.
type BatchResult struct {
	Executed int
	DryRun   int
	Skipped  int
	Deferred int
	Failed   int
}

// RunOnce processes every approval currently authorized, oldest first. With
// onceFile set, only that one approval is considered; naming a file that is
// not queued is an error.
func (x *Executor) RunOnce(ctx context.Context, dryRun bool, onceFile string) (BatchResult, error) {
	queued, err := x.vault.ListMarkdown(vault.DirApproved, "APPROVAL_")
	if err != nil {
		return BatchResult{}, fmt.Errorf("scanning authorized queue: %w", err)
	}

	if onceFile != "" {
		match := ""
		for _, path := range queued {
			if filepath.Base(path) == onceFile {
				match = path
				break
			}
		}
		if match == "" {
			return BatchResult{}, fmt.Errorf("approval %s not found in %s", onceFile, vault.DirApproved)
		}
		queued = []string{match}
	}

	var res BatchResult
	if len(queued) == 0 {
		x.logger.Info("no authorized approvals — nothing to execute")
		return res, nil
	}

	x.logger.Info("found authorized approvals", "count", len(queued), "dry_run", dryRun)
	for _, path := range queued {
		outcome, err := x.ExecuteFile(ctx, path, dryRun)
		if err != nil {
			x.logger.Error("approval not executed",
				"file", filepath.Base(path), "outcome", string(outcome), "error", err)
		}
		switch outcome {
		case OutcomeExecuted:
			res.Executed++
		case OutcomeDryRun:
			res.DryRun++
		case OutcomeSkipped:
			res.Skipped++
		case OutcomeDeferred:
			res.Deferred++
		default:
			res.Failed++
		}
		if ctx.Err() != nil {
			break
		}
	}

	x.logger.Info("execution pass complete",
		"executed", res.Executed, "dry_run", res.DryRun, "skipped", res.Skipped,
		"deferred", res.Deferred, "failed", res.Failed)
	return res, nil
}

// Run repeats RunOnce on a fixed interval until ctx is cancelled.
func (x *Executor) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	x.logger.Info("executor loop started", "interval", interval)
	for {
		if ctx.Err() != nil {
			return
		}
		if _, err := x.RunOnce(ctx, false, ""); err != nil {
			x.logger.Error("executor iteration failed", "error", err)
		}
		select {
		case <-ctx.Done():
			x.logger.Info("shutdown requested — exiting cleanly")
			return
		case <-time.After(interval):
		}
	}
}

// ExecuteFile handles a single approval document. The file is only ever
// moved after it carries a terminal status; deferrals, timeouts, and
// missing handlers leave it in place for the next pass.
func (x *Executor) ExecuteFile(ctx context.Context, path string, dryRun bool) (Outcome, error) {
	filename := filepath.Base(path)

	raw, err := os.ReadFile(path)
	if err != nil {
		return OutcomeFailed, fmt.Errorf("reading approval: %w", err)
	}
	meta, body := document.Parse(string(raw))

	if status := meta.String("status"); terminalStatuses[status] {
		x.logger.Debug("approval already terminal", "file", filename, "status", status)
		return OutcomeSkipped, nil
	}

	// Expiry guards real sends only. Dry-run previews an expired approval so
	// a human can judge whether to refresh it.
	if !dryRun {
		if expired, when := x.isExpired(meta); expired {
			x.logger.Warn("approval expired — skipping", "file", filename, "expired_at", when)
			return OutcomeSkipped, fmt.Errorf("approval expired at %s", when)
		}
	}

	action, ok := classify.ParseAction(meta.String("action"))
	if !ok {
		err := fmt.Errorf("unrecognized action %q", meta.String("action"))
		x.auditOutcome("action_error", filename, meta.String("action"), err.Error())
		return OutcomeFailed, err
	}

	args, err := buildArgs(action, body, dryRun)
	if err != nil {
		x.auditOutcome("action_error", filename, string(action), err.Error())
		return OutcomeFailed, err
	}

	target := document.ExtractField(body, "Target")
	if dryRun {
		x.logger.Info("dry run — no side effect",
			"file", filename, "action", string(action), "target", target)
		if err := x.audit.Write("dry_run", audit.Fields{
			"filename": filename,
			"action":   string(action),
			"target":   target,
			"result":   "dry_run",
		}); err != nil {
			x.logger.Error("writing audit entry", "error", err)
		}
		return OutcomeDryRun, nil
	}

	// A handler that is not installed yet must not burn rate budget or
	// fail the approval terminally; the file stays queued for the next pass.
	if err := x.runner.Resolve(action); err != nil {
		x.logger.Warn("handler not installed — leaving approval queued",
			"file", filename, "action", string(action))
		x.auditOutcome("action_error", filename, string(action), err.Error())
		return OutcomeFailed, err
	}

	if !x.limit.Allow() {
		x.logger.Warn("hourly rate limit reached — deferring", "file", filename)
		if err := x.audit.Write("rate_limited", audit.Fields{
			"filename": filename,
			"action":   string(action),
			"result":   "deferred",
		}); err != nil {
			x.logger.Error("writing audit entry", "error", err)
		}
		return OutcomeDeferred, nil
	}

	x.logger.Info("invoking handler", "file", filename, "action", string(action), "target", target)
	output, runErr := x.runner.Invoke(ctx, action, args)

	if errors.Is(runErr, ErrHandlerTimeout) {
		x.auditOutcome("action_timeout", filename, string(action), runErr.Error())
		return OutcomeFailed, runErr
	}
	if errors.Is(runErr, ErrHandlerNotFound) {
		x.auditOutcome("action_error", filename, string(action), runErr.Error())
		return OutcomeFailed, runErr
	}

	reported := handlerStatus(output)
	success := runErr == nil && reported != "error" && reported != "failed"

	terminal := "failed"
	if success {
		terminal = "sent"
		if action == classify.ActionCreatePost {
			terminal = "posted"
		}
	}

	if err := x.finalize(path, string(raw), terminal); err != nil {
		return OutcomeFailed, err
	}

	if !success {
		reason := reported
		if runErr != nil {
			reason = runErr.Error()
		}
		x.auditOutcome("action_error", filename, string(action), reason)
		return OutcomeFailed, fmt.Errorf("handler reported failure: %s", reason)
	}

	x.logger.Info("action executed", "file", filename, "action", string(action), "status", terminal)
	if err := x.audit.Write("action_executed", audit.Fields{
		"filename": filename,
		"action":   string(action),
		"target":   target,
		"status":   terminal,
		"result":   "success",
	}); err != nil {
		x.logger.Error("writing audit entry", "error", err)
	}
	return OutcomeExecuted, nil
}

// finalize rewrites the approval's status in place, stamps the execution
// time, and moves it to the archive. The rewrite happens before the rename
// so the archived document is already terminal.
func (x *Executor) finalize(path, original, status string) error {
	updated := document.RewriteStatus(original, status)
	updated = strings.TrimRight(updated, "\n") +
		fmt.Sprintf("\n\n<!-- executed_at: %s -->\n", x.now().UTC().Format(time.RFC3339))
	if err := vault.WriteFileAtomic(path, []byte(updated)); err != nil {
		return fmt.Errorf("updating approval status: %w", err)
	}
	dest, err := x.vault.Archive(path)
	if err != nil {
		return err
	}
	x.logger.Info("approval archived", "dest", x.vault.Rel(dest), "status", status)
	return nil
}

// expiryLayouts are accepted expires_at formats. Layouts without a zone
// are read as UTC.
var expiryLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

func (x *Executor) isExpired(meta document.Metadata) (bool, string) {
	raw := meta.String("expires_at")
	if raw == "" {
		return false, ""
	}
	for _, layout := range expiryLayouts {
		if expiry, err := time.Parse(layout, raw); err == nil {
			return x.now().UTC().After(expiry.UTC()), raw
		}
	}
	return false, ""
}

func (x *Executor) auditOutcome(event, filename, action, reason string) {
	if err := x.audit.Write(event, audit.Fields{
		"filename": filename,
		"action":   action,
		"error":    reason,
		"result":   "error",
	}); err != nil {
		x.logger.Error("writing audit entry", "error", err)
	}
}

// buildArgs assembles the handler's command line from the approval body.
// Every action needs a message; messaging actions need a target too.
func buildArgs(action classify.Action, body string, dryRun bool) ([]string, error) {
	target := document.ExtractField(body, "Target")
	subject := document.ExtractField(body, "Subject / Title")
	message := document.ExtractMessage(body)

	if message == "" {
		return nil, fmt.Errorf("missing fields: no message content")
	}

	var args []string
	switch action {
	case classify.ActionSendEmail:
		if target == "" {
			return nil, fmt.Errorf("missing fields: no target recipient")
		}
		args = []string{"--to", target, "--subject", subject, "--body", message}
	case classify.ActionSendMessage, classify.ActionSendDM, classify.ActionSendConnectionReply:
		if target == "" {
			return nil, fmt.Errorf("missing fields: no target recipient")
		}
		args = []string{"--to", target, "--content", message}
	case classify.ActionCreatePost:
		args = []string{"--content", message}
	default:
		return nil, fmt.Errorf("unrecognized action %q", action)
	}

	if dryRun {
		args = append(args, "--dry-run")
	}
	return args, nil
}
