// Package plan renders Plan and Approval documents and derives their
// collision-resistant filenames.
package plan

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/kalambet/vaultflow/internal/classify"
	"github.com/kalambet/vaultflow/internal/document"
)

var unsafeRe = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// SafeID converts arbitrary text to a filesystem-safe slug of at most
// maxLen characters.
func SafeID(text string, maxLen int) string {
	s := unsafeRe.ReplaceAllString(strings.TrimSpace(text), "_")
	if len(s) > maxLen {
		s = s[:maxLen]
	}
	return strings.Trim(s, "_")
}

// Filename derives the plan filename, unique per source item:
// PLAN_<ORIGIN>_<sender>_<stem>_<date>.md.
func Filename(origin classify.Origin, sender, stem string, day time.Time) string {
	return fmt.Sprintf("PLAN_%s_%s_%s_%s.md",
		SafeID(strings.ToUpper(string(origin)), 12),
		SafeID(sender, 24),
		SafeID(stem, 20),
		day.UTC().Format("2006-01-02"))
}

// ApprovalFilename derives the approval filename:
// APPROVAL_<ACTION>_<sender>_<stem>_<date>.md.
func ApprovalFilename(action classify.Action, sender, stem string, day time.Time) string {
	return fmt.Sprintf("APPROVAL_%s_%s_%s_%s.md",
		SafeID(strings.ToUpper(string(action)), 28),
		SafeID(sender, 20),
		SafeID(stem, 16),
		day.UTC().Format("2006-01-02"))
}

// Input carries everything the plan renderer needs.
type Input struct {
	SourceRel      string
	Origin         classify.Origin
	Meta           document.Metadata
	Body           string
	Priority       classify.Priority
	Risk           classify.Risk
	ApprovalNeeded bool
	ApprovalRel    string // relative approval path, "" when no approval
	Draft          string
	CreatedAt      time.Time
}

var stripRe = regexp.MustCompile(`(?s)#+.*?\n|---.*?---`)

// BuildPlan renders the Plan document text.
func BuildPlan(in Input) string {
	sender := document.Sender(in.Meta)
	subject := document.Subject(in.Meta)
	summary := wrap(truncateString(strings.TrimSpace(
		strings.ReplaceAll(stripRe.ReplaceAllString(in.Body, ""), "\n", " ")), 400), 80)

	approvalGate := "No external action planned for this item. No approval file needed."
	approvalTask := "- [ ] _(no approval needed — internal item)_"
	completionGate := "No approval required — task may be closed directly"
	if in.ApprovalNeeded {
		approvalGate = fmt.Sprintf(
			"**Approval required.** Approval request created at:\n`%s`\n\n"+
				"Move that file to `/Approved` to authorise the action, "+
				"or `/Rejected` to discard it.", in.ApprovalRel)
		approvalTask = "- [ ] Approve or reject via `/Pending_Approval/`"
		completionGate = "Approval request present in `/Pending_Approval/`"
	}

	return fmt.Sprintf(`---
type: plan
source_file: %s
source: %s
created: %s
status: planned
priority: %s
risk: %s
requires_approval: %t
---

# Objective
Process and respond to **%s** item from **%s** regarding "%s".

# Context
- **Origin:** %s
- **Sender / Name:** %s
- **Subject / Topic:** %s
- **Received:** %s
- **Priority:** %s
- **Risk:** %s

## Summary
%s

# Assumptions
- This is the **draft-only phase** — no external actions are executed automatically.
- All outbound responses require explicit human approval via `+"`/Pending_Approval/`"+`.

# Plan
- [ ] Review the context and summary above
- [ ] Read and refine the draft output below
- [ ] Verify tone, accuracy, and completeness
%s
- [ ] Once approved (or no action needed), log result and archive original

# Draft Output _(DRAFT ONLY — DO NOT SEND WITHOUT APPROVAL)_

%s

# Approval Gate
%s

# Completion Criteria
- [ ] Original item moved to `+"`/Done`"+`
- [ ] Audit log entry written to `+"`/Logs/`"+`
- [ ] `+"`Dashboard.md`"+` updated with latest counts
- [ ] %s
`,
		in.SourceRel, in.Origin, in.CreatedAt.UTC().Format(time.RFC3339),
		in.Priority, in.Risk, in.ApprovalNeeded,
		in.Origin, sender, subject,
		in.Origin, sender, subject,
		received(in.Meta),
		strings.ToUpper(string(in.Priority)), strings.ToUpper(string(in.Risk)),
		summary,
		approvalTask,
		indent(strings.TrimSpace(in.Draft), "    "),
		approvalGate,
		completionGate)
}

// ApprovalInput carries everything the approval renderer needs.
type ApprovalInput struct {
	Action    classify.Action
	PlanRel   string
	Meta      document.Metadata
	Draft     string
	CreatedAt time.Time
	ExpiresAt time.Time // zero when the approval does not expire
}

// BuildApproval renders the Approval document text. The Target, Subject /
// Title, and Message / Content fields must round-trip through the document
// extraction helpers, since the executor rebuilds handler arguments from
// them.
func BuildApproval(in ApprovalInput) string {
	target := in.Meta.FirstString("from", "sender", "name", "profile")
	if target == "" {
		target = "Unknown"
	}
	subject := document.Subject(in.Meta)
	actionLabel := titleWords(strings.ReplaceAll(string(in.Action), "_", " "))

	expires := ""
	if !in.ExpiresAt.IsZero() {
		expires = fmt.Sprintf("expires_at: %s\n", in.ExpiresAt.UTC().Format(time.RFC3339))
	}

	return fmt.Sprintf(`---
type: approval_request
action: %s
source_plan: %s
created: %s
%sstatus: pending
---

# What will happen after approval?

The following **%s** will be executed via the registered action handler.

> ⚠️  **No action is taken until this file is moved to `+"`/Approved`"+`.**
> Moving it to `+"`/Rejected`"+` will discard the request without any action.

# Payload

- **Action:** `+"`%s`"+`
- **Target:** %s
- **Subject / Title:** %s

## Message / Content

%s

# How to Approve or Reject

| Decision | Action |
|----------|--------|
| ✅ Approve | Move this file to `+"`/Approved`"+` |
| ❌ Reject  | Move this file to `+"`/Rejected`"+` |

---
*Generated by the workflow engine — review carefully before approving.*
`,
		in.Action, in.PlanRel, in.CreatedAt.UTC().Format(time.RFC3339), expires,
		actionLabel, in.Action, target, subject,
		indent(strings.TrimSpace(in.Draft), "  "))
}

func received(meta document.Metadata) string {
	if r := meta.String("received"); r != "" {
		return r
	}
	return "unknown"
}

func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines[i] = prefix + line
	}
	return strings.Join(lines, "\n")
}

func titleWords(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func truncateString(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// wrap reflows text to the given width on word boundaries.
func wrap(s string, width int) string {
	words := strings.Fields(s)
	if len(words) == 0 {
		return ""
	}
	var b strings.Builder
	lineLen := 0
	for i, w := range words {
		if i == 0 {
			b.WriteString(w)
			lineLen = len(w)
			continue
		}
		if lineLen+1+len(w) > width {
			b.WriteString("\n" + w)
			lineLen = len(w)
			continue
		}
		b.WriteString(" " + w)
		lineLen += 1 + len(w)
	}
	return b.String()
}
