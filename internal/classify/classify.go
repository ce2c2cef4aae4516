// Package classify maps raw item text to a risk level, an approval
// requirement, and a priority. Classification is a pure word-set
// intersection against fixed keyword tables: multi-meaning tokens
// over-flag on purpose, since requesting an unnecessary approval is
// acceptable and skipping a necessary one is not.
package classify

import (
	"regexp"
	"strings"
)

// Risk is the classified risk level of an item.
type Risk string

const (
	RiskLow    Risk = "low"
	RiskMedium Risk = "medium"
	RiskHigh   Risk = "high"
)

// Priority is the handling priority of an item.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Origin is the category of system an item came from.
type Origin string

const (
	OriginMail     Origin = "mail"
	OriginChat     Origin = "chat"
	OriginSocial   Origin = "social"
	OriginFileDrop Origin = "file_drop"
)

// ParseOrigin normalizes a raw source string to a known origin. Unknown or
// empty sources are treated as file drops, which keeps them out of the
// external-communication set and routes them to the generic draft template.
func ParseOrigin(raw string) Origin {
	switch strings.ReplaceAll(strings.ToLower(strings.TrimSpace(raw)), "-", "_") {
	case string(OriginMail):
		return OriginMail
	case string(OriginChat):
		return OriginChat
	case string(OriginSocial):
		return OriginSocial
	default:
		return OriginFileDrop
	}
}

// Action identifies an external side effect an approval may authorize.
type Action string

const (
	ActionSendEmail           Action = "send_email"
	ActionSendMessage         Action = "send_message"
	ActionSendDM              Action = "send_dm"
	ActionSendConnectionReply Action = "send_connection_reply"
	ActionCreatePost          Action = "create_post"
)

// ParseAction maps a raw action string to the closed action set.
func ParseAction(raw string) (Action, bool) {
	switch a := Action(strings.ToLower(strings.TrimSpace(raw))); a {
	case ActionSendEmail, ActionSendMessage, ActionSendDM,
		ActionSendConnectionReply, ActionCreatePost:
		return a, true
	default:
		return "", false
	}
}

// ActionFor selects the approval action for an origin. A social item of
// kind `connection_request` gets the dedicated reply action.
func ActionFor(origin Origin, kind string) Action {
	if origin == OriginSocial && kind == "connection_request" {
		return ActionSendConnectionReply
	}
	switch origin {
	case OriginMail:
		return ActionSendEmail
	case OriginChat:
		return ActionSendMessage
	case OriginSocial:
		return ActionSendDM
	default:
		return ActionSendMessage
	}
}

var highRiskKeywords = wordTable(
	"money", "legal", "threat", "complaint", "fraud", "scam", "lawsuit",
	"court", "police", "blackmail", "hack", "breach", "stolen", "dispute",
	"emergency", "critical", "overdue", "terminate", "suspend", "banned",
	"illegal", "attorney", "solicitor", "chargeback", "arbitration",
)

var mediumRiskKeywords = wordTable(
	"pricing", "price", "proposal", "hire", "hiring", "negotiate",
	"negotiation", "partnership", "contract", "agreement", "deal", "offer",
	"quote", "quotation", "budget", "revenue", "sales", "client", "customer",
	"invoice", "payment", "refund", "purchase", "subscription", "retainer",
)

var approvalTriggers = wordTable(
	"urgent", "payment", "invoice", "refund", "pricing", "quote", "budget",
	"contract", "complaint", "asap", "money", "transfer", "bank", "pay",
	"send", "post", "publish", "reply", "respond",
)

// externalOrigins always require approval: anything they produce would
// leave the system.
var externalOrigins = map[Origin]bool{
	OriginMail:   true,
	OriginChat:   true,
	OriginSocial: true,
}

var wordRe = regexp.MustCompile(`\w+`)

func wordSet(text string) map[string]bool {
	words := wordRe.FindAllString(strings.ToLower(text), -1)
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}

func intersects(set, table map[string]bool) bool {
	for w := range set {
		if table[w] {
			return true
		}
	}
	return false
}

// ClassifyRisk classifies text by keyword intersection. High-risk keywords
// take precedence over medium-risk ones.
func ClassifyRisk(text string) Risk {
	w := wordSet(text)
	if intersects(w, highRiskKeywords) {
		return RiskHigh
	}
	if intersects(w, mediumRiskKeywords) {
		return RiskMedium
	}
	return RiskLow
}

// NeedsApproval reports whether an item requires human sign-off before any
// action is taken.
func NeedsApproval(text string, origin Origin, risk Risk) bool {
	if externalOrigins[origin] {
		return true
	}
	if risk == RiskHigh {
		return true
	}
	return intersects(wordSet(text), approvalTriggers)
}

// PriorityFor derives a priority from an explicit metadata override and the
// classified risk. The override wins at its level; otherwise risk decides.
func PriorityFor(override string, risk Risk) Priority {
	override = strings.ToLower(strings.TrimSpace(override))
	if override == "high" || risk == RiskHigh {
		return PriorityHigh
	}
	if override == "medium" || risk == RiskMedium {
		return PriorityMedium
	}
	return PriorityLow
}

func wordTable(words ...string) map[string]bool {
	table := make(map[string]bool, len(words))
	for _, w := range words {
		table[w] = true
	}
	return table
}
