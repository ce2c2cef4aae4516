// Package api exposes the vault to outside observers over HTTP and MCP.
// Both surfaces are strictly read-only: agents and dashboards inspect the
// pipeline, humans move documents.
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/vaultflow/internal/audit"
	"github.com/kalambet/vaultflow/internal/document"
	"github.com/kalambet/vaultflow/internal/report"
	"github.com/kalambet/vaultflow/internal/vault"
)

// Deps holds what the observability surfaces read from.
type Deps struct {
	Vault *vault.Vault
	Audit *audit.Log
	Token string // optional; empty disables bearer auth
}

// ApprovalInfo is the wire form of one queued approval document.
type ApprovalInfo struct {
	Filename  string `json:"filename"`
	Action    string `json:"action"`
	Status    string `json:"status"`
	Target    string `json:"target"`
	Plan      string `json:"source_plan,omitempty"`
	Created   string `json:"created,omitempty"`
	ExpiresAt string `json:"expires_at,omitempty"`
}

// NewHandler returns the read-only HTTP API.
func NewHandler(deps Deps) http.Handler {
	r := chi.NewRouter()
	if deps.Token != "" {
		r.Use(BearerAuth(deps.Token))
	}

	r.Get("/health", handleHealth)
	r.Get("/summary", handleSummary(deps))
	r.Get("/approvals", handleApprovals(deps))
	r.Get("/audit", handleAudit(deps))

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func handleSummary(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := report.Collect(deps.Vault, nil)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to collect summary: %v", err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(s)
	}
}

func handleApprovals(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stage := r.URL.Query().Get("stage")
		if stage == "" {
			stage = "pending"
		}
		infos, err := ListApprovals(deps.Vault, stage)
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
			return
		}
		if infos == nil {
			infos = []ApprovalInfo{}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(infos)
	}
}

func handleAudit(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := parseIntParam(r, "limit", 20, 200)
		entries, err := deps.Audit.Tail(limit)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to read audit log: %v", err)
			return
		}
		if entries == nil {
			entries = []map[string]any{}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(entries)
	}
}

// ListApprovals reads the approval documents in a queue stage, oldest first.
// Valid stages: pending, approved, rejected.
func ListApprovals(v *vault.Vault, stage string) ([]ApprovalInfo, error) {
	var dir string
	switch stage {
	case "pending":
		dir = vault.DirPending
	case "approved":
		dir = vault.DirApproved
	case "rejected":
		dir = vault.DirRejected
	default:
		return nil, fmt.Errorf("unknown stage %q (want pending, approved, or rejected)", stage)
	}

	paths, err := v.ListMarkdown(dir, "APPROVAL_")
	if err != nil {
		return nil, err
	}

	var infos []ApprovalInfo
	for _, path := range paths {
		raw, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		meta, body := document.Parse(string(raw))
		infos = append(infos, ApprovalInfo{
			Filename:  filepath.Base(path),
			Action:    meta.String("action"),
			Status:    meta.String("status"),
			Target:    document.ExtractField(body, "Target"),
			Plan:      meta.String("source_plan"),
			Created:   meta.String("created"),
			ExpiresAt: meta.String("expires_at"),
		})
	}
	return infos, nil
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}

func parseIntParam(r *http.Request, key string, defaultVal, maxVal int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return defaultVal
	}
	if maxVal > 0 && v > maxVal {
		return maxVal
	}
	return v
}
