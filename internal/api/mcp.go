package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/vaultflow/internal/report"
)

// NewMCPServer creates an MCP server with the vault inspection tools and
// resources registered. Supervising agents use it to watch the pipeline;
// nothing here mutates the vault.
func NewMCPServer(deps Deps) *server.MCPServer {
	s := server.NewMCPServer(
		"vaultflow",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("vaultflow — read-only view of the vault workflow pipeline: stage counts, queued approvals, audit trail."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("vault_status",
			mcp.WithDescription("Return per-stage document counts for the vault pipeline."),
		),
		mcpVaultStatus(deps),
	)

	s.AddTool(
		mcp.NewTool("list_approvals",
			mcp.WithDescription("List approval requests in a queue stage."),
			mcp.WithString("stage", mcp.Description("Queue stage: pending, approved, or rejected (default pending)")),
		),
		mcpListApprovals(deps),
	)

	s.AddTool(
		mcp.NewTool("tail_audit",
			mcp.WithDescription("Return today's most recent audit entries, oldest first."),
			mcp.WithNumber("limit", mcp.Description("Maximum number of entries (default 20)")),
		),
		mcpTailAudit(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"vault://dashboard",
			"Vault Dashboard",
			mcp.WithResourceDescription("Current Dashboard.md projection"),
			mcp.WithMIMEType("text/markdown"),
		),
		mcpResourceDashboard(deps),
	)

	return s
}

func mcpVaultStatus(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		s, err := report.Collect(deps.Vault, nil)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to collect status: %v", err)), nil
		}
		b, err := json.Marshal(s)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal status: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpListApprovals(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		stage := req.GetString("stage", "pending")

		infos, err := ListApprovals(deps.Vault, stage)
		if err != nil {
			return mcpError(err.Error()), nil
		}
		if len(infos) == 0 {
			return mcpText("[]"), nil
		}
		b, err := json.Marshal(infos)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal approvals: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpTailAudit(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		limit := req.GetInt("limit", 20)
		if limit <= 0 {
			limit = 20
		}
		if limit > 200 {
			limit = 200
		}

		entries, err := deps.Audit.Tail(limit)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to read audit log: %v", err)), nil
		}
		if len(entries) == 0 {
			return mcpText("[]"), nil
		}
		b, err := json.Marshal(entries)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal entries: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpResourceDashboard(deps Deps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		md := report.ReadDashboard(deps.Vault)
		if md == "" {
			md = "_Dashboard has not been generated yet._"
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "text/markdown",
				Text:     md,
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
