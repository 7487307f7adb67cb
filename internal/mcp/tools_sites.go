package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"adsconsole/internal/domain"
)

func (s *Server) registerSiteTools() {
	// ── list_sites ─────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("list_sites",
		mcp.WithDescription("List the sites whose ads can be edited"),
		mcp.WithReadOnlyHintAnnotation(true),
	), s.handleListSites)

	// ── switch_site ────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("switch_site",
		mcp.WithDescription("Make a site active. Unsaved edits of the previous site are discarded."),
		mcp.WithString("site",
			mcp.Description("Site value as returned by list_sites (e.g. a1satta.pro)"),
			mcp.Required(),
		),
	), s.handleSwitchSite)

	// ── reload ─────────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("reload",
		mcp.WithDescription("Fetch the active site's ads again, dropping unsaved edits"),
	), s.handleReload)

	// ── get_view ───────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("get_view",
		mcp.WithDescription("Show the active site with every zone's blocks, the focused block and any pending prompt"),
		mcp.WithReadOnlyHintAnnotation(true),
	), s.handleGetView)
}

func (s *Server) handleListSites(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.console.Sites())
}

func (s *Server) handleSwitchSite(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	site := req.GetString("site", "")
	if site == "" {
		return nil, fmt.Errorf("site is required")
	}
	if err := s.console.SwitchSite(ctx, domain.Site(site)); err != nil {
		return nil, fmt.Errorf("switch site: %w", err)
	}
	return jsonResult(s.console.View())
}

func (s *Server) handleReload(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.console.Reload(ctx); err != nil {
		return nil, fmt.Errorf("reload: %w", err)
	}
	return jsonResult(s.console.View())
}

func (s *Server) handleGetView(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.console.View())
}
