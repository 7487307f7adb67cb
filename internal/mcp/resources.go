package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"adsconsole/internal/domain"
)

func (s *Server) registerResources() {
	// ── ads://sites ────────────────────────────────────
	s.mcp.AddResource(mcp.NewResource(
		"ads://sites",
		"Editable Sites",
		mcp.WithMIMEType("application/json"),
	), s.handleSitesResource)

	// ── ads://view ─────────────────────────────────────
	s.mcp.AddResource(mcp.NewResource(
		"ads://view",
		"Editor View",
		mcp.WithMIMEType("application/json"),
	), s.handleViewResource)

	// ── ads://zone/{zone} ──────────────────────────────
	s.mcp.AddResourceTemplate(
		mcp.NewResourceTemplate(
			"ads://zone/{zone}",
			"Blocks in a Zone",
		),
		s.handleZoneResource,
	)
}

func jsonContents(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (s *Server) handleSitesResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return jsonContents(req.Params.URI, s.console.Sites())
}

func (s *Server) handleViewResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return jsonContents(req.Params.URI, s.console.View())
}

func (s *Server) handleZoneResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uri := req.Params.URI
	zone, err := domain.ParseZone(strings.TrimPrefix(uri, "ads://zone/"))
	if err != nil {
		return nil, fmt.Errorf("could not extract zone from URI %s: %w", uri, err)
	}
	return jsonContents(uri, s.console.View().Zones[zone])
}
