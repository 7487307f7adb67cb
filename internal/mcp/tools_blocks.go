package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

const zoneDescription = "Zone: top, middle or bottom"

func (s *Server) registerBlockTools() {
	// ── add_block ──────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("add_block",
		mcp.WithDescription("Append an empty ad block to a zone"),
		mcp.WithString("zone", mcp.Description(zoneDescription), mcp.Required()),
	), s.handleAddBlock)

	// ── quick_add ──────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("quick_add",
		mcp.WithDescription("Ask for a zone, then append an empty block there. Returns an operation waiting on a text prompt."),
	), s.handleQuickAdd)

	// ── remove_block ───────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("remove_block",
		mcp.WithDescription("Remove a block from the editor only. The stored ad is untouched until the zone is saved."),
		mcp.WithString("zone", mcp.Description(zoneDescription), mcp.Required()),
		mcp.WithString("key", mcp.Description("Block key from get_view"), mcp.Required()),
	), s.handleRemoveBlock)

	// ── delete_block (destructive) ─────────────────────
	s.mcp.AddTool(mcp.NewTool("delete_block",
		mcp.WithDescription("🛑 DESTRUCTIVE: Delete a stored ad permanently. Asks the user to confirm."),
		mcp.WithString("zone", mcp.Description(zoneDescription), mcp.Required()),
		mcp.WithString("key", mcp.Description("Block key from get_view"), mcp.Required()),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{DestructiveHint: boolPtr(true)}),
	), s.handleDeleteBlock)

	// ── reorder_blocks ─────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("reorder_blocks",
		mcp.WithDescription("Move the block at index from to index to within a zone"),
		mcp.WithString("zone", mcp.Description(zoneDescription), mcp.Required()),
		mcp.WithNumber("from", mcp.Description("Current index"), mcp.Required()),
		mcp.WithNumber("to", mcp.Description("New index"), mcp.Required()),
	), s.handleReorderBlocks)

	// ── set_content ────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("set_content",
		mcp.WithDescription("Replace a block's HTML content"),
		mcp.WithString("zone", mcp.Description(zoneDescription), mcp.Required()),
		mcp.WithString("key", mcp.Description("Block key from get_view"), mcp.Required()),
		mcp.WithString("html", mcp.Description("New HTML content"), mcp.Required()),
	), s.handleSetContent)

	// ── select_text ────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("select_text",
		mcp.WithDescription("Place the selection inside a block. Paths are comma-separated child indexes from the block root, e.g. \"0,0\" for the text of the first paragraph."),
		mcp.WithString("key", mcp.Description("Block key"), mcp.Required()),
		mcp.WithString("startPath", mcp.Description("Path of the start node"), mcp.Required()),
		mcp.WithNumber("startOffset", mcp.Description("Character offset in the start node")),
		mcp.WithString("endPath", mcp.Description("Path of the end node (optional, collapses onto start when omitted)")),
		mcp.WithNumber("endOffset", mcp.Description("Character offset in the end node")),
	), s.handleSelectText)

	// ── pick_image ─────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("pick_image",
		mcp.WithDescription("Mark an image as the target of link and resize tools"),
		mcp.WithString("key", mcp.Description("Block key"), mcp.Required()),
		mcp.WithString("path", mcp.Description("Path of the image node"), mcp.Required()),
	), s.handlePickImage)

	// ── blur ───────────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("blur",
		mcp.WithDescription("Drop the current selection"),
	), s.handleBlur)

	// ── save_zone ──────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("save_zone",
		mcp.WithDescription("Persist one zone of the active site. May ask for confirmation when every block is empty."),
		mcp.WithString("zone", mcp.Description(zoneDescription), mcp.Required()),
	), s.handleSaveZone)

	// ── save_all ───────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("save_all",
		mcp.WithDescription("Confirm once, then persist every zone of the active site"),
	), s.handleSaveAll)
}

// ── Handlers ───────────────────────────────────────────────

func (s *Server) handleAddBlock(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	zone, err := zoneArg(req)
	if err != nil {
		return nil, err
	}
	b, err := s.console.Add(zone)
	if err != nil {
		return nil, fmt.Errorf("add block: %w", err)
	}
	return jsonResult(b)
}

func (s *Server) handleQuickAdd(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.ops.Start("quick_add", func(ctx context.Context) (any, error) {
		b, ok, err := s.console.QuickAdd(ctx)
		if err != nil || !ok {
			return map[string]any{"added": false}, err
		}
		return map[string]any{"added": true, "block": b}, nil
	}))
}

func (s *Server) handleRemoveBlock(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	zone, err := zoneArg(req)
	if err != nil {
		return nil, err
	}
	key, err := keyArg(req)
	if err != nil {
		return nil, err
	}
	if err := s.console.Remove(zone, key); err != nil {
		return nil, fmt.Errorf("remove block: %w", err)
	}
	return textResult(fmt.Sprintf("Removed %s from %s", key, zone)), nil
}

func (s *Server) handleDeleteBlock(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	zone, err := zoneArg(req)
	if err != nil {
		return nil, err
	}
	key, err := keyArg(req)
	if err != nil {
		return nil, err
	}
	return jsonResult(s.ops.Start("delete_block", func(ctx context.Context) (any, error) {
		return nil, s.console.Delete(ctx, zone, key)
	}))
}

func (s *Server) handleReorderBlocks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	zone, err := zoneArg(req)
	if err != nil {
		return nil, err
	}
	from, err := req.RequireInt("from")
	if err != nil {
		return nil, err
	}
	to, err := req.RequireInt("to")
	if err != nil {
		return nil, err
	}
	if err := s.console.Reorder(zone, from, to); err != nil {
		return nil, fmt.Errorf("reorder: %w", err)
	}
	return jsonResult(s.console.View().Zones[zone])
}

func (s *Server) handleSetContent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	zone, err := zoneArg(req)
	if err != nil {
		return nil, err
	}
	key, err := keyArg(req)
	if err != nil {
		return nil, err
	}
	html, err := req.RequireString("html")
	if err != nil {
		return nil, err
	}
	if err := s.console.SetContent(zone, key, html); err != nil {
		return nil, fmt.Errorf("set content: %w", err)
	}
	return textResult("Content updated"), nil
}

func (s *Server) handleSelectText(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	key, err := keyArg(req)
	if err != nil {
		return nil, err
	}
	start, err := parsePath(req.GetString("startPath", ""))
	if err != nil {
		return nil, err
	}
	end, err := parsePath(req.GetString("endPath", ""))
	if err != nil {
		return nil, err
	}
	if err := s.console.Select(key, start, req.GetInt("startOffset", 0), end, req.GetInt("endOffset", 0)); err != nil {
		return nil, fmt.Errorf("select: %w", err)
	}
	return textResult("Selection set"), nil
}

func (s *Server) handlePickImage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	key, err := keyArg(req)
	if err != nil {
		return nil, err
	}
	path, err := parsePath(req.GetString("path", ""))
	if err != nil {
		return nil, err
	}
	if err := s.console.Pick(key, path); err != nil {
		return nil, fmt.Errorf("pick image: %w", err)
	}
	return textResult("Image picked"), nil
}

func (s *Server) handleBlur(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.console.Blur()
	return textResult("Selection cleared"), nil
}

func (s *Server) handleSaveZone(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	zone, err := zoneArg(req)
	if err != nil {
		return nil, err
	}
	return jsonResult(s.ops.Start("save_zone", func(ctx context.Context) (any, error) {
		if err := s.console.Save(ctx, zone); err != nil {
			return nil, err
		}
		return s.console.View().Zones[zone], nil
	}))
}

func (s *Server) handleSaveAll(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.ops.Start("save_all", func(ctx context.Context) (any, error) {
		if err := s.console.SaveAll(ctx); err != nil {
			return nil, err
		}
		return s.console.View().Zones, nil
	}))
}
