package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerAnnotateTools() {
	// ── attach_link ────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("attach_link",
		mcp.WithDescription("Wrap the targeted image (selected, picked, or else the block's last image) in a contact link. Asks for a platform and an address."),
		mcp.WithString("key", mcp.Description("Block key"), mcp.Required()),
	), s.handleAttachLink)

	// ── detach_link ────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("detach_link",
		mcp.WithDescription("Remove the link around the targeted image"),
		mcp.WithString("key", mcp.Description("Block key"), mcp.Required()),
	), s.handleDetachLink)

	// ── insert_image ───────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("insert_image",
		mcp.WithDescription("Insert an image at the selection start, optionally linked. Asks whether to add a link."),
		mcp.WithString("key", mcp.Description("Block key"), mcp.Required()),
		mcp.WithString("src", mcp.Description("Image source, usually a data: URL"), mcp.Required()),
	), s.handleInsertImage)

	// ── resize_image ───────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("resize_image",
		mcp.WithDescription("Set the display width of the targeted image"),
		mcp.WithString("key", mcp.Description("Block key"), mcp.Required()),
		mcp.WithNumber("width", mcp.Description("Width in pixels"), mcp.Required()),
	), s.handleResizeImage)

	// ── set_color ──────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("set_color",
		mcp.WithDescription("Colour the selected text. Asks for a colour name or hex value."),
		mcp.WithString("key", mcp.Description("Block key"), mcp.Required()),
	), s.handleSetColor)

	// ── insert_emoji ───────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("insert_emoji",
		mcp.WithDescription("Insert an emoji at the selection start. Asks for the emoji."),
		mcp.WithString("key", mcp.Description("Block key"), mcp.Required()),
	), s.handleInsertEmoji)
}

// startEdit runs an in-place edit that may be abandoned by the user.
func (s *Server) startEdit(tool, key string, fn func(ctx context.Context) (bool, error)) (*mcp.CallToolResult, error) {
	return jsonResult(s.ops.Start(tool, func(ctx context.Context) (any, error) {
		applied, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		return map[string]any{"applied": applied, "key": key}, nil
	}))
}

func (s *Server) handleAttachLink(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	key, err := keyArg(req)
	if err != nil {
		return nil, err
	}
	return s.startEdit("attach_link", key, func(ctx context.Context) (bool, error) {
		return s.console.AttachLink(ctx, key)
	})
}

func (s *Server) handleDetachLink(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	key, err := keyArg(req)
	if err != nil {
		return nil, err
	}
	if err := s.console.DetachLink(ctx, key); err != nil {
		return nil, fmt.Errorf("detach link: %w", err)
	}
	return textResult("Link removed"), nil
}

func (s *Server) handleInsertImage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	key, err := keyArg(req)
	if err != nil {
		return nil, err
	}
	src, err := req.RequireString("src")
	if err != nil {
		return nil, err
	}
	return s.startEdit("insert_image", key, func(ctx context.Context) (bool, error) {
		return s.console.InsertImage(ctx, key, src)
	})
}

func (s *Server) handleResizeImage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	key, err := keyArg(req)
	if err != nil {
		return nil, err
	}
	width, err := req.RequireInt("width")
	if err != nil {
		return nil, err
	}
	if err := s.console.ResizeImage(ctx, key, width); err != nil {
		return nil, fmt.Errorf("resize image: %w", err)
	}
	return textResult(fmt.Sprintf("Image width set to %dpx", width)), nil
}

func (s *Server) handleSetColor(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	key, err := keyArg(req)
	if err != nil {
		return nil, err
	}
	return s.startEdit("set_color", key, func(ctx context.Context) (bool, error) {
		return s.console.SetColor(ctx, key)
	})
}

func (s *Server) handleInsertEmoji(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	key, err := keyArg(req)
	if err != nil {
		return nil, err
	}
	return s.startEdit("insert_emoji", key, func(ctx context.Context) (bool, error) {
		return s.console.InsertEmoji(ctx, key)
	})
}
