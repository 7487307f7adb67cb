package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerPromptTools() {
	// ── get_prompt ─────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("get_prompt",
		mcp.WithDescription("Show the question the console is waiting on, if any"),
		mcp.WithReadOnlyHintAnnotation(true),
	), s.handleGetPrompt)

	// ── answer_prompt ──────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("answer_prompt",
		mcp.WithDescription("Answer the pending prompt. Confirm prompts take yes or no, choice prompts take a choice tag, text prompts take free text."),
		mcp.WithString("promptId", mcp.Description("Prompt ID"), mcp.Required()),
		mcp.WithString("value", mcp.Description("Answer"), mcp.Required()),
	), s.handleAnswerPrompt)

	// ── cancel_prompt ──────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("cancel_prompt",
		mcp.WithDescription("Press cancel on the pending prompt"),
		mcp.WithString("promptId", mcp.Description("Prompt ID"), mcp.Required()),
	), s.handleCancelPrompt)

	// ── dismiss_prompt ─────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("dismiss_prompt",
		mcp.WithDescription("Close the pending prompt without answering; the waiting action is abandoned"),
		mcp.WithString("promptId", mcp.Description("Prompt ID"), mcp.Required()),
	), s.handleDismissPrompt)

	// ── get_operation ──────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("get_operation",
		mcp.WithDescription("Show the state of an interactive operation started by another tool"),
		mcp.WithString("operationId", mcp.Description("Operation ID"), mcp.Required()),
		mcp.WithReadOnlyHintAnnotation(true),
	), s.handleGetOperation)

	// ── list_operations ────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("list_operations",
		mcp.WithDescription("List recent interactive operations"),
		mcp.WithReadOnlyHintAnnotation(true),
	), s.handleListOperations)
}

func (s *Server) handleGetPrompt(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, ok := s.console.PendingPrompt()
	if !ok {
		return textResult("No prompt pending"), nil
	}
	return jsonResult(p)
}

func (s *Server) handleAnswerPrompt(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("promptId")
	if err != nil {
		return nil, err
	}
	value, err := req.RequireString("value")
	if err != nil {
		return nil, err
	}
	if err := s.console.AnswerPrompt(ctx, id, value); err != nil {
		return nil, fmt.Errorf("answer prompt: %w", err)
	}
	return s.afterPrompt()
}

func (s *Server) handleCancelPrompt(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("promptId")
	if err != nil {
		return nil, err
	}
	if err := s.console.CancelPrompt(ctx, id); err != nil {
		return nil, fmt.Errorf("cancel prompt: %w", err)
	}
	return s.afterPrompt()
}

func (s *Server) handleDismissPrompt(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("promptId")
	if err != nil {
		return nil, err
	}
	if err := s.console.DismissPrompt(ctx, id); err != nil {
		return nil, fmt.Errorf("dismiss prompt: %w", err)
	}
	return s.afterPrompt()
}

// afterPrompt reports the operations still running so the agent can see
// whether its answer produced another question.
func (s *Server) afterPrompt() (*mcp.CallToolResult, error) {
	var running []Operation
	for _, op := range s.ops.List() {
		if op.State == OpRunning {
			running = append(running, op)
		}
	}
	if len(running) == 0 {
		return textResult("Prompt resolved"), nil
	}
	return jsonResult(running)
}

func (s *Server) handleGetOperation(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("operationId")
	if err != nil {
		return nil, err
	}
	op, err := s.ops.Get(id)
	if err != nil {
		return nil, fmt.Errorf("get operation %s: %w", id, err)
	}
	return jsonResult(op)
}

func (s *Server) handleListOperations(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.ops.List())
}
