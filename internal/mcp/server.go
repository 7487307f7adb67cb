package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"adsconsole/internal/app"
)

// Server is the MCP server for the ads console.
// It exposes tools, resources, and prompts so AI agents can edit ad zones.
type Server struct {
	mcp     *server.MCPServer
	console *app.Console
	ops     *Operations
	log     *zap.Logger
}

// Deps holds all dependencies passed from main to the MCP server.
type Deps struct {
	Console  *app.Console
	Notifier *Notifier // optional, attached to the new server
	Logger   *zap.Logger
	// Wait bounds how long an interactive tool blocks before handing back an
	// operation id. Zero means one second.
	Wait time.Duration
}

// New creates and configures a new MCP server with all tools and resources.
// ctx bounds the lifetime of interactive operations.
func New(ctx context.Context, deps Deps) *Server {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	wait := deps.Wait
	if wait <= 0 {
		wait = time.Second
	}
	s := &Server{
		console: deps.Console,
		log:     log.Named("mcp"),
	}
	var emitter EventEmitter
	if deps.Notifier != nil {
		emitter = deps.Notifier
	}
	s.ops = NewOperations(ctx, wait, deps.Console.PendingPrompt, emitter, s.log)

	s.mcp = server.NewMCPServer(
		"adsconsole-mcp",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, false),
		server.WithPromptCapabilities(true),
		server.WithLogging(),
	)
	if deps.Notifier != nil {
		deps.Notifier.Attach(s.mcp)
	}

	s.registerSiteTools()
	s.registerBlockTools()
	s.registerAnnotateTools()
	s.registerPromptTools()
	s.registerResources()
	s.registerPrompts()

	return s
}

// Serve speaks MCP over stdin/stdout until ctx is done.
func (s *Server) Serve(ctx context.Context) error {
	s.log.Info("starting stdio server")
	return server.NewStdioServer(s.mcp).Listen(ctx, os.Stdin, os.Stdout)
}

// ── Helpers ────────────────────────────────────────────────

// textResult creates a simple text tool result.
func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

// jsonResult serializes v to JSON and wraps it in a text tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return textResult(string(data)), nil
}

func boolPtr(v bool) *bool { return &v }
