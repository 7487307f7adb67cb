package mcpserver

import (
	"context"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

// Notifier forwards console events to connected MCP clients as log
// notifications. It exists before the server does, so the console can be
// built first and the server attached later.
type Notifier struct {
	mu  sync.RWMutex
	srv *server.MCPServer
	log *zap.Logger
}

func NewNotifier(log *zap.Logger) *Notifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &Notifier{log: log.Named("events")}
}

// Attach starts delivering to srv.
func (n *Notifier) Attach(srv *server.MCPServer) {
	n.mu.Lock()
	n.srv = srv
	n.mu.Unlock()
}

func (n *Notifier) Emit(ctx context.Context, event string, data any) {
	n.log.Debug("emit", zap.String("event", event))
	n.mu.RLock()
	srv := n.srv
	n.mu.RUnlock()
	if srv == nil {
		return
	}
	srv.SendNotificationToAllClients("notifications/message", map[string]any{
		"level":  mcp.LoggingLevelInfo,
		"logger": "adsconsole",
		"data":   map[string]any{"event": event, "payload": data},
	})
}
