package mcpserver

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"adsconsole/internal/content"
	"adsconsole/internal/domain"
)

// zoneArg reads the required "zone" argument.
func zoneArg(req mcp.CallToolRequest) (domain.Zone, error) {
	return domain.ParseZone(req.GetString("zone", ""))
}

// keyArg reads the required "key" argument.
func keyArg(req mcp.CallToolRequest) (string, error) {
	key := req.GetString("key", "")
	if key == "" {
		return "", fmt.Errorf("key is required")
	}
	return key, nil
}

// parsePath turns "0,2,1" into a node path. An empty string is the block root.
func parsePath(s string) (content.Path, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	path := make(content.Path, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || n < 0 {
			return nil, fmt.Errorf("bad path %q: indexes must be non-negative integers", s)
		}
		path = append(path, n)
	}
	return path, nil
}
