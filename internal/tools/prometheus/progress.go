package prometheus

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// progressFunc emits one monotonic progress tick. Progress reporting is
// advisory only; the returned function never fails the calling handler.
type progressFunc func(progress, total int, message string)

// progressReporterFor builds a reporter for the request. When the caller did
// not supply a progress token, or the call is not running inside an MCP
// server session, it returns a no-op.
func progressReporterFor(ctx context.Context, request mcp.CallToolRequest) progressFunc {
	srv := mcpserver.ServerFromContext(ctx)
	meta := request.Params.Meta
	if srv == nil || meta == nil || meta.ProgressToken == nil {
		return func(progress, total int, message string) {}
	}

	token := meta.ProgressToken
	return func(progress, total int, message string) {
		_ = srv.SendNotificationToClient(ctx, "notifications/progress", map[string]any{
			"progressToken": token,
			"progress":      progress,
			"total":         total,
			"message":       message,
		})
	}
}
