package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/loxone-mcp/bridge/internal/tools"
)

// serverName is serverInfo.name in the initialize handshake, per spec.md
// §6 ("loxone-mcp-server, or equivalent stable identifier").
const serverName = "loxone-mcp-server"

// ServerVersion is surfaced in both transports' initialize handshake.
var ServerVersion = "0.1.0"

// RunStdio runs the MCP server over stdin/stdout until ctx is canceled or
// a SIGINT/SIGTERM arrives, per spec.md §4.11 mode 1. Grounded on
// cmd/subnetree/cmd_mcp.go's runMCPStdio/registerStdioTools pattern,
// generalized to register C10's full tool roster from one data-driven
// registry instead of one AddTool call site per tool.
func RunStdio(ctx context.Context, tc *tools.ToolContext, logger *zap.Logger) error {
	server := sdkmcp.NewServer(
		&sdkmcp.Implementation{Name: serverName, Version: ServerVersion},
		nil,
	)
	registerStdioTools(server, tc)

	runCtx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info("mcp stdio transport starting", zap.String("server", serverName))
	err := server.Run(runCtx, &sdkmcp.StdioTransport{})
	if err != nil {
		return fmt.Errorf("mcp stdio server: %w", err)
	}
	return nil
}

// registerStdioTools binds every ToolSpec from BuildRegistry onto server
// via sdkmcp.AddTool. All 41 tools share one generic instantiation
// (args decoded as map[string]any) since the registry, not per-call Go
// types, is the roster's source of truth; each tool's real argument shape
// still drives decodeArgs inside spec.Call.
func registerStdioTools(server *sdkmcp.Server, tc *tools.ToolContext) {
	for _, spec := range BuildRegistry(tc) {
		spec := spec
		sdkmcp.AddTool(server, &sdkmcp.Tool{
			Name:        spec.Name,
			Description: spec.Description,
		}, func(ctx context.Context, _ *sdkmcp.CallToolRequest, args map[string]any) (*sdkmcp.CallToolResult, any, error) {
			raw, err := json.Marshal(args)
			if err != nil {
				return stdioErrorResult(fmt.Sprintf("failed to marshal arguments: %v", err)), nil, nil
			}
			result, err := spec.Call(ctx, raw)
			if err != nil {
				return stdioErrorResult(fmt.Sprintf("invalid arguments: %v", err)), nil, nil
			}
			return stdioTextResult(stdioJSON(result)), nil, nil
		})
	}
}

func stdioTextResult(text string) *sdkmcp.CallToolResult {
	return &sdkmcp.CallToolResult{
		Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: text}},
	}
}

func stdioErrorResult(msg string) *sdkmcp.CallToolResult {
	return &sdkmcp.CallToolResult{
		Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: msg}},
		IsError: true,
	}
}

func stdioJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return `{"error":"failed to marshal response"}`
	}
	return string(data)
}
