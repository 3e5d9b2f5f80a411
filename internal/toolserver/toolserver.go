// Package toolserver exposes tool-routing tools as an in-process MCP server.
//
// Every descriptor returned by a session is registered with its own JSON
// schema; calls are forwarded to the session's remote execution endpoint.
package toolserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/gmailagent/internal/composio"
	"github.com/teemow/gmailagent/internal/instrumentation"
	"github.com/teemow/gmailagent/internal/logging"
)

// Default server identity.
const (
	DefaultName    = "composio"
	DefaultVersion = "1.0.0"
)

var emptyObjectSchema = json.RawMessage(`{"type":"object","properties":{}}`)

// Executor runs a remote tool. *composio.Session satisfies it.
type Executor interface {
	ExecuteTool(ctx context.Context, name string, args map[string]any) (*composio.ExecuteResult, error)
}

type settings struct {
	logger  *slog.Logger
	metrics *instrumentation.Metrics
}

// Option configures New.
type Option func(*settings)

// WithLogger sets the logger used for tool invocations.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics sets the metrics recorder used for tool invocations.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(s *settings) {
		s.metrics = m
	}
}

// New builds an MCP server named name/version serving every tool in tools.
func New(name, version string, tools []composio.Tool, exec Executor, opts ...Option) *mcpserver.MCPServer {
	s := &settings{logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}

	srv := mcpserver.NewMCPServer(name, version,
		mcpserver.WithToolCapabilities(false),
	)

	for _, t := range tools {
		schema := t.InputSchema
		if len(schema) == 0 || string(schema) == "null" {
			schema = emptyObjectSchema
		}
		tool := mcp.NewToolWithRawSchema(t.Name, t.Description, schema)
		srv.AddTool(tool, instrumentedHandler(t.Name, s, forward(t.Name, exec)))
	}

	s.logger.Debug("tool server built",
		slog.String("server", name),
		slog.Int("tools", len(tools)))

	return srv
}

// forward returns a handler that executes the named tool remotely.
// Failures are reported as tool errors so the model can see them.
func forward(name string, exec Executor) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result, err := exec.ExecuteTool(ctx, name, request.GetArguments())
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to execute %s: %v", name, err)), nil
		}
		if !result.Successful {
			msg := result.Error
			if msg == "" {
				msg = "tool reported failure"
			}
			return mcp.NewToolResultError(fmt.Sprintf("%s failed: %s", name, msg)), nil
		}
		if len(result.Data) == 0 {
			return mcp.NewToolResultText("{}"), nil
		}
		return mcp.NewToolResultText(string(result.Data)), nil
	}
}

// instrumentedHandler wraps a tool handler with a span, metrics and a log line.
func instrumentedHandler(toolName string, s *settings, handler mcpserver.ToolHandlerFunc) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ctx, span := instrumentation.StartToolSpan(ctx, toolName)
		defer span.End()

		start := time.Now()
		result, err := handler(ctx, request)
		duration := time.Since(start)

		status := instrumentation.StatusSuccess
		if err != nil || (result != nil && result.IsError) {
			status = instrumentation.StatusError
			instrumentation.SetSpanError(span, err)
		} else {
			instrumentation.SetSpanSuccess(span)
		}

		s.metrics.RecordToolInvocation(ctx, toolName, status, duration)
		logging.WithTool(s.logger, toolName).Info("tool invoked",
			logging.Status(status),
			slog.Duration(logging.KeyDuration, duration),
			logging.Err(err))

		return result, err
	}
}
