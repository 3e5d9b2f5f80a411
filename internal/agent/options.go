package agent

import (
	"context"
	"log/slog"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/gmailagent/internal/instrumentation"
)

// PermissionMode controls whether tool calls need approval.
type PermissionMode string

const (
	// PermissionDefault asks CanUseTool before every call; calls are denied
	// when no callback is set.
	PermissionDefault PermissionMode = "default"

	// PermissionBypass runs every tool call without asking.
	PermissionBypass PermissionMode = "bypassPermissions"

	// PermissionPlan denies every tool call.
	PermissionPlan PermissionMode = "plan"
)

// Defaults applied by NewClient.
const (
	DefaultModel     = "claude-sonnet-4-5"
	DefaultMaxTokens = 4096
	DefaultMaxTurns  = 20
)

// PermissionResult is the answer of a CanUseToolFunc.
type PermissionResult struct {
	Allow bool
	// Message is returned to the model when the call is denied.
	Message string
}

// CanUseToolFunc decides whether a tool call may run.
type CanUseToolFunc func(ctx context.Context, toolName string, input map[string]any) (PermissionResult, error)

// Options configure a Client.
type Options struct {
	SystemPrompt   string
	PermissionMode PermissionMode
	// MCPServers maps a server key to the server whose tools the model may call.
	MCPServers map[string]*mcpserver.MCPServer
	CanUseTool CanUseToolFunc

	Model     string
	MaxTokens int64
	MaxTurns  int

	// APIKey is the Anthropic API key. When empty the SDK reads
	// ANTHROPIC_API_KEY itself.
	APIKey string

	Logger  *slog.Logger
	Metrics *instrumentation.Metrics
}

func (o Options) withDefaults() Options {
	if o.PermissionMode == "" {
		o.PermissionMode = PermissionDefault
	}
	if o.Model == "" {
		o.Model = DefaultModel
	}
	if o.MaxTokens <= 0 {
		o.MaxTokens = DefaultMaxTokens
	}
	if o.MaxTurns <= 0 {
		o.MaxTurns = DefaultMaxTurns
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}
