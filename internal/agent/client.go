package agent

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/client"

	"github.com/teemow/gmailagent/internal/instrumentation"
	"github.com/teemow/gmailagent/internal/logging"
)

var (
	// ErrNotConnected is returned when Query is called before Connect or after Close.
	ErrNotConnected = errors.New("agent: client not connected")

	// ErrQueryPending is returned when Query is called while the previous
	// prompt's response has not been received.
	ErrQueryPending = errors.New("agent: a query is already pending")

	// ErrNoQuery is yielded by ReceiveResponse when no prompt is queued.
	ErrNoQuery = errors.New("agent: no query to answer")
)

// Client is a conversational client bound to one conversation.
type Client struct {
	opts  Options
	model model

	clients   []*client.Client
	tools     map[string]*mcpTool
	toolOrder []anthropic.ToolParam

	sessionID string
	connected bool
	closed    bool
	pending   string
	hasQuery  bool
	history   []anthropic.MessageParam
}

// NewClient returns an unconnected client.
func NewClient(opts Options) *Client {
	opts = opts.withDefaults()
	return &Client{
		opts:  opts,
		model: newAnthropicModel(opts.APIKey),
	}
}

// Connect opens an in-process MCP session to every configured server and
// collects their tools.
func (c *Client) Connect(ctx context.Context) error {
	if c.closed {
		return ErrNotConnected
	}
	if c.connected {
		return nil
	}

	c.tools = make(map[string]*mcpTool)
	for _, name := range sortedServers(c.opts.MCPServers) {
		mc, err := connectServer(ctx, c.opts.MCPServers[name])
		if err != nil {
			_ = c.closeClients()
			return fmt.Errorf("connect mcp server %q: %w", name, err)
		}
		c.clients = append(c.clients, mc)

		tools, err := listServerTools(ctx, name, mc)
		if err != nil {
			_ = c.closeClients()
			return fmt.Errorf("mcp server %q: %w", name, err)
		}
		for _, t := range tools {
			c.tools[t.qualified] = t
			c.toolOrder = append(c.toolOrder, t.param)
		}
	}

	c.sessionID = uuid.NewString()
	c.connected = true
	c.opts.Logger.Debug("agent connected",
		slog.String(logging.KeySession, c.sessionID),
		slog.Int("servers", len(c.clients)),
		slog.Int("tools", len(c.toolOrder)))
	return nil
}

// Query queues prompt as the next user turn.
func (c *Client) Query(_ context.Context, prompt string) error {
	if !c.connected || c.closed {
		return ErrNotConnected
	}
	if c.hasQuery {
		return ErrQueryPending
	}
	c.pending = prompt
	c.hasQuery = true
	return nil
}

// ReceiveResponse runs the queued prompt and yields the resulting messages.
// Each model turn is requested only when the consumer asks for the next
// message; the sequence ends after a *ResultMessage or an error.
func (c *Client) ReceiveResponse(ctx context.Context) iter.Seq2[Message, error] {
	return func(yield func(Message, error) bool) {
		if !c.connected || c.closed {
			yield(nil, ErrNotConnected)
			return
		}
		if !c.hasQuery {
			yield(nil, ErrNoQuery)
			return
		}
		prompt := c.pending
		c.pending, c.hasQuery = "", false

		c.run(ctx, prompt, yield)
	}
}

func (c *Client) run(ctx context.Context, prompt string, yield func(Message, error) bool) {
	start := time.Now()
	var (
		usage   Usage
		apiTime time.Duration
		last    string
	)

	c.history = append(c.history, anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)))

	result := func(turns int, subtype string) *ResultMessage {
		return &ResultMessage{
			Subtype:       subtype,
			IsError:       subtype != ResultSuccess,
			DurationMS:    time.Since(start).Milliseconds(),
			DurationAPIMS: apiTime.Milliseconds(),
			NumTurns:      turns,
			SessionID:     c.sessionID,
			Result:        last,
			Usage:         usage,
			TotalCostUSD:  c.cost(ctx, usage),
		}
	}

	for turn := 1; ; turn++ {
		if turn > c.opts.MaxTurns {
			yield(result(turn-1, ResultErrorMaxTurns), nil)
			return
		}

		resp, took, err := c.turn(ctx, turn)
		apiTime += took
		if err != nil {
			yield(nil, err)
			return
		}
		usage.Add(resp.Usage)
		if text := joinText(resp.Blocks); text != "" {
			last = text
		}

		if !yield(&AssistantMessage{Model: c.opts.Model, Content: resp.Blocks}, nil) {
			return
		}

		var uses []ToolUseBlock
		for _, b := range resp.Blocks {
			if u, ok := b.(ToolUseBlock); ok {
				uses = append(uses, u)
			}
		}

		if len(uses) == 0 {
			if p, ok := assistantParam(resp.Blocks); ok {
				c.history = append(c.history, p)
			}
			yield(result(turn, ResultSuccess), nil)
			return
		}

		results := make([]ContentBlock, 0, len(uses))
		for _, u := range uses {
			results = append(results, c.useTool(ctx, u))
		}
		if p, ok := assistantParam(resp.Blocks); ok {
			c.history = append(c.history, p)
		}
		c.history = append(c.history, toolResultsParam(results))

		if !yield(&UserMessage{Content: results}, nil) {
			return
		}
	}
}

// turn runs one model turn with the current history.
func (c *Client) turn(ctx context.Context, n int) (*turnResponse, time.Duration, error) {
	ctx, span := instrumentation.StartTurnSpan(ctx, c.opts.Model, n)
	defer span.End()

	start := time.Now()
	resp, err := c.model.CreateTurn(ctx, turnRequest{
		Model:     c.opts.Model,
		MaxTokens: c.opts.MaxTokens,
		System:    c.opts.SystemPrompt,
		Messages:  c.history,
		Tools:     c.toolOrder,
	})
	took := time.Since(start)
	if err != nil {
		instrumentation.SetSpanError(span, err)
		c.opts.Logger.Error("model turn failed",
			slog.Int("turn", n),
			slog.Duration(logging.KeyDuration, took),
			logging.Err(err))
		return nil, took, fmt.Errorf("turn %d: %w", n, err)
	}
	instrumentation.SetSpanSuccess(span)

	c.opts.Metrics.RecordAgentTurn(ctx, c.opts.Model, resp.Usage.InputTokens, resp.Usage.OutputTokens)
	c.opts.Logger.Debug("model turn",
		slog.Int("turn", n),
		slog.String("stop_reason", resp.StopReason),
		slog.Int64("input_tokens", resp.Usage.InputTokens),
		slog.Int64("output_tokens", resp.Usage.OutputTokens),
		slog.Duration(logging.KeyDuration, took))
	return resp, took, nil
}

// useTool checks permission for u and runs it.
func (c *Client) useTool(ctx context.Context, u ToolUseBlock) ToolResultBlock {
	denied := func(msg string) ToolResultBlock {
		c.opts.Logger.Info("tool call denied", logging.Tool(u.Name), slog.String("reason", msg))
		return ToolResultBlock{ToolUseID: u.ID, Content: msg, IsError: true}
	}

	tool, ok := c.tools[u.Name]
	if !ok {
		return ToolResultBlock{ToolUseID: u.ID, Content: fmt.Sprintf("unknown tool %s", u.Name), IsError: true}
	}

	switch c.opts.PermissionMode {
	case PermissionBypass:
	case PermissionPlan:
		return denied("tool execution is disabled in plan mode")
	default:
		if c.opts.CanUseTool == nil {
			return denied(fmt.Sprintf("permission to use %s was not granted", u.Name))
		}
		decision, err := c.opts.CanUseTool(ctx, u.Name, u.Input)
		if err != nil {
			return denied(fmt.Sprintf("permission check failed: %v", err))
		}
		if !decision.Allow {
			msg := decision.Message
			if msg == "" {
				msg = fmt.Sprintf("permission to use %s was denied", u.Name)
			}
			return denied(msg)
		}
	}

	text, isError, err := tool.call(ctx, u.Input)
	if err != nil {
		c.opts.Logger.Warn("tool call failed", logging.Tool(u.Name), logging.Err(err))
		return ToolResultBlock{ToolUseID: u.ID, Content: err.Error(), IsError: true}
	}
	return ToolResultBlock{ToolUseID: u.ID, Content: text, IsError: isError}
}

func (c *Client) cost(ctx context.Context, usage Usage) *float64 {
	cost := EstimateCost(c.opts.Model, usage)
	if cost != nil {
		c.opts.Metrics.RecordAgentCost(ctx, c.opts.Model, *cost)
	}
	return cost
}

// Close closes every MCP client. It is safe to call more than once.
func (c *Client) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	c.connected = false
	return c.closeClients()
}

func (c *Client) closeClients() error {
	var errs []error
	for _, mc := range c.clients {
		if err := mc.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	c.clients = nil
	return errors.Join(errs...)
}

func joinText(blocks []ContentBlock) string {
	var parts []string
	for _, b := range blocks {
		if t, ok := b.(TextBlock); ok && t.Text != "" {
			parts = append(parts, t.Text)
		}
	}
	return strings.Join(parts, "\n")
}
