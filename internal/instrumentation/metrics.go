package instrumentation

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys
const (
	attrOperation = "operation"
	attrStatus    = "status"
	attrResult    = "result"
	attrTool      = "tool"
	attrModel     = "model"
	attrDirection = "direction"
)

// Metrics provides methods for recording observability metrics.
// A zero Metrics is a valid no-op recorder.
type Metrics struct {
	// Tool-routing API metrics
	apiRequestsTotal   metric.Int64Counter
	apiRequestDuration metric.Float64Histogram

	// OAuth metrics
	oauthAuthTotal metric.Int64Counter

	// MCP tool metrics
	toolInvocationsTotal metric.Int64Counter
	toolDuration         metric.Float64Histogram

	// Agent metrics
	agentTurnsTotal  metric.Int64Counter
	agentTokensTotal metric.Int64Counter
	agentCostTotal   metric.Float64Counter
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}

	var err error

	m.apiRequestsTotal, err = meter.Int64Counter(
		"composio_api_requests_total",
		metric.WithDescription("Total number of tool-routing API requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create composio_api_requests_total counter: %w", err)
	}

	m.apiRequestDuration, err = meter.Float64Histogram(
		"composio_api_request_duration_seconds",
		metric.WithDescription("Tool-routing API request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create composio_api_request_duration_seconds histogram: %w", err)
	}

	m.oauthAuthTotal, err = meter.Int64Counter(
		"oauth_auth_total",
		metric.WithDescription("Total number of OAuth authorization attempts"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create oauth_auth_total counter: %w", err)
	}

	m.toolInvocationsTotal, err = meter.Int64Counter(
		"mcp_tool_invocations_total",
		metric.WithDescription("Total number of MCP tool invocations"),
		metric.WithUnit("{invocation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mcp_tool_invocations_total counter: %w", err)
	}

	m.toolDuration, err = meter.Float64Histogram(
		"mcp_tool_duration_seconds",
		metric.WithDescription("MCP tool execution duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mcp_tool_duration_seconds histogram: %w", err)
	}

	m.agentTurnsTotal, err = meter.Int64Counter(
		"agent_turns_total",
		metric.WithDescription("Total number of model turns"),
		metric.WithUnit("{turn}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create agent_turns_total counter: %w", err)
	}

	m.agentTokensTotal, err = meter.Int64Counter(
		"agent_tokens_total",
		metric.WithDescription("Total number of model tokens by direction"),
		metric.WithUnit("{token}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create agent_tokens_total counter: %w", err)
	}

	m.agentCostTotal, err = meter.Float64Counter(
		"agent_cost_usd_total",
		metric.WithDescription("Estimated model cost in USD"),
		metric.WithUnit("USD"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create agent_cost_usd_total counter: %w", err)
	}

	return m, nil
}

// RecordAPIRequest records a tool-routing API request with operation, status and duration.
func (m *Metrics) RecordAPIRequest(ctx context.Context, operation, status string, duration time.Duration) {
	if m == nil || m.apiRequestsTotal == nil || m.apiRequestDuration == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrOperation, operation),
		attribute.String(attrStatus, status),
	}

	m.apiRequestsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.apiRequestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordOAuthAuth records an OAuth authorization attempt.
// Result should be one of: "success", "failure", "timeout"
func (m *Metrics) RecordOAuthAuth(ctx context.Context, result string) {
	if m == nil || m.oauthAuthTotal == nil {
		return
	}

	m.oauthAuthTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrResult, result)))
}

// RecordToolInvocation records an MCP tool invocation with tool name, status, and duration.
func (m *Metrics) RecordToolInvocation(ctx context.Context, toolName, status string, duration time.Duration) {
	if m == nil || m.toolInvocationsTotal == nil || m.toolDuration == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrTool, toolName),
		attribute.String(attrStatus, status),
	}

	m.toolInvocationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.toolDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordAgentTurn records one model turn and its token usage.
func (m *Metrics) RecordAgentTurn(ctx context.Context, model string, inputTokens, outputTokens int64) {
	if m == nil || m.agentTurnsTotal == nil || m.agentTokensTotal == nil {
		return
	}

	modelAttr := attribute.String(attrModel, model)
	m.agentTurnsTotal.Add(ctx, 1, metric.WithAttributes(modelAttr))
	m.agentTokensTotal.Add(ctx, inputTokens, metric.WithAttributes(modelAttr, attribute.String(attrDirection, TokensInput)))
	m.agentTokensTotal.Add(ctx, outputTokens, metric.WithAttributes(modelAttr, attribute.String(attrDirection, TokensOutput)))
}

// RecordAgentCost adds the estimated cost of a completed query.
func (m *Metrics) RecordAgentCost(ctx context.Context, model string, costUSD float64) {
	if m == nil || m.agentCostTotal == nil {
		return
	}

	m.agentCostTotal.Add(ctx, costUSD, metric.WithAttributes(attribute.String(attrModel, model)))
}
