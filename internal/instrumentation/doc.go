// Package instrumentation provides OpenTelemetry metrics and tracing for
// gmailagent.
//
// Instrumentation is off by default; a single CLI invocation has nothing to
// scrape. When enabled, metrics and spans are flushed on Shutdown.
//
// # Metrics
//
// Tool-routing API:
//   - composio_api_requests_total: requests by operation and status
//   - composio_api_request_duration_seconds: request latency
//
// Authorization:
//   - oauth_auth_total: authorization attempts by result (success, failure, timeout)
//
// Tool server:
//   - mcp_tool_invocations_total: tool calls by tool name and status
//   - mcp_tool_duration_seconds: tool call latency
//
// Agent:
//   - agent_turns_total: model turns by model
//   - agent_tokens_total: tokens by model and direction
//   - agent_cost_usd_total: estimated cost by model
//
// # Configuration
//
//   - INSTRUMENTATION_ENABLED: enable instrumentation (default: false)
//   - METRICS_EXPORTER: prometheus, otlp, stdout (default: stdout)
//   - TRACING_EXPORTER: otlp, stdout, none (default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP endpoint for traces/metrics
//   - PROMETHEUS_PUSHGATEWAY_URL: Pushgateway target for the prometheus exporter
//
// Stdout exporters write to stderr so they never interleave with query output.
//
// # Example Usage
//
//	provider, err := instrumentation.NewProvider(ctx, instrumentation.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	defer provider.Shutdown(ctx)
//
//	provider.Metrics().RecordToolInvocation(ctx, "GMAIL_FETCH_EMAILS", "success", time.Since(start))
package instrumentation
