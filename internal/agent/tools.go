package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

const toolPrefix = "mcp__"

// QualifiedToolName returns the name under which tool of server is exposed
// to the model.
func QualifiedToolName(server, tool string) string {
	return toolPrefix + server + "__" + tool
}

// mcpTool is one tool reachable through an in-process MCP client.
type mcpTool struct {
	qualified string
	name      string
	client    *client.Client
	param     anthropic.ToolParam
}

// connectServer starts and initializes an in-process client for srv.
func connectServer(ctx context.Context, srv *mcpserver.MCPServer) (*client.Client, error) {
	c, err := client.NewInProcessClient(srv)
	if err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}
	if err := c.Start(ctx); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("start client: %w", err)
	}

	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{Name: "gmailagent", Version: "1.0.0"}
	if _, err := c.Initialize(ctx, initReq); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("initialize: %w", err)
	}
	return c, nil
}

// listServerTools lists the tools of one connected server.
func listServerTools(ctx context.Context, server string, c *client.Client) ([]*mcpTool, error) {
	res, err := c.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, fmt.Errorf("list tools: %w", err)
	}

	tools := make([]*mcpTool, 0, len(res.Tools))
	for _, t := range res.Tools {
		schema, err := toolSchema(t)
		if err != nil {
			return nil, fmt.Errorf("schema of %s: %w", t.Name, err)
		}
		qualified := QualifiedToolName(server, t.Name)
		tools = append(tools, &mcpTool{
			qualified: qualified,
			name:      t.Name,
			client:    c,
			param: anthropic.ToolParam{
				Name:        anthropic.F(qualified),
				Description: anthropic.F(t.Description),
				InputSchema: anthropic.F[interface{}](schema),
			},
		})
	}
	return tools, nil
}

// toolSchema returns the tool's input schema as a JSON object with type object.
func toolSchema(t mcp.Tool) (map[string]any, error) {
	raw := t.RawInputSchema
	if len(raw) == 0 {
		var err error
		raw, err = json.Marshal(t.InputSchema)
		if err != nil {
			return nil, err
		}
	}
	schema := map[string]any{}
	if err := json.Unmarshal(raw, &schema); err != nil {
		return nil, err
	}
	if schema == nil {
		schema = map[string]any{}
	}
	schema["type"] = "object"
	if _, ok := schema["properties"]; !ok {
		schema["properties"] = map[string]any{}
	}
	return schema, nil
}

// sortedServers returns the server keys in a stable order.
func sortedServers(servers map[string]*mcpserver.MCPServer) []string {
	keys := make([]string, 0, len(servers))
	for k := range servers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// call runs the tool and flattens its content to text.
func (t *mcpTool) call(ctx context.Context, input map[string]any) (string, bool, error) {
	req := mcp.CallToolRequest{}
	req.Params.Name = t.name
	req.Params.Arguments = input

	res, err := t.client.CallTool(ctx, req)
	if err != nil {
		return "", true, err
	}
	return contentText(res.Content), res.IsError, nil
}

func contentText(content []mcp.Content) string {
	parts := make([]string, 0, len(content))
	for _, c := range content {
		switch c := c.(type) {
		case mcp.TextContent:
			parts = append(parts, c.Text)
		case *mcp.TextContent:
			parts = append(parts, c.Text)
		default:
			if b, err := json.Marshal(c); err == nil {
				parts = append(parts, string(b))
			}
		}
	}
	return strings.Join(parts, "\n")
}
