// Package agent is a single-user conversational client that lets a Claude
// model call tools served by in-process MCP servers.
//
// A Client is configured with a system prompt, a permission mode and a map of
// named MCP servers. Connect opens an in-process MCP session to each server
// and advertises its tools to the model as mcp__<server>__<tool>. Query
// queues one user prompt; ReceiveResponse drives model turns and tool calls
// and yields the conversation as a closed set of message types:
//
//   - *AssistantMessage: one model turn, made of TextBlock and ToolUseBlock
//   - *UserMessage: the ToolResultBlocks fed back to the model
//   - *ResultMessage: the terminal message with duration, usage and cost
//
// The response is a pull iterator, so breaking out of the range loop stops
// the conversation without further model calls:
//
//	c := agent.NewClient(agent.Options{SystemPrompt: prompt, MCPServers: servers})
//	if err := c.Connect(ctx); err != nil {
//	    return err
//	}
//	defer c.Close()
//
//	if err := c.Query(ctx, "list my latest emails"); err != nil {
//	    return err
//	}
//	for msg, err := range c.ReceiveResponse(ctx) {
//	    if err != nil {
//	        return err
//	    }
//	    switch m := msg.(type) {
//	    case *agent.AssistantMessage:
//	        ...
//	    case *agent.ResultMessage:
//	        ...
//	    }
//	}
//
// A Client is not safe for concurrent use.
package agent
