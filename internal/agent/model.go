package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// turnRequest is everything one model turn needs.
type turnRequest struct {
	Model     string
	MaxTokens int64
	System    string
	Messages  []anthropic.MessageParam
	Tools     []anthropic.ToolParam
}

// turnResponse is one completed model turn.
type turnResponse struct {
	Blocks     []ContentBlock
	StopReason string
	Usage      Usage
}

// model runs a single model turn.
type model interface {
	CreateTurn(ctx context.Context, req turnRequest) (*turnResponse, error)
}

// anthropicModel streams turns from the Anthropic Messages API.
type anthropicModel struct {
	client *anthropic.Client
}

func newAnthropicModel(apiKey string) *anthropicModel {
	var opts []option.RequestOption
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	return &anthropicModel{client: anthropic.NewClient(opts...)}
}

func (m *anthropicModel) CreateTurn(ctx context.Context, req turnRequest) (*turnResponse, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.F(anthropic.Model(req.Model)),
		MaxTokens: anthropic.F(req.MaxTokens),
		Messages:  anthropic.F(req.Messages),
	}
	if req.System != "" {
		params.System = anthropic.F([]anthropic.TextBlockParam{anthropic.NewTextBlock(req.System)})
	}
	if len(req.Tools) > 0 {
		params.Tools = anthropic.F(req.Tools)
	}

	stream := m.client.Messages.NewStreaming(ctx, params)
	message := anthropic.Message{}
	for stream.Next() {
		event := stream.Current()
		message.Accumulate(event)
	}
	if err := stream.Err(); err != nil {
		return nil, fmt.Errorf("model stream: %w", err)
	}

	resp := &turnResponse{
		StopReason: string(message.StopReason),
		Usage: Usage{
			InputTokens:  message.Usage.InputTokens,
			OutputTokens: message.Usage.OutputTokens,
		},
	}
	for _, block := range message.Content {
		switch block.Type {
		case "text":
			resp.Blocks = append(resp.Blocks, TextBlock{Text: block.Text})
		case "tool_use":
			input, err := decodeToolInput(block.Input)
			if err != nil {
				return nil, fmt.Errorf("decode input of %s: %w", block.Name, err)
			}
			resp.Blocks = append(resp.Blocks, ToolUseBlock{ID: block.ID, Name: block.Name, Input: input})
		}
	}
	return resp, nil
}

// decodeToolInput turns a tool_use input into an argument map.
func decodeToolInput(v any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	input := map[string]any{}
	if len(raw) == 0 || string(raw) == "null" || string(raw) == `""` {
		return input, nil
	}
	if err := json.Unmarshal(raw, &input); err != nil {
		return nil, err
	}
	if input == nil {
		input = map[string]any{}
	}
	return input, nil
}

// assistantParam rebuilds an assistant turn for the conversation history.
func assistantParam(blocks []ContentBlock) (anthropic.MessageParam, bool) {
	parts := make([]anthropic.ContentBlockParamUnion, 0, len(blocks))
	for _, b := range blocks {
		switch b := b.(type) {
		case TextBlock:
			if b.Text != "" {
				parts = append(parts, anthropic.NewTextBlock(b.Text))
			}
		case ToolUseBlock:
			parts = append(parts, anthropic.NewToolUseBlockParam(b.ID, b.Name, b.Input))
		}
	}
	if len(parts) == 0 {
		return anthropic.MessageParam{}, false
	}
	return anthropic.NewAssistantMessage(parts...), true
}

// toolResultsParam wraps tool results in a user turn.
func toolResultsParam(results []ContentBlock) anthropic.MessageParam {
	parts := make([]anthropic.ContentBlockParamUnion, 0, len(results))
	for _, b := range results {
		if r, ok := b.(ToolResultBlock); ok {
			parts = append(parts, anthropic.NewToolResultBlock(r.ToolUseID, r.Content, r.IsError))
		}
	}
	return anthropic.NewUserMessage(parts...)
}
