package agent

// Message is one item of a response stream. The concrete type is one of
// *AssistantMessage, *UserMessage or *ResultMessage.
type Message interface {
	isMessage()
}

// ContentBlock is one block of an assistant or user message. The concrete
// type is one of TextBlock, ToolUseBlock or ToolResultBlock.
type ContentBlock interface {
	isContentBlock()
}

// TextBlock is model text.
type TextBlock struct {
	Text string
}

// ToolUseBlock is a tool call requested by the model. Name is the qualified
// name the model used, e.g. mcp__composio__GMAIL_FETCH_EMAILS.
type ToolUseBlock struct {
	ID    string
	Name  string
	Input map[string]any
}

// ToolResultBlock is the outcome of a tool call sent back to the model.
type ToolResultBlock struct {
	ToolUseID string
	Content   string
	IsError   bool
}

func (TextBlock) isContentBlock()       {}
func (ToolUseBlock) isContentBlock()    {}
func (ToolResultBlock) isContentBlock() {}

// AssistantMessage is one model turn.
type AssistantMessage struct {
	Model   string
	Content []ContentBlock
}

// UserMessage carries tool results back to the model.
type UserMessage struct {
	Content []ContentBlock
}

// Result subtypes.
const (
	ResultSuccess       = "success"
	ResultErrorMaxTurns = "error_max_turns"
)

// Usage is the token usage summed over a response.
type Usage struct {
	InputTokens  int64
	OutputTokens int64
}

// Add accumulates u2 into u.
func (u *Usage) Add(u2 Usage) {
	u.InputTokens += u2.InputTokens
	u.OutputTokens += u2.OutputTokens
}

// ResultMessage terminates a response stream.
type ResultMessage struct {
	Subtype       string
	IsError       bool
	DurationMS    int64
	DurationAPIMS int64
	NumTurns      int
	SessionID     string
	// Result is the text of the final assistant turn.
	Result string
	Usage  Usage
	// TotalCostUSD is nil when the model has no known price.
	TotalCostUSD *float64
}

func (*AssistantMessage) isMessage() {}
func (*UserMessage) isMessage()      {}
func (*ResultMessage) isMessage()    {}
