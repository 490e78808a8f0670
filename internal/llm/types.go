package llm

import "context"

// Message represents a conversation message. Messages are append-only:
// once added to a session history they are never mutated.
type Message struct {
	Role       string     // "user", "assistant", "tool"
	Content    string
	ToolCalls  []ToolCall // set on assistant messages that request tools
	ToolCallID string     // set on tool-result messages
	Usage      *Usage     // provider-reported usage, assistant messages only
}

// ToolCall represents a tool invocation requested by the model
type ToolCall struct {
	ID    string
	Name  string
	Input map[string]any
}

// Usage carries provider-reported token counts for a single model call.
// These are the only token numbers the application trusts; nothing in this
// codebase estimates tokens from character counts.
type Usage struct {
	InputTokens  int64
	OutputTokens int64
}

// Response represents a model response
type Response struct {
	Content    string
	ToolCalls  []ToolCall
	StopReason string
	Model      string // model identifier that actually served the call
	Usage      *Usage // nil when the provider reported no usage metadata
}

// StreamChunk represents a chunk of streamed response
type StreamChunk struct {
	Type     string // "text", "thinking", "tool_call", "done", "error"
	Text     string
	ToolCall *ToolCall
	Usage    *Usage // set on "done" chunks when the provider reported usage
	Error    error
}

// ToolDefinition defines a tool offered to the model
type ToolDefinition struct {
	Name        string
	Description string
	InputSchema map[string]any
}

// Client is the interface for model provider clients
type Client interface {
	Chat(ctx context.Context, messages []Message, tools []ToolDefinition, systemPrompt string) (*Response, error)
	ChatStream(ctx context.Context, messages []Message, tools []ToolDefinition, systemPrompt string) <-chan StreamChunk
	SetModel(model string)
	GetModel() string
}
