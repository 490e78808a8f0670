package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"

	"github.com/vibe-cli/vibe/internal/config"
)

// AnthropicClient wraps the Anthropic SDK
type AnthropicClient struct {
	client *anthropic.Client
	config *config.Config
	log    *zap.Logger
	model  string
}

// NewAnthropicClient creates a new model client
func NewAnthropicClient(cfg *config.Config, log *zap.Logger) *AnthropicClient {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(cfg.RateLimit.MaxRetries),
	}
	client := anthropic.NewClient(opts...)
	return &AnthropicClient{
		client: &client,
		config: cfg,
		log:    log.Named("llm"),
		model:  cfg.DefaultModel,
	}
}

// SetModel changes the current model
func (c *AnthropicClient) SetModel(model string) {
	c.model = model
}

// GetModel returns the current model
func (c *AnthropicClient) GetModel() string {
	return c.model
}

// Chat sends a message and returns the response
func (c *AnthropicClient) Chat(ctx context.Context, messages []Message, tools []ToolDefinition, systemPrompt string) (*Response, error) {
	c.log.Debug("sending chat request",
		zap.String("model", c.model),
		zap.Int("messages", len(messages)),
		zap.Int("tools", len(tools)))

	params := c.buildParams(messages, tools, systemPrompt)

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		c.log.Error("chat request failed", zap.Error(err))
		return nil, fmt.Errorf("anthropic API error: %w", err)
	}

	resp := c.parseResponse(msg)
	c.log.Debug("received response",
		zap.String("stop_reason", resp.StopReason),
		zap.Int("tool_calls", len(resp.ToolCalls)))
	return resp, nil
}

// ChatStream sends a message and streams the response
func (c *AnthropicClient) ChatStream(ctx context.Context, messages []Message, tools []ToolDefinition, systemPrompt string) <-chan StreamChunk {
	ch := make(chan StreamChunk, 100)

	go func() {
		defer close(ch)

		params := c.buildParams(messages, tools, systemPrompt)
		stream := c.client.Messages.NewStreaming(ctx, params)

		var currentToolCall *ToolCall
		var toolInputJSON string
		var usage Usage
		haveUsage := false

		for stream.Next() {
			event := stream.Current()

			switch e := event.AsAny().(type) {
			case anthropic.MessageStartEvent:
				if e.Message.Usage.InputTokens > 0 {
					usage.InputTokens = e.Message.Usage.InputTokens
					haveUsage = true
				}

			case anthropic.ContentBlockStartEvent:
				if block, ok := e.ContentBlock.AsAny().(anthropic.ToolUseBlock); ok {
					currentToolCall = &ToolCall{
						ID:   block.ID,
						Name: block.Name,
					}
					toolInputJSON = ""
				}

			case anthropic.ContentBlockDeltaEvent:
				switch delta := e.Delta.AsAny().(type) {
				case anthropic.TextDelta:
					ch <- StreamChunk{Type: "text", Text: delta.Text}
				case anthropic.InputJSONDelta:
					toolInputJSON += delta.PartialJSON
				case anthropic.ThinkingDelta:
					ch <- StreamChunk{Type: "thinking", Text: delta.Thinking}
				}

			case anthropic.ContentBlockStopEvent:
				if currentToolCall != nil {
					input, err := parseToolInput(toolInputJSON)
					if err != nil {
						ch <- StreamChunk{Type: "error", Error: fmt.Errorf("failed to parse tool input: %w", err)}
					} else {
						currentToolCall.Input = input
						ch <- StreamChunk{Type: "tool_call", ToolCall: currentToolCall}
					}
					currentToolCall = nil
					toolInputJSON = ""
				}

			case anthropic.MessageDeltaEvent:
				if e.Usage.OutputTokens > 0 {
					usage.OutputTokens = e.Usage.OutputTokens
					haveUsage = true
				}

			case anthropic.MessageStopEvent:
				done := StreamChunk{Type: "done"}
				if haveUsage {
					u := usage
					done.Usage = &u
				}
				ch <- done
			}
		}

		if err := stream.Err(); err != nil {
			c.log.Error("stream error", zap.Error(err))
			ch <- StreamChunk{Type: "error", Error: err}
		}
	}()

	return ch
}

func (c *AnthropicClient) buildParams(messages []Message, tools []ToolDefinition, systemPrompt string) anthropic.MessageNewParams {
	var apiMessages []anthropic.MessageParam
	for _, msg := range messages {
		switch msg.Role {
		case "user":
			apiMessages = append(apiMessages, anthropic.NewUserMessage(
				anthropic.NewTextBlock(msg.Content),
			))

		case "assistant":
			var blocks []anthropic.ContentBlockParamUnion
			if msg.Content != "" {
				blocks = append(blocks, anthropic.NewTextBlock(msg.Content))
			}
			for _, tc := range msg.ToolCalls {
				blocks = append(blocks, anthropic.NewToolUseBlock(tc.ID, tc.Input, tc.Name))
			}
			if len(blocks) > 0 {
				apiMessages = append(apiMessages, anthropic.NewAssistantMessage(blocks...))
			}

		case "tool":
			apiMessages = append(apiMessages, anthropic.NewUserMessage(
				anthropic.NewToolResultBlock(msg.ToolCallID, msg.Content, false),
			))
		}
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: int64(c.config.MaxTokens),
		Messages:  apiMessages,
	}

	if systemPrompt != "" {
		params.System = []anthropic.TextBlockParam{
			{
				Type: "text",
				Text: systemPrompt,
			},
		}
	}

	if len(tools) > 0 {
		var apiTools []anthropic.ToolUnionParam
		for _, tool := range tools {
			schema := buildInputSchema(tool.InputSchema)
			toolParam := anthropic.ToolUnionParamOfTool(schema, tool.Name)
			toolParam.OfTool.Description = anthropic.String(tool.Description)
			apiTools = append(apiTools, toolParam)
		}
		params.Tools = apiTools
	}

	return params
}

func (c *AnthropicClient) parseResponse(msg *anthropic.Message) *Response {
	resp := &Response{
		StopReason: string(msg.StopReason),
		Model:      string(msg.Model),
	}

	for _, block := range msg.Content {
		switch b := block.AsAny().(type) {
		case anthropic.TextBlock:
			resp.Content += b.Text
		case anthropic.ToolUseBlock:
			var input map[string]any
			if err := json.Unmarshal(b.Input, &input); err != nil {
				c.log.Warn("failed to parse tool input",
					zap.String("tool", b.Name), zap.Error(err))
				input = make(map[string]any)
			}
			resp.ToolCalls = append(resp.ToolCalls, ToolCall{
				ID:    b.ID,
				Name:  b.Name,
				Input: input,
			})
		}
	}

	// The API reports usage on every message; keep it optional anyway so a
	// missing report is visible to the usage tracker instead of read as zero.
	if msg.Usage.InputTokens > 0 || msg.Usage.OutputTokens > 0 {
		resp.Usage = &Usage{
			InputTokens:  msg.Usage.InputTokens,
			OutputTokens: msg.Usage.OutputTokens,
		}
	}

	return resp
}

func parseToolInput(jsonStr string) (map[string]any, error) {
	if jsonStr == "" || jsonStr == "{}" {
		return map[string]any{}, nil
	}

	var result map[string]any
	if err := json.Unmarshal([]byte(jsonStr), &result); err != nil {
		return nil, err
	}
	return result, nil
}

// buildInputSchema converts a tool's schema map to the SDK's ToolInputSchemaParam
func buildInputSchema(schema map[string]any) anthropic.ToolInputSchemaParam {
	result := anthropic.ToolInputSchemaParam{}

	if props, ok := schema["properties"].(map[string]any); ok {
		result.Properties = props
	}

	if req, ok := schema["required"]; ok {
		result.ExtraFields = map[string]interface{}{
			"required": req,
		}
	}

	return result
}
