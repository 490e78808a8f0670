package llm

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestMockClient_DefaultResponse(t *testing.T) {
	mock := NewMockClient()

	resp, err := mock.Chat(context.Background(), []Message{{Role: "user", Content: "hi"}}, nil, "")
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if resp.Content != "mock response" {
		t.Errorf("Content = %q", resp.Content)
	}
	if resp.Usage == nil {
		t.Fatal("default mock response should carry usage metadata")
	}
	if mock.CallCount() != 1 {
		t.Errorf("CallCount = %d, want 1", mock.CallCount())
	}
}

func TestMockClient_InjectedFunc(t *testing.T) {
	mock := NewMockClient()
	mock.ChatFunc = func(ctx context.Context, messages []Message, tools []ToolDefinition, systemPrompt string) (*Response, error) {
		return &Response{
			ToolCalls: []ToolCall{{ID: "c1", Name: "bash", Input: map[string]any{"command": "ls"}}},
		}, nil
	}

	resp, err := mock.Chat(context.Background(), nil, nil, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.ToolCalls) != 1 || resp.ToolCalls[0].Name != "bash" {
		t.Errorf("ToolCalls = %+v", resp.ToolCalls)
	}
}

func TestEstimateMessages(t *testing.T) {
	msgs := []Message{
		{Role: "user", Content: "12345678"}, // 2 tokens + 4 overhead
		{Role: "assistant", Content: ""},    // 0 tokens + 4 overhead
	}
	if got := EstimateMessages(msgs); got != 10 {
		t.Errorf("EstimateMessages = %d, want 10", got)
	}
}

func TestTokenBucket_AllowsWithinBurst(t *testing.T) {
	tb := NewTokenBucket(60000, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := tb.Wait(ctx, 100); err != nil {
		t.Fatalf("Wait: %v", err)
	}
}

func TestTokenBucket_CapsOversizedRequests(t *testing.T) {
	tb := NewTokenBucket(6000, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	// Larger than burst (1000); must not error or block forever.
	if err := tb.Wait(ctx, 50000); err != nil {
		t.Fatalf("Wait: %v", err)
	}
}

func TestParseToolInput(t *testing.T) {
	got, err := parseToolInput(`{"path": "main.go"}`)
	if err != nil {
		t.Fatal(err)
	}
	if got["path"] != "main.go" {
		t.Errorf("parsed = %v", got)
	}

	empty, err := parseToolInput("")
	if err != nil {
		t.Fatal(err)
	}
	if len(empty) != 0 {
		t.Errorf("empty input should parse to empty map, got %v", empty)
	}

	if _, err := parseToolInput("{broken"); err == nil {
		t.Error("expected error for invalid JSON")
	}
}
