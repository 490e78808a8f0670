package engine

import (
	"fmt"

	"github.com/vibe-cli/vibe/internal/approval"
)

// Sink receives the events of one turn. The engine calls it from the turn
// goroutine only, so implementations need no internal locking.
type Sink interface {
	// AssistantText delivers a completed assistant message.
	AssistantText(text string)

	// Warning delivers an advisory message, such as the context budget
	// warning. Advisories never stop the turn.
	Warning(msg string)

	// ApprovalRequested announces a tool call that is suspended on an
	// external decision. The receiver resolves it through
	// Engine.ApplyDecision with the request's call ID.
	ApprovalRequested(req approval.Request, description string)

	// ToolCall announces a tool about to execute.
	ToolCall(name, description string)

	// ToolResult delivers the outcome of one tool call, including rejection
	// records and execution failures.
	ToolResult(name, result string, isError bool)
}

// NopSink discards all events.
type NopSink struct{}

func (NopSink) AssistantText(string)                          {}
func (NopSink) Warning(string)                                {}
func (NopSink) ApprovalRequested(approval.Request, string)    {}
func (NopSink) ToolCall(string, string)                       {}
func (NopSink) ToolResult(string, string, bool)               {}

// describeCall renders a short human-readable summary of a tool call for
// prompts and event output.
func describeCall(name string, args map[string]any) string {
	switch name {
	case "read_file":
		if path, ok := args["path"].(string); ok {
			return fmt.Sprintf("Read %s", path)
		}
	case "write_file":
		if path, ok := args["path"].(string); ok {
			return fmt.Sprintf("Write to %s", path)
		}
	case "edit_file":
		if path, ok := args["path"].(string); ok {
			return fmt.Sprintf("Edit %s", path)
		}
	case "bash":
		if cmd, ok := args["command"].(string); ok {
			if len(cmd) > 50 {
				cmd = cmd[:50] + "..."
			}
			return fmt.Sprintf("Run: %s", cmd)
		}
	case "grep":
		if pattern, ok := args["pattern"].(string); ok {
			return fmt.Sprintf("Grep: %s", pattern)
		}
	case "list_files":
		dir := "."
		if p, ok := args["path"].(string); ok && p != "" {
			dir = p
		}
		return fmt.Sprintf("List files in %s", dir)
	}
	return name
}
