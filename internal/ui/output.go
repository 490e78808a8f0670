// Package ui implements the terminal input and output surfaces: colored
// event output, markdown rendering, and approval prompts.
package ui

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/vibe-cli/vibe/internal/ui/highlight"
)

// ANSI color codes
const (
	Reset     = "\033[0m"
	Bold      = "\033[1m"
	Dim       = "\033[2m"
	Italic    = "\033[3m"
	Underline = "\033[4m"

	Red     = "\033[31m"
	Green   = "\033[32m"
	Yellow  = "\033[33m"
	Blue    = "\033[34m"
	Magenta = "\033[35m"
	Cyan    = "\033[36m"
)

// OutputHandler writes colored console output.
type OutputHandler struct {
	useColors   bool
	highlighter *highlight.Highlighter
	markdown    *glamour.TermRenderer
}

// NewOutputHandler creates an output handler, detecting whether stdout is a
// terminal.
func NewOutputHandler() *OutputHandler {
	useColors := true
	if fileInfo, _ := os.Stdout.Stat(); (fileInfo.Mode() & os.ModeCharDevice) == 0 {
		useColors = false
	}
	if os.Getenv("NO_COLOR") != "" {
		useColors = false
	}

	var renderer *glamour.TermRenderer
	if useColors {
		renderer, _ = glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(100),
		)
	}

	return &OutputHandler{
		useColors:   useColors,
		highlighter: highlight.New(useColors),
		markdown:    renderer,
	}
}

func (o *OutputHandler) color(color, text string) string {
	if !o.useColors {
		return text
	}
	return color + text + Reset
}

// IsTTY reports whether output goes to a terminal.
func (o *OutputHandler) IsTTY() bool {
	return o.useColors
}

// Assistant renders an assistant message, as markdown when possible.
func (o *OutputHandler) Assistant(text string) {
	if o.markdown != nil {
		if rendered, err := o.markdown.Render(text); err == nil {
			fmt.Print(strings.TrimRight(rendered, "\n") + "\n")
			return
		}
	}
	fmt.Println(text)
}

// ToolCall announces a tool about to run.
func (o *OutputHandler) ToolCall(name, description string) {
	prefix := o.color(Cyan+Bold, "⚡ ")
	toolName := o.color(Cyan, name)
	desc := o.color(Dim, " - "+description)
	fmt.Println(prefix + toolName + desc)
}

// ToolResult prints a tool outcome, truncated and highlighted.
func (o *OutputHandler) ToolResult(name, result string, isError bool) {
	if isError {
		prefix := o.color(Red+Bold, "✗ ")
		fmt.Println(prefix + o.color(Red, name+": ") + result)
		return
	}

	const maxLen = 500
	display := result
	if len(display) > maxLen {
		display = display[:maxLen] + "..."
	}
	display = o.highlighter.CodeBlocks(display)

	prefix := o.color(Green, "✓ ")
	fmt.Println(prefix + o.color(Green, name))
	if display != "" && display != "(no output)" {
		lines := strings.Split(display, "\n")
		if len(lines) > 10 {
			lines = append(lines[:10], "... (truncated)")
		}
		for _, line := range lines {
			fmt.Println(o.color(Dim, "  │ ") + line)
		}
	}
}

// ApprovalPrompt announces a tool call waiting for a decision.
func (o *OutputHandler) ApprovalPrompt(toolName, description string) {
	fmt.Println()
	fmt.Println(o.color(Yellow+Bold, "⚠ Approval Required: "+toolName))
	if description != "" {
		fmt.Println(o.color(Dim, "   Action: ") + description)
	}
}

// Error prints an error to stderr.
func (o *OutputHandler) Error(err error) {
	prefix := o.color(Red+Bold, "Error: ")
	fmt.Fprintln(os.Stderr, prefix+err.Error())
}

// Warning prints a warning to stderr.
func (o *OutputHandler) Warning(msg string) {
	prefix := o.color(Yellow+Bold, "Warning: ")
	fmt.Fprintln(os.Stderr, prefix+msg)
}

// Success prints a success message.
func (o *OutputHandler) Success(msg string) {
	fmt.Println(o.color(Green+Bold, "✓ ") + msg)
}

// Info prints an informational message.
func (o *OutputHandler) Info(msg string) {
	fmt.Println(o.color(Blue, "ℹ ") + msg)
}

// Prompt prints the REPL prompt.
func (o *OutputHandler) Prompt(prompt string) {
	fmt.Print(o.color(Bold+Green, prompt))
}

// ModelInfo prints the active model line.
func (o *OutputHandler) ModelInfo(model string) {
	fmt.Println(o.color(Dim, "Using model: ") + o.color(Cyan, model))
}

// UsageSummary prints cumulative session usage.
func (o *OutputHandler) UsageSummary(inputTokens, outputTokens int64, cost float64) {
	line := fmt.Sprintf("tokens: %d in / %d out", inputTokens, outputTokens)
	if cost > 0 {
		line += fmt.Sprintf(", cost: $%.4f", cost)
	}
	fmt.Println(o.color(Dim, line))
}

// Separator prints a horizontal rule.
func (o *OutputHandler) Separator() {
	fmt.Println(o.color(Dim, strings.Repeat("─", 40)))
}
