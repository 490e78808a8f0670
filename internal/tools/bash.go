package tools

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// maxBashTimeout caps per-command timeouts at five minutes.
const maxBashTimeout = 300

// maxToolOutput truncates runaway tool output before it reaches the model.
const maxToolOutput = 50000

// BashTool executes shell commands.
type BashTool struct{}

func (t *BashTool) Name() string { return "bash" }

func (t *BashTool) Description() string {
	return "Execute a bash command. Use for builds, tests, git operations, and other shell work. Output is captured and returned."
}

func (t *BashTool) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"command": map[string]any{
				"type":        "string",
				"description": "The bash command to execute.",
			},
			"timeout": map[string]any{
				"type":        "integer",
				"description": "Timeout in seconds (default: 60).",
				"default":     60,
			},
		},
		"required": []string{"command"},
	}
}

func (t *BashTool) Execute(ctx context.Context, input map[string]any) (string, error) {
	command, ok := input["command"].(string)
	if !ok || command == "" {
		return "", fmt.Errorf("command is required")
	}

	if err := CheckCommandSafety(command); err != nil {
		return "", err
	}

	timeout := 60
	if tv, ok := input["timeout"].(float64); ok && tv > 0 {
		timeout = int(tv)
	}
	if timeout > maxBashTimeout {
		timeout = maxBashTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, time.Duration(timeout)*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, "bash", "-c", command)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	var result strings.Builder
	if stdout.Len() > 0 {
		result.WriteString(stdout.String())
	}
	if stderr.Len() > 0 {
		if result.Len() > 0 {
			result.WriteString("\n")
		}
		result.WriteString("STDERR:\n")
		result.WriteString(stderr.String())
	}

	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", fmt.Errorf("command timed out after %d seconds", timeout)
		}
		// Non-zero exit is surfaced in the output so the model can react to
		// it; only infrastructure failures become errors.
		if result.Len() > 0 {
			result.WriteString("\n")
		}
		fmt.Fprintf(&result, "Exit code: %v", err)
	}

	output := result.String()
	if output == "" {
		output = "(no output)"
	}
	if len(output) > maxToolOutput {
		output = output[:maxToolOutput] + "\n... (output truncated)"
	}
	return output, nil
}

// GrepTool searches file contents with ripgrep, falling back to grep.
type GrepTool struct{}

func (t *GrepTool) Name() string { return "grep" }

func (t *GrepTool) Description() string {
	return "Search for a regex pattern in files using ripgrep. Fast, respects .gitignore."
}

func (t *GrepTool) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"pattern": map[string]any{
				"type":        "string",
				"description": "The regex pattern to search for.",
			},
			"path": map[string]any{
				"type":        "string",
				"description": "Path to search in (default: current directory).",
				"default":     ".",
			},
			"file_type": map[string]any{
				"type":        "string",
				"description": "Filter by file type (e.g. 'go', 'py').",
			},
			"context": map[string]any{
				"type":        "integer",
				"description": "Context lines around each match.",
				"default":     0,
			},
			"case_sensitive": map[string]any{
				"type":        "boolean",
				"description": "Case sensitive search (default: false).",
				"default":     false,
			},
		},
		"required": []string{"pattern"},
	}
}

func (t *GrepTool) Execute(ctx context.Context, input map[string]any) (string, error) {
	pattern, ok := input["pattern"].(string)
	if !ok || pattern == "" {
		return "", fmt.Errorf("pattern is required")
	}
	dir := "."
	if p, ok := input["path"].(string); ok && p != "" {
		dir = p
	}

	args := []string{"--color=never", "-n"}
	if caseSensitive, ok := input["case_sensitive"].(bool); !ok || !caseSensitive {
		args = append(args, "-i")
	}
	if fileType, ok := input["file_type"].(string); ok && fileType != "" {
		args = append(args, "-t", fileType)
	}
	if c, ok := input["context"].(float64); ok && c > 0 {
		args = append(args, "-C", fmt.Sprintf("%d", int(c)))
	}
	args = append(args, pattern, dir)

	cmd := exec.CommandContext(ctx, "rg", args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		// rg exits 1 for no matches.
		if exitErr, ok := err.(*exec.ExitError); ok && exitErr.ExitCode() == 1 {
			return "No matches found.", nil
		}
		if strings.Contains(err.Error(), "executable file not found") {
			return t.fallbackGrep(ctx, pattern, dir, input)
		}
		return "", fmt.Errorf("search failed: %s", stderr.String())
	}

	output := stdout.String()
	if output == "" {
		return "No matches found.", nil
	}
	if len(output) > maxToolOutput {
		output = output[:maxToolOutput] + "\n... (output truncated)"
	}
	return output, nil
}

func (t *GrepTool) fallbackGrep(ctx context.Context, pattern, dir string, input map[string]any) (string, error) {
	args := []string{"-r", "-n"}
	if caseSensitive, ok := input["case_sensitive"].(bool); !ok || !caseSensitive {
		args = append(args, "-i")
	}
	args = append(args, pattern, dir)

	cmd := exec.CommandContext(ctx, "grep", args...)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout

	// grep exits 1 for no matches, so the error is not meaningful here.
	_ = cmd.Run()

	output := stdout.String()
	if output == "" {
		return "No matches found.", nil
	}
	return output, nil
}
