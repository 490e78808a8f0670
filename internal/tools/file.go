package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ReadFileTool reads file contents, optionally a line range.
type ReadFileTool struct{}

func (t *ReadFileTool) Name() string { return "read_file" }

func (t *ReadFileTool) Description() string {
	return "Read the contents of a file. Use this to examine code, configuration, or any text file before changing it."
}

func (t *ReadFileTool) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path": map[string]any{
				"type":        "string",
				"description": "Path to the file to read (relative or absolute).",
			},
			"start_line": map[string]any{
				"type":        "integer",
				"description": "Optional: first line to read (1-indexed).",
			},
			"end_line": map[string]any{
				"type":        "integer",
				"description": "Optional: last line to read (inclusive).",
			},
		},
		"required": []string{"path"},
	}
}

func (t *ReadFileTool) Execute(ctx context.Context, input map[string]any) (string, error) {
	path, ok := input["path"].(string)
	if !ok || path == "" {
		return "", fmt.Errorf("path is required")
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("invalid path: %w", err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("file not found: %s", path)
		}
		return "", fmt.Errorf("cannot access file: %w", err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("path is a directory, not a file: %s", path)
	}

	content, err := os.ReadFile(absPath)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}

	startLine, hasStart := input["start_line"].(float64)
	endLine, hasEnd := input["end_line"].(float64)
	if !hasStart && !hasEnd {
		return string(content), nil
	}

	lines := strings.Split(string(content), "\n")
	start := 0
	end := len(lines)
	if hasStart && int(startLine) > 0 {
		start = int(startLine) - 1
	}
	if hasEnd && int(endLine) > 0 && int(endLine) <= len(lines) {
		end = int(endLine)
	}
	if start >= end || start >= len(lines) {
		return "", fmt.Errorf("invalid line range")
	}

	var sb strings.Builder
	for i := start; i < end && i < len(lines); i++ {
		fmt.Fprintf(&sb, "%4d | %s\n", i+1, lines[i])
	}
	return sb.String(), nil
}

// WriteFileTool writes content to a file and reports the change as a diff.
type WriteFileTool struct{}

func (t *WriteFileTool) Name() string { return "write_file" }

func (t *WriteFileTool) Description() string {
	return "Write content to a file. Creates the file and any parent directories, or overwrites an existing file."
}

func (t *WriteFileTool) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path": map[string]any{
				"type":        "string",
				"description": "Path to the file to write.",
			},
			"content": map[string]any{
				"type":        "string",
				"description": "Full content to write.",
			},
		},
		"required": []string{"path", "content"},
	}
}

func (t *WriteFileTool) Execute(ctx context.Context, input map[string]any) (string, error) {
	path, ok := input["path"].(string)
	if !ok || path == "" {
		return "", fmt.Errorf("path is required")
	}
	content, ok := input["content"].(string)
	if !ok {
		return "", fmt.Errorf("content is required")
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("invalid path: %w", err)
	}

	// Existing content feeds the diff summary; a new file has none.
	oldContent := ""
	if prev, err := os.ReadFile(absPath); err == nil {
		oldContent = string(prev)
	}

	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return "", fmt.Errorf("failed to create directories: %w", err)
	}
	if err := os.WriteFile(absPath, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	result := fmt.Sprintf("Wrote %d bytes to %s", len(content), path)
	if diff := UnifiedDiff(path, oldContent, content, 3); diff != "" {
		result += "\n\n" + diff
	}
	return result, nil
}

// EditFileTool replaces one unique occurrence of a text span in a file.
type EditFileTool struct{}

func (t *EditFileTool) Name() string { return "edit_file" }

func (t *EditFileTool) Description() string {
	return "Edit a file by replacing an exact text span. The span must occur exactly once; add surrounding context if it is ambiguous."
}

func (t *EditFileTool) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path": map[string]any{
				"type":        "string",
				"description": "Path to the file to edit.",
			},
			"old_text": map[string]any{
				"type":        "string",
				"description": "Exact text to find and replace.",
			},
			"new_text": map[string]any{
				"type":        "string",
				"description": "Replacement text.",
			},
		},
		"required": []string{"path", "old_text", "new_text"},
	}
}

func (t *EditFileTool) Execute(ctx context.Context, input map[string]any) (string, error) {
	path, ok := input["path"].(string)
	if !ok || path == "" {
		return "", fmt.Errorf("path is required")
	}
	oldText, ok := input["old_text"].(string)
	if !ok {
		return "", fmt.Errorf("old_text is required")
	}
	newText, ok := input["new_text"].(string)
	if !ok {
		return "", fmt.Errorf("new_text is required")
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("invalid path: %w", err)
	}

	content, err := os.ReadFile(absPath)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}

	count := strings.Count(string(content), oldText)
	if count == 0 {
		return "", fmt.Errorf("old_text not found in file")
	}
	if count > 1 {
		return "", fmt.Errorf("old_text found %d times, must be unique; provide more context", count)
	}

	newContent := strings.Replace(string(content), oldText, newText, 1)
	if err := os.WriteFile(absPath, []byte(newContent), 0o644); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	result := fmt.Sprintf("Edited %s", path)
	if diff := UnifiedDiff(path, string(content), newContent, 3); diff != "" {
		result += "\n\n" + diff
	}
	return result, nil
}

// ListFilesTool lists directory entries, optionally recursively.
type ListFilesTool struct{}

func (t *ListFilesTool) Name() string { return "list_files" }

func (t *ListFilesTool) Description() string {
	return "List files and directories at a path. Useful for exploring project structure."
}

func (t *ListFilesTool) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path": map[string]any{
				"type":        "string",
				"description": "Directory to list (defaults to the current directory).",
				"default":     ".",
			},
			"recursive": map[string]any{
				"type":        "boolean",
				"description": "List entries recursively.",
				"default":     false,
			},
			"pattern": map[string]any{
				"type":        "string",
				"description": "Glob pattern to filter names (e.g. '*.go').",
			},
		},
	}
}

func (t *ListFilesTool) Execute(ctx context.Context, input map[string]any) (string, error) {
	dir := "."
	if p, ok := input["path"].(string); ok && p != "" {
		dir = p
	}
	recursive, _ := input["recursive"].(bool)
	pattern, _ := input["pattern"].(string)

	absPath, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("invalid path: %w", err)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return "", fmt.Errorf("path not found: %s", dir)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("path is not a directory: %s", dir)
	}

	var entries []string
	appendEntry := func(name string, isDir bool) {
		if isDir {
			name += "/"
		}
		entries = append(entries, name)
	}

	if recursive {
		_ = filepath.WalkDir(absPath, func(p string, d os.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			// Hidden directories stay out of recursive listings.
			if d.IsDir() && strings.HasPrefix(d.Name(), ".") && p != absPath {
				return filepath.SkipDir
			}
			rel, _ := filepath.Rel(absPath, p)
			if rel == "." {
				return nil
			}
			if pattern != "" {
				if matched, _ := filepath.Match(pattern, d.Name()); !matched {
					return nil
				}
			}
			appendEntry(rel, d.IsDir())
			return nil
		})
	} else {
		dirEntries, err := os.ReadDir(absPath)
		if err != nil {
			return "", fmt.Errorf("failed to read directory: %w", err)
		}
		for _, entry := range dirEntries {
			if pattern != "" {
				if matched, _ := filepath.Match(pattern, entry.Name()); !matched {
					continue
				}
			}
			appendEntry(entry.Name(), entry.IsDir())
		}
	}

	if len(entries) == 0 {
		return "No files found.", nil
	}
	return strings.Join(entries, "\n"), nil
}
