package tools

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	vibeerr "github.com/vibe-cli/vibe/internal/errors"
)

func TestRegistryFiltersDisallowedTools(t *testing.T) {
	allowed := func(name string) bool { return name != "bash" }
	r := NewRegistry(allowed)

	if _, ok := r.Get("bash"); ok {
		t.Fatal("bash should be filtered out of the registry")
	}
	if _, ok := r.Get("read_file"); !ok {
		t.Fatal("read_file should be registered")
	}

	for _, def := range r.Definitions() {
		if def.Name == "bash" {
			t.Fatal("bash should not appear in definitions offered to the model")
		}
	}
}

func TestRegistryExecuteDisallowedTool(t *testing.T) {
	r := NewRegistry(func(name string) bool { return name != "bash" })

	_, err := r.Execute(context.Background(), "bash", map[string]any{"command": "ls"})
	if err == nil {
		t.Fatal("expected error executing filtered tool")
	}
	if !vibeerr.IsCode(err, vibeerr.CodeToolPermissionDenied) {
		t.Errorf("expected permission denied error, got %v", err)
	}
}

func TestRegistryExecuteUnknownTool(t *testing.T) {
	r := NewRegistry(nil)

	_, err := r.Execute(context.Background(), "no_such_tool", nil)
	if err == nil {
		t.Fatal("expected error for unknown tool")
	}
	if !strings.Contains(err.Error(), "not found") {
		t.Errorf("expected not-found error, got %v", err)
	}
}

func TestReadFileTool(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sample.txt")
	if err := os.WriteFile(path, []byte("line one\nline two\nline three\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	tool := &ReadFileTool{}

	out, err := tool.Execute(context.Background(), map[string]any{"path": path})
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if !strings.Contains(out, "line two") {
		t.Errorf("expected full content, got %q", out)
	}

	out, err = tool.Execute(context.Background(), map[string]any{
		"path":       path,
		"start_line": float64(2),
		"end_line":   float64(2),
	})
	if err != nil {
		t.Fatalf("ranged read failed: %v", err)
	}
	if !strings.Contains(out, "line two") || strings.Contains(out, "line one") {
		t.Errorf("expected only line two, got %q", out)
	}

	if _, err := tool.Execute(context.Background(), map[string]any{"path": filepath.Join(dir, "missing.txt")}); err == nil {
		t.Error("expected error for missing file")
	}
	if _, err := tool.Execute(context.Background(), map[string]any{"path": dir}); err == nil {
		t.Error("expected error for directory path")
	}
}

func TestWriteFileTool(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "out.txt")

	tool := &WriteFileTool{}
	out, err := tool.Execute(context.Background(), map[string]any{
		"path":    path,
		"content": "hello\n",
	})
	if err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if !strings.Contains(out, "6 bytes") {
		t.Errorf("expected byte count in result, got %q", out)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "hello\n" {
		t.Errorf("unexpected file content %q", data)
	}

	// Overwriting includes a diff of the change.
	out, err = tool.Execute(context.Background(), map[string]any{
		"path":    path,
		"content": "goodbye\n",
	})
	if err != nil {
		t.Fatalf("overwrite failed: %v", err)
	}
	if !strings.Contains(out, "-hello") || !strings.Contains(out, "+goodbye") {
		t.Errorf("expected diff in result, got %q", out)
	}
}

func TestEditFileTool(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "code.go")
	if err := os.WriteFile(path, []byte("alpha\nbeta\ngamma\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	tool := &EditFileTool{}

	out, err := tool.Execute(context.Background(), map[string]any{
		"path":     path,
		"old_text": "beta",
		"new_text": "delta",
	})
	if err != nil {
		t.Fatalf("edit failed: %v", err)
	}
	if !strings.Contains(out, "+delta") {
		t.Errorf("expected diff in result, got %q", out)
	}

	data, _ := os.ReadFile(path)
	if string(data) != "alpha\ndelta\ngamma\n" {
		t.Errorf("unexpected content after edit: %q", data)
	}

	if _, err := tool.Execute(context.Background(), map[string]any{
		"path":     path,
		"old_text": "nope",
		"new_text": "x",
	}); err == nil {
		t.Error("expected error for missing old_text")
	}

	if err := os.WriteFile(path, []byte("dup\ndup\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := tool.Execute(context.Background(), map[string]any{
		"path":     path,
		"old_text": "dup",
		"new_text": "x",
	}); err == nil || !strings.Contains(err.Error(), "unique") {
		t.Errorf("expected uniqueness error, got %v", err)
	}
}

func TestListFilesTool(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.go", "b.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.MkdirAll(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "sub", "c.go"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	tool := &ListFilesTool{}

	out, err := tool.Execute(context.Background(), map[string]any{"path": dir})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	for _, want := range []string{"a.go", "b.txt", "sub/"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in listing %q", want, out)
		}
	}

	out, err = tool.Execute(context.Background(), map[string]any{
		"path":      dir,
		"recursive": true,
		"pattern":   "*.go",
	})
	if err != nil {
		t.Fatalf("recursive list failed: %v", err)
	}
	if !strings.Contains(out, filepath.Join("sub", "c.go")) {
		t.Errorf("expected nested file in recursive listing, got %q", out)
	}
	if strings.Contains(out, "b.txt") {
		t.Errorf("pattern should exclude b.txt, got %q", out)
	}
}

func TestUnifiedDiff(t *testing.T) {
	diff := UnifiedDiff("main.go", "a\nb\nc\n", "a\nB\nc\n", 3)
	if !strings.Contains(diff, "-b") || !strings.Contains(diff, "+B") {
		t.Errorf("expected change lines in diff, got %q", diff)
	}
	if !strings.Contains(diff, "1 insertion(s), 1 deletion(s)") {
		t.Errorf("expected summary line, got %q", diff)
	}

	if diff := UnifiedDiff("main.go", "same\n", "same\n", 3); diff != "" {
		t.Errorf("expected empty diff for identical content, got %q", diff)
	}
}
