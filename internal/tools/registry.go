// Package tools implements the built-in tool set offered to the model and
// the registry that filters it by policy.
package tools

import (
	"context"
	"sync"

	vibeerr "github.com/vibe-cli/vibe/internal/errors"
	"github.com/vibe-cli/vibe/internal/llm"
)

// Tool is implemented by every built-in tool.
type Tool interface {
	Name() string
	Description() string
	InputSchema() map[string]any
	Execute(ctx context.Context, input map[string]any) (string, error)
}

// Registry holds the tools available to a session. Tools disabled by policy
// are filtered out at registration time so the model never sees them and
// never wastes a round trip proposing them.
type Registry struct {
	mu      sync.RWMutex
	tools   map[string]Tool
	allowed func(name string) bool
}

// NewRegistry builds a registry containing the default tool set, minus any
// tool the allowed predicate excludes. A nil predicate allows everything.
func NewRegistry(allowed func(name string) bool) *Registry {
	if allowed == nil {
		allowed = func(string) bool { return true }
	}
	r := &Registry{
		tools:   make(map[string]Tool),
		allowed: allowed,
	}

	for _, t := range []Tool{
		&ReadFileTool{},
		&WriteFileTool{},
		&EditFileTool{},
		&ListFilesTool{},
		&GrepTool{},
		&BashTool{},
	} {
		r.Register(t)
	}

	return r
}

// Register adds a tool unless policy excludes it.
func (r *Registry) Register(tool Tool) {
	if !r.allowed(tool.Name()) {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[tool.Name()] = tool
}

// Get returns a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	return tool, ok
}

// Execute runs a tool by name. A call to a tool that was filtered out by
// policy surfaces as a permission error, not a missing tool, so the model
// gets a usable explanation.
func (r *Registry) Execute(ctx context.Context, name string, input map[string]any) (string, error) {
	tool, ok := r.Get(name)
	if !ok {
		if !r.allowed(name) {
			return "", vibeerr.ToolPermissionDenied(name)
		}
		return "", vibeerr.ToolNotFound(name)
	}
	return tool.Execute(ctx, input)
}

// Definitions returns the tool definitions to advertise to the model.
func (r *Registry) Definitions() []llm.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]llm.ToolDefinition, 0, len(r.tools))
	for _, tool := range r.tools {
		defs = append(defs, llm.ToolDefinition{
			Name:        tool.Name(),
			Description: tool.Description(),
			InputSchema: tool.InputSchema(),
		})
	}
	return defs
}
