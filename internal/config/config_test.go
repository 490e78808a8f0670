package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.DefaultModel == "" {
		t.Error("default model should not be empty")
	}
	if cfg.Budget.ContextWindow != 200000 {
		t.Errorf("ContextWindow = %d, want 200000", cfg.Budget.ContextWindow)
	}
	if cfg.Budget.WarnThreshold != 0.5 {
		t.Errorf("WarnThreshold = %v, want 0.5", cfg.Budget.WarnThreshold)
	}
	if cfg.Budget.MaxPrice != 0 {
		t.Errorf("MaxPrice = %v, want 0 (disabled)", cfg.Budget.MaxPrice)
	}
	if cfg.Engine.MaxIterations != 20 {
		t.Errorf("MaxIterations = %d, want 20", cfg.Engine.MaxIterations)
	}
}

func TestModelRates(t *testing.T) {
	m := ModelConfig{Name: "m", InputPrice: 2.0, OutputPrice: 6.0}
	if got := m.InputRate(); got != 0.000002 {
		t.Errorf("InputRate = %v, want 0.000002", got)
	}
	if got := m.OutputRate(); got != 0.000006 {
		t.Errorf("OutputRate = %v, want 0.000006", got)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
default_model: claude-haiku-4-5
max_tokens: 4096
budget:
  context_window: 1000
  warn_threshold: 0.5
  max_price: 1.0
engine:
  max_iterations: 5
  model_timeout: 30s
models:
  - name: claude-haiku-4-5
    input_price: 1.0
    output_price: 5.0
tools:
  bash:
    permission: ask
    denylist:
      - "rm -rf"
  read_file:
    permission: always
  fetch_url:
    permission: never
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}

	if cfg.DefaultModel != "claude-haiku-4-5" {
		t.Errorf("DefaultModel = %q", cfg.DefaultModel)
	}
	if cfg.Budget.ContextWindow != 1000 {
		t.Errorf("ContextWindow = %d, want 1000", cfg.Budget.ContextWindow)
	}
	if cfg.Budget.MaxPrice != 1.0 {
		t.Errorf("MaxPrice = %v, want 1.0", cfg.Budget.MaxPrice)
	}
	if cfg.Engine.MaxIterations != 5 {
		t.Errorf("MaxIterations = %d, want 5", cfg.Engine.MaxIterations)
	}
	if cfg.Engine.ModelTimeout != 30*time.Second {
		t.Errorf("ModelTimeout = %v, want 30s", cfg.Engine.ModelTimeout)
	}

	bash := cfg.PolicyFor("bash")
	if bash.Permission != PermissionAsk {
		t.Errorf("bash permission = %q, want ask", bash.Permission)
	}
	if len(bash.Denylist) != 1 || bash.Denylist[0] != "rm -rf" {
		t.Errorf("bash denylist = %v", bash.Denylist)
	}
	if cfg.PolicyFor("fetch_url").Permission != PermissionNever {
		t.Error("fetch_url should be never")
	}
}

func TestPolicyFor_UnknownToolDefaultsToAsk(t *testing.T) {
	cfg := DefaultConfig()
	if got := cfg.PolicyFor("no_such_tool").Permission; got != PermissionAsk {
		t.Errorf("unknown tool permission = %q, want ask", got)
	}
}

func TestPricing(t *testing.T) {
	cfg := DefaultConfig()
	in, out, ok := cfg.Pricing("claude-sonnet-4-5")
	if !ok {
		t.Fatal("expected pricing for default model")
	}
	if in <= 0 || out <= 0 {
		t.Errorf("rates = %v, %v, want positive", in, out)
	}

	if _, _, ok := cfg.Pricing("unknown-model"); ok {
		t.Error("expected no pricing for unknown model")
	}
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Budget.WarnThreshold = 1.5
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for warn_threshold > 1")
	}

	cfg = DefaultConfig()
	cfg.Tools["weird"] = ToolPolicy{Permission: "sometimes"}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for invalid permission value")
	}
}
