package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// ModelConfig describes one usable model and its pricing.
// Prices are configured in dollars per million tokens, the way providers
// publish them; use InputRate/OutputRate for per-token math.
type ModelConfig struct {
	Name        string  `yaml:"name"`
	InputPrice  float64 `yaml:"input_price"`  // $ per 1M input tokens
	OutputPrice float64 `yaml:"output_price"` // $ per 1M output tokens
}

// InputRate returns the per-token input rate in dollars.
func (m ModelConfig) InputRate() float64 { return m.InputPrice / 1_000_000 }

// OutputRate returns the per-token output rate in dollars.
func (m ModelConfig) OutputRate() float64 { return m.OutputPrice / 1_000_000 }

// BudgetConfig holds context and spend ceilings for a session.
type BudgetConfig struct {
	// ContextWindow is the context ceiling in tokens. Zero disables the
	// context warning entirely.
	ContextWindow int `yaml:"context_window"`
	// WarnThreshold is the fraction of ContextWindow at which a one-time
	// advisory warning is emitted (default 0.5).
	WarnThreshold float64 `yaml:"warn_threshold"`
	// MaxPrice is the session spend ceiling in dollars. Zero disables the
	// cost budget.
	MaxPrice float64 `yaml:"max_price"`
}

// ToolPermission is the default approval policy for a tool.
type ToolPermission string

const (
	PermissionAlways ToolPermission = "always" // execute without asking
	PermissionAsk    ToolPermission = "ask"    // suspend for user approval
	PermissionNever  ToolPermission = "never"  // excluded from the tool set
)

// ToolPolicy configures approval behavior for one tool.
type ToolPolicy struct {
	Permission ToolPermission `yaml:"permission"`
	// Allowlist patterns auto-approve a matching call even when Permission
	// is "ask". Denylist patterns force a prompt even when Permission is
	// "always"; denylist wins over allowlist.
	Allowlist []string `yaml:"allowlist"`
	Denylist  []string `yaml:"denylist"`
}

// EngineConfig bounds the turn loop.
type EngineConfig struct {
	MaxIterations    int           `yaml:"max_iterations"`
	MaxParallelTools int           `yaml:"max_parallel_tools"`
	ModelTimeout     time.Duration `yaml:"model_timeout"`
	// ApprovalTimeout bounds how long a pending approval waits before it is
	// auto-rejected. Zero waits indefinitely.
	ApprovalTimeout time.Duration `yaml:"approval_timeout"`
}

// RateLimitConfig holds proactive rate limiting configuration.
type RateLimitConfig struct {
	MaxRetries         int  `yaml:"max_retries"`
	TokensPerMinute    int  `yaml:"tokens_per_minute"`
	EnableRateLimiting bool `yaml:"enable_rate_limiting"`
}

// Config holds the application configuration
type Config struct {
	APIKey       string                `yaml:"-"` // From environment only
	DefaultModel string                `yaml:"default_model"`
	MaxTokens    int                   `yaml:"max_tokens"`
	Models       []ModelConfig         `yaml:"models"`
	Budget       BudgetConfig          `yaml:"budget"`
	Engine       EngineConfig          `yaml:"engine"`
	RateLimit    RateLimitConfig       `yaml:"rate_limit"`
	Tools        map[string]ToolPolicy `yaml:"tools"`

	// Internal: where config was loaded from
	configPath string
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		DefaultModel: "claude-sonnet-4-5",
		MaxTokens:    8192,
		Models: []ModelConfig{
			{Name: "claude-sonnet-4-5", InputPrice: 3.0, OutputPrice: 15.0},
			{Name: "claude-haiku-4-5", InputPrice: 1.0, OutputPrice: 5.0},
		},
		Budget: BudgetConfig{
			ContextWindow: 200000,
			WarnThreshold: 0.5,
			MaxPrice:      0, // disabled unless configured
		},
		Engine: EngineConfig{
			MaxIterations:    20,
			MaxParallelTools: 4,
			ModelTimeout:     120 * time.Second,
			ApprovalTimeout:  0,
		},
		RateLimit: RateLimitConfig{
			MaxRetries:         5,
			TokensPerMinute:    30000,
			EnableRateLimiting: true,
		},
		Tools: map[string]ToolPolicy{
			"read_file":  {Permission: PermissionAlways},
			"list_files": {Permission: PermissionAlways},
			"grep":       {Permission: PermissionAlways},
			"write_file": {Permission: PermissionAsk},
			"edit_file":  {Permission: PermissionAsk},
			"bash":       {Permission: PermissionAsk},
		},
	}
}

// Load loads configuration from files and environment
func Load() (*Config, error) {
	return LoadFrom("")
}

// LoadFrom loads configuration, preferring the explicit path when given.
func LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()

	paths := configPaths()
	if path != "" {
		paths = []string{path}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			if err := cfg.loadFromFile(p); err != nil {
				return nil, err
			}
			cfg.configPath = p
			break
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// configPaths returns candidate config file locations in priority order:
// project-local first, then the user-level config.
func configPaths() []string {
	paths := []string{filepath.Join(".vibe", "config.yaml")}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".vibe", "config.yaml"))
	}
	return paths
}

func (c *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("error reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("error parsing config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		c.APIKey = key
	}
	if model := os.Getenv("VIBE_MODEL"); model != "" {
		c.DefaultModel = model
	}
}

// Validate checks invariants the pipeline relies on.
func (c *Config) Validate() error {
	if c.Budget.WarnThreshold < 0 || c.Budget.WarnThreshold > 1 {
		return fmt.Errorf("budget.warn_threshold must be in [0,1], got %v", c.Budget.WarnThreshold)
	}
	if c.Budget.MaxPrice < 0 {
		return fmt.Errorf("budget.max_price must not be negative, got %v", c.Budget.MaxPrice)
	}
	if c.Engine.MaxIterations <= 0 {
		c.Engine.MaxIterations = 20
	}
	if c.Engine.MaxParallelTools <= 0 {
		c.Engine.MaxParallelTools = 4
	}
	for name, policy := range c.Tools {
		switch policy.Permission {
		case PermissionAlways, PermissionAsk, PermissionNever, "":
		default:
			return fmt.Errorf("tools.%s.permission must be always/ask/never, got %q", name, policy.Permission)
		}
	}
	return nil
}

// Pricing returns per-token (input, output) rates for a model, with ok=false
// when the model has no pricing entry. Callers must treat a missing entry as
// a visible condition, never as a free model.
func (c *Config) Pricing(model string) (inputRate, outputRate float64, ok bool) {
	for _, m := range c.Models {
		if m.Name == model {
			return m.InputRate(), m.OutputRate(), true
		}
	}
	return 0, 0, false
}

// PolicyFor returns the tool policy, defaulting unknown tools to "ask".
func (c *Config) PolicyFor(tool string) ToolPolicy {
	if p, ok := c.Tools[tool]; ok {
		if p.Permission == "" {
			p.Permission = PermissionAsk
		}
		return p
	}
	return ToolPolicy{Permission: PermissionAsk}
}

// ConfigPath returns the path the config was loaded from, if any.
func (c *Config) ConfigPath() string {
	return c.configPath
}
