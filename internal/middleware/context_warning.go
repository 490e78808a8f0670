package middleware

import (
	"sync"

	"github.com/vibe-cli/vibe/internal/usage"
)

// ContextWarning warns once per session when cumulative token usage crosses
// a fraction of the context window. Advisory only: it has no veto power over
// the pipeline.
type ContextWarning struct {
	maxContext int64
	threshold  float64

	mu     sync.Mutex
	warned bool
}

// NewContextWarning builds the stage. A zero maxContext disables it.
func NewContextWarning(maxContext int, threshold float64) *ContextWarning {
	return &ContextWarning{
		maxContext: int64(maxContext),
		threshold:  threshold,
	}
}

// BeforeModelCall checks usage ahead of a model call. It returns a Warning
// exactly once per session, the first time the threshold is crossed; nil
// otherwise.
func (c *ContextWarning) BeforeModelCall(totals usage.Totals) *Warning {
	if c.maxContext <= 0 {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.warned {
		return nil
	}

	used := totals.TotalTokens()
	if float64(used) < float64(c.maxContext)*c.threshold {
		return nil
	}

	c.warned = true
	return &Warning{
		PercentUsed: float64(used) / float64(c.maxContext),
		UsedTokens:  used,
		MaxTokens:   c.maxContext,
	}
}

// Reset clears the warned flag. Only an explicit session reset calls this;
// the flag must survive across turns within a session.
func (c *ContextWarning) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.warned = false
}
