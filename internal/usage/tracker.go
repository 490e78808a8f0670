// Package usage maintains cumulative token and cost counters for a session.
//
// Counters come strictly from provider-reported usage metadata. A response
// without metadata is counted as a missing-usage event and logged, never
// estimated: an estimate would be silently wrong, a visible gap is not.
package usage

import (
	"sync"

	"go.uber.org/zap"

	"github.com/vibe-cli/vibe/internal/llm"
)

// Totals is a snapshot of cumulative session counters.
type Totals struct {
	InputTokens  int64
	OutputTokens int64
	Cost         float64
	// MissingUsageEvents counts model responses that carried no usage
	// metadata. When nonzero, the token totals under-count.
	MissingUsageEvents int
}

// TotalTokens returns input plus output tokens.
func (t Totals) TotalTokens() int64 {
	return t.InputTokens + t.OutputTokens
}

// Rates is a per-token pricing pair for one model.
type Rates struct {
	Input  float64 // $ per input token
	Output float64 // $ per output token
}

// Tracker accumulates usage across a session. Safe for concurrent use.
type Tracker struct {
	mu      sync.Mutex
	totals  Totals
	byModel map[string]Totals
	log     *zap.Logger
}

// NewTracker creates an empty tracker.
func NewTracker(log *zap.Logger) *Tracker {
	return &Tracker{
		byModel: make(map[string]Totals),
		log:     log.Named("usage"),
	}
}

// Record adds one model response's reported usage to the session totals.
// A nil usage is recorded as a missing-usage event and logged once per
// occurrence; totals are left untouched.
func (t *Tracker) Record(model string, u *llm.Usage) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if u == nil {
		t.totals.MissingUsageEvents++
		t.log.Warn("model response carried no usage metadata; session totals under-count",
			zap.String("model", model),
			zap.Int("missing_events", t.totals.MissingUsageEvents))
		return
	}

	t.totals.InputTokens += u.InputTokens
	t.totals.OutputTokens += u.OutputTokens

	m := t.byModel[model]
	m.InputTokens += u.InputTokens
	m.OutputTokens += u.OutputTokens
	t.byModel[model] = m
}

// AddCost folds a computed dollar amount into the session total.
// Called by the cost budget middleware after pricing a completed call.
func (t *Tracker) AddCost(model string, amount float64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.totals.Cost += amount
	m := t.byModel[model]
	m.Cost += amount
	t.byModel[model] = m
}

// Snapshot returns a copy of the session totals. Safe to call while a turn
// is in flight.
func (t *Tracker) Snapshot() Totals {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.totals
}

// ModelSnapshot returns a copy of the counters for one model.
func (t *Tracker) ModelSnapshot(model string) Totals {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.byModel[model]
}

// Cost computes the dollar cost of the cumulative counters at the given
// rates. Pure computation; does not mutate state.
func (t *Tracker) Cost(r Rates) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return float64(t.totals.InputTokens)*r.Input + float64(t.totals.OutputTokens)*r.Output
}

// Reset zeroes all counters. Only an explicit session reset calls this.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.totals = Totals{}
	t.byModel = make(map[string]Totals)
}

// Restore seeds the tracker from persisted counters when resuming a session.
func (t *Tracker) Restore(totals Totals) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.totals = totals
}
