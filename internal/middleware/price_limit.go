package middleware

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/vibe-cli/vibe/internal/llm"
	"github.com/vibe-cli/vibe/internal/usage"
)

// PricingTable maps a model identifier to its per-token rates.
type PricingTable map[string]usage.Rates

// PriceLimit enforces the session spend ceiling after each model call.
// Unlike the context warning this is a hard boundary: once the ceiling is
// breached the turn must stop spending.
type PriceLimit struct {
	maxPrice float64
	pricing  PricingTable
	tracker  *usage.Tracker
	log      *zap.Logger
}

// NewPriceLimit builds the stage. A zero maxPrice disables the ceiling;
// cost still accumulates for reporting.
func NewPriceLimit(maxPrice float64, pricing PricingTable, tracker *usage.Tracker, log *zap.Logger) *PriceLimit {
	return &PriceLimit{
		maxPrice: maxPrice,
		pricing:  pricing,
		tracker:  tracker,
		log:      log.Named("price_limit"),
	}
}

// AfterModelCall prices the call that just completed and folds the amount
// into the session total. The rate is looked up by the model that actually
// served the call: a default rate would silently produce a non-functional
// budget.
func (p *PriceLimit) AfterModelCall(model string, u *llm.Usage) Decision {
	if u == nil {
		// Nothing to price; the usage tracker already logged the gap.
		return Continue()
	}

	rates, ok := p.pricing[model]
	if !ok {
		p.log.Warn("no pricing entry for model; call priced at $0 and budget not advanced",
			zap.String("model", model))
		return Continue()
	}

	// Cost accumulates whether or not a ceiling is configured, so usage
	// reporting stays accurate when the limit is disabled.
	cost := float64(u.InputTokens)*rates.Input + float64(u.OutputTokens)*rates.Output
	p.tracker.AddCost(model, cost)

	if p.maxPrice <= 0 {
		return Continue()
	}

	total := p.tracker.Snapshot().Cost
	if total > p.maxPrice {
		reason := fmt.Sprintf("price limit exceeded: $%.4f > $%.2f", total, p.maxPrice)
		p.log.Warn("session spend ceiling breached",
			zap.Float64("total", total),
			zap.Float64("limit", p.maxPrice))
		return Abort(reason, total-p.maxPrice)
	}

	return Continue()
}
