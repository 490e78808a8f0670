package llm

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// TokenBucket rate-limits outgoing model calls to stay under a
// tokens-per-minute budget.
//
// The pre-send size estimate here exists only to pace requests; it is never
// fed into usage accounting, which uses provider-reported counts exclusively.
type TokenBucket struct {
	limiter *rate.Limiter
	log     *zap.Logger
}

// NewTokenBucket creates a rate limiter from a tokens-per-minute budget.
func NewTokenBucket(tokensPerMinute int, log *zap.Logger) *TokenBucket {
	tokensPerSecond := float64(tokensPerMinute) / 60.0
	// Burst allows roughly ten seconds of headroom.
	burst := tokensPerMinute / 6
	if burst < 1000 {
		burst = 1000
	}

	return &TokenBucket{
		limiter: rate.NewLimiter(rate.Limit(tokensPerSecond), burst),
		log:     log.Named("ratelimit"),
	}
}

// Wait blocks until the estimated token count can be sent, or ctx is done.
func (tb *TokenBucket) Wait(ctx context.Context, tokens int) error {
	if tokens > tb.limiter.Burst() {
		// Requests larger than the burst would block forever; let them
		// through at burst size rather than deadlocking the turn.
		tb.log.Warn("request exceeds rate limiter burst, capping",
			zap.Int("tokens", tokens), zap.Int("burst", tb.limiter.Burst()))
		tokens = tb.limiter.Burst()
	}
	return tb.limiter.WaitN(ctx, tokens)
}

// EstimateMessages roughly sizes a request for rate limiting purposes only:
// ~4 characters per token plus per-message overhead.
func EstimateMessages(messages []Message) int {
	total := 0
	for _, msg := range messages {
		total += 4
		total += len(msg.Content) / 4
	}
	return total
}
