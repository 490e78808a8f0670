// Package approval gates tool execution behind per-tool policy and, when the
// policy demands it, an external approve/reject decision.
//
// Each intercepted tool call walks a small state machine:
//
//	Requested -> AutoApproved -> Approved            (policy "always", or allowlist)
//	Requested -> AwaitingDecision -> Approved        (external approval)
//	Requested -> AwaitingDecision -> Rejected        (external rejection, reset, timeout)
//	Requested -> Rejected                            (policy "never")
//
// Terminal states are reached exactly once; a decision applied after the
// call resolved is an error, never a double transition.
package approval

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vibe-cli/vibe/internal/config"
	vibeerr "github.com/vibe-cli/vibe/internal/errors"
)

// Status is the state of one intercepted tool call.
type Status int

const (
	StatusRequested Status = iota
	StatusAutoApproved
	StatusAwaitingDecision
	StatusApproved
	StatusRejected
)

func (s Status) String() string {
	switch s {
	case StatusRequested:
		return "requested"
	case StatusAutoApproved:
		return "auto_approved"
	case StatusAwaitingDecision:
		return "awaiting_decision"
	case StatusApproved:
		return "approved"
	case StatusRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Request identifies one pending tool call.
type Request struct {
	CallID string
	Tool   string
	Args   map[string]any
}

// Decision is the external approve/reject verdict for one call.
type Decision struct {
	Approved bool
	Feedback string
}

// ResetFeedback is attached to decisions forced by a session reset.
const ResetFeedback = "session reset"

// TimeoutFeedback is attached to decisions forced by the approval timeout.
const TimeoutFeedback = "approval timed out"

type pendingCall struct {
	req      Request
	resolved bool
	// Buffered so a decision can land before Await starts listening and so
	// ApplyDecision never blocks on a departed waiter.
	ch chan Decision
}

// Gate evaluates tool calls against policy and holds the calls that need an
// external decision. One Gate serves one session.
type Gate struct {
	policies func(tool string) config.ToolPolicy
	timeout  time.Duration
	log      *zap.Logger

	mu      sync.Mutex
	pending map[string]*pendingCall
}

// NewGate builds a gate over the config's per-tool policies. A zero timeout
// waits indefinitely for decisions.
func NewGate(cfg *config.Config, log *zap.Logger) *Gate {
	return &Gate{
		policies: cfg.PolicyFor,
		timeout:  cfg.Engine.ApprovalTimeout,
		log:      log.Named("approval"),
		pending:  make(map[string]*pendingCall),
	}
}

// Allowed reports whether a tool may be offered to the model at all.
// Tools with policy "never" are excluded from the tool set up front instead
// of being rejected call-by-call, which would waste a model round trip.
func (g *Gate) Allowed(tool string) bool {
	return g.policies(tool).Permission != config.PermissionNever
}

// Check classifies a requested call without suspending. The result is
// either a terminal auto-decision (AutoApproved, Rejected) or
// AwaitingDecision, in which case the call is registered as pending and the
// caller follows up with Await. A decision may be applied as soon as Check
// returns AwaitingDecision.
//
// Denylist patterns are evaluated first and force a prompt even over an
// "always" default; allowlist patterns auto-approve even over an "ask"
// default. Most restrictive wins on conflicting matches.
func (g *Gate) Check(req Request) Status {
	policy := g.policies(req.Tool)

	if policy.Permission == config.PermissionNever {
		g.log.Warn("call to policy-excluded tool rejected",
			zap.String("tool", req.Tool), zap.String("call_id", req.CallID))
		return StatusRejected
	}

	for _, pattern := range policy.Denylist {
		if MatchesPattern(req.Tool, req.Args, pattern) {
			g.log.Debug("denylist match forces approval prompt",
				zap.String("tool", req.Tool), zap.String("pattern", pattern))
			g.register(req)
			return StatusAwaitingDecision
		}
	}

	for _, pattern := range policy.Allowlist {
		if MatchesPattern(req.Tool, req.Args, pattern) {
			return StatusAutoApproved
		}
	}

	if policy.Permission == config.PermissionAlways {
		return StatusAutoApproved
	}

	g.register(req)
	return StatusAwaitingDecision
}

func (g *Gate) register(req Request) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.pending[req.CallID]; ok {
		return
	}
	g.pending[req.CallID] = &pendingCall{
		req: req,
		ch:  make(chan Decision, 1),
	}
}

// Await suspends until the decision for the call arrives, the configured
// timeout fires, or ctx is cancelled. Calls not yet registered by Check are
// registered here, so Await can also be used standalone.
//
// On cancellation the pending entry is removed and the context error
// returned; no decision is fabricated.
func (g *Gate) Await(ctx context.Context, req Request) (Decision, error) {
	g.register(req)
	g.mu.Lock()
	pc := g.pending[req.CallID]
	g.mu.Unlock()

	g.log.Info("awaiting approval",
		zap.String("tool", req.Tool), zap.String("call_id", req.CallID))

	var timeoutCh <-chan time.Time
	if g.timeout > 0 {
		timer := time.NewTimer(g.timeout)
		defer timer.Stop()
		timeoutCh = timer.C
	}

	select {
	case d := <-pc.ch:
		g.remove(req.CallID)
		return d, nil

	case <-timeoutCh:
		// Resolve through the same path an external caller would use, so a
		// racing ApplyDecision still sees exactly-once semantics. Losing
		// the race means a real decision landed first; use it.
		_ = g.ApplyDecision(req.CallID, false, TimeoutFeedback)
		d := <-pc.ch
		g.remove(req.CallID)
		return d, nil

	case <-ctx.Done():
		g.remove(req.CallID)
		return Decision{}, ctx.Err()
	}
}

func (g *Gate) remove(callID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.pending, callID)
}

// ApplyDecision resolves one awaiting call. It is the single entry point
// for the external approval surface. Applying a decision twice, or to an
// unknown call, returns an error instead of re-transitioning the state
// machine.
func (g *Gate) ApplyDecision(callID string, approved bool, feedback string) error {
	g.mu.Lock()
	pc, ok := g.pending[callID]
	if !ok || pc.resolved {
		g.mu.Unlock()
		return vibeerr.ApprovalAlreadyResolved(callID)
	}
	pc.resolved = true
	g.mu.Unlock()

	pc.ch <- Decision{Approved: approved, Feedback: feedback}

	g.log.Info("approval decision applied",
		zap.String("call_id", callID), zap.Bool("approved", approved))
	return nil
}

// Pending returns the calls currently awaiting a decision. The external
// surface may use this to re-display prompts or implement its own timeout.
func (g *Gate) Pending() []Request {
	g.mu.Lock()
	defer g.mu.Unlock()

	reqs := make([]Request, 0, len(g.pending))
	for _, pc := range g.pending {
		if pc.resolved {
			continue
		}
		reqs = append(reqs, pc.req)
	}
	return reqs
}

// Reset force-rejects every pending call so a session reset can never
// deadlock on an abandoned approval.
func (g *Gate) Reset() {
	g.mu.Lock()
	var unresolved []*pendingCall
	for _, pc := range g.pending {
		if !pc.resolved {
			pc.resolved = true
			unresolved = append(unresolved, pc)
		}
	}
	g.pending = make(map[string]*pendingCall)
	g.mu.Unlock()

	for _, pc := range unresolved {
		pc.ch <- Decision{Approved: false, Feedback: ResetFeedback}
	}

	if len(unresolved) > 0 {
		g.log.Info("session reset rejected pending approvals", zap.Int("count", len(unresolved)))
	}
}
