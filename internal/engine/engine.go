// Package engine orchestrates one conversational turn: budget checks, the
// model call, usage accounting, tool gating, and tool execution, looping
// until the model stops requesting tools.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vibe-cli/vibe/internal/approval"
	"github.com/vibe-cli/vibe/internal/config"
	vibeerr "github.com/vibe-cli/vibe/internal/errors"
	"github.com/vibe-cli/vibe/internal/llm"
	"github.com/vibe-cli/vibe/internal/middleware"
	"github.com/vibe-cli/vibe/internal/tools"
	"github.com/vibe-cli/vibe/internal/usage"
)

// Session is one continuous conversation: an identifier, its ordered
// message history, and the budget state scoped to it. Owned exclusively by
// one Engine.
type Session struct {
	ID       string
	Messages []llm.Message
}

// Engine runs turns against a single session. At most one turn may be in
// flight at a time; a second Run fails fast instead of interleaving.
type Engine struct {
	client       llm.Client
	registry     *tools.Registry
	gate         *approval.Gate
	tracker      *usage.Tracker
	warning      *middleware.ContextWarning
	price        *middleware.PriceLimit
	limiter      *llm.TokenBucket
	cfg          *config.Config
	log          *zap.Logger
	systemPrompt string

	mu      sync.Mutex
	session *Session
	running bool
}

// New wires an engine from its collaborators. The budget stages are built
// here from config so their ordering stays fixed inside the pipeline.
func New(cfg *config.Config, client llm.Client, registry *tools.Registry, gate *approval.Gate, tracker *usage.Tracker, log *zap.Logger) *Engine {
	pricing := make(middleware.PricingTable, len(cfg.Models))
	for _, m := range cfg.Models {
		pricing[m.Name] = usage.Rates{Input: m.InputRate(), Output: m.OutputRate()}
	}

	var limiter *llm.TokenBucket
	if cfg.RateLimit.EnableRateLimiting {
		limiter = llm.NewTokenBucket(cfg.RateLimit.TokensPerMinute, log)
	}

	return &Engine{
		client:   client,
		registry: registry,
		gate:     gate,
		tracker:  tracker,
		warning:  middleware.NewContextWarning(cfg.Budget.ContextWindow, cfg.Budget.WarnThreshold),
		price:    middleware.NewPriceLimit(cfg.Budget.MaxPrice, pricing, tracker, log),
		limiter:  limiter,
		cfg:      cfg,
		log:      log.Named("engine"),
		session:  &Session{ID: uuid.NewString()},
	}
}

// SetSystemPrompt sets the system prompt used on every model call.
func (e *Engine) SetSystemPrompt(prompt string) {
	e.systemPrompt = prompt
}

// SessionID returns the current session identifier.
func (e *Engine) SessionID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session.ID
}

// History returns a copy of the session's message history.
func (e *Engine) History() []llm.Message {
	e.mu.Lock()
	defer e.mu.Unlock()
	msgs := make([]llm.Message, len(e.session.Messages))
	copy(msgs, e.session.Messages)
	return msgs
}

// Restore replaces the session with a persisted one so budget accounting
// continues where it left off. Must not be called while a turn is running.
func (e *Engine) Restore(id string, messages []llm.Message, totals usage.Totals) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return vibeerr.TurnInProgress(e.session.ID)
	}
	e.session = &Session{ID: id, Messages: messages}
	e.tracker.Restore(totals)
	return nil
}

// ApplyDecision resolves one pending tool approval. This is the single
// entry point for the external approval surface.
func (e *Engine) ApplyDecision(callID string, approved bool, feedback string) error {
	return e.gate.ApplyDecision(callID, approved, feedback)
}

// PendingApprovals returns the tool calls currently awaiting a decision.
func (e *Engine) PendingApprovals() []approval.Request {
	return e.gate.Pending()
}

// Usage returns a snapshot of the session's cumulative usage.
func (e *Engine) Usage() usage.Totals {
	return e.tracker.Snapshot()
}

// Reset discards the conversation and starts a fresh session: history and
// usage cleared, the context warning re-armed, and every pending approval
// force-rejected so nothing deadlocks on an abandoned prompt. A turn
// suspended on one of those approvals ends with a session reset error
// rather than running on against the replacement session.
func (e *Engine) Reset() {
	// Swap the session before releasing any suspended approval so a turn
	// woken by the forced rejection already observes the replacement.
	e.mu.Lock()
	e.session = &Session{ID: uuid.NewString()}
	e.mu.Unlock()

	e.gate.Reset()
	e.warning.Reset()
	e.tracker.Reset()
	e.log.Info("session reset", zap.String("session_id", e.SessionID()))
}

// Run executes one turn: the user message goes in, the loop alternates
// model calls and gated tool execution until the model answers without
// requesting tools. The stage order inside the loop is fixed: context check
// before the model call, price check after it, gating before execution.
func (e *Engine) Run(ctx context.Context, userMessage string, sink Sink) error {
	if sink == nil {
		sink = NopSink{}
	}

	e.mu.Lock()
	if e.running {
		id := e.session.ID
		e.mu.Unlock()
		return vibeerr.TurnInProgress(id)
	}
	e.running = true
	sess := e.session
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
	}()

	e.appendMessage(sess, llm.Message{Role: "user", Content: userMessage})

	toolDefs := e.registry.Definitions()

	for i := 0; i < e.cfg.Engine.MaxIterations; i++ {
		// A reset replaces the session; the orphaned turn must end here
		// instead of spending and appending into the fresh one.
		if !e.currentSession(sess) {
			return vibeerr.SessionReset(sess.ID)
		}

		if w := e.warning.BeforeModelCall(e.tracker.Snapshot()); w != nil {
			sink.Warning(w.Message())
		}

		resp, err := e.callModel(ctx, sess, toolDefs)
		if err != nil {
			return err
		}

		model := resp.Model
		if model == "" {
			model = e.client.GetModel()
		}
		e.tracker.Record(model, resp.Usage)

		decision := e.price.AfterModelCall(model, resp.Usage)

		if resp.Content != "" || len(resp.ToolCalls) > 0 {
			e.appendMessage(sess, llm.Message{
				Role:      "assistant",
				Content:   resp.Content,
				ToolCalls: resp.ToolCalls,
				Usage:     resp.Usage,
			})
		}
		if resp.Content != "" {
			sink.AssistantText(resp.Content)
		}

		if decision.Kind == middleware.DecisionAbort {
			sink.Warning(decision.Reason)
			return vibeerr.CostLimitExceeded(e.tracker.Snapshot().Cost, e.cfg.Budget.MaxPrice)
		}

		if len(resp.ToolCalls) == 0 {
			return nil
		}

		if err := e.runToolBatch(ctx, sess, resp.ToolCalls, sink); err != nil {
			return err
		}
	}

	return vibeerr.MaxIterationsReached(e.cfg.Engine.MaxIterations)
}

// callModel invokes the model under the configured timeout. A deadline hit
// is reported as a timeout, distinct from other request failures.
func (e *Engine) callModel(ctx context.Context, sess *Session, toolDefs []llm.ToolDefinition) (*llm.Response, error) {
	e.mu.Lock()
	messages := make([]llm.Message, len(sess.Messages))
	copy(messages, sess.Messages)
	e.mu.Unlock()

	if e.limiter != nil {
		if err := e.limiter.Wait(ctx, llm.EstimateMessages(messages)); err != nil {
			return nil, err
		}
	}

	callCtx := ctx
	if e.cfg.Engine.ModelTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, e.cfg.Engine.ModelTimeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := e.client.Chat(callCtx, messages, toolDefs, e.systemPrompt)
	if err != nil {
		if ctx.Err() != nil {
			// The caller cancelled; not a model failure.
			return nil, ctx.Err()
		}
		if errors.Is(err, context.DeadlineExceeded) || callCtx.Err() == context.DeadlineExceeded {
			return nil, vibeerr.LLMTimeout(e.cfg.Engine.ModelTimeout.String(), err)
		}
		return nil, vibeerr.LLMRequestFailed(err)
	}

	e.log.Debug("model call completed",
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("tool_calls", len(resp.ToolCalls)))
	return resp, nil
}

// runToolBatch takes every tool call in one model response to a terminal
// state before returning: approvals are resolved sequentially, approved
// calls execute concurrently, and one result message is appended per call
// in batch order. Partial batches are never forwarded to the next model
// call.
func (e *Engine) runToolBatch(ctx context.Context, sess *Session, calls []llm.ToolCall, sink Sink) error {
	type outcome struct {
		result  string
		isError bool
		execute bool
	}
	outcomes := make([]outcome, len(calls))

	for i, tc := range calls {
		req := approval.Request{CallID: tc.ID, Tool: tc.Name, Args: tc.Input}

		switch e.gate.Check(req) {
		case approval.StatusAutoApproved:
			outcomes[i].execute = true

		case approval.StatusRejected:
			outcomes[i] = outcome{
				result:  rejectionRecord("tool disabled by policy"),
				isError: true,
			}

		case approval.StatusAwaitingDecision:
			sink.ApprovalRequested(req, describeCall(tc.Name, tc.Input))
			d, err := e.gate.Await(ctx, req)
			if err != nil {
				return err
			}
			if !e.currentSession(sess) {
				// A reset force-rejected this call and discarded the
				// session; nothing else in the batch may run.
				return vibeerr.SessionReset(sess.ID)
			}
			if d.Approved {
				outcomes[i].execute = true
			} else {
				outcomes[i] = outcome{result: rejectionRecord(d.Feedback), isError: true}
			}
		}
	}

	g, execCtx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Engine.MaxParallelTools)

	for i, tc := range calls {
		if !outcomes[i].execute {
			continue
		}
		sink.ToolCall(tc.Name, describeCall(tc.Name, tc.Input))

		g.Go(func() error {
			result, err := e.registry.Execute(execCtx, tc.Name, tc.Input)
			if err != nil {
				// Tool failure is recoverable: it becomes a message the
				// model can react to, not a pipeline error.
				outcomes[i] = outcome{result: "Error: " + err.Error(), isError: true, execute: true}
				return nil
			}
			outcomes[i] = outcome{result: result, execute: true}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	for i, tc := range calls {
		sink.ToolResult(tc.Name, outcomes[i].result, outcomes[i].isError)
		e.appendMessage(sess, llm.Message{
			Role:       "tool",
			Content:    outcomes[i].result,
			ToolCallID: tc.ID,
		})
	}
	return nil
}

// appendMessage writes into the session the turn started with, never the
// engine's current one, so a turn orphaned by a reset cannot pollute the
// replacement session.
func (e *Engine) appendMessage(sess *Session, msg llm.Message) {
	e.mu.Lock()
	defer e.mu.Unlock()
	sess.Messages = append(sess.Messages, msg)
}

func (e *Engine) currentSession(sess *Session) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session == sess
}

// rejectionRecord renders the synthetic tool-result content for a rejected
// call so the model can react to the refusal on its next iteration.
func rejectionRecord(feedback string) string {
	if feedback == "" {
		return "Tool call rejected by user"
	}
	return fmt.Sprintf("Tool call rejected by user: %s", feedback)
}
