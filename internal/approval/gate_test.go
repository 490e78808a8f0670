package approval

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vibe-cli/vibe/internal/config"
	vibeerr "github.com/vibe-cli/vibe/internal/errors"
)

func gateWith(t *testing.T, policies map[string]config.ToolPolicy, timeout time.Duration) *Gate {
	t.Helper()
	cfg := config.DefaultConfig()
	if policies != nil {
		cfg.Tools = policies
	}
	cfg.Engine.ApprovalTimeout = timeout
	return NewGate(cfg, zap.NewNop())
}

func TestGateAllowed(t *testing.T) {
	g := gateWith(t, map[string]config.ToolPolicy{
		"read_file": {Permission: config.PermissionAlways},
		"bash":      {Permission: config.PermissionAsk},
		"fetch_url": {Permission: config.PermissionNever},
	}, 0)

	assert.True(t, g.Allowed("read_file"))
	assert.True(t, g.Allowed("bash"))
	assert.False(t, g.Allowed("fetch_url"))
	// Unknown tools default to ask, so they stay in the tool set.
	assert.True(t, g.Allowed("unknown_tool"))
}

func TestGateCheck(t *testing.T) {
	policies := map[string]config.ToolPolicy{
		"read_file": {Permission: config.PermissionAlways},
		"bash": {
			Permission: config.PermissionAsk,
			Allowlist:  []string{"/^git (status|log|diff)/"},
			Denylist:   []string{"rm -rf"},
		},
		"write_file": {
			Permission: config.PermissionAlways,
			Denylist:   []string{"*.env"},
		},
		"fetch_url": {Permission: config.PermissionNever},
	}
	g := gateWith(t, policies, 0)

	tests := []struct {
		name string
		req  Request
		want Status
	}{
		{
			name: "always policy auto-approves",
			req:  Request{CallID: "c1", Tool: "read_file", Args: map[string]any{"path": "main.go"}},
			want: StatusAutoApproved,
		},
		{
			name: "ask policy awaits decision",
			req:  Request{CallID: "c2", Tool: "bash", Args: map[string]any{"command": "make test"}},
			want: StatusAwaitingDecision,
		},
		{
			name: "allowlist match auto-approves over ask default",
			req:  Request{CallID: "c3", Tool: "bash", Args: map[string]any{"command": "git status"}},
			want: StatusAutoApproved,
		},
		{
			name: "denylist forces prompt even on allowlisted command",
			req:  Request{CallID: "c4", Tool: "bash", Args: map[string]any{"command": "git status && rm -rf /"}},
			want: StatusAwaitingDecision,
		},
		{
			name: "denylist overrides always default",
			req:  Request{CallID: "c5", Tool: "write_file", Args: map[string]any{"path": ".env"}},
			want: StatusAwaitingDecision,
		},
		{
			name: "never policy rejects without suspending",
			req:  Request{CallID: "c6", Tool: "fetch_url", Args: map[string]any{"url": "https://example.com"}},
			want: StatusRejected,
		},
		{
			name: "unknown tool defaults to ask",
			req:  Request{CallID: "c7", Tool: "mystery", Args: nil},
			want: StatusAwaitingDecision,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, g.Check(tt.req))
		})
	}
}

func TestGateAwaitApprove(t *testing.T) {
	g := gateWith(t, nil, 0)
	req := Request{CallID: "call-1", Tool: "bash", Args: map[string]any{"command": "make"}}

	done := make(chan Decision, 1)
	go func() {
		d, err := g.Await(context.Background(), req)
		assert.NoError(t, err)
		done <- d
	}()

	// Wait for the call to land in the pending set before deciding.
	require.Eventually(t, func() bool {
		return len(g.Pending()) == 1
	}, time.Second, 5*time.Millisecond)

	pending := g.Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, "call-1", pending[0].CallID)
	assert.Equal(t, "bash", pending[0].Tool)

	require.NoError(t, g.ApplyDecision("call-1", true, ""))

	d := <-done
	assert.True(t, d.Approved)
	assert.Empty(t, g.Pending())
}

func TestGateAwaitRejectWithFeedback(t *testing.T) {
	g := gateWith(t, nil, 0)
	req := Request{CallID: "call-2", Tool: "write_file", Args: map[string]any{"path": "a.txt"}}

	done := make(chan Decision, 1)
	go func() {
		d, err := g.Await(context.Background(), req)
		assert.NoError(t, err)
		done <- d
	}()

	require.Eventually(t, func() bool {
		return len(g.Pending()) == 1
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, g.ApplyDecision("call-2", false, "use edit_file instead"))

	d := <-done
	assert.False(t, d.Approved)
	assert.Equal(t, "use edit_file instead", d.Feedback)
}

func TestGateDecisionAppliedExactlyOnce(t *testing.T) {
	g := gateWith(t, nil, 0)
	req := Request{CallID: "call-3", Tool: "bash", Args: nil}

	go func() {
		_, _ = g.Await(context.Background(), req)
	}()

	require.Eventually(t, func() bool {
		return len(g.Pending()) == 1
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, g.ApplyDecision("call-3", true, ""))

	err := g.ApplyDecision("call-3", false, "changed my mind")
	require.Error(t, err)
	assert.True(t, vibeerr.IsCode(err, vibeerr.CodeApprovalResolved))
}

func TestGateDecisionForUnknownCall(t *testing.T) {
	g := gateWith(t, nil, 0)

	err := g.ApplyDecision("no-such-call", true, "")
	require.Error(t, err)
	assert.True(t, vibeerr.IsCode(err, vibeerr.CodeApprovalResolved))
}

func TestGateConcurrentDecisionsSingleWinner(t *testing.T) {
	g := gateWith(t, nil, 0)
	req := Request{CallID: "call-race", Tool: "bash", Args: nil}

	go func() {
		_, _ = g.Await(context.Background(), req)
	}()

	require.Eventually(t, func() bool {
		return len(g.Pending()) == 1
	}, time.Second, 5*time.Millisecond)

	var wg sync.WaitGroup
	errs := make([]error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = g.ApplyDecision("call-race", i%2 == 0, "")
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		}
	}
	assert.Equal(t, 1, succeeded)
}

func TestGateResetRejectsPending(t *testing.T) {
	g := gateWith(t, nil, 0)

	results := make(chan Decision, 3)
	for _, id := range []string{"r1", "r2", "r3"} {
		req := Request{CallID: id, Tool: "bash", Args: nil}
		go func(r Request) {
			d, err := g.Await(context.Background(), r)
			assert.NoError(t, err)
			results <- d
		}(req)
	}

	require.Eventually(t, func() bool {
		return len(g.Pending()) == 3
	}, time.Second, 5*time.Millisecond)

	g.Reset()

	for i := 0; i < 3; i++ {
		d := <-results
		assert.False(t, d.Approved)
		assert.Equal(t, ResetFeedback, d.Feedback)
	}
	assert.Empty(t, g.Pending())
}

func TestGateAwaitTimeout(t *testing.T) {
	g := gateWith(t, nil, 20*time.Millisecond)
	req := Request{CallID: "call-t", Tool: "bash", Args: nil}

	d, err := g.Await(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, d.Approved)
	assert.Equal(t, TimeoutFeedback, d.Feedback)
	assert.Empty(t, g.Pending())
}

func TestGateAwaitContextCancel(t *testing.T) {
	g := gateWith(t, nil, 0)
	req := Request{CallID: "call-c", Tool: "bash", Args: nil}

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		_, err := g.Await(ctx, req)
		done <- err
	}()

	require.Eventually(t, func() bool {
		return len(g.Pending()) == 1
	}, time.Second, 5*time.Millisecond)

	cancel()

	err := <-done
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, g.Pending())
}
