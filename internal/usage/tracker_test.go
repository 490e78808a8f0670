package usage

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vibe-cli/vibe/internal/llm"
)

func TestTracker_RecordAccumulates(t *testing.T) {
	tr := NewTracker(zap.NewNop())

	tr.Record("m1", &llm.Usage{InputTokens: 100, OutputTokens: 20})
	tr.Record("m1", &llm.Usage{InputTokens: 50, OutputTokens: 10})

	got := tr.Snapshot()
	assert.Equal(t, int64(150), got.InputTokens)
	assert.Equal(t, int64(30), got.OutputTokens)
	assert.Equal(t, int64(180), got.TotalTokens())
	assert.Equal(t, 0, got.MissingUsageEvents)

	perModel := tr.ModelSnapshot("m1")
	assert.Equal(t, int64(150), perModel.InputTokens)
}

func TestTracker_MonotonicUnderConcurrency(t *testing.T) {
	tr := NewTracker(zap.NewNop())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr.Record("m", &llm.Usage{InputTokens: 2, OutputTokens: 1})
		}()
	}
	wg.Wait()

	got := tr.Snapshot()
	assert.Equal(t, int64(100), got.InputTokens)
	assert.Equal(t, int64(50), got.OutputTokens)
}

func TestTracker_MissingUsageIsCountedNotEstimated(t *testing.T) {
	tr := NewTracker(zap.NewNop())

	tr.Record("m", &llm.Usage{InputTokens: 10, OutputTokens: 5})
	tr.Record("m", nil)
	tr.Record("m", nil)

	got := tr.Snapshot()
	// Totals must not move on missing metadata.
	assert.Equal(t, int64(10), got.InputTokens)
	assert.Equal(t, int64(5), got.OutputTokens)
	assert.Equal(t, 2, got.MissingUsageEvents)
}

func TestTracker_Cost(t *testing.T) {
	tr := NewTracker(zap.NewNop())
	tr.Record("m", &llm.Usage{InputTokens: 1000, OutputTokens: 500})

	cost := tr.Cost(Rates{Input: 0.001, Output: 0.002})
	assert.InDelta(t, 2.0, cost, 1e-9)
}

func TestTracker_AddCost(t *testing.T) {
	tr := NewTracker(zap.NewNop())
	tr.AddCost("m", 0.40)
	tr.AddCost("m", 0.40)

	assert.InDelta(t, 0.80, tr.Snapshot().Cost, 1e-9)
	assert.InDelta(t, 0.80, tr.ModelSnapshot("m").Cost, 1e-9)
}

func TestTracker_Reset(t *testing.T) {
	tr := NewTracker(zap.NewNop())
	tr.Record("m", &llm.Usage{InputTokens: 10, OutputTokens: 5})
	tr.AddCost("m", 1.0)

	tr.Reset()

	got := tr.Snapshot()
	require.Equal(t, Totals{}, got)
	require.Equal(t, Totals{}, tr.ModelSnapshot("m"))
}

func TestTracker_SnapshotIsACopy(t *testing.T) {
	tr := NewTracker(zap.NewNop())
	tr.Record("m", &llm.Usage{InputTokens: 10, OutputTokens: 5})

	snap := tr.Snapshot()
	snap.InputTokens = 9999

	assert.Equal(t, int64(10), tr.Snapshot().InputTokens)
}
