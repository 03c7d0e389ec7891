package progress

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgress_Update(t *testing.T) {
	var mux sync.Mutex
	var lastRunID string
	ctx, tracker := WithNewTracker(context.Background(), "run-1", "linear", func(p Progress) {
		mux.Lock()
		lastRunID = p.RunID
		mux.Unlock()
	})
	UpdateCtx(ctx, Delta{Total: 3, Pending: 3})
	wg := sync.WaitGroup{}
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tracker.Update(Delta{Pending: -1, Running: 1})
			tracker.Update(Delta{Running: -1, Completed: 1})
		}()
	}
	wg.Wait()
	snapshot := tracker.Snapshot()
	assert.Equal(t, 3, snapshot.TotalCommands)
	assert.Equal(t, 3, snapshot.Done())
	assert.Equal(t, 0, snapshot.RunningCommands)
	assert.Equal(t, 0, snapshot.PendingCommands)
	assert.Equal(t, "run-1", lastRunID)

	UpdateCtx(context.Background(), Delta{Total: 1})
	var nilTracker *Progress
	nilTracker.Update(Delta{Total: 1})
	assert.Equal(t, Progress{}, nilTracker.Snapshot())
}
