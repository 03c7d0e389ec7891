package progress

import (
	"context"
	"sync"
	"time"
)

// Delta represents an incremental counter change; fields may be negative.
type Delta struct {
	Total     int
	Completed int
	Skipped   int
	Failed    int
	Running   int
	Pending   int
}

// Progress keeps aggregated command counters of an export run. It is safe for concurrent use.
type Progress struct {
	RunID     string
	Model     string
	StartedAt time.Time

	TotalCommands     int
	CompletedCommands int
	SkippedCommands   int
	FailedCommands    int
	RunningCommands   int
	PendingCommands   int

	sync.Mutex
	onChange func(Progress)
}

// Update applies the delta; the onChange callback, if any, receives a copy outside the lock.
func (p *Progress) Update(d Delta) {
	if p == nil {
		return
	}
	p.Lock()
	p.TotalCommands += d.Total
	p.CompletedCommands += d.Completed
	p.SkippedCommands += d.Skipped
	p.FailedCommands += d.Failed
	p.RunningCommands += d.Running
	p.PendingCommands += d.Pending
	snapshot := p.copy()
	cb := p.onChange
	p.Unlock()
	if cb != nil {
		cb(snapshot)
	}
}

// Done returns number of commands in terminal state.
func (p *Progress) Done() int {
	return p.CompletedCommands + p.FailedCommands + p.SkippedCommands
}

// Snapshot returns a copy of the tracker suitable for read-only inspection.
func (p *Progress) Snapshot() Progress {
	if p == nil {
		return Progress{}
	}
	p.Lock()
	defer p.Unlock()
	return p.copy()
}

func (p *Progress) copy() Progress {
	return Progress{
		RunID:             p.RunID,
		Model:             p.Model,
		StartedAt:         p.StartedAt,
		TotalCommands:     p.TotalCommands,
		CompletedCommands: p.CompletedCommands,
		SkippedCommands:   p.SkippedCommands,
		FailedCommands:    p.FailedCommands,
		RunningCommands:   p.RunningCommands,
		PendingCommands:   p.PendingCommands,
	}
}

// OnChange registers a callback invoked after every Update.
func (p *Progress) OnChange(cb func(Progress)) {
	if p == nil {
		return
	}
	p.Lock()
	p.onChange = cb
	p.Unlock()
}

type trackerKeyT struct{}

var trackerKey trackerKeyT

// WithNewTracker creates a tracker and embeds it in a derived context.
func WithNewTracker(ctx context.Context, runID, model string, onChange func(Progress)) (context.Context, *Progress) {
	if ctx == nil {
		ctx = context.Background()
	}
	tr := &Progress{RunID: runID, Model: model, StartedAt: time.Now(), onChange: onChange}
	return context.WithValue(ctx, trackerKey, tr), tr
}

// FromContext extracts the tracker from ctx.
func FromContext(ctx context.Context) (*Progress, bool) {
	if ctx == nil {
		return nil, false
	}
	tr, ok := ctx.Value(trackerKey).(*Progress)
	return tr, ok
}

// UpdateCtx applies the delta to the tracker in ctx, if any.
func UpdateCtx(ctx context.Context, d Delta) {
	if tr, ok := FromContext(ctx); ok {
		tr.Update(d)
	}
}
