package pipeline

import (
	"context"

	"github.com/viant/navigator/model/status"
)

// Listener is notified of every terminal command result.
type Listener interface {
	OnResult(ctx context.Context, result *status.CommandResult)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(ctx context.Context, result *status.CommandResult)

// OnResult calls f.
func (f ListenerFunc) OnResult(ctx context.Context, result *status.CommandResult) {
	f(ctx, result)
}
