package pipeline

import (
	"context"
	"time"

	"github.com/viant/navigator/model/format"
	"github.com/viant/navigator/model/status"
)

// Action performs a command attempt; attempt starts at 1. The action may attach
// a verdict or profile to result.
type Action func(ctx context.Context, attempt int, result *status.CommandResult) error

// Command is a pipeline graph node.
type Command struct {
	Name      string
	Kind      status.Kind
	Format    format.ID
	DependsOn []string
	// Timeout overrides the executor command timeout when positive.
	Timeout time.Duration
	Action  Action
}

// Name helpers build canonical command names.
func ConvertName(id format.ID) string { return string(status.KindConvert) + ":" + string(id) }
func VerifyName(id format.ID) string  { return string(status.KindVerify) + ":" + string(id) }
func ProfileName(id format.ID) string { return string(status.KindProfile) + ":" + string(id) }
