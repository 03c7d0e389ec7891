package capture

import (
	"context"
	"fmt"
	"log"

	"github.com/viant/navigator/model/tensor"
	"github.com/viant/navigator/service/runner"
	"github.com/viant/navigator/service/sample"
)

// ModelInvocationError reports a source model failure during capture; it aborts the export.
type ModelInvocationError struct {
	Index int
	Cause error
}

func (e *ModelInvocationError) Error() string {
	return fmt.Sprintf("model invocation failed on sample %d: %v", e.Index, e.Cause)
}

func (e *ModelInvocationError) Unwrap() error {
	return e.Cause
}

// Result summarizes captured samples.
type Result struct {
	Group   string
	Count   int
	Outputs []string
}

// Service captures reference outputs of the source model.
type Service struct {
	store  *sample.Store
	group  string
	logger *log.Logger
}

// Capture runs the model sequentially over samples persisting inputs and reference outputs.
// Any model failure aborts capture with ModelInvocationError.
func (s *Service) Capture(ctx context.Context, model runner.Runner, samples []*tensor.Sample) (*Result, error) {
	ret := &Result{Group: s.group}
	for _, item := range samples {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		outputs, err := s.invoke(ctx, model, item)
		if err != nil {
			return nil, &ModelInvocationError{Index: item.Index, Cause: err}
		}
		if err = s.store.WriteInput(ctx, s.group, item); err != nil {
			return nil, err
		}
		if err = s.store.WriteOutput(ctx, s.group, item.Index, outputs); err != nil {
			return nil, err
		}
		if ret.Outputs == nil {
			ret.Outputs = outputs.Names()
		}
		ret.Count++
	}
	s.logger.Printf("captured %d samples in group %v, outputs: %v", ret.Count, s.group, ret.Outputs)
	return ret, nil
}

func (s *Service) invoke(ctx context.Context, model runner.Runner, item *tensor.Sample) (outputs tensor.Tensors, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("model panicked: %v", r)
		}
	}()
	outputs, err = model.Infer(ctx, item.Inputs.Clone(), item.Params)
	if err != nil {
		return nil, err
	}
	if len(outputs) == 0 {
		return nil, fmt.Errorf("model returned no outputs")
	}
	for i, output := range outputs {
		if output != nil && output.Name == "" {
			output.Name = fmt.Sprintf("output__%d", i)
		}
	}
	if err = outputs.Validate(); err != nil {
		return nil, fmt.Errorf("invalid model outputs: %w", err)
	}
	return outputs, nil
}

// New creates a capture service writing to store under group.
func New(store *sample.Store, group string, logger *log.Logger) *Service {
	if group == "" {
		group = sample.DefaultGroup
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Service{store: store, group: group, logger: logger}
}
