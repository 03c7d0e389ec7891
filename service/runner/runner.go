package runner

import (
	"context"
	"fmt"

	"github.com/viant/navigator/model/tensor"
)

// Runner performs model inference.
type Runner interface {
	Infer(ctx context.Context, inputs, params tensor.Tensors) (tensor.Tensors, error)
}

// Parametric is a runner whose parameters can be serialized and re-hydrated.
type Parametric interface {
	Runner
	Parameters() tensor.Tensors
	WithParameters(params tensor.Tensors) (Parametric, error)
}

// Closer is implemented by runners holding resources.
type Closer interface {
	Close() error
}

// Func adapts a function to Runner.
type Func func(ctx context.Context, inputs, params tensor.Tensors) (tensor.Tensors, error)

// Infer calls f.
func (f Func) Infer(ctx context.Context, inputs, params tensor.Tensors) (tensor.Tensors, error) {
	return f(ctx, inputs, params)
}

// Close releases runner resources if any.
func Close(r Runner) error {
	if closer, ok := r.(Closer); ok {
		return closer.Close()
	}
	return nil
}

// Model is a parametric runner backed by a Go inference function.
type Model struct {
	params tensor.Tensors
	fn     func(ctx context.Context, inputs, params, weights tensor.Tensors) (tensor.Tensors, error)
}

// Infer runs the model function with the model weights.
func (m *Model) Infer(ctx context.Context, inputs, params tensor.Tensors) (tensor.Tensors, error) {
	return m.fn(ctx, inputs, params, m.params)
}

// Parameters returns model weights.
func (m *Model) Parameters() tensor.Tensors {
	return m.params
}

// WithParameters returns a model copy with replaced weights; names and shapes have to match.
func (m *Model) WithParameters(params tensor.Tensors) (Parametric, error) {
	if len(params) != len(m.params) {
		return nil, fmt.Errorf("expected %d parameters, got %d", len(m.params), len(params))
	}
	for _, expected := range m.params {
		actual := params.Lookup(expected.Name)
		if actual == nil {
			return nil, fmt.Errorf("missing parameter %q", expected.Name)
		}
		if !actual.SameShape(expected) {
			return nil, fmt.Errorf("parameter %q: expected shape %v, got %v", expected.Name, expected.Shape, actual.Shape)
		}
	}
	return &Model{params: params, fn: m.fn}, nil
}

// NewModel creates a parametric model; fn receives the model weights as its last argument.
func NewModel(weights tensor.Tensors, fn func(ctx context.Context, inputs, params, weights tensor.Tensors) (tensor.Tensors, error)) (*Model, error) {
	if err := weights.Validate(); err != nil {
		return nil, fmt.Errorf("invalid model weights: %w", err)
	}
	if fn == nil {
		return nil, fmt.Errorf("model function was nil")
	}
	return &Model{params: weights, fn: fn}, nil
}
