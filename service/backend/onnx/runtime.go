package onnx

import (
	"context"
	"fmt"

	"github.com/born-ml/born/onnx"
	borntensor "github.com/born-ml/born/tensor"
	"github.com/viant/navigator/model/tensor"
)

// Runtime runs an ONNX model in process with the born CPU backend.
type Runtime struct {
	model onnx.Model
}

// Infer feeds inputs (and parameters matching model input names) to the model.
// Inputs are bound by name, or by position when names do not match.
func (r *Runtime) Infer(ctx context.Context, inputs, params tensor.Tensors) (tensor.Tensors, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	feed, scalar, err := r.bind(inputs, params)
	if err != nil {
		return nil, err
	}
	outputs, err := r.model.ForwardNamed(feed)
	if err != nil {
		return nil, fmt.Errorf("onnx inference failed: %w", err)
	}
	var ret tensor.Tensors
	for _, name := range r.model.OutputNames() {
		raw, ok := outputs[name]
		if !ok {
			return nil, fmt.Errorf("onnx model did not produce output %q", name)
		}
		output, err := fromRaw(name, raw)
		if err != nil {
			return nil, err
		}
		if scalar && len(output.Shape) == 1 && output.Shape[0] == 1 {
			output.Shape = nil
		}
		ret = append(ret, output)
	}
	return ret, nil
}

// bind also reports whether every fed tensor was rank 0, as those are fed with shape [1].
func (r *Runtime) bind(inputs, params tensor.Tensors) (map[string]*borntensor.RawTensor, bool, error) {
	names := r.model.InputNames()
	candidates := append(append(tensor.Tensors{}, inputs...), params...)
	byName := true
	for _, name := range names {
		if candidates.Lookup(name) == nil {
			byName = false
			break
		}
	}
	if !byName && len(inputs) != len(names) {
		return nil, false, fmt.Errorf("onnx model expects inputs %v, got %v", names, inputs.Names())
	}
	ret := make(map[string]*borntensor.RawTensor, len(names))
	scalar := len(names) > 0
	for i, name := range names {
		source := candidates.Lookup(name)
		if !byName {
			source = inputs[i]
		}
		raw, err := toRaw(source)
		if err != nil {
			return nil, false, err
		}
		ret[name] = raw
		scalar = scalar && source.Rank() == 0
	}
	return ret, scalar, nil
}

func toRaw(source *tensor.Tensor) (*borntensor.RawTensor, error) {
	shape := borntensor.Shape(append([]int(nil), source.Shape...))
	if len(shape) == 0 {
		shape = borntensor.Shape{1}
	}
	raw, err := borntensor.NewRaw(shape, borntensor.Float32, borntensor.CPU)
	if err != nil {
		return nil, fmt.Errorf("input %q: %w", source.Name, err)
	}
	if len(source.Data) == 0 {
		return raw, nil
	}
	data := raw.AsFloat32()
	for i, v := range source.Data {
		data[i] = float32(v)
	}
	return raw, nil
}

func fromRaw(name string, raw *borntensor.RawTensor) (*tensor.Tensor, error) {
	ret := &tensor.Tensor{Name: name, Shape: append([]int(nil), raw.Shape()...), DType: tensor.Float32}
	if raw.NumElements() == 0 {
		return ret, nil
	}
	switch raw.DType() {
	case borntensor.Float32:
		for _, v := range raw.AsFloat32() {
			ret.Data = append(ret.Data, float64(v))
		}
	case borntensor.Float64:
		ret.DType = tensor.Float64
		ret.Data = append(ret.Data, raw.AsFloat64()...)
	default:
		return nil, fmt.Errorf("output %q: unsupported dtype %v", name, raw.DType())
	}
	return ret, nil
}

// NewRuntime wraps a loaded ONNX model.
func NewRuntime(model onnx.Model) *Runtime {
	return &Runtime{model: model}
}
