package verify

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/viant/navigator/model/format"
	"github.com/viant/navigator/model/status"
	"github.com/viant/navigator/model/tensor"
)

func vec(name string, values ...float64) *tensor.Tensor {
	return &tensor.Tensor{Name: name, Shape: []int{len(values)}, DType: tensor.Float64, Data: values}
}

func TestCompare(t *testing.T) {
	tolerance := status.Tolerance{Atol: 1e-5, Rtol: 1e-5}
	testCases := []struct {
		description string
		reference   tensor.Tensors
		produced    tensor.Tensors
		expect      status.VerdictKind
		expectAbs   float64
	}{
		{description: "exact", reference: tensor.Tensors{vec("y", 1, 2)}, produced: tensor.Tensors{vec("y", 1, 2)}, expect: status.VerdictMatch},
		{description: "within tolerance", reference: tensor.Tensors{vec("y", 1000)}, produced: tensor.Tensors{vec("y", 1000.005)}, expect: status.VerdictMatch, expectAbs: 0.005},
		{description: "outside tolerance", reference: tensor.Tensors{vec("y", 1, 2)}, produced: tensor.Tensors{vec("y", 1, 2.5)}, expect: status.VerdictMismatch, expectAbs: 0.5},
		{description: "positional when names differ", reference: tensor.Tensors{vec("output__0", 1)}, produced: tensor.Tensors{vec("logits", 1)}, expect: status.VerdictMatch},
		{description: "missing output", reference: tensor.Tensors{vec("a", 1), vec("b", 1)}, produced: tensor.Tensors{vec("a", 1)}, expect: status.VerdictError},
		{description: "no outputs", reference: tensor.Tensors{vec("a", 1)}, produced: nil, expect: status.VerdictError},
		{description: "shape mismatch", reference: tensor.Tensors{vec("y", 1, 2)}, produced: tensor.Tensors{vec("y", 1, 2, 3)}, expect: status.VerdictError},
		{description: "both nan", reference: tensor.Tensors{vec("y", math.NaN())}, produced: tensor.Tensors{vec("y", math.NaN())}, expect: status.VerdictMatch},
		{description: "nan and infinity in place", reference: tensor.Tensors{vec("y", math.NaN(), 2, math.Inf(1))}, produced: tensor.Tensors{vec("y", math.NaN(), 2, math.Inf(1))}, expect: status.VerdictMatch},
		{description: "one nan", reference: tensor.Tensors{vec("y", 1)}, produced: tensor.Tensors{vec("y", math.NaN())}, expect: status.VerdictMismatch, expectAbs: math.Inf(1)},
	}
	for _, testCase := range testCases {
		verdict := Compare(testCase.reference, testCase.produced, tolerance)
		assert.Equal(t, testCase.expect, verdict.Kind, testCase.description)
		if testCase.expect != status.VerdictError {
			assert.InDelta(t, testCase.expectAbs, verdict.MaxAbsDiff, 1e-9, testCase.description)
		}
	}
}

func TestDefaultTolerance(t *testing.T) {
	f32 := &tensor.Tensor{Name: "y", DType: tensor.Float32}
	f64 := &tensor.Tensor{Name: "y", DType: tensor.Float64}
	testCases := []struct {
		description string
		precision   format.Precision
		reference   tensor.Tensors
		expect      float64
	}{
		{description: "fp64", precision: format.PrecisionFP64, reference: tensor.Tensors{f64}, expect: 1e-7},
		{description: "fp32 artifact", precision: format.PrecisionFP32, reference: tensor.Tensors{f64}, expect: 1e-5},
		{description: "float32 reference", precision: format.PrecisionFP64, reference: tensor.Tensors{f32}, expect: 1e-5},
		{description: "fp16 artifact", precision: format.PrecisionFP16, reference: tensor.Tensors{f32}, expect: 1e-2},
		{description: "unknown precision", precision: "", reference: tensor.Tensors{f64}, expect: 1e-7},
	}
	for _, testCase := range testCases {
		tolerance := DefaultTolerance(testCase.precision, testCase.reference)
		assert.Equal(t, testCase.expect, tolerance.Atol, testCase.description)
		assert.Equal(t, testCase.expect, tolerance.Rtol, testCase.description)
	}
}

func TestMerge(t *testing.T) {
	a := Compare(tensor.Tensors{vec("y", 1)}, tensor.Tensors{vec("y", 1)}, status.Tolerance{})
	b := Compare(tensor.Tensors{vec("y", 1)}, tensor.Tensors{vec("y", 3)}, status.Tolerance{})
	aggregate := Merge(Merge(nil, a), b)
	assert.Equal(t, status.VerdictMismatch, aggregate.Kind)
	assert.Equal(t, 2, aggregate.Samples)
	assert.Equal(t, 2.0, aggregate.Outputs["y"].MaxAbsDiff)
}
