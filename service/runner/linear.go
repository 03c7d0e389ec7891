package runner

import (
	"context"
	"fmt"

	"github.com/viant/navigator/model/tensor"
)

// Linear weight names
const (
	LinearWeight = "weight"
	LinearBias   = "bias"
)

// NewLinear creates a dense layer model y = x·Wᵀ + b applied to the last input dimension,
// weight has shape [out, in] and bias [out].
func NewLinear(weight, bias *tensor.Tensor) (*Model, error) {
	if weight == nil || bias == nil || weight.Rank() != 2 || bias.Rank() != 1 || weight.Shape[0] != bias.Shape[0] {
		return nil, fmt.Errorf("linear expects weight [out,in] and bias [out]")
	}
	w := weight.Clone()
	w.Name = LinearWeight
	b := bias.Clone()
	b.Name = LinearBias
	return NewModel(tensor.Tensors{w, b}, linear)
}

func linear(_ context.Context, inputs, _ tensor.Tensors, weights tensor.Tensors) (tensor.Tensors, error) {
	weight, bias := weights.Lookup(LinearWeight), weights.Lookup(LinearBias)
	out, in := weight.Shape[0], weight.Shape[1]
	var ret tensor.Tensors
	for i, input := range inputs {
		if input.Rank() == 0 || input.Shape[input.Rank()-1] != in {
			return nil, fmt.Errorf("input %q: expected last dimension %d, got shape %v", input.Name, in, input.Shape)
		}
		rows := len(input.Data) / in
		shape := append(append([]int(nil), input.Shape[:input.Rank()-1]...), out)
		data := make([]float64, rows*out)
		for r := 0; r < rows; r++ {
			x := input.Data[r*in : (r+1)*in]
			for o := 0; o < out; o++ {
				sum := bias.Data[o]
				row := weight.Data[o*in : (o+1)*in]
				for k := range x {
					sum += x[k] * row[k]
				}
				data[r*out+o] = sum
			}
		}
		ret = append(ret, &tensor.Tensor{Name: fmt.Sprintf("output__%d", i), Shape: shape, DType: input.DType, Data: data})
	}
	return ret, nil
}
