package safetensors

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/nlpodyssey/safetensors"
	"github.com/viant/navigator/model/format"
	"github.com/viant/navigator/model/tensor"
	"github.com/x448/float16"
)

// Encode serializes tensors; fp16 precision stores F16 values, otherwise the tensor dtype is kept.
func Encode(tensors tensor.Tensors, precision format.Precision, metadata map[string]string) ([]byte, error) {
	views := make(map[string]safetensors.TensorView, len(tensors))
	for _, item := range tensors {
		view, err := encodeTensor(item, precision)
		if err != nil {
			return nil, fmt.Errorf("tensor %q: %w", item.Name, err)
		}
		views[item.Name] = view
	}
	return safetensors.Serialize(views, metadata)
}

func encodeTensor(item *tensor.Tensor, precision format.Precision) (safetensors.TensorView, error) {
	shape := make([]uint64, 0, len(item.Shape))
	for _, dim := range item.Shape {
		shape = append(shape, uint64(dim))
	}
	if len(shape) == 0 {
		shape = []uint64{1}
	}
	switch {
	case precision == format.PrecisionFP16:
		data := make([]byte, 2*len(item.Data))
		for i, v := range item.Data {
			binary.LittleEndian.PutUint16(data[2*i:], float16.Fromfloat32(float32(v)).Bits())
		}
		return safetensors.NewTensorView(safetensors.F16, shape, data)
	case item.DType == tensor.Float64:
		data := make([]byte, 8*len(item.Data))
		for i, v := range item.Data {
			binary.LittleEndian.PutUint64(data[8*i:], math.Float64bits(v))
		}
		return safetensors.NewTensorView(safetensors.F64, shape, data)
	default:
		data := make([]byte, 4*len(item.Data))
		for i, v := range item.Data {
			binary.LittleEndian.PutUint32(data[4*i:], math.Float32bits(float32(v)))
		}
		return safetensors.NewTensorView(safetensors.F32, shape, data)
	}
}

// Decode restores tensors listed in expected, using their names, shapes and dtypes.
func Decode(data []byte, expected tensor.Tensors) (tensor.Tensors, error) {
	loaded, err := safetensors.Deserialize(data)
	if err != nil {
		return nil, fmt.Errorf("failed to deserialize safetensors: %w", err)
	}
	ret := make(tensor.Tensors, 0, len(expected))
	for _, item := range expected {
		view, ok := loaded.Tensor(item.Name)
		if !ok {
			return nil, fmt.Errorf("missing tensor %q", item.Name)
		}
		values, err := decodeView(view)
		if err != nil {
			return nil, fmt.Errorf("tensor %q: %w", item.Name, err)
		}
		if len(values) != len(item.Data) {
			return nil, fmt.Errorf("tensor %q: expected %d elements, got %d", item.Name, len(item.Data), len(values))
		}
		ret = append(ret, &tensor.Tensor{Name: item.Name, Shape: append([]int(nil), item.Shape...), DType: item.DType, Data: values})
	}
	return ret, nil
}

func decodeView(view safetensors.TensorView) ([]float64, error) {
	data := view.Data()
	switch view.DType() {
	case safetensors.F16:
		ret := make([]float64, len(data)/2)
		for i := range ret {
			ret[i] = float64(float16.Frombits(binary.LittleEndian.Uint16(data[2*i:])).Float32())
		}
		return ret, nil
	case safetensors.F32:
		ret := make([]float64, len(data)/4)
		for i := range ret {
			ret[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(data[4*i:])))
		}
		return ret, nil
	case safetensors.F64:
		ret := make([]float64, len(data)/8)
		for i := range ret {
			ret[i] = math.Float64frombits(binary.LittleEndian.Uint64(data[8*i:]))
		}
		return ret, nil
	}
	return nil, fmt.Errorf("unsupported dtype: %v", view.DType())
}
