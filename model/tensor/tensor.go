package tensor

import (
	"fmt"
	"sort"
)

// DType identifies the element type a tensor is stored with.
type DType string

const (
	Float32 DType = "float32"
	Float64 DType = "float64"
)

// Size returns the element size in bytes.
func (d DType) Size() int {
	switch d {
	case Float32:
		return 4
	default:
		return 8
	}
}

// Tensor is a dense n-dimensional array. Data is always held as float64;
// DType records the precision the tensor is archived with.
type Tensor struct {
	Name  string    `json:"name" yaml:"name"`
	Shape []int     `json:"shape" yaml:"shape"`
	DType DType     `json:"dtype" yaml:"dtype"`
	Data  []float64 `json:"-" yaml:"-"`
}

// New creates a float64 tensor, validating that data fits shape.
func New(name string, shape []int, data []float64) (*Tensor, error) {
	return NewWithType(name, Float64, shape, data)
}

// NewWithType creates a tensor with the supplied archive type.
func NewWithType(name string, dType DType, shape []int, data []float64) (*Tensor, error) {
	ret := &Tensor{Name: name, Shape: append([]int(nil), shape...), DType: dType, Data: data}
	if err := ret.Validate(); err != nil {
		return nil, err
	}
	return ret, nil
}

// Validate checks shape and data consistency.
func (t *Tensor) Validate() error {
	if t == nil {
		return fmt.Errorf("tensor was nil")
	}
	for _, dim := range t.Shape {
		if dim < 0 {
			return fmt.Errorf("tensor %q: negative dimension in shape %v", t.Name, t.Shape)
		}
	}
	if t.DType != Float32 && t.DType != Float64 {
		return fmt.Errorf("tensor %q: unsupported dtype %q", t.Name, t.DType)
	}
	if expected := NumElements(t.Shape); expected != len(t.Data) {
		return fmt.Errorf("tensor %q: shape %v expects %d elements, got %d", t.Name, t.Shape, expected, len(t.Data))
	}
	return nil
}

// Rank returns number of dimensions.
func (t *Tensor) Rank() int {
	return len(t.Shape)
}

// Clone returns a deep copy.
func (t *Tensor) Clone() *Tensor {
	if t == nil {
		return nil
	}
	clone := *t
	clone.Shape = append([]int(nil), t.Shape...)
	clone.Data = append([]float64(nil), t.Data...)
	return &clone
}

// SameShape reports whether both tensors have identical shapes.
func (t *Tensor) SameShape(other *Tensor) bool {
	if len(t.Shape) != len(other.Shape) {
		return false
	}
	for i := range t.Shape {
		if t.Shape[i] != other.Shape[i] {
			return false
		}
	}
	return true
}

// NumElements returns the element count for a shape; a scalar (empty shape) has one element.
func NumElements(shape []int) int {
	n := 1
	for _, dim := range shape {
		n *= dim
	}
	return n
}

// Tensors is an ordered set of named tensors.
type Tensors []*Tensor

// Lookup returns tensor by name or nil.
func (t Tensors) Lookup(name string) *Tensor {
	for _, candidate := range t {
		if candidate.Name == name {
			return candidate
		}
	}
	return nil
}

// Names returns tensor names in order.
func (t Tensors) Names() []string {
	ret := make([]string, 0, len(t))
	for _, item := range t {
		ret = append(ret, item.Name)
	}
	return ret
}

// SortedNames returns tensor names sorted lexically.
func (t Tensors) SortedNames() []string {
	ret := t.Names()
	sort.Strings(ret)
	return ret
}

// Validate validates every tensor and name uniqueness.
func (t Tensors) Validate() error {
	seen := make(map[string]bool, len(t))
	for _, item := range t {
		if err := item.Validate(); err != nil {
			return err
		}
		if item.Name == "" {
			return fmt.Errorf("tensor name was empty")
		}
		if seen[item.Name] {
			return fmt.Errorf("duplicate tensor name %q", item.Name)
		}
		seen[item.Name] = true
	}
	return nil
}

// Clone deep copies all tensors.
func (t Tensors) Clone() Tensors {
	if t == nil {
		return nil
	}
	ret := make(Tensors, len(t))
	for i, item := range t {
		ret[i] = item.Clone()
	}
	return ret
}

// Sample is one captured model invocation: inputs plus the optional parameter payload.
type Sample struct {
	Index  int
	Inputs Tensors
	Params Tensors
}
