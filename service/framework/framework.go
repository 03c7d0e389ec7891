package framework

import (
	"fmt"
	"sort"

	"github.com/viant/navigator/model/format"
	"github.com/viant/navigator/service/capability"
)

// Tag identifies the source model framework.
type Tag string

const (
	Go         Tag = "go"
	Torch      Tag = "torch"
	TensorFlow Tag = "tensorflow"
	JAX        Tag = "jax"
	ONNX       Tag = "onnx"
)

// Adapter describes what a framework exports to and how formats chain.
type Adapter struct {
	Tag Tag
	// Capability is the framework that has to be installed
	Capability string
	// Defaults are target formats used when none were requested
	Defaults []format.ID
	// Parents maps a supported format to the format it is converted from, empty for the source model
	Parents map[format.ID]format.ID
}

// Step is one planned conversion.
type Step struct {
	Format format.ID
	Parent format.ID
	// Implicit is set for parents added because a requested format depends on them
	Implicit bool
	depth    int
}

// Supports returns true when the format can be produced.
func (a *Adapter) Supports(id format.ID) bool {
	_, ok := a.Parents[id]
	return ok
}

// Formats returns supported formats sorted.
func (a *Adapter) Formats() []format.ID {
	ret := make([]format.ID, 0, len(a.Parents))
	for id := range a.Parents {
		ret = append(ret, id)
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i] < ret[j] })
	return ret
}

// Plan resolves requested targets (defaults when empty) into conversion steps, adding
// missing parents; parents precede children.
func (a *Adapter) Plan(targets []format.ID) ([]*Step, error) {
	if len(targets) == 0 {
		targets = a.Defaults
	}
	steps := map[format.ID]*Step{}
	var add func(id format.ID, implicit bool, trail []format.ID) (*Step, error)
	add = func(id format.ID, implicit bool, trail []format.ID) (*Step, error) {
		if step, ok := steps[id]; ok {
			if !implicit {
				step.Implicit = false
			}
			return step, nil
		}
		parent, ok := a.Parents[id]
		if !ok {
			return nil, fmt.Errorf("framework %v does not support format %v, supported: %v", a.Tag, id, a.Formats())
		}
		for _, visited := range trail {
			if visited == id {
				return nil, fmt.Errorf("framework %v: circular conversion chain at %v", a.Tag, id)
			}
		}
		step := &Step{Format: id, Parent: parent, Implicit: implicit}
		if parent != "" {
			parentStep, err := add(parent, true, append(trail, id))
			if err != nil {
				return nil, err
			}
			step.depth = parentStep.depth + 1
		}
		steps[id] = step
		return step, nil
	}
	for _, id := range targets {
		if _, err := add(id, false, nil); err != nil {
			return nil, err
		}
	}
	ret := make([]*Step, 0, len(steps))
	for _, step := range steps {
		ret = append(ret, step)
	}
	sort.Slice(ret, func(i, j int) bool {
		if ret[i].depth != ret[j].depth {
			return ret[i].depth < ret[j].depth
		}
		return ret[i].Format < ret[j].Format
	})
	return ret, nil
}

var adapters = map[Tag]*Adapter{
	Go: {
		Tag:        Go,
		Capability: capability.Go,
		Defaults:   []format.ID{format.Safetensors, format.SafetensorsFP16},
		Parents:    map[format.ID]format.ID{format.Safetensors: "", format.SafetensorsFP16: ""},
	},
	Torch: {
		Tag:        Torch,
		Capability: capability.Torch,
		Defaults:   []format.ID{format.TorchScript, format.ONNX},
		Parents:    map[format.ID]format.ID{format.TorchScript: "", format.ONNX: "", format.TensorRT: format.ONNX},
	},
	TensorFlow: {
		Tag:        TensorFlow,
		Capability: capability.TensorFlow,
		Defaults:   []format.ID{format.TFSavedModel, format.ONNX},
		Parents:    map[format.ID]format.ID{format.TFSavedModel: "", format.ONNX: format.TFSavedModel, format.TensorRT: format.ONNX},
	},
	JAX: {
		Tag:        JAX,
		Capability: capability.JAX,
		Defaults:   []format.ID{format.TFSavedModel, format.ONNX},
		Parents:    map[format.ID]format.ID{format.TFSavedModel: "", format.ONNX: format.TFSavedModel},
	},
	ONNX: {
		Tag:        ONNX,
		Capability: capability.ONNX,
		Defaults:   []format.ID{format.ONNX},
		Parents:    map[format.ID]format.ID{format.ONNX: "", format.TensorRT: format.ONNX},
	},
}

// Lookup returns the framework adapter.
func Lookup(tag Tag) (*Adapter, error) {
	ret, ok := adapters[tag]
	if !ok {
		return nil, fmt.Errorf("unsupported framework: %q", tag)
	}
	return ret, nil
}

// Tags returns supported framework tags sorted.
func Tags() []Tag {
	ret := make([]Tag, 0, len(adapters))
	for tag := range adapters {
		ret = append(ret, tag)
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i] < ret[j] })
	return ret
}
