package format

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ID identifies a target format.
type ID string

const (
	Safetensors     ID = "safetensors"
	SafetensorsFP16 ID = "safetensors-fp16"
	ONNX            ID = "onnx"
	TFSavedModel    ID = "tf-savedmodel"
	TorchScript     ID = "torchscript"
	TensorRT        ID = "trt-fp16"
)

// Precision describes numeric precision an artifact is stored with.
type Precision string

const (
	PrecisionFP16 Precision = "FP16"
	PrecisionFP32 Precision = "FP32"
	PrecisionFP64 Precision = "FP64"
)

// ConfigFile is the file every format artifact directory carries.
const ConfigFile = "config.yaml"

// Descriptor describes how a format lands on disk.
type Descriptor struct {
	ID         ID        `json:"id" yaml:"id"`
	ModelFile  string    `json:"modelFile" yaml:"modelFile"`
	ModelIsDir bool      `json:"modelIsDir,omitempty" yaml:"modelIsDir,omitempty"`
	Precision  Precision `json:"precision,omitempty" yaml:"precision,omitempty"`
}

// Dir returns package sub directory name for the format.
func (d *Descriptor) Dir() string {
	return string(d.ID)
}

var (
	registry = map[ID]*Descriptor{
		Safetensors:     {ID: Safetensors, ModelFile: "model.safetensors", Precision: PrecisionFP32},
		SafetensorsFP16: {ID: SafetensorsFP16, ModelFile: "model.safetensors", Precision: PrecisionFP16},
		ONNX:            {ID: ONNX, ModelFile: "model.onnx", Precision: PrecisionFP32},
		TFSavedModel:    {ID: TFSavedModel, ModelFile: "model.savedmodel", ModelIsDir: true, Precision: PrecisionFP32},
		TorchScript:     {ID: TorchScript, ModelFile: "model.pt", Precision: PrecisionFP32},
		TensorRT:        {ID: TensorRT, ModelFile: "model.plan", Precision: PrecisionFP16},
	}
	mux sync.RWMutex
)

// Register adds or replaces a format descriptor.
func Register(descriptor *Descriptor) error {
	if descriptor == nil || descriptor.ID == "" {
		return fmt.Errorf("format descriptor id was empty")
	}
	if descriptor.ModelFile == "" {
		return fmt.Errorf("format %v: model file was empty", descriptor.ID)
	}
	mux.Lock()
	defer mux.Unlock()
	registry[descriptor.ID] = descriptor
	return nil
}

// Lookup returns a registered descriptor.
func Lookup(id ID) (*Descriptor, error) {
	mux.RLock()
	defer mux.RUnlock()
	ret, ok := registry[id]
	if !ok {
		return nil, fmt.Errorf("unknown format: %v", id)
	}
	return ret, nil
}

// IDs returns all registered format ids sorted.
func IDs() []ID {
	mux.RLock()
	defer mux.RUnlock()
	ret := make([]ID, 0, len(registry))
	for id := range registry {
		ret = append(ret, id)
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i] < ret[j] })
	return ret
}

// Parse parses comma separated format ids, validating each one.
func Parse(text string) ([]ID, error) {
	var ret []ID
	for _, item := range strings.Split(text, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if _, err := Lookup(ID(item)); err != nil {
			return nil, err
		}
		ret = append(ret, ID(item))
	}
	return ret, nil
}
