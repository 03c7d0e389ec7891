package onnx

import (
	"context"
	"fmt"

	"github.com/born-ml/born/backend/cpu"
	"github.com/born-ml/born/onnx"
	"github.com/viant/afs/url"
	"github.com/viant/navigator/model/format"
	"github.com/viant/navigator/service/backend"
	"github.com/viant/navigator/service/backend/command"
	"github.com/viant/navigator/service/runner"
)

// Backend converts models to ONNX with an external command; artifacts are verified
// in process unless a run command was configured.
type Backend struct {
	*command.Backend
}

// Load returns the configured command runner or the in-process born runtime.
func (b *Backend) Load(ctx context.Context, request *backend.LoadRequest) (runner.Runner, error) {
	if b.HasRun() {
		return b.Backend.Load(ctx, request)
	}
	model, err := onnx.Load(url.Path(request.ModelPath()), cpu.New())
	if err != nil {
		return nil, fmt.Errorf("failed to load onnx model %v: %w", request.ModelPath(), err)
	}
	return NewRuntime(model), nil
}

// New creates an ONNX backend.
func New(config *command.Config) (*Backend, error) {
	if config == nil {
		return nil, fmt.Errorf("onnx backend config was nil")
	}
	if config.Format == "" {
		config.Format = format.ONNX
	}
	if config.Format != format.ONNX {
		return nil, fmt.Errorf("onnx backend does not support format %v", config.Format)
	}
	ret, err := command.New(config)
	if err != nil {
		return nil, err
	}
	return &Backend{Backend: ret}, nil
}
