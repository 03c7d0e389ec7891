package safetensors

import (
	"bytes"
	"context"
	"fmt"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/url"
	"github.com/viant/navigator/model/format"
	"github.com/viant/navigator/service/backend"
	"github.com/viant/navigator/service/runner"
)

// Backend stores parametric Go model weights as safetensors.
type Backend struct {
	id format.ID
	fs afs.Service
}

// Format returns backend format.
func (b *Backend) Format() format.ID {
	return b.id
}

// Convert writes the source model weights into the request temp dir.
func (b *Backend) Convert(ctx context.Context, request *backend.ConvertRequest) error {
	model, err := parametric(request.Model)
	if err != nil {
		return err
	}
	params := model.Parameters()
	if err = params.Validate(); err != nil {
		return err
	}
	data, err := Encode(params, request.Descriptor.Precision, map[string]string{
		"format":    string(b.id),
		"modelName": request.ModelName,
	})
	if err != nil {
		return err
	}
	URL := url.Join(request.TempDir, request.Descriptor.ModelFile)
	if err = b.fs.Upload(ctx, URL, file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write %v: %w", URL, err)
	}
	return nil
}

// Load re-hydrates the source model with weights read from the artifact.
func (b *Backend) Load(ctx context.Context, request *backend.LoadRequest) (runner.Runner, error) {
	model, err := parametric(request.Model)
	if err != nil {
		return nil, err
	}
	data, err := b.fs.DownloadWithURL(ctx, request.ModelPath())
	if err != nil {
		return nil, fmt.Errorf("failed to read %v: %w", request.ModelPath(), err)
	}
	params, err := Decode(data, model.Parameters())
	if err != nil {
		return nil, err
	}
	return model.WithParameters(params)
}

func parametric(model runner.Runner) (runner.Parametric, error) {
	ret, ok := model.(runner.Parametric)
	if !ok {
		return nil, fmt.Errorf("%w: safetensors requires a model exposing its parameters, but had %T", backend.ErrUnsupportedModel, model)
	}
	return ret, nil
}

// New creates a safetensors backend for safetensors or safetensors-fp16 storing artifacts with fs.
func New(fs afs.Service, id format.ID) *Backend {
	if fs == nil {
		fs = afs.New()
	}
	return &Backend{id: id, fs: fs}
}
