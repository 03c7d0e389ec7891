package backend

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/url"
	"github.com/viant/navigator/model/format"
	"gopkg.in/yaml.v3"
)

// ArtifactConfig is the config.yaml content of a format artifact.
type ArtifactConfig struct {
	Format    format.ID        `json:"format" yaml:"format"`
	ModelName string           `json:"modelName" yaml:"modelName"`
	Framework string           `json:"framework,omitempty" yaml:"framework,omitempty"`
	Precision format.Precision `json:"precision,omitempty" yaml:"precision,omitempty"`
	BatchDim  *int             `json:"batchDim,omitempty" yaml:"batchDim,omitempty"`
	Parent    format.ID        `json:"parent,omitempty" yaml:"parent,omitempty"`
	ModelFile string           `json:"modelFile" yaml:"modelFile"`
	Producer  string           `json:"producer,omitempty" yaml:"producer,omitempty"`
}

// LoadArtifactConfig reads config.yaml of a format directory.
func LoadArtifactConfig(ctx context.Context, fs afs.Service, dir string) (*ArtifactConfig, error) {
	data, err := fs.DownloadWithURL(ctx, url.Join(dir, format.ConfigFile))
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact config: %w", err)
	}
	ret := &ArtifactConfig{}
	if err = yaml.Unmarshal(data, ret); err != nil {
		return nil, fmt.Errorf("failed to decode artifact config: %w", err)
	}
	return ret, nil
}

// Convert runs a conversion attempt: the backend produces the artifact in the request
// temp dir, config.yaml is added, the artifact is checked and moved into the format dir.
func Convert(ctx context.Context, fs afs.Service, backend Backend, request *ConvertRequest) error {
	id := request.Descriptor.ID
	if err := fs.Create(ctx, request.TempDir, file.DefaultDirOsMode, true); err != nil {
		return NewConversionError(id, fmt.Errorf("failed to create %v: %w", request.TempDir, err), false)
	}
	if err := backend.Convert(ctx, request); err != nil {
		conversionErr := &ConversionError{}
		if errors.As(err, &conversionErr) {
			return err
		}
		return NewConversionError(id, err, false)
	}
	config := &ArtifactConfig{
		Format:    id,
		ModelName: request.ModelName,
		Framework: request.Framework,
		Precision: request.Descriptor.Precision,
		BatchDim:  request.BatchDim,
		Parent:    request.Parent,
		ModelFile: request.Descriptor.ModelFile,
	}
	if producer, ok := backend.(Producer); ok {
		config.Producer = producer.Producer()
	}
	data, err := yaml.Marshal(config)
	if err != nil {
		return NewConversionError(id, err, false)
	}
	if err = fs.Upload(ctx, url.Join(request.TempDir, format.ConfigFile), file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
		return NewConversionError(id, fmt.Errorf("failed to write %v: %w", format.ConfigFile, err), false)
	}
	if err = format.CheckArtifact(ctx, fs, request.TempDir, request.Descriptor); err != nil {
		return NewConversionError(id, err, false)
	}
	if err = ctx.Err(); err != nil {
		return NewConversionError(id, fmt.Errorf("artifact was not published: %w", err), false)
	}
	if exists, _ := fs.Exists(ctx, request.OutputDir); exists {
		if err = fs.Delete(ctx, request.OutputDir); err != nil {
			return NewConversionError(id, fmt.Errorf("failed to replace %v: %w", request.OutputDir, err), false)
		}
	}
	if err = ctx.Err(); err != nil {
		return NewConversionError(id, fmt.Errorf("artifact was not published: %w", err), false)
	}
	if err = fs.Move(ctx, request.TempDir, request.OutputDir); err != nil {
		return NewConversionError(id, fmt.Errorf("failed to publish artifact: %w", err), false)
	}
	return nil
}

// ModelPath returns the model location within a format directory.
func ModelPath(dir string, descriptor *format.Descriptor) string {
	return joinModel(dir, descriptor)
}

func joinModel(dir string, descriptor *format.Descriptor) string {
	return url.Join(dir, descriptor.ModelFile)
}
