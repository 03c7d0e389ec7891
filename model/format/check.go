package format

import (
	"context"
	"fmt"

	"github.com/viant/afs"
	"github.com/viant/afs/url"
)

// CheckArtifact verifies the directory shape of a format artifact: the directory exists,
// carries config.yaml and the serialized model file (or directory).
func CheckArtifact(ctx context.Context, fs afs.Service, dir string, descriptor *Descriptor) error {
	object, err := fs.Object(ctx, dir)
	if err != nil {
		return fmt.Errorf("artifact %v: missing directory %v: %w", descriptor.ID, dir, err)
	}
	if !object.IsDir() {
		return fmt.Errorf("artifact %v: %v is not a directory", descriptor.ID, dir)
	}
	configURL := url.Join(dir, ConfigFile)
	config, err := fs.Object(ctx, configURL)
	if err != nil || config.IsDir() {
		return fmt.Errorf("artifact %v: missing %v", descriptor.ID, ConfigFile)
	}
	modelURL := url.Join(dir, descriptor.ModelFile)
	model, err := fs.Object(ctx, modelURL)
	if err != nil {
		return fmt.Errorf("artifact %v: missing %v", descriptor.ID, descriptor.ModelFile)
	}
	if model.IsDir() != descriptor.ModelIsDir {
		return fmt.Errorf("artifact %v: unexpected %v kind (dir=%v)", descriptor.ID, descriptor.ModelFile, model.IsDir())
	}
	return nil
}
