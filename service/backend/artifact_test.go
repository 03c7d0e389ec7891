package backend

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/afs"
	"github.com/viant/navigator/model/format"
	"github.com/viant/navigator/service/runner"
)

type fileBackend struct {
	write   bool
	onWrite func()
}

func (b *fileBackend) Format() format.ID { return format.TorchScript }

func (b *fileBackend) Convert(ctx context.Context, request *ConvertRequest) error {
	if b.write {
		if err := os.WriteFile(filepath.Join(request.TempDir, request.Descriptor.ModelFile), []byte("weights"), 0o644); err != nil {
			return err
		}
	}
	if b.onWrite != nil {
		b.onWrite()
	}
	return nil
}

func (b *fileBackend) Load(ctx context.Context, request *LoadRequest) (runner.Runner, error) {
	return nil, ErrUnsupportedModel
}

func TestConvert(t *testing.T) {
	descriptor, err := format.Lookup(format.TorchScript)
	require.NoError(t, err)
	testCases := []struct {
		description   string
		write         bool
		stale         bool
		cancel        bool
		expectErr     bool
		expectOutput  bool
		expectMissing string
	}{
		{description: "published", write: true, expectOutput: true},
		{description: "replaces existing format dir", write: true, stale: true, expectOutput: true, expectMissing: "stale.bin"},
		{description: "artifact check failure", expectErr: true},
		{description: "context ended before publish", write: true, cancel: true, expectErr: true},
	}
	for _, testCase := range testCases {
		ctx, cancel := context.WithCancel(context.Background())
		dir := t.TempDir()
		request := &ConvertRequest{
			ModelName:  "m",
			Descriptor: descriptor,
			TempDir:    filepath.Join(dir, ".tmp", "torchscript-1"),
			OutputDir:  filepath.Join(dir, descriptor.Dir()),
			Workspace:  dir,
		}
		if testCase.stale {
			require.NoError(t, os.MkdirAll(request.OutputDir, 0o755))
			require.NoError(t, os.WriteFile(filepath.Join(request.OutputDir, "stale.bin"), []byte("old"), 0o644))
		}
		srv := &fileBackend{write: testCase.write}
		if testCase.cancel {
			srv.onWrite = cancel
		}
		err := Convert(ctx, afs.New(), srv, request)
		cancel()
		if testCase.expectErr {
			conversionErr := &ConversionError{}
			require.True(t, errors.As(err, &conversionErr), testCase.description)
			assert.Equal(t, format.TorchScript, conversionErr.Format, testCase.description)
			assert.False(t, conversionErr.Transient(), testCase.description)
			_, statErr := os.Stat(request.OutputDir)
			assert.True(t, os.IsNotExist(statErr), testCase.description)
			continue
		}
		require.NoError(t, err, testCase.description)
		content, err := os.ReadFile(filepath.Join(request.OutputDir, descriptor.ModelFile))
		require.NoError(t, err, testCase.description)
		assert.Equal(t, "weights", string(content), testCase.description)
		config, err := LoadArtifactConfig(context.Background(), afs.New(), request.OutputDir)
		require.NoError(t, err, testCase.description)
		assert.Equal(t, "m", config.ModelName, testCase.description)
		if testCase.expectMissing != "" {
			_, statErr := os.Stat(filepath.Join(request.OutputDir, testCase.expectMissing))
			assert.True(t, os.IsNotExist(statErr), testCase.description)
		}
	}
}

func TestRegistry(t *testing.T) {
	registry := NewRegistry(&fileBackend{})
	assert.True(t, registry.Has(format.TorchScript))
	assert.Equal(t, []format.ID{format.TorchScript}, registry.IDs())
	_, err := registry.Lookup(format.ONNX)
	assert.Error(t, err)
}
