package navigator

import (
	"context"
	"fmt"
	"io"

	"github.com/viant/afs"
	"github.com/viant/navigator/model/format"
	"github.com/viant/navigator/model/status"
	"github.com/viant/navigator/policy"
	"github.com/viant/navigator/progress"
	"github.com/viant/navigator/service/backend"
	"github.com/viant/navigator/service/backend/safetensors"
	"github.com/viant/navigator/service/capability"
	"github.com/viant/navigator/service/dataloader"
	"github.com/viant/navigator/service/framework"
	"github.com/viant/navigator/service/pipeline"
	"github.com/viant/navigator/service/workspace"
)

// Service exports models into deployable formats.
type Service struct {
	config       *Config
	fs           afs.Service
	backends     *backend.Registry
	capabilities *capability.Registry
	listeners    []pipeline.Listener
	policy       *policy.Policy
	logWriters   []io.Writer
	onProgress   func(progress.Progress)
}

// Backends returns the format backend registry.
func (s *Service) Backends() *backend.Registry {
	return s.backends
}

// Capabilities returns the framework capability registry.
func (s *Service) Capabilities() *capability.Registry {
	return s.capabilities
}

// Export captures reference outputs, converts the model into every target format, verifies
// and optionally profiles each artifact, and writes the package manifest.
//
// Errors detected before the package directory exists leave the file system untouched.
// A capture failure writes an aborted manifest. Branch failures are recorded in the
// returned manifest and never returned as error.
func (s *Service) Export(ctx context.Context, request *ExportRequest) (*status.Manifest, error) {
	if request == nil {
		return nil, fmt.Errorf("%w: request was nil", ErrInvalidRequest)
	}
	request.Init()
	if err := request.Validate(); err != nil {
		return nil, err
	}
	if err := s.config.Validate(); err != nil {
		return nil, err
	}
	run, err := s.plan(request)
	if err != nil {
		return nil, err
	}
	samples, err := dataloader.Normalize(ctx, request.Dataloader, request.ModelParams, dataloader.Options{
		MaxSamples: s.config.MaxSamples,
		BatchDim:   request.BatchDim,
	})
	if err != nil {
		return nil, err
	}
	ws, err := workspace.New(s.fs, request.Workdir, request.ModelName)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if err = ws.Prepare(ctx, request.OverrideWorkdir); err != nil {
		return nil, err
	}
	run.workspace = ws
	return run.execute(ctx, samples)
}

func (s *Service) plan(request *ExportRequest) (*exportRun, error) {
	adapter, err := framework.Lookup(request.Framework)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if s.requiresCheck(adapter) && !s.capabilities.IsAvailable(adapter.Capability) {
		return nil, fmt.Errorf("%w: %v", ErrFrameworkUnavailable, adapter.Capability)
	}
	steps, err := adapter.Plan(request.TargetFormats)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	ret := &exportRun{Service: s, request: request, group: s.config.SampleGroup}
	for _, step := range steps {
		descriptor, err := format.Lookup(step.Format)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		converter, err := s.backends.Lookup(step.Format)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		ret.branches = append(ret.branches, &branch{step: step, descriptor: descriptor, backend: converter})
	}
	return ret, nil
}

func (s *Service) requiresCheck(adapter *framework.Adapter) bool {
	return !s.config.SkipCapabilityCheck && adapter.Capability != capability.Go
}

// New creates a navigator service; safetensors backends are registered unless supplied.
func New(options ...Option) *Service {
	ret := &Service{
		config:   DefaultConfig(),
		fs:       afs.New(),
		backends: backend.NewRegistry(),
	}
	for _, option := range options {
		option(ret)
	}
	for _, id := range []format.ID{format.Safetensors, format.SafetensorsFP16} {
		if !ret.backends.Has(id) {
			ret.backends.Register(safetensors.New(ret.fs, id))
		}
	}
	if ret.config == nil {
		ret.config = DefaultConfig()
	}
	if ret.config.SampleGroup == "" {
		ret.config.SampleGroup = DefaultConfig().SampleGroup
	}
	if ret.capabilities == nil {
		ret.capabilities = capability.Default()
	}
	if ret.policy == nil && ret.config.Policy != nil {
		ret.policy = policy.FromConfig(ret.config.Policy)
	}
	return ret
}
