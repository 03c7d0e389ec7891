package navigator

import (
	"context"
	"fmt"

	"github.com/viant/navigator/model/status"
	"github.com/viant/navigator/service/framework"
	"github.com/viant/navigator/service/runner"
)

// CommandModel describes an external model driven by an inference command.
type CommandModel struct {
	Framework framework.Tag        `json:"framework" yaml:"framework"`
	Source    string               `json:"source,omitempty" yaml:"source,omitempty"`
	Run       runner.CommandConfig `json:"run" yaml:"run"`
	// TempDir holds sample exchange files on the service file system, os temp dir when empty
	TempDir string `json:"tempDir,omitempty" yaml:"tempDir,omitempty"`
}

// ExportGo exports an in-process Go model.
func (s *Service) ExportGo(ctx context.Context, model runner.Runner, request *ExportRequest) (*status.Manifest, error) {
	if request == nil {
		return nil, fmt.Errorf("%w: request was nil", ErrInvalidRequest)
	}
	request.Model = model
	request.Framework = framework.Go
	return s.Export(ctx, request)
}

// ExportCommand exports an external model; reference outputs are captured by running
// the model's inference command, ${source} expands to the model source location.
func (s *Service) ExportCommand(ctx context.Context, model *CommandModel, request *ExportRequest) (*status.Manifest, error) {
	if model == nil || request == nil {
		return nil, fmt.Errorf("%w: command model and request are required", ErrInvalidRequest)
	}
	source, err := runner.NewCommand(s.fs, &model.Run, map[string]string{runner.VarSource: model.Source}, model.TempDir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	request.Model = source
	request.Framework = model.Framework
	request.Source = model.Source
	return s.Export(ctx, request)
}
