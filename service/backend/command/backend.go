package command

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/viant/afs/url"
	"github.com/viant/navigator/model/format"
	"github.com/viant/navigator/service/backend"
	"github.com/viant/navigator/service/runner"
	"github.com/viant/navigator/service/shell"
)

// DefaultTransientExitCodes lists exit statuses worth a retry (137: killed, e.g. out of memory).
var DefaultTransientExitCodes = []int{137}

// Config represents a command backend configuration.
//
// Convert template variables: ${source} conversion input, ${output} artifact model path,
// ${input} captured input samples directory, ${model} model name, ${workspace}, ${format}.
// Run template variables: ${model} artifact model path, ${input} and ${output} npz files.
type Config struct {
	Format             format.ID         `json:"format" yaml:"format"`
	Convert            string            `json:"convert" yaml:"convert"`
	Run                string            `json:"run,omitempty" yaml:"run,omitempty"`
	Workdir            string            `json:"workdir,omitempty" yaml:"workdir,omitempty"`
	Env                map[string]string `json:"env,omitempty" yaml:"env,omitempty"`
	TimeoutMs          int               `json:"timeoutMs,omitempty" yaml:"timeoutMs,omitempty"`
	TransientExitCodes []int             `json:"transientExitCodes,omitempty" yaml:"transientExitCodes,omitempty"`
}

// Validate checks config.
func (c *Config) Validate() error {
	if c.Format == "" {
		return fmt.Errorf("command backend format was empty")
	}
	if _, err := format.Lookup(c.Format); err != nil {
		return err
	}
	if c.Convert == "" {
		return fmt.Errorf("format %v: convert command was empty", c.Format)
	}
	return nil
}

// Backend converts and runs models with external commands.
type Backend struct {
	config *Config
	shell  *shell.Service
}

// Format returns backend format.
func (b *Backend) Format() format.ID {
	return b.config.Format
}

// Producer returns the conversion command template.
func (b *Backend) Producer() string {
	return b.config.Convert
}

// Convert runs the conversion command producing the artifact into the request temp dir.
func (b *Backend) Convert(ctx context.Context, request *backend.ConvertRequest) error {
	vars := map[string]string{
		runner.VarSource:    request.Source,
		runner.VarOutput:    url.Path(url.Join(request.TempDir, request.Descriptor.ModelFile)),
		runner.VarModel:     request.ModelName,
		runner.VarWorkspace: url.Path(request.Workspace),
		runner.VarFormat:    string(request.Descriptor.ID),
	}
	if request.Samples != nil {
		vars[runner.VarInput] = url.Path(request.Samples.InputDir(request.Group))
	}
	_, err := b.shell.Run(ctx, &shell.Command{
		Workdir:   b.config.Workdir,
		Env:       b.config.Env,
		Commands:  []string{shell.Expand(b.config.Convert, vars)},
		TimeoutMs: b.config.TimeoutMs,
	})
	if err != nil {
		return backend.NewConversionError(b.config.Format, err, b.isTransient(err))
	}
	return nil
}

func (b *Backend) isTransient(err error) bool {
	timeoutErr := &shell.TimeoutError{}
	if errors.As(err, &timeoutErr) {
		return true
	}
	exitErr := &shell.ExitError{}
	if !errors.As(err, &exitErr) {
		return false
	}
	codes := b.config.TransientExitCodes
	if len(codes) == 0 {
		codes = DefaultTransientExitCodes
	}
	return slices.Contains(codes, exitErr.Status)
}

// Load returns a command runner executing the run template against the artifact.
func (b *Backend) Load(ctx context.Context, request *backend.LoadRequest) (runner.Runner, error) {
	if b.config.Run == "" {
		return nil, fmt.Errorf("format %v: run command was empty", b.config.Format)
	}
	vars := map[string]string{
		runner.VarModel:     url.Path(request.ModelPath()),
		runner.VarWorkspace: url.Path(request.Workspace),
		runner.VarFormat:    string(b.config.Format),
	}
	return runner.NewCommand(request.FileSystem(), &runner.CommandConfig{
		Command:   b.config.Run,
		Workdir:   b.config.Workdir,
		Env:       b.config.Env,
		TimeoutMs: b.config.TimeoutMs,
	}, vars, url.Path(request.TempDir))
}

// HasRun returns true when an inference command was configured.
func (b *Backend) HasRun() bool {
	return b.config.Run != ""
}

// New creates a command backend.
func New(config *Config) (*Backend, error) {
	if config == nil {
		return nil, fmt.Errorf("command backend config was nil")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Backend{config: config, shell: shell.New(nil)}, nil
}
