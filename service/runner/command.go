package runner

import (
	"context"
	"fmt"
	"os"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/url"
	"github.com/viant/navigator/internal/idgen"
	"github.com/viant/navigator/model/tensor"
	"github.com/viant/navigator/service/sample"
	"github.com/viant/navigator/service/shell"
)

// Command template variables
const (
	VarInput     = "input"
	VarOutput    = "output"
	VarModel     = "model"
	VarWorkspace = "workspace"
	VarFormat    = "format"
	VarSource    = "source"
)

// CommandConfig configures an external process runner. The command reads ${input}
// (npz with inputs and params.<name> entries) and writes ${output} (npz with outputs).
type CommandConfig struct {
	Command   string            `json:"command" yaml:"command"`
	Workdir   string            `json:"workdir,omitempty" yaml:"workdir,omitempty"`
	Env       map[string]string `json:"env,omitempty" yaml:"env,omitempty"`
	TimeoutMs int               `json:"timeoutMs,omitempty" yaml:"timeoutMs,omitempty"`
}

// Command runs inference in an external process.
type Command struct {
	config  *CommandConfig
	vars    map[string]string
	tempDir string
	shell   *shell.Service
	fs      afs.Service
}

// Infer writes inputs to a fresh exchange directory, runs the command and reads its outputs.
func (c *Command) Infer(ctx context.Context, inputs, params tensor.Tensors) (tensor.Tensors, error) {
	exchangeURL := url.Join(c.tempDir, "infer-"+idgen.Short())
	if err := c.fs.Create(ctx, exchangeURL, file.DefaultDirOsMode, true); err != nil {
		return nil, fmt.Errorf("failed to create %v: %w", exchangeURL, err)
	}
	defer func() { _ = c.fs.Delete(context.Background(), exchangeURL) }()

	item := &tensor.Sample{Inputs: inputs, Params: params}
	store := sample.NewStore(c.fs, exchangeURL)
	if err := store.WriteInput(ctx, "run", item); err != nil {
		return nil, err
	}
	vars := make(map[string]string, len(c.vars)+2)
	for k, v := range c.vars {
		vars[k] = v
	}
	vars[VarInput] = url.Path(url.Join(store.InputDir("run"), sample.FileName(0)))
	outputDir := store.OutputDir("run")
	if err := c.fs.Create(ctx, outputDir, file.DefaultDirOsMode, true); err != nil {
		return nil, fmt.Errorf("failed to create %v: %w", outputDir, err)
	}
	vars[VarOutput] = url.Path(url.Join(outputDir, sample.FileName(0)))
	_, err := c.shell.Run(ctx, &shell.Command{
		Workdir:   c.config.Workdir,
		Env:       c.config.Env,
		Commands:  []string{shell.Expand(c.config.Command, vars)},
		TimeoutMs: c.config.TimeoutMs,
	})
	if err != nil {
		return nil, err
	}
	outputs, err := store.ReadOutput(ctx, "run", 0)
	if err != nil {
		return nil, fmt.Errorf("command did not produce outputs: %w", err)
	}
	if len(outputs) == 0 {
		return nil, fmt.Errorf("command produced empty outputs")
	}
	return outputs, nil
}

// NewCommand creates an external process runner; vars are additional template variables
// (e.g. ${model}); exchange files are created with fs under tempDir (os temp dir when empty),
// which has to be reachable by the command as a local path.
func NewCommand(fs afs.Service, config *CommandConfig, vars map[string]string, tempDir string) (*Command, error) {
	if config == nil || config.Command == "" {
		return nil, fmt.Errorf("runner command was empty")
	}
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	if fs == nil {
		fs = afs.New()
	}
	return &Command{
		config:  config,
		vars:    vars,
		tempDir: tempDir,
		shell:   shell.New(nil),
		fs:      fs,
	}, nil
}
