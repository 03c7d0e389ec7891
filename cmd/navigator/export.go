package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/viant/afs"
	"github.com/viant/navigator"
	"github.com/viant/navigator/model/format"
	"github.com/viant/navigator/model/status"
	"github.com/viant/navigator/service/backend"
	"github.com/viant/navigator/service/backend/command"
	"github.com/viant/navigator/service/backend/onnx"
	"github.com/viant/navigator/service/dataloader"
	"github.com/viant/navigator/service/framework"
	"github.com/viant/navigator/service/pipeline"
	"github.com/viant/navigator/service/profile"
	"github.com/viant/navigator/service/runner"
	"github.com/viant/navigator/tracing"
	"gopkg.in/yaml.v3"
)

// exportConfig is the export.yaml document.
type exportConfig struct {
	ModelName     string               `yaml:"modelName"`
	Workdir       string               `yaml:"workdir"`
	Framework     framework.Tag        `yaml:"framework"`
	Source        string               `yaml:"source"`
	Run           runner.CommandConfig `yaml:"run"`
	Samples       string               `yaml:"samples"`
	TargetFormats []format.ID          `yaml:"targetFormats"`
	BatchDim      *int                 `yaml:"batchDim"`
	Profiler      *profile.Config      `yaml:"profiler"`
	Tolerance     *status.Tolerance    `yaml:"tolerance"`
	Backends      []*command.Config    `yaml:"backends"`
	Navigator     *navigator.Config    `yaml:"navigator"`
	// Tracing is a span output file, tracing is disabled when empty
	Tracing string `yaml:"tracing"`
	// FormatTolerances overrides tolerance per format
	FormatTolerances map[format.ID]*status.Tolerance `yaml:"formatTolerances"`
}

func (c *exportConfig) validate() error {
	if c.ModelName == "" {
		return fmt.Errorf("modelName was empty")
	}
	if c.Workdir == "" {
		return fmt.Errorf("workdir was empty")
	}
	if c.Run.Command == "" {
		return fmt.Errorf("run.command was empty")
	}
	if c.Samples == "" {
		return fmt.Errorf("samples was empty")
	}
	return c.Navigator.Validate()
}

func loadExportConfig(ctx context.Context, fs afs.Service, URL string) (*exportConfig, error) {
	data, err := fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to load %v: %w", URL, err)
	}
	ret := &exportConfig{Navigator: navigator.DefaultConfig()}
	if err = yaml.Unmarshal(data, ret); err != nil {
		return nil, fmt.Errorf("failed to decode %v: %w", URL, err)
	}
	return ret, nil
}

func newBackends(configs []*command.Config) ([]backend.Backend, error) {
	var ret []backend.Backend
	for _, config := range configs {
		var item backend.Backend
		var err error
		if config.Format == format.ONNX {
			item, err = onnx.New(config)
		} else {
			item, err = command.New(config)
		}
		if err != nil {
			return nil, err
		}
		ret = append(ret, item)
	}
	return ret, nil
}

func newExportCmd() *cobra.Command {
	var configURL string
	var workdir string
	var override bool
	var verbose bool

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export an external model into target formats",
		Long: "Export an external model into target formats.\n\n" +
			"Reference outputs are captured by running the configured inference command over the npz samples directory.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			fs := afs.New()
			config, err := loadExportConfig(ctx, fs, configURL)
			if err != nil {
				return err
			}
			if workdir != "" {
				config.Workdir = workdir
			}
			if err = config.validate(); err != nil {
				return err
			}
			var logWriter io.Writer = io.Discard
			if verbose {
				logWriter = cmd.ErrOrStderr()
			}
			manifest, err := runExport(ctx, fs, config, override, logWriter, cmd.OutOrStdout())
			if manifest != nil {
				printManifest(cmd.OutOrStdout(), manifest)
			}
			if err != nil {
				return fmt.Errorf("export failed: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configURL, "config", "c", "export.yaml", "Export configuration file")
	cmd.Flags().StringVarP(&workdir, "workdir", "w", "", "Overrides the configured workdir")
	cmd.Flags().BoolVar(&override, "override", false, "Replace an existing package")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Print run log to stderr")
	return cmd
}

func runExport(ctx context.Context, fs afs.Service, config *exportConfig, override bool, logWriter, out io.Writer) (*status.Manifest, error) {
	backends, err := newBackends(config.Backends)
	if err != nil {
		return nil, err
	}
	loader, err := dataloader.FromDir(ctx, fs, config.Samples)
	if err != nil {
		return nil, err
	}
	options := []navigator.Option{
		navigator.WithConfig(config.Navigator),
		navigator.WithFileSystem(fs),
		navigator.WithBackends(backends...),
		navigator.WithLogWriter(logWriter),
		navigator.WithListener(pipeline.ListenerFunc(func(ctx context.Context, result *status.CommandResult) {
			fmt.Fprintf(out, "%-24s %v\n", result.Command, result.Status)
		})),
	}
	if config.Tracing != "" {
		options = append(options, navigator.WithTracing("navigator", version, config.Tracing))
		defer func() { _ = tracing.Shutdown(context.WithoutCancel(ctx)) }()
	}
	srv := navigator.New(options...)
	model := &navigator.CommandModel{
		Framework: config.Framework,
		Source:    config.Source,
		Run:       config.Run,
		TempDir:   os.TempDir(),
	}
	return srv.ExportCommand(ctx, model, &navigator.ExportRequest{
		Workdir:          config.Workdir,
		ModelName:        config.ModelName,
		OverrideWorkdir:  override,
		TargetFormats:    config.TargetFormats,
		Profiler:         config.Profiler,
		BatchDim:         config.BatchDim,
		Tolerance:        config.Tolerance,
		FormatTolerances: config.FormatTolerances,
		Dataloader:       loader,
	})
}
