package navigator

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/viant/afs/url"
	"github.com/viant/navigator/internal/clock"
	"github.com/viant/navigator/internal/idgen"
	"github.com/viant/navigator/model/format"
	"github.com/viant/navigator/model/status"
	"github.com/viant/navigator/model/tensor"
	"github.com/viant/navigator/progress"
	"github.com/viant/navigator/service/backend"
	"github.com/viant/navigator/service/capture"
	"github.com/viant/navigator/service/dao/result"
	"github.com/viant/navigator/service/framework"
	"github.com/viant/navigator/service/pipeline"
	"github.com/viant/navigator/service/profile"
	"github.com/viant/navigator/service/runner"
	"github.com/viant/navigator/service/sample"
	"github.com/viant/navigator/service/verify"
	"github.com/viant/navigator/service/workspace"
	"github.com/viant/navigator/tracing"
)

// branch is one target format conversion chain element.
type branch struct {
	step       *framework.Step
	descriptor *format.Descriptor
	backend    backend.Backend
}

// exportRun holds the state of a single export.
type exportRun struct {
	*Service
	request   *ExportRequest
	branches  []*branch
	workspace *workspace.Workspace
	store     *sample.Store
	group     string
}

func (r *exportRun) execute(ctx context.Context, samples []*tensor.Sample) (manifest *status.Manifest, err error) {
	ctx, span := tracing.StartSpan(ctx, "navigator.export", tracing.KindInternal)
	span.WithAttributes(map[string]string{"model": r.request.ModelName, "framework": string(r.request.Framework)})
	defer func() { tracing.EndSpan(span, err) }()

	manifest = r.newManifest()
	logger, err := r.workspace.OpenLog(ctx, r.logWriters...)
	if err != nil {
		return r.abort(ctx, manifest, err)
	}
	logger.Printf("export %v (run %v): framework %v, targets %v", r.request.ModelName, manifest.RunID, r.request.Framework, manifest.TargetFormats)
	r.store = r.workspace.Samples()

	captured, err := capture.New(r.store, r.group, logger).Capture(ctx, r.request.Model, samples)
	if err != nil {
		logger.Printf("capture failed: %v", err)
		return r.abort(ctx, manifest, err)
	}
	manifest.Samples = status.Samples{Group: captured.Group, Count: captured.Count}
	logger.Printf("captured %d samples, outputs: %v", captured.Count, captured.Outputs)

	graph, err := r.graph()
	if err != nil {
		return r.abort(ctx, manifest, err)
	}
	journal := result.New()
	options := []pipeline.Option{
		pipeline.WithConfig(r.config.Pipeline),
		pipeline.WithJournal(journal),
		pipeline.WithLogger(logger),
		pipeline.WithPolicy(r.policy),
	}
	for _, listener := range r.listeners {
		options = append(options, pipeline.WithListener(listener))
	}
	timeout := clock.Ms(r.config.TimeoutMs, time.Hour)
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	runCtx, _ = progress.WithNewTracker(runCtx, manifest.RunID, r.request.ModelName, r.onProgress)
	outcome, err := pipeline.New(options...).Run(runCtx, graph)
	cancel()
	if err != nil {
		return r.abort(ctx, manifest, err)
	}
	if manifest.Commands, err = r.commandResults(ctx, journal, graph.Order()); err != nil {
		return r.abort(ctx, manifest, err)
	}
	manifest.Summarize()
	manifest.State = status.StateComplete
	if outcome.Cancelled {
		if ctx.Err() != nil {
			manifest.Error = fmt.Sprintf("export cancelled: %v", ctx.Err())
		} else {
			manifest.Error = fmt.Sprintf("export timed out after %s", timeout)
		}
		logger.Printf("%v", manifest.Error)
	}
	logger.Printf("export finished: %d succeeded, %d failed, %d skipped",
		manifest.Count(status.Success), manifest.Count(status.Failure), manifest.Count(status.Skipped))
	return manifest, r.finish(ctx, manifest, ctx.Err())
}

// commandResults returns journaled results in command graph order.
func (r *exportRun) commandResults(ctx context.Context, journal *result.Service, order []string) ([]*status.CommandResult, error) {
	results, err := journal.List(ctx)
	if err != nil {
		return nil, err
	}
	position := make(map[string]int, len(order))
	for i, name := range order {
		position[name] = i
	}
	sort.SliceStable(results, func(i, j int) bool {
		return position[results[i].Command] < position[results[j].Command]
	})
	return results, nil
}

func (r *exportRun) newManifest() *status.Manifest {
	ret := &status.Manifest{
		Version:   status.ManifestVersion,
		RunID:     idgen.New(),
		ModelName: r.request.ModelName,
		Framework: string(r.request.Framework),
		CreatedAt: clock.Now().UTC(),
		BatchDim:  r.request.BatchDim,
		Samples:   status.Samples{Group: r.group},
	}
	for _, item := range r.branches {
		ret.TargetFormats = append(ret.TargetFormats, item.step.Format)
	}
	return ret
}

func (r *exportRun) abort(ctx context.Context, manifest *status.Manifest, cause error) (*status.Manifest, error) {
	manifest.State = status.StateAborted
	manifest.Error = cause.Error()
	return manifest, r.finish(ctx, manifest, cause)
}

// finish writes the manifest once and removes scratch data; cause takes precedence over finish errors.
func (r *exportRun) finish(ctx context.Context, manifest *status.Manifest, cause error) error {
	ctx = context.WithoutCancel(ctx)
	manifest.CompletedAt = clock.Now().UTC()
	err := r.workspace.WriteManifest(ctx, manifest)
	if finalizeErr := r.workspace.Finalize(ctx); err == nil {
		err = finalizeErr
	}
	if cause != nil {
		return cause
	}
	return err
}

func (r *exportRun) graph() (*pipeline.Graph, error) {
	var commands []*pipeline.Command
	for _, item := range r.branches {
		id := item.step.Format
		convert := &pipeline.Command{Name: pipeline.ConvertName(id), Kind: status.KindConvert, Format: id, Action: r.convertAction(item)}
		if item.step.Parent != "" {
			convert.DependsOn = []string{pipeline.ConvertName(item.step.Parent)}
		}
		commands = append(commands, convert, &pipeline.Command{
			Name:      pipeline.VerifyName(id),
			Kind:      status.KindVerify,
			Format:    id,
			DependsOn: []string{convert.Name},
			Action:    r.verifyAction(item),
		})
		if r.request.Profiler.Enabled() {
			commands = append(commands, &pipeline.Command{
				Name:      pipeline.ProfileName(id),
				Kind:      status.KindProfile,
				Format:    id,
				DependsOn: []string{pipeline.VerifyName(id)},
				Action:    r.profileAction(item),
			})
		}
	}
	return pipeline.NewGraph(commands...)
}

func (r *exportRun) convertAction(item *branch) pipeline.Action {
	return func(ctx context.Context, attempt int, result *status.CommandResult) error {
		source := r.request.Source
		if parent := item.step.Parent; parent != "" {
			descriptor, err := format.Lookup(parent)
			if err != nil {
				return err
			}
			source = url.Path(backend.ModelPath(r.workspace.FormatDir(parent), descriptor))
		}
		return backend.Convert(ctx, r.fs, item.backend, &backend.ConvertRequest{
			ModelName:  r.request.ModelName,
			Framework:  string(r.request.Framework),
			Descriptor: item.descriptor,
			Model:      r.request.Model,
			Source:     source,
			Parent:     item.step.Parent,
			TempDir:    r.workspace.TempDir(result.Command, attempt),
			OutputDir:  r.workspace.FormatDir(item.descriptor.ID),
			Workspace:  r.workspace.Dir(),
			BatchDim:   r.request.BatchDim,
			Samples:    r.store,
			Group:      r.group,
			Attempt:    attempt,
		})
	}
}

func (r *exportRun) load(ctx context.Context, item *branch, command string, attempt int) (runner.Runner, error) {
	return item.backend.Load(ctx, &backend.LoadRequest{
		ModelName:  r.request.ModelName,
		Descriptor: item.descriptor,
		Dir:        r.workspace.FormatDir(item.descriptor.ID),
		Model:      r.request.Model,
		TempDir:    r.workspace.TempDir(command, attempt),
		Workspace:  r.workspace.Dir(),
		FS:         r.fs,
	})
}

func (r *exportRun) verifyAction(item *branch) pipeline.Action {
	return func(ctx context.Context, attempt int, result *status.CommandResult) error {
		model, err := r.load(ctx, item, result.Command, attempt)
		if err != nil {
			result.Verdict = &status.Verdict{Kind: status.VerdictError, Cause: err.Error()}
			return &verify.VerificationError{Format: item.descriptor.ID, Cause: err}
		}
		defer func() { _ = runner.Close(model) }()
		verdict, err := verify.New(r.store, r.group).Verify(ctx, &verify.Request{
			Format:    item.descriptor.ID,
			Precision: item.descriptor.Precision,
			Runner:    model,
			Tolerance: r.request.ToleranceFor(item.descriptor.ID),
		})
		result.Verdict = verdict
		return err
	}
}

func (r *exportRun) profileAction(item *branch) pipeline.Action {
	return func(ctx context.Context, attempt int, result *status.CommandResult) error {
		model, err := r.load(ctx, item, result.Command, attempt)
		if err != nil {
			return err
		}
		defer func() { _ = runner.Close(model) }()
		measured, err := profile.New(*r.request.Profiler, r.store, r.group).Profile(ctx, model)
		if err != nil {
			return err
		}
		result.Profile = measured
		return nil
	}
}
