package navigator

import (
	"fmt"
	"iter"

	"github.com/viant/navigator/model/format"
	"github.com/viant/navigator/model/status"
	"github.com/viant/navigator/model/tensor"
	"github.com/viant/navigator/service/framework"
	"github.com/viant/navigator/service/profile"
	"github.com/viant/navigator/service/runner"
)

// ExportRequest describes one export.
type ExportRequest struct {
	// Model is the source model used to capture reference outputs
	Model runner.Runner
	// Framework is the source model framework, go by default
	Framework framework.Tag
	// Source is the external model location passed to conversion commands as ${source}
	Source string
	// Dataloader yields input batches; it is read lazily up to the configured sample limit
	Dataloader iter.Seq[tensor.Tensors]
	Workdir    string
	ModelName  string
	// OverrideWorkdir replaces an existing non-empty package
	OverrideWorkdir bool
	// TargetFormats defaults to the framework defaults
	TargetFormats []format.ID
	Profiler      *profile.Config
	BatchDim      *int
	// ModelParams are passed to the model with every sample
	ModelParams tensor.Tensors
	// Tolerance overrides precision derived verification tolerances
	Tolerance *status.Tolerance
	// FormatTolerances overrides Tolerance for individual formats
	FormatTolerances map[format.ID]*status.Tolerance
}

// ToleranceFor returns the tolerance override for a format or nil.
func (r *ExportRequest) ToleranceFor(id format.ID) *status.Tolerance {
	if tolerance, ok := r.FormatTolerances[id]; ok && tolerance != nil {
		return tolerance
	}
	return r.Tolerance
}

// Init sets request defaults.
func (r *ExportRequest) Init() {
	if r.Framework == "" {
		r.Framework = framework.Go
	}
}

// Validate checks request consistency.
func (r *ExportRequest) Validate() error {
	if r.Model == nil {
		return fmt.Errorf("%w: model was nil", ErrInvalidRequest)
	}
	if r.Dataloader == nil {
		return fmt.Errorf("%w: dataloader was nil", ErrInvalidRequest)
	}
	if r.Workdir == "" {
		return fmt.Errorf("%w: workdir was empty", ErrInvalidRequest)
	}
	if r.ModelName == "" {
		return fmt.Errorf("%w: model name was empty", ErrInvalidRequest)
	}
	if r.BatchDim != nil && *r.BatchDim < 0 {
		return fmt.Errorf("%w: batch dim must be >= 0", ErrInvalidRequest)
	}
	if r.Tolerance != nil && (r.Tolerance.Atol < 0 || r.Tolerance.Rtol < 0) {
		return fmt.Errorf("%w: tolerance must be >= 0", ErrInvalidRequest)
	}
	for id, tolerance := range r.FormatTolerances {
		if tolerance != nil && (tolerance.Atol < 0 || tolerance.Rtol < 0) {
			return fmt.Errorf("%w: %v tolerance must be >= 0", ErrInvalidRequest, id)
		}
	}
	if r.Profiler != nil && r.Profiler.MeasurementIntervalMs < 0 {
		return fmt.Errorf("%w: measurement interval must be >= 0", ErrInvalidRequest)
	}
	return nil
}
