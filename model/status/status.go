package status

import (
	"time"

	"github.com/viant/navigator/model/format"
)

// Status is the terminal outcome of a pipeline command.
type Status string

const (
	Success Status = "success"
	Failure Status = "failure"
	Skipped Status = "skipped"
)

// Kind classifies pipeline commands.
type Kind string

const (
	KindConvert Kind = "convert"
	KindVerify  Kind = "verify"
	KindProfile Kind = "profile"
)

// VerdictKind classifies a verification outcome.
type VerdictKind string

const (
	VerdictMatch    VerdictKind = "match"
	VerdictMismatch VerdictKind = "mismatch"
	VerdictError    VerdictKind = "error"
)

// Tolerance is the allclose tolerance used to compare outputs.
type Tolerance struct {
	Atol float64 `json:"atol" yaml:"atol"`
	Rtol float64 `json:"rtol" yaml:"rtol"`
}

// OutputDiff records the observed differences for one output tensor.
type OutputDiff struct {
	MaxAbsDiff float64 `json:"maxAbsDiff" yaml:"maxAbsDiff"`
	MaxRelDiff float64 `json:"maxRelDiff" yaml:"maxRelDiff"`
}

// Verdict is the outcome of comparing an artifact's outputs with the reference.
type Verdict struct {
	Kind       VerdictKind            `json:"kind" yaml:"kind"`
	MaxAbsDiff float64                `json:"maxAbsDiff" yaml:"maxAbsDiff"`
	MaxRelDiff float64                `json:"maxRelDiff" yaml:"maxRelDiff"`
	Cause      string                 `json:"cause,omitempty" yaml:"cause,omitempty"`
	Tolerance  Tolerance              `json:"tolerance" yaml:"tolerance"`
	Samples    int                    `json:"samples" yaml:"samples"`
	Outputs    map[string]*OutputDiff `json:"outputs,omitempty" yaml:"outputs,omitempty"`
}

// IsMatch returns true for a match verdict.
func (v *Verdict) IsMatch() bool {
	return v != nil && v.Kind == VerdictMatch
}

// Profile records artifact latency/throughput measurements.
type Profile struct {
	MeasurementIntervalMs int     `json:"measurementIntervalMs" yaml:"measurementIntervalMs"`
	Iterations            int     `json:"iterations" yaml:"iterations"`
	Samples               int     `json:"samples" yaml:"samples"`
	AvgLatencyMs          float64 `json:"avgLatencyMs" yaml:"avgLatencyMs"`
	P50LatencyMs          float64 `json:"p50LatencyMs" yaml:"p50LatencyMs"`
	P95LatencyMs          float64 `json:"p95LatencyMs" yaml:"p95LatencyMs"`
	Throughput            float64 `json:"throughput" yaml:"throughput"`
}

// CommandResult records one pipeline command's terminal outcome.
type CommandResult struct {
	Command     string     `json:"command" yaml:"command"`
	Kind        Kind       `json:"kind" yaml:"kind"`
	Format      format.ID  `json:"format,omitempty" yaml:"format,omitempty"`
	Status      Status     `json:"status" yaml:"status"`
	Error       string     `json:"error,omitempty" yaml:"error,omitempty"`
	Attempts    int        `json:"attempts" yaml:"attempts"`
	StartedAt   *time.Time `json:"startedAt,omitempty" yaml:"startedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty" yaml:"completedAt,omitempty"`
	DurationMs  int64      `json:"durationMs" yaml:"durationMs"`
	Verdict     *Verdict   `json:"verdict,omitempty" yaml:"verdict,omitempty"`
	Profile     *Profile   `json:"profile,omitempty" yaml:"profile,omitempty"`
}

// Start records command start time.
func (r *CommandResult) Start(at time.Time) {
	r.StartedAt = &at
}

// Complete records the terminal status.
func (r *CommandResult) Complete(at time.Time, status Status, err error) {
	r.CompletedAt = &at
	r.Status = status
	if err != nil {
		r.Error = err.Error()
	}
	if r.StartedAt != nil {
		r.DurationMs = at.Sub(*r.StartedAt).Milliseconds()
	}
}

// Clone returns a copy safe to hand out after the result was journaled.
func (r *CommandResult) Clone() *CommandResult {
	if r == nil {
		return nil
	}
	clone := *r
	if r.Verdict != nil {
		verdict := *r.Verdict
		if r.Verdict.Outputs != nil {
			verdict.Outputs = make(map[string]*OutputDiff, len(r.Verdict.Outputs))
			for k, v := range r.Verdict.Outputs {
				diff := *v
				verdict.Outputs[k] = &diff
			}
		}
		clone.Verdict = &verdict
	}
	if r.Profile != nil {
		profile := *r.Profile
		clone.Profile = &profile
	}
	return &clone
}
