package profile

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/viant/navigator/model/status"
	"github.com/viant/navigator/model/tensor"
	"github.com/viant/navigator/service/runner"
	"github.com/viant/navigator/service/sample"
)

// Config represents profiler configuration
type Config struct {
	// MeasurementIntervalMs is the minimal measurement window; zero disables profiling
	MeasurementIntervalMs int `json:"measurementIntervalMs,omitempty" yaml:"measurementIntervalMs,omitempty"`
	// MaxIterations bounds the number of passes over the samples, zero means unbounded
	MaxIterations int `json:"maxIterations,omitempty" yaml:"maxIterations,omitempty"`
}

// Enabled returns true when profiling was requested.
func (c *Config) Enabled() bool {
	return c != nil && c.MeasurementIntervalMs > 0
}

// Profiler measures artifact latency and throughput over captured samples.
type Profiler struct {
	config Config
	store  *sample.Store
	group  string
	now    func() time.Time
}

// Profile runs model over the captured input samples repeatedly until the measurement
// interval elapsed; at least one full pass is always measured.
func (p *Profiler) Profile(ctx context.Context, model runner.Runner) (*status.Profile, error) {
	samples, err := p.load(ctx)
	if err != nil {
		return nil, err
	}
	interval := time.Duration(p.config.MeasurementIntervalMs) * time.Millisecond
	var latencies []time.Duration
	iterations := 0
	started := p.now()
	for {
		for _, item := range samples {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			begin := p.now()
			if _, err := model.Infer(ctx, item.Inputs, item.Params); err != nil {
				return nil, fmt.Errorf("profile sample %d: %w", item.Index, err)
			}
			latencies = append(latencies, p.now().Sub(begin))
		}
		iterations++
		if p.now().Sub(started) >= interval {
			break
		}
		if p.config.MaxIterations > 0 && iterations >= p.config.MaxIterations {
			break
		}
	}
	return summarize(p.config.MeasurementIntervalMs, iterations, len(samples), latencies, p.now().Sub(started)), nil
}

func (p *Profiler) load(ctx context.Context) ([]*tensor.Sample, error) {
	indexes, err := p.store.Indexes(ctx, p.group)
	if err != nil {
		return nil, err
	}
	if len(indexes) == 0 {
		return nil, fmt.Errorf("no captured samples in group %v", p.group)
	}
	ret := make([]*tensor.Sample, 0, len(indexes))
	for _, index := range indexes {
		item, err := p.store.ReadInput(ctx, p.group, index)
		if err != nil {
			return nil, err
		}
		ret = append(ret, item)
	}
	return ret, nil
}

func summarize(intervalMs, iterations, samples int, latencies []time.Duration, elapsed time.Duration) *status.Profile {
	ret := &status.Profile{MeasurementIntervalMs: intervalMs, Iterations: iterations, Samples: samples}
	if len(latencies) == 0 {
		return ret
	}
	sorted := append([]time.Duration(nil), latencies...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	var total time.Duration
	for _, latency := range sorted {
		total += latency
	}
	ret.AvgLatencyMs = ms(total) / float64(len(sorted))
	ret.P50LatencyMs = ms(percentile(sorted, 50))
	ret.P95LatencyMs = ms(percentile(sorted, 95))
	if elapsed > 0 {
		ret.Throughput = float64(len(sorted)) / elapsed.Seconds()
	}
	return ret
}

// percentile uses nearest rank on sorted values.
func percentile(sorted []time.Duration, p float64) time.Duration {
	rank := int(math.Ceil(p / 100 * float64(len(sorted))))
	if rank < 1 {
		rank = 1
	}
	return sorted[rank-1]
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// Option represents profiler option
type Option func(p *Profiler)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(p *Profiler) {
		p.now = now
	}
}

// New creates a profiler over captured samples of group.
func New(config Config, store *sample.Store, group string, options ...Option) *Profiler {
	if group == "" {
		group = sample.DefaultGroup
	}
	ret := &Profiler{config: config, store: store, group: group, now: time.Now}
	for _, option := range options {
		option(ret)
	}
	return ret
}
