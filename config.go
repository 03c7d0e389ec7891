package navigator

import (
	"context"
	"fmt"
	"time"

	"github.com/viant/afs"
	"github.com/viant/navigator/policy"
	"github.com/viant/navigator/service/pipeline"
	"github.com/viant/navigator/service/sample"
	"gopkg.in/yaml.v3"
)

// Config is a serialisable representation of the export service configuration.
type Config struct {
	Pipeline pipeline.Config `json:"pipeline" yaml:"pipeline"`
	// TimeoutMs bounds the whole conversion pipeline of one export
	TimeoutMs int `json:"timeoutMs,omitempty" yaml:"timeoutMs,omitempty"`
	// MaxSamples bounds samples taken from the dataloader
	MaxSamples int `json:"maxSamples,omitempty" yaml:"maxSamples,omitempty"`
	// SampleGroup names the captured sample group
	SampleGroup string `json:"sampleGroup,omitempty" yaml:"sampleGroup,omitempty"`
	// SkipCapabilityCheck disables the source framework availability check
	SkipCapabilityCheck bool           `json:"skipCapabilityCheck,omitempty" yaml:"skipCapabilityCheck,omitempty"`
	Policy              *policy.Config `json:"policy,omitempty" yaml:"policy,omitempty"`
}

// DefaultConfig returns default configuration.
func DefaultConfig() *Config {
	return &Config{
		Pipeline:    pipeline.DefaultConfig(),
		TimeoutMs:   int(time.Hour.Milliseconds()),
		MaxSamples:  100,
		SampleGroup: sample.DefaultGroup,
	}
}

// Validate returns error describing invalid settings or nil.
func (c *Config) Validate() error {
	if c == nil {
		return nil
	}
	if c.Pipeline.Workers < 0 {
		return fmt.Errorf("pipeline.workers must be >= 0")
	}
	if c.TimeoutMs < 0 {
		return fmt.Errorf("timeoutMs must be >= 0")
	}
	if c.MaxSamples < 0 {
		return fmt.Errorf("maxSamples must be >= 0")
	}
	if retry := c.Pipeline.Retry; retry != nil && (retry.MaxRetries < 0 || retry.DelayMs < 0) {
		return fmt.Errorf("pipeline.retry values must be >= 0")
	}
	return nil
}

// LoadConfig loads a YAML configuration on top of the defaults.
func LoadConfig(ctx context.Context, fs afs.Service, URL string) (*Config, error) {
	data, err := fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to load config %v: %w", URL, err)
	}
	ret := DefaultConfig()
	if err = yaml.Unmarshal(data, ret); err != nil {
		return nil, fmt.Errorf("failed to decode config %v: %w", URL, err)
	}
	if err = ret.Validate(); err != nil {
		return nil, err
	}
	return ret, nil
}
