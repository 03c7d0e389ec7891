package status

import (
	"fmt"
	"time"

	"github.com/viant/navigator/model/format"
	"gopkg.in/yaml.v3"
)

// ManifestVersion is the status.yaml schema version.
const ManifestVersion = "1"

// Run states
const (
	StateComplete = "complete"
	StateAborted  = "aborted"
)

// Samples describes captured samples.
type Samples struct {
	Group string `json:"group" yaml:"group"`
	Count int    `json:"count" yaml:"count"`
}

// Manifest is the status.yaml content; it aggregates every command result of an export run.
type Manifest struct {
	Version       string               `json:"version" yaml:"version"`
	RunID         string               `json:"runId" yaml:"runId"`
	ModelName     string               `json:"modelName" yaml:"modelName"`
	Framework     string               `json:"framework" yaml:"framework"`
	State         string               `json:"state" yaml:"state"`
	Error         string               `json:"error,omitempty" yaml:"error,omitempty"`
	CreatedAt     time.Time            `json:"createdAt" yaml:"createdAt"`
	CompletedAt   time.Time            `json:"completedAt" yaml:"completedAt"`
	BatchDim      *int                 `json:"batchDim,omitempty" yaml:"batchDim,omitempty"`
	Samples       Samples              `json:"samples" yaml:"samples"`
	TargetFormats []format.ID          `json:"targetFormats" yaml:"targetFormats"`
	Formats       map[format.ID]Status `json:"formats" yaml:"formats"`
	Commands      []*CommandResult     `json:"commands" yaml:"commands"`
}

// Result returns command result by name.
func (m *Manifest) Result(command string) *CommandResult {
	for _, result := range m.Commands {
		if result.Command == command {
			return result
		}
	}
	return nil
}

// Count returns number of commands with the supplied status.
func (m *Manifest) Count(status Status) int {
	ret := 0
	for _, result := range m.Commands {
		if result.Status == status {
			ret++
		}
	}
	return ret
}

// Summarize computes per-format status: any failed command fails the format, otherwise
// any skipped command skips it.
func (m *Manifest) Summarize() {
	m.Formats = make(map[format.ID]Status)
	for _, result := range m.Commands {
		if result.Format == "" {
			continue
		}
		current, ok := m.Formats[result.Format]
		switch {
		case !ok:
			m.Formats[result.Format] = result.Status
		case current == Failure:
		case result.Status != Success:
			m.Formats[result.Format] = result.Status
		}
	}
}

// Validate checks manifest consistency.
func (m *Manifest) Validate() error {
	if m.Version == "" {
		return fmt.Errorf("manifest version was empty")
	}
	if m.ModelName == "" {
		return fmt.Errorf("manifest model name was empty")
	}
	if m.State != StateComplete && m.State != StateAborted {
		return fmt.Errorf("invalid manifest state: %q", m.State)
	}
	seen := map[string]bool{}
	for _, result := range m.Commands {
		if seen[result.Command] {
			return fmt.Errorf("duplicate command result: %v", result.Command)
		}
		seen[result.Command] = true
		switch result.Status {
		case Success, Failure, Skipped:
		default:
			return fmt.Errorf("command %v: invalid status %q", result.Command, result.Status)
		}
	}
	return nil
}

// Encode encodes manifest as YAML.
func Encode(m *Manifest) ([]byte, error) {
	return yaml.Marshal(m)
}

// Decode decodes and validates a YAML manifest.
func Decode(data []byte) (*Manifest, error) {
	ret := &Manifest{}
	if err := yaml.Unmarshal(data, ret); err != nil {
		return nil, fmt.Errorf("failed to decode manifest: %w", err)
	}
	if err := ret.Validate(); err != nil {
		return nil, err
	}
	return ret, nil
}
