package navigator

import (
	"io"

	"github.com/viant/afs"
	"github.com/viant/navigator/policy"
	"github.com/viant/navigator/progress"
	"github.com/viant/navigator/service/backend"
	"github.com/viant/navigator/service/capability"
	"github.com/viant/navigator/service/pipeline"
	"github.com/viant/navigator/tracing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Option represents navigator service option
type Option func(s *Service)

// WithConfig sets service configuration
func WithConfig(config *Config) Option {
	return func(s *Service) {
		s.config = config
	}
}

// WithFileSystem sets the file system used for workspaces
func WithFileSystem(fs afs.Service) Option {
	return func(s *Service) {
		s.fs = fs
	}
}

// WithBackends registers format backends, replacing defaults for the same formats
func WithBackends(backends ...backend.Backend) Option {
	return func(s *Service) {
		for _, item := range backends {
			s.backends.Register(item)
		}
	}
}

// WithCapabilities sets the framework capability registry
func WithCapabilities(registry *capability.Registry) Option {
	return func(s *Service) {
		s.capabilities = registry
	}
}

// WithListener adds a command result listener
func WithListener(listener pipeline.Listener) Option {
	return func(s *Service) {
		s.listeners = append(s.listeners, listener)
	}
}

// WithPolicy sets the command policy
func WithPolicy(p *policy.Policy) Option {
	return func(s *Service) {
		s.policy = p
	}
}

// WithLogWriter adds writers receiving run log lines besides navigator.log
func WithLogWriter(writers ...io.Writer) Option {
	return func(s *Service) {
		s.logWriters = append(s.logWriters, writers...)
	}
}

// WithProgress sets a callback receiving progress snapshots
func WithProgress(onChange func(progress.Progress)) Option {
	return func(s *Service) {
		s.onProgress = onChange
	}
}

// WithTracing configures OpenTelemetry tracing. If outputFile is empty the
// stdout exporter is used; the first successful initialisation wins.
func WithTracing(serviceName, serviceVersion, outputFile string) Option {
	return func(s *Service) {
		_ = tracing.Init(serviceName, serviceVersion, outputFile)
	}
}

// WithTracingExporter configures OpenTelemetry tracing using a custom SpanExporter.
func WithTracingExporter(serviceName, serviceVersion string, exporter sdktrace.SpanExporter) Option {
	return func(s *Service) {
		_ = tracing.InitWithExporter(serviceName, serviceVersion, exporter)
	}
}
