// Package tracing wraps OpenTelemetry so that export runs and pipeline commands
// can be traced without callers importing the upstream packages directly.
package tracing
