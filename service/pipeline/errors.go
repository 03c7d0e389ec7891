package pipeline

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidGraph = errors.New("invalid command graph")
	ErrCycleFound   = errors.New("cycle detected")
	// ErrTransient marks errors worth retrying, e.g. resource exhaustion.
	ErrTransient = errors.New("transient failure")
)

// GraphError wraps deterministic graph validation failures.
type GraphError struct {
	Kind error
	Msg  string
}

func (e *GraphError) Error() string {
	if e == nil {
		return ""
	}
	if e.Msg == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind.Error(), e.Msg)
}

func (e *GraphError) Unwrap() error { return e.Kind }

func invalidf(format string, args ...any) error {
	return &GraphError{Kind: ErrInvalidGraph, Msg: fmt.Sprintf(format, args...)}
}

func cycleError(path []string) error {
	msg := "cycle"
	if len(path) > 0 {
		msg = "cycle: " + strings.Join(path, " -> ")
	}
	return &GraphError{Kind: ErrCycleFound, Msg: msg}
}

// TimeoutError is recorded when a command exceeds its cooperative timeout.
type TimeoutError struct {
	Command string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("command %v timed out after %s", e.Command, e.Timeout)
}

// Transient reports timeouts as retryable.
func (e *TimeoutError) Transient() bool { return true }

// IsTransient returns true for errors wrapping ErrTransient or exposing Transient() == true.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTransient) {
		return true
	}
	var transient interface{ Transient() bool }
	if errors.As(err, &transient) {
		return transient.Transient()
	}
	return false
}
