package shell

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/viant/gosh"
	"github.com/viant/gosh/runner"
	"github.com/viant/gosh/runner/local"
)

// unbounded is used when neither the command nor its context sets a timeout.
const unbounded = time.Duration(math.MaxInt32) * time.Millisecond

// Command describes commands to run in a dedicated local shell.
type Command struct {
	Workdir   string            `json:"workdir,omitempty" yaml:"workdir,omitempty"`
	Env       map[string]string `json:"env,omitempty" yaml:"env,omitempty"`
	Commands  []string          `json:"commands,omitempty" yaml:"commands,omitempty"`
	TimeoutMs int               `json:"timeoutMs,omitempty" yaml:"timeoutMs,omitempty"`
}

// Output represents the result of the last executed command.
type Output struct {
	Command string `json:"command,omitempty"`
	Stdout  string `json:"stdout,omitempty"`
	Status  int    `json:"status,omitempty"`
}

// ExitError is returned when a command exits with a non-zero status.
type ExitError struct {
	Command string
	Status  int
	Output  string
}

func (e *ExitError) Error() string {
	output := strings.TrimSpace(e.Output)
	if len(output) > 512 {
		output = output[len(output)-512:]
	}
	return fmt.Sprintf("command %q exited with status %d: %s", e.Command, e.Status, output)
}

// TimeoutError is returned when a command outlives its timeout.
type TimeoutError struct {
	Command string
	Timeout time.Duration
	Elapsed time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("command %q timed out after %s (timeout %s)", e.Command, e.Elapsed, e.Timeout)
}

// Transient reports timeouts as retryable.
func (e *TimeoutError) Transient() bool { return true }

// Service runs commands, every Run opens its own shell process so concurrent
// callers never share interpreter or working directory state.
type Service struct {
	env map[string]string
}

// Run executes commands in order, aborting on the first non-zero exit status.
func (s *Service) Run(ctx context.Context, command *Command) (*Output, error) {
	if len(command.Commands) == 0 {
		return nil, fmt.Errorf("no commands to run")
	}
	timeout := timeoutFor(ctx, command.TimeoutMs)
	var envOptions []runner.Option
	if env := s.mergeEnv(command.Env); len(env) > 0 {
		envOptions = append(envOptions, runner.WithEnvironment(env))
	}
	service, err := gosh.New(ctx, local.New(envOptions...))
	if err != nil {
		return nil, fmt.Errorf("failed to start shell: %w", err)
	}
	defer service.Close()
	if command.Workdir != "" {
		if _, status, err := service.Run(ctx, "cd "+quote(command.Workdir)); err != nil || status != 0 {
			return nil, fmt.Errorf("failed to change directory to %v: %v (status %d)", command.Workdir, err, status)
		}
	}
	output := &Output{}
	for _, cmd := range command.Commands {
		if err = ctx.Err(); err != nil {
			return output, err
		}
		started := time.Now()
		stdout, status, err := service.Run(ctx, cmd, runner.WithTimeout(int(timeout.Milliseconds())))
		output.Command, output.Stdout, output.Status = cmd, stdout, status
		if ctxErr := ctx.Err(); ctxErr != nil {
			return output, fmt.Errorf("failed to run %q: %w", cmd, ctxErr)
		}
		if elapsed := time.Since(started); elapsed > timeout && err == nil {
			return output, &TimeoutError{Command: cmd, Timeout: timeout, Elapsed: elapsed}
		}
		if err != nil {
			return output, fmt.Errorf("failed to run %q: %w", cmd, err)
		}
		if status != 0 {
			return output, &ExitError{Command: cmd, Status: status, Output: stdout}
		}
	}
	return output, nil
}

// timeoutFor returns the command timeout, or the time left until the context deadline
// when the command sets none.
func timeoutFor(ctx context.Context, timeoutMs int) time.Duration {
	if timeoutMs > 0 {
		return time.Duration(timeoutMs) * time.Millisecond
	}
	deadline, ok := ctx.Deadline()
	if !ok {
		return unbounded
	}
	remaining := time.Until(deadline)
	if remaining < time.Millisecond {
		remaining = time.Millisecond
	}
	if remaining > unbounded {
		remaining = unbounded
	}
	return remaining
}

func (s *Service) mergeEnv(env map[string]string) map[string]string {
	if len(s.env) == 0 {
		return env
	}
	ret := make(map[string]string, len(s.env)+len(env))
	for k, v := range s.env {
		ret[k] = v
	}
	for k, v := range env {
		ret[k] = v
	}
	return ret
}

func quote(text string) string {
	return "'" + strings.ReplaceAll(text, "'", `'\''`) + "'"
}

// New creates a shell service with base environment variables.
func New(env map[string]string) *Service {
	return &Service{env: env}
}
