package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/viant/navigator/internal/clock"
	"github.com/viant/navigator/model/status"
	"github.com/viant/navigator/policy"
	"github.com/viant/navigator/progress"
	"github.com/viant/navigator/service/dao/result"
	"github.com/viant/navigator/service/messaging"
	"github.com/viant/navigator/service/messaging/memory"
	"github.com/viant/navigator/tracing"
)

const (
	reasonCancelled = "cancelled"
	reasonBlocked   = "blocked by policy"
)

// Config represents executor configuration
type Config struct {
	// Workers is the number of goroutines executing commands
	Workers int `json:"workers,omitempty" yaml:"workers,omitempty"`
	// CommandTimeoutMs is the default per command timeout
	CommandTimeoutMs int `json:"commandTimeoutMs,omitempty" yaml:"commandTimeoutMs,omitempty"`
	// Retry applies to transient failures only, nil disables retries
	Retry *Retry `json:"retry,omitempty" yaml:"retry,omitempty"`
	// GraceMs bounds the wait for an action that did not return after its timeout or cancellation
	GraceMs int `json:"graceMs,omitempty" yaml:"graceMs,omitempty"`
}

const defaultGrace = 10 * time.Second

// DefaultConfig returns the default executor configuration
func DefaultConfig() Config {
	return Config{
		Workers:          4,
		CommandTimeoutMs: int((10 * time.Minute).Milliseconds()),
		GraceMs:          int(defaultGrace.Milliseconds()),
	}
}

// Result holds terminal command results in canonical order.
type Result struct {
	Results   []*status.CommandResult
	Cancelled bool
}

// Lookup returns command result by name.
func (r *Result) Lookup(name string) *status.CommandResult {
	for _, candidate := range r.Results {
		if candidate.Command == name {
			return candidate
		}
	}
	return nil
}

// Executor runs a command graph on a worker pool. Independent branches proceed
// when a sibling fails; dependents of a failed or skipped command are skipped.
type Executor struct {
	config    Config
	journal   *result.Service
	listeners []Listener
	policy    *policy.Policy
	logger    *log.Logger
}

type dispatch struct {
	Name string
}

type completion struct {
	name    string
	started bool
	result  *status.CommandResult
}

type run struct {
	*Executor
	graph       *Graph
	mu          sync.Mutex
	state       ExecutionState
	queued      map[string]bool
	results     map[string]*status.CommandResult
	queue       *memory.Queue[dispatch]
	completions chan *completion
	policy      *policy.Policy
	abandoned   sync.WaitGroup
}

// Run executes the graph until every command reached a terminal state or ctx was cancelled.
// Command failures never surface as the returned error; they are recorded as results.
func (e *Executor) Run(ctx context.Context, graph *Graph) (*Result, error) {
	if graph == nil {
		return nil, invalidf("graph was nil")
	}
	r := &run{
		Executor:    e,
		graph:       graph,
		state:       NewExecutionState(graph),
		queued:      map[string]bool{},
		results:     map[string]*status.CommandResult{},
		queue:       memory.NewQueue[dispatch](memory.Config{QueueBuffer: graph.Len(), DeadLetter: true}),
		completions: make(chan *completion, graph.Len()),
		policy:      e.policy,
	}
	if p := policy.FromContext(ctx); p != nil {
		r.policy = p
	}
	progress.UpdateCtx(ctx, progress.Delta{Total: graph.Len(), Pending: graph.Len()})

	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	workers := sync.WaitGroup{}
	for i := 0; i < e.workerCount(graph); i++ {
		workers.Add(1)
		go func(id int) {
			defer workers.Done()
			r.work(ctx, workerCtx, id)
		}(i)
	}

	inflight := r.dispatch(ctx)
	done := ctx.Done()
	for inflight > 0 {
		select {
		case c := <-r.completions:
			inflight--
			r.complete(ctx, c)
			inflight += r.dispatch(ctx)
		case <-done:
			done = nil
			e.logger.Printf("run cancelled: %v, waiting for %d in-flight commands", ctx.Err(), inflight)
		}
	}
	cancelWorkers()
	workers.Wait()
	r.awaitAbandoned()
	if size := r.queue.DLQSize(); size > 0 {
		e.logger.Printf("%d commands did not succeed: %v", size, deadLetterNames(r.queue.DeadLetters()))
	}

	ret := &Result{Cancelled: ctx.Err() != nil}
	if ret.Cancelled {
		r.skipPending(ctx, reasonCancelled)
	}
	for _, name := range graph.Order() {
		if item, ok := r.results[name]; ok {
			ret.Results = append(ret.Results, item)
		}
	}
	return ret, nil
}

func deadLetterNames(items []*dispatch) []string {
	ret := make([]string, 0, len(items))
	for _, item := range items {
		ret = append(ret, item.Name)
	}
	return ret
}

func (e *Executor) workerCount(graph *Graph) int {
	count := e.config.Workers
	if count <= 0 {
		count = DefaultConfig().Workers
	}
	if count > graph.Len() {
		count = graph.Len()
	}
	return count
}

// dispatch publishes ready commands and skips the ones blocked by policy; it returns number published.
func (r *run) dispatch(ctx context.Context) int {
	if ctx.Err() != nil {
		return 0
	}
	published := 0
	for {
		r.mu.Lock()
		var ready []string
		for _, name := range Ready(r.graph, r.state) {
			if !r.queued[name] {
				ready = append(ready, name)
			}
		}
		r.mu.Unlock()
		if len(ready) == 0 {
			return published
		}
		blocked := false
		for _, name := range ready {
			if !r.policy.IsAllowed(name) {
				r.skip(ctx, name, reasonBlocked)
				blocked = true
				continue
			}
			r.mu.Lock()
			r.queued[name] = true
			r.mu.Unlock()
			if err := r.queue.Publish(ctx, &dispatch{Name: name}); err != nil {
				r.mu.Lock()
				delete(r.queued, name)
				r.mu.Unlock()
				return published
			}
			published++
		}
		if !blocked {
			return published
		}
	}
}

func (r *run) work(runCtx, workerCtx context.Context, id int) {
	for {
		msg, err := r.queue.Consume(workerCtx)
		if err != nil {
			return
		}
		name := msg.T().Name
		command, _ := r.graph.Command(name)
		r.mu.Lock()
		if runCtx.Err() != nil {
			r.mu.Unlock()
			_ = msg.Nack(runCtx.Err())
			r.completions <- &completion{name: name}
			continue
		}
		err = Transition(r.state, name, StatePending, StateRunning)
		r.mu.Unlock()
		if err != nil {
			r.logger.Printf("worker %d: %v", id, err)
			_ = msg.Nack(err)
			r.completions <- &completion{name: name}
			continue
		}
		progress.UpdateCtx(runCtx, progress.Delta{Pending: -1, Running: 1})
		item := r.execute(runCtx, command)
		if item.Status == status.Success {
			_ = msg.Ack()
		} else {
			_ = msg.Nack(errors.New(item.Error))
		}
		r.completions <- &completion{name: name, started: true, result: item}
	}
}

// execute runs command attempts, retrying transient failures.
func (r *run) execute(ctx context.Context, command *Command) *status.CommandResult {
	ret := &status.CommandResult{Command: command.Name, Kind: command.Kind, Format: command.Format}
	ret.Start(clock.Now())
	ctx, span := tracing.StartSpan(ctx, command.Name, tracing.KindInternal)
	span.WithAttributes(map[string]string{"command.kind": string(command.Kind), "command.format": string(command.Format)})
	var err error
	for attempt := 1; ; attempt++ {
		ret.Attempts = attempt
		err = r.attempt(ctx, command, attempt, ret)
		if err == nil || ctx.Err() != nil {
			break
		}
		retry, delay := r.config.Retry.ShouldRetry(attempt, err)
		if !retry {
			break
		}
		r.logger.Printf("%v: attempt %d failed: %v, retrying in %s", command.Name, attempt, err, delay)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
		}
		if ctx.Err() != nil {
			break
		}
	}
	tracing.EndSpan(span, err)
	outcome := status.Success
	if err != nil {
		outcome = status.Failure
	}
	ret.Complete(clock.Now(), outcome, err)
	return ret
}

// attempt runs one action under the command timeout. The action writes into a scratch
// result so an abandoned action can not race with the recorded one.
func (r *run) attempt(ctx context.Context, command *Command, attempt int, ret *status.CommandResult) error {
	timeout := command.Timeout
	if timeout <= 0 {
		timeout = clock.Ms(r.config.CommandTimeoutMs, 10*time.Minute)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	scratch := &status.CommandResult{Command: command.Name, Kind: command.Kind, Format: command.Format, Attempts: attempt}
	done := make(chan error, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- fmt.Errorf("command %v panicked: %v", command.Name, p)
			}
		}()
		done <- command.Action(attemptCtx, attempt, scratch)
	}()
	select {
	case err := <-done:
		ret.Verdict, ret.Profile = scratch.Verdict, scratch.Profile
		if err != nil && ctx.Err() == nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
			return &TimeoutError{Command: command.Name, Timeout: timeout}
		}
		return err
	case <-attemptCtx.Done():
		r.await(command.Name, done)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &TimeoutError{Command: command.Name, Timeout: timeout}
	}
}

func (r *run) grace() time.Duration {
	return clock.Ms(r.config.GraceMs, defaultGrace)
}

// await gives an action that outlived its context the grace period to return, so a
// retry never overlaps it; an action still running afterwards is tracked until Run returns.
func (r *run) await(name string, done <-chan error) {
	grace := r.grace()
	select {
	case <-done:
		return
	case <-time.After(grace):
	}
	r.logger.Printf("%v: action still running %s after its context ended", name, grace)
	r.abandoned.Add(1)
	go func() {
		defer r.abandoned.Done()
		<-done
	}()
}

func (r *run) awaitAbandoned() {
	finished := make(chan struct{})
	go func() {
		r.abandoned.Wait()
		close(finished)
	}()
	select {
	case <-finished:
	case <-time.After(r.grace()):
		r.logger.Printf("abandoned actions did not return within %s", r.grace())
	}
}

func (r *run) complete(ctx context.Context, c *completion) {
	r.mu.Lock()
	delete(r.queued, c.name)
	r.mu.Unlock()
	if !c.started {
		r.skip(ctx, c.name, reasonCancelled)
		return
	}
	to := StateSuccess
	delta := progress.Delta{Running: -1, Completed: 1}
	if c.result.Status != status.Success {
		to = StateFailed
		delta = progress.Delta{Running: -1, Failed: 1}
	}
	r.mu.Lock()
	err := Transition(r.state, c.name, StateRunning, to)
	r.mu.Unlock()
	if err != nil {
		r.logger.Printf("%v", err)
	}
	progress.UpdateCtx(ctx, delta)
	r.record(ctx, c.result)
	if to == StateFailed {
		r.skipDownstream(ctx, c.name, fmt.Sprintf("upstream %v failed", c.name))
	}
}

// skip marks a pending command SKIPPED and propagates to its dependents.
func (r *run) skip(ctx context.Context, name, reason string) {
	r.mu.Lock()
	err := Transition(r.state, name, StatePending, StateSkipped)
	r.mu.Unlock()
	if err != nil {
		r.logger.Printf("%v", err)
		return
	}
	r.recordSkip(ctx, name, reason)
	r.skipDownstream(ctx, name, fmt.Sprintf("upstream %v skipped", name))
}

func (r *run) skipDownstream(ctx context.Context, name, reason string) {
	r.mu.Lock()
	skipped, err := SkipDownstream(r.graph, r.state, name)
	r.mu.Unlock()
	if err != nil {
		r.logger.Printf("%v", err)
	}
	for _, item := range skipped {
		r.recordSkip(ctx, item, reason)
	}
}

func (r *run) skipPending(ctx context.Context, reason string) {
	for _, name := range r.graph.Order() {
		r.mu.Lock()
		pending := r.state[name] == StatePending
		r.mu.Unlock()
		if pending {
			r.skip(ctx, name, reason)
		}
	}
}

func (r *run) recordSkip(ctx context.Context, name, reason string) {
	command, _ := r.graph.Command(name)
	now := clock.Now()
	item := &status.CommandResult{Command: name, Kind: command.Kind, Format: command.Format}
	item.Complete(now, status.Skipped, errors.New(reason))
	progress.UpdateCtx(ctx, progress.Delta{Pending: -1, Skipped: 1})
	r.record(ctx, item)
}

func (r *run) record(ctx context.Context, item *status.CommandResult) {
	r.results[item.Command] = item
	if item.Error != "" {
		r.logger.Printf("%v: %v (%v)", item.Command, item.Status, item.Error)
	} else {
		r.logger.Printf("%v: %v in %dms", item.Command, item.Status, item.DurationMs)
	}
	if r.journal != nil {
		if err := r.journal.Save(ctx, item); err != nil {
			r.logger.Printf("failed to journal %v: %v", item.Command, err)
		}
	}
	for _, listener := range r.listeners {
		listener.OnResult(ctx, item.Clone())
	}
}

// New creates an executor.
func New(options ...Option) *Executor {
	ret := &Executor{config: DefaultConfig(), logger: log.Default()}
	for _, opt := range options {
		opt(ret)
	}
	if ret.logger == nil {
		ret.logger = log.Default()
	}
	return ret
}

var _ messaging.Queue[dispatch] = (*memory.Queue[dispatch])(nil)
