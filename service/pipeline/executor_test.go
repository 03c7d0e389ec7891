package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/navigator/model/status"
	"github.com/viant/navigator/policy"
	"github.com/viant/navigator/progress"
	"github.com/viant/navigator/service/dao/result"
)

var quiet = log.New(io.Discard, "", 0)

func action(err error) Action {
	return func(ctx context.Context, attempt int, result *status.CommandResult) error {
		return err
	}
}

func statuses(res *Result) map[string]status.Status {
	ret := map[string]status.Status{}
	for _, item := range res.Results {
		ret[item.Command] = item.Status
	}
	return ret
}

func TestExecutor_Run(t *testing.T) {
	boom := errors.New("boom")
	testCases := []struct {
		description string
		commands    []*Command
		policy      *policy.Policy
		expect      map[string]status.Status
	}{
		{
			description: "all succeed",
			commands: []*Command{
				{Name: "convert:a", Action: action(nil)},
				{Name: "verify:a", DependsOn: []string{"convert:a"}, Action: action(nil)},
			},
			expect: map[string]status.Status{"convert:a": status.Success, "verify:a": status.Success},
		},
		{
			description: "failure isolation",
			commands: []*Command{
				{Name: "convert:a", Action: action(boom)},
				{Name: "verify:a", DependsOn: []string{"convert:a"}, Action: action(nil)},
				{Name: "profile:a", DependsOn: []string{"verify:a"}, Action: action(nil)},
				{Name: "convert:b", Action: action(nil)},
				{Name: "verify:b", DependsOn: []string{"convert:b"}, Action: action(nil)},
				{Name: "convert:c", Action: action(nil)},
			},
			expect: map[string]status.Status{
				"convert:a": status.Failure, "verify:a": status.Skipped, "profile:a": status.Skipped,
				"convert:b": status.Success, "verify:b": status.Success, "convert:c": status.Success,
			},
		},
		{
			description: "policy blocks branch",
			commands: []*Command{
				{Name: "convert:a", Action: action(nil)},
				{Name: "profile:a", DependsOn: []string{"convert:a"}, Action: action(nil)},
				{Name: "report", DependsOn: []string{"profile:a"}, Action: action(nil)},
			},
			policy: &policy.Policy{BlockList: []string{"profile:*"}},
			expect: map[string]status.Status{"convert:a": status.Success, "profile:a": status.Skipped, "report": status.Skipped},
		},
		{
			description: "panic is a failure",
			commands: []*Command{
				{Name: "convert:a", Action: func(context.Context, int, *status.CommandResult) error { panic("bad") }},
				{Name: "convert:b", Action: action(nil)},
			},
			expect: map[string]status.Status{"convert:a": status.Failure, "convert:b": status.Success},
		},
	}
	for _, testCase := range testCases {
		graph, err := NewGraph(testCase.commands...)
		require.NoError(t, err, testCase.description)
		journal := result.New()
		executor := New(WithJournal(journal), WithPolicy(testCase.policy), WithLogger(quiet))
		res, err := executor.Run(context.Background(), graph)
		require.NoError(t, err, testCase.description)
		assert.False(t, res.Cancelled, testCase.description)
		assert.Equal(t, testCase.expect, statuses(res), testCase.description)
		journaled, err := journal.List(context.Background())
		require.NoError(t, err, testCase.description)
		assert.Len(t, journaled, len(testCase.commands), testCase.description)
		assert.Equal(t, graph.Order(), func() []string {
			var names []string
			for _, item := range res.Results {
				names = append(names, item.Command)
			}
			return names
		}(), testCase.description)
	}
}

func TestExecutor_SkipReason(t *testing.T) {
	graph, err := NewGraph(
		&Command{Name: "convert:onnx", Action: action(errors.New("exporter crashed"))},
		&Command{Name: "verify:onnx", DependsOn: []string{"convert:onnx"}, Action: action(nil)},
	)
	require.NoError(t, err)
	res, err := New(WithLogger(quiet)).Run(context.Background(), graph)
	require.NoError(t, err)
	assert.Equal(t, "exporter crashed", res.Lookup("convert:onnx").Error)
	assert.Equal(t, "upstream convert:onnx failed", res.Lookup("verify:onnx").Error)
	assert.Equal(t, 1, res.Lookup("convert:onnx").Attempts)
	assert.Equal(t, 0, res.Lookup("verify:onnx").Attempts)
}

func TestExecutor_LogsDeadLetters(t *testing.T) {
	graph, err := NewGraph(
		&Command{Name: "convert:onnx", Action: action(errors.New("exporter crashed"))},
		&Command{Name: "convert:safetensors", Action: action(nil)},
	)
	require.NoError(t, err)
	buf := &bytes.Buffer{}
	_, err = New(WithLogger(log.New(buf, "", 0))).Run(context.Background(), graph)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "1 commands did not succeed: [convert:onnx]")
}

func TestExecutor_Parallel(t *testing.T) {
	var running, peak int32
	slow := func(ctx context.Context, attempt int, result *status.CommandResult) error {
		current := atomic.AddInt32(&running, 1)
		for {
			old := atomic.LoadInt32(&peak)
			if current <= old || atomic.CompareAndSwapInt32(&peak, old, current) {
				break
			}
		}
		time.Sleep(50 * time.Millisecond)
		atomic.AddInt32(&running, -1)
		return nil
	}
	var commands []*Command
	for i := 0; i < 4; i++ {
		commands = append(commands, &Command{Name: fmt.Sprintf("convert:%d", i), Action: slow})
	}
	graph, err := NewGraph(commands...)
	require.NoError(t, err)
	res, err := New(WithConfig(Config{Workers: 2}), WithLogger(quiet)).Run(context.Background(), graph)
	require.NoError(t, err)
	assert.Len(t, res.Results, 4)
	assert.EqualValues(t, 2, atomic.LoadInt32(&peak))
}

func TestExecutor_Retry(t *testing.T) {
	var attempts []int
	var mux sync.Mutex
	flaky := func(ctx context.Context, attempt int, result *status.CommandResult) error {
		mux.Lock()
		attempts = append(attempts, attempt)
		mux.Unlock()
		if attempt < 3 {
			return fmt.Errorf("killed: %w", ErrTransient)
		}
		return nil
	}
	permanentCount := int32(0)
	permanent := func(ctx context.Context, attempt int, result *status.CommandResult) error {
		atomic.AddInt32(&permanentCount, 1)
		return errors.New("unsupported operator")
	}
	graph, err := NewGraph(&Command{Name: "convert:a", Action: flaky}, &Command{Name: "convert:b", Action: permanent})
	require.NoError(t, err)
	config := DefaultConfig()
	config.Retry = &Retry{MaxRetries: 3, DelayMs: 1}
	res, err := New(WithConfig(config), WithLogger(quiet)).Run(context.Background(), graph)
	require.NoError(t, err)
	assert.Equal(t, status.Success, res.Lookup("convert:a").Status)
	assert.Equal(t, 3, res.Lookup("convert:a").Attempts)
	assert.Equal(t, []int{1, 2, 3}, attempts)
	assert.Equal(t, status.Failure, res.Lookup("convert:b").Status)
	assert.EqualValues(t, 1, atomic.LoadInt32(&permanentCount))
}

func TestExecutor_Timeout(t *testing.T) {
	hang := func(ctx context.Context, attempt int, result *status.CommandResult) error {
		<-ctx.Done()
		return ctx.Err()
	}
	var returned int32
	ignoring := func(ctx context.Context, attempt int, result *status.CommandResult) error {
		time.Sleep(300 * time.Millisecond)
		atomic.StoreInt32(&returned, 1)
		return nil
	}
	graph, err := NewGraph(
		&Command{Name: "convert:a", Action: hang, Timeout: 20 * time.Millisecond},
		&Command{Name: "convert:b", Action: ignoring, Timeout: 20 * time.Millisecond},
		&Command{Name: "convert:c", Action: action(nil)},
	)
	require.NoError(t, err)
	res, err := New(WithLogger(quiet)).Run(context.Background(), graph)
	require.NoError(t, err)
	assert.Equal(t, status.Failure, res.Lookup("convert:a").Status)
	assert.Contains(t, res.Lookup("convert:a").Error, "timed out")
	assert.Equal(t, status.Failure, res.Lookup("convert:b").Status)
	assert.Contains(t, res.Lookup("convert:b").Error, "timed out")
	assert.EqualValues(t, 1, atomic.LoadInt32(&returned), "timed out action returned before Run")
	assert.Equal(t, status.Success, res.Lookup("convert:c").Status)
}

func TestExecutor_TimeoutRetryWaitsForAbandonedAttempt(t *testing.T) {
	var running, overlaps int32
	slow := func(ctx context.Context, attempt int, result *status.CommandResult) error {
		if atomic.AddInt32(&running, 1) > 1 {
			atomic.AddInt32(&overlaps, 1)
		}
		defer atomic.AddInt32(&running, -1)
		time.Sleep(100 * time.Millisecond)
		return nil
	}
	graph, err := NewGraph(&Command{Name: "convert:a", Action: slow, Timeout: 20 * time.Millisecond})
	require.NoError(t, err)
	config := DefaultConfig()
	config.Retry = &Retry{MaxRetries: 2}
	res, err := New(WithConfig(config), WithLogger(quiet)).Run(context.Background(), graph)
	require.NoError(t, err)
	assert.Equal(t, status.Failure, res.Lookup("convert:a").Status)
	assert.Equal(t, 3, res.Lookup("convert:a").Attempts)
	assert.EqualValues(t, 0, atomic.LoadInt32(&overlaps))
	assert.EqualValues(t, 0, atomic.LoadInt32(&running))
}

func TestExecutor_Cancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	started := make(chan struct{})
	blocking := func(ctx context.Context, attempt int, result *status.CommandResult) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	}
	graph, err := NewGraph(
		&Command{Name: "convert:a", Action: blocking},
		&Command{Name: "verify:a", DependsOn: []string{"convert:a"}, Action: action(nil)},
	)
	require.NoError(t, err)
	go func() {
		<-started
		cancel()
	}()
	res, err := New(WithLogger(quiet)).Run(ctx, graph)
	require.NoError(t, err)
	assert.True(t, res.Cancelled)
	assert.Equal(t, status.Failure, res.Lookup("convert:a").Status)
	assert.Equal(t, status.Skipped, res.Lookup("verify:a").Status)
}

func TestExecutor_CancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	graph, err := NewGraph(&Command{Name: "convert:a", Action: action(nil)}, &Command{Name: "convert:b", Action: action(nil)})
	require.NoError(t, err)
	res, err := New(WithLogger(quiet)).Run(ctx, graph)
	require.NoError(t, err)
	assert.True(t, res.Cancelled)
	for _, item := range res.Results {
		assert.Equal(t, status.Skipped, item.Status)
		assert.Equal(t, "cancelled", item.Error)
	}
}

func TestExecutor_VerdictAndListener(t *testing.T) {
	var received []string
	listener := ListenerFunc(func(ctx context.Context, result *status.CommandResult) {
		received = append(received, result.Command)
	})
	mismatch := func(ctx context.Context, attempt int, result *status.CommandResult) error {
		result.Verdict = &status.Verdict{Kind: status.VerdictMismatch, MaxAbsDiff: 0.5}
		return errors.New("outputs mismatch")
	}
	graph, err := NewGraph(&Command{Name: "verify:a", Kind: status.KindVerify, Action: mismatch})
	require.NoError(t, err)
	ctx, tracker := progress.WithNewTracker(context.Background(), "run", "model", nil)
	res, err := New(WithListener(listener), WithLogger(quiet)).Run(ctx, graph)
	require.NoError(t, err)
	item := res.Lookup("verify:a")
	assert.Equal(t, status.Failure, item.Status)
	assert.Equal(t, status.VerdictMismatch, item.Verdict.Kind)
	assert.Equal(t, status.KindVerify, item.Kind)
	assert.Equal(t, []string{"verify:a"}, received)
	snapshot := tracker.Snapshot()
	assert.Equal(t, 1, snapshot.FailedCommands)
	assert.Equal(t, 0, snapshot.RunningCommands)
	assert.Equal(t, 0, snapshot.PendingCommands)
}
