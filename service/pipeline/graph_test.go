package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/navigator/model/status"
)

func nop(context.Context, int, *status.CommandResult) error { return nil }

func cmd(name string, deps ...string) *Command {
	return &Command{Name: name, DependsOn: deps, Action: nop}
}

func TestNewGraph(t *testing.T) {
	testCases := []struct {
		description string
		commands    []*Command
		expectOrder []string
		expectErr   error
	}{
		{
			description: "canonical order by depth then name",
			commands:    []*Command{cmd("verify:onnx", "convert:onnx"), cmd("convert:trt-fp16", "convert:onnx"), cmd("convert:onnx"), cmd("convert:torchscript"), cmd("verify:trt-fp16", "convert:trt-fp16")},
			expectOrder: []string{"convert:onnx", "convert:torchscript", "convert:trt-fp16", "verify:onnx", "verify:trt-fp16"},
		},
		{description: "empty", expectErr: ErrInvalidGraph},
		{description: "empty name", commands: []*Command{cmd("")}, expectErr: ErrInvalidGraph},
		{description: "duplicate", commands: []*Command{cmd("a"), cmd("a")}, expectErr: ErrInvalidGraph},
		{description: "unknown dependency", commands: []*Command{cmd("a", "b")}, expectErr: ErrInvalidGraph},
		{description: "self loop", commands: []*Command{cmd("a", "a")}, expectErr: ErrInvalidGraph},
		{description: "duplicate dependency", commands: []*Command{cmd("a"), cmd("b", "a", "a")}, expectErr: ErrInvalidGraph},
		{description: "missing action", commands: []*Command{{Name: "a"}}, expectErr: ErrInvalidGraph},
		{description: "cycle", commands: []*Command{cmd("a", "c"), cmd("b", "a"), cmd("c", "b"), cmd("d")}, expectErr: ErrCycleFound},
	}
	for _, testCase := range testCases {
		graph, err := NewGraph(testCase.commands...)
		if testCase.expectErr != nil {
			assert.ErrorIs(t, err, testCase.expectErr, testCase.description)
			continue
		}
		require.NoError(t, err, testCase.description)
		assert.Equal(t, testCase.expectOrder, graph.Order(), testCase.description)
	}
}

func TestNewGraph_CyclePath(t *testing.T) {
	_, err := NewGraph(cmd("a", "b"), cmd("b", "a"))
	graphErr := &GraphError{}
	require.True(t, errors.As(err, &graphErr))
	assert.Equal(t, "cycle detected: cycle: a -> b -> a", err.Error())
}

func TestGraph_Depth(t *testing.T) {
	graph, err := NewGraph(cmd("a"), cmd("b", "a"), cmd("c", "a", "b"))
	require.NoError(t, err)
	depth, ok := graph.Depth("c")
	assert.True(t, ok)
	assert.Equal(t, 2, depth)
	assert.Equal(t, []string{"a", "b"}, graph.Dependencies("c"))
	_, ok = graph.Depth("x")
	assert.False(t, ok)
}

func TestTransition(t *testing.T) {
	graph, err := NewGraph(cmd("a"), cmd("b", "a"), cmd("c", "b"), cmd("d"))
	require.NoError(t, err)
	testCases := []struct {
		description string
		from, to    State
		prepare     State
		expectErr   bool
	}{
		{description: "pending to running", prepare: StatePending, from: StatePending, to: StateRunning},
		{description: "pending to skipped", prepare: StatePending, from: StatePending, to: StateSkipped},
		{description: "running to success", prepare: StateRunning, from: StateRunning, to: StateSuccess},
		{description: "running to failed", prepare: StateRunning, from: StateRunning, to: StateFailed},
		{description: "pending to success", prepare: StatePending, from: StatePending, to: StateSuccess, expectErr: true},
		{description: "terminal is final", prepare: StateSuccess, from: StateSuccess, to: StateRunning, expectErr: true},
		{description: "stale from", prepare: StateRunning, from: StatePending, to: StateRunning, expectErr: true},
	}
	for _, testCase := range testCases {
		state := NewExecutionState(graph)
		state["a"] = testCase.prepare
		err := Transition(state, "a", testCase.from, testCase.to)
		if testCase.expectErr {
			assert.Error(t, err, testCase.description)
			assert.Equal(t, testCase.prepare, state["a"], testCase.description)
			continue
		}
		assert.NoError(t, err, testCase.description)
		assert.Equal(t, testCase.to, state["a"], testCase.description)
	}
	assert.Error(t, Transition(NewExecutionState(graph), "x", StatePending, StateRunning))
}

func TestSkipDownstream(t *testing.T) {
	graph, err := NewGraph(cmd("a"), cmd("b", "a"), cmd("c", "b"), cmd("d"))
	require.NoError(t, err)
	state := NewExecutionState(graph)
	assert.Equal(t, []string{"a", "d"}, Ready(graph, state))
	state["a"] = StateFailed
	skipped, err := SkipDownstream(graph, state, "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c"}, skipped)
	assert.Equal(t, StatePending, state["d"])
	assert.Equal(t, []string{"d"}, Ready(graph, state))
}
