package pipeline

import "fmt"

// State is the runtime execution state of a command.
type State string

const (
	StatePending State = "PENDING"
	StateRunning State = "RUNNING"
	StateSuccess State = "SUCCESS"
	StateFailed  State = "FAILED"
	StateSkipped State = "SKIPPED"
)

// IsTerminal reports whether the state is terminal.
func IsTerminal(s State) bool {
	switch s {
	case StateSuccess, StateFailed, StateSkipped:
		return true
	}
	return false
}

// ExecutionState maps command name to its current state.
type ExecutionState map[string]State

// NewExecutionState returns all graph commands in PENDING state.
func NewExecutionState(g *Graph) ExecutionState {
	ret := make(ExecutionState, len(g.nodes))
	for _, node := range g.nodes {
		ret[node.Name] = StatePending
	}
	return ret
}

// Transition performs a validated transition; it mutates state only when the transition is valid.
func Transition(state ExecutionState, name string, from, to State) error {
	cur, ok := state[name]
	if !ok {
		return fmt.Errorf("unknown command in state: %q", name)
	}
	if cur != from {
		return fmt.Errorf("invalid transition for %q: expected %s, got %s", name, from, cur)
	}
	if !isAllowedTransition(from, to) {
		return fmt.Errorf("disallowed transition for %q: %s -> %s", name, from, to)
	}
	state[name] = to
	return nil
}

func isAllowedTransition(from, to State) bool {
	switch from {
	case StatePending:
		return to == StateRunning || to == StateSkipped
	case StateRunning:
		return to == StateSuccess || to == StateFailed
	}
	return false
}

// SkipDownstream transitively marks PENDING dependents of name as SKIPPED and returns
// them in canonical order.
func SkipDownstream(g *Graph, state ExecutionState, name string) ([]string, error) {
	start, ok := g.index[name]
	if !ok {
		return nil, fmt.Errorf("unknown command: %q", name)
	}
	visited := make([]bool, len(g.nodes))
	visited[start] = true
	queue := append([]int(nil), g.outgoing[start]...)
	var skipped []int
	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]
		if visited[u] {
			continue
		}
		visited[u] = true
		node := g.nodes[u]
		switch state[node.Name] {
		case StatePending:
			state[node.Name] = StateSkipped
			skipped = append(skipped, u)
		case StateRunning:
			return nil, fmt.Errorf("invariant violation: downstream command %q is RUNNING", node.Name)
		}
		queue = append(queue, g.outgoing[u]...)
	}
	return g.names(skipped), nil
}

// Ready returns PENDING commands whose dependencies all succeeded, ordered by (depth, name).
func Ready(g *Graph, state ExecutionState) []string {
	var ready []int
	for i, node := range g.nodes {
		if state[node.Name] != StatePending {
			continue
		}
		depsOK := true
		for _, parent := range g.incoming[i] {
			if state[g.nodes[parent].Name] != StateSuccess {
				depsOK = false
				break
			}
		}
		if depsOK {
			ready = append(ready, i)
		}
	}
	return g.names(ready)
}
