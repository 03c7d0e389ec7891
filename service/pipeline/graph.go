package pipeline

import (
	"sort"
)

// Graph is an immutable, validated command DAG. Commands are held in canonical
// order: topological depth ascending, then name. It is safe for concurrent reads.
type Graph struct {
	nodes    []*Command
	index    map[string]int
	outgoing [][]int
	incoming [][]int
	depth    []int
}

// NewGraph builds and validates a command graph. It rejects empty or duplicate names,
// missing actions, unknown or duplicate dependencies, self-loops and cycles.
func NewGraph(commands ...*Command) (*Graph, error) {
	if len(commands) == 0 {
		return nil, invalidf("no commands")
	}
	byName := make(map[string]*Command, len(commands))
	names := make([]string, 0, len(commands))
	for _, command := range commands {
		if command == nil {
			return nil, invalidf("command was nil")
		}
		if command.Name == "" {
			return nil, invalidf("command name is required")
		}
		if _, ok := byName[command.Name]; ok {
			return nil, invalidf("duplicate command name: %q", command.Name)
		}
		if command.Action == nil {
			return nil, invalidf("command %q: action is required", command.Name)
		}
		byName[command.Name] = command
		names = append(names, command.Name)
	}
	sort.Strings(names)
	position := make(map[string]int, len(names))
	for i, name := range names {
		position[name] = i
	}
	outgoing := make([][]int, len(names))
	incoming := make([][]int, len(names))
	for i, name := range names {
		seen := map[string]bool{}
		for _, dep := range byName[name].DependsOn {
			if dep == name {
				return nil, invalidf("self-loop: %q", name)
			}
			from, ok := position[dep]
			if !ok {
				return nil, invalidf("command %q depends on unknown command %q", name, dep)
			}
			if seen[dep] {
				return nil, invalidf("duplicate dependency: %q -> %q", dep, name)
			}
			seen[dep] = true
			outgoing[from] = append(outgoing[from], i)
			incoming[i] = append(incoming[i], from)
		}
	}
	order := topoOrder(outgoing, incoming)
	if len(order) != len(names) {
		return nil, cycleError(findCycle(names, outgoing))
	}
	depth := make([]int, len(names))
	for _, u := range order {
		for _, p := range incoming[u] {
			if depth[p]+1 > depth[u] {
				depth[u] = depth[p] + 1
			}
		}
	}
	canonical := make([]int, len(names))
	for i := range canonical {
		canonical[i] = i
	}
	sort.SliceStable(canonical, func(i, j int) bool {
		a, b := canonical[i], canonical[j]
		if depth[a] != depth[b] {
			return depth[a] < depth[b]
		}
		return names[a] < names[b]
	})
	remap := make([]int, len(names))
	for to, from := range canonical {
		remap[from] = to
	}
	g := &Graph{
		nodes:    make([]*Command, len(names)),
		index:    make(map[string]int, len(names)),
		outgoing: make([][]int, len(names)),
		incoming: make([][]int, len(names)),
		depth:    make([]int, len(names)),
	}
	for from, to := range remap {
		g.nodes[to] = byName[names[from]]
		g.index[names[from]] = to
		g.depth[to] = depth[from]
		for _, v := range outgoing[from] {
			g.outgoing[to] = append(g.outgoing[to], remap[v])
		}
		for _, v := range incoming[from] {
			g.incoming[to] = append(g.incoming[to], remap[v])
		}
	}
	for i := range g.nodes {
		sort.Ints(g.outgoing[i])
		sort.Ints(g.incoming[i])
	}
	return g, nil
}

// Len returns number of commands.
func (g *Graph) Len() int { return len(g.nodes) }

// Command returns a command by name.
func (g *Graph) Command(name string) (*Command, bool) {
	i, ok := g.index[name]
	if !ok {
		return nil, false
	}
	return g.nodes[i], true
}

// Commands returns commands in canonical order.
func (g *Graph) Commands() []*Command {
	return append([]*Command(nil), g.nodes...)
}

// Order returns command names in canonical order.
func (g *Graph) Order() []string {
	ret := make([]string, len(g.nodes))
	for i, node := range g.nodes {
		ret[i] = node.Name
	}
	return ret
}

// Depth returns the longest path length from any root to the command.
func (g *Graph) Depth(name string) (int, bool) {
	i, ok := g.index[name]
	if !ok {
		return 0, false
	}
	return g.depth[i], true
}

// Dependencies returns direct upstream command names in canonical order.
func (g *Graph) Dependencies(name string) []string {
	i, ok := g.index[name]
	if !ok {
		return nil
	}
	return g.names(g.incoming[i])
}

func (g *Graph) names(indexes []int) []string {
	if len(indexes) == 0 {
		return nil
	}
	sorted := append([]int(nil), indexes...)
	sort.Ints(sorted)
	ret := make([]string, len(sorted))
	for i, index := range sorted {
		ret[i] = g.nodes[index].Name
	}
	return ret
}

// topoOrder returns Kahn's topological order; it is shorter than the node count when a cycle exists.
func topoOrder(outgoing, incoming [][]int) []int {
	indeg := make([]int, len(incoming))
	var queue []int
	for i := range incoming {
		indeg[i] = len(incoming[i])
		if indeg[i] == 0 {
			queue = append(queue, i)
		}
	}
	out := make([]int, 0, len(indeg))
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		out = append(out, n)
		for _, m := range outgoing[n] {
			indeg[m]--
			if indeg[m] == 0 {
				queue = append(queue, m)
			}
		}
	}
	return out
}

// findCycle extracts one cycle path with a deterministic DFS in name order.
func findCycle(names []string, outgoing [][]int) []string {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make([]int, len(names))
	parent := make([]int, len(names))
	for i := range parent {
		parent[i] = -1
	}
	var cycle []int
	var dfs func(u int) bool
	dfs = func(u int) bool {
		color[u] = gray
		next := append([]int(nil), outgoing[u]...)
		sort.Ints(next)
		for _, v := range next {
			if color[v] == white {
				parent[v] = u
				if dfs(v) {
					return true
				}
				continue
			}
			if color[v] == gray {
				cycle = append(cycle, v)
				for cur := u; cur != -1 && cur != v; cur = parent[cur] {
					cycle = append(cycle, cur)
				}
				cycle = append(cycle, v)
				return true
			}
		}
		color[u] = black
		return false
	}
	for i := range names {
		if color[i] == white && dfs(i) {
			break
		}
	}
	ret := make([]string, len(cycle))
	for i, index := range cycle {
		ret[len(cycle)-1-i] = names[index]
	}
	return ret
}
