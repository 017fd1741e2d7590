package fbd

import (
	"slices"

	"github.com/roach88/l5xst/internal/source"
)

// edge is a dependency From -> To between arena indices.
type edge struct {
	from, to int
	dropped  bool
}

// graph is the dependency view of one sheet.
type graph struct {
	n        int
	stateful []bool
	edges    []edge
}

func newGraph(s *source.Sheet) *graph {
	g := &graph{n: len(s.Nodes), stateful: make([]bool, len(s.Nodes))}
	for i := range s.Nodes {
		g.stateful[i] = s.Nodes[i].Stateful()
	}
	for _, e := range s.Edges() {
		g.edges = append(g.edges, edge{from: e.From, to: e.To})
	}
	return g
}

// schedule returns every node in execution order. When a cycle cannot be
// broken at a stateful node, it returns the members of each such cycle in
// declaration order instead.
func (g *graph) schedule() ([]int, [][]int) {
	for {
		order, rest := g.kahn()
		if len(rest) == 0 {
			return order, nil
		}
		var bad [][]int
		broke := false
		for _, scc := range g.sccs(rest) {
			if !g.cyclic(scc) {
				continue
			}
			if g.breakAt(scc) {
				broke = true
				continue
			}
			bad = append(bad, scc)
		}
		if len(bad) > 0 {
			return nil, bad
		}
		if !broke {
			// Nodes left over by Kahn always contain a cycle.
			panic("fbd: unscheduled nodes without a cycle")
		}
	}
}

// kahn orders the nodes it can and returns the ones left on cycles or
// downstream of them.
func (g *graph) kahn() (order, rest []int) {
	indeg := make([]int, g.n)
	succ := make([][]int, g.n)
	for _, e := range g.edges {
		if e.dropped {
			continue
		}
		indeg[e.to]++
		succ[e.from] = append(succ[e.from], e.to)
	}
	var ready []int
	for i := 0; i < g.n; i++ {
		if indeg[i] == 0 {
			ready = append(ready, i)
		}
	}
	done := make([]bool, g.n)
	for len(ready) > 0 {
		v := ready[0]
		ready = ready[1:]
		done[v] = true
		order = append(order, v)
		for _, w := range succ[v] {
			indeg[w]--
			if indeg[w] == 0 {
				pos, _ := slices.BinarySearch(ready, w)
				ready = slices.Insert(ready, pos, w)
			}
		}
	}
	for i := 0; i < g.n; i++ {
		if !done[i] {
			rest = append(rest, i)
		}
	}
	return order, rest
}

// sccs finds the strongly connected components among nodes using Tarjan's
// algorithm. Each component is sorted by declaration index.
func (g *graph) sccs(nodes []int) [][]int {
	in := make(map[int]bool, len(nodes))
	for _, v := range nodes {
		in[v] = true
	}
	succ := make(map[int][]int)
	for _, e := range g.edges {
		if !e.dropped && in[e.from] && in[e.to] {
			succ[e.from] = append(succ[e.from], e.to)
		}
	}

	var (
		index   = 0
		stack   []int
		indices = make(map[int]int)
		lowlink = make(map[int]int)
		onStack = make(map[int]bool)
		out     [][]int
	)
	var strongConnect func(int)
	strongConnect = func(v int) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range succ[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		if lowlink[v] == indices[v] {
			var scc []int
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			slices.Sort(scc)
			out = append(out, scc)
		}
	}
	// nodes is in declaration order, which keeps the result deterministic.
	for _, v := range nodes {
		if _, visited := indices[v]; !visited {
			strongConnect(v)
		}
	}
	slices.SortFunc(out, func(a, b []int) int { return a[0] - b[0] })
	return out
}

// cyclic reports whether a component is a real cycle: more than one node,
// or one node wired to itself.
func (g *graph) cyclic(scc []int) bool {
	if len(scc) > 1 {
		return true
	}
	for _, e := range g.edges {
		if !e.dropped && e.from == scc[0] && e.to == scc[0] {
			return true
		}
	}
	return false
}

// breakAt drops the edges from inside scc into its earliest-declared
// stateful node. It reports false when scc has no stateful node.
func (g *graph) breakAt(scc []int) bool {
	s := -1
	for _, v := range scc {
		if g.stateful[v] {
			s = v
			break
		}
	}
	if s < 0 {
		return false
	}
	for i := range g.edges {
		e := &g.edges[i]
		if !e.dropped && e.to == s && slices.Contains(scc, e.from) {
			e.dropped = true
		}
	}
	return true
}
