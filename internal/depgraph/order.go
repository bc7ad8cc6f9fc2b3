package depgraph

import "sort"

const (
	unvisited uint8 = iota
	inProgress
	done
)

type frame struct {
	idx  int
	deps []int
	next int
}

// GenerationOrder returns every artifact path so that each one comes after
// all of its present dependencies. Missing dependencies are skipped unless the
// graph runs under MissingError. A cycle yields *CyclicDependencyError.
//
// Roots and edges are walked in path order, so the result is deterministic
// for a given graph.
func (g *Graph) GenerationOrder() ([]string, error) {
	if g.policy == MissingError {
		if missing := g.MissingDependencies(); len(missing) > 0 {
			return nil, &MissingDependencyError{Missing: missing}
		}
	}

	color := make([]uint8, len(g.nodes))
	order := make([]string, 0, len(g.nodes))
	stack := make([]frame, 0, 16)

	for _, root := range g.sortedIndices() {
		if color[root] != unvisited {
			continue
		}
		color[root] = inProgress
		stack = append(stack[:0], frame{idx: root, deps: g.resolved(root)})

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			if top.next < len(top.deps) {
				dep := top.deps[top.next]
				top.next++
				switch color[dep] {
				case unvisited:
					color[dep] = inProgress
					stack = append(stack, frame{idx: dep, deps: g.resolved(dep)})
				case inProgress:
					return nil, &CyclicDependencyError{Cycle: g.cycleFrom(stack, dep)}
				}
				continue
			}
			color[top.idx] = done
			order = append(order, g.nodes[top.idx].art.Path)
			stack = stack[:len(stack)-1]
		}
	}
	return order, nil
}

// cycleFrom cuts the in-progress stack at the revisited node and closes the loop.
func (g *Graph) cycleFrom(stack []frame, revisited int) []string {
	start := 0
	for i, f := range stack {
		if f.idx == revisited {
			start = i
			break
		}
	}
	cycle := make([]string, 0, len(stack)-start+1)
	for _, f := range stack[start:] {
		cycle = append(cycle, g.nodes[f.idx].art.Path)
	}
	return append(cycle, g.nodes[revisited].art.Path)
}

// Levels groups artifacts into batches with Kahn's algorithm: every artifact in
// level n depends only on artifacts from levels < n. Paths inside a level are
// sorted.
func (g *Graph) Levels() ([][]string, error) {
	if g.policy == MissingError {
		if missing := g.MissingDependencies(); len(missing) > 0 {
			return nil, &MissingDependencyError{Missing: missing}
		}
	}

	indegree := make([]int, len(g.nodes))
	dependents := make([][]int, len(g.nodes))
	for i := range g.nodes {
		for _, dep := range g.resolved(i) {
			indegree[i]++
			dependents[dep] = append(dependents[dep], i)
		}
	}

	var current []int
	for i, d := range indegree {
		if d == 0 {
			current = append(current, i)
		}
	}

	levels := make([][]string, 0, 4)
	placed := 0
	for len(current) > 0 {
		names := make([]string, 0, len(current))
		var next []int
		for _, idx := range current {
			names = append(names, g.nodes[idx].art.Path)
			for _, by := range dependents[idx] {
				indegree[by]--
				if indegree[by] == 0 {
					next = append(next, by)
				}
			}
		}
		sort.Strings(names)
		levels = append(levels, names)
		placed += len(current)
		current = next
	}

	if placed < len(g.nodes) {
		// leftover nodes sit on or behind a cycle; let the DFS name it
		if _, err := g.GenerationOrder(); err != nil {
			return nil, err
		}
	}
	return levels, nil
}
