package depgraph

import (
	"sort"
)

// Analyze computes metrics over the rendered view of g.
func Analyze(g *Graph) Stats {
	nodes := g.Nodes()
	edges := g.ViewEdges()

	s := Stats{
		TotalNodes:       len(nodes),
		TotalEdges:       len(edges),
		ItemCount:        g.ItemCount(),
		URLCount:         len(g.URLs),
		PlaceholderCount: len(g.Placeholders()),
		GroupCounts:      make(map[Group]int),
	}
	for _, n := range nodes {
		s.GroupCounts[n.Group]++
	}

	fanOut := make(map[string]int)
	fanIn := make(map[string]int)
	for _, e := range edges {
		fanOut[e.Source]++
		fanIn[e.Target]++
	}

	// Walk nodes in view order so ties go to the earliest node.
	for _, n := range nodes {
		if c := fanOut[n.ID]; c > s.MaxFanOut {
			s.MaxFanOut = c
			s.HotspotNode = n.ID
		}
		if c := fanIn[n.ID]; c > s.MaxFanIn {
			s.MaxFanIn = c
		}
	}

	s.ConnectedComponents = countComponents(nodes, edges)
	s.CyclicDeps = detectCycles(edges)
	return s
}

// countComponents counts weakly connected components via union-find.
func countComponents(nodes []Node, edges []Edge) int {
	parent := make(map[string]string)
	var find func(string) string
	find = func(x string) string {
		if parent[x] == "" {
			parent[x] = x
		}
		if parent[x] != x {
			parent[x] = find(parent[x])
		}
		return parent[x]
	}
	union := func(a, b string) {
		fa, fb := find(a), find(b)
		if fa != fb {
			parent[fa] = fb
		}
	}

	for _, n := range nodes {
		find(n.ID)
	}
	for _, e := range edges {
		union(e.Source, e.Target)
	}

	roots := make(map[string]bool)
	for _, n := range nodes {
		roots[find(n.ID)] = true
	}
	return len(roots)
}

// detectCycles finds item cycles, such as a map whose payload points back at
// the application that embeds it.
func detectCycles(edges []Edge) [][]string {
	adj := make(map[string][]string)
	vertices := make(map[string]bool)
	for _, e := range edges {
		adj[e.Source] = append(adj[e.Source], e.Target)
		vertices[e.Source] = true
		vertices[e.Target] = true
	}

	var cycles [][]string
	state := make(map[string]int) // 0=unvisited, 1=in-progress, 2=done
	path := make([]string, 0)

	var dfs func(v string)
	dfs = func(v string) {
		if state[v] == 2 {
			return
		}
		if state[v] == 1 {
			cycle := make([]string, 0)
			for i := len(path) - 1; i >= 0; i-- {
				cycle = append(cycle, path[i])
				if path[i] == v {
					break
				}
			}
			for i, j := 0, len(cycle)-1; i < j; i, j = i+1, j-1 {
				cycle[i], cycle[j] = cycle[j], cycle[i]
			}
			cycles = append(cycles, cycle)
			return
		}
		state[v] = 1
		path = append(path, v)
		for _, next := range adj[v] {
			dfs(next)
		}
		path = path[:len(path)-1]
		state[v] = 2
	}

	sorted := make([]string, 0, len(vertices))
	for v := range vertices {
		sorted = append(sorted, v)
	}
	sort.Strings(sorted)
	for _, v := range sorted {
		if state[v] == 0 {
			dfs(v)
		}
	}
	return cycles
}

// Parents maps each edge target to its distinct sources in first-seen order.
func Parents(g *Graph) map[string][]string {
	out := make(map[string][]string)
	seen := make(map[Edge]bool)
	for _, e := range g.Edges {
		if seen[e] {
			continue
		}
		seen[e] = true
		out[e.Target] = append(out[e.Target], e.Source)
	}
	return out
}
