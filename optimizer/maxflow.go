// Copyright 2026 The Kishu Authors
// This file is part of Kishu.
//
// Kishu is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Kishu is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with Kishu. If not, see <http://www.gnu.org/licenses/>.

package optimizer

// The max-flow solver is hand-rolled here: a textbook Edmonds-Karp (BFS
// augmenting paths), adequate for the small per-commit networks (one node
// per candidate CE) this Optimizer ever builds.

const flowInf = 1 << 60

type edge struct {
	to, rev int
	cap     int64
}

type flowGraph struct {
	nodes [][]edge
}

func newFlowGraph(n int) *flowGraph {
	return &flowGraph{nodes: make([][]edge, n)}
}

func (g *flowGraph) addEdge(from, to int, cap int64) {
	g.nodes[from] = append(g.nodes[from], edge{to: to, rev: len(g.nodes[to]), cap: cap})
	g.nodes[to] = append(g.nodes[to], edge{to: from, rev: len(g.nodes[from]) - 1, cap: 0})
}

// maxFlow runs Edmonds-Karp from s to t and returns the flow value. The
// residual graph is left in place afterward so minCutSourceSide can find
// the S-reachable set.
func (g *flowGraph) maxFlow(s, t int) int64 {
	var total int64
	for {
		parent := make([]int, len(g.nodes))
		parentEdge := make([]int, len(g.nodes))
		for i := range parent {
			parent[i] = -1
		}
		parent[s] = s
		queue := []int{s}
		for len(queue) > 0 && parent[t] == -1 {
			u := queue[0]
			queue = queue[1:]
			for i, e := range g.nodes[u] {
				if e.cap > 0 && parent[e.to] == -1 {
					parent[e.to] = u
					parentEdge[e.to] = i
					queue = append(queue, e.to)
				}
			}
		}
		if parent[t] == -1 {
			break
		}
		bottleneck := int64(flowInf)
		for v := t; v != s; {
			u := parent[v]
			e := g.nodes[u][parentEdge[v]]
			if e.cap < bottleneck {
				bottleneck = e.cap
			}
			v = u
		}
		for v := t; v != s; {
			u := parent[v]
			idx := parentEdge[v]
			g.nodes[u][idx].cap -= bottleneck
			rev := g.nodes[u][idx].rev
			g.nodes[v][rev].cap += bottleneck
			v = u
		}
		total += bottleneck
	}
	return total
}

// minCutSourceSide returns the set of nodes still reachable from s in the
// residual graph after maxFlow has run: the source side of the min cut.
func (g *flowGraph) minCutSourceSide(s int) map[int]struct{} {
	visited := map[int]struct{}{s: {}}
	queue := []int{s}
	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]
		for _, e := range g.nodes[u] {
			if e.cap > 0 {
				if _, ok := visited[e.to]; !ok {
					visited[e.to] = struct{}{}
					queue = append(queue, e.to)
				}
			}
		}
	}
	return visited
}
