package graph

// Edge is a directed, labeled candidate edge between two node ids.
type Edge struct {
	From  string
	To    string
	Label string
	Type  string
}

const (
	white = iota // unvisited
	gray         // in progress
	black        // done
)

// BuildAcyclicGraph filters candidate edges against nodeIDs, removes
// any edge that would close a directed cycle, and partitions nodeIDs
// into topological layers.
//
// Edges referencing ids outside nodeIDs are dropped silently; an LLM
// step hallucinating an id is an expected input, not an error. Cycle
// removal drops back-edges found by a three-color depth-first
// traversal that visits nodeIDs in the order given, so results are
// reproducible for a fixed caller-supplied order.
//
// Every id in nodeIDs appears in exactly one layer. With no accepted
// edges each node forms its own layer-of-one in insertion order. Nodes
// that never reach zero in-degree are appended as one final layer
// instead of being dropped.
func BuildAcyclicGraph(nodeIDs []string, candidates []Edge) ([]Edge, [][]string) {
	idSet := make(map[string]struct{}, len(nodeIDs))
	for _, id := range nodeIDs {
		idSet[id] = struct{}{}
	}

	edges := make([]Edge, 0, len(candidates))
	for _, e := range candidates {
		if _, ok := idSet[e.From]; !ok {
			continue
		}
		if _, ok := idSet[e.To]; !ok {
			continue
		}
		edges = append(edges, e)
	}

	removed := backEdges(nodeIDs, edges)

	accepted := make([]Edge, 0, len(edges))
	for i, e := range edges {
		if !removed[i] {
			accepted = append(accepted, e)
		}
	}

	return accepted, layerize(nodeIDs, accepted)
}

// backEdges marks the index of every edge whose target is still in
// progress when the traversal reaches it.
func backEdges(nodeIDs []string, edges []Edge) []bool {
	adj := make(map[string][]int, len(nodeIDs))
	for i, e := range edges {
		adj[e.From] = append(adj[e.From], i)
	}

	color := make(map[string]int, len(nodeIDs))
	removed := make([]bool, len(edges))

	var visit func(id string)
	visit = func(id string) {
		color[id] = gray
		for _, ei := range adj[id] {
			if removed[ei] {
				continue
			}
			switch color[edges[ei].To] {
			case gray:
				removed[ei] = true
			case white:
				visit(edges[ei].To)
			}
		}
		color[id] = black
	}

	for _, id := range nodeIDs {
		if color[id] == white {
			visit(id)
		}
	}

	return removed
}

// layerize partitions nodeIDs into topological layers over an acyclic
// edge set using Kahn's algorithm.
func layerize(nodeIDs []string, edges []Edge) [][]string {
	if len(edges) == 0 {
		layers := make([][]string, 0, len(nodeIDs))
		for _, id := range nodeIDs {
			layers = append(layers, []string{id})
		}
		return layers
	}

	inDegree := make(map[string]int, len(nodeIDs))
	for _, id := range nodeIDs {
		inDegree[id] = 0
	}
	adj := make(map[string][]string, len(nodeIDs))
	for _, e := range edges {
		adj[e.From] = append(adj[e.From], e.To)
		inDegree[e.To]++
	}

	frontier := make([]string, 0, len(nodeIDs))
	for _, id := range nodeIDs {
		if inDegree[id] == 0 {
			frontier = append(frontier, id)
		}
	}

	placed := make(map[string]struct{}, len(nodeIDs))
	var layers [][]string
	for len(frontier) > 0 {
		layers = append(layers, frontier)
		var next []string
		for _, id := range frontier {
			placed[id] = struct{}{}
			for _, to := range adj[id] {
				inDegree[to]--
				if inDegree[to] == 0 {
					next = append(next, to)
				}
			}
		}
		frontier = next
	}

	// Anything left never reached zero in-degree; keep it visible as a
	// trailing layer rather than failing or dropping nodes.
	var remaining []string
	for _, id := range nodeIDs {
		if _, ok := placed[id]; !ok {
			remaining = append(remaining, id)
		}
	}
	if len(remaining) > 0 {
		layers = append(layers, remaining)
	}

	return layers
}
