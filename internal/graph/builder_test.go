package graph

import (
	"reflect"
	"testing"
)

func edgeIDs(edges []Edge) [][2]string {
	out := make([][2]string, 0, len(edges))
	for _, e := range edges {
		out = append(out, [2]string{e.From, e.To})
	}
	return out
}

// hasCycle is an independent check used to validate builder output.
func hasCycle(nodeIDs []string, edges []Edge) bool {
	adj := make(map[string][]string)
	for _, e := range edges {
		adj[e.From] = append(adj[e.From], e.To)
	}
	color := make(map[string]int)
	var visit func(string) bool
	visit = func(id string) bool {
		color[id] = gray
		for _, to := range adj[id] {
			switch color[to] {
			case gray:
				return true
			case white:
				if visit(to) {
					return true
				}
			}
		}
		color[id] = black
		return false
	}
	for _, id := range nodeIDs {
		if color[id] == white && visit(id) {
			return true
		}
	}
	return false
}

func TestBuildAcyclicGraphRemovesCycle(t *testing.T) {
	nodes := []string{"A", "B", "C", "D"}
	candidates := []Edge{
		{From: "A", To: "B"},
		{From: "B", To: "C"},
		{From: "C", To: "A"},
		{From: "C", To: "D"},
	}

	accepted, layers := BuildAcyclicGraph(nodes, candidates)

	wantEdges := [][2]string{{"A", "B"}, {"B", "C"}, {"C", "D"}}
	if got := edgeIDs(accepted); !reflect.DeepEqual(got, wantEdges) {
		t.Fatalf("accepted edges = %v, want %v", got, wantEdges)
	}

	wantLayers := [][]string{{"A"}, {"B"}, {"C"}, {"D"}}
	if !reflect.DeepEqual(layers, wantLayers) {
		t.Fatalf("layers = %v, want %v", layers, wantLayers)
	}
}

func TestBuildAcyclicGraphDropsUnknownIDs(t *testing.T) {
	nodes := []string{"A", "B"}
	candidates := []Edge{
		{From: "A", To: "B"},
		{From: "A", To: "ghost"},
		{From: "phantom", To: "B"},
	}

	accepted, layers := BuildAcyclicGraph(nodes, candidates)

	if got := edgeIDs(accepted); !reflect.DeepEqual(got, [][2]string{{"A", "B"}}) {
		t.Fatalf("accepted edges = %v, want [[A B]]", got)
	}
	if !reflect.DeepEqual(layers, [][]string{{"A"}, {"B"}}) {
		t.Fatalf("layers = %v", layers)
	}
}

func TestBuildAcyclicGraphSelfLoop(t *testing.T) {
	nodes := []string{"A", "B"}
	candidates := []Edge{
		{From: "A", To: "A"},
		{From: "A", To: "B"},
	}

	accepted, _ := BuildAcyclicGraph(nodes, candidates)
	if got := edgeIDs(accepted); !reflect.DeepEqual(got, [][2]string{{"A", "B"}}) {
		t.Fatalf("accepted edges = %v, want self-loop removed", got)
	}
}

func TestBuildAcyclicGraphIdempotentOnDAG(t *testing.T) {
	nodes := []string{"w", "x", "y", "z"}
	candidates := []Edge{
		{From: "w", To: "x", Label: "feeds", Type: "depends"},
		{From: "w", To: "y"},
		{From: "x", To: "z"},
		{From: "y", To: "z"},
	}

	accepted, layers := BuildAcyclicGraph(nodes, candidates)

	if !reflect.DeepEqual(accepted, candidates) {
		t.Fatalf("acyclic input changed: %v", accepted)
	}
	want := [][]string{{"w"}, {"x", "y"}, {"z"}}
	if !reflect.DeepEqual(layers, want) {
		t.Fatalf("layers = %v, want %v", layers, want)
	}
}

func TestBuildAcyclicGraphNoEdges(t *testing.T) {
	nodes := []string{"n1", "n2", "n3"}

	accepted, layers := BuildAcyclicGraph(nodes, nil)

	if len(accepted) != 0 {
		t.Fatalf("accepted = %v, want empty", accepted)
	}
	want := [][]string{{"n1"}, {"n2"}, {"n3"}}
	if !reflect.DeepEqual(layers, want) {
		t.Fatalf("layers = %v, want singleton layers in insertion order", want)
	}
}

func TestBuildAcyclicGraphEmptyInput(t *testing.T) {
	accepted, layers := BuildAcyclicGraph(nil, []Edge{{From: "a", To: "b"}})
	if len(accepted) != 0 || len(layers) != 0 {
		t.Fatalf("empty node set should yield empty output, got %v %v", accepted, layers)
	}
}

func TestBuildAcyclicGraphPathological(t *testing.T) {
	nodes := []string{"a", "b", "c", "d", "e"}
	candidates := []Edge{
		{From: "a", To: "b"},
		{From: "b", To: "a"}, // 2-cycle
		{From: "b", To: "c"},
		{From: "c", To: "c"}, // self-loop
		{From: "c", To: "d"},
		{From: "d", To: "b"}, // long cycle back
		{From: "d", To: "e"},
		{From: "e", To: "a"}, // even longer cycle back
		{From: "x", To: "a"}, // unknown source
	}

	accepted, layers := BuildAcyclicGraph(nodes, candidates)

	if hasCycle(nodes, accepted) {
		t.Fatalf("accepted edge set still has a cycle: %v", edgeIDs(accepted))
	}

	seen := make(map[string]int)
	for _, layer := range layers {
		for _, id := range layer {
			seen[id]++
		}
	}
	for _, id := range nodes {
		if seen[id] != 1 {
			t.Fatalf("node %s appears %d times across layers, want exactly 1", id, seen[id])
		}
	}
	if len(seen) != len(nodes) {
		t.Fatalf("layers contain %d ids, want %d", len(seen), len(nodes))
	}
}

func TestBuildAcyclicGraphLayersRespectEdges(t *testing.T) {
	nodes := []string{"a", "b", "c", "d"}
	candidates := []Edge{
		{From: "a", To: "c"},
		{From: "b", To: "c"},
		{From: "c", To: "d"},
	}

	accepted, layers := BuildAcyclicGraph(nodes, candidates)

	layerOf := make(map[string]int)
	for i, layer := range layers {
		for _, id := range layer {
			layerOf[id] = i
		}
	}
	for _, e := range accepted {
		if layerOf[e.From] >= layerOf[e.To] {
			t.Fatalf("edge %s->%s does not point to a later layer (%d >= %d)",
				e.From, e.To, layerOf[e.From], layerOf[e.To])
		}
	}
}
