package graph

import (
	"errors"
	"fmt"

	"github.com/dominikbraun/graph"

	"github.com/mvp-joe/hdl-ift/internal/hierarchy"
)

// Sort orders the modules that appear in edges so every module comes after all the
// modules it instantiates. Modules that appear in no edge are not part of the result.
// Ties are broken by first appearance in edges.
func Sort(edges []hierarchy.Edge) ([]string, error) {
	// Edges are inserted child -> parent so sources of the sort are leaf modules.
	g := graph.New(graph.StringHash, graph.Directed(), graph.PreventCycles())

	position := make(map[string]int)
	addVertex := func(name string) error {
		if _, ok := position[name]; ok {
			return nil
		}
		position[name] = len(position)
		if err := g.AddVertex(name); err != nil && !errors.Is(err, graph.ErrVertexAlreadyExists) {
			return fmt.Errorf("failed to add module %s: %w", name, err)
		}
		return nil
	}

	for _, e := range edges {
		if err := addVertex(e.Parent); err != nil {
			return nil, err
		}
		if err := addVertex(e.Child); err != nil {
			return nil, err
		}

		err := g.AddEdge(e.Child, e.Parent)
		switch {
		case err == nil, errors.Is(err, graph.ErrEdgeAlreadyExists):
		case errors.Is(err, graph.ErrEdgeCreatesCycle):
			return nil, &CycleError{Edge: e}
		default:
			return nil, fmt.Errorf("failed to add edge %s -> %s: %w", e.Parent, e.Child, err)
		}
	}

	order, err := graph.StableTopologicalSort(g, func(a, b string) bool {
		return position[a] < position[b]
	})
	if err != nil {
		return nil, fmt.Errorf("topological sort failed: %w", err)
	}
	return order, nil
}

// Order sorts the edge-connected modules and appends every module from modules that
// the sort did not cover, in first-seen order. Each module appears exactly once.
func Order(edges []hierarchy.Edge, modules []string) ([]string, error) {
	sorted, err := Sort(edges)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(sorted)+len(modules))
	order := make([]string, 0, len(sorted)+len(modules))
	for _, m := range sorted {
		seen[m] = true
		order = append(order, m)
	}
	for _, m := range modules {
		if seen[m] {
			continue
		}
		seen[m] = true
		order = append(order, m)
	}
	return order, nil
}
