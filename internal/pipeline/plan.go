package pipeline

import (
	"github.com/dominikbraun/graph"
	"github.com/pkg/errors"
)

// Plan resolves the stage dependency graph into the execution order for one
// leg. Stages run in topological order of their `needs` edges, with file
// order as the stable tie-break. Unknown references and cycles are errors.
func Plan(p *Pipeline) ([]Stage, error) {
	g := graph.New(graph.StringHash, graph.Directed(), graph.PreventCycles())

	index := make(map[string]int, len(p.Stages))
	for i, s := range p.Stages {
		if err := g.AddVertex(s.Name); err != nil {
			return nil, errors.Wrapf(err, "add stage %q", s.Name)
		}
		index[s.Name] = i
	}

	for _, s := range p.Stages {
		for _, need := range s.Needs {
			if _, ok := index[need]; !ok {
				return nil, errors.Errorf("stage %q needs unknown stage %q", s.Name, need)
			}
			err := g.AddEdge(need, s.Name)
			switch {
			case errors.Is(err, graph.ErrEdgeCreatesCycle):
				return nil, errors.Errorf("stage %q needs %q: dependency cycle", s.Name, need)
			case errors.Is(err, graph.ErrEdgeAlreadyExists):
				// duplicate needs entry, harmless
			case err != nil:
				return nil, errors.Wrapf(err, "add edge %q -> %q", need, s.Name)
			}
		}
	}

	order, err := graph.StableTopologicalSort(g, func(a, b string) bool {
		return index[a] < index[b]
	})
	if err != nil {
		return nil, errors.Wrap(err, "sort stages")
	}

	plan := make([]Stage, 0, len(order))
	for _, name := range order {
		plan = append(plan, p.Stages[index[name]])
	}
	return plan, nil
}
