package graph

import (
	"github.com/cockroachdb/errors"
	"github.com/dolthub/swiss"
	"golang.org/x/exp/slog"
)

type edge struct {
	from int
	to   int
}

// Graph records read dependencies between resources. An edge from a source to a reader means the
// reader's commands consume what was recorded against the source, so the source's work must be
// submitted first.
type Graph[N comparable] struct {
	logger *slog.Logger

	nodes   []N
	index   *swiss.Map[N, int]
	readers [][]int
	edges   *swiss.Map[edge, struct{}]
}

func New[N comparable](logger *slog.Logger) *Graph[N] {
	return &Graph[N]{
		logger: logger,
		index:  swiss.NewMap[N, int](32),
		edges:  swiss.NewMap[edge, struct{}](32),
	}
}

func (g *Graph[N]) nodeIndex(node N) int {
	index, ok := g.index.Get(node)
	if ok {
		return index
	}

	index = len(g.nodes)
	g.nodes = append(g.nodes, node)
	g.readers = append(g.readers, nil)
	g.index.Put(node, index)
	return index
}

// AddReadDependency notes that reader reads from source. Repeated edges and edges from a node to
// itself are ignored.
func (g *Graph[N]) AddReadDependency(source N, reader N) {
	from := g.nodeIndex(source)
	to := g.nodeIndex(reader)
	if from == to {
		return
	}

	key := edge{from: from, to: to}
	if g.edges.Has(key) {
		return
	}

	g.edges.Put(key, struct{}{})
	g.readers[from] = append(g.readers[from], to)
}

// Readers returns every node that reads from source, in the order the dependencies were added
func (g *Graph[N]) Readers(source N) []N {
	index, ok := g.index.Get(source)
	if !ok {
		return nil
	}

	readers := make([]N, 0, len(g.readers[index]))
	for _, reader := range g.readers[index] {
		readers = append(readers, g.nodes[reader])
	}
	return readers
}

func (g *Graph[N]) NodeCount() int {
	return len(g.nodes)
}

func (g *Graph[N]) EdgeCount() int {
	return g.edges.Count()
}

// SubmissionOrder returns every node such that each source precedes all of its readers. Nodes that
// are unordered relative to each other keep the order in which they first appeared.
func (g *Graph[N]) SubmissionOrder() ([]N, error) {
	inDegree := make([]int, len(g.nodes))
	for _, readers := range g.readers {
		for _, reader := range readers {
			inDegree[reader]++
		}
	}

	ready := make([]int, 0, len(g.nodes))
	for index, degree := range inDegree {
		if degree == 0 {
			ready = append(ready, index)
		}
	}

	order := make([]N, 0, len(g.nodes))
	for len(ready) > 0 {
		next := ready[0]
		ready = ready[1:]
		order = append(order, g.nodes[next])

		for _, reader := range g.readers[next] {
			inDegree[reader]--
			if inDegree[reader] == 0 {
				ready = append(ready, reader)
			}
		}
	}

	if len(order) != len(g.nodes) {
		return nil, errors.Newf("read dependency cycle detected: %d of %d nodes could not be ordered", len(g.nodes)-len(order), len(g.nodes))
	}

	g.logger.Debug("Graph::SubmissionOrder", slog.Int("Nodes", len(order)), slog.Int("Edges", g.edges.Count()))
	return order, nil
}

// Reset removes every node and edge
func (g *Graph[N]) Reset() {
	g.nodes = nil
	g.readers = nil
	g.index = swiss.NewMap[N, int](32)
	g.edges = swiss.NewMap[edge, struct{}](32)
}
