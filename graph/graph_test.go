package graph

import (
	"io"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
)

func testGraph() *Graph[string] {
	return New[string](slog.New(slog.NewTextHandler(io.Discard)))
}

func TestGraph_SubmissionOrder(t *testing.T) {
	g := testGraph()

	g.AddReadDependency("staging", "texture")
	g.AddReadDependency("texture", "framebuffer")
	g.AddReadDependency("vertices", "framebuffer")
	g.AddReadDependency("staging", "texture")
	g.AddReadDependency("texture", "texture")

	require.Equal(t, 4, g.NodeCount())
	require.Equal(t, 3, g.EdgeCount())
	require.Equal(t, []string{"texture"}, g.Readers("staging"))
	require.Nil(t, g.Readers("missing"))

	order, err := g.SubmissionOrder()
	require.NoError(t, err)
	require.Equal(t, []string{"staging", "vertices", "texture", "framebuffer"}, order)
}

func TestGraph_Cycle(t *testing.T) {
	g := testGraph()

	g.AddReadDependency("a", "b")
	g.AddReadDependency("b", "c")
	g.AddReadDependency("c", "a")
	g.AddReadDependency("d", "a")

	_, err := g.SubmissionOrder()
	require.Error(t, err)
	require.Contains(t, err.Error(), "3 of 4 nodes")
}

func TestGraph_Reset(t *testing.T) {
	g := testGraph()
	g.AddReadDependency("a", "b")

	g.Reset()
	require.Equal(t, 0, g.NodeCount())
	require.Equal(t, 0, g.EdgeCount())

	order, err := g.SubmissionOrder()
	require.NoError(t, err)
	require.Empty(t, order)
}
