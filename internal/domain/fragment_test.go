package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCombineFragments(t *testing.T) {
	t.Run("later fragments win on collision", func(t *testing.T) {
		a := NodeAsFragment(NewNode("n", ComponentItem, "first"))
		b := NodeAsFragment(NewNode("n", ComponentItem, "second"))

		combined := CombineFragments(a, b)
		require.Len(t, combined.Nodes, 1)
		assert.Equal(t, "second", combined.Nodes["n"].Label)
	})

	t.Run("keeps every collection", func(t *testing.T) {
		a := NewFragment()
		a.Policies = map[string]Document{"p1": {"id": "p1"}}
		b := EdgeAsFragment(NewEdge("e", "x", "y", ""))
		b.Predicates = map[string]Predicate{"knows": {ID: "knows", Arity: 2}}

		combined := CombineFragments(a, b)
		assert.Contains(t, combined.Policies, "p1")
		assert.Contains(t, combined.Predicates, "knows")
		assert.Contains(t, combined.Edges, "e")
	})

	t.Run("empty input yields empty fragment", func(t *testing.T) {
		assert.True(t, CombineFragments().IsEmpty())
	})
}

func TestFragmentHelpers(t *testing.T) {
	g := fixtureGraph()

	t.Run("node with edges", func(t *testing.T) {
		f := NodeAsFragmentInclEdges(g.Nodes["laptop"], g.Edges)
		assert.Len(t, f.Nodes, 1)
		assert.Len(t, f.Edges, 2)
	})

	t.Run("edge with nodes", func(t *testing.T) {
		f := EdgeAsFragmentInclNodes(g.Edges["e1"], g.Nodes)
		assert.Len(t, f.Nodes, 2)
		assert.Contains(t, f.Nodes, "office")
	})

	t.Run("group fragment includes boundary edges", func(t *testing.T) {
		f := GroupAsFragment(g, g.Groups["g1"])
		assert.Len(t, f.Nodes, 2)
		assert.Len(t, f.Edges, 2)
		assert.Contains(t, f.Groups, "g1")
	})
}

func TestDuplicateFragment(t *testing.T) {
	ed := NewEditor(NewSequenceGenerator(""))
	g := fixtureGraph()

	dup, mapping := ed.DuplicateFragment(g.Fragment)

	require.Len(t, mapping, 3)
	require.Len(t, dup.Nodes, 3)
	for oldID, newID := range mapping {
		assert.NotEqual(t, oldID, newID)
		assert.Contains(t, dup.Nodes, newID)
	}

	for _, edge := range dup.Edges {
		assert.Contains(t, dup.Nodes, edge.From)
		assert.Contains(t, dup.Nodes, edge.To)
	}
	for _, group := range dup.Groups {
		assert.Equal(t, "devices", group.Label)
		assert.ElementsMatch(t, []string{mapping["laptop"], mapping["server"]}, group.NodeIDs)
	}
	assert.NoError(t, GraphFromFragment(dup).Validate())

	t.Run("keeps references to nodes outside the fragment", func(t *testing.T) {
		f := NodeAsFragmentInclEdges(g.Nodes["laptop"], g.Edges)
		dup, mapping := ed.DuplicateFragment(f)
		for _, edge := range dup.Edges {
			assert.Equal(t, mapping["laptop"], edge.From)
			assert.Contains(t, []string{"office", "server"}, edge.To)
		}
	})
}

func TestImportFragment(t *testing.T) {
	t.Run("offsets positioned nodes", func(t *testing.T) {
		f := NodeAsFragment(NewNode("n", ComponentItem, "").WithPosition(Point{X: 5, Y: 6}))
		g := ImportFragment(NewGraph(), f, Point{X: 100, Y: 200})
		assert.Equal(t, Point{X: 105, Y: 206}, g.Nodes["n"].Position())
	})

	t.Run("staggers nodes without coordinates", func(t *testing.T) {
		f := NewFragment()
		f.AddNode(NewNode("a", ComponentItem, ""))
		f.AddNode(NewNode("b", ComponentItem, ""))
		g := ImportFragment(NewGraph(), f, Point{X: 10, Y: 10})
		assert.Equal(t, Point{X: 10, Y: 10}, g.Nodes["a"].Position())
		assert.Equal(t, Point{X: 10 + StaggerX, Y: 10 + StaggerY}, g.Nodes["b"].Position())
	})

	t.Run("does not mutate inputs", func(t *testing.T) {
		base := fixtureGraph()
		f := NodeAsFragment(NewNode("n", ComponentItem, ""))
		_ = ImportFragment(base, f, Origin)
		assert.NotContains(t, base.Nodes, "n")
		assert.False(t, f.Nodes["n"].HasPosition())
	})
}
