package codec

import (
	"bytes"
	"log/slog"
	"testing"

	"anm/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exportGraph() domain.Graph {
	g := domain.NewGraph()
	laptop := domain.NewNode("laptop", domain.ComponentItem, "Laptop").WithPosition(domain.Point{X: 1, Y: 2})
	laptop.SetAttribute("kbType", "tkb:laptop")
	g.Nodes["laptop"] = laptop
	g.Nodes["secret"] = domain.NewNode("secret", domain.ComponentData, "Secret")
	g.Nodes["office"] = domain.NewNode("office", domain.ComponentLocation, "Office")
	g.Nodes["hall"] = domain.NewNode("hall", domain.ComponentLocation, "Hall")
	g.Edges["e1"] = domain.NewEdge("e1", "secret", "laptop", domain.RelationAtLocation)
	g.Edges["e2"] = domain.NewEdge("e2", "laptop", "office", domain.RelationAtLocation)
	g.Edges["e3"] = domain.NewEdge("e3", "office", "hall", domain.RelationConnects)
	g.Edges["e4"] = domain.NewEdge("e4", "laptop", "hall", "monitors")
	return g
}

func findDoc(docs []domain.Document, id string) domain.Document {
	for _, d := range docs {
		if d.ID() == id {
			return d
		}
	}
	return nil
}

func TestModelFromGraph(t *testing.T) {
	g := exportGraph()
	state := InterfaceState{AttackerActorID: "eve", AttackerGoal: map[string]any{"assetGoal": "secret"}}

	m, err := ModelFromGraph(g, Metadata{Title: "t"}, state, ExportOptions{})
	require.NoError(t, err)

	t.Run("collections by component type", func(t *testing.T) {
		assert.Len(t, m.Items, 1)
		assert.Len(t, m.Data, 1)
		assert.Len(t, m.Locations, 2)
	})

	t.Run("layout and ui keys are omitted", func(t *testing.T) {
		laptop := findDoc(m.Items, "laptop")
		require.NotNil(t, laptop)
		for _, key := range []string{"label", "x", "y", "modelComponentType", "kbType"} {
			assert.NotContains(t, laptop, key)
		}
	})

	t.Run("atLocation edges fold into attributes", func(t *testing.T) {
		assert.Equal(t, []string{"office"}, findDoc(m.Items, "laptop")["atLocations"])
		assert.Equal(t, []string{"laptop"}, findDoc(m.Data, "secret")["atLocations"])
	})

	t.Run("connection edges recompute directedness", func(t *testing.T) {
		require.Len(t, m.Edges, 1)
		require.NotNil(t, m.Edges[0].Directed)
		assert.False(t, *m.Edges[0].Directed)
		assert.Equal(t, "office", m.Edges[0].Source)
	})

	t.Run("other relations become binary predicates", func(t *testing.T) {
		require.Len(t, m.Predicates, 1)
		assert.Equal(t, ModelPredicate{ID: "monitors", Label: "monitors", Arity: 2, Value: []string{"laptop", "hall"}}, m.Predicates[0])
	})

	t.Run("session is embedded", func(t *testing.T) {
		data, err := DecodeAnmData(m.AnmData)
		require.NoError(t, err)
		assert.Len(t, data.Graph.Edges, 4)
		assert.Equal(t, "eve", data.Interface.AttackerActorID)
	})
}

func TestModelFromGraphUnsupportedComponent(t *testing.T) {
	g := exportGraph()
	g.Nodes["weird"] = domain.NewNode("weird", domain.ComponentType("spaceship"), "")

	t.Run("skips with a warning by default", func(t *testing.T) {
		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, nil))

		m, err := ModelFromGraph(g, Metadata{}, InterfaceState{}, ExportOptions{Logger: logger})
		require.NoError(t, err)
		assert.Len(t, m.Items, 1)
		assert.Contains(t, buf.String(), "skipping node on export")
		assert.Contains(t, buf.String(), "id=weird")
	})

	t.Run("strict mode fails", func(t *testing.T) {
		_, err := ModelFromGraph(g, Metadata{}, InterfaceState{}, ExportOptions{Strict: true})
		assert.ErrorIs(t, err, ErrUnsupportedComponent)
	})
}

func TestRoundTrip(t *testing.T) {
	t.Run("item and data with atLocation survive the projection", func(t *testing.T) {
		g := domain.NewGraph()
		g.Nodes["item"] = domain.NewNode("item", domain.ComponentItem, "")
		g.Nodes["data"] = domain.NewNode("data", domain.ComponentData, "")
		g.Edges["e"] = domain.NewEdge("e", "item", "data", domain.RelationAtLocation)

		m, err := ModelFromGraph(g, Metadata{}, InterfaceState{}, ExportOptions{})
		require.NoError(t, err)

		m.AnmData = ""
		loaded, err := GraphFromModel(m)
		require.NoError(t, err)

		assert.Len(t, loaded.Graph.Nodes, 2)
		assert.Equal(t, []string{"data"}, loaded.Graph.Nodes["item"].Attributes["atLocations"])
	})

	t.Run("non-folded relations keep their counts", func(t *testing.T) {
		g := exportGraph()
		m, err := ModelFromGraph(g, Metadata{}, InterfaceState{}, ExportOptions{})
		require.NoError(t, err)

		m.AnmData = ""
		loaded, err := GraphFromModel(m)
		require.NoError(t, err)

		assert.Len(t, loaded.Graph.Nodes, len(g.Nodes))
		assert.Len(t, edgesWithRelation(loaded.Graph, domain.RelationConnects), 1)
		assert.Len(t, edgesWithRelation(loaded.Graph, "monitors"), 1)
	})

	t.Run("retained predicates are not exported twice", func(t *testing.T) {
		loaded, err := GraphFromModel(sampleModel())
		require.NoError(t, err)

		m, err := ModelFromGraph(loaded.Graph, loaded.Metadata, InterfaceState{}, ExportOptions{})
		require.NoError(t, err)
		assert.Len(t, m.Predicates, 2)
	})
}

func knowsModelGraph(t *testing.T) domain.Graph {
	t.Helper()
	m := NewModel(Metadata{})
	m.Actors = []domain.Document{{"id": "a"}, {"id": "b"}, {"id": "c"}}
	m.Predicates = []ModelPredicate{{ID: "knows", Arity: 3, Value: []string{"a", "b", "c"}}}
	loaded, err := GraphFromModel(m)
	require.NoError(t, err)
	return loaded.Graph
}

func edgeBetween(t *testing.T, g domain.Graph, from, to string) string {
	t.Helper()
	for id, e := range g.Edges {
		if e.From == from && e.To == to {
			return id
		}
	}
	t.Fatalf("no edge %s -> %s", from, to)
	return ""
}

func TestModelFromGraphFollowsPredicateEdits(t *testing.T) {
	t.Run("removed edge leaves the tuple", func(t *testing.T) {
		g := knowsModelGraph(t)
		g, err := domain.RemoveEdge(g, edgeBetween(t, g, "a", "b"))
		require.NoError(t, err)
		require.Len(t, g.Edges, 1)

		m, err := ModelFromGraph(g, Metadata{}, InterfaceState{}, ExportOptions{})
		require.NoError(t, err)
		assert.Equal(t, []ModelPredicate{{ID: "knows", Label: "knows", Arity: 3, Value: []string{"b", "c"}}}, m.Predicates)

		back, err := GraphFromModel(m)
		require.NoError(t, err)
		assert.Len(t, back.Graph.Edges, 1)
	})

	t.Run("removed node leaves the tuple", func(t *testing.T) {
		g, err := domain.RemoveNode(knowsModelGraph(t), "b")
		require.NoError(t, err)

		m, err := ModelFromGraph(g, Metadata{}, InterfaceState{}, ExportOptions{})
		require.NoError(t, err)
		assert.Len(t, m.Actors, 2)
		assert.Empty(t, m.Predicates)

		back, err := GraphFromModel(m)
		require.NoError(t, err)
		assert.Empty(t, back.Graph.Edges)
		assert.NoError(t, back.Graph.Validate())
	})

	t.Run("edge missing from a stale predicate is cut on export", func(t *testing.T) {
		g := knowsModelGraph(t)
		delete(g.Edges, edgeBetween(t, g, "b", "c"))

		m, err := ModelFromGraph(g, Metadata{}, InterfaceState{}, ExportOptions{})
		require.NoError(t, err)
		require.Len(t, m.Predicates, 1)
		assert.Equal(t, []string{"a", "b"}, m.Predicates[0].Value)
	})
}

func TestInferredRelationKeepsDirectedness(t *testing.T) {
	g := domain.NewGraph()
	g.Nodes["l1"] = domain.NewNode("l1", domain.ComponentLocation, "L1")
	g.Nodes["l2"] = domain.NewNode("l2", domain.ComponentLocation, "L2")
	g, err := domain.AddEdge(g, domain.Edge{From: "l1", To: "l2"})
	require.NoError(t, err)

	m, err := ModelFromGraph(g, Metadata{}, InterfaceState{}, ExportOptions{})
	require.NoError(t, err)
	require.Len(t, m.Edges, 1)
	require.True(t, *m.Edges[0].Directed)

	back, err := GraphFromModel(m)
	require.NoError(t, err)
	edges := edgesWithRelation(back.Graph, domain.RelationConnects)
	require.Len(t, edges, 1)
	assert.False(t, edges[0].Directed)
	assert.Equal(t, domain.IsDirectedRelation(edges[0].Relation), edges[0].Directed)
}

func TestRestoreSession(t *testing.T) {
	g := exportGraph()
	state := InterfaceState{ToolChainID: "tc-1"}
	m, err := ModelFromGraph(g, Metadata{ID: "m"}, state, ExportOptions{})
	require.NoError(t, err)

	t.Run("prefers embedded session", func(t *testing.T) {
		loaded, err := RestoreSession(m)
		require.NoError(t, err)
		assert.True(t, loaded.Restored)
		assert.Equal(t, "tc-1", loaded.Interface.ToolChainID)
		assert.Len(t, edgesWithRelation(loaded.Graph, domain.RelationAtLocation), 2)
		assert.Equal(t, domain.Point{X: 1, Y: 2}, loaded.Graph.Nodes["laptop"].Position())
	})

	t.Run("falls back on broken blob", func(t *testing.T) {
		broken := *m
		broken.AnmData = "{not json"
		loaded, err := RestoreSession(&broken)
		require.NoError(t, err)
		assert.False(t, loaded.Restored)
		assert.Len(t, loaded.Graph.Nodes, 4)
	})

	t.Run("accepts a bare graph blob", func(t *testing.T) {
		data, err := DecodeAnmData(`{"nodes":{"a":{"id":"a","modelComponentType":"item"}},"edges":{},"groups":{}}`)
		require.NoError(t, err)
		assert.Contains(t, data.Graph.Nodes, "a")
	})
}
