package service

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"anm/internal/codec"
	"anm/internal/domain"
	"anm/internal/repository"
	"anm/internal/repository/sqlite"
)

func seedGraph() domain.Graph {
	g := domain.NewGraph()
	g.Nodes["laptop"] = domain.NewNode("laptop", domain.ComponentItem, "Laptop").WithPosition(domain.Point{X: 10, Y: 20})
	g.Nodes["office"] = domain.NewNode("office", domain.ComponentLocation, "Office").WithPosition(domain.Point{X: 100, Y: 20})
	g.Edges["e1"] = domain.NewEdge("e1", "laptop", "office", domain.RelationAtLocation)
	return g
}

func newTestService(t *testing.T) (*GraphService, repository.Repository) {
	t.Helper()
	repo, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	svc := NewGraphService(repo, NewEventBus(), nil, Options{IDs: domain.NewSequenceGenerator("")})
	return svc, repo
}

func TestSessionDispatch(t *testing.T) {
	s := NewSession(seedGraph(), domain.NewSequenceGenerator(""))

	g, entry, err := s.Dispatch(AddNodeCmd{
		Node: domain.NewNode("", domain.ComponentActor, "Alice"),
		At:   domain.Point{X: 5, Y: 5},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, entry.Seq)
	assert.Equal(t, []string{"node-1"}, entry.IDs)
	require.Contains(t, g.Nodes, "node-1")
	assert.Equal(t, "Alice", g.Nodes["node-1"].Label)
	assert.Len(t, s.Log(), 1)
}

func TestSessionRejectsInvariantViolation(t *testing.T) {
	s := NewSession(seedGraph(), domain.NewSequenceGenerator(""))
	before := s.Graph()

	f := domain.NewFragment()
	f.AddEdge(domain.NewEdge("dangling", "laptop", "nowhere", domain.RelationNetwork))

	_, _, err := s.Dispatch(ImportFragmentCmd{Fragment: f})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvariantViolation)
	assert.Equal(t, before, s.Graph())
	assert.Empty(t, s.Log())
}

func TestSessionRejectsFailedCommand(t *testing.T) {
	s := NewSession(seedGraph(), nil)

	_, _, err := s.Dispatch(RemoveNodeCmd{NodeID: "missing"})
	assert.ErrorIs(t, err, domain.ErrNodeNotFound)
	assert.Empty(t, s.Log())
}

func TestReplayReproducesSession(t *testing.T) {
	s := NewSession(seedGraph(), nil)

	cmds := []Command{
		CloneNodeCmd{NodeID: "laptop"},
		AddGroupCmd{Group: domain.Group{Label: "site", NodeIDs: []string{"office"}}},
		MoveNodeCmd{NodeID: "office", XY: domain.Point{X: 300, Y: 300}},
		LayoutByTypeCmd{},
	}
	for _, cmd := range cmds {
		_, _, err := s.Dispatch(cmd)
		require.NoError(t, err, cmd.Name())
	}

	replayed, err := Replay(s.Initial(), s.Log())
	require.NoError(t, err)
	assert.Equal(t, s.Graph(), replayed.Clone())
}

func TestReplayThroughWireForm(t *testing.T) {
	s := NewSession(seedGraph(), nil)
	_, _, err := s.Dispatch(CloneNodeCmd{NodeID: "office"})
	require.NoError(t, err)

	var decoded []LogEntry
	for _, entry := range s.Log() {
		env, err := EncodeCommand(entry.Command)
		require.NoError(t, err)
		cmd, err := DecodeCommand(env.Type, env.Payload)
		require.NoError(t, err)
		decoded = append(decoded, LogEntry{Seq: entry.Seq, Command: cmd, IDs: entry.IDs})
	}

	replayed, err := Replay(s.Initial(), decoded)
	require.NoError(t, err)
	assert.Equal(t, s.Graph(), replayed.Clone())
}

func TestCommandEncoding(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		env, err := EncodeCommand(MoveNodeCmd{NodeID: "n1", XY: domain.Point{X: 1, Y: 2}})
		require.NoError(t, err)
		assert.Equal(t, "move_node", env.Type)

		cmd, err := DecodeCommand(env.Type, env.Payload)
		require.NoError(t, err)
		assert.Equal(t, &MoveNodeCmd{NodeID: "n1", XY: domain.Point{X: 1, Y: 2}}, cmd)
	})

	t.Run("envelope from client", func(t *testing.T) {
		var env Envelope
		require.NoError(t, json.Unmarshal([]byte(`{"type":"remove_group","payload":{"group_id":"g1","remove_nodes":true}}`), &env))

		cmd, err := DecodeCommand(env.Type, env.Payload)
		require.NoError(t, err)
		assert.Equal(t, &RemoveGroupCmd{GroupID: "g1", RemoveNodes: true}, cmd)
	})

	t.Run("payload is optional", func(t *testing.T) {
		cmd, err := DecodeCommand("layout_by_type", nil)
		require.NoError(t, err)
		assert.Equal(t, "layout_by_type", cmd.Name())
	})

	t.Run("unknown command", func(t *testing.T) {
		_, err := DecodeCommand("format_disk", nil)
		assert.ErrorIs(t, err, ErrUnknownCommand)
	})

	t.Run("every registered name decodes", func(t *testing.T) {
		for _, name := range CommandNames() {
			cmd, err := DecodeCommand(name, nil)
			require.NoError(t, err)
			assert.Equal(t, name, cmd.Name())
		}
	})
}

func TestEventBus(t *testing.T) {
	bus := NewEventBus()
	ch := make(chan Event, 1)
	bus.Subscribe(ch)

	bus.Publish(Event{Type: EventGraphChanged})
	bus.Publish(Event{Type: EventModelSaved}) // buffer full, dropped

	assert.Equal(t, EventGraphChanged, (<-ch).Type)
	assert.Empty(t, ch)

	bus.Unsubscribe(ch)
	bus.Publish(Event{Type: EventGraphChanged})
	assert.Empty(t, ch)
}

func TestGraphServiceDispatchPublishes(t *testing.T) {
	bus := NewEventBus()
	ch := make(chan Event, 4)
	bus.Subscribe(ch)
	svc := NewGraphService(nil, bus, nil, Options{IDs: domain.NewSequenceGenerator("")})

	g, err := svc.DispatchEnvelope(context.Background(), Envelope{
		Type:    "add_node",
		Payload: json.RawMessage(`{"node":{"id":"n1","label":"Server","modelComponentType":"item"}}`),
	})
	require.NoError(t, err)
	assert.Contains(t, g.Nodes, "n1")

	ev := <-ch
	assert.Equal(t, EventGraphChanged, ev.Type)
	assert.Equal(t, 1, svc.Info().Commands)
}

func TestGraphServiceHumanizeIDs(t *testing.T) {
	svc := NewGraphService(nil, nil, nil, Options{})
	_, err := svc.Dispatch(context.Background(), AddNodeCmd{Node: domain.NewNode("a1b2", domain.ComponentItem, "Web Server")})
	require.NoError(t, err)

	_, err = svc.Dispatch(context.Background(), AddNodeCmd{Node: domain.NewNode("f00d", domain.ComponentActor, "Insider")})
	require.NoError(t, err)
	svc.SetInterfaceState(codec.InterfaceState{
		AttackerActorID: "f00d",
		AttackerGoal:    map[string]any{"assetGoal": map[string]any{"asset": "a1b2", "profit": 100.0}},
		ToolChainID:     "tc-1",
	})

	mapping, err := svc.HumanizeIDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "node__web-server", mapping["a1b2"])
	assert.Contains(t, svc.GetGraph().Nodes, "node__web-server")

	state := svc.Info().Interface
	assert.Equal(t, "node__insider", state.AttackerActorID)
	assert.Equal(t, map[string]any{"assetGoal": map[string]any{"asset": "node__web-server", "profit": 100.0}}, state.AttackerGoal)
	assert.Equal(t, "tc-1", state.ToolChainID)
}

func TestGraphServiceWithoutRepository(t *testing.T) {
	svc := NewGraphService(nil, nil, nil, Options{})
	ctx := context.Background()

	_, err := svc.ListModels(ctx)
	assert.ErrorIs(t, err, ErrNoRepository)
	_, err = svc.SaveModel(ctx, "m1", "")
	assert.ErrorIs(t, err, ErrNoRepository)
	_, err = svc.OpenModel(ctx, "m1")
	assert.ErrorIs(t, err, ErrNoRepository)
}

func TestGraphServiceExportAndLoad(t *testing.T) {
	ctx := context.Background()
	src := NewGraphService(nil, nil, nil, Options{})
	_, err := src.Dispatch(ctx, ImportFragmentCmd{Fragment: seedGraph().Fragment})
	require.NoError(t, err)
	src.SetMetadata(codec.Metadata{ID: "demo", Title: "Demo"})
	src.SetInterfaceState(codec.InterfaceState{AttackerActorID: "insider"})

	for _, format := range []string{"json", "yaml"} {
		t.Run(format, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, src.ExportModel(&buf, format))

			dst := NewGraphService(nil, nil, nil, Options{})
			loaded, err := dst.LoadModel(ctx, &buf, format)
			require.NoError(t, err)
			assert.True(t, loaded.Restored)

			g := dst.GetGraph()
			require.Contains(t, g.Nodes, "laptop")
			assert.Equal(t, domain.Point{X: 10, Y: 20}, g.Nodes["laptop"].Position())
			assert.Len(t, g.Edges, 1)

			info := dst.Info()
			assert.Equal(t, "Demo", info.Metadata.Title)
			assert.Equal(t, "insider", info.Interface.AttackerActorID)
			assert.Zero(t, info.Commands)
		})
	}
}

func TestGraphServiceSaveAndOpen(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestService(t)

	_, err := svc.Dispatch(ctx, ImportFragmentCmd{Fragment: seedGraph().Fragment})
	require.NoError(t, err)
	svc.SetInterfaceState(codec.InterfaceState{ToolChainID: "exfiltrate"})

	saved, err := svc.SaveModel(ctx, "m1", "Office")
	require.NoError(t, err)
	assert.Equal(t, "Office", saved.Title)
	assert.Zero(t, svc.Info().Commands)

	// edits after the save land in the command log
	_, err = svc.Dispatch(ctx, MoveNodeCmd{NodeID: "office", XY: domain.Point{X: 500, Y: 50}})
	require.NoError(t, err)
	_, err = svc.Dispatch(ctx, CloneNodeCmd{NodeID: "laptop"})
	require.NoError(t, err)

	records, err := repo.ListCommands(ctx, "m1")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "move_node", records[0].Name)
	assert.Equal(t, "clone_node", records[1].Name)
	assert.NotEmpty(t, records[1].IDs)

	want := svc.GetGraph()

	other := NewGraphService(repo, nil, nil, Options{})
	loaded, err := other.OpenModel(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, "exfiltrate", loaded.Interface.ToolChainID)

	got := other.GetGraph()
	assert.Equal(t, domain.Point{X: 500, Y: 50}, got.Nodes["office"].Position())
	assert.ElementsMatch(t, keys(want.Nodes), keys(got.Nodes))
	assert.ElementsMatch(t, keys(want.Edges), keys(got.Edges))
	assert.Equal(t, 2, other.Info().Commands)
	assert.Equal(t, "m1", other.Info().ModelID)

	models, err := other.ListModels(ctx)
	require.NoError(t, err)
	require.Len(t, models, 1)
	assert.Equal(t, "m1", models[0].ID)
}

func TestGraphServiceDeleteModel(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	_, err := svc.SaveModel(ctx, "m1", "Empty")
	require.NoError(t, err)
	require.NoError(t, svc.DeleteModel(ctx, "m1"))

	_, err = svc.GetModel(ctx, "m1")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.Empty(t, svc.Info().ModelID)

	assert.ErrorIs(t, svc.DeleteModel(ctx, "m1"), repository.ErrNotFound)
}

func keys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
