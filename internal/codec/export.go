package codec

import (
	"fmt"
	"log/slog"
	"slices"

	"anm/internal/domain"
)

// node keys that never reach the model projection
var omittedNodeKeys = []string{"label", "x", "y", "modelComponentType", "kbType"}

// ExportOptions controls ModelFromGraph
type ExportOptions struct {
	// Strict turns skipped nodes of unsupported component type into an error
	Strict bool

	Logger *slog.Logger
}

// ModelFromGraph projects a graph onto the external model.
//
// Connection edges (network, connects, or no relation) become model edges
// with directedness recomputed from the relation. atLocation edges are folded
// into the atLocations attribute of their source node. Edges of any other
// relation become binary predicates unless they were unfolded from a
// retained predicate. Retained predicates are exported with their tuples
// split wherever the unfolded edge is gone. The whole graph and the interface
// state are embedded in anm_data.
func ModelFromGraph(g domain.Graph, meta Metadata, state InterfaceState, opts ExportOptions) (*Model, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	g = domain.PrunePredicates(g)
	m := NewModel(meta)
	anmData, err := EncodeAnmData(g, state)
	if err != nil {
		return nil, err
	}
	m.AnmData = anmData

	atLocations := make(map[string][]string)
	unfolded := unfoldedPairs(g.Predicates)

	for _, id := range sortedIDs(g.Edges) {
		edge := g.Edges[id]
		switch edge.Relation {
		case "", domain.RelationNetwork, domain.RelationConnects:
			directed := domain.IsDirectedRelation(edge.Relation)
			m.Edges = append(m.Edges, ModelEdge{
				Source:   edge.From,
				Target:   edge.To,
				Directed: &directed,
				Relation: edge.Relation,
			})
		case domain.RelationAtLocation:
			atLocations[edge.From] = append(atLocations[edge.From], edge.To)
		default:
			if unfolded[pairKey(edge.Relation, edge.From, edge.To)] {
				continue
			}
			m.Predicates = append(m.Predicates, ModelPredicate{
				ID:    edge.Relation,
				Label: PredicateLabel(edge.Relation),
				Arity: 2,
				Value: []string{edge.From, edge.To},
			})
		}
	}

	for _, id := range sortedIDs(g.Predicates) {
		p := g.Predicates[id]
		for _, tuple := range p.Tuples {
			m.Predicates = append(m.Predicates, ModelPredicate{
				ID:    p.ID,
				Label: p.Label,
				Arity: p.Arity,
				Value: append([]string(nil), tuple...),
			})
		}
	}

	for _, id := range sortedIDs(g.Nodes) {
		node := g.Nodes[id]
		if err := addNode(m, node, atLocations[id]); err != nil {
			if opts.Strict {
				return nil, err
			}
			logger.Warn("skipping node on export",
				"id", node.ID,
				"component_type", string(node.ModelComponentType),
				"error", err)
		}
	}

	for _, id := range sortedIDs(g.Processes) {
		m.Processes = append(m.Processes, g.Processes[id].Clone())
	}
	for _, id := range sortedIDs(g.Policies) {
		m.Policies = append(m.Policies, g.Policies[id].Clone())
	}

	return m, nil
}

// addNode adds a node to the model collection matching its component type
func addNode(m *Model, node domain.Node, locations []string) error {
	doc := domain.Document(node.ToMap())
	for _, key := range omittedNodeKeys {
		delete(doc, key)
	}
	if len(locations) > 0 {
		existing, _ := toStrings(doc["atLocations"])
		doc["atLocations"] = mergeUnique(existing, locations)
	}

	switch t := node.ModelComponentType; t {
	case domain.ComponentLocation, domain.ComponentItem, domain.ComponentData, domain.ComponentActor, domain.ComponentRole:
		coll := m.collection(t)
		*coll = append(*coll, doc)
	case domain.ComponentPredicate:
		value, _ := toStrings(node.Attributes["value"])
		arity := len(value)
		switch n := node.Attributes["arity"].(type) {
		case int:
			arity = n
		case float64:
			arity = int(n)
		}
		m.Predicates = append(m.Predicates, ModelPredicate{
			ID:    node.ID,
			Label: node.Label,
			Arity: arity,
			Value: value,
		})
	case domain.ComponentProcess:
		m.Processes = append(m.Processes, doc)
	case domain.ComponentPolicy:
		m.Policies = append(m.Policies, doc)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedComponent, t)
	}
	return nil
}

// unfoldedPairs indexes the adjacent pairs of every retained predicate tuple
func unfoldedPairs(predicates map[string]domain.Predicate) map[string]bool {
	pairs := make(map[string]bool)
	for _, p := range predicates {
		for _, tuple := range p.Tuples {
			for i := 0; i+1 < len(tuple); i++ {
				pairs[pairKey(p.ID, tuple[i], tuple[i+1])] = true
			}
		}
	}
	return pairs
}

func pairKey(relation, from, to string) string {
	return relation + "\x00" + from + "\x00" + to
}

func toStrings(v any) ([]string, bool) {
	switch t := v.(type) {
	case []string:
		return t, true
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out, true
	case string:
		return []string{t}, true
	}
	return nil, false
}

func mergeUnique(a, b []string) []string {
	out := make([]string, 0, len(a)+len(b))
	for _, s := range append(slices.Clone(a), b...) {
		if !slices.Contains(out, s) {
			out = append(out, s)
		}
	}
	return out
}

func sortedIDs[V any](m map[string]V) []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
