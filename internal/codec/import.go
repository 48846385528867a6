package codec

import (
	"encoding/json"
	"fmt"

	"anm/internal/domain"
)

// GraphFromModel builds a graph from the collections of an external model.
//
// Component entities become nodes tagged with their component type. Model
// edges become graph edges. Each predicate tuple is unfolded into one edge
// per adjacent pair of node ids, with the predicate id as relation; pairs
// naming something other than a node are kept only in the retained
// predicate. Processes, policies and predicates are retained as non-graph
// collections.
func GraphFromModel(m *Model) (*Loaded, error) {
	return graphFromModel(domain.DefaultEditor(), m)
}

func graphFromModel(ed *domain.Editor, m *Model) (*Loaded, error) {
	if m == nil {
		return nil, fmt.Errorf("%w: nil model", ErrInvalidModel)
	}
	g := domain.NewGraph()

	for _, componentType := range domain.ComponentTypes {
		coll := m.collection(componentType)
		if coll == nil {
			continue
		}
		for i, doc := range *coll {
			fields := map[string]any(doc.Clone())
			fields["modelComponentType"] = string(componentType)
			node, err := domain.NodeFromMap(fields)
			if err != nil {
				return nil, fmt.Errorf("%s[%d]: %w", componentType.CollectionName(), i, err)
			}
			if node.ID == "" {
				return nil, fmt.Errorf("%w: %s[%d] has no id", ErrInvalidModel, componentType.CollectionName(), i)
			}
			if _, exists := g.Nodes[node.ID]; exists {
				return nil, fmt.Errorf("%w: node %s", domain.ErrDuplicateID, node.ID)
			}
			g.Nodes[node.ID] = node
		}
	}

	for _, me := range m.Edges {
		relation := me.Relation
		if relation == "" {
			relation = inferModelRelation(g, me.Source, me.Target)
		}
		edge := domain.NewEdge("", me.Source, me.Target, relation)
		// an inferred relation decides directedness on its own
		if me.Directed != nil && relation == me.Relation {
			edge.Directed = *me.Directed
		}
		edge = ed.DuplicateEdge(edge, false)
		if err := domain.ValidateEdge(edge); err != nil {
			return nil, fmt.Errorf("edge %s -> %s: %w", me.Source, me.Target, err)
		}
		g.Edges[edge.ID] = edge
	}

	if len(m.Predicates) > 0 {
		g.Predicates = make(map[string]domain.Predicate)
	}
	for _, mp := range m.Predicates {
		if mp.ID == "" {
			return nil, fmt.Errorf("%w: predicate without id", ErrInvalidModel)
		}
		p, ok := g.Predicates[mp.ID]
		if !ok {
			p = domain.Predicate{ID: mp.ID, Label: mp.Label, Arity: mp.Arity}
			if p.Label == "" {
				p.Label = PredicateLabel(mp.ID)
			}
		}
		tuple := append([]string(nil), mp.Value...)
		p.Tuples = append(p.Tuples, tuple)
		for _, value := range tuple {
			if _, isNode := g.Nodes[value]; !isNode && !p.HasLiteral(value) {
				p.Literals = append(p.Literals, value)
			}
		}
		g.Predicates[mp.ID] = p

		for _, edge := range unfoldTuple(ed, g, mp.ID, tuple) {
			g.Edges[edge.ID] = edge
		}
	}

	var err error
	if g.Processes, err = documentsByID(ed, "process", m.Processes); err != nil {
		return nil, err
	}
	if g.Policies, err = documentsByID(ed, "policy", m.Policies); err != nil {
		return nil, err
	}

	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidModel, err)
	}

	return &Loaded{Graph: g, Metadata: m.Metadata}, nil
}

// unfoldTuple creates one edge per adjacent pair of the tuple
func unfoldTuple(ed *domain.Editor, g domain.Graph, relation string, tuple []string) []domain.Edge {
	var edges []domain.Edge
	for i := 0; i+1 < len(tuple); i++ {
		from, to := tuple[i], tuple[i+1]
		if from == to {
			continue
		}
		_, fromOK := g.Nodes[from]
		_, toOK := g.Nodes[to]
		if !fromOK || !toOK {
			continue
		}
		edges = append(edges, ed.DuplicateEdge(domain.NewEdge("", from, to, relation), false))
	}
	return edges
}

// inferModelRelation recovers the relation of a model edge that carries
// none. Only connection relations are inferred; anything else is left empty.
func inferModelRelation(g domain.Graph, from, to string) string {
	fromNode, fromOK := g.Nodes[from]
	toNode, toOK := g.Nodes[to]
	if !fromOK || !toOK {
		return ""
	}
	switch rel := domain.InferEdgeType(fromNode.ModelComponentType, toNode.ModelComponentType); rel {
	case domain.RelationConnects, domain.RelationNetwork:
		return rel
	}
	return ""
}

func documentsByID(ed *domain.Editor, kind string, docs []domain.Document) (map[string]domain.Document, error) {
	if len(docs) == 0 {
		return nil, nil
	}
	out := make(map[string]domain.Document, len(docs))
	for _, doc := range docs {
		d := doc.Clone()
		id := d.ID()
		if id == "" {
			id = ed.NewID(kind)
			d["id"] = id
		}
		if _, exists := out[id]; exists {
			return nil, fmt.Errorf("%w: %s %s", domain.ErrDuplicateID, kind, id)
		}
		out[id] = d
	}
	return out, nil
}

// RestoreSession loads a model, preferring the complete session embedded in
// anm_data. When the blob is missing, unreadable or inconsistent the graph is
// rebuilt from the model collections instead.
func RestoreSession(m *Model) (*Loaded, error) {
	if m != nil && m.AnmData != "" {
		if data, err := DecodeAnmData(m.AnmData); err == nil {
			if err := data.Graph.Validate(); err == nil {
				return &Loaded{
					Graph:     data.Graph,
					Metadata:  m.Metadata,
					Interface: data.Interface,
					Restored:  true,
				}, nil
			}
		}
	}
	return GraphFromModel(m)
}

// EncodeAnmData serializes the graph and interface state for Model.AnmData
func EncodeAnmData(g domain.Graph, state InterfaceState) (string, error) {
	data, err := json.Marshal(AnmData{Graph: g, Interface: state})
	if err != nil {
		return "", fmt.Errorf("failed to encode anm_data: %w", err)
	}
	return string(data), nil
}

// DecodeAnmData parses Model.AnmData. A blob holding a bare graph, without
// the interface wrapper, is accepted as well.
func DecodeAnmData(s string) (*AnmData, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal([]byte(s), &probe); err != nil {
		return nil, fmt.Errorf("failed to parse anm_data: %w", err)
	}

	var data AnmData
	if _, wrapped := probe["graph"]; wrapped {
		if err := json.Unmarshal([]byte(s), &data); err != nil {
			return nil, fmt.Errorf("failed to parse anm_data: %w", err)
		}
	} else if err := json.Unmarshal([]byte(s), &data.Graph); err != nil {
		return nil, fmt.Errorf("failed to parse anm_data graph: %w", err)
	}

	data.Graph = domain.GraphFromFragment(domain.CreateFragment(data.Graph.Fragment))
	return &data, nil
}
