package domain

import (
	"encoding/json"
	"fmt"
)

// UpdateComponentProperties merges newProperties into the addressed node,
// edge or group. Collections stay keyed by the current id: when the merge
// changes the id, the entity is re-keyed. A renamed node also has every
// reference to it rewritten so the graph stays consistent. Changing an
// edge's relation recomputes its directedness unless "directed" is part of
// newProperties.
func UpdateComponentProperties(g Graph, kind GraphComponentKind, id string, newProperties map[string]any) (Graph, error) {
	switch kind {
	case KindNode:
		return updateNode(g, id, newProperties)
	case KindEdge:
		return updateEdge(g, id, newProperties)
	case KindGroup:
		return updateGroupProperties(g, id, newProperties)
	}
	return g, fmt.Errorf("%w: %q", ErrUnknownComponentKind, kind)
}

func updateNode(g Graph, id string, props map[string]any) (Graph, error) {
	node, err := g.Node(id)
	if err != nil {
		return g, err
	}

	merged := node.ToMap()
	for k, v := range props {
		merged[k] = cloneValue(v)
	}
	updated, err := NodeFromMap(merged)
	if err != nil {
		return g, err
	}
	if err := ValidateNode(updated); err != nil {
		return g, err
	}

	if updated.ID == id {
		out := g.Clone()
		out.Nodes[id] = updated
		return out, nil
	}

	if _, exists := g.Nodes[updated.ID]; exists {
		return g, fmt.Errorf("%w: node %s", ErrDuplicateID, updated.ID)
	}
	out := replaceReferences(g, map[string]string{id: updated.ID})
	delete(out.Nodes, id)
	out.Nodes[updated.ID] = updated
	return out, nil
}

func updateEdge(g Graph, id string, props map[string]any) (Graph, error) {
	edge, err := g.Edge(id)
	if err != nil {
		return g, err
	}

	var updated Edge
	if err := mergeViaJSON(edge, props, &updated); err != nil {
		return g, err
	}
	_, relationChanged := props["relation"]
	_, directedGiven := props["directed"]
	if relationChanged && !directedGiven {
		updated.Directed = IsDirectedRelation(updated.Relation)
	}
	if err := ValidateEdge(updated); err != nil {
		return g, err
	}
	if updated.ID != id {
		if _, exists := g.Edges[updated.ID]; exists {
			return g, fmt.Errorf("%w: edge %s", ErrDuplicateID, updated.ID)
		}
	}

	out := g.Clone()
	delete(out.Edges, id)
	out.Edges[updated.ID] = updated
	prunePredicatesInPlace(&out)
	return out, nil
}

func updateGroupProperties(g Graph, id string, props map[string]any) (Graph, error) {
	group, err := g.Group(id)
	if err != nil {
		return g, err
	}

	var updated Group
	if err := mergeViaJSON(group, props, &updated); err != nil {
		return g, err
	}
	if updated.NodeIDs == nil {
		updated.NodeIDs = make([]string, 0)
	}
	if err := ValidateGroup(updated); err != nil {
		return g, err
	}
	if updated.ID != id {
		if _, exists := g.Groups[updated.ID]; exists {
			return g, fmt.Errorf("%w: group %s", ErrDuplicateID, updated.ID)
		}
	}

	out := g.Clone()
	delete(out.Groups, id)
	out.Groups[updated.ID] = updated
	return out, nil
}

// mergeViaJSON overlays props on the JSON form of current and decodes the
// result into target
func mergeViaJSON(current any, props map[string]any, target any) error {
	data, err := json.Marshal(current)
	if err != nil {
		return fmt.Errorf("encode entity: %w", err)
	}
	var merged map[string]any
	if err := json.Unmarshal(data, &merged); err != nil {
		return fmt.Errorf("decode entity: %w", err)
	}
	for k, v := range props {
		merged[k] = v
	}
	data, err = json.Marshal(merged)
	if err != nil {
		return fmt.Errorf("encode properties: %w", err)
	}
	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEntity, err)
	}
	return nil
}
