package domain

import "fmt"

// ImportFragment positions the nodes of f relative to at and merges f into
// the graph. Nodes carrying coordinates are offset by at; a missing
// coordinate is staggered by the node's index so unplaced nodes do not pile
// up on one point. Ids are never remapped here: callers wanting copy
// semantics duplicate the fragment first.
func ImportFragment(g Graph, f Fragment, at Point) Graph {
	positioned := f.Clone()
	positioned.Nodes = make(map[string]Node, len(f.Nodes))

	for index, id := range sortedKeys(f.Nodes) {
		node := f.Nodes[id].Clone()
		x := at.X + float64(index*StaggerX)
		y := at.Y + float64(index*StaggerY)
		if node.X != nil {
			x = at.X + *node.X
		}
		if node.Y != nil {
			y = at.Y + *node.Y
		}
		node.X = float64Ptr(x)
		node.Y = float64Ptr(y)
		positioned.Nodes[id] = node
	}

	return Graph{Fragment: CombineFragments(g.Fragment, positioned)}
}

// RemoveNode removes a node, every edge touching it and its group memberships
// in one transition. Retained predicate tuples naming the node are split
// around it.
func RemoveNode(g Graph, nodeID string) (Graph, error) {
	if _, err := g.Node(nodeID); err != nil {
		return g, err
	}
	out := g.Clone()
	removeNodeInPlace(&out, nodeID)
	return out, nil
}

func removeNodeInPlace(g *Graph, nodeID string) {
	delete(g.Nodes, nodeID)
	for id, edge := range g.Edges {
		if edge.Touches(nodeID) {
			delete(g.Edges, id)
		}
	}
	for id, group := range g.Groups {
		if group.Contains(nodeID) {
			group.NodeIDs = withoutString(group.NodeIDs, nodeID)
			g.Groups[id] = group
		}
	}
	stripPredicateValue(g, nodeID)
}

// RemoveGroup removes a group. With removeNodes set, every current member is
// removed as well, cascading to edges and other groups.
func RemoveGroup(g Graph, groupID string, removeNodes bool) (Graph, error) {
	group, err := g.Group(groupID)
	if err != nil {
		return g, err
	}
	out := g.Clone()
	if removeNodes {
		for _, nodeID := range group.NodeIDs {
			removeNodeInPlace(&out, nodeID)
		}
	}
	delete(out.Groups, groupID)
	return out, nil
}

// RemoveEdge removes a single edge. A retained predicate tuple the edge was
// unfolded from is split at that pair.
func RemoveEdge(g Graph, edgeID string) (Graph, error) {
	if _, err := g.Edge(edgeID); err != nil {
		return g, err
	}
	out := g.Clone()
	delete(out.Edges, edgeID)
	prunePredicatesInPlace(&out)
	return out, nil
}

// CloneNode duplicates a node together with its edges. Each cloned edge has
// the original node's endpoint replaced by the clone while the other endpoint
// is kept. The clone joins every group of the original and is placed
// CloneOffset away from it.
func (e *Editor) CloneNode(g Graph, nodeID string) (Graph, error) {
	orig, err := g.Node(nodeID)
	if err != nil {
		return g, err
	}

	fragment, oldToNew := e.DuplicateFragment(NodeAsFragmentInclEdges(orig, g.Edges))
	cloneID := oldToNew[nodeID]

	out := g.Clone()
	for _, group := range NodeGroups(nodeID, out.Groups) {
		group.NodeIDs = append(group.NodeIDs, cloneID)
		out.Groups[group.ID] = group
	}

	return ImportFragment(out, fragment, Point{X: CloneOffset, Y: CloneOffset}), nil
}

// CloneGroup duplicates a group, its members and every edge touching a
// member. Boundary edges keep their outside endpoint, so the clone connects
// to the same external nodes as the original.
func (e *Editor) CloneGroup(g Graph, groupID string) (Graph, error) {
	group, err := g.Group(groupID)
	if err != nil {
		return g, err
	}

	fragment, _ := e.DuplicateFragment(GroupAsFragment(g, group))
	return ImportFragment(g, fragment, Point{X: CloneOffset, Y: CloneOffset}), nil
}

// AddNodeToGroup adds a node to a group; adding an existing member is a no-op
func AddNodeToGroup(g Graph, nodeID, groupID string) (Graph, error) {
	group, err := g.Group(groupID)
	if err != nil {
		return g, err
	}
	if _, err := g.Node(nodeID); err != nil {
		return g, err
	}
	if group.Contains(nodeID) {
		return g, nil
	}

	out := g.Clone()
	group = out.Groups[groupID]
	group.NodeIDs = uniqueStrings(append(group.NodeIDs, nodeID))
	out.Groups[groupID] = group
	return out, nil
}

// UngroupNode removes a node from every group it belongs to
func UngroupNode(g Graph, nodeID string) (Graph, error) {
	if _, err := g.Node(nodeID); err != nil {
		return g, err
	}
	out := g.Clone()
	for id, group := range out.Groups {
		if group.Contains(nodeID) {
			group.NodeIDs = withoutString(group.NodeIDs, nodeID)
			out.Groups[id] = group
		}
	}
	return out, nil
}

// AddEdge validates and adds an edge. A missing id is generated and
// directedness is derived from the relation. Self-loops and edges to nodes
// outside the graph are rejected with the graph left unchanged.
func (e *Editor) AddEdge(g Graph, edge Edge) (Graph, error) {
	if edge.ID == "" {
		edge.ID = e.ids.NewID("edge")
	}
	edge.Directed = IsDirectedRelation(edge.Relation)

	if err := ValidateEdge(edge); err != nil {
		return g, err
	}
	if _, exists := g.Edges[edge.ID]; exists {
		return g, fmt.Errorf("%w: edge %s", ErrDuplicateID, edge.ID)
	}
	for _, endpoint := range []string{edge.From, edge.To} {
		if _, ok := g.Nodes[endpoint]; !ok {
			return g, fmt.Errorf("%w: edge %s endpoint %q", ErrDanglingReference, edge.ID, endpoint)
		}
	}

	out := g.Clone()
	out.Edges[edge.ID] = edge
	return out, nil
}

// AddGroup adds a group. A missing id is generated, an empty label defaults
// to "new group", and members are deduplicated and filtered to existing nodes.
func (e *Editor) AddGroup(g Graph, group Group) (Graph, error) {
	group = e.DuplicateGroup(group, true)
	if group.Label == "" {
		group.Label = "new group"
	}
	if _, exists := g.Groups[group.ID]; exists {
		return g, fmt.Errorf("%w: group %s", ErrDuplicateID, group.ID)
	}

	members := make([]string, 0, len(group.NodeIDs))
	for _, nodeID := range uniqueStrings(group.NodeIDs) {
		if _, ok := g.Nodes[nodeID]; ok {
			members = append(members, nodeID)
		}
	}
	group.NodeIDs = members

	out := g.Clone()
	out.Groups[group.ID] = group
	return out, nil
}

// MoveNode places a node at xy
func MoveNode(g Graph, nodeID string, xy Point) (Graph, error) {
	node, err := g.Node(nodeID)
	if err != nil {
		return g, err
	}
	out := g.Clone()
	out.Nodes[nodeID] = node.WithPosition(xy)
	return out, nil
}

// MoveGroup translates every member of a group by delta
func MoveGroup(g Graph, groupID string, delta Point) (Graph, error) {
	group, err := g.Group(groupID)
	if err != nil {
		return g, err
	}
	out := g.Clone()
	for _, node := range GroupNodes(group, out.Nodes) {
		out.Nodes[node.ID] = node.WithPosition(node.Position().Add(delta))
	}
	return out, nil
}
