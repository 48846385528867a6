package domain

import (
	"errors"
	"fmt"
)

// Graph is the canonical editable store. After every completed mutation
// every edge endpoint and group member references an existing node, every
// predicate tuple value is a node or one of the predicate's literals, and each
// collection is keyed by the current id of its entities.
type Graph struct {
	Fragment
}

// NewGraph creates an empty graph
func NewGraph() Graph {
	return Graph{Fragment: NewFragment()}
}

// GraphFromFragment adopts a fragment as a graph without checking invariants
func GraphFromFragment(f Fragment) Graph {
	return Graph{Fragment: CreateFragment(f)}
}

// Clone returns a deep copy of the graph
func (g Graph) Clone() Graph {
	return Graph{Fragment: CreateFragment(g.Fragment)}
}

// Node looks up a node by id
func (g Graph) Node(id string) (Node, error) {
	node, ok := g.Nodes[id]
	if !ok {
		return Node{}, fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	return node, nil
}

// Edge looks up an edge by id
func (g Graph) Edge(id string) (Edge, error) {
	edge, ok := g.Edges[id]
	if !ok {
		return Edge{}, fmt.Errorf("%w: %s", ErrEdgeNotFound, id)
	}
	return edge, nil
}

// Group looks up a group by id
func (g Graph) Group(id string) (Group, error) {
	group, ok := g.Groups[id]
	if !ok {
		return Group{}, fmt.Errorf("%w: %s", ErrGroupNotFound, id)
	}
	return group, nil
}

// Validate checks the referential invariants and reports every violation
func (g Graph) Validate() error {
	var errs []error

	for key, node := range g.Nodes {
		if node.ID != key {
			errs = append(errs, fmt.Errorf("%w: node keyed %q has id %q", ErrInvalidEntity, key, node.ID))
		}
	}

	for _, key := range sortedKeys(g.Edges) {
		edge := g.Edges[key]
		if edge.ID != key {
			errs = append(errs, fmt.Errorf("%w: edge keyed %q has id %q", ErrInvalidEntity, key, edge.ID))
		}
		if _, ok := g.Nodes[edge.From]; !ok {
			errs = append(errs, fmt.Errorf("%w: edge %s from %q", ErrDanglingReference, key, edge.From))
		}
		if _, ok := g.Nodes[edge.To]; !ok {
			errs = append(errs, fmt.Errorf("%w: edge %s to %q", ErrDanglingReference, key, edge.To))
		}
	}

	for _, key := range sortedKeys(g.Groups) {
		group := g.Groups[key]
		if group.ID != key {
			errs = append(errs, fmt.Errorf("%w: group keyed %q has id %q", ErrInvalidEntity, key, group.ID))
		}
		seen := make(map[string]bool, len(group.NodeIDs))
		for _, nodeID := range group.NodeIDs {
			if _, ok := g.Nodes[nodeID]; !ok {
				errs = append(errs, fmt.Errorf("%w: group %s member %q", ErrDanglingReference, key, nodeID))
			}
			if seen[nodeID] {
				errs = append(errs, fmt.Errorf("%w: group %s lists %q twice", ErrInvalidEntity, key, nodeID))
			}
			seen[nodeID] = true
		}
	}

	for _, key := range sortedKeys(g.Predicates) {
		p := g.Predicates[key]
		for _, tuple := range p.Tuples {
			for _, value := range tuple {
				if _, ok := g.Nodes[value]; !ok && !p.HasLiteral(value) {
					errs = append(errs, fmt.Errorf("%w: predicate %s value %q", ErrDanglingReference, key, value))
				}
			}
		}
	}

	return errors.Join(errs...)
}

// CleanGroupMembership drops group members that are not nodes of the graph
// and collapses duplicate entries
func CleanGroupMembership(g Graph) Graph {
	out := g.Clone()
	for id, group := range out.Groups {
		members := make([]string, 0, len(group.NodeIDs))
		for _, nodeID := range uniqueStrings(group.NodeIDs) {
			if _, ok := out.Nodes[nodeID]; ok {
				members = append(members, nodeID)
			}
		}
		group.NodeIDs = members
		out.Groups[id] = group
	}
	return out
}

// NodeEdges returns the edges touching nodeID, ordered by edge id
func NodeEdges(nodeID string, edges map[string]Edge) []Edge {
	var out []Edge
	for _, id := range sortedKeys(edges) {
		if edges[id].Touches(nodeID) {
			out = append(out, edges[id])
		}
	}
	return out
}

// NodeGroups returns the groups containing nodeID, ordered by group id
func NodeGroups(nodeID string, groups map[string]Group) []Group {
	var out []Group
	for _, id := range sortedKeys(groups) {
		if groups[id].Contains(nodeID) {
			out = append(out, groups[id])
		}
	}
	return out
}

// EdgeNodes returns the endpoint nodes of an edge; missing endpoints are nil
func EdgeNodes(edge Edge, nodes map[string]Node) (from, to *Node) {
	if n, ok := nodes[edge.From]; ok {
		from = &n
	}
	if n, ok := nodes[edge.To]; ok {
		to = &n
	}
	return from, to
}

// GroupNodes returns the member nodes of a group in membership order,
// skipping members that are not in nodes
func GroupNodes(group Group, nodes map[string]Node) []Node {
	out := make([]Node, 0, len(group.NodeIDs))
	for _, id := range group.NodeIDs {
		if n, ok := nodes[id]; ok {
			out = append(out, n)
		}
	}
	return out
}
