package domain

// DuplicateNode copies a node, assigning a fresh id unless keepID is set and
// the node has one. Missing coordinates default to the origin.
func (e *Editor) DuplicateNode(node Node, keepID bool) Node {
	out := node.Clone()
	if !keepID || node.ID == "" {
		out.ID = e.ids.NewID("node")
	}
	if out.X == nil {
		out.X = float64Ptr(0)
	}
	if out.Y == nil {
		out.Y = float64Ptr(0)
	}
	if out.Attributes == nil {
		out.Attributes = make(map[string]any)
	}
	return out
}

// DuplicateEdge copies an edge, assigning a fresh id unless keepID is set and
// the edge has one
func (e *Editor) DuplicateEdge(edge Edge, keepID bool) Edge {
	out := edge.Clone()
	if !keepID || edge.ID == "" {
		out.ID = e.ids.NewID("edge")
	}
	return out
}

// DuplicateGroup copies a group, assigning a fresh id unless keepID is set
// and the group has one. Missing membership defaults to an empty set.
func (e *Editor) DuplicateGroup(group Group, keepID bool) Group {
	out := group.Clone()
	if !keepID || group.ID == "" {
		out.ID = e.ids.NewID("group")
	}
	if out.NodeIDs == nil {
		out.NodeIDs = make([]string, 0)
	}
	return out
}

// DuplicateFragment deep-clones a fragment and gives every node, edge and
// group a new id. Nodes are duplicated first so that edge endpoints and group
// members can be rewritten through the resulting old-to-new map; references
// to nodes outside the fragment are kept verbatim. Policies and processes are
// copied unchanged; predicate tuples follow the node map like edges do. The
// node id map is returned alongside.
func (e *Editor) DuplicateFragment(f Fragment) (Fragment, map[string]string) {
	out := Fragment{
		Nodes:      make(map[string]Node, len(f.Nodes)),
		Edges:      make(map[string]Edge, len(f.Edges)),
		Groups:     make(map[string]Group, len(f.Groups)),
		Policies:   cloneEntities(f.Policies, Document.Clone),
		Processes:  cloneEntities(f.Processes, Document.Clone),
	}

	oldToNew := make(map[string]string, len(f.Nodes))
	for _, id := range sortedKeys(f.Nodes) {
		node := e.DuplicateNode(f.Nodes[id], false)
		out.Nodes[node.ID] = node
		oldToNew[id] = node.ID
	}

	for _, id := range sortedKeys(f.Edges) {
		edge := ReplaceIDInEdge(oldToNew, e.DuplicateEdge(f.Edges[id], false))
		out.Edges[edge.ID] = edge
	}

	for _, id := range sortedKeys(f.Groups) {
		group := ReplaceIDInGroup(oldToNew, e.DuplicateGroup(f.Groups[id], false))
		out.Groups[group.ID] = group
	}

	if f.Predicates != nil {
		out.Predicates = make(map[string]Predicate, len(f.Predicates))
		for id, p := range f.Predicates {
			out.Predicates[id] = ReplaceIDInPredicate(oldToNew, p)
		}
	}

	return out, oldToNew
}

// ReplaceIDInEdge rewrites the endpoints of an edge through mapping
func ReplaceIDInEdge(mapping map[string]string, edge Edge) Edge {
	out := edge.Clone()
	out.From = replaceID(mapping, edge.From)
	out.To = replaceID(mapping, edge.To)
	return out
}

// ReplaceIDInGroup rewrites the members of a group through mapping
func ReplaceIDInGroup(mapping map[string]string, group Group) Group {
	out := group.Clone()
	out.NodeIDs = make([]string, len(group.NodeIDs))
	for i, id := range group.NodeIDs {
		out.NodeIDs[i] = replaceID(mapping, id)
	}
	return out
}

// ReplaceIDInPolicy rewrites the id-bearing fields of a policy
func ReplaceIDInPolicy(mapping map[string]string, policy Document) Document {
	return ReplaceIDInDocument(mapping, policy, PolicyIDPaths)
}

// ReplaceIDInProcess rewrites the id-bearing fields of a process
func ReplaceIDInProcess(mapping map[string]string, process Document) Document {
	return ReplaceIDInDocument(mapping, process, ProcessIDPaths)
}

// ReplaceIDInPredicate rewrites every tuple element of a predicate
func ReplaceIDInPredicate(mapping map[string]string, p Predicate) Predicate {
	out := p.Clone()
	for _, tuple := range out.Tuples {
		for i, id := range tuple {
			tuple[i] = replaceID(mapping, id)
		}
	}
	return out
}

// replaceReferences rewrites every node reference held by the graph. Entity
// keys are left alone; callers re-key renamed nodes themselves.
func replaceReferences(g Graph, mapping map[string]string) Graph {
	out := g.Clone()
	for id, edge := range out.Edges {
		out.Edges[id] = ReplaceIDInEdge(mapping, edge)
	}
	for id, group := range out.Groups {
		out.Groups[id] = ReplaceIDInGroup(mapping, group)
	}
	for id, policy := range out.Policies {
		out.Policies[id] = ReplaceIDInPolicy(mapping, policy)
	}
	for id, process := range out.Processes {
		out.Processes[id] = ReplaceIDInProcess(mapping, process)
	}
	for id, predicate := range out.Predicates {
		out.Predicates[id] = ReplaceIDInPredicate(mapping, predicate)
	}
	return out
}
