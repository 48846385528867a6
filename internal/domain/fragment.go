package domain

// Fragment is a partial, possibly inconsistent graph used for import, clone
// and combine. Edges and groups may reference nodes that are not part of the
// fragment.
type Fragment struct {
	Nodes      map[string]Node      `json:"nodes" yaml:"nodes"`
	Edges      map[string]Edge      `json:"edges" yaml:"edges"`
	Groups     map[string]Group     `json:"groups" yaml:"groups"`
	Policies   map[string]Document  `json:"policies,omitempty" yaml:"policies,omitempty"`
	Processes  map[string]Document  `json:"processes,omitempty" yaml:"processes,omitempty"`
	Predicates map[string]Predicate `json:"predicates,omitempty" yaml:"predicates,omitempty"`
}

// NewFragment creates an empty fragment
func NewFragment() Fragment {
	return Fragment{
		Nodes:  make(map[string]Node),
		Edges:  make(map[string]Edge),
		Groups: make(map[string]Group),
	}
}

// CreateFragment returns partial with nodes, edges and groups defaulted to
// empty maps
func CreateFragment(partial Fragment) Fragment {
	f := partial.Clone()
	if f.Nodes == nil {
		f.Nodes = make(map[string]Node)
	}
	if f.Edges == nil {
		f.Edges = make(map[string]Edge)
	}
	if f.Groups == nil {
		f.Groups = make(map[string]Group)
	}
	return f
}

// AddNode adds a node to the fragment
func (f *Fragment) AddNode(node Node) {
	if f.Nodes == nil {
		f.Nodes = make(map[string]Node)
	}
	f.Nodes[node.ID] = node
}

// AddEdge adds an edge to the fragment
func (f *Fragment) AddEdge(edge Edge) {
	if f.Edges == nil {
		f.Edges = make(map[string]Edge)
	}
	f.Edges[edge.ID] = edge
}

// AddGroup adds a group to the fragment
func (f *Fragment) AddGroup(group Group) {
	if f.Groups == nil {
		f.Groups = make(map[string]Group)
	}
	f.Groups[group.ID] = group
}

// Clone returns a deep copy of the fragment
func (f Fragment) Clone() Fragment {
	return Fragment{
		Nodes:      cloneEntities(f.Nodes, Node.Clone),
		Edges:      cloneEntities(f.Edges, Edge.Clone),
		Groups:     cloneEntities(f.Groups, Group.Clone),
		Policies:   cloneEntities(f.Policies, Document.Clone),
		Processes:  cloneEntities(f.Processes, Document.Clone),
		Predicates: cloneEntities(f.Predicates, Predicate.Clone),
	}
}

// IsEmpty reports whether the fragment holds no entities at all
func (f Fragment) IsEmpty() bool {
	return len(f.Nodes) == 0 && len(f.Edges) == 0 && len(f.Groups) == 0 &&
		len(f.Policies) == 0 && len(f.Processes) == 0 && len(f.Predicates) == 0
}

// NodeAsFragment wraps a single node
func NodeAsFragment(node Node) Fragment {
	f := NewFragment()
	f.AddNode(node.Clone())
	return f
}

// NodeAsFragmentInclEdges wraps a node together with every edge touching it
func NodeAsFragmentInclEdges(node Node, edges map[string]Edge) Fragment {
	edgesFragment := NewFragment()
	for _, edge := range NodeEdges(node.ID, edges) {
		edgesFragment.AddEdge(edge)
	}
	return CombineFragments(NodeAsFragment(node), edgesFragment)
}

// EdgeAsFragment wraps a single edge
func EdgeAsFragment(edge Edge) Fragment {
	f := NewFragment()
	f.AddEdge(edge.Clone())
	return f
}

// EdgeAsFragmentInclNodes wraps an edge together with its endpoint nodes.
// Endpoints missing from nodes are left out.
func EdgeAsFragmentInclNodes(edge Edge, nodes map[string]Node) Fragment {
	nodesFragment := NewFragment()
	fromNode, toNode := EdgeNodes(edge, nodes)
	if fromNode != nil {
		nodesFragment.AddNode(fromNode.Clone())
	}
	if toNode != nil {
		nodesFragment.AddNode(toNode.Clone())
	}
	return CombineFragments(EdgeAsFragment(edge), nodesFragment)
}

// GroupAsFragment wraps a group with its member nodes and every edge touching
// any member
func GroupAsFragment(g Graph, group Group) Fragment {
	f := NewFragment()
	for _, node := range GroupNodes(group, g.Nodes) {
		f.AddNode(node.Clone())
		for _, edge := range NodeEdges(node.ID, g.Edges) {
			f.AddEdge(edge)
		}
	}
	f.AddGroup(group.Clone())
	return f
}

// CombineFragments merges fragments key by key. Later fragments win on id
// collisions. Every collection present in any input survives.
func CombineFragments(fragments ...Fragment) Fragment {
	acc := NewFragment()
	for _, f := range fragments {
		acc.Nodes = mergeEntities(acc.Nodes, f.Nodes, Node.Clone)
		acc.Edges = mergeEntities(acc.Edges, f.Edges, Edge.Clone)
		acc.Groups = mergeEntities(acc.Groups, f.Groups, Group.Clone)
		acc.Policies = mergeEntities(acc.Policies, f.Policies, Document.Clone)
		acc.Processes = mergeEntities(acc.Processes, f.Processes, Document.Clone)
		acc.Predicates = mergeEntities(acc.Predicates, f.Predicates, Predicate.Clone)
	}
	return acc
}

func mergeEntities[V any](dst, src map[string]V, clone func(V) V) map[string]V {
	if src == nil {
		return dst
	}
	if dst == nil {
		dst = make(map[string]V, len(src))
	}
	for id, v := range src {
		dst[id] = clone(v)
	}
	return dst
}

func cloneEntities[V any](m map[string]V, clone func(V) V) map[string]V {
	if m == nil {
		return nil
	}
	out := make(map[string]V, len(m))
	for id, v := range m {
		out[id] = clone(v)
	}
	return out
}
