package domain

// Editor runs the graph operations that need fresh ids. The zero value is
// not usable; construct one with NewEditor.
type Editor struct {
	ids IDGenerator
}

// NewEditor creates an editor drawing fresh ids from ids. A nil generator
// falls back to UUIDGenerator.
func NewEditor(ids IDGenerator) *Editor {
	if ids == nil {
		ids = UUIDGenerator{}
	}
	return &Editor{ids: ids}
}

var defaultEditor = NewEditor(UUIDGenerator{})

// NewID draws a fresh id for kind
func (e *Editor) NewID(kind string) string {
	return e.ids.NewID(kind)
}

// DefaultEditor returns the UUID-backed editor used by the package-level functions
func DefaultEditor() *Editor {
	return defaultEditor
}

// DuplicateNode copies a node using the default editor
func DuplicateNode(node Node, keepID bool) Node {
	return defaultEditor.DuplicateNode(node, keepID)
}

// DuplicateEdge copies an edge using the default editor
func DuplicateEdge(edge Edge, keepID bool) Edge {
	return defaultEditor.DuplicateEdge(edge, keepID)
}

// DuplicateGroup copies a group using the default editor
func DuplicateGroup(group Group, keepID bool) Group {
	return defaultEditor.DuplicateGroup(group, keepID)
}

// DuplicateFragment deep-clones a fragment with new identities using the default editor
func DuplicateFragment(f Fragment) (Fragment, map[string]string) {
	return defaultEditor.DuplicateFragment(f)
}

// CloneNode clones a node using the default editor
func CloneNode(g Graph, nodeID string) (Graph, error) {
	return defaultEditor.CloneNode(g, nodeID)
}

// CloneGroup clones a group using the default editor
func CloneGroup(g Graph, groupID string) (Graph, error) {
	return defaultEditor.CloneGroup(g, groupID)
}

// AddEdge adds an edge using the default editor
func AddEdge(g Graph, edge Edge) (Graph, error) {
	return defaultEditor.AddEdge(g, edge)
}

// AddGroup adds a group using the default editor
func AddGroup(g Graph, group Group) (Graph, error) {
	return defaultEditor.AddGroup(g, group)
}

// LayoutGraphByType lays out a graph using the default editor
func LayoutGraphByType(g Graph) Graph {
	return defaultEditor.LayoutGraphByType(g)
}
