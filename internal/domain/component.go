package domain

import "fmt"

// ComponentType is the model component type of a node
type ComponentType string

const (
	ComponentLocation  ComponentType = "location"
	ComponentItem      ComponentType = "item"
	ComponentData      ComponentType = "data"
	ComponentActor     ComponentType = "actor"
	ComponentRole      ComponentType = "role"
	ComponentPredicate ComponentType = "predicate"
	ComponentProcess   ComponentType = "process"
	ComponentPolicy    ComponentType = "policy"
)

// ComponentTypes lists all component types in model collection order
var ComponentTypes = []ComponentType{
	ComponentLocation,
	ComponentItem,
	ComponentData,
	ComponentActor,
	ComponentRole,
	ComponentPredicate,
	ComponentProcess,
	ComponentPolicy,
}

var collectionNames = map[ComponentType]string{
	ComponentLocation:  "locations",
	ComponentItem:      "items",
	ComponentData:      "data",
	ComponentActor:     "actors",
	ComponentRole:      "roles",
	ComponentPredicate: "predicates",
	ComponentProcess:   "processes",
	ComponentPolicy:    "policies",
}

// Valid reports whether t is one of the known component types
func (t ComponentType) Valid() bool {
	_, ok := collectionNames[t]
	return ok
}

// CollectionName returns the plural collection name used by the external model
func (t ComponentType) CollectionName() string {
	return collectionNames[t]
}

// IsGraphComponent reports whether components of this type are rendered as
// graph nodes. Predicates, processes and policies live in non-graph
// collections when imported from a model.
func (t ComponentType) IsGraphComponent() bool {
	switch t {
	case ComponentPredicate, ComponentProcess, ComponentPolicy:
		return false
	}
	return t.Valid()
}

// ParseComponentType accepts either the singular type or its collection name
func ParseComponentType(s string) (ComponentType, error) {
	for t, plural := range collectionNames {
		if s == string(t) || s == plural {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown component type %q", s)
}

// GraphComponentKind addresses one of the three graph collections
type GraphComponentKind string

const (
	KindNode  GraphComponentKind = "node"
	KindEdge  GraphComponentKind = "edge"
	KindGroup GraphComponentKind = "group"
)

// ParseGraphComponentKind parses a graph component kind
func ParseGraphComponentKind(s string) (GraphComponentKind, error) {
	switch GraphComponentKind(s) {
	case KindNode, KindEdge, KindGroup:
		return GraphComponentKind(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownComponentKind, s)
}
