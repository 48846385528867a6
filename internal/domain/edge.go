package domain

import "slices"

// Relation types with special meaning to the engine and the model codec
const (
	RelationConnects   = "connects"   // physical connection between locations
	RelationNetwork    = "network"    // network connection between items
	RelationAtLocation = "atLocation" // folded into atLocations on export
)

// NonDirectedRelations is the fixed set of relations drawn without direction
var NonDirectedRelations = []string{RelationNetwork, RelationConnects}

// Edge represents a binary relation between two nodes
type Edge struct {
	ID       string `json:"id" yaml:"id" validate:"required"`
	From     string `json:"from" yaml:"from" validate:"required"`
	To       string `json:"to" yaml:"to" validate:"required,nefield=From"`
	Relation string `json:"relation,omitempty" yaml:"relation,omitempty"`
	Directed bool   `json:"directed" yaml:"directed"`
	Label    string `json:"label,omitempty" yaml:"label,omitempty"`
}

// NewEdge creates an edge whose directedness follows its relation
func NewEdge(id, from, to, relation string) Edge {
	return Edge{
		ID:       id,
		From:     from,
		To:       to,
		Relation: relation,
		Directed: IsDirectedRelation(relation),
	}
}

// IsDirectedRelation reports whether edges of this relation are directed
func IsDirectedRelation(relation string) bool {
	return !slices.Contains(NonDirectedRelations, relation)
}

// Touches reports whether nodeID is one of the edge endpoints
func (e Edge) Touches(nodeID string) bool {
	return e.From == nodeID || e.To == nodeID
}

// Clone returns a copy of the edge
func (e Edge) Clone() Edge {
	return e
}
