package codec

import (
	"errors"
	"strings"

	"anm/internal/domain"
)

var (
	ErrUnsupportedComponent = errors.New("unsupported model component type")
	ErrUnknownFormat        = errors.New("unknown format")
	ErrInvalidModel         = errors.New("invalid model")
	ErrMalformedInput       = errors.New("malformed input")
)

// Metadata is the header of an external model
type Metadata struct {
	ID      string `json:"id,omitempty" yaml:"id,omitempty"`
	Title   string `json:"title,omitempty" yaml:"title,omitempty"`
	Version string `json:"version,omitempty" yaml:"version,omitempty"`
	Author  string `json:"author,omitempty" yaml:"author,omitempty"`
	Date    string `json:"date,omitempty" yaml:"date,omitempty"`
}

// ModelEdge is an edge of the external model
type ModelEdge struct {
	Source   string `json:"source" yaml:"source"`
	Target   string `json:"target" yaml:"target"`
	Directed *bool  `json:"directed,omitempty" yaml:"directed,omitempty"`
	Relation string `json:"relation,omitempty" yaml:"relation,omitempty"`
}

// ModelPredicate holds one tuple of a predicate. A predicate with several
// tuples appears once per tuple, sharing the id.
type ModelPredicate struct {
	ID    string   `json:"id" yaml:"id"`
	Label string   `json:"label,omitempty" yaml:"label,omitempty"`
	Arity int      `json:"arity,omitempty" yaml:"arity,omitempty"`
	Value []string `json:"value" yaml:"value"`
}

// Model is the external hierarchical model consumed by analysis tools
type Model struct {
	Metadata `yaml:",inline"`

	// AnmData carries the complete editing session as serialized JSON
	AnmData string `json:"anm_data,omitempty" yaml:"anm_data,omitempty"`

	Locations  []domain.Document `json:"locations" yaml:"locations"`
	Items      []domain.Document `json:"items" yaml:"items"`
	Data       []domain.Document `json:"data" yaml:"data"`
	Actors     []domain.Document `json:"actors" yaml:"actors"`
	Roles      []domain.Document `json:"roles" yaml:"roles"`
	Predicates []ModelPredicate  `json:"predicates" yaml:"predicates"`
	Processes  []domain.Document `json:"processes" yaml:"processes"`
	Policies   []domain.Document `json:"policies" yaml:"policies"`
	Edges      []ModelEdge       `json:"edges" yaml:"edges"`
}

// NewModel creates an empty model with all collections initialized
func NewModel(meta Metadata) *Model {
	return &Model{
		Metadata:   meta,
		Locations:  []domain.Document{},
		Items:      []domain.Document{},
		Data:       []domain.Document{},
		Actors:     []domain.Document{},
		Roles:      []domain.Document{},
		Predicates: []ModelPredicate{},
		Processes:  []domain.Document{},
		Policies:   []domain.Document{},
		Edges:      []ModelEdge{},
	}
}

// collection returns the node collection for a graph component type
func (m *Model) collection(t domain.ComponentType) *[]domain.Document {
	switch t {
	case domain.ComponentLocation:
		return &m.Locations
	case domain.ComponentItem:
		return &m.Items
	case domain.ComponentData:
		return &m.Data
	case domain.ComponentActor:
		return &m.Actors
	case domain.ComponentRole:
		return &m.Roles
	}
	return nil
}

// InterfaceState is the analysis state saved alongside the graph
type InterfaceState struct {
	AttackerProfile map[string]any `json:"attackerProfile,omitempty" yaml:"attackerProfile,omitempty"`
	AttackerGoal    map[string]any `json:"attackerGoal,omitempty" yaml:"attackerGoal,omitempty"`
	AttackerActorID string         `json:"attackerActorId,omitempty" yaml:"attackerActorId,omitempty"`
	ToolChainID     string         `json:"toolChainId,omitempty" yaml:"toolChainId,omitempty"`
}

// ReplaceIDs rewrites the node ids held by the state through mapping. The
// attacker profile holds no node ids and is kept as is.
func (s InterfaceState) ReplaceIDs(mapping map[string]string) InterfaceState {
	out := s
	if id, ok := mapping[s.AttackerActorID]; ok {
		out.AttackerActorID = id
	}
	if s.AttackerGoal != nil {
		out.AttackerGoal, _ = domain.ReplaceIDInValue(mapping, s.AttackerGoal).(map[string]any)
	}
	return out
}

// AnmData is the decoded form of Model.AnmData
type AnmData struct {
	Graph     domain.Graph   `json:"graph"`
	Interface InterfaceState `json:"interface"`
}

// Loaded is the result of reading a model
type Loaded struct {
	Graph     domain.Graph   `json:"graph"`
	Metadata  Metadata       `json:"metadata"`
	Interface InterfaceState `json:"interface"`

	// Restored reports whether Graph came from the embedded session data
	// rather than from the projected collections
	Restored bool `json:"restored"`
}

// PredicateLabel derives a readable label from a predicate id
func PredicateLabel(id string) string {
	return strings.ReplaceAll(id, "-", " ")
}
