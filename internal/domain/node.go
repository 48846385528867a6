package domain

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Reserved node keys; everything else on the wire belongs to the attribute bag
const (
	nodeKeyID   = "id"
	nodeKeyType = "modelComponentType"
	nodeKeyLbl  = "label"
	nodeKeyX    = "x"
	nodeKeyY    = "y"
)

// Node represents a model component placed in the graph
type Node struct {
	ID                 string        `validate:"required"`
	ModelComponentType ComponentType
	Label              string

	// X and Y are layout coordinates; nil means the node needs auto-placement
	X *float64
	Y *float64

	// Attributes holds type-specific fields (value, atLocations, kbType, ...)
	Attributes map[string]any
}

// NewNode creates a node with initialized attributes and no coordinates
func NewNode(id string, componentType ComponentType, label string) Node {
	return Node{
		ID:                 id,
		ModelComponentType: componentType,
		Label:              label,
		Attributes:         make(map[string]any),
	}
}

// HasPosition reports whether both coordinates are set
func (n Node) HasPosition() bool {
	return n.X != nil && n.Y != nil
}

// Position returns the node coordinates, treating missing ones as zero
func (n Node) Position() Point {
	var p Point
	if n.X != nil {
		p.X = *n.X
	}
	if n.Y != nil {
		p.Y = *n.Y
	}
	return p
}

// WithPosition returns a copy of the node placed at p
func (n Node) WithPosition(p Point) Node {
	out := n.Clone()
	out.X = float64Ptr(p.X)
	out.Y = float64Ptr(p.Y)
	return out
}

// SetAttribute sets an attribute value
func (n *Node) SetAttribute(key string, value any) {
	if n.Attributes == nil {
		n.Attributes = make(map[string]any)
	}
	n.Attributes[key] = value
}

// GetAttribute gets an attribute value
func (n Node) GetAttribute(key string) (any, bool) {
	if n.Attributes == nil {
		return nil, false
	}
	val, ok := n.Attributes[key]
	return val, ok
}

// GetAttributeString gets an attribute as a string
func (n Node) GetAttributeString(key string) string {
	val, ok := n.GetAttribute(key)
	if !ok {
		return ""
	}
	if s, ok := val.(string); ok {
		return s
	}
	return ""
}

// Clone returns a deep copy of the node
func (n Node) Clone() Node {
	out := n
	if n.X != nil {
		out.X = float64Ptr(*n.X)
	}
	if n.Y != nil {
		out.Y = float64Ptr(*n.Y)
	}
	out.Attributes = cloneMap(n.Attributes)
	return out
}

// ToMap flattens the node into its wire shape
func (n Node) ToMap() map[string]any {
	m := make(map[string]any, len(n.Attributes)+5)
	for k, v := range n.Attributes {
		m[k] = cloneValue(v)
	}
	m[nodeKeyID] = n.ID
	if n.ModelComponentType != "" {
		m[nodeKeyType] = string(n.ModelComponentType)
	}
	if n.Label != "" {
		m[nodeKeyLbl] = n.Label
	}
	if n.X != nil {
		m[nodeKeyX] = *n.X
	}
	if n.Y != nil {
		m[nodeKeyY] = *n.Y
	}
	return m
}

// NodeFromMap builds a node from its flattened wire shape
func NodeFromMap(m map[string]any) (Node, error) {
	n := Node{Attributes: make(map[string]any)}
	for k, v := range m {
		switch k {
		case nodeKeyID:
			s, ok := v.(string)
			if !ok {
				return Node{}, fmt.Errorf("%w: node id must be a string, got %T", ErrInvalidEntity, v)
			}
			n.ID = s
		case nodeKeyType:
			s, _ := v.(string)
			n.ModelComponentType = ComponentType(s)
		case nodeKeyLbl:
			s, _ := v.(string)
			n.Label = s
		case nodeKeyX, nodeKeyY:
			if v == nil {
				continue
			}
			f, ok := toFloat(v)
			if !ok {
				return Node{}, fmt.Errorf("%w: node %s must be a number, got %T", ErrInvalidEntity, k, v)
			}
			if k == nodeKeyX {
				n.X = float64Ptr(f)
			} else {
				n.Y = float64Ptr(f)
			}
		default:
			n.Attributes[k] = cloneValue(v)
		}
	}
	return n, nil
}

// MarshalJSON encodes the node with its attributes flattened
func (n Node) MarshalJSON() ([]byte, error) {
	return json.Marshal(n.ToMap())
}

// UnmarshalJSON decodes a flattened node
func (n *Node) UnmarshalJSON(data []byte) error {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	decoded, err := NodeFromMap(m)
	if err != nil {
		return err
	}
	*n = decoded
	return nil
}

// MarshalYAML encodes the node with its attributes flattened
func (n Node) MarshalYAML() (any, error) {
	return n.ToMap(), nil
}

// UnmarshalYAML decodes a flattened node
func (n *Node) UnmarshalYAML(value *yaml.Node) error {
	var m map[string]any
	if err := value.Decode(&m); err != nil {
		return err
	}
	decoded, err := NodeFromMap(m)
	if err != nil {
		return err
	}
	*n = decoded
	return nil
}
